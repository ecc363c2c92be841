package economiza

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/precosal/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *Client {
	// High rate limit so tests never wait on the limiter
	return NewClient("test-token", baseURL, 3, 50, 1000, 1000)
}

func makeRow(desc, gtin, unit string, price *float64, date string) resultRow {
	var row resultRow
	row.Produto.Descricao = desc
	row.Produto.GTIN = gtin
	row.Produto.UnidadeMedida = unit
	row.Produto.Venda.ValorVenda = price
	row.Produto.Venda.DataVenda = date
	return row
}

func ptr(v float64) *float64 { return &v }

var clientTestMarkets = []domain.Market{
	{ID: 1, Name: "Mercado A", CNPJ: "11111111000111"},
	{ID: 2, Name: "Mercado B", CNPJ: "22222222000122"},
}

func TestNewClient(t *testing.T) {
	client := NewClient("test-token", "https://api.example.com/", 3, 100, 3.0, 10)

	assert.NotNil(t, client)
	assert.Equal(t, "test-token", client.token)
	assert.Equal(t, "https://api.example.com", client.baseURL, "trailing slash should be trimmed")
	assert.Equal(t, 3, client.searchDays)
	assert.Equal(t, 100, client.pageSize)
	assert.NotNil(t, client.httpClient)
	assert.NotNil(t, client.rateLimiter)
	assert.False(t, client.debug)
}

func TestNewClient_ClampsSearchDays(t *testing.T) {
	assert.Equal(t, 3, NewClient("t", "u", 0, 50, 1, 1).searchDays)
	assert.Equal(t, 3, NewClient("t", "u", 15, 50, 1, 1).searchDays)
	assert.Equal(t, 7, NewClient("t", "u", 7, 50, 1, 1).searchDays)
}

func TestNewClient_DefaultsPageSize(t *testing.T) {
	assert.Equal(t, defaultPageSize, NewClient("t", "u", 3, 0, 1, 1).pageSize)
	assert.Equal(t, defaultPageSize, NewClient("t", "u", 3, -1, 1, 1).pageSize)
}

func TestSetDebug(t *testing.T) {
	client := newTestClient("https://api.example.com")

	assert.False(t, client.debug)
	client.SetDebug(true)
	assert.True(t, client.debug)
	client.SetDebug(false)
	assert.False(t, client.debug)
}

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, exponentialBackoff(tt.attempt))
	}
}

func TestSearchProduct_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/produto/pesquisa", r.URL.Path)
		assert.Equal(t, "test-token", r.Header.Get("AppToken"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ARROZ", req.Produto.Descricao, "term should be uppercased")
		assert.Empty(t, req.Produto.GTIN)
		assert.Equal(t, 3, req.Dias)
		assert.Equal(t, 50, req.RegistrosPorPagina)
		assert.Equal(t, 1, req.Pagina)

		resp := searchResponse{TotalPaginas: 1}
		switch req.Estabelecimento.Individual.CNPJ {
		case "11111111000111":
			resp.Conteudo = []resultRow{makeRow("ARROZ BRANCO 1KG", "7891234567890", "UN", ptr(5.49), "2026-08-28T10:00:00")}
		case "22222222000122":
			resp.Conteudo = []resultRow{makeRow("ARROZ BRANCO 1KG", "7891234567890", "UN", ptr(4.99), "2026-08-28T11:00:00")}
		default:
			t.Errorf("unexpected CNPJ %s", req.Estabelecimento.Individual.CNPJ)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	observations, err := client.SearchProduct(context.Background(), "arroz", clientTestMarkets)

	require.NoError(t, err)
	require.Len(t, observations, 2)
	assert.Equal(t, "11111111000111", observations[0].MarketCNPJ)
	assert.Equal(t, "Mercado A", observations[0].MarketName)
	assert.Equal(t, 5.49, observations[0].Price)
	assert.Equal(t, "22222222000122", observations[1].MarketCNPJ)
	assert.Equal(t, 4.99, observations[1].Price)
}

func TestSearchByBarcode_SendsGTIN(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "7891234567890", req.Produto.GTIN)
		assert.Empty(t, req.Produto.Descricao)

		resp := searchResponse{
			TotalPaginas: 1,
			Conteudo:     []resultRow{makeRow("ARROZ BRANCO 1KG", "7891234567890", "UN", ptr(5.49), "2026-08-28T10:00:00")},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	observations, err := client.SearchByBarcode(context.Background(), "7891234567890", clientTestMarkets[:1])

	require.NoError(t, err)
	require.Len(t, observations, 1)
	assert.Equal(t, "7891234567890", observations[0].Barcode)
}

func TestSearchProduct_Pagination(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)

		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		resp := searchResponse{TotalPaginas: 2}
		switch req.Pagina {
		case 1:
			resp.Conteudo = []resultRow{makeRow("ARROZ BRANCO", "7891111111111", "UN", ptr(5.00), "")}
		case 2:
			resp.Conteudo = []resultRow{makeRow("ARROZ PARBOILIZADO", "7892222222222", "UN", ptr(6.00), "")}
		default:
			t.Errorf("unexpected page %d", req.Pagina)
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	observations, err := client.SearchProduct(context.Background(), "arroz", clientTestMarkets[:1])

	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&requests))
	require.Len(t, observations, 2)
	assert.Equal(t, "7891111111111", observations[0].Barcode)
	assert.Equal(t, "7892222222222", observations[1].Barcode)
}

func TestFetchPage_RetriesTransientFailure(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(searchResponse{
			TotalPaginas: 1,
			Conteudo:     []resultRow{makeRow("ARROZ BRANCO", "7891111111111", "UN", ptr(5.00), "")},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	observations, err := client.SearchProduct(context.Background(), "arroz", clientTestMarkets[:1])

	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&requests))
	assert.Len(t, observations, 1)
}

func TestSearchProduct_PartialMarketFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		if req.Estabelecimento.Individual.CNPJ == "22222222000122" {
			// Malformed payload fails decoding without retries
			w.Write([]byte("not json"))
			return
		}
		json.NewEncoder(w).Encode(searchResponse{
			TotalPaginas: 1,
			Conteudo:     []resultRow{makeRow("ARROZ BRANCO", "7891111111111", "UN", ptr(5.00), "")},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	observations, err := client.SearchProduct(context.Background(), "arroz", clientTestMarkets)

	require.NoError(t, err, "one healthy market should be enough")
	require.Len(t, observations, 1)
	assert.Equal(t, "11111111000111", observations[0].MarketCNPJ)
}

func TestSearchProduct_AllMarketsFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.SearchProduct(context.Background(), "arroz", clientTestMarkets)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrPriceAPIFailure), "err = %v", err)
}

func TestSearchProduct_InvalidRequest(t *testing.T) {
	client := newTestClient("https://api.example.com")

	_, err := client.SearchProduct(context.Background(), "", clientTestMarkets)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = client.SearchProduct(context.Background(), "arroz", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = client.SearchByBarcode(context.Background(), "", clientTestMarkets)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestCollect_MapsAndFiltersRecords(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "FEIJAO", req.Produto.Descricao)
		assert.Equal(t, 5, req.Dias)

		json.NewEncoder(w).Encode(searchResponse{
			TotalPaginas: 1,
			Conteudo: []resultRow{
				makeRow("FEIJAO CARIOCA 1KG", "7893333333333", "UN", ptr(7.89), "2026-08-28T09:00:00"),
				makeRow("FEIJAO PRETO 1KG", "7894444444444", "UN", nil, "2026-08-28T09:00:00"),
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	records, err := client.Collect(context.Background(), "feijao", clientTestMarkets[0], 5)

	require.NoError(t, err)
	require.Len(t, records, 1, "rows without a sale price are dropped")
	assert.Equal(t, "7893333333333", records[0].Barcode)
	assert.Equal(t, "feijao carioca 1kg", records[0].NormalizedName)
	assert.NotEmpty(t, records[0].ID)
	assert.Empty(t, records[0].CollectionID, "collection id is stamped by the collector")
	assert.False(t, records[0].CollectedAt.IsZero())
}

package economiza

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/precosal/backend/internal/domain"
	"golang.org/x/time/rate"
)

const (
	maxRetries      = 3
	defaultPageSize = 50
)

// Client handles communication with the Economiza Alagoas price-search API.
type Client struct {
	httpClient  *http.Client
	token       string
	baseURL     string
	searchDays  int
	pageSize    int
	rateLimiter *rate.Limiter
	debug       bool
}

// NewClient creates a new price API client.
func NewClient(token, baseURL string, searchDays, pageSize int, limit float64, burst int) *Client {
	if searchDays < 1 || searchDays > 7 {
		searchDays = 3
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: 45 * time.Second,
		},
		token:       token,
		baseURL:     strings.TrimRight(baseURL, "/"),
		searchDays:  searchDays,
		pageSize:    pageSize,
		rateLimiter: rate.NewLimiter(rate.Limit(limit), burst),
		debug:       false,
	}
}

// SetDebug enables verbose request/response logging.
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// productQuery selects between the two lookup modes the search endpoint
// offers: free-text description or exact GTIN (barcode).
type productQuery struct {
	Descricao string `json:"descricao,omitempty"`
	GTIN      string `json:"gtin,omitempty"`
}

// searchRequest is the wire format of the product search endpoint.
type searchRequest struct {
	Produto         productQuery `json:"produto"`
	Estabelecimento struct {
		Individual struct {
			CNPJ string `json:"cnpj"`
		} `json:"individual"`
	} `json:"estabelecimento"`
	Dias               int `json:"dias"`
	Pagina             int `json:"pagina"`
	RegistrosPorPagina int `json:"registrosPorPagina"`
}

type searchResponse struct {
	Conteudo     []resultRow `json:"conteudo"`
	TotalPaginas int         `json:"totalPaginas"`
}

type resultRow struct {
	Produto struct {
		Descricao     string `json:"descricao"`
		GTIN          string `json:"gtin"`
		UnidadeMedida string `json:"unidadeMedida"`
		Venda         struct {
			ValorVenda *float64 `json:"valorVenda"`
			DataVenda  string   `json:"dataVenda"`
		} `json:"venda"`
	} `json:"produto"`
}

// SearchProduct queries every given market for the term and returns the
// merged observations. A failure at one market is logged and does not abort
// the others; an error is returned only when every market failed.
func (c *Client) SearchProduct(ctx context.Context, term string, markets []domain.Market) ([]domain.PriceObservation, error) {
	if term == "" || len(markets) == 0 {
		return nil, domain.ErrInvalidRequest
	}

	query := productQuery{Descricao: strings.ToUpper(term)}
	return c.searchMarkets(ctx, query, markets, c.searchDays)
}

// SearchByBarcode queries every given market for an exact GTIN. The basket
// comparator fetches one barcode at a time through this.
func (c *Client) SearchByBarcode(ctx context.Context, barcode string, markets []domain.Market) ([]domain.PriceObservation, error) {
	if barcode == "" || len(markets) == 0 {
		return nil, domain.ErrInvalidRequest
	}

	query := productQuery{GTIN: barcode}
	return c.searchMarkets(ctx, query, markets, c.searchDays)
}

// searchMarkets runs one query against each market and merges the results.
// A failure at one market is logged and does not abort the others; an error
// is returned only when every market failed.
func (c *Client) searchMarkets(ctx context.Context, query productQuery, markets []domain.Market, days int) ([]domain.PriceObservation, error) {
	var observations []domain.PriceObservation
	failures := 0
	var lastErr error

	for _, market := range markets {
		rows, err := c.searchMarket(ctx, query, market.CNPJ, days)
		if err != nil {
			log.Printf("[ECONOMIZA] search %+v at %s failed: %v", query, market.Name, err)
			failures++
			lastErr = err
			continue
		}
		for _, row := range rows {
			observations = append(observations, mapRowToObservation(row, market))
		}
	}

	if failures == len(markets) && lastErr != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPriceAPIFailure, lastErr)
	}

	return observations, nil
}

// CollectProduct fetches every page of results for a term at a single
// market, for the collector. Unlike SearchProduct it surfaces the error so
// the collector can count the failure in its report.
func (c *Client) CollectProduct(ctx context.Context, term string, market domain.Market, days int) ([]domain.PriceObservation, error) {
	rows, err := c.searchMarket(ctx, productQuery{Descricao: strings.ToUpper(term)}, market.CNPJ, days)
	if err != nil {
		return nil, err
	}

	observations := make([]domain.PriceObservation, 0, len(rows))
	for _, row := range rows {
		observations = append(observations, mapRowToObservation(row, market))
	}
	return observations, nil
}

// Collect fetches a term at one market and maps the rows to persistable
// records, dropping rows without a sale price.
func (c *Client) Collect(ctx context.Context, term string, market domain.Market, days int) ([]domain.PriceRecord, error) {
	observations, err := c.CollectProduct(ctx, term, market, days)
	if err != nil {
		return nil, err
	}

	records := make([]domain.PriceRecord, 0, len(observations))
	now := time.Now()
	for _, obs := range observations {
		if obs.Price <= 0 {
			continue
		}
		records = append(records, ObservationToRecord(obs, "", now))
	}
	return records, nil
}

// searchMarket pages through the search endpoint for one market.
func (c *Client) searchMarket(ctx context.Context, query productQuery, cnpj string, days int) ([]resultRow, error) {
	var rows []resultRow

	for page := 1; ; page++ {
		resp, err := c.fetchPage(ctx, query, cnpj, days, page)
		if err != nil {
			return nil, err
		}

		rows = append(rows, resp.Conteudo...)

		if c.debug {
			log.Printf("[ECONOMIZA] %+v at %s: page %d/%d, %d rows",
				query, cnpj, page, resp.TotalPaginas, len(resp.Conteudo))
		}

		if page >= resp.TotalPaginas {
			break
		}
	}

	return rows, nil
}

// fetchPage executes one search request, retrying transient failures.
func (c *Client) fetchPage(ctx context.Context, query productQuery, cnpj string, days, page int) (*searchResponse, error) {
	var req searchRequest
	req.Produto = query
	req.Estabelecimento.Individual.CNPJ = cnpj
	req.Dias = days
	req.Pagina = page
	req.RegistrosPorPagina = c.pageSize

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/produto/pesquisa", c.baseURL)

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("AppToken", c.token)

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			log.Printf("[ECONOMIZA] request error (attempt %d): %v", attempt, err)
			lastErr = fmt.Errorf("%w: %v", domain.ErrPriceAPIFailure, err)
			if !sleepBackoff(ctx, attempt) {
				return nil, ctx.Err()
			}
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			log.Printf("[ECONOMIZA] API error (attempt %d) - status %d: %s", attempt, resp.StatusCode, string(body))
			lastErr = fmt.Errorf("%w: status %d", domain.ErrPriceAPIFailure, resp.StatusCode)
			if !sleepBackoff(ctx, attempt) {
				return nil, ctx.Err()
			}
			continue
		}

		var searchResp searchResponse
		if err := json.Unmarshal(body, &searchResp); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		if searchResp.TotalPaginas < 1 {
			searchResp.TotalPaginas = 1
		}
		return &searchResp, nil
	}

	return nil, lastErr
}

// sleepBackoff waits exponentially longer after each failed attempt; it
// returns false when the context was canceled while waiting.
func sleepBackoff(ctx context.Context, attempt int) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(exponentialBackoff(attempt)):
		return true
	}
}

func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(1<<(attempt-1)) * 2 * time.Second
}

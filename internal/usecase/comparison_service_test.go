package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/precosal/backend/internal/domain"
)

// MockBarcodeSearcher is a mock implementation of domain.BarcodeSearcher
type MockBarcodeSearcher struct {
	results map[string][]domain.PriceObservation
	errors  map[string]error
	calls   []string
}

func NewMockBarcodeSearcher() *MockBarcodeSearcher {
	return &MockBarcodeSearcher{
		results: make(map[string][]domain.PriceObservation),
		errors:  make(map[string]error),
	}
}

func (m *MockBarcodeSearcher) SearchByBarcode(ctx context.Context, barcode string, markets []domain.Market) ([]domain.PriceObservation, error) {
	m.calls = append(m.calls, barcode)
	if err, ok := m.errors[barcode]; ok {
		return nil, err
	}
	return m.results[barcode], nil
}

func obs(cnpj, name, barcode string, price float64) domain.PriceObservation {
	return domain.PriceObservation{
		MarketCNPJ:  cnpj,
		MarketName:  "Mercado " + cnpj,
		Barcode:     barcode,
		ProductName: "Produto " + barcode,
		Price:       price,
		Unit:        "UN",
		UnitType:    "UN",
	}
}

var testMarkets = []domain.Market{
	{ID: 1, Name: "Mercado 11111111000111", CNPJ: "11111111000111"},
	{ID: 2, Name: "Mercado 22222222000122", CNPJ: "22222222000122"},
}

func TestCompareValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects empty market list before fetching", func(t *testing.T) {
		searcher := NewMockBarcodeSearcher()
		svc := NewComparisonService(searcher)

		_, err := svc.Compare(ctx, []domain.BasketItem{{Name: "Arroz", Barcode: "111"}}, nil)
		if !errors.Is(err, domain.ErrNoMarketsSelected) {
			t.Errorf("error = %v, want ErrNoMarketsSelected", err)
		}
		if len(searcher.calls) != 0 {
			t.Errorf("expected no fetches, got %d", len(searcher.calls))
		}
	})

	t.Run("rejects empty basket", func(t *testing.T) {
		searcher := NewMockBarcodeSearcher()
		svc := NewComparisonService(searcher)

		_, err := svc.Compare(ctx, nil, testMarkets)
		if !errors.Is(err, domain.ErrEmptyBasket) {
			t.Errorf("error = %v, want ErrEmptyBasket", err)
		}
	})

	t.Run("rejects basket with only uncoded items", func(t *testing.T) {
		searcher := NewMockBarcodeSearcher()
		svc := NewComparisonService(searcher)

		items := []domain.BasketItem{{Name: "Arroz"}, {Name: "Feijao", Barcode: "   "}}
		_, err := svc.Compare(ctx, items, testMarkets)
		if !errors.Is(err, domain.ErrEmptyBasket) {
			t.Errorf("error = %v, want ErrEmptyBasket", err)
		}
		if len(searcher.calls) != 0 {
			t.Errorf("expected no fetches, got %d", len(searcher.calls))
		}
	})
}

func TestCompareWorkedExample(t *testing.T) {
	// ItemA (111) costs 5.00 at market 1 and 4.00 at market 2; ItemB (222)
	// exists only at market 1 for 3.00. Market 1 is the only complete basket
	// at 8.00, but buying each item where it is cheapest costs 7.00.
	ctx := context.Background()

	searcher := NewMockBarcodeSearcher()
	searcher.results["111"] = []domain.PriceObservation{
		obs("11111111000111", "ItemA", "111", 5.00),
		obs("22222222000122", "ItemA", "111", 4.00),
	}
	searcher.results["222"] = []domain.PriceObservation{
		obs("11111111000111", "ItemB", "222", 3.00),
	}

	svc := NewComparisonService(searcher)
	items := []domain.BasketItem{
		{Name: "ItemA", Barcode: "111"},
		{Name: "ItemB", Barcode: "222"},
	}

	result, err := svc.Compare(ctx, items, testMarkets)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Rankings) != 2 {
		t.Fatalf("rankings = %d, want 2", len(result.Rankings))
	}
	if result.Rankings[0].CNPJ != "22222222000122" || result.Rankings[0].Total != 4.00 {
		t.Errorf("first ranking = %s %.2f, want 22222222000122 4.00",
			result.Rankings[0].CNPJ, result.Rankings[0].Total)
	}
	if result.Rankings[0].FoundCount != 1 {
		t.Errorf("first ranking FoundCount = %d, want 1", result.Rankings[0].FoundCount)
	}
	if result.Rankings[1].CNPJ != "11111111000111" || result.Rankings[1].Total != 8.00 {
		t.Errorf("second ranking = %s %.2f, want 11111111000111 8.00",
			result.Rankings[1].CNPJ, result.Rankings[1].Total)
	}

	if result.BestComplete == nil {
		t.Fatal("expected a complete basket")
	}
	if result.BestComplete.CNPJ != "11111111000111" || result.BestComplete.Total != 8.00 {
		t.Errorf("best complete = %s %.2f, want 11111111000111 8.00",
			result.BestComplete.CNPJ, result.BestComplete.Total)
	}

	if result.Optimal.Total != 7.00 {
		t.Errorf("optimal total = %.2f, want 7.00", result.Optimal.Total)
	}
	if len(result.Optimal.Items) != 2 {
		t.Fatalf("optimal items = %d, want 2", len(result.Optimal.Items))
	}
	if result.Optimal.Items[0].Observation.MarketCNPJ != "22222222000122" {
		t.Errorf("ItemA should come from 22222222000122, got %s",
			result.Optimal.Items[0].Observation.MarketCNPJ)
	}
	if result.Optimal.Items[1].Observation.MarketCNPJ != "11111111000111" {
		t.Errorf("ItemB should come from 11111111000111, got %s",
			result.Optimal.Items[1].Observation.MarketCNPJ)
	}

	// (8 - 7) / 8 * 100 = 12.5
	if result.SavingsPercent != 12.5 {
		t.Errorf("savings = %.1f, want 12.5", result.SavingsPercent)
	}
	if result.CodedItemCount != 2 {
		t.Errorf("coded item count = %d, want 2", result.CodedItemCount)
	}
}

func TestCompareFiltering(t *testing.T) {
	ctx := context.Background()

	t.Run("discards rows whose barcode does not match the query", func(t *testing.T) {
		searcher := NewMockBarcodeSearcher()
		searcher.results["111"] = []domain.PriceObservation{
			obs("11111111000111", "ItemA", "111", 5.00),
			obs("11111111000111", "ItemA", "119", 1.00),
		}

		svc := NewComparisonService(searcher)
		result, err := svc.Compare(ctx, []domain.BasketItem{{Name: "ItemA", Barcode: "111"}}, testMarkets)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Rankings) != 1 || result.Rankings[0].Total != 5.00 {
			t.Errorf("expected only the exact match at 5.00, got %+v", result.Rankings)
		}
	})

	t.Run("matches barcodes after digit normalization", func(t *testing.T) {
		searcher := NewMockBarcodeSearcher()
		searcher.results["7891234567890"] = []domain.PriceObservation{
			obs("11111111000111", "ItemA", " 7891234567890 ", 5.00),
		}

		svc := NewComparisonService(searcher)
		items := []domain.BasketItem{{Name: "ItemA", Barcode: "789-1234567890"}}
		result, err := svc.Compare(ctx, items, testMarkets)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Rankings) != 1 {
			t.Fatalf("expected one ranking, got %d", len(result.Rankings))
		}
		if searcher.calls[0] != "7891234567890" {
			t.Errorf("fetched with %q, want normalized code", searcher.calls[0])
		}
	})

	t.Run("drops rows without a positive price", func(t *testing.T) {
		searcher := NewMockBarcodeSearcher()
		searcher.results["111"] = []domain.PriceObservation{
			obs("11111111000111", "ItemA", "111", 0),
		}

		svc := NewComparisonService(searcher)
		result, err := svc.Compare(ctx, []domain.BasketItem{{Name: "ItemA", Barcode: "111"}}, testMarkets)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Rankings) != 0 {
			t.Errorf("expected no rankings, got %+v", result.Rankings)
		}
	})
}

func TestCompareDeduplication(t *testing.T) {
	ctx := context.Background()

	t.Run("first observation wins for repeated market and item", func(t *testing.T) {
		searcher := NewMockBarcodeSearcher()
		searcher.results["111"] = []domain.PriceObservation{
			obs("11111111000111", "ItemA", "111", 5.00),
			obs("11111111000111", "ItemA", "111", 2.00),
		}

		svc := NewComparisonService(searcher)
		result, err := svc.Compare(ctx, []domain.BasketItem{{Name: "ItemA", Barcode: "111"}}, testMarkets)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Rankings[0].Total != 5.00 {
			t.Errorf("total = %.2f, want 5.00 (first seen)", result.Rankings[0].Total)
		}
		if result.Rankings[0].FoundCount != 1 {
			t.Errorf("found count = %d, want 1", result.Rankings[0].FoundCount)
		}
	})

	t.Run("optimal picks the true minimum even when dedup kept a pricier row", func(t *testing.T) {
		// The per-market total keeps the first row, but the optimal
		// combination still sees every observation.
		searcher := NewMockBarcodeSearcher()
		searcher.results["111"] = []domain.PriceObservation{
			obs("11111111000111", "ItemA", "111", 5.00),
			obs("11111111000111", "ItemA", "111", 2.00),
		}

		svc := NewComparisonService(searcher)
		result, err := svc.Compare(ctx, []domain.BasketItem{{Name: "ItemA", Barcode: "111"}}, testMarkets)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Optimal.Total != 2.00 {
			t.Errorf("optimal total = %.2f, want 2.00", result.Optimal.Total)
		}
		if result.Optimal.Total > result.Rankings[0].Total {
			t.Error("optimal total must never exceed the cheapest ranked total")
		}
	})

	t.Run("duplicate coded items are fetched once", func(t *testing.T) {
		searcher := NewMockBarcodeSearcher()
		searcher.results["111"] = []domain.PriceObservation{
			obs("11111111000111", "ItemA", "111", 5.00),
		}

		svc := NewComparisonService(searcher)
		items := []domain.BasketItem{
			{Name: "ItemA", Barcode: "111"},
			{Name: "ItemA de novo", Barcode: "111"},
		}
		result, err := svc.Compare(ctx, items, testMarkets)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(searcher.calls) != 1 {
			t.Errorf("fetch calls = %d, want 1", len(searcher.calls))
		}
		if result.CodedItemCount != 1 {
			t.Errorf("coded item count = %d, want 1", result.CodedItemCount)
		}
	})
}

func TestComparePartialFailure(t *testing.T) {
	ctx := context.Background()

	t.Run("a failed item fetch does not abort the run", func(t *testing.T) {
		searcher := NewMockBarcodeSearcher()
		searcher.errors["111"] = domain.ErrPriceAPIFailure
		searcher.results["222"] = []domain.PriceObservation{
			obs("11111111000111", "ItemB", "222", 3.00),
		}

		svc := NewComparisonService(searcher)
		items := []domain.BasketItem{
			{Name: "ItemA", Barcode: "111"},
			{Name: "ItemB", Barcode: "222"},
		}
		result, err := svc.Compare(ctx, items, testMarkets)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(searcher.calls) != 2 {
			t.Errorf("fetch calls = %d, want 2", len(searcher.calls))
		}
		if len(result.Rankings) != 1 {
			t.Fatalf("rankings = %d, want 1", len(result.Rankings))
		}
		if result.BestComplete != nil {
			t.Error("no market priced both items, best complete must be nil")
		}
		if len(result.Optimal.NotFound) != 1 || result.Optimal.NotFound[0] != "ItemA" {
			t.Errorf("not found = %v, want [ItemA]", result.Optimal.NotFound)
		}
	})

	t.Run("all fetches failing yields an empty result, not an error", func(t *testing.T) {
		searcher := NewMockBarcodeSearcher()
		searcher.errors["111"] = domain.ErrPriceAPIFailure

		svc := NewComparisonService(searcher)
		result, err := svc.Compare(ctx, []domain.BasketItem{{Name: "ItemA", Barcode: "111"}}, testMarkets)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Rankings) != 0 {
			t.Errorf("rankings = %d, want 0", len(result.Rankings))
		}
		if result.BestComplete != nil {
			t.Error("best complete must be nil")
		}
		if result.SavingsPercent != 0 {
			t.Errorf("savings = %.1f, want 0", result.SavingsPercent)
		}
	})
}

func TestCompareMissingItems(t *testing.T) {
	ctx := context.Background()

	searcher := NewMockBarcodeSearcher()
	searcher.results["111"] = []domain.PriceObservation{
		obs("11111111000111", "ItemA", "111", 5.00),
	}
	searcher.results["222"] = []domain.PriceObservation{
		obs("11111111000111", "ItemB", "222", 3.00),
		obs("22222222000122", "ItemB", "222", 2.50),
	}

	svc := NewComparisonService(searcher)
	items := []domain.BasketItem{
		{Name: "ItemA", Barcode: "111"},
		{Name: "ItemB", Barcode: "222"},
	}
	result, err := svc.Compare(ctx, items, testMarkets)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, r := range result.Rankings {
		switch r.CNPJ {
		case "11111111000111":
			if len(r.MissingItems) != 0 {
				t.Errorf("complete market has missing items: %v", r.MissingItems)
			}
		case "22222222000122":
			if len(r.MissingItems) != 1 || r.MissingItems[0] != "ItemA" {
				t.Errorf("missing = %v, want [ItemA]", r.MissingItems)
			}
		}
	}
}

func TestCompareTies(t *testing.T) {
	ctx := context.Background()

	t.Run("equal optimal prices keep the first market encountered", func(t *testing.T) {
		searcher := NewMockBarcodeSearcher()
		searcher.results["111"] = []domain.PriceObservation{
			obs("11111111000111", "ItemA", "111", 4.00),
			obs("22222222000122", "ItemA", "111", 4.00),
		}

		svc := NewComparisonService(searcher)
		result, err := svc.Compare(ctx, []domain.BasketItem{{Name: "ItemA", Barcode: "111"}}, testMarkets)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Optimal.Items[0].Observation.MarketCNPJ != "11111111000111" {
			t.Errorf("tie should keep first market, got %s",
				result.Optimal.Items[0].Observation.MarketCNPJ)
		}
	})

	t.Run("equal complete totals keep the first market encountered", func(t *testing.T) {
		searcher := NewMockBarcodeSearcher()
		searcher.results["111"] = []domain.PriceObservation{
			obs("11111111000111", "ItemA", "111", 4.00),
			obs("22222222000122", "ItemA", "111", 4.00),
		}

		svc := NewComparisonService(searcher)
		result, err := svc.Compare(ctx, []domain.BasketItem{{Name: "ItemA", Barcode: "111"}}, testMarkets)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.BestComplete.CNPJ != "11111111000111" {
			t.Errorf("tie should keep first market, got %s", result.BestComplete.CNPJ)
		}
	})
}

func TestCompareRounding(t *testing.T) {
	ctx := context.Background()

	searcher := NewMockBarcodeSearcher()
	searcher.results["111"] = []domain.PriceObservation{
		obs("11111111000111", "ItemA", "111", 1.105),
		obs("22222222000122", "ItemA", "111", 0.995),
	}
	searcher.results["222"] = []domain.PriceObservation{
		obs("11111111000111", "ItemB", "222", 2.005),
	}

	svc := NewComparisonService(searcher)
	items := []domain.BasketItem{
		{Name: "ItemA", Barcode: "111"},
		{Name: "ItemB", Barcode: "222"},
	}
	result, err := svc.Compare(ctx, items, testMarkets)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.BestComplete == nil {
		t.Fatal("expected a complete basket")
	}
	// 1.105 + 2.005 = 3.11
	if result.BestComplete.Total != 3.11 {
		t.Errorf("best complete total = %v, want 3.11", result.BestComplete.Total)
	}
	// 0.995 + 2.005 = 3.00
	if result.Optimal.Total != 3.00 {
		t.Errorf("optimal total = %v, want 3.00", result.Optimal.Total)
	}
}

package usecase

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/precosal/backend/internal/domain"
)

// categoryKeywords maps report categories to the product-name fragments
// that place a row in them. First match wins, unmatched rows fall into
// "Outros".
var categoryKeywords = []struct {
	name     string
	keywords []string
}{
	{"Alimentos Básicos", []string{"arroz", "feijao", "acucar", "oleo", "farinha", "macarrao", "sal"}},
	{"Carnes", []string{"carne", "frango", "peixe", "bovina", "suina", "linguica", "bacon"}},
	{"Laticínios", []string{"leite", "queijo", "manteiga", "iogurte", "requeijao", "coalhada"}},
	{"Hortifruti", []string{"fruta", "verdura", "legume", "alface", "tomate", "cebola", "batata"}},
	{"Bebidas", []string{"refrigerante", "suco", "agua", "cerveja", "vinho", "cafe"}},
	{"Limpeza", []string{"sabao", "detergente", "desinfetante", "alcool", "agua sanitaria"}},
	{"Higiene", []string{"shampoo", "sabonete", "pasta dental", "papel higienico", "desodorante"}},
	{"Padaria", []string{"pao", "bolo", "bisnaguinha", "rosquinha", "torrada"}},
}

const categoryOther = "Outros"

// DashboardService aggregates collected price rows into the reports the
// dashboard page renders. All numbers are computed over a caller-supplied
// period, optionally restricted to a set of markets.
type DashboardService struct {
	records domain.PriceRecordRepository
	runs    domain.CollectionRunRepository
	markets domain.MarketRepository
}

func NewDashboardService(records domain.PriceRecordRepository, runs domain.CollectionRunRepository, markets domain.MarketRepository) *DashboardService {
	return &DashboardService{records: records, runs: runs, markets: markets}
}

// Summary compares the period against the immediately preceding period of
// the same length: 100 rows this week vs 80 last week reads as +25%.
func (s *DashboardService) Summary(ctx context.Context, start, end time.Time, cnpjs []string) (*domain.DashboardSummary, error) {
	if end.Before(start) {
		return nil, domain.ErrInvalidRequest
	}

	current, err := s.records.ListInPeriod(ctx, start, end, cnpjs)
	if err != nil {
		return nil, err
	}

	prevStart, prevEnd := previousPeriod(start, end)
	previous, err := s.records.ListInPeriod(ctx, prevStart, prevEnd, cnpjs)
	if err != nil {
		return nil, err
	}

	markets, err := s.markets.List(ctx)
	if err != nil {
		return nil, err
	}

	runs, err := s.runs.ListInPeriod(ctx, start, end)
	if err != nil {
		return nil, err
	}

	summary := &domain.DashboardSummary{
		MarketCount:      len(markets),
		ProductCount:     len(current),
		CollectionCount:  len(runs),
		VariationPercent: countVariation(len(current), len(previous)),
	}
	for _, run := range runs {
		if run.FinishedAt == nil {
			continue
		}
		if summary.LastCollectionAt == nil || run.FinishedAt.After(*summary.LastCollectionAt) {
			summary.LastCollectionAt = run.FinishedAt
		}
	}
	return summary, nil
}

// TopProducts groups rows by normalized product name and returns the most
// frequently observed ones with their mean and cheapest prices.
func (s *DashboardService) TopProducts(ctx context.Context, start, end time.Time, cnpjs []string, limit int) ([]domain.TopProduct, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}

	records, err := s.records.ListInPeriod(ctx, start, end, cnpjs)
	if err != nil {
		return nil, err
	}

	type group struct {
		displayName    string
		count          int
		priceSum       float64
		cheapestMarket string
		cheapestPrice  float64
	}
	groups := make(map[string]*group)
	var order []string

	for _, rec := range records {
		if rec.Price <= 0 {
			continue
		}
		g, ok := groups[rec.NormalizedName]
		if !ok {
			g = &group{displayName: rec.ProductName}
			groups[rec.NormalizedName] = g
			order = append(order, rec.NormalizedName)
		}
		g.count++
		g.priceSum += rec.Price
		if g.cheapestMarket == "" || rec.Price < g.cheapestPrice {
			g.cheapestMarket = rec.MarketName
			g.cheapestPrice = rec.Price
		}
	}

	products := make([]domain.TopProduct, 0, len(order))
	for _, key := range order {
		g := groups[key]
		products = append(products, domain.TopProduct{
			ProductName:    g.displayName,
			Frequency:      g.count,
			AveragePrice:   round2(g.priceSum / float64(g.count)),
			CheapestMarket: g.cheapestMarket,
			CheapestPrice:  round2(g.cheapestPrice),
		})
	}

	sort.SliceStable(products, func(i, j int) bool {
		return products[i].Frequency > products[j].Frequency
	})
	if len(products) > limit {
		products = products[:limit]
	}
	return products, nil
}

// PriceTrends buckets rows by collection day and returns per-day mean
// price and row count, in date order.
func (s *DashboardService) PriceTrends(ctx context.Context, start, end time.Time, cnpjs []string) ([]domain.PriceTrend, error) {
	records, err := s.records.ListInPeriod(ctx, start, end, cnpjs)
	if err != nil {
		return nil, err
	}

	type bucket struct {
		priceSum float64
		count    int
	}
	buckets := make(map[string]*bucket)

	for _, rec := range records {
		if rec.Price <= 0 {
			continue
		}
		day := rec.CollectedAt.Format("2006-01-02")
		b, ok := buckets[day]
		if !ok {
			b = &bucket{}
			buckets[day] = b
		}
		b.priceSum += rec.Price
		b.count++
	}

	trends := make([]domain.PriceTrend, 0, len(buckets))
	for day, b := range buckets {
		trends = append(trends, domain.PriceTrend{
			Date:         day,
			AveragePrice: round2(b.priceSum / float64(b.count)),
			ProductCount: b.count,
		})
	}
	sort.Slice(trends, func(i, j int) bool {
		return trends[i].Date < trends[j].Date
	})
	return trends, nil
}

// Categories buckets rows into keyword categories and compares each
// category's mean price against the previous period.
func (s *DashboardService) Categories(ctx context.Context, start, end time.Time, cnpjs []string) ([]domain.CategoryStats, error) {
	current, err := s.records.ListInPeriod(ctx, start, end, cnpjs)
	if err != nil {
		return nil, err
	}

	prevStart, prevEnd := previousPeriod(start, end)
	previous, err := s.records.ListInPeriod(ctx, prevStart, prevEnd, cnpjs)
	if err != nil {
		return nil, err
	}

	currentAgg := aggregateByCategory(current)
	previousAgg := aggregateByCategory(previous)

	var stats []domain.CategoryStats
	for _, cat := range categoryOrder() {
		cur, ok := currentAgg[cat]
		if !ok || cur.count == 0 {
			continue
		}
		mean := cur.priceSum / float64(cur.count)

		var variation float64
		if prev, ok := previousAgg[cat]; ok && prev.count > 0 {
			prevMean := prev.priceSum / float64(prev.count)
			if prevMean > 0 {
				variation = (mean - prevMean) / prevMean * 100
			}
		}

		stats = append(stats, domain.CategoryStats{
			Category:         cat,
			ProductCount:     cur.count,
			AveragePrice:     round2(mean),
			VariationPercent: round2(variation),
		})
	}

	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].ProductCount > stats[j].ProductCount
	})
	return stats, nil
}

type categoryAgg struct {
	count    int
	priceSum float64
}

func aggregateByCategory(records []domain.PriceRecord) map[string]*categoryAgg {
	agg := make(map[string]*categoryAgg)
	for _, rec := range records {
		if rec.Price <= 0 {
			continue
		}
		cat := categorize(rec.ProductName)
		a, ok := agg[cat]
		if !ok {
			a = &categoryAgg{}
			agg[cat] = a
		}
		a.count++
		a.priceSum += rec.Price
	}
	return agg
}

func categorize(productName string) string {
	name := strings.ToLower(productName)
	for _, cat := range categoryKeywords {
		for _, kw := range cat.keywords {
			if strings.Contains(name, kw) {
				return cat.name
			}
		}
	}
	return categoryOther
}

func categoryOrder() []string {
	order := make([]string, 0, len(categoryKeywords)+1)
	for _, cat := range categoryKeywords {
		order = append(order, cat.name)
	}
	return append(order, categoryOther)
}

// previousPeriod is the window of the same length immediately before
// [start, end].
func previousPeriod(start, end time.Time) (time.Time, time.Time) {
	length := end.Sub(start)
	prevEnd := start.Add(-24 * time.Hour)
	return prevEnd.Add(-length), prevEnd
}

func countVariation(current, previous int) float64 {
	if previous > 0 {
		return round2(float64(current-previous) / float64(previous) * 100)
	}
	if current > 0 {
		return 100
	}
	return 0
}

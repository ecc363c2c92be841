package usecase

import (
	"context"
	"log"
	"math"
	"sort"

	"github.com/precosal/backend/internal/domain"
)

// ComparisonService computes, for one basket and a set of markets, the
// cheapest complete single-market basket and the cheapest combination of
// items across markets. Every result is rebuilt from scratch per run; the
// service holds no state between runs.
type ComparisonService struct {
	searcher domain.BarcodeSearcher
}

// NewComparisonService creates a comparison service around a fetch
// dependency. Tests supply a canned searcher instead of the real API.
func NewComparisonService(searcher domain.BarcodeSearcher) *ComparisonService {
	return &ComparisonService{searcher: searcher}
}

// Compare prices the basket at the given markets.
//
// Items are fetched one at a time, in basket order, to bound the load on
// the shared search endpoint. A failed fetch for one item is logged and
// treated as zero observations for that item; only validation errors abort
// before any work begins.
func (s *ComparisonService) Compare(ctx context.Context, items []domain.BasketItem, markets []domain.Market) (*domain.ComparisonResult, error) {
	if len(markets) == 0 {
		return nil, domain.ErrNoMarketsSelected
	}

	coded := codedItems(items)
	if len(items) == 0 || len(coded) == 0 {
		return nil, domain.ErrEmptyBasket
	}

	observations := s.fetchAll(ctx, coded, markets)

	rankings := rankMarkets(observations, coded)
	bestComplete := selectBestComplete(rankings, len(coded))
	optimal := selectOptimalCombination(observations, coded)

	result := &domain.ComparisonResult{
		Rankings:       rankings,
		BestComplete:   bestComplete,
		Optimal:        optimal,
		CodedItemCount: len(coded),
		SavingsPercent: savingsPercent(bestComplete, optimal),
	}

	log.Printf("[COMPARE] %d items, %d markets: %d observations, %d ranked, complete=%v",
		len(coded), len(markets), len(observations), len(rankings), bestComplete != nil)

	return result, nil
}

// codedItems filters to items that can be matched by barcode, dropping
// duplicate codes (first occurrence wins).
func codedItems(items []domain.BasketItem) []domain.BasketItem {
	seen := make(map[string]bool, len(items))
	var coded []domain.BasketItem
	for _, item := range items {
		code := domain.NormalizeBarcode(item.Barcode)
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		item.Barcode = code
		coded = append(coded, item)
	}
	return coded
}

// fetchAll queries one item at a time, sequentially, and merges the results
// into a single flat ordered list. Each observation is tagged with the
// basket item it satisfies. Rows whose barcode does not exactly match the
// queried code are discarded: the upstream search may loosely match, and
// exact-match filtering is this side's responsibility.
func (s *ComparisonService) fetchAll(ctx context.Context, coded []domain.BasketItem, markets []domain.Market) []domain.PriceObservation {
	var observations []domain.PriceObservation

	for _, item := range coded {
		results, err := s.searcher.SearchByBarcode(ctx, item.Barcode, markets)
		if err != nil {
			log.Printf("[COMPARE] fetch failed for %q (%s): %v", item.Name, item.Barcode, err)
			continue
		}

		for _, obs := range results {
			if domain.NormalizeBarcode(obs.Barcode) != item.Barcode {
				continue
			}
			if obs.Price <= 0 {
				continue
			}
			obs.Barcode = item.Barcode
			obs.ItemName = item.Name
			observations = append(observations, obs)
		}
	}

	return observations
}

// rankMarkets groups observations by market and returns the markets
// ordered by ascending total. Repeated (market, item) observations are
// deduplicated, first one seen wins: a single search can return multiple
// rows for the same product at the same market.
func rankMarkets(observations []domain.PriceObservation, coded []domain.BasketItem) []domain.MarketBasketResult {
	byMarket := make(map[string]*domain.MarketBasketResult)
	seen := make(map[string]bool)
	var order []string

	for _, obs := range observations {
		result, ok := byMarket[obs.MarketCNPJ]
		if !ok {
			result = &domain.MarketBasketResult{
				CNPJ:       obs.MarketCNPJ,
				MarketName: obs.MarketName,
			}
			byMarket[obs.MarketCNPJ] = result
			order = append(order, obs.MarketCNPJ)
		}

		key := obs.MarketCNPJ + "|" + obs.Barcode
		if seen[key] {
			continue
		}
		seen[key] = true

		result.Total += obs.Price
		result.FoundCount++
		result.Items = append(result.Items, obs)
	}

	rankings := make([]domain.MarketBasketResult, 0, len(order))
	for _, cnpj := range order {
		result := byMarket[cnpj]
		if result.Total <= 0 {
			continue
		}
		result.Total = round2(result.Total)
		result.MissingItems = missingItems(coded, seen, cnpj)
		rankings = append(rankings, *result)
	}

	sort.SliceStable(rankings, func(i, j int) bool {
		return rankings[i].Total < rankings[j].Total
	})

	return rankings
}

// missingItems lists the coded items a market did not price, in basket order.
func missingItems(coded []domain.BasketItem, seen map[string]bool, cnpj string) []string {
	var missing []string
	for _, item := range coded {
		if !seen[cnpj+"|"+item.Barcode] {
			missing = append(missing, item.Name)
		}
	}
	return missing
}

// selectBestComplete picks the cheapest market that priced every coded
// item, or nil when no market did. Rankings are already ascending by total,
// so the first complete entry is the minimum; among equal totals the first
// encountered wins.
func selectBestComplete(rankings []domain.MarketBasketResult, codedCount int) *domain.MarketBasketResult {
	for i := range rankings {
		if rankings[i].Complete(codedCount) {
			best := rankings[i]
			return &best
		}
	}
	return nil
}

// selectOptimalCombination picks, for each coded item independently, the
// cheapest observation across all markets. Ties are broken by first
// encountered. Items with no observation are reported as not found and
// excluded from the total.
func selectOptimalCombination(observations []domain.PriceObservation, coded []domain.BasketItem) domain.OptimalCombination {
	var combination domain.OptimalCombination

	for _, item := range coded {
		var best *domain.PriceObservation
		for i := range observations {
			if observations[i].Barcode != item.Barcode {
				continue
			}
			if best == nil || observations[i].Price < best.Price {
				best = &observations[i]
			}
		}

		if best == nil {
			combination.NotFound = append(combination.NotFound, item.Name)
			continue
		}

		combination.Items = append(combination.Items, domain.OptimalItem{
			ItemName:    item.Name,
			Barcode:     item.Barcode,
			Observation: *best,
		})
		combination.Total += best.Price
	}

	combination.Total = round2(combination.Total)
	return combination
}

// savingsPercent is how much cheaper the optimal combination is than the
// best complete basket, 0 when no complete basket exists.
func savingsPercent(best *domain.MarketBasketResult, optimal domain.OptimalCombination) float64 {
	if best == nil || best.Total <= 0 || optimal.Total <= 0 {
		return 0
	}
	return round1((best.Total - optimal.Total) / best.Total * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

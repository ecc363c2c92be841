package usecase

import (
	"context"
	"log"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/precosal/backend/internal/domain"
)

// SearchService answers free-text product searches against the selected
// markets, caching results so repeated searches inside the TTL window do
// not hit the public API again.
type SearchService struct {
	cache    domain.CacheRepository
	searcher domain.PriceSearcher
	barcodes domain.BarcodeSearcher
	logs     domain.SearchLogRepository
	cacheTTL time.Duration
}

// SearchServiceConfig holds optional configuration for SearchService
type SearchServiceConfig struct {
	CacheTTL time.Duration
}

func NewSearchService(cache domain.CacheRepository, searcher domain.PriceSearcher, barcodes domain.BarcodeSearcher, logs domain.SearchLogRepository, cfg SearchServiceConfig) *SearchService {
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = 10 * time.Minute
	}
	return &SearchService{
		cache:    cache,
		searcher: searcher,
		barcodes: barcodes,
		logs:     logs,
		cacheTTL: ttl,
	}
}

// Search looks up a product description at the given markets, serving from
// cache when possible. The search is recorded in the audit log regardless
// of where the results came from; logging failures never fail the search.
func (s *SearchService) Search(ctx context.Context, user *domain.SearchUser, term string, markets []domain.Market) ([]domain.PriceObservation, error) {
	term = strings.TrimSpace(term)
	if utf8.RuneCountInString(term) < 3 {
		return nil, domain.ErrInvalidRequest
	}
	if len(markets) == 0 {
		return nil, domain.ErrNoMarketsSelected
	}

	key := s.cacheKey(term, markets)

	if cached, err := s.cache.Get(ctx, key); err == nil {
		log.Printf("[SEARCH] cache hit for %q (%d markets)", term, len(markets))
		s.recordSearch(user, domain.SearchTypeRealtime, term, markets, len(cached))
		return cached, nil
	}

	results, err := s.searcher.SearchProduct(ctx, term, markets)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, results, s.cacheTTL); err != nil {
		log.Printf("[SEARCH] cache write failed for %q: %v", term, err)
	}

	s.recordSearch(user, domain.SearchTypeRealtime, term, markets, len(results))
	return results, nil
}

// SearchBarcode mirrors Search for exact barcode lookups. Clients send a
// bare identifying code when they want listings for one specific product.
func (s *SearchService) SearchBarcode(ctx context.Context, user *domain.SearchUser, code string, markets []domain.Market) ([]domain.PriceObservation, error) {
	code = domain.NormalizeBarcode(code)
	if code == "" {
		return nil, domain.ErrInvalidRequest
	}
	if len(markets) == 0 {
		return nil, domain.ErrNoMarketsSelected
	}

	key := s.cacheKey("gtin "+code, markets)

	if cached, err := s.cache.Get(ctx, key); err == nil {
		s.recordSearch(user, domain.SearchTypeRealtime, code, markets, len(cached))
		return cached, nil
	}

	results, err := s.barcodes.SearchByBarcode(ctx, code, markets)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, results, s.cacheTTL); err != nil {
		log.Printf("[SEARCH] cache write failed for %q: %v", code, err)
	}

	s.recordSearch(user, domain.SearchTypeRealtime, code, markets, len(results))
	return results, nil
}

// Fetcher adapts the service to the comparator's per-barcode fetch
// dependency, so comparison runs share the realtime-search cache and audit
// log instead of hitting the public API directly.
func (s *SearchService) Fetcher() domain.BarcodeSearcher {
	return fetcherAdapter{svc: s}
}

type fetcherAdapter struct {
	svc *SearchService
}

func (f fetcherAdapter) SearchByBarcode(ctx context.Context, barcode string, markets []domain.Market) ([]domain.PriceObservation, error) {
	return f.svc.SearchBarcode(ctx, nil, barcode, markets)
}

// cacheKey is stable under term casing and market ordering.
func (s *SearchService) cacheKey(term string, markets []domain.Market) string {
	cnpjs := make([]string, len(markets))
	for i, m := range markets {
		cnpjs[i] = m.CNPJ
	}
	sort.Strings(cnpjs)
	return "search:" + strings.ToLower(term) + ":" + strings.Join(cnpjs, ",")
}

// recordSearch writes the audit entry in the background so a slow database
// never delays the response.
func (s *SearchService) recordSearch(user *domain.SearchUser, action, term string, markets []domain.Market, resultCount int) {
	if s.logs == nil {
		return
	}

	names := make([]string, len(markets))
	for i, m := range markets {
		names[i] = m.Name
	}

	entry := &domain.SearchLog{
		ActionType:  action,
		Term:        term,
		Markets:     names,
		ResultCount: resultCount,
		CreatedAt:   time.Now(),
	}
	if user != nil {
		entry.UserID = user.ID
		entry.UserEmail = user.Email
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.logs.Insert(ctx, entry); err != nil {
			log.Printf("[SEARCH] audit log write failed: %v", err)
		}
	}()
}

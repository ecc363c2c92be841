package usecase

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/precosal/backend/internal/domain"
)

// CollectorServiceConfig holds configuration for CollectorService
type CollectorServiceConfig struct {
	SearchTerms   []string
	SearchDays    int
	MarketTimeout time.Duration
}

// CollectorService runs the periodic price collection: for every market,
// every configured search term is fetched page by page and the resulting
// rows are upserted. At most one collection runs at a time; the frontend
// polls Status while it does.
type CollectorService struct {
	collector domain.ProductCollector
	records   domain.PriceRecordRepository
	runs      domain.CollectionRunRepository

	searchTerms   []string
	searchDays    int
	marketTimeout time.Duration

	mu      sync.Mutex
	running bool
	status  domain.CollectionStatus
}

func NewCollectorService(collector domain.ProductCollector, records domain.PriceRecordRepository, runs domain.CollectionRunRepository, cfg CollectorServiceConfig) *CollectorService {
	days := cfg.SearchDays
	if days < 1 || days > 7 {
		days = 3
	}
	timeout := cfg.MarketTimeout
	if timeout == 0 {
		timeout = 20 * time.Minute
	}
	return &CollectorService{
		collector:     collector,
		records:       records,
		runs:          runs,
		searchTerms:   cfg.SearchTerms,
		searchDays:    days,
		marketTimeout: timeout,
		status:        domain.CollectionStatus{Status: domain.CollectionIdle},
	}
}

// Start launches a collection over the given markets. It returns
// ErrCollectionRunning when one is already in flight; callers see the 409.
// The run itself proceeds in the background, detached from the request
// context.
func (s *CollectorService) Start(ctx context.Context, markets []domain.Market, searchDays int) (*domain.CollectionRun, error) {
	if len(markets) == 0 {
		return nil, domain.ErrNoMarketsSelected
	}
	if len(s.searchTerms) == 0 {
		return nil, domain.ErrInvalidRequest
	}
	if searchDays < 1 || searchDays > 7 {
		searchDays = s.searchDays
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, domain.ErrCollectionRunning
	}
	now := time.Now()
	run := &domain.CollectionRun{
		ID:        uuid.NewString(),
		StartedAt: now,
		Status:    domain.CollectionRunning,
	}
	s.running = true
	s.status = domain.CollectionStatus{
		Status:        domain.CollectionRunning,
		RunID:         run.ID,
		StartTime:     &now,
		TotalMarkets:  len(markets),
		TotalProducts: len(s.searchTerms),
		Progress:      fmt.Sprintf("0/%d mercados", len(markets)),
	}
	s.mu.Unlock()

	if err := s.runs.Create(ctx, run); err != nil {
		s.mu.Lock()
		s.running = false
		s.status = domain.CollectionStatus{Status: domain.CollectionIdle}
		s.mu.Unlock()
		return nil, err
	}

	go s.run(run, markets, searchDays)

	return run, nil
}

// Status returns a snapshot of the tracker.
func (s *CollectorService) Status() domain.CollectionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *CollectorService) run(run *domain.CollectionRun, markets []domain.Market, searchDays int) {
	start := time.Now()
	seen := make(map[string]bool)
	totalItems := 0
	var breakdown []domain.MarketReport

	failedMarkets := 0
	for i, market := range markets {
		s.setCurrentMarket(market.Name, i, len(markets), start)

		found, failed := s.collectMarket(run.ID, market, searchDays, seen)
		totalItems += found
		if failed {
			failedMarkets++
		}

		breakdown = append(breakdown, domain.MarketReport{
			MarketName: market.Name,
			ItemsFound: found,
			Duration:   time.Since(start).Seconds(),
			SearchDays: searchDays,
		})

		s.markMarketDone(i+1, len(markets), totalItems, start)
	}

	duration := time.Since(start)
	report := &domain.CollectionReport{
		TotalItems:      totalItems,
		TotalDuration:   duration.Seconds(),
		MarketBreakdown: breakdown,
	}

	// A run only counts as FAILED when every market failed; partial
	// failures still complete with whatever was stored.
	finalStatus := domain.CollectionCompleted
	if failedMarkets == len(markets) {
		finalStatus = domain.CollectionFailed
	}

	finished := time.Now()
	run.FinishedAt = &finished
	run.Status = finalStatus
	run.ItemsFound = totalItems

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.runs.Finish(ctx, run); err != nil {
		log.Printf("[COLLECTOR] failed to persist run %s: %v", run.ID, err)
	}

	s.mu.Lock()
	s.running = false
	s.status.Status = finalStatus
	s.status.ProgressPercent = 100
	s.status.ETASeconds = 0
	s.status.CurrentMarket = ""
	s.status.CurrentProduct = ""
	s.status.Report = report
	s.mu.Unlock()

	log.Printf("[COLLECTOR] run %s finished: %d items across %d markets in %s",
		run.ID, totalItems, len(markets), duration.Round(time.Second))
}

// collectMarket fetches every search term at one market under the market
// timeout and upserts the deduplicated rows. Failed terms are logged and
// skipped; a market never aborts the run. The failed flag reports markets
// where nothing could be stored at all, either because every term errored
// or because the upsert itself failed.
func (s *CollectorService) collectMarket(runID string, market domain.Market, searchDays int, seen map[string]bool) (int, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), s.marketTimeout)
	defer cancel()

	collectedAt := time.Now()
	var batch []domain.PriceRecord
	termErrors := 0

	for i, term := range s.searchTerms {
		s.setCurrentProduct(term, i)

		records, err := s.collector.Collect(ctx, term, market, searchDays)
		if err != nil {
			log.Printf("[COLLECTOR] term %q at %s failed: %v", term, market.Name, err)
			termErrors++
			continue
		}

		for _, rec := range records {
			if seen[rec.ID] {
				continue
			}
			seen[rec.ID] = true
			rec.CollectionID = runID
			rec.CollectedAt = collectedAt
			batch = append(batch, rec)
		}
	}

	if len(batch) == 0 {
		return 0, termErrors == len(s.searchTerms)
	}

	stored, err := s.records.UpsertBatch(ctx, batch)
	if err != nil {
		log.Printf("[COLLECTOR] upsert for %s failed: %v", market.Name, err)
		return 0, true
	}
	return stored, false
}

func (s *CollectorService) setCurrentMarket(name string, processed, total int, start time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.CurrentMarket = name
	s.status.MarketsProcessed = processed
	s.status.ProductsProcessedInMarket = 0
	s.status.Progress = fmt.Sprintf("%d/%d mercados", processed, total)
	s.updateProgressLocked(processed, total, start)
}

func (s *CollectorService) setCurrentProduct(term string, processed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.CurrentProduct = term
	s.status.ProductsProcessedInMarket = processed
}

func (s *CollectorService) markMarketDone(processed, total, totalItems int, start time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.MarketsProcessed = processed
	s.status.TotalItemsFound = totalItems
	s.status.Progress = fmt.Sprintf("%d/%d mercados", processed, total)
	s.updateProgressLocked(processed, total, start)
}

// updateProgressLocked recomputes percent and ETA from markets processed so
// far. Callers hold s.mu.
func (s *CollectorService) updateProgressLocked(processed, total int, start time.Time) {
	if total == 0 {
		return
	}
	s.status.ProgressPercent = round1(float64(processed) / float64(total) * 100)

	if processed == 0 {
		s.status.ETASeconds = 0
		return
	}
	elapsed := time.Since(start)
	perMarket := elapsed / time.Duration(processed)
	s.status.ETASeconds = int((perMarket * time.Duration(total-processed)).Seconds())
}

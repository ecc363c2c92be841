package domain

import (
	"context"
	"time"
)

// CacheRepository caches price observations keyed by query signature.
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]PriceObservation, error)
	Set(ctx context.Context, key string, observations []PriceObservation, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// PriceSearcher queries the external price API for recent observations of a
// product (by description or barcode) at the given markets. The upstream
// API has no notion of market names, so full Market values are passed in.
type PriceSearcher interface {
	SearchProduct(ctx context.Context, term string, markets []Market) ([]PriceObservation, error)
}

// BarcodeSearcher is the fetch dependency of the basket comparator. The
// comparison service only ever looks up one barcode at a time, so tests can
// supply canned responses per code.
type BarcodeSearcher interface {
	SearchByBarcode(ctx context.Context, barcode string, markets []Market) ([]PriceObservation, error)
}

// ProductCollector fetches every price row for a search term at one
// market, already mapped to persistable records. The caller stamps
// CollectionID and CollectedAt; record IDs are content hashes independent
// of both.
type ProductCollector interface {
	Collect(ctx context.Context, term string, market Market, days int) ([]PriceRecord, error)
}

// BasketRepository persists user baskets.
type BasketRepository interface {
	GetByUser(ctx context.Context, userID string) ([]*Basket, error)
	GetByID(ctx context.Context, id int64) (*Basket, error)
	Create(ctx context.Context, basket *Basket) error
	Update(ctx context.Context, basket *Basket) error
	Delete(ctx context.Context, id int64) error
}

// MarketRepository persists the registered markets.
type MarketRepository interface {
	List(ctx context.Context) ([]Market, error)
	GetByID(ctx context.Context, id int64) (*Market, error)
	GetByCNPJ(ctx context.Context, cnpj string) (*Market, error)
	Create(ctx context.Context, market *Market) error
	Update(ctx context.Context, market *Market) error
	Delete(ctx context.Context, id int64) error
}

// PriceRecordRepository persists collected price rows.
type PriceRecordRepository interface {
	UpsertBatch(ctx context.Context, records []PriceRecord) (int, error)
	ListInPeriod(ctx context.Context, start, end time.Time, cnpjs []string) ([]PriceRecord, error)
}

// CollectionRunRepository persists collection run metadata.
type CollectionRunRepository interface {
	Create(ctx context.Context, run *CollectionRun) error
	Finish(ctx context.Context, run *CollectionRun) error
	ListInPeriod(ctx context.Context, start, end time.Time) ([]CollectionRun, error)
}

// SearchLogRepository records searches for usage reporting.
type SearchLogRepository interface {
	Insert(ctx context.Context, log *SearchLog) error
}

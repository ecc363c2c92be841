package domain

import "time"

// Collection run states.
const (
	CollectionIdle      = "IDLE"
	CollectionRunning   = "RUNNING"
	CollectionCompleted = "COMPLETED"
	CollectionFailed    = "FAILED"
)

// MarketReport summarizes one market's share of a collection run.
type MarketReport struct {
	MarketName string  `json:"marketName"`
	ItemsFound int     `json:"itemsFound"`
	Duration   float64 `json:"duration"` // seconds
	SearchDays int     `json:"diasPesquisa"`
}

// CollectionReport is the final summary of a finished run.
type CollectionReport struct {
	TotalItems      int            `json:"totalItems"`
	TotalDuration   float64        `json:"totalDuration"` // seconds
	MarketBreakdown []MarketReport `json:"marketBreakdown"`
}

// CollectionRun is a persisted collection execution.
type CollectionRun struct {
	ID         string     `json:"id"`
	StartedAt  time.Time  `json:"iniciada_em"`
	FinishedAt *time.Time `json:"finalizada_em,omitempty"`
	Status     string     `json:"status"`
	ItemsFound int        `json:"itens_coletados"`
}

// CollectionStatus is the tracker snapshot polled by the frontend while a
// collection runs.
type CollectionStatus struct {
	Status                    string            `json:"status"`
	RunID                     string            `json:"runId,omitempty"`
	StartTime                 *time.Time        `json:"startTime,omitempty"`
	ProgressPercent           float64           `json:"progressPercent"`
	ETASeconds                int               `json:"etaSeconds"`
	CurrentMarket             string            `json:"currentMarket"`
	TotalMarkets              int               `json:"totalMarkets"`
	MarketsProcessed          int               `json:"marketsProcessed"`
	CurrentProduct            string            `json:"currentProduct"`
	TotalProducts             int               `json:"totalProducts"`
	ProductsProcessedInMarket int               `json:"productsProcessedInMarket"`
	TotalItemsFound           int               `json:"totalItemsFound"`
	Progress                  string            `json:"progresso"`
	Report                    *CollectionReport `json:"report,omitempty"`
}

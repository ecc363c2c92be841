package domain

import "time"

// Search log action types.
const (
	SearchTypeDatabase = "search"
	SearchTypeRealtime = "realtime_search"
)

// SearchUser identifies the authenticated user behind a search, when any.
type SearchUser struct {
	ID    string
	Email string
}

// SearchLog records a search a user performed, for usage reporting.
type SearchLog struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id,omitempty"`
	UserEmail   string    `json:"user_email,omitempty"`
	ActionType  string    `json:"action_type"`
	Term        string    `json:"search_term"`
	Markets     []string  `json:"selected_markets"`
	ResultCount int       `json:"result_count"`
	CreatedAt   time.Time `json:"created_at"`
}

package postgres

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/precosal/backend/internal/domain"
)

// SearchLogRepository records searches for usage reporting.
type SearchLogRepository struct {
	db *pgxpool.Pool
}

func NewSearchLogRepository(db *pgxpool.Pool) *SearchLogRepository {
	return &SearchLogRepository{db: db}
}

func (r *SearchLogRepository) Insert(ctx context.Context, entry *domain.SearchLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	markets := entry.Markets
	if markets == nil {
		markets = []string{}
	}
	marketsJSON, err := json.Marshal(markets)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO log_de_usuarios (
			id, user_id, user_email, action_type,
			search_term, selected_markets, result_count
		)
		VALUES ($1, NULLIF($2, '')::uuid, NULLIF($3, ''), $4, $5, $6, $7)
	`,
		entry.ID, entry.UserID, entry.UserEmail, entry.ActionType,
		entry.Term, marketsJSON, entry.ResultCount,
	)
	return err
}

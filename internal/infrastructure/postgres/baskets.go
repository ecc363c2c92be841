package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/precosal/backend/internal/domain"
)

// BasketRepository stores user baskets. Items live in a JSONB column, the
// basket is always read and written as a whole.
type BasketRepository struct {
	db *pgxpool.Pool
}

func NewBasketRepository(db *pgxpool.Pool) *BasketRepository {
	return &BasketRepository{db: db}
}

func (r *BasketRepository) GetByUser(ctx context.Context, userID string) ([]*domain.Basket, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, nome, produtos, created_at, updated_at
		FROM cestas
		WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var baskets []*domain.Basket
	for rows.Next() {
		basket, err := scanBasket(rows)
		if err != nil {
			return nil, err
		}
		baskets = append(baskets, basket)
	}
	return baskets, rows.Err()
}

func (r *BasketRepository) GetByID(ctx context.Context, id int64) (*domain.Basket, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, user_id, nome, produtos, created_at, updated_at
		FROM cestas
		WHERE id = $1
	`, id)

	basket, err := scanBasket(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrBasketNotFound
	}
	if err != nil {
		return nil, err
	}
	return basket, nil
}

func (r *BasketRepository) Create(ctx context.Context, basket *domain.Basket) error {
	items, err := json.Marshal(itemsOrEmpty(basket.Items))
	if err != nil {
		return err
	}

	return r.db.QueryRow(ctx, `
		INSERT INTO cestas (user_id, nome, produtos)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, basket.UserID, basket.Name, items).Scan(&basket.ID, &basket.CreatedAt, &basket.UpdatedAt)
}

func (r *BasketRepository) Update(ctx context.Context, basket *domain.Basket) error {
	items, err := json.Marshal(itemsOrEmpty(basket.Items))
	if err != nil {
		return err
	}

	basket.UpdatedAt = time.Now()
	tag, err := r.db.Exec(ctx, `
		UPDATE cestas
		SET nome = $2, produtos = $3, updated_at = $4
		WHERE id = $1
	`, basket.ID, basket.Name, items, basket.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBasketNotFound
	}
	return nil
}

func (r *BasketRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM cestas WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBasketNotFound
	}
	return nil
}

func scanBasket(row pgx.Row) (*domain.Basket, error) {
	var basket domain.Basket
	var items []byte
	if err := row.Scan(&basket.ID, &basket.UserID, &basket.Name, &items,
		&basket.CreatedAt, &basket.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &basket.Items); err != nil {
		return nil, err
	}
	return &basket, nil
}

// itemsOrEmpty keeps the JSONB column a [] instead of null for empty baskets.
func itemsOrEmpty(items []domain.BasketItem) []domain.BasketItem {
	if items == nil {
		return []domain.BasketItem{}
	}
	return items
}

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/precosal/backend/internal/domain"
)

// MarketRepository stores registered markets.
type MarketRepository struct {
	db *pgxpool.Pool
}

func NewMarketRepository(db *pgxpool.Pool) *MarketRepository {
	return &MarketRepository{db: db}
}

func (r *MarketRepository) List(ctx context.Context) ([]domain.Market, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, nome, cnpj, COALESCE(endereco, '')
		FROM supermercados
		ORDER BY nome
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var markets []domain.Market
	for rows.Next() {
		var m domain.Market
		if err := rows.Scan(&m.ID, &m.Name, &m.CNPJ, &m.Address); err != nil {
			return nil, err
		}
		markets = append(markets, m)
	}
	return markets, rows.Err()
}

func (r *MarketRepository) GetByID(ctx context.Context, id int64) (*domain.Market, error) {
	var m domain.Market
	err := r.db.QueryRow(ctx, `
		SELECT id, nome, cnpj, COALESCE(endereco, '')
		FROM supermercados
		WHERE id = $1
	`, id).Scan(&m.ID, &m.Name, &m.CNPJ, &m.Address)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrMarketNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MarketRepository) GetByCNPJ(ctx context.Context, cnpj string) (*domain.Market, error) {
	var m domain.Market
	err := r.db.QueryRow(ctx, `
		SELECT id, nome, cnpj, COALESCE(endereco, '')
		FROM supermercados
		WHERE cnpj = $1
	`, cnpj).Scan(&m.ID, &m.Name, &m.CNPJ, &m.Address)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrMarketNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MarketRepository) Create(ctx context.Context, market *domain.Market) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO supermercados (nome, cnpj, endereco)
		VALUES ($1, $2, NULLIF($3, ''))
		RETURNING id
	`, market.Name, market.CNPJ, market.Address).Scan(&market.ID)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return domain.ErrDuplicateMarket
	}
	return err
}

func (r *MarketRepository) Update(ctx context.Context, market *domain.Market) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE supermercados
		SET nome = $2, cnpj = $3, endereco = NULLIF($4, '')
		WHERE id = $1
	`, market.ID, market.Name, market.CNPJ, market.Address)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDuplicateMarket
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMarketNotFound
	}
	return nil
}

func (r *MarketRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM supermercados WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMarketNotFound
	}
	return nil
}

package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/precosal/backend/internal/domain"
)

// CollectionRunRepository stores collection run metadata.
type CollectionRunRepository struct {
	db *pgxpool.Pool
}

func NewCollectionRunRepository(db *pgxpool.Pool) *CollectionRunRepository {
	return &CollectionRunRepository{db: db}
}

func (r *CollectionRunRepository) Create(ctx context.Context, run *domain.CollectionRun) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO coletas (id, iniciada_em, status, itens_coletados)
		VALUES ($1, $2, $3, 0)
	`, run.ID, run.StartedAt, run.Status)
	return err
}

func (r *CollectionRunRepository) Finish(ctx context.Context, run *domain.CollectionRun) error {
	_, err := r.db.Exec(ctx, `
		UPDATE coletas
		SET finalizada_em = $2, status = $3, itens_coletados = $4
		WHERE id = $1
	`, run.ID, run.FinishedAt, run.Status, run.ItemsFound)
	return err
}

func (r *CollectionRunRepository) ListInPeriod(ctx context.Context, start, end time.Time) ([]domain.CollectionRun, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, iniciada_em, finalizada_em, status, itens_coletados
		FROM coletas
		WHERE iniciada_em >= $1 AND iniciada_em <= $2
		ORDER BY iniciada_em DESC
	`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []domain.CollectionRun
	for rows.Next() {
		var run domain.CollectionRun
		if err := rows.Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.Status, &run.ItemsFound); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/precosal/backend/internal/domain"
)

// PriceRecordRepository stores collected price rows.
type PriceRecordRepository struct {
	db *pgxpool.Pool
}

func NewPriceRecordRepository(db *pgxpool.Pool) *PriceRecordRepository {
	return &PriceRecordRepository{db: db}
}

// UpsertBatch inserts records, replacing rows that share an id_registro.
// Returns the number of rows written.
func (r *PriceRecordRepository) UpsertBatch(ctx context.Context, records []domain.PriceRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(`
			INSERT INTO produtos (
				id_registro, coleta_id, cnpj_supermercado, nome_supermercado,
				codigo_barras, nome_produto, nome_produto_normalizado,
				preco_produto, unidade_medida, tipo_unidade,
				data_ultima_venda, data_coleta
			)
			VALUES ($1,$2,$3,$4,NULLIF($5,''),$6,$7,$8,NULLIF($9,''),$10,NULLIF($11,''),$12)
			ON CONFLICT (id_registro) DO UPDATE SET
				coleta_id = EXCLUDED.coleta_id,
				preco_produto = EXCLUDED.preco_produto,
				data_ultima_venda = EXCLUDED.data_ultima_venda,
				data_coleta = EXCLUDED.data_coleta
		`,
			rec.ID, rec.CollectionID, rec.MarketCNPJ, rec.MarketName,
			rec.Barcode, rec.ProductName, rec.NormalizedName,
			rec.Price, rec.Unit, rec.UnitType,
			rec.LastSaleAt, rec.CollectedAt,
		)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	written := 0
	for range records {
		if _, err := results.Exec(); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

// ListInPeriod returns the records collected inside [start, end], optionally
// restricted to a set of markets.
func (r *PriceRecordRepository) ListInPeriod(ctx context.Context, start, end time.Time, cnpjs []string) ([]domain.PriceRecord, error) {
	query := `
		SELECT id_registro, coleta_id, cnpj_supermercado, nome_supermercado,
			COALESCE(codigo_barras, ''), nome_produto, nome_produto_normalizado,
			preco_produto, COALESCE(unidade_medida, ''), tipo_unidade,
			COALESCE(data_ultima_venda, ''), data_coleta
		FROM produtos
		WHERE data_coleta >= $1 AND data_coleta <= $2
	`
	args := []any{start, end}
	if len(cnpjs) > 0 {
		query += ` AND cnpj_supermercado = ANY($3)`
		args = append(args, cnpjs)
	}
	query += ` ORDER BY data_coleta`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.PriceRecord
	for rows.Next() {
		var rec domain.PriceRecord
		if err := rows.Scan(
			&rec.ID, &rec.CollectionID, &rec.MarketCNPJ, &rec.MarketName,
			&rec.Barcode, &rec.ProductName, &rec.NormalizedName,
			&rec.Price, &rec.Unit, &rec.UnitType,
			&rec.LastSaleAt, &rec.CollectedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

package postgres

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pgx pool and makes sure the schema exists.
func Connect(ctx context.Context, url string, maxConns, minConns int32) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	config.MaxConns = maxConns
	config.MinConns = minConns
	config.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres connection failed: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	log.Printf("Connected to Postgres (max_conns=%d)", maxConns)
	return pool, nil
}

// initSchema creates the tables this service owns.
func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS supermercados (
			id BIGSERIAL PRIMARY KEY,
			nome VARCHAR(150) NOT NULL,
			cnpj VARCHAR(14) UNIQUE NOT NULL,
			endereco TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS cestas (
			id BIGSERIAL PRIMARY KEY,
			user_id UUID NOT NULL,
			nome VARCHAR(100) NOT NULL,
			produtos JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS produtos (
			id_registro VARCHAR(16) PRIMARY KEY,
			coleta_id UUID NOT NULL,
			cnpj_supermercado VARCHAR(14) NOT NULL,
			nome_supermercado VARCHAR(150) NOT NULL,
			codigo_barras VARCHAR(50),
			nome_produto TEXT NOT NULL,
			nome_produto_normalizado TEXT NOT NULL,
			preco_produto NUMERIC(12,2) NOT NULL,
			unidade_medida VARCHAR(20),
			tipo_unidade VARCHAR(2) NOT NULL DEFAULT 'UN',
			data_ultima_venda TEXT,
			data_coleta TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_produtos_data_coleta ON produtos (data_coleta)`,
		`CREATE INDEX IF NOT EXISTS idx_produtos_codigo_barras ON produtos (codigo_barras)`,
		`CREATE TABLE IF NOT EXISTS coletas (
			id UUID PRIMARY KEY,
			iniciada_em TIMESTAMPTZ NOT NULL,
			finalizada_em TIMESTAMPTZ,
			status VARCHAR(20) NOT NULL,
			itens_coletados INT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS log_de_usuarios (
			id UUID PRIMARY KEY,
			user_id UUID,
			user_email VARCHAR(255),
			action_type VARCHAR(50) NOT NULL,
			search_term TEXT,
			selected_markets JSONB NOT NULL DEFAULT '[]',
			result_count INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}

	return nil
}

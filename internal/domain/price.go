package domain

import "time"

// PriceObservation is a single price seen for a product at a market.
// Observations are produced per comparison or search run and never persisted.
type PriceObservation struct {
	MarketCNPJ  string  `json:"cnpj_supermercado"`
	MarketName  string  `json:"nome_supermercado"`
	Barcode     string  `json:"codigo_barras"`
	ProductName string  `json:"nome_produto"`
	Price       float64 `json:"preco_produto"`
	Unit        string  `json:"unidade,omitempty"`
	UnitType    string  `json:"tipo_unidade,omitempty"` // "KG" or "UN"
	LastSaleAt  string  `json:"data_ultima_venda,omitempty"`

	// ItemName back-references the basket item this observation satisfies,
	// for missing-item reporting. Empty outside comparison runs.
	ItemName string `json:"item_cesta,omitempty"`
}

// PriceRecord is a collected price row persisted by the collector.
// ID is a content hash so re-collections upsert instead of duplicating.
type PriceRecord struct {
	ID             string    `json:"id_registro"`
	CollectionID   string    `json:"coleta_id"`
	MarketCNPJ     string    `json:"cnpj_supermercado"`
	MarketName     string    `json:"nome_supermercado"`
	Barcode        string    `json:"codigo_barras,omitempty"`
	ProductName    string    `json:"nome_produto"`
	NormalizedName string    `json:"nome_produto_normalizado"`
	Price          float64   `json:"preco_produto"`
	Unit           string    `json:"unidade_medida,omitempty"`
	UnitType       string    `json:"tipo_unidade"`
	LastSaleAt     string    `json:"data_ultima_venda,omitempty"`
	CollectedAt    time.Time `json:"data_coleta"`
}

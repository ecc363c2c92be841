package domain

import "time"

// DashboardSummary is the headline card of the reporting page.
type DashboardSummary struct {
	MarketCount      int        `json:"total_mercados"`
	ProductCount     int        `json:"total_produtos"`
	CollectionCount  int        `json:"total_coletas"`
	LastCollectionAt *time.Time `json:"ultima_coleta,omitempty"`
	VariationPercent float64    `json:"variacao_produtos"`
}

// TopProduct aggregates one product's presence over a reporting period.
type TopProduct struct {
	ProductName    string  `json:"nome_produto"`
	Frequency      int     `json:"frequencia"`
	AveragePrice   float64 `json:"preco_medio"`
	CheapestMarket string  `json:"mercado_mais_barato"`
	CheapestPrice  float64 `json:"preco_mais_barato"`
}

// PriceTrend is one day of the price-over-time chart.
type PriceTrend struct {
	Date         string  `json:"data"` // YYYY-MM-DD
	AveragePrice float64 `json:"preco_medio"`
	ProductCount int     `json:"total_produtos"`
}

// CategoryStats aggregates one keyword-derived product category.
type CategoryStats struct {
	Category         string  `json:"categoria"`
	ProductCount     int     `json:"total_produtos"`
	AveragePrice     float64 `json:"preco_medio"`
	VariationPercent float64 `json:"variacao_mensal"`
}

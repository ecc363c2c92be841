package domain

// MarketBasketResult is one market's priced view of a basket. Items are
// deduplicated by barcode (first observation wins) and the result is
// rebuilt from scratch on every comparison run.
type MarketBasketResult struct {
	CNPJ         string             `json:"cnpj_supermercado"`
	MarketName   string             `json:"nome_supermercado"`
	Total        float64            `json:"total"`
	FoundCount   int                `json:"produtos_encontrados"`
	Items        []PriceObservation `json:"produtos"`
	MissingItems []string           `json:"produtos_faltantes,omitempty"`
}

// Complete reports whether this market priced every coded basket item.
func (r *MarketBasketResult) Complete(codedItemCount int) bool {
	return r.FoundCount == codedItemCount
}

// OptimalItem is the cheapest observation found for one basket item,
// regardless of which market offers it.
type OptimalItem struct {
	ItemName    string           `json:"nome_produto"`
	Barcode     string           `json:"codigo_barras"`
	Observation PriceObservation `json:"oferta"`
}

// OptimalCombination is the hypothetical cheapest basket formed by buying
// each item wherever it is cheapest, mixing markets freely.
type OptimalCombination struct {
	Items    []OptimalItem `json:"produtos"`
	NotFound []string      `json:"nao_encontrados,omitempty"`
	Total    float64       `json:"total"`
}

// ComparisonResult is the full outcome of one comparison run.
type ComparisonResult struct {
	// Rankings holds every market with at least one priced item,
	// ascending by total.
	Rankings []MarketBasketResult `json:"ranking"`

	// BestComplete is the cheapest market that priced the whole basket,
	// or nil when no market did.
	BestComplete *MarketBasketResult `json:"melhor_cesta_completa,omitempty"`

	Optimal OptimalCombination `json:"melhor_combinacao"`

	// CodedItemCount is the number of basket items that entered the run.
	CodedItemCount int `json:"total_produtos"`

	// SavingsPercent is how much cheaper the optimal combination is than
	// the best complete basket, 0 when no complete basket exists.
	SavingsPercent float64 `json:"economia_percentual"`
}

package domain

// NormalizeCNPJ strips formatting from a CNPJ, leaving the 14 digits.
func NormalizeCNPJ(cnpj string) string {
	return NormalizeBarcode(cnpj)
}

// Market is a retail location, identified by its CNPJ (tax id).
type Market struct {
	ID      int64  `json:"id"`
	Name    string `json:"nome"`
	CNPJ    string `json:"cnpj"`
	Address string `json:"endereco,omitempty"`
}

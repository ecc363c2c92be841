package economiza

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/precosal/backend/internal/domain"
)

// kgHints flag products sold by weight when the measurement unit is vague.
var kgHints = []string{"kg", "quilo", " a granel"}

// DetectUnitType classifies a product as sold by weight (KG) or by unit (UN).
func DetectUnitType(productName, unit string) string {
	nameLower := strings.ToLower(productName)
	unitLower := strings.ToLower(unit)

	if unitLower == "kg" {
		return "KG"
	}
	for _, hint := range kgHints {
		if strings.Contains(nameLower, hint) || strings.Contains(unitLower, hint) {
			return "KG"
		}
	}
	return "UN"
}

// NormalizeText strips accents and lowercases a product name so "Açúcar" and
// "acucar" match the same keyword lists.
func NormalizeText(s string) string {
	// Transformers carry state across Bytes calls, so build a fresh chain
	// per call instead of sharing one across goroutines.
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

// mapRowToObservation converts an API result row to a domain observation.
// Rows without a sale price map to a zero-price observation and are dropped
// by the caller via HasPrice-style checks; here we keep the mapping total.
func mapRowToObservation(row resultRow, market domain.Market) domain.PriceObservation {
	price := 0.0
	if row.Produto.Venda.ValorVenda != nil {
		price = *row.Produto.Venda.ValorVenda
	}

	return domain.PriceObservation{
		MarketCNPJ:  market.CNPJ,
		MarketName:  market.Name,
		Barcode:     domain.NormalizeBarcode(row.Produto.GTIN),
		ProductName: row.Produto.Descricao,
		Price:       price,
		Unit:        row.Produto.UnidadeMedida,
		UnitType:    DetectUnitType(row.Produto.Descricao, row.Produto.UnidadeMedida),
		LastSaleAt:  row.Produto.Venda.DataVenda,
	}
}

// RecordID derives a stable id for a collected row so re-collections upsert
// instead of duplicating. The hash covers the fields that identify one sale
// observation.
func RecordID(rec *domain.PriceRecord) string {
	h := sha1.New()
	fmt.Fprintf(h, "%s|%s|%s|%.2f|%s",
		rec.MarketCNPJ, rec.Barcode, rec.NormalizedName, rec.Price, rec.LastSaleAt)
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// ObservationToRecord converts a collected observation into a persistable
// price record.
func ObservationToRecord(obs domain.PriceObservation, collectionID string, collectedAt time.Time) domain.PriceRecord {
	rec := domain.PriceRecord{
		CollectionID:   collectionID,
		MarketCNPJ:     obs.MarketCNPJ,
		MarketName:     obs.MarketName,
		Barcode:        obs.Barcode,
		ProductName:    obs.ProductName,
		NormalizedName: NormalizeText(obs.ProductName),
		Price:          obs.Price,
		Unit:           obs.Unit,
		UnitType:       obs.UnitType,
		LastSaleAt:     obs.LastSaleAt,
		CollectedAt:    collectedAt,
	}
	rec.ID = RecordID(&rec)
	return rec
}

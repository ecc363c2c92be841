package domain

import (
	"strings"
	"time"
)

// MaxBasketItems is the maximum number of products a basket may hold.
const MaxBasketItems = 25

// BasketItem is a single product in a user's basket. Only items with a
// barcode participate in price comparison.
type BasketItem struct {
	Name    string `json:"nome_produto"`
	Barcode string `json:"codigo_barras,omitempty"`
}

// HasBarcode reports whether the item can be matched against price listings.
func (i BasketItem) HasBarcode() bool {
	return i.Barcode != ""
}

// NormalizeBarcode reduces a barcode to its digits so that numeric and
// string representations of the same code compare equal.
func NormalizeBarcode(code string) string {
	var b strings.Builder
	for _, r := range code {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Basket is a named, user-curated list of products to be priced across markets.
type Basket struct {
	ID        int64        `json:"id"`
	UserID    string       `json:"user_id"`
	Name      string       `json:"nome"`
	Items     []BasketItem `json:"produtos"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// CodedItems returns the items that carry a barcode, in basket order.
func (b *Basket) CodedItems() []BasketItem {
	coded := make([]BasketItem, 0, len(b.Items))
	for _, item := range b.Items {
		if item.HasBarcode() {
			coded = append(coded, item)
		}
	}
	return coded
}

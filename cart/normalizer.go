// Package cart implements the Bilingual Normalizer (C3): it coerces every
// inbound cart item to a canonical {original, translated} pair regardless
// of how the caller shaped the request, using CJK detection to catch and
// correct reversed fields.
package cart

import (
	"fmt"

	"github.com/ordering-helper/backend/logger"
)

// Item is the canonical per-item representation (§4.3). The zero value is
// never valid: Quantity and Price must both be positive.
type Item struct {
	Original   string
	Translated string
	Quantity   int
	Price      int
	MenuItemID string // integer id (as string) or a temp-id; empty if none
}

// RawItem is the caller-supplied shape before normalization. Any of the
// name fields may be set; Normalize figures out which one is Chinese.
type RawItem struct {
	Name           *NamePair
	OCRName        string
	OriginalName   string
	TranslatedName string
	ItemName       string
	BareName       string
	Quantity       int
	Qty            int
	Price          int
	PriceSmall     int
	PriceUnit      int
	MenuItemID     string
}

// NamePair is the already-canonical {original, translated} shape some
// callers submit directly.
type NamePair struct {
	Original   string
	Translated string
}

// cjkRanges are the Unicode ranges §4.3 defines as CJK-bearing.
var cjkRanges = [][2]rune{
	{0x3400, 0x4DBF},
	{0x4E00, 0x9FFF},
	{0x3040, 0x30FF},
	{0xAC00, 0xD7AF},
}

// ContainsCJK reports whether s contains any codepoint in the CJK ranges
// (§4.3 step 2). Idempotent: running it twice detects the same items.
func ContainsCJK(s string) bool {
	for _, r := range s {
		for _, rg := range cjkRanges {
			if r >= rg[0] && r <= rg[1] {
				return true
			}
		}
	}
	return false
}

// Normalize converts a list of RawItems to canonical Items. Items that fail
// price/quantity coercion are dropped. The input is never mutated and the
// component never touches the database.
func Normalize(raw []RawItem) []Item {
	out := make([]Item, 0, len(raw))
	for _, r := range raw {
		item, ok := normalizeOne(r)
		if ok {
			out = append(out, item)
		}
	}
	return out
}

func normalizeOne(r RawItem) (Item, bool) {
	presumedChinese, presumedTranslated := detectShape(r)

	original, translated := assignByCJK(presumedChinese, presumedTranslated)

	// Field-reversal guard (§4.3 step 3): swap once if the guard still
	// doesn't hold after CJK-aware assignment.
	if !ContainsCJK(original) && ContainsCJK(translated) {
		logger.Warn("cart item fields reversed, swapping", map[string]interface{}{
			"original":   original,
			"translated": translated,
		})
		original, translated = translated, original
	}

	quantity := coerceQuantity(r)
	price := coercePrice(r)
	if quantity <= 0 || price <= 0 {
		return Item{}, false
	}

	return Item{
		Original:   original,
		Translated: translated,
		Quantity:   quantity,
		Price:      price,
		MenuItemID: r.MenuItemID,
	}, true
}

// detectShape implements §4.3 step 1's field-lookup order.
func detectShape(r RawItem) (presumedChinese, presumedTranslated string) {
	if r.Name != nil {
		return r.Name.Original, r.Name.Translated
	}
	if r.OCRName != "" {
		return r.OCRName, r.TranslatedName
	}
	if r.OriginalName != "" {
		return r.OriginalName, r.TranslatedName
	}
	if r.ItemName != "" {
		return r.ItemName, r.TranslatedName
	}
	return r.BareName, r.TranslatedName
}

// assignByCJK implements §4.3 step 2 ("safe_build_localised_name").
func assignByCJK(presumedChinese, presumedTranslated string) (original, translated string) {
	if ContainsCJK(presumedChinese) {
		original = presumedChinese
		translated = presumedTranslated
		if translated == "" || ContainsCJK(translated) {
			translated = original
		}
		return original, translated
	}

	if ContainsCJK(presumedTranslated) {
		return presumedTranslated, presumedChinese
	}

	// Neither is CJK: keep as supplied, flagged implicitly for post-hoc
	// translation at render time (C11) since original has no CJK content.
	return presumedChinese, presumedTranslated
}

func coerceQuantity(r RawItem) int {
	if r.Quantity > 0 {
		return r.Quantity
	}
	if r.Qty > 0 {
		return r.Qty
	}
	return 0
}

func coercePrice(r RawItem) int {
	if r.Price > 0 {
		return r.Price
	}
	if r.PriceSmall > 0 {
		return r.PriceSmall
	}
	if r.PriceUnit > 0 {
		return r.PriceUnit
	}
	return 0
}

// String renders an Item for logging.
func (i Item) String() string {
	return fmt.Sprintf("%s/%s x%d @%d", i.Original, i.Translated, i.Quantity, i.Price)
}

// Package services holds the quote domain logic: the item list editor,
// pricing math, the AI extraction client and the exports.
package services

import (
	"strings"

	"github.com/pocketbase/pocketbase/tools/security"
)

// itemIDAlphabet matches the PocketBase record id charset, so editor ids can
// back database records directly.
const itemIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// validItemID reports whether id can back a quote_items record: exactly 15
// characters from itemIDAlphabet.
func validItemID(id string) bool {
	if len(id) != 15 {
		return false
	}
	for _, r := range id {
		if !strings.ContainsRune(itemIDAlphabet, r) {
			return false
		}
	}
	return true
}

// Item is one line of a quote as edited in the browser.
type Item struct {
	ID          string
	Name        string
	Spec        string
	Quantity    float64
	Unit        string
	MarketPrice float64
	Brand       string
	Remarks     string
	Supplier    string
	SourceURL   string
}

// LineTotal is the unrounded row amount.
func (it Item) LineTotal() float64 {
	return it.Quantity * it.MarketPrice
}

// ItemField names an editable Item field for UpdateItem.
type ItemField string

const (
	FieldName        ItemField = "name"
	FieldSpec        ItemField = "spec"
	FieldQuantity    ItemField = "quantity"
	FieldUnit        ItemField = "unit"
	FieldMarketPrice ItemField = "market_price"
	FieldBrand       ItemField = "brand"
	FieldRemarks     ItemField = "remarks"
	FieldSupplier    ItemField = "supplier"
	FieldSourceURL   ItemField = "source_url"
)

// Direction says which way MoveItem shifts an item.
type Direction string

const (
	MoveUp   Direction = "up"
	MoveDown Direction = "down"
)

// NewItem returns a blank row with a fresh id and the editing defaults:
// quantity 1 and the catch-all unit.
func NewItem() Item {
	return Item{
		ID:       security.RandomStringWithAlphabet(15, itemIDAlphabet),
		Name:     "新項目",
		Quantity: 1,
		Unit:     "式",
	}
}

// AddItem returns a new list with a blank item appended. The input list is
// never mutated; every editor operation hands back a fresh slice.
func AddItem(items []Item) []Item {
	out := make([]Item, 0, len(items)+1)
	out = append(out, items...)
	return append(out, NewItem())
}

// UpdateItem returns a new list with one field changed on the item with the
// given id. A stale id or a value of the wrong type leaves the list as-is,
// which covers updates racing a delete.
func UpdateItem(items []Item, id string, field ItemField, value any) []Item {
	out := make([]Item, len(items))
	copy(out, items)

	for i := range out {
		if out[i].ID != id {
			continue
		}
		switch field {
		case FieldQuantity, FieldMarketPrice:
			num, ok := value.(float64)
			if !ok {
				return out
			}
			if field == FieldQuantity {
				out[i].Quantity = num
			} else {
				out[i].MarketPrice = num
			}
		default:
			str, ok := value.(string)
			if !ok {
				return out
			}
			switch field {
			case FieldName:
				out[i].Name = str
			case FieldSpec:
				out[i].Spec = str
			case FieldUnit:
				out[i].Unit = str
			case FieldBrand:
				out[i].Brand = str
			case FieldRemarks:
				out[i].Remarks = str
			case FieldSupplier:
				out[i].Supplier = str
			case FieldSourceURL:
				out[i].SourceURL = str
			}
		}
		break
	}
	return out
}

// RemoveItem returns a new list without the item carrying the given id.
// Unknown ids are a no-op.
func RemoveItem(items []Item, id string) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if it.ID == id {
			continue
		}
		out = append(out, it)
	}
	return out
}

// MoveItem returns a new list with the item at index swapped one position in
// the given direction. Boundary and out-of-range moves return an unchanged
// copy.
func MoveItem(items []Item, index int, direction Direction) []Item {
	out := make([]Item, len(items))
	copy(out, items)

	if index < 0 || index >= len(out) {
		return out
	}

	switch direction {
	case MoveUp:
		if index == 0 {
			return out
		}
		out[index-1], out[index] = out[index], out[index-1]
	case MoveDown:
		if index == len(out)-1 {
			return out
		}
		out[index], out[index+1] = out[index+1], out[index]
	}
	return out
}

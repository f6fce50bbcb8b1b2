package ledger

import (
	"bytes"
	"encoding/json"

	"github.com/servicebook/servicebook/internal/shared"
)

// ItemKind tags the variant held by a LineItem.
type ItemKind int

const (
	// KindCatalog is a priced reference to a service item, snapshotted at selection time.
	KindCatalog ItemKind = iota
	// KindCustom is a free-form charge entered on the record.
	KindCustom
	// KindAdjustment is a signed correction (discounts, surcharges).
	KindAdjustment
	// KindLegacy is a bare item name from old records. It is priced at zero.
	KindLegacy
)

func (k ItemKind) String() string {
	switch k {
	case KindCatalog:
		return "catalog"
	case KindCustom:
		return "custom"
	case KindAdjustment:
		return "adjustment"
	case KindLegacy:
		return "legacy"
	default:
		return "unknown"
	}
}

// LineItem is one charge on a record.
type LineItem struct {
	Kind          ItemKind
	ID            string
	Name          string
	Price         float64
	Quantity      int
	OriginalPrice *float64
}

// Qty returns the effective quantity. Missing quantities count as one.
func (li LineItem) Qty() int {
	if li.Quantity < 1 {
		return 1
	}
	return li.Quantity
}

// Amount returns price × quantity for the item.
func (li LineItem) Amount() float64 {
	switch li.Kind {
	case KindLegacy:
		return 0
	case KindCatalog:
		return li.Price * float64(li.Qty())
	case KindCustom, KindAdjustment:
		return li.Price
	default:
		return 0
	}
}

// CalculateTotal sums the amount of every item.
func CalculateTotal(items []LineItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Amount()
	}
	return total
}

type catalogWire struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Price         float64  `json:"price"`
	Quantity      int      `json:"quantity,omitempty"`
	OriginalPrice *float64 `json:"originalPrice,omitempty"`
}

type customWire struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	IsCustom bool    `json:"isCustom"`
}

type adjustmentWire struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	IsAdjustment bool    `json:"isAdjustment"`
}

// MarshalJSON writes the wire shape of the variant.
func (li LineItem) MarshalJSON() ([]byte, error) {
	switch li.Kind {
	case KindLegacy:
		return json.Marshal(li.Name)
	case KindCustom:
		return json.Marshal(customWire{Name: li.Name, Price: li.Price, IsCustom: true})
	case KindAdjustment:
		return json.Marshal(adjustmentWire{ID: li.ID, Name: li.Name, Price: li.Price, IsAdjustment: true})
	default:
		return json.Marshal(catalogWire{
			ID:            li.ID,
			Name:          li.Name,
			Price:         li.Price,
			Quantity:      li.Quantity,
			OriginalPrice: li.OriginalPrice,
		})
	}
}

// UnmarshalJSON accepts every historical item shape. Unknown shapes decode as a zero custom item.
func (li *LineItem) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*li = LineItem{Kind: KindLegacy, Name: name}
		return nil
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &fields); err != nil {
		*li = LineItem{Kind: KindCustom}
		return nil
	}
	item := LineItem{
		ID:    shared.LooseString(fields["id"]),
		Name:  shared.LooseString(fields["name"]),
		Price: shared.LooseFloat(fields["price"]),
	}
	switch {
	case shared.LooseBool(fields["isCustom"]):
		item.Kind = KindCustom
		item.ID = ""
	case shared.LooseBool(fields["isAdjustment"]):
		item.Kind = KindAdjustment
	case item.ID != "":
		item.Kind = KindCatalog
		item.Quantity = int(shared.LooseFloat(fields["quantity"]))
		if raw, ok := fields["originalPrice"]; ok && !shared.IsNull(raw) {
			p := shared.LooseFloat(raw)
			item.OriginalPrice = &p
		}
	default:
		item.Kind = KindCustom
	}
	*li = item
	return nil
}

// LineItems decodes leniently: anything other than a list yields no items and null entries are skipped.
type LineItems []LineItem

// UnmarshalJSON implements json.Unmarshaler.
func (items *LineItems) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		*items = nil
		return nil
	}
	out := make(LineItems, 0, len(raws))
	for _, raw := range raws {
		if shared.IsNull(raw) {
			continue
		}
		var item LineItem
		if err := item.UnmarshalJSON(raw); err != nil {
			continue
		}
		out = append(out, item)
	}
	*items = out
	return nil
}

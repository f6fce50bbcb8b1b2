// Package items is the service item catalog: named, priced services selectable on records.
package items

import (
	"encoding/json"
	"strings"

	"github.com/servicebook/servicebook/internal/catalog"
	"github.com/servicebook/servicebook/internal/ledger"
	"github.com/servicebook/servicebook/internal/shared"
)

// Source identifies this editor in mutation results.
const Source = ledger.ItemsPath

// Item is one catalog entry. Price is the current price; records keep their own snapshot.
type Item struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	SortIndex int     `json:"sort_index"`
}

type itemDoc struct {
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	SortIndex int     `json:"sort_index"`
}

// Codec maps items to the wash_items collection. Very old documents store bare names, which read
// as zero-priced items.
var Codec = catalog.Codec[Item]{
	Root:   ledger.ItemsPath,
	Base:   ledger.BaseOne,
	Decode: decode,
	Encode: func(it Item) any {
		return itemDoc{Name: it.Name, Price: it.Price, SortIndex: it.SortIndex}
	},
	ID:        func(it Item) string { return it.ID },
	SortIndex: func(it Item) int { return it.SortIndex },
	WithSortIndex: func(it Item, idx int) Item {
		it.SortIndex = idx
		return it
	},
}

func decode(id string, raw json.RawMessage) (Item, bool) {
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return Item{ID: id, Name: strings.TrimSpace(name)}, true
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Item{}, false
	}
	return Item{
		ID:        id,
		Name:      shared.LooseString(fields["name"]),
		Price:     shared.LooseFloat(fields["price"]),
		SortIndex: int(shared.LooseFloat(fields["sort_index"])),
	}, true
}

// Package groups is the service group catalog: named, ordered sets of service items used to pick
// items quickly on records.
package groups

import (
	"encoding/json"
	"strings"

	"github.com/servicebook/servicebook/internal/catalog"
	"github.com/servicebook/servicebook/internal/ledger"
	"github.com/servicebook/servicebook/internal/shared"
)

// Source identifies this editor in mutation results.
const Source = ledger.GroupsPath

// Group lists item ids without duplicates. Ids may dangle after an item is deleted.
type Group struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Items     []string `json:"items"`
	SortIndex int      `json:"sort_index"`
}

// Has reports whether the group lists itemID.
func (g Group) Has(itemID string) bool {
	for _, id := range g.Items {
		if id == itemID {
			return true
		}
	}
	return false
}

type groupDoc struct {
	Name      string   `json:"name"`
	Items     []string `json:"items"`
	SortIndex int      `json:"sort_index"`
}

// Codec maps groups to the wash_groups collection. Groups count from zero and entries without a
// sort index come first.
var Codec = catalog.Codec[Group]{
	Root:         ledger.GroupsPath,
	Base:         ledger.BaseZero,
	MissingFirst: true,
	Decode:       decode,
	Encode: func(g Group) any {
		items := g.Items
		if items == nil {
			items = []string{}
		}
		return groupDoc{Name: g.Name, Items: items, SortIndex: g.SortIndex}
	},
	ID:        func(g Group) string { return g.ID },
	SortIndex: func(g Group) int { return g.SortIndex },
	WithSortIndex: func(g Group, idx int) Group {
		g.SortIndex = idx
		return g
	},
}

func decode(id string, raw json.RawMessage) (Group, bool) {
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Group{}, false
	}
	g := Group{
		ID:        id,
		Name:      shared.LooseString(fields["name"]),
		Items:     []string{},
		SortIndex: int(shared.LooseFloat(fields["sort_index"])),
	}
	for _, entry := range shared.KeyedEntries(fields["items"]) {
		itemID := strings.TrimSpace(shared.LooseString(entry.Raw))
		if itemID != "" && !g.Has(itemID) {
			g.Items = append(g.Items, itemID)
		}
	}
	return g, true
}

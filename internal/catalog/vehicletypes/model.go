// Package vehicletypes is the catalog of vehicle types offered when registering vehicles.
package vehicletypes

import (
	"encoding/json"
	"strings"

	"github.com/servicebook/servicebook/internal/catalog"
	"github.com/servicebook/servicebook/internal/ledger"
	"github.com/servicebook/servicebook/internal/shared"
)

// Source identifies this editor in mutation results.
const Source = ledger.VehicleTypesPath

// VehicleType is a named, orderable entry.
type VehicleType struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SortIndex int    `json:"sort_index"`
}

type typeDoc struct {
	Name      string `json:"name"`
	SortIndex int    `json:"sort_index"`
}

// Codec maps vehicle types to the vehicle_types collection. Bare strings read as names.
var Codec = catalog.Codec[VehicleType]{
	Root: ledger.VehicleTypesPath,
	Base: ledger.BaseOne,
	Decode: func(id string, raw json.RawMessage) (VehicleType, bool) {
		var name string
		if err := json.Unmarshal(raw, &name); err == nil {
			return VehicleType{ID: id, Name: strings.TrimSpace(name)}, true
		}
		fields := map[string]json.RawMessage{}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return VehicleType{}, false
		}
		return VehicleType{
			ID:        id,
			Name:      shared.LooseString(fields["name"]),
			SortIndex: int(shared.LooseFloat(fields["sort_index"])),
		}, true
	},
	Encode:    func(vt VehicleType) any { return typeDoc{Name: vt.Name, SortIndex: vt.SortIndex} },
	ID:        func(vt VehicleType) string { return vt.ID },
	SortIndex: func(vt VehicleType) int { return vt.SortIndex },
	WithSortIndex: func(vt VehicleType, idx int) VehicleType {
		vt.SortIndex = idx
		return vt
	},
}

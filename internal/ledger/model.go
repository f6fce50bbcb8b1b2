// Package ledger holds the company → vehicle → record tree, its flattened record view and the
// protocol editors use to mutate it.
package ledger

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/servicebook/servicebook/internal/shared"
)

// Collection roots in the document store.
const (
	CompaniesPath      = "companies"
	ItemsPath          = "wash_items"
	GroupsPath         = "wash_groups"
	VehicleTypesPath   = "vehicle_types"
	FormulaHistoryPath = "formula_history"
	// RevisionPath holds a token rewritten whenever a background job changes the stored ledger.
	RevisionPath = "ledger_revision"
)

var (
	// ErrNotFound is returned when an addressed company, vehicle or record is missing.
	ErrNotFound = shared.ErrNotFound
	// ErrValidation matches every *ValidationError.
	ErrValidation = shared.ErrValidation
	// ErrConfirmationRequired is returned by unconfirmed deletes.
	ErrConfirmationRequired = shared.ErrConfirmationRequired
)

// ValidationError carries field-scoped messages.
type ValidationError = shared.ValidationError

// PaymentType is the direction of a record.
type PaymentType string

const (
	PaymentReceivable PaymentType = "receivable"
	PaymentPayable    PaymentType = "payable"
)

// Valid reports whether p is one of the known payment types.
func (p PaymentType) Valid() bool {
	return p == PaymentReceivable || p == PaymentPayable
}

// Label is the display text for the payment type.
func (p PaymentType) Label() string {
	switch p {
	case PaymentReceivable:
		return "Receivable"
	case PaymentPayable:
		return "Payable"
	default:
		return ""
	}
}

// Company is a customer or supplier owning vehicles.
type Company struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	TaxID     string    `json:"tax_id,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	SortIndex int       `json:"sort_index"`
	Vehicles  []Vehicle `json:"vehicles"`
}

// Vehicle belongs to exactly one company.
type Vehicle struct {
	ID        string   `json:"id"`
	Plate     string   `json:"plate"`
	Type      string   `json:"type"`
	Remarks   string   `json:"remarks,omitempty"`
	SortIndex int      `json:"sort_index"`
	Records   []Record `json:"records"`
}

// Record is one service visit. Timestamp is its identity within the vehicle; zero means missing.
type Record struct {
	Date        string      `json:"date"`
	PaymentType PaymentType `json:"payment_type"`
	Items       LineItems   `json:"items"`
	Remarks     string      `json:"remarks"`
	Timestamp   int64       `json:"timestamp,omitempty"`
}

// Total returns the record total.
func (r Record) Total() float64 {
	return CalculateTotal(r.Items)
}

// UnmarshalJSON tolerates missing or mistyped fields.
func (r *Record) UnmarshalJSON(data []byte) error {
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &fields); err != nil {
		*r = Record{}
		return nil
	}
	var items LineItems
	if raw, ok := fields["items"]; ok {
		_ = items.UnmarshalJSON(raw)
	}
	*r = Record{
		Date:        shared.LooseString(fields["date"]),
		PaymentType: PaymentType(shared.LooseString(fields["payment_type"])),
		Items:       items,
		Remarks:     shared.LooseString(fields["remarks"]),
		Timestamp:   int64(shared.LooseFloat(fields["timestamp"])),
	}
	return nil
}

// Tree is the in-memory ledger. Treat it as immutable: every change goes through ReplaceSubtree.
type Tree struct {
	Companies []Company `json:"companies"`
}

// Company returns the company with id and its position.
func (t *Tree) Company(id string) (Company, int, bool) {
	if t == nil {
		return Company{}, -1, false
	}
	for i, c := range t.Companies {
		if c.ID == id {
			return c, i, true
		}
	}
	return Company{}, -1, false
}

// Vehicle returns the vehicle vid owned by company cid and its position.
func (t *Tree) Vehicle(cid, vid string) (Vehicle, int, bool) {
	c, _, ok := t.Company(cid)
	if !ok {
		return Vehicle{}, -1, false
	}
	return c.Vehicle(vid)
}

// Vehicle returns the vehicle with id and its position.
func (c Company) Vehicle(id string) (Vehicle, int, bool) {
	for i, v := range c.Vehicles {
		if v.ID == id {
			return v, i, true
		}
	}
	return Vehicle{}, -1, false
}

// RecordIndex returns the position of the record with timestamp ts.
func (v Vehicle) RecordIndex(ts int64) int {
	for i, r := range v.Records {
		if r.Timestamp == ts {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the tree.
func (t *Tree) Clone() *Tree {
	if t == nil {
		return &Tree{}
	}
	out := &Tree{Companies: make([]Company, len(t.Companies))}
	for i, c := range t.Companies {
		out.Companies[i] = c.clone()
	}
	return out
}

func (c Company) clone() Company {
	out := c
	out.Vehicles = make([]Vehicle, len(c.Vehicles))
	for i, v := range c.Vehicles {
		out.Vehicles[i] = v.clone()
	}
	return out
}

func (v Vehicle) clone() Vehicle {
	out := v
	out.Records = cloneRecords(v.Records)
	return out
}

func cloneRecords(records []Record) []Record {
	if records == nil {
		return nil
	}
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = r.clone()
	}
	return out
}

func (r Record) clone() Record {
	out := r
	if r.Items != nil {
		out.Items = make(LineItems, len(r.Items))
		for i, item := range r.Items {
			if item.OriginalPrice != nil {
				p := *item.OriginalPrice
				item.OriginalPrice = &p
			}
			out.Items[i] = item
		}
	}
	return out
}

// CompanyDoc is the stored shape of a company: vehicles keyed by id.
type CompanyDoc struct {
	Name      string                `json:"name"`
	TaxID     string                `json:"tax_id"`
	Phone     string                `json:"phone"`
	Address   string                `json:"address"`
	SortIndex int                   `json:"sort_index"`
	Vehicles  map[string]VehicleDoc `json:"vehicles,omitempty"`
}

// VehicleDoc is the stored shape of a vehicle.
type VehicleDoc struct {
	Plate     string   `json:"plate"`
	Type      string   `json:"type"`
	Remarks   string   `json:"remarks"`
	SortIndex int      `json:"sort_index"`
	Records   []Record `json:"records,omitempty"`
}

// Doc converts the company to its stored shape.
func (c Company) Doc() CompanyDoc {
	doc := CompanyDoc{
		Name:      c.Name,
		TaxID:     c.TaxID,
		Phone:     c.Phone,
		Address:   c.Address,
		SortIndex: c.SortIndex,
	}
	if len(c.Vehicles) > 0 {
		doc.Vehicles = make(map[string]VehicleDoc, len(c.Vehicles))
		for _, v := range c.Vehicles {
			doc.Vehicles[v.ID] = v.Doc()
		}
	}
	return doc
}

// Doc converts the vehicle to its stored shape.
func (v Vehicle) Doc() VehicleDoc {
	return VehicleDoc{
		Plate:     v.Plate,
		Type:      v.Type,
		Remarks:   v.Remarks,
		SortIndex: v.SortIndex,
		Records:   v.Records,
	}
}

// Load builds a tree from the raw "companies" document. Id-keyed maps become slices ordered by
// sort_index, with missing indices last. Malformed entries degrade to empty values.
func Load(raw json.RawMessage) *Tree {
	tree := &Tree{}
	for _, entry := range shared.KeyedEntries(raw) {
		tree.Companies = append(tree.Companies, loadCompany(entry.ID, entry.Raw))
	}
	sortBySortIndex(tree.Companies, func(c Company) (int, string) { return c.SortIndex, c.ID })
	if tree.Companies == nil {
		tree.Companies = []Company{}
	}
	return tree
}

func loadCompany(id string, raw json.RawMessage) Company {
	fields := map[string]json.RawMessage{}
	_ = json.Unmarshal(raw, &fields)
	c := Company{
		ID:        id,
		Name:      shared.LooseString(fields["name"]),
		TaxID:     shared.LooseString(fields["tax_id"]),
		Phone:     shared.LooseString(fields["phone"]),
		Address:   shared.LooseString(fields["address"]),
		SortIndex: int(shared.LooseFloat(fields["sort_index"])),
		Vehicles:  []Vehicle{},
	}
	for _, entry := range shared.KeyedEntries(fields["vehicles"]) {
		c.Vehicles = append(c.Vehicles, loadVehicle(entry.ID, entry.Raw))
	}
	sortBySortIndex(c.Vehicles, func(v Vehicle) (int, string) { return v.SortIndex, v.ID })
	return c
}

func loadVehicle(id string, raw json.RawMessage) Vehicle {
	fields := map[string]json.RawMessage{}
	_ = json.Unmarshal(raw, &fields)
	v := Vehicle{
		ID:        id,
		Plate:     shared.LooseString(fields["plate"]),
		Type:      shared.LooseString(fields["type"]),
		Remarks:   shared.LooseString(fields["remarks"]),
		SortIndex: int(shared.LooseFloat(fields["sort_index"])),
		Records:   []Record{},
	}
	for _, entry := range shared.KeyedEntries(fields["records"]) {
		var r Record
		_ = r.UnmarshalJSON(entry.Raw)
		v.Records = append(v.Records, r)
	}
	return v
}

// sortBySortIndex orders items by their sort index; zero or negative indices sort last.
// Equal indices fall back to id order.
func sortBySortIndex[T any](items []T, key func(T) (int, string)) {
	rank := func(idx int) float64 {
		if idx <= 0 {
			return math.Inf(1)
		}
		return float64(idx)
	}
	sort.SliceStable(items, func(i, j int) bool {
		ii, iid := key(items[i])
		ji, jid := key(items[j])
		ri, rj := rank(ii), rank(ji)
		if ri != rj {
			return ri < rj
		}
		return iid < jid
	})
}

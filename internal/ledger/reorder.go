package ledger

import (
	"github.com/servicebook/servicebook/internal/store"
)

// Sort index bases. Service groups were always numbered from zero; everything else from one.
const (
	BaseOne  = 1
	BaseZero = 0
)

// Move returns a copy of items with the element at from moved to to. It reports false, and returns
// items unchanged, when to equals from or either index is out of range.
func Move[T any](items []T, from, to int) ([]T, bool) {
	if from == to || from < 0 || to < 0 || from >= len(items) || to >= len(items) {
		return items, false
	}
	out := make([]T, 0, len(items))
	out = append(out, items[:from]...)
	out = append(out, items[from+1:]...)
	moved := items[from]
	out = append(out[:to], append([]T{moved}, out[to:]...)...)
	return out, true
}

// Renumber assigns index+base to every item through set.
func Renumber[T any](items []T, base int, set func(*T, int)) {
	for i := range items {
		set(&items[i], i+base)
	}
}

// SortWrites builds one sort_index write per sibling under parent.
func SortWrites[T any](parent string, items []T, key func(T) (string, int)) map[string]any {
	writes := make(map[string]any, len(items))
	for _, item := range items {
		id, idx := key(item)
		writes[store.Join(parent, id, "sort_index")] = idx
	}
	return writes
}

// ReorderCompanies moves a company and renumbers all companies densely from one. It returns the
// new tree, the sort_index writes to persist, and false when the move is a no-op.
func ReorderCompanies(t *Tree, from, to int) (*Tree, map[string]any, bool) {
	moved, ok := Move(t.Companies, from, to)
	if !ok {
		return t, nil, false
	}
	out := &Tree{Companies: moved}
	out = out.Clone()
	Renumber(out.Companies, BaseOne, func(c *Company, idx int) { c.SortIndex = idx })
	writes := SortWrites(CompaniesPath, out.Companies, func(c Company) (string, int) { return c.ID, c.SortIndex })
	return out, writes, true
}

// ReorderVehicles moves a vehicle within company cid and renumbers its vehicles densely from one.
func ReorderVehicles(t *Tree, cid string, from, to int) (*Tree, map[string]any, bool, error) {
	company, _, ok := t.Company(cid)
	if !ok {
		return t, nil, false, ErrNotFound
	}
	moved, ok := Move(company.Vehicles, from, to)
	if !ok {
		return t, nil, false, nil
	}
	company.Vehicles = moved
	company = company.clone()
	Renumber(company.Vehicles, BaseOne, func(v *Vehicle, idx int) { v.SortIndex = idx })
	out, err := t.ReplaceSubtree(CompanyPath(cid), company)
	if err != nil {
		return t, nil, false, err
	}
	writes := SortWrites(VehiclesPath(cid), company.Vehicles, func(v Vehicle) (string, int) { return v.ID, v.SortIndex })
	return out, writes, true, nil
}

// Densify renumbers companies and the vehicles of every company from one, keeping their current
// order. It returns the new tree and a write for every sort index that changed.
func Densify(t *Tree) (*Tree, map[string]any) {
	out := t.Clone()
	writes := map[string]any{}
	for i := range out.Companies {
		c := &out.Companies[i]
		if c.SortIndex != i+BaseOne {
			c.SortIndex = i + BaseOne
			writes[store.Join(CompaniesPath, c.ID, "sort_index")] = c.SortIndex
		}
		for j := range c.Vehicles {
			v := &c.Vehicles[j]
			if v.SortIndex != j+BaseOne {
				v.SortIndex = j + BaseOne
				writes[store.Join(VehiclesPath(c.ID), v.ID, "sort_index")] = v.SortIndex
			}
		}
	}
	return out, writes
}

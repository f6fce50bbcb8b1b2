package ledger

import (
	"errors"
	"fmt"

	"github.com/servicebook/servicebook/internal/store"
)

// ErrBadPath is returned by ReplaceSubtree for paths outside the ledger layout or values of the
// wrong type for the addressed node.
var ErrBadPath = errors.New("ledger: unsupported path")

// CompanyPath returns the store path of a company.
func CompanyPath(cid string) string {
	return store.Join(CompaniesPath, cid)
}

// VehiclesPath returns the store path of a company's vehicle collection.
func VehiclesPath(cid string) string {
	return store.Join(CompaniesPath, cid, "vehicles")
}

// VehiclePath returns the store path of a vehicle.
func VehiclePath(cid, vid string) string {
	return store.Join(CompaniesPath, cid, "vehicles", vid)
}

// RecordsPath returns the store path of a vehicle's record list.
func RecordsPath(cid, vid string) string {
	return store.Join(CompaniesPath, cid, "vehicles", vid, "records")
}

// Patch turns a snapshot into a new tree. Patches never mutate their input.
type Patch func(*Tree) (*Tree, error)

// ReplaceAt returns a patch that replaces the subtree at path with value.
func ReplaceAt(path string, value any) Patch {
	return func(t *Tree) (*Tree, error) {
		return t.ReplaceSubtree(path, value)
	}
}

// ReplaceSubtree returns a copy of t with the node at path set to value. A nil value removes
// companies and vehicles. Supported paths and value types:
//
//	companies                                       []Company
//	companies/{cid}                                 Company, *Company or nil
//	companies/{cid}/sort_index                      int
//	companies/{cid}/vehicles/{vid}                  Vehicle, *Vehicle or nil
//	companies/{cid}/vehicles/{vid}/sort_index       int
//	companies/{cid}/vehicles/{vid}/records          []Record
func (t *Tree) ReplaceSubtree(path string, value any) (*Tree, error) {
	segs, err := store.Split(path)
	if err != nil || segs[0] != CompaniesPath {
		return nil, fmt.Errorf("%w: %q", ErrBadPath, path)
	}
	out := t.Clone()

	if len(segs) == 1 {
		companies, ok := value.([]Company)
		if !ok {
			return nil, fmt.Errorf("%w: %q wants []Company, got %T", ErrBadPath, path, value)
		}
		out.Companies = (&Tree{Companies: companies}).Clone().Companies
		return out, nil
	}

	cid := segs[1]
	_, ci, found := out.Company(cid)

	if len(segs) == 2 {
		company, remove, err := companyValue(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrBadPath, path, err)
		}
		switch {
		case remove && found:
			out.Companies = append(out.Companies[:ci], out.Companies[ci+1:]...)
		case remove:
		case found:
			company.ID = cid
			out.Companies[ci] = company.clone()
		default:
			company.ID = cid
			out.Companies = append(out.Companies, company.clone())
		}
		return out, nil
	}

	if !found {
		return nil, fmt.Errorf("ledger: company %s: %w", cid, ErrNotFound)
	}
	company := &out.Companies[ci]

	if len(segs) == 3 && segs[2] == "sort_index" {
		idx, ok := value.(int)
		if !ok {
			return nil, fmt.Errorf("%w: %q wants int, got %T", ErrBadPath, path, value)
		}
		company.SortIndex = idx
		return out, nil
	}

	if len(segs) < 4 || segs[2] != "vehicles" {
		return nil, fmt.Errorf("%w: %q", ErrBadPath, path)
	}
	vid := segs[3]
	_, vi, vfound := company.Vehicle(vid)

	if len(segs) == 4 {
		vehicle, remove, err := vehicleValue(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrBadPath, path, err)
		}
		switch {
		case remove && vfound:
			company.Vehicles = append(company.Vehicles[:vi], company.Vehicles[vi+1:]...)
		case remove:
		case vfound:
			vehicle.ID = vid
			company.Vehicles[vi] = vehicle.clone()
		default:
			vehicle.ID = vid
			company.Vehicles = append(company.Vehicles, vehicle.clone())
		}
		return out, nil
	}

	if !vfound {
		return nil, fmt.Errorf("ledger: vehicle %s/%s: %w", cid, vid, ErrNotFound)
	}
	vehicle := &company.Vehicles[vi]

	if len(segs) == 5 {
		switch segs[4] {
		case "sort_index":
			idx, ok := value.(int)
			if !ok {
				return nil, fmt.Errorf("%w: %q wants int, got %T", ErrBadPath, path, value)
			}
			vehicle.SortIndex = idx
			return out, nil
		case "records":
			records, ok := value.([]Record)
			if !ok && value != nil {
				return nil, fmt.Errorf("%w: %q wants []Record, got %T", ErrBadPath, path, value)
			}
			vehicle.Records = cloneRecords(records)
			if vehicle.Records == nil {
				vehicle.Records = []Record{}
			}
			return out, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrBadPath, path)
}

func companyValue(value any) (Company, bool, error) {
	switch v := value.(type) {
	case nil:
		return Company{}, true, nil
	case Company:
		return v, false, nil
	case *Company:
		if v == nil {
			return Company{}, true, nil
		}
		return *v, false, nil
	default:
		return Company{}, false, fmt.Errorf("wants Company, got %T", value)
	}
}

func vehicleValue(value any) (Vehicle, bool, error) {
	switch v := value.(type) {
	case nil:
		return Vehicle{}, true, nil
	case Vehicle:
		return v, false, nil
	case *Vehicle:
		if v == nil {
			return Vehicle{}, true, nil
		}
		return *v, false, nil
	default:
		return Vehicle{}, false, fmt.Errorf("wants Vehicle, got %T", value)
	}
}

// Scope names the part of the tree a mutation touched. The zero Scope covers the whole tree.
type Scope struct {
	CompanyID string
	VehicleID string
}

// ScopeAll covers every company.
var ScopeAll = Scope{}

// CompanyScope covers one company and everything beneath it.
func CompanyScope(cid string) Scope { return Scope{CompanyID: cid} }

// VehicleScope covers one vehicle and its records.
func VehicleScope(cid, vid string) Scope { return Scope{CompanyID: cid, VehicleID: vid} }

// Contains reports whether the given company/vehicle lies within the scope.
func (s Scope) Contains(cid, vid string) bool {
	if s.CompanyID == "" {
		return true
	}
	if s.CompanyID != cid {
		return false
	}
	return s.VehicleID == "" || s.VehicleID == vid
}

func (s Scope) String() string {
	switch {
	case s.CompanyID == "":
		return CompaniesPath
	case s.VehicleID == "":
		return CompanyPath(s.CompanyID)
	default:
		return VehiclePath(s.CompanyID, s.VehicleID)
	}
}

// Graft copies the scoped subtree of src onto a copy of t. Nodes absent from src are removed from
// the result, so a delete in src propagates. Everything outside the scope keeps t's content.
func (t *Tree) Graft(src *Tree, scope Scope) (*Tree, error) {
	if scope.CompanyID == "" {
		return src.Clone(), nil
	}
	company, _, ok := src.Company(scope.CompanyID)
	if scope.VehicleID == "" {
		if !ok {
			return t.ReplaceSubtree(CompanyPath(scope.CompanyID), nil)
		}
		return t.ReplaceSubtree(CompanyPath(scope.CompanyID), company)
	}
	if _, _, exists := t.Company(scope.CompanyID); !exists {
		return nil, fmt.Errorf("ledger: company %s: %w", scope.CompanyID, ErrNotFound)
	}
	path := VehiclePath(scope.CompanyID, scope.VehicleID)
	if !ok {
		return t.ReplaceSubtree(path, nil)
	}
	vehicle, _, vok := company.Vehicle(scope.VehicleID)
	if !vok {
		return t.ReplaceSubtree(path, nil)
	}
	return t.ReplaceSubtree(path, vehicle)
}

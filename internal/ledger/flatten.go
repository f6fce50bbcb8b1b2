package ledger

import "sort"

// FlatRecord is a record enriched with its owners' fields and its total.
type FlatRecord struct {
	Record
	CompanyID      string  `json:"companyId"`
	CompanyName    string  `json:"companyName"`
	VehicleID      string  `json:"vehicleId"`
	VehiclePlate   string  `json:"vehiclePlate"`
	VehicleType    string  `json:"vehicleType"`
	VehicleRemarks string  `json:"vehicleRemarks"`
	ComputedTotal  float64 `json:"computedTotal"`

	pos position
}

// position is the tree order of a record, used to keep equal timestamps stable.
type position struct {
	company, vehicle, record int
}

func (p position) less(o position) bool {
	if p.company != o.company {
		return p.company < o.company
	}
	if p.vehicle != o.vehicle {
		return p.vehicle < o.vehicle
	}
	return p.record < o.record
}

// Flatten projects the tree into records sorted by timestamp, newest first. Equal timestamps keep
// tree order.
func Flatten(t *Tree) []FlatRecord {
	rows := appendScope(nil, t, ScopeAll)
	sortRows(rows)
	return rows
}

// Reflatten rebuilds only the rows within scope and returns the full, re-sorted view. Rows outside
// the scope are reused as they are; the result equals Flatten(t) as long as they were current.
func Reflatten(rows []FlatRecord, t *Tree, scope Scope) []FlatRecord {
	if scope.CompanyID == "" {
		return Flatten(t)
	}
	companyPos := make(map[string]int, len(t.Companies))
	vehiclePos := make(map[string]int)
	for ci, c := range t.Companies {
		companyPos[c.ID] = ci
		for vi, v := range c.Vehicles {
			vehiclePos[c.ID+"/"+v.ID] = vi
		}
	}

	out := make([]FlatRecord, 0, len(rows))
	for _, row := range rows {
		if scope.Contains(row.CompanyID, row.VehicleID) {
			continue
		}
		ci, ok := companyPos[row.CompanyID]
		if !ok {
			continue
		}
		vi, ok := vehiclePos[row.CompanyID+"/"+row.VehicleID]
		if !ok {
			continue
		}
		row.pos.company, row.pos.vehicle = ci, vi
		out = append(out, row)
	}
	out = appendScope(out, t, scope)
	sortRows(out)
	return out
}

func appendScope(rows []FlatRecord, t *Tree, scope Scope) []FlatRecord {
	if t == nil {
		return rows
	}
	for ci, c := range t.Companies {
		for vi, v := range c.Vehicles {
			if !scope.Contains(c.ID, v.ID) {
				continue
			}
			for ri, r := range v.Records {
				rows = append(rows, FlatRecord{
					Record:         r.clone(),
					CompanyID:      c.ID,
					CompanyName:    c.Name,
					VehicleID:      v.ID,
					VehiclePlate:   v.Plate,
					VehicleType:    v.Type,
					VehicleRemarks: v.Remarks,
					ComputedTotal:  r.Total(),
					pos:            position{company: ci, vehicle: vi, record: ri},
				})
			}
		}
	}
	return rows
}

func sortRows(rows []FlatRecord) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Timestamp != rows[j].Timestamp {
			return rows[i].Timestamp > rows[j].Timestamp
		}
		return rows[i].pos.less(rows[j].pos)
	})
}

// Totals sums the computed totals of rows per payment type.
type Totals struct {
	Receivable float64 `json:"receivable"`
	Payable    float64 `json:"payable"`
	Count      int     `json:"count"`
}

// Summarize returns the totals of rows.
func Summarize(rows []FlatRecord) Totals {
	var t Totals
	for _, row := range rows {
		t.Count++
		switch row.PaymentType {
		case PaymentReceivable:
			t.Receivable += row.ComputedTotal
		case PaymentPayable:
			t.Payable += row.ComputedTotal
		}
	}
	return t
}

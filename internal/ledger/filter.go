package ledger

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// AllSentinel disables the company or vehicle predicate.
const AllSentinel = "all"

// Filter selects rows of the flattened view. Zero values and AllSentinel disable a predicate.
type Filter struct {
	CompanyID string
	VehicleID string
	Start     time.Time
	End       time.Time
	Search    string
	Location  *time.Location
}

func active(id string) bool {
	return id != "" && id != AllSentinel
}

// Key identifies the user-facing filter inputs. A change in Key resets pagination.
func (f Filter) Key() string {
	parts := []string{
		normalizeSentinel(f.CompanyID),
		normalizeSentinel(f.VehicleID),
		dayKey(f.Start),
		dayKey(f.End),
		strings.TrimSpace(f.Search),
	}
	return strings.Join(parts, "|")
}

func normalizeSentinel(id string) string {
	if !active(id) {
		return AllSentinel
	}
	return id
}

func dayKey(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// ResolvePage returns the page to show: requested while the filter is unchanged, 1 otherwise.
func ResolvePage(requested int, prevKey string, f Filter) int {
	if requested < 1 || prevKey != f.Key() {
		return 1
	}
	return requested
}

// Apply returns the rows matching every active predicate, in input order.
func (f Filter) Apply(rows []FlatRecord) []FlatRecord {
	loc := f.Location
	if loc == nil {
		loc = time.Local
	}
	var from, to time.Time
	if !f.Start.IsZero() {
		s := f.Start.In(loc)
		from = time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, loc)
	}
	if !f.End.IsZero() {
		e := f.End.In(loc)
		to = time.Date(e.Year(), e.Month(), e.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), loc)
	}
	dateActive := !from.IsZero() || !to.IsZero()

	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(f.Search))

	out := make([]FlatRecord, 0, len(rows))
	for _, row := range rows {
		if active(f.CompanyID) && row.CompanyID != f.CompanyID {
			continue
		}
		if active(f.VehicleID) && row.VehicleID != f.VehicleID {
			continue
		}
		if dateActive {
			day, ok := ParseDate(row.Date, loc)
			if !ok {
				continue
			}
			if !from.IsZero() && day.Before(from) {
				continue
			}
			if !to.IsZero() && day.After(to) {
				continue
			}
		}
		if needle != "" && !matches(row, needle, fold) {
			continue
		}
		out = append(out, row)
	}
	return out
}

func matches(row FlatRecord, needle string, fold cases.Caser) bool {
	fields := []string{
		row.PaymentType.Label(),
		row.Date,
		row.CompanyName,
		row.VehiclePlate,
		row.VehicleType,
		FormatAmount(row.ComputedTotal),
		row.Remarks,
	}
	for _, item := range row.Items {
		fields = append(fields, item.Name, FormatAmount(item.Price))
	}
	for _, field := range fields {
		if field != "" && strings.Contains(fold.String(field), needle) {
			return true
		}
	}
	return false
}

// FormatAmount renders a number the shortest way that round-trips (100, 12.5, -20).
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

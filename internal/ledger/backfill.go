package ledger

import (
	"math/rand/v2"
	"time"
)

// DateLayout is the only accepted record date format.
const DateLayout = "2006-01-02"

// maxBackfillJitter bounds the random offset given to records whose date does not parse.
const maxBackfillJitter = time.Hour

// ParseDate parses a record date strictly as YYYY-MM-DD in loc.
func ParseDate(value string, loc *time.Location) (time.Time, bool) {
	if len(value) != len(DateLayout) {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, value, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// VehicleRef addresses one vehicle in the tree.
type VehicleRef struct {
	CompanyID string
	VehicleID string
}

// BackfillOptions controls timestamp synthesis.
type BackfillOptions struct {
	Location *time.Location
	Now      func() time.Time
	// Jitter returns the offset subtracted from now for records with unusable dates.
	Jitter func() time.Duration
}

func (o BackfillOptions) withDefaults() BackfillOptions {
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Jitter == nil {
		o.Jitter = func() time.Duration {
			return time.Duration(rand.Int64N(int64(maxBackfillJitter)))
		}
	}
	return o
}

// BackfillTimestamps gives every record without a timestamp one derived from its date (local
// midnight), or from now minus a random offset when the date is unusable. Timestamps stay unique
// within a vehicle. It returns the new tree and the vehicles whose record lists changed; the input
// is not modified. Running it on its own output changes nothing.
func BackfillTimestamps(t *Tree, opts BackfillOptions) (*Tree, []VehicleRef) {
	opts = opts.withDefaults()
	out := t.Clone()
	var changed []VehicleRef
	for ci := range out.Companies {
		company := &out.Companies[ci]
		for vi := range company.Vehicles {
			vehicle := &company.Vehicles[vi]
			if backfillVehicle(vehicle, opts) {
				changed = append(changed, VehicleRef{CompanyID: company.ID, VehicleID: vehicle.ID})
			}
		}
	}
	return out, changed
}

func backfillVehicle(v *Vehicle, opts BackfillOptions) bool {
	taken := make(map[int64]struct{}, len(v.Records))
	for _, r := range v.Records {
		if r.Timestamp != 0 {
			taken[r.Timestamp] = struct{}{}
		}
	}
	changed := false
	for i := range v.Records {
		r := &v.Records[i]
		if r.Timestamp != 0 {
			continue
		}
		var ts int64
		if day, ok := ParseDate(r.Date, opts.Location); ok {
			ts = day.UnixMilli()
		} else {
			ts = opts.Now().Add(-opts.Jitter()).UnixMilli()
		}
		ts = nextFree(ts, taken)
		taken[ts] = struct{}{}
		r.Timestamp = ts
		changed = true
	}
	return changed
}

// nextFree bumps ts by one millisecond until it is not taken.
func nextFree(ts int64, taken map[int64]struct{}) int64 {
	for {
		if _, ok := taken[ts]; !ok && ts != 0 {
			return ts
		}
		ts++
	}
}

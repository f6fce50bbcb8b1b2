package ledger

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureJSON = `{
	"c2": {
		"name": "Beta Logistics",
		"sort_index": 2,
		"vehicles": {
			"v3": {"plate": "B 3", "type": "Van", "sort_index": 1, "records": [
				{"date": "2024-03-01", "payment_type": "payable", "items": [{"name": "Tyres", "price": 400, "isCustom": true}], "remarks": "", "timestamp": 3000}
			]}
		}
	},
	"c1": {
		"name": "Acme Transport",
		"tax_id": "123",
		"sort_index": 1,
		"vehicles": {
			"v2": {"plate": "A 2", "type": "Truck", "sort_index": 2, "records": {
				"0": {"date": "2024-01-10", "payment_type": "receivable", "items": ["Wash"], "remarks": "legacy", "timestamp": 1000}
			}},
			"v1": {"plate": "A 1", "type": "Truck", "sort_index": 1, "records": [
				{"date": "2024-02-01", "payment_type": "receivable", "items": [{"id": "1", "name": "Wash", "price": 100, "quantity": 2}], "remarks": "", "timestamp": 2000},
				{"date": "2024-02-02", "payment_type": "receivable", "items": [{"id": "2", "name": "Wax", "price": 50}], "remarks": "shiny", "timestamp": 2500}
			]}
		}
	},
	"c3": {"name": "No Index Ltd"}
}`

func fixtureTree(t *testing.T) *Tree {
	t.Helper()
	return Load(json.RawMessage(fixtureJSON))
}

func TestLoadOrdersBySortIndexWithMissingLast(t *testing.T) {
	tree := fixtureTree(t)
	require.Len(t, tree.Companies, 3)
	assert.Equal(t, []string{"c1", "c2", "c3"}, companyIDs(tree))

	acme := tree.Companies[0]
	assert.Equal(t, "123", acme.TaxID)
	require.Len(t, acme.Vehicles, 2)
	assert.Equal(t, "v1", acme.Vehicles[0].ID)
	assert.Equal(t, "v2", acme.Vehicles[1].ID)
	require.Len(t, acme.Vehicles[1].Records, 1)
	assert.Equal(t, KindLegacy, acme.Vehicles[1].Records[0].Items[0].Kind)

	assert.Empty(t, tree.Companies[2].Vehicles)
}

func TestLoadDegradesMalformedDocuments(t *testing.T) {
	for _, raw := range []string{``, `null`, `42`, `"x"`, `[null]`} {
		tree := Load(json.RawMessage(raw))
		assert.Empty(t, tree.Companies, raw)
	}
	tree := Load(json.RawMessage(`{"c1": {"name": 7, "vehicles": "oops"}}`))
	require.Len(t, tree.Companies, 1)
	assert.Equal(t, "7", tree.Companies[0].Name)
	assert.Empty(t, tree.Companies[0].Vehicles)
}

func TestLoadKeepsObjectShapedRecordsInListOrder(t *testing.T) {
	entries := make([]string, 0, 12)
	for i := 11; i >= 0; i-- {
		entries = append(entries, fmt.Sprintf(`"%d": {"date": "2024-01-01", "remarks": "r%d"}`, i, i))
	}
	raw := `{"c1": {"name": "A", "vehicles": {"v1": {"plate": "P", "records": {` + strings.Join(entries, ",") + `}}}}}`

	records := Load(json.RawMessage(raw)).Companies[0].Vehicles[0].Records
	require.Len(t, records, 12)
	for i, r := range records {
		assert.Equal(t, fmt.Sprintf("r%d", i), r.Remarks)
	}
}

func TestReplaceSubtreeLeavesInputUntouched(t *testing.T) {
	tree := fixtureTree(t)
	before := tree.Clone()

	updated, err := tree.ReplaceSubtree(RecordsPath("c1", "v1"), []Record{{Date: "2024-05-05", PaymentType: PaymentPayable, Timestamp: 9}})
	require.NoError(t, err)

	assert.Equal(t, before, tree)
	v, _, ok := updated.Vehicle("c1", "v1")
	require.True(t, ok)
	require.Len(t, v.Records, 1)
	assert.Equal(t, int64(9), v.Records[0].Timestamp)
}

func TestReplaceSubtreeCreatesAndRemoves(t *testing.T) {
	tree := fixtureTree(t)

	added, err := tree.ReplaceSubtree(CompanyPath("c9"), Company{Name: "New", SortIndex: 4})
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2", "c3", "c9"}, companyIDs(added))

	removed, err := added.ReplaceSubtree(CompanyPath("c1"), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"c2", "c3", "c9"}, companyIDs(removed))

	withVehicle, err := removed.ReplaceSubtree(VehiclePath("c9", "v9"), Vehicle{Plate: "N 9"})
	require.NoError(t, err)
	v, _, ok := withVehicle.Vehicle("c9", "v9")
	require.True(t, ok)
	assert.Equal(t, "v9", v.ID)

	idx, err := withVehicle.ReplaceSubtree("companies/c9/vehicles/v9/sort_index", 3)
	require.NoError(t, err)
	v, _, _ = idx.Vehicle("c9", "v9")
	assert.Equal(t, 3, v.SortIndex)
}

func TestReplaceSubtreeRejectsBadInput(t *testing.T) {
	tree := fixtureTree(t)

	_, err := tree.ReplaceSubtree("wash_items/1", nil)
	assert.ErrorIs(t, err, ErrBadPath)

	_, err = tree.ReplaceSubtree(CompanyPath("c1"), "nope")
	assert.ErrorIs(t, err, ErrBadPath)

	_, err = tree.ReplaceSubtree(RecordsPath("missing", "v1"), []Record{})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = tree.ReplaceSubtree(RecordsPath("c1", "missing"), []Record{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeletingCompanyCascadesToFlattenedRows(t *testing.T) {
	tree := fixtureTree(t)
	updated, err := tree.ReplaceSubtree(CompanyPath("c1"), nil)
	require.NoError(t, err)

	for _, row := range Flatten(updated) {
		assert.NotEqual(t, "c1", row.CompanyID)
	}
	assert.Len(t, Flatten(updated), 1)
}

func TestGraftOnlyTouchesScope(t *testing.T) {
	base := fixtureTree(t)

	stale := base.Clone()
	stale.Companies[1].Name = "Stale Beta"
	stale.Companies[0].Vehicles[0].Plate = "A 1 NEW"

	merged, err := base.Graft(stale, VehicleScope("c1", "v1"))
	require.NoError(t, err)

	v, _, _ := merged.Vehicle("c1", "v1")
	assert.Equal(t, "A 1 NEW", v.Plate)
	c, _, _ := merged.Company("c2")
	assert.Equal(t, "Beta Logistics", c.Name)
}

func TestGraftPropagatesDelete(t *testing.T) {
	base := fixtureTree(t)
	src, err := base.ReplaceSubtree(VehiclePath("c1", "v2"), nil)
	require.NoError(t, err)

	merged, err := base.Graft(src, VehicleScope("c1", "v2"))
	require.NoError(t, err)
	_, _, ok := merged.Vehicle("c1", "v2")
	assert.False(t, ok)
}

func TestBackfillUsesLocalMidnightExactlyOnce(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	tree := Load(json.RawMessage(`{"c1": {"name": "A", "sort_index": 1, "vehicles": {"v1": {"plate": "P", "sort_index": 1, "records": [
		{"date": "2024-03-15", "payment_type": "receivable", "items": []},
		{"date": "2024-03-15", "payment_type": "receivable", "items": []},
		{"date": "15/03/2024", "payment_type": "payable", "items": []},
		{"date": "2024-01-01", "payment_type": "payable", "items": [], "timestamp": 42}
	]}}}}`))
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, loc)
	opts := BackfillOptions{
		Location: loc,
		Now:      func() time.Time { return now },
		Jitter:   func() time.Duration { return time.Minute },
	}

	filled, changed := BackfillTimestamps(tree, opts)
	require.Equal(t, []VehicleRef{{CompanyID: "c1", VehicleID: "v1"}}, changed)

	records := filled.Companies[0].Vehicles[0].Records
	midnight := time.Date(2024, 3, 15, 0, 0, 0, 0, loc).UnixMilli()
	assert.Equal(t, midnight, records[0].Timestamp)
	assert.Equal(t, midnight+1, records[1].Timestamp)
	assert.Equal(t, now.Add(-time.Minute).UnixMilli(), records[2].Timestamp)
	assert.Equal(t, int64(42), records[3].Timestamp)

	assert.Zero(t, tree.Companies[0].Vehicles[0].Records[0].Timestamp)

	again, changedAgain := BackfillTimestamps(filled, opts)
	assert.Empty(t, changedAgain)
	assert.Equal(t, filled, again)
}

func TestParseDateIsStrict(t *testing.T) {
	for _, bad := range []string{"", "2024-3-15", "2024/03/15", "2024-13-01", "2024-03-15T00:00:00Z"} {
		_, ok := ParseDate(bad, time.UTC)
		assert.False(t, ok, bad)
	}
	d, ok := ParseDate("2024-02-29", time.UTC)
	require.True(t, ok)
	assert.Equal(t, 29, d.Day())
}

func companyIDs(tree *Tree) []string {
	ids := make([]string, 0, len(tree.Companies))
	for _, c := range tree.Companies {
		ids = append(ids, c.ID)
	}
	return ids
}

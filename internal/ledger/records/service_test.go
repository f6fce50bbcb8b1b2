package records

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/servicebook/servicebook/internal/ledger"
	"github.com/servicebook/servicebook/internal/shared"
	"github.com/servicebook/servicebook/internal/store"
)

type stubCatalog map[string]struct {
	name  string
	price float64
}

func (c stubCatalog) Find(ctx context.Context, id string) (string, float64, bool, error) {
	item, ok := c[id]
	return item.name, item.price, ok, nil
}

var testCatalog = stubCatalog{
	"1": {name: "Exterior wash", price: 100},
	"2": {name: "Interior clean", price: 80},
}

func price(v float64) *float64 { return &v }

var fixedNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*Service, *ledger.Controller, store.Store) {
	t.Helper()
	st := store.NewMemoryStore()
	require.NoError(t, st.Set(context.Background(), ledger.CompaniesPath, map[string]any{
		"c1": map[string]any{"name": "Acme", "sort_index": 1, "vehicles": map[string]any{
			"v1": map[string]any{"plate": "A 1", "type": "Truck", "sort_index": 1},
		}},
	}))
	ctl := ledger.NewController(st, nil, ledger.Options{})
	require.NoError(t, ctl.Reload(context.Background()))
	svc := NewService(ctl, testCatalog, nil, WithClock(func() time.Time { return fixedNow }), WithPageSize(2))
	return svc, ctl, st
}

func validInput() RecordInput {
	return RecordInput{
		Date:        "2024-05-31",
		PaymentType: "receivable",
		Items: []ItemInput{
			{ID: "1", Quantity: 2},
			{ID: "2", Price: price(60)},
			{Kind: "custom", Name: "Tyre shine", Price: price(50)},
			{Kind: "adjustment", Name: "Loyalty", Price: price(-20)},
		},
		Remarks: " regular ",
	}
}

func TestCreateSnapshotsCatalogItems(t *testing.T) {
	svc, ctl, _ := setup(t)

	res, err := svc.Create(context.Background(), "c1", "v1", validInput())
	require.NoError(t, err)
	record := res.NewEntity.(ledger.Record)

	assert.Equal(t, fixedNow.UnixMilli(), record.Timestamp)
	assert.Equal(t, "regular", record.Remarks)
	require.Len(t, record.Items, 4)

	assert.Equal(t, "Exterior wash", record.Items[0].Name)
	assert.Equal(t, 100.0, record.Items[0].Price)
	assert.Nil(t, record.Items[0].OriginalPrice)

	assert.Equal(t, 60.0, record.Items[1].Price)
	require.NotNil(t, record.Items[1].OriginalPrice)
	assert.Equal(t, 80.0, *record.Items[1].OriginalPrice)

	assert.Equal(t, ledger.KindAdjustment, record.Items[3].Kind)
	assert.Equal(t, "1717232400000", record.Items[3].ID)

	assert.Equal(t, 290.0, record.Total())
	rows := ctl.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, 290.0, rows[0].ComputedTotal)
}

func TestCreateBumpsDuplicateTimestamps(t *testing.T) {
	svc, ctl, _ := setup(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, "c1", "v1", validInput())
		require.NoError(t, err)
	}
	v, _, _ := ctl.Snapshot().Vehicle("c1", "v1")
	require.Len(t, v.Records, 3)
	assert.Equal(t, fixedNow.UnixMilli(), v.Records[0].Timestamp)
	assert.Equal(t, fixedNow.UnixMilli()+1, v.Records[1].Timestamp)
	assert.Equal(t, fixedNow.UnixMilli()+2, v.Records[2].Timestamp)
}

func TestUpdatePreservesTimestamp(t *testing.T) {
	svc, ctl, st := setup(t)
	ctx := context.Background()
	res, err := svc.Create(ctx, "c1", "v1", validInput())
	require.NoError(t, err)
	ts := res.NewEntity.(ledger.Record).Timestamp

	in := validInput()
	in.PaymentType = "payable"
	in.Items = []ItemInput{{Kind: "custom", Name: "Repair", Price: price(300)}}
	_, err = svc.Update(ctx, "c1", "v1", ts, in)
	require.NoError(t, err)

	v, _, _ := ctl.Snapshot().Vehicle("c1", "v1")
	require.Len(t, v.Records, 1)
	assert.Equal(t, ts, v.Records[0].Timestamp)
	assert.Equal(t, ledger.PaymentPayable, v.Records[0].PaymentType)

	snap, err := st.Get(ctx, ledger.RecordsPath("c1", "v1")+"/0/timestamp")
	require.NoError(t, err)
	assert.Equal(t, float64(ts), snap.Val())

	_, err = svc.Update(ctx, "c1", "v1", ts+99, in)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestUpdateKeepsSoldCatalogPrices(t *testing.T) {
	catalog := stubCatalog{
		"1": {name: "Exterior wash", price: 100},
		"2": {name: "Interior clean", price: 80},
	}
	st := store.NewMemoryStore()
	require.NoError(t, st.Set(context.Background(), ledger.CompaniesPath, map[string]any{
		"c1": map[string]any{"name": "Acme", "vehicles": map[string]any{"v1": map[string]any{"plate": "A 1"}}},
	}))
	ctl := ledger.NewController(st, nil, ledger.Options{})
	require.NoError(t, ctl.Reload(context.Background()))
	svc := NewService(ctl, catalog, nil, WithClock(func() time.Time { return fixedNow }))
	ctx := context.Background()

	in := RecordInput{
		Date:        "2024-05-31",
		PaymentType: "receivable",
		Items:       []ItemInput{{ID: "1", Quantity: 2}, {ID: "2", Price: price(60)}},
	}
	res, err := svc.Create(ctx, "c1", "v1", in)
	require.NoError(t, err)
	ts := res.NewEntity.(ledger.Record).Timestamp

	catalog["1"] = struct {
		name  string
		price float64
	}{name: "Exterior wash", price: 150}
	catalog["2"] = struct {
		name  string
		price float64
	}{name: "Interior clean", price: 95}

	in.Remarks = "called back"
	in.Items = []ItemInput{{ID: "1", Quantity: 2}, {ID: "2", Price: price(60)}}
	_, err = svc.Update(ctx, "c1", "v1", ts, in)
	require.NoError(t, err)

	v, _, _ := ctl.Snapshot().Vehicle("c1", "v1")
	record := v.Records[0]
	assert.Equal(t, "called back", record.Remarks)
	assert.Equal(t, 100.0, record.Items[0].Price)
	assert.Nil(t, record.Items[0].OriginalPrice)
	assert.Equal(t, 60.0, record.Items[1].Price)
	require.NotNil(t, record.Items[1].OriginalPrice)
	assert.Equal(t, 80.0, *record.Items[1].OriginalPrice)
	assert.Equal(t, 260.0, record.Total())

	// An explicit price still overrides, and a new line snapshots today's catalog.
	in.Items = []ItemInput{{ID: "1", Price: price(90)}, {ID: "2", Price: price(80)}, {ID: "2"}}
	_, err = svc.Update(ctx, "c1", "v1", ts, in)
	require.NoError(t, err)

	v, _, _ = ctl.Snapshot().Vehicle("c1", "v1")
	record = v.Records[0]
	require.Len(t, record.Items, 3)
	assert.Equal(t, 90.0, record.Items[0].Price)
	require.NotNil(t, record.Items[0].OriginalPrice)
	assert.Equal(t, 100.0, *record.Items[0].OriginalPrice)
	assert.Equal(t, 80.0, record.Items[1].Price)
	assert.Nil(t, record.Items[1].OriginalPrice)
	assert.Equal(t, 95.0, record.Items[2].Price)
	assert.Equal(t, 265.0, record.Total())
}

func TestCreateValidation(t *testing.T) {
	svc, ctl, st := setup(t)
	ctx := context.Background()

	cases := map[string]func(*RecordInput){
		"date":         func(in *RecordInput) { in.Date = "31/05/2024" },
		"payment_type": func(in *RecordInput) { in.PaymentType = "cash" },
		"items":        func(in *RecordInput) { in.Items = nil },
		"items[0].price": func(in *RecordInput) {
			in.Items = []ItemInput{{Kind: "custom", Name: "x", Price: price(-1)}}
		},
		"items[0].name": func(in *RecordInput) {
			in.Items = []ItemInput{{Kind: "custom", Name: " ", Price: price(1)}}
		},
		"items[0].quantity": func(in *RecordInput) {
			in.Items = []ItemInput{{Kind: "custom", Name: "Polish", Price: price(40), Quantity: 3}}
		},
		"items[1].quantity": func(in *RecordInput) {
			in.Items = []ItemInput{{ID: "1"}, {Kind: "adjustment", Name: "Promo", Price: price(-5), Quantity: 2}}
		},
	}
	for field, mutate := range cases {
		in := validInput()
		mutate(&in)
		_, err := svc.Create(ctx, "c1", "v1", in)
		var verr *shared.ValidationError
		require.True(t, errors.As(err, &verr), field)
		assert.Contains(t, verr.Fields, field)
	}

	assert.Empty(t, ctl.Rows())
	snap, err := st.Get(ctx, ledger.RecordsPath("c1", "v1"))
	require.NoError(t, err)
	assert.False(t, snap.Exists())
}

func TestDeleteByTimestamp(t *testing.T) {
	svc, ctl, _ := setup(t)
	ctx := context.Background()
	first, err := svc.Create(ctx, "c1", "v1", validInput())
	require.NoError(t, err)
	_, err = svc.Create(ctx, "c1", "v1", validInput())
	require.NoError(t, err)
	ts := first.NewEntity.(ledger.Record).Timestamp

	_, err = svc.Delete(ctx, "c1", "v1", ts, ledger.Declined)
	require.ErrorIs(t, err, ledger.ErrConfirmationRequired)

	_, err = svc.Delete(ctx, "c1", "v1", ts, ledger.Confirmed)
	require.NoError(t, err)

	rows := ctl.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, ts+1, rows[0].Timestamp)
}

func TestListPaginatesAndResetsOnFilterChange(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := svc.Create(ctx, "c1", "v1", validInput())
		require.NoError(t, err)
	}

	f := ledger.Filter{Location: time.UTC}
	page, err := svc.List(ctx, Query{Filter: f, Page: 3, PrevKey: f.Key()})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Pagination.Page)
	assert.Equal(t, 3, page.Pagination.TotalPages)
	assert.Len(t, page.Records, 1)
	assert.Equal(t, 5, page.Totals.Count)
	assert.Equal(t, 5*290.0, page.Totals.Receivable)

	changed := ledger.Filter{Search: "acme", Location: time.UTC}
	page, err = svc.List(ctx, Query{Filter: changed, Page: 3, PrevKey: f.Key()})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Pagination.Page)
	assert.Len(t, page.Records, 2)
	assert.Equal(t, changed.Key(), page.FilterKey)
}

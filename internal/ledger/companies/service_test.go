package companies

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/servicebook/servicebook/internal/ledger"
	"github.com/servicebook/servicebook/internal/shared"
	"github.com/servicebook/servicebook/internal/store"
)

type failingStore struct {
	store.Store
	err error
}

func (s failingStore) Set(ctx context.Context, path string, value any) error {
	return s.err
}

func newTestService(t *testing.T, st store.Store) (*Service, *ledger.Controller) {
	t.Helper()
	ctl := ledger.NewController(st, nil, ledger.Options{})
	require.NoError(t, ctl.Reload(context.Background()))
	return NewService(ctl, nil), ctl
}

func createCompanies(t *testing.T, svc *Service, names ...string) []string {
	t.Helper()
	ids := make([]string, 0, len(names))
	for _, name := range names {
		res, err := svc.Create(context.Background(), CompanyInput{Name: name})
		require.NoError(t, err)
		ids = append(ids, res.NewEntity.(ledger.Company).ID)
	}
	return ids
}

func TestCreateAppendsWithNextSortIndex(t *testing.T) {
	st := store.NewMemoryStore()
	svc, ctl := newTestService(t, st)

	ids := createCompanies(t, svc, "Acme", "Beta")

	res, err := svc.Create(context.Background(), CompanyInput{Name: "  Gamma  ", Phone: "555"})
	require.NoError(t, err)
	assert.False(t, res.NeedsReload())
	assert.True(t, res.ShouldResetForm)
	gamma := res.NewEntity.(ledger.Company)
	assert.Equal(t, "Gamma", gamma.Name)
	assert.Equal(t, 3, gamma.SortIndex)

	companies := ctl.Snapshot().Companies
	require.Len(t, companies, 3)
	assert.Equal(t, ids[0], companies[0].ID)

	snap, err := st.Get(context.Background(), ledger.CompanyPath(gamma.ID))
	require.NoError(t, err)
	var doc ledger.CompanyDoc
	require.NoError(t, snap.Decode(&doc))
	assert.Equal(t, "555", doc.Phone)
	assert.Equal(t, 3, doc.SortIndex)
}

func TestCreateRejectsBlankName(t *testing.T) {
	st := store.NewMemoryStore()
	svc, _ := newTestService(t, st)

	_, err := svc.Create(context.Background(), CompanyInput{Name: "   "})
	require.ErrorIs(t, err, ledger.ErrValidation)
	var verr *shared.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "name")

	snap, err := st.Get(context.Background(), ledger.CompaniesPath)
	require.NoError(t, err)
	assert.False(t, snap.Exists())
}

func TestUpdateKeepsVehiclesAndOrder(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, st.Set(ctx, ledger.CompaniesPath, map[string]any{
		"c1": map[string]any{"name": "Acme", "sort_index": 1, "vehicles": map[string]any{
			"v1": map[string]any{"plate": "A 1", "sort_index": 1},
		}},
	}))
	svc, ctl := newTestService(t, st)

	_, err := svc.Update(ctx, "c1", CompanyInput{Name: "Acme Ltd", Address: "Main St"})
	require.NoError(t, err)

	c, _, ok := ctl.Snapshot().Company("c1")
	require.True(t, ok)
	assert.Equal(t, "Acme Ltd", c.Name)
	assert.Equal(t, 1, c.SortIndex)
	require.Len(t, c.Vehicles, 1)

	snap, err := st.Get(ctx, "companies/c1/vehicles/v1/plate")
	require.NoError(t, err)
	assert.Equal(t, "A 1", snap.Val())

	_, err = svc.Update(ctx, "missing", CompanyInput{Name: "x"})
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestDeleteRequiresConfirmationAndRenumbers(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	svc, ctl := newTestService(t, st)
	ids := createCompanies(t, svc, "A", "B", "C")

	_, err := svc.Delete(ctx, ids[0], ledger.Declined)
	require.ErrorIs(t, err, ledger.ErrConfirmationRequired)
	assert.Len(t, ctl.Snapshot().Companies, 3)

	res, err := svc.Delete(ctx, ids[0], ledger.Confirmed)
	require.NoError(t, err)
	assert.True(t, res.ShouldClearFilters)

	companies := ctl.Snapshot().Companies
	require.Len(t, companies, 2)
	assert.Equal(t, 1, companies[0].SortIndex)
	assert.Equal(t, 2, companies[1].SortIndex)

	snap, err := st.Get(ctx, ledger.CompanyPath(ids[0]))
	require.NoError(t, err)
	assert.False(t, snap.Exists())

	snap, err = st.Get(ctx, ledger.CompanyPath(ids[2])+"/sort_index")
	require.NoError(t, err)
	assert.Equal(t, float64(2), snap.Val())
}

func TestReorderPersistsDenseIndices(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	svc, ctl := newTestService(t, st)
	ids := createCompanies(t, svc, "A", "B", "C", "D")

	_, err := svc.Reorder(ctx, ReorderInput{From: 0, To: 2})
	require.NoError(t, err)

	var order []string
	var indices []int
	for _, c := range ctl.Snapshot().Companies {
		order = append(order, c.ID)
		indices = append(indices, c.SortIndex)
	}
	assert.Equal(t, []string{ids[1], ids[2], ids[0], ids[3]}, order)
	assert.Equal(t, []int{1, 2, 3, 4}, indices)

	require.NoError(t, ctl.Reload(ctx))
	var reloaded []string
	for _, c := range ctl.Snapshot().Companies {
		reloaded = append(reloaded, c.ID)
	}
	assert.Equal(t, order, reloaded)
}

func TestReorderKeepsLocalStateWhenPersistFails(t *testing.T) {
	mem := store.NewMemoryStore()
	ctx := context.Background()
	seed, _ := newTestService(t, mem)
	ids := createCompanies(t, seed, "A", "B")

	svc, ctl := newTestService(t, failingStore{Store: mem, err: errors.New("offline")})
	_, err := svc.Reorder(ctx, ReorderInput{From: 1, To: 0})
	require.ErrorIs(t, err, shared.ErrStore)
	assert.Equal(t, ids[1], ctl.Snapshot().Companies[0].ID)
}

func TestUpdateLeavesLocalStateWhenWriteFails(t *testing.T) {
	mem := store.NewMemoryStore()
	ctx := context.Background()
	seed, _ := newTestService(t, mem)
	ids := createCompanies(t, seed, "A")

	svc, ctl := newTestService(t, failingStore{Store: mem, err: errors.New("offline")})
	_, err := svc.Update(ctx, ids[0], CompanyInput{Name: "Renamed"})
	require.ErrorIs(t, err, shared.ErrStore)
	assert.Equal(t, "A", ctl.Snapshot().Companies[0].Name)
}

func TestReorderNoOp(t *testing.T) {
	svc, ctl := newTestService(t, store.NewMemoryStore())
	createCompanies(t, svc, "A", "B")
	before := ctl.Snapshot()

	res, err := svc.Reorder(context.Background(), ReorderInput{From: 1, To: 1})
	require.NoError(t, err)
	assert.False(t, res.NeedsReload())
	assert.Same(t, before, ctl.Snapshot())

	_, err = svc.Reorder(context.Background(), ReorderInput{From: 0, To: 9})
	require.NoError(t, err)
	assert.Same(t, before, ctl.Snapshot())
}

package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/servicebook/servicebook/internal/shared"
	"github.com/servicebook/servicebook/internal/store"
)

type countingStore struct {
	store.Store
	sets    []string
	updates int
	failSet error
}

func (s *countingStore) Set(ctx context.Context, path string, value any) error {
	s.sets = append(s.sets, path)
	if s.failSet != nil {
		return s.failSet
	}
	return s.Store.Set(ctx, path, value)
}

func (s *countingStore) Update(ctx context.Context, values map[string]any) error {
	s.updates++
	return s.Store.Update(ctx, values)
}

func seededStore(t *testing.T) *countingStore {
	t.Helper()
	mem := store.NewMemoryStore()
	var doc any
	require.NoError(t, json.Unmarshal([]byte(fixtureJSON), &doc))
	require.NoError(t, mem.Set(context.Background(), CompaniesPath, doc))
	return &countingStore{Store: mem}
}

func TestControllerReloadBackfillsOnce(t *testing.T) {
	ctx := context.Background()
	st := seededStore(t)
	require.NoError(t, st.Store.Set(ctx, RecordsPath("c1", "v2"), []map[string]any{
		{"date": "2024-01-10", "payment_type": "receivable", "items": []string{"Wash"}},
	}))

	ctl := NewController(st, nil, Options{Backfill: BackfillOptions{Location: time.UTC}})
	require.NoError(t, ctl.Reload(ctx))
	assert.Equal(t, []string{RecordsPath("c1", "v2")}, st.sets)

	snap, err := st.Get(ctx, RecordsPath("c1", "v2")+"/0/timestamp")
	require.NoError(t, err)
	assert.Equal(t, float64(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC).UnixMilli()), snap.Val())

	st.sets = nil
	require.NoError(t, ctl.Reload(ctx))
	assert.Empty(t, st.sets)

	n, err := ctl.Backfill(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestControllerHandleMergesWithoutReload(t *testing.T) {
	ctx := context.Background()
	st := seededStore(t)
	ctl := NewController(st, nil, Options{})
	require.NoError(t, ctl.Ensure(ctx))

	var seen []Result
	ctl.Subscribe(func(r Result) { seen = append(seen, r) })

	updated, err := ctl.Snapshot().ReplaceSubtree(RecordsPath("c2", "v3"), []Record{})
	require.NoError(t, err)
	require.NoError(t, st.Store.Remove(ctx, CompaniesPath))

	require.NoError(t, ctl.Handle(ctx, Merge("records", updated, VehicleScope("c2", "v3"))))
	assert.Len(t, ctl.Rows(), 3)
	assert.Equal(t, Flatten(ctl.Snapshot()), ctl.Rows())
	require.Len(t, seen, 1)
	assert.Equal(t, "records", seen[0].Source)
	assert.Len(t, ctl.Snapshot().Companies, 3)
}

func TestControllerHandleReloadsWhenAsked(t *testing.T) {
	ctx := context.Background()
	st := seededStore(t)
	ctl := NewController(st, nil, Options{})
	require.NoError(t, ctl.Ensure(ctx))

	require.NoError(t, st.Store.Remove(ctx, CompanyPath("c2")))
	require.NoError(t, ctl.Handle(ctx, Result{Source: "companies"}))
	assert.Len(t, ctl.Snapshot().Companies, 2)
	assert.Len(t, ctl.Rows(), 3)
}

type gatedStore struct {
	store.Store
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (s *gatedStore) Get(ctx context.Context, path string) (store.Snapshot, error) {
	if path == CompaniesPath && s.release != nil {
		s.once.Do(func() { close(s.entered) })
		<-s.release
	}
	return s.Store.Get(ctx, path)
}

func TestControllerReloadKeepsConcurrentMerge(t *testing.T) {
	ctx := context.Background()
	st := &gatedStore{Store: seededStore(t)}
	ctl := NewController(st, nil, Options{})
	require.NoError(t, ctl.Ensure(ctx))
	before := len(ctl.Rows())

	st.entered = make(chan struct{})
	st.release = make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- ctl.Reload(ctx) }()
	<-st.entered

	updated, err := ctl.Snapshot().ReplaceSubtree(RecordsPath("c2", "v3"), []Record{})
	require.NoError(t, err)
	require.NoError(t, ctl.Handle(ctx, Merge("records", updated, VehicleScope("c2", "v3"))))
	merged := ctl.Rows()
	require.Less(t, len(merged), before)

	close(st.release)
	require.NoError(t, <-done)
	assert.Equal(t, merged, ctl.Rows())

	require.NoError(t, ctl.Reload(ctx))
	assert.Len(t, ctl.Rows(), before)
}

func TestControllerWatchPicksUpTouchedRevision(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	st := seededStore(t)
	ctl := NewController(st, nil, Options{})
	require.NoError(t, ctl.Ensure(ctx))

	reloaded, err := ctl.Refresh(ctx)
	require.NoError(t, err)
	assert.False(t, reloaded)

	go ctl.Watch(ctx, 5*time.Millisecond)

	other := NewController(st, nil, Options{})
	require.NoError(t, st.Store.Remove(ctx, CompanyPath("c2")))
	require.NoError(t, other.Touch(ctx))

	assert.Eventually(t, func() bool {
		return len(ctl.Snapshot().Companies) == 2
	}, time.Second, 5*time.Millisecond)
}

func TestControllerPersistModes(t *testing.T) {
	ctx := context.Background()
	writes := map[string]any{"companies/c1/sort_index": 2, "companies/c2/sort_index": 1}

	st := seededStore(t)
	require.NoError(t, NewController(st, nil, Options{}).Persist(ctx, writes))
	assert.Equal(t, []string{"companies/c1/sort_index", "companies/c2/sort_index"}, st.sets)
	assert.Zero(t, st.updates)

	batched := seededStore(t)
	require.NoError(t, NewController(batched, nil, Options{BatchWrites: true}).Persist(ctx, writes))
	assert.Empty(t, batched.sets)
	assert.Equal(t, 1, batched.updates)

	snap, err := batched.Get(ctx, "companies/c2/sort_index")
	require.NoError(t, err)
	assert.Equal(t, float64(1), snap.Val())
}

func TestControllerPersistWrapsStoreErrors(t *testing.T) {
	st := seededStore(t)
	st.failSet = errors.New("permission denied")
	err := NewController(st, nil, Options{}).Persist(context.Background(), map[string]any{"companies/c1/name": "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrStore)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestRequireConfirmation(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, RequireConfirmation(ctx, Confirmed, "delete?"))
	assert.ErrorIs(t, RequireConfirmation(ctx, Declined, "delete?"), ErrConfirmationRequired)
	assert.ErrorIs(t, RequireConfirmation(ctx, nil, "delete?"), ErrConfirmationRequired)
}

func TestResultReloadSemantics(t *testing.T) {
	assert.True(t, Result{}.NeedsReload())
	assert.True(t, ReloadAll("x").NeedsReload())
	assert.False(t, Merge("x", &Tree{}, ScopeAll).NeedsReload())
}

package catalog

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/servicebook/servicebook/internal/shared"
	"github.com/servicebook/servicebook/internal/store"
)

type entry struct {
	ID    string
	Label string
	Index int
}

func entryCodec(base int, missingFirst bool) Codec[entry] {
	return Codec[entry]{
		Root:         "entries",
		Base:         base,
		MissingFirst: missingFirst,
		Decode: func(id string, raw json.RawMessage) (entry, bool) {
			fields := map[string]json.RawMessage{}
			if err := json.Unmarshal(raw, &fields); err != nil {
				return entry{}, false
			}
			return entry{ID: id, Label: shared.LooseString(fields["label"]), Index: int(shared.LooseFloat(fields["sort_index"]))}, true
		},
		Encode:        func(e entry) any { return map[string]any{"label": e.Label, "sort_index": e.Index} },
		ID:            func(e entry) string { return e.ID },
		SortIndex:     func(e entry) int { return e.Index },
		WithSortIndex: func(e entry, idx int) entry { e.Index = idx; return e },
	}
}

func labels(entries []entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Label
	}
	return out
}

func seed(t *testing.T) store.Store {
	t.Helper()
	st := store.NewMemoryStore()
	require.NoError(t, st.Set(context.Background(), "entries", map[string]any{
		"x": map[string]any{"label": "unindexed"},
		"a": map[string]any{"label": "second", "sort_index": 5},
		"b": map[string]any{"label": "first", "sort_index": 2},
		"z": "garbage",
	}))
	return st
}

func TestLoadOrdering(t *testing.T) {
	ctx := context.Background()
	st := seed(t)

	last, err := NewCollection(st, entryCodec(1, false), false).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "unindexed"}, labels(last))

	first, err := NewCollection(st, entryCodec(0, true), false).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"unindexed", "first", "second"}, labels(first))
}

func TestNormalizeRewritesOnlyChangedEntries(t *testing.T) {
	ctx := context.Background()
	col := NewCollection(seed(t), entryCodec(1, false), true)

	n, err := col.Normalize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	all, err := col.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "unindexed"}, labels(all))
	for i, e := range all {
		assert.Equal(t, i+1, e.Index)
	}

	n, err = col.Normalize(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSaveAllAndMove(t *testing.T) {
	ctx := context.Background()
	col := NewCollection(store.NewMemoryStore(), entryCodec(0, true), false)
	items := []entry{{ID: "a", Label: "A"}, {ID: "b", Label: "B"}, {ID: "c", Label: "C"}}

	moved, ok := col.Move(items, 2, 0)
	require.True(t, ok)
	require.NoError(t, col.SaveAll(ctx, moved))

	all, err := col.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A", "B"}, labels(all))
	assert.Equal(t, 0, all[0].Index)

	_, ok = col.Move(all, 1, 1)
	assert.False(t, ok)
}

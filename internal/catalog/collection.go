// Package catalog persists the flat, orderable catalogs (service items, service groups, vehicle
// types). Collections are id-keyed maps in the store and ordered slices in memory.
package catalog

import (
	"context"
	"encoding/json"
	"math"
	"sort"

	"github.com/servicebook/servicebook/internal/ledger"
	"github.com/servicebook/servicebook/internal/shared"
	"github.com/servicebook/servicebook/internal/store"
)

// ErrDuplicateID is returned when a user-chosen id is already taken.
var ErrDuplicateID = shared.ErrDuplicate

// Codec describes how one catalog maps to and from the store.
type Codec[T any] struct {
	// Root is the collection path ("wash_items").
	Root string
	// Base is the first sort index handed out by Renumber.
	Base int
	// MissingFirst orders entries without a sort index before the others (they read as zero).
	// Otherwise they sort last.
	MissingFirst bool

	Decode        func(id string, raw json.RawMessage) (T, bool)
	Encode        func(T) any
	ID            func(T) string
	SortIndex     func(T) int
	WithSortIndex func(T, int) T
}

// Collection loads and persists one catalog.
type Collection[T any] struct {
	store store.Store
	codec Codec[T]
	batch bool
}

// NewCollection binds codec to st. With batch set, sort index writes go out as one multi-path
// update.
func NewCollection[T any](st store.Store, codec Codec[T], batch bool) *Collection[T] {
	return &Collection[T]{store: st, codec: codec, batch: batch}
}

// Root returns the collection path.
func (c *Collection[T]) Root() string { return c.codec.Root }

// Path returns the path of entry id.
func (c *Collection[T]) Path(id string) string { return store.Join(c.codec.Root, id) }

// Load fetches the collection ordered by sort index, then id. Null and undecodable entries are
// skipped.
func (c *Collection[T]) Load(ctx context.Context) ([]T, error) {
	snap, err := c.store.Get(ctx, c.codec.Root)
	if err != nil {
		return nil, shared.WrapStore("get", c.codec.Root, err)
	}
	entries := shared.KeyedEntries(snap.Raw())
	out := make([]T, 0, len(entries))
	for _, entry := range entries {
		if item, ok := c.codec.Decode(entry.ID, entry.Raw); ok {
			out = append(out, item)
		}
	}
	c.sort(out)
	return out, nil
}

func (c *Collection[T]) sort(items []T) {
	rank := func(idx int) float64 {
		if idx == 0 && !c.codec.MissingFirst {
			return math.Inf(1)
		}
		return float64(idx)
	}
	sort.SliceStable(items, func(i, j int) bool {
		ri, rj := rank(c.codec.SortIndex(items[i])), rank(c.codec.SortIndex(items[j]))
		if ri != rj {
			return ri < rj
		}
		return c.codec.ID(items[i]) < c.codec.ID(items[j])
	})
}

// Find returns the entry with id.
func (c *Collection[T]) Find(ctx context.Context, id string) (T, bool, error) {
	var zero T
	snap, err := c.store.Get(ctx, c.Path(id))
	if err != nil {
		return zero, false, shared.WrapStore("get", c.Path(id), err)
	}
	if !snap.Exists() {
		return zero, false, nil
	}
	item, ok := c.codec.Decode(id, snap.Raw())
	return item, ok, nil
}

// Put writes one entry.
func (c *Collection[T]) Put(ctx context.Context, item T) error {
	path := c.Path(c.codec.ID(item))
	return shared.WrapStore("set", path, c.store.Set(ctx, path, c.codec.Encode(item)))
}

// Delete removes one entry.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	path := c.Path(id)
	return shared.WrapStore("remove", path, c.store.Remove(ctx, path))
}

// NewID allocates a store key for a new entry.
func (c *Collection[T]) NewID(ctx context.Context) (string, error) {
	id, err := c.store.Push(ctx, c.codec.Root)
	return id, shared.WrapStore("push", c.codec.Root, err)
}

// SaveAll overwrites the whole collection as an id-keyed map.
func (c *Collection[T]) SaveAll(ctx context.Context, items []T) error {
	doc := make(map[string]any, len(items))
	for _, item := range items {
		doc[c.codec.ID(item)] = c.codec.Encode(item)
	}
	return shared.WrapStore("set", c.codec.Root, c.store.Set(ctx, c.codec.Root, doc))
}

// Renumber returns a copy of items with sort indices index+Base.
func (c *Collection[T]) Renumber(items []T) []T {
	out := make([]T, len(items))
	for i, item := range items {
		out[i] = c.codec.WithSortIndex(item, i+c.codec.Base)
	}
	return out
}

// WriteSortIndices persists the sort index of every item, one write each unless batching.
func (c *Collection[T]) WriteSortIndices(ctx context.Context, items []T) error {
	writes := make(map[string]any, len(items))
	paths := make([]string, 0, len(items))
	for _, item := range items {
		path := store.Join(c.codec.Root, c.codec.ID(item), "sort_index")
		writes[path] = c.codec.SortIndex(item)
		paths = append(paths, path)
	}
	if c.batch {
		return shared.WrapStore("update", c.codec.Root, c.store.Update(ctx, writes))
	}
	for _, path := range paths {
		if err := c.store.Set(ctx, path, writes[path]); err != nil {
			return shared.WrapStore("set", path, err)
		}
	}
	return nil
}

// Move reorders items (from → to) and renumbers them. It reports false for no-op moves.
func (c *Collection[T]) Move(items []T, from, to int) ([]T, bool) {
	moved, ok := ledger.Move(items, from, to)
	if !ok {
		return items, false
	}
	return c.Renumber(moved), true
}

// Mutation wraps a catalog change in the editor result envelope. Catalog changes never touch the
// ledger tree, so the result asks for neither a reload nor a merge.
func Mutation(source string, entity any) ledger.Result {
	res := ledger.Merge(source, nil, ledger.ScopeAll)
	res.NewEntity = entity
	return res
}

// Normalize renumbers the stored collection densely in its current order and persists the sort
// indices that changed. It returns how many entries were rewritten.
func (c *Collection[T]) Normalize(ctx context.Context) (int, error) {
	all, err := c.Load(ctx)
	if err != nil {
		return 0, err
	}
	renumbered := c.Renumber(all)
	changed := make([]T, 0, len(all))
	for i := range all {
		if c.codec.SortIndex(all[i]) != c.codec.SortIndex(renumbered[i]) {
			changed = append(changed, renumbered[i])
		}
	}
	if len(changed) == 0 {
		return 0, nil
	}
	return len(changed), c.WriteSortIndices(ctx, changed)
}

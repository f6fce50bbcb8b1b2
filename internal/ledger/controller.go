package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/servicebook/servicebook/internal/shared"
	"github.com/servicebook/servicebook/internal/store"
)

// Options configures a Controller.
type Options struct {
	// BatchWrites persists sibling sort indices with one multi-path update instead of one write each.
	BatchWrites bool
	Backfill    BackfillOptions
}

// Observer is notified after every handled mutation result.
type Observer func(Result)

// Controller owns the ledger tree and its flattened view. Editors read snapshots, compute patched
// trees and hand them back through Handle; nothing else replaces the tree.
type Controller struct {
	store  store.Store
	logger *slog.Logger
	opts   Options

	mu     sync.RWMutex
	tree   *Tree
	rows   []FlatRecord
	loaded bool
	// gen advances on every applied reload or merge.
	gen      uint64
	revision string

	reloads   singleflight.Group
	obsMu     sync.RWMutex
	observers []Observer
}

// NewController builds a controller over st. Call Reload (or Ensure) before reading.
func NewController(st store.Store, logger *slog.Logger, opts Options) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		store:  st,
		logger: logger,
		opts:   opts,
		tree:   &Tree{Companies: []Company{}},
	}
}

// Store returns the document store the controller persists into.
func (c *Controller) Store() store.Store {
	return c.store
}

// Subscribe registers an observer for handled results.
func (c *Controller) Subscribe(o Observer) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	c.observers = append(c.observers, o)
}

// Snapshot returns the current tree. Callers must not modify it.
func (c *Controller) Snapshot() *Tree {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tree
}

// Rows returns the current flattened view.
func (c *Controller) Rows() []FlatRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]FlatRecord, len(c.rows))
	copy(out, c.rows)
	return out
}

// Query returns the flattened rows matching f.
func (c *Controller) Query(f Filter) []FlatRecord {
	return f.Apply(c.Rows())
}

// Ensure loads the tree once.
func (c *Controller) Ensure(ctx context.Context) error {
	c.mu.RLock()
	loaded := c.loaded
	c.mu.RUnlock()
	if loaded {
		return nil
	}
	return c.Reload(ctx)
}

// Reload fetches the whole companies document, backfills missing record timestamps and rebuilds the
// flattened view. Concurrent calls share one fetch. A fetch that raced with a merge is discarded so
// the merged state is not overwritten; the stored revision stays unacknowledged and the next Refresh
// retries.
func (c *Controller) Reload(ctx context.Context) error {
	_, err, _ := c.reloads.Do("reload", func() (any, error) {
		return nil, c.reload(ctx)
	})
	return err
}

func (c *Controller) reload(ctx context.Context) error {
	c.mu.RLock()
	gen := c.gen
	c.mu.RUnlock()

	revision, err := c.storedRevision(ctx)
	if err != nil {
		return err
	}
	snap, err := c.store.Get(ctx, CompaniesPath)
	if err != nil {
		return shared.WrapStore("get", CompaniesPath, err)
	}
	tree, changed := BackfillTimestamps(Load(snap.Raw()), c.opts.Backfill)
	if err := c.writeBackfill(ctx, tree, changed); err != nil {
		c.logger.Warn("timestamp backfill not persisted", slog.Any("error", err))
	}

	rows := Flatten(tree)
	c.mu.Lock()
	if c.loaded && c.gen != gen {
		c.mu.Unlock()
		c.logger.Debug("ledger reload discarded after concurrent merge")
		return nil
	}
	c.tree = tree
	c.rows = rows
	c.loaded = true
	c.revision = revision
	c.gen++
	c.mu.Unlock()

	c.logger.Debug("ledger reloaded",
		slog.Int("companies", len(tree.Companies)),
		slog.Int("records", len(rows)),
		slog.Int("backfilled_vehicles", len(changed)),
	)
	return nil
}

// Backfill re-runs timestamp backfill against the stored tree and returns how many vehicles were
// corrected. A second run reports zero.
func (c *Controller) Backfill(ctx context.Context) (int, error) {
	snap, err := c.store.Get(ctx, CompaniesPath)
	if err != nil {
		return 0, shared.WrapStore("get", CompaniesPath, err)
	}
	tree, changed := BackfillTimestamps(Load(snap.Raw()), c.opts.Backfill)
	if err := c.writeBackfill(ctx, tree, changed); err != nil {
		return 0, err
	}
	return len(changed), nil
}

func (c *Controller) writeBackfill(ctx context.Context, tree *Tree, changed []VehicleRef) error {
	for _, ref := range changed {
		vehicle, _, ok := tree.Vehicle(ref.CompanyID, ref.VehicleID)
		if !ok {
			continue
		}
		path := RecordsPath(ref.CompanyID, ref.VehicleID)
		if err := c.store.Set(ctx, path, vehicle.Records); err != nil {
			return shared.WrapStore("set", path, err)
		}
	}
	return nil
}

// Handle applies an editor result: a full reload, or a merge of the result's tree within its scope
// followed by a partial re-flatten.
func (c *Controller) Handle(ctx context.Context, res Result) error {
	defer c.notify(res)
	if res.NeedsReload() || res.UpdatedTree == nil {
		return c.Reload(ctx)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	merged, err := c.tree.Graft(res.UpdatedTree, res.Scope)
	if err != nil {
		return fmt.Errorf("ledger: merge %s from %s: %w", res.Scope, res.Source, err)
	}
	c.rows = Reflatten(c.rows, merged, res.Scope)
	c.tree = merged
	c.gen++
	return nil
}

// Touch records a new stored revision. Processes that rewrite the stored ledger behind other
// controllers' backs call it so those controllers pick the change up on their next Refresh.
func (c *Controller) Touch(ctx context.Context) error {
	if err := c.store.Set(ctx, RevisionPath, uuid.NewString()); err != nil {
		return shared.WrapStore("set", RevisionPath, err)
	}
	return nil
}

// Refresh reloads when the stored revision differs from the one seen by the last applied reload.
// It reports whether a reload ran.
func (c *Controller) Refresh(ctx context.Context) (bool, error) {
	revision, err := c.storedRevision(ctx)
	if err != nil {
		return false, err
	}
	c.mu.RLock()
	current := c.loaded && revision == c.revision
	c.mu.RUnlock()
	if current {
		return false, nil
	}
	return true, c.Reload(ctx)
}

// Watch calls Refresh every interval until ctx is done.
func (c *Controller) Watch(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reloaded, err := c.Refresh(ctx)
			if err != nil {
				c.logger.Warn("ledger refresh failed", slog.Any("error", err))
				continue
			}
			if reloaded {
				c.logger.Info("ledger refreshed from store")
			}
		}
	}
}

func (c *Controller) storedRevision(ctx context.Context) (string, error) {
	snap, err := c.store.Get(ctx, RevisionPath)
	if err != nil {
		return "", shared.WrapStore("get", RevisionPath, err)
	}
	if !snap.Exists() {
		return "", nil
	}
	var revision string
	if err := snap.Decode(&revision); err != nil {
		return "", fmt.Errorf("ledger: decode %s: %w", RevisionPath, err)
	}
	return revision, nil
}

func (c *Controller) notify(res Result) {
	c.obsMu.RLock()
	observers := append([]Observer(nil), c.observers...)
	c.obsMu.RUnlock()
	for _, o := range observers {
		o(res)
	}
}

// Persist writes values to the store: one Set per path in path order, or a single Update when
// batching is enabled. The first failure stops the remaining writes.
func (c *Controller) Persist(ctx context.Context, values map[string]any) error {
	if len(values) == 0 {
		return nil
	}
	if c.opts.BatchWrites {
		return shared.WrapStore("update", fmt.Sprintf("%d paths", len(values)), c.store.Update(ctx, values))
	}
	paths := make([]string, 0, len(values))
	for p := range values {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		if err := c.store.Set(ctx, p, values[p]); err != nil {
			return shared.WrapStore("set", p, err)
		}
	}
	return nil
}

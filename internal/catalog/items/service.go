package items

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/servicebook/servicebook/internal/catalog"
	"github.com/servicebook/servicebook/internal/ledger"
	"github.com/servicebook/servicebook/internal/shared"
	"github.com/servicebook/servicebook/internal/store"
)

// GroupCleaner drops a deleted item from every group that lists it.
type GroupCleaner interface {
	RemoveItemEverywhere(ctx context.Context, itemID string) error
}

// Service edits the service item catalog.
type Service struct {
	col    *catalog.Collection[Item]
	groups GroupCleaner
	logger *slog.Logger
	now    func() time.Time
	fold   cases.Caser
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the clock used for generated ids.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithGroupCleanup removes deleted items from groups. Without it groups keep dangling ids, which
// are skipped when groups are resolved.
func WithGroupCleanup(groups GroupCleaner) Option {
	return func(s *Service) { s.groups = groups }
}

// NewService constructs the item catalog editor.
func NewService(st store.Store, batch bool, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		col:    catalog.NewCollection(st, Codec, batch),
		logger: logger,
		now:    time.Now,
		fold:   cases.Fold(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns all items in display order.
func (s *Service) List(ctx context.Context) ([]Item, error) {
	return s.col.Load(ctx)
}

// Search returns the items whose name or id contains q, ignoring case. An empty q matches all.
func (s *Service) Search(ctx context.Context, q string) ([]Item, error) {
	all, err := s.col.Load(ctx)
	if err != nil {
		return nil, err
	}
	needle := s.fold.String(strings.TrimSpace(q))
	if needle == "" {
		return all, nil
	}
	out := make([]Item, 0, len(all))
	for _, it := range all {
		if strings.Contains(s.fold.String(it.Name), needle) || strings.Contains(s.fold.String(it.ID), needle) {
			out = append(out, it)
		}
	}
	return out, nil
}

// Get returns item id.
func (s *Service) Get(ctx context.Context, id string) (Item, error) {
	it, ok, err := s.col.Find(ctx, id)
	if err != nil {
		return Item{}, err
	}
	if !ok {
		return Item{}, fmt.Errorf("items: %s: %w", id, shared.ErrNotFound)
	}
	return it, nil
}

// Find resolves id to its current name and price. Missing ids report ok=false.
func (s *Service) Find(ctx context.Context, id string) (string, float64, bool, error) {
	it, ok, err := s.col.Find(ctx, id)
	if err != nil || !ok {
		return "", 0, false, err
	}
	return it.Name, it.Price, true, nil
}

// Create adds an item at the end of the catalog.
func (s *Service) Create(ctx context.Context, in ItemInput) (Item, error) {
	in = in.normalized()
	if err := validate(in); err != nil {
		return Item{}, err
	}
	all, err := s.col.Load(ctx)
	if err != nil {
		return Item{}, err
	}
	id := in.ID
	if id == "" {
		id = strconv.FormatInt(s.now().UnixMilli(), 10)
	}
	for _, existing := range all {
		if existing.ID == id {
			return Item{}, fmt.Errorf("items: id %q: %w", id, catalog.ErrDuplicateID)
		}
	}
	it := Item{ID: id, Name: in.Name, Price: *in.Price, SortIndex: len(all) + 1}
	if err := s.col.Put(ctx, it); err != nil {
		s.logger.Error("save item failed", slog.String("item_id", id), slog.Any("error", err))
		return Item{}, err
	}
	return it, nil
}

// Update changes the name and price of item id. Records already written keep their snapshot.
func (s *Service) Update(ctx context.Context, id string, in ItemInput) (Item, error) {
	in = in.normalized()
	in.ID = ""
	if err := validate(in); err != nil {
		return Item{}, err
	}
	it, err := s.Get(ctx, id)
	if err != nil {
		return Item{}, err
	}
	it.Name = in.Name
	it.Price = *in.Price
	if err := s.col.Put(ctx, it); err != nil {
		s.logger.Error("save item failed", slog.String("item_id", id), slog.Any("error", err))
		return Item{}, err
	}
	return it, nil
}

// Delete removes item id once confirmed.
func (s *Service) Delete(ctx context.Context, id string, confirm ledger.Confirmer) error {
	it, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := ledger.RequireConfirmation(ctx, confirm, fmt.Sprintf("Delete service item %q?", it.Name)); err != nil {
		return err
	}
	if err := s.col.Delete(ctx, id); err != nil {
		s.logger.Error("delete item failed", slog.String("item_id", id), slog.Any("error", err))
		return err
	}
	if s.groups != nil {
		if err := s.groups.RemoveItemEverywhere(ctx, id); err != nil {
			s.logger.Warn("group cleanup failed", slog.String("item_id", id), slog.Any("error", err))
			return err
		}
	}
	return nil
}

// Reorder moves the item at from to position to and persists the dense renumbering.
func (s *Service) Reorder(ctx context.Context, in ReorderInput) ([]Item, error) {
	if err := shared.ValidateStruct(in); err != nil {
		return nil, err
	}
	all, err := s.col.Load(ctx)
	if err != nil {
		return nil, err
	}
	moved, ok := s.col.Move(all, in.From, in.To)
	if !ok {
		return all, nil
	}
	if err := s.col.WriteSortIndices(ctx, moved); err != nil {
		s.logger.Error("persist item order failed", slog.Any("error", err))
		return moved, err
	}
	return moved, nil
}

// Normalize renumbers the catalog densely, keeping its order.
func (s *Service) Normalize(ctx context.Context) (int, error) {
	return s.col.Normalize(ctx)
}

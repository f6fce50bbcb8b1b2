package groups

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/servicebook/servicebook/internal/catalog"
	"github.com/servicebook/servicebook/internal/catalog/items"
	"github.com/servicebook/servicebook/internal/ledger"
	"github.com/servicebook/servicebook/internal/shared"
	"github.com/servicebook/servicebook/internal/store"
)

// ItemSource lists the service items groups refer to.
type ItemSource interface {
	List(ctx context.Context) ([]items.Item, error)
}

// Service edits service groups.
type Service struct {
	col    *catalog.Collection[Group]
	items  ItemSource
	logger *slog.Logger
}

// NewService constructs the group editor. items may be nil, in which case membership is not
// checked against the item catalog and ResolveItems returns nothing.
func NewService(st store.Store, batch bool, source ItemSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{col: catalog.NewCollection(st, Codec, batch), items: source, logger: logger}
}

// List returns all groups in display order.
func (s *Service) List(ctx context.Context) ([]Group, error) {
	return s.col.Load(ctx)
}

// Get returns group id.
func (s *Service) Get(ctx context.Context, id string) (Group, error) {
	g, ok, err := s.col.Find(ctx, id)
	if err != nil {
		return Group{}, err
	}
	if !ok {
		return Group{}, fmt.Errorf("groups: %s: %w", id, shared.ErrNotFound)
	}
	return g, nil
}

// Create appends an empty group.
func (s *Service) Create(ctx context.Context, in GroupInput) (Group, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := shared.ValidateStruct(in); err != nil {
		return Group{}, err
	}
	all, err := s.col.Load(ctx)
	if err != nil {
		return Group{}, err
	}
	id, err := s.col.NewID(ctx)
	if err != nil {
		return Group{}, err
	}
	g := Group{ID: id, Name: in.Name, Items: []string{}, SortIndex: len(all) + Codec.Base}
	if err := s.col.Put(ctx, g); err != nil {
		s.logger.Error("save group failed", slog.String("group_id", id), slog.Any("error", err))
		return Group{}, err
	}
	return g, nil
}

// Rename changes the name of group id.
func (s *Service) Rename(ctx context.Context, id string, in GroupInput) (Group, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := shared.ValidateStruct(in); err != nil {
		return Group{}, err
	}
	g, err := s.Get(ctx, id)
	if err != nil {
		return Group{}, err
	}
	g.Name = in.Name
	return g, s.save(ctx, g)
}

// Delete removes group id once confirmed. The items themselves are kept.
func (s *Service) Delete(ctx context.Context, id string, confirm ledger.Confirmer) error {
	g, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := ledger.RequireConfirmation(ctx, confirm, fmt.Sprintf("Delete group %q?", g.Name)); err != nil {
		return err
	}
	if err := s.col.Delete(ctx, id); err != nil {
		s.logger.Error("delete group failed", slog.String("group_id", id), slog.Any("error", err))
		return err
	}
	return nil
}

// AddItem adds itemID to group id. Adding an item already in the group changes nothing.
func (s *Service) AddItem(ctx context.Context, id, itemID string) (Group, error) {
	g, err := s.Get(ctx, id)
	if err != nil {
		return Group{}, err
	}
	if g.Has(itemID) {
		return g, nil
	}
	if s.items != nil {
		known, err := s.itemIndex(ctx)
		if err != nil {
			return Group{}, err
		}
		if _, ok := known[itemID]; !ok {
			return Group{}, fmt.Errorf("groups: item %s: %w", itemID, shared.ErrNotFound)
		}
	}
	g.Items = append(append([]string{}, g.Items...), itemID)
	return g, s.save(ctx, g)
}

// RemoveItem drops itemID from group id.
func (s *Service) RemoveItem(ctx context.Context, id, itemID string) (Group, error) {
	g, err := s.Get(ctx, id)
	if err != nil {
		return Group{}, err
	}
	if !g.Has(itemID) {
		return g, nil
	}
	g.Items = without(g.Items, itemID)
	return g, s.save(ctx, g)
}

// RemoveItemEverywhere drops itemID from every group listing it.
func (s *Service) RemoveItemEverywhere(ctx context.Context, itemID string) error {
	all, err := s.col.Load(ctx)
	if err != nil {
		return err
	}
	for _, g := range all {
		if !g.Has(itemID) {
			continue
		}
		g.Items = without(g.Items, itemID)
		if err := s.save(ctx, g); err != nil {
			return err
		}
	}
	return nil
}

// ResolveItems returns the items of group id in group order. Ids with no matching item are
// skipped.
func (s *Service) ResolveItems(ctx context.Context, id string) ([]items.Item, error) {
	g, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	out := []items.Item{}
	if s.items == nil {
		return out, nil
	}
	known, err := s.itemIndex(ctx)
	if err != nil {
		return nil, err
	}
	for _, itemID := range g.Items {
		if it, ok := known[itemID]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

// Reorder moves the group at from to position to and rewrites the whole collection.
func (s *Service) Reorder(ctx context.Context, in ReorderInput) ([]Group, error) {
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
	if err := s.col.SaveAll(ctx, moved); err != nil {
		s.logger.Error("persist group order failed", slog.Any("error", err))
		return moved, err
	}
	return moved, nil
}

func (s *Service) save(ctx context.Context, g Group) error {
	if err := s.col.Put(ctx, g); err != nil {
		s.logger.Error("save group failed", slog.String("group_id", g.ID), slog.Any("error", err))
		return err
	}
	return nil
}

func (s *Service) itemIndex(ctx context.Context) (map[string]items.Item, error) {
	all, err := s.items.List(ctx)
	if err != nil {
		return nil, err
	}
	index := make(map[string]items.Item, len(all))
	for _, it := range all {
		index[it.ID] = it
	}
	return index, nil
}

func without(ids []string, drop string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}

// Normalize renumbers the catalog densely, keeping its order.
func (s *Service) Normalize(ctx context.Context) (int, error) {
	return s.col.Normalize(ctx)
}

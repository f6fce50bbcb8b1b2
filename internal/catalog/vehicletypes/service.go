package vehicletypes

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/servicebook/servicebook/internal/catalog"
	"github.com/servicebook/servicebook/internal/ledger"
	"github.com/servicebook/servicebook/internal/shared"
	"github.com/servicebook/servicebook/internal/store"
)

// TypeInput names a vehicle type.
type TypeInput struct {
	Name string `json:"name" validate:"notblank"`
}

// ReorderInput moves the type at From to position To.
type ReorderInput struct {
	From int `json:"from" validate:"gte=0"`
	To   int `json:"to" validate:"gte=0"`
}

// Service edits vehicle types.
type Service struct {
	col    *catalog.Collection[VehicleType]
	logger *slog.Logger
}

// NewService constructs the vehicle type editor.
func NewService(st store.Store, batch bool, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{col: catalog.NewCollection(st, Codec, batch), logger: logger}
}

// List returns all types in display order.
func (s *Service) List(ctx context.Context) ([]VehicleType, error) {
	return s.col.Load(ctx)
}

// Create appends a type. Names are unique, ignoring case.
func (s *Service) Create(ctx context.Context, in TypeInput) (VehicleType, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := shared.ValidateStruct(in); err != nil {
		return VehicleType{}, err
	}
	all, err := s.col.Load(ctx)
	if err != nil {
		return VehicleType{}, err
	}
	if err := checkUnique(all, "", in.Name); err != nil {
		return VehicleType{}, err
	}
	id, err := s.col.NewID(ctx)
	if err != nil {
		return VehicleType{}, err
	}
	vt := VehicleType{ID: id, Name: in.Name, SortIndex: len(all) + 1}
	if err := s.col.Put(ctx, vt); err != nil {
		s.logger.Error("save vehicle type failed", slog.String("type_id", id), slog.Any("error", err))
		return VehicleType{}, err
	}
	return vt, nil
}

// Rename changes the name of type id. Vehicles keep the type text they were saved with.
func (s *Service) Rename(ctx context.Context, id string, in TypeInput) (VehicleType, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := shared.ValidateStruct(in); err != nil {
		return VehicleType{}, err
	}
	all, err := s.col.Load(ctx)
	if err != nil {
		return VehicleType{}, err
	}
	vt, ok := find(all, id)
	if !ok {
		return VehicleType{}, fmt.Errorf("vehicletypes: %s: %w", id, shared.ErrNotFound)
	}
	if err := checkUnique(all, id, in.Name); err != nil {
		return VehicleType{}, err
	}
	vt.Name = in.Name
	if err := s.col.Put(ctx, vt); err != nil {
		s.logger.Error("save vehicle type failed", slog.String("type_id", id), slog.Any("error", err))
		return VehicleType{}, err
	}
	return vt, nil
}

// Delete removes type id once confirmed.
func (s *Service) Delete(ctx context.Context, id string, confirm ledger.Confirmer) error {
	vt, ok, err := s.col.Find(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("vehicletypes: %s: %w", id, shared.ErrNotFound)
	}
	if err := ledger.RequireConfirmation(ctx, confirm, fmt.Sprintf("Delete vehicle type %q?", vt.Name)); err != nil {
		return err
	}
	return s.col.Delete(ctx, id)
}

// Reorder moves the type at from to position to and persists the dense renumbering.
func (s *Service) Reorder(ctx context.Context, in ReorderInput) ([]VehicleType, error) {
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
		s.logger.Error("persist vehicle type order failed", slog.Any("error", err))
		return moved, err
	}
	return moved, nil
}

func find(all []VehicleType, id string) (VehicleType, bool) {
	for _, vt := range all {
		if vt.ID == id {
			return vt, true
		}
	}
	return VehicleType{}, false
}

func checkUnique(all []VehicleType, self, name string) error {
	for _, vt := range all {
		if vt.ID != self && strings.EqualFold(vt.Name, name) {
			return fmt.Errorf("vehicletypes: name %q: %w", name, shared.ErrDuplicate)
		}
	}
	return nil
}

// Normalize renumbers the catalog densely, keeping its order.
func (s *Service) Normalize(ctx context.Context) (int, error) {
	return s.col.Normalize(ctx)
}

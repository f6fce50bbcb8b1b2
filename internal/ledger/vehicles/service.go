// Package vehicles is the vehicle editor of a single company.
package vehicles

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/servicebook/servicebook/internal/ledger"
	"github.com/servicebook/servicebook/internal/shared"
)

// Source identifies this editor in mutation results.
const Source = "vehicles"

// Service edits vehicles.
type Service struct {
	ctl    *ledger.Controller
	logger *slog.Logger
}

// NewService constructs a vehicle editor.
func NewService(ctl *ledger.Controller, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{ctl: ctl, logger: logger}
}

func (s *Service) company(ctx context.Context, cid string) (*ledger.Tree, ledger.Company, error) {
	if err := s.ctl.Ensure(ctx); err != nil {
		return nil, ledger.Company{}, err
	}
	snap := s.ctl.Snapshot()
	company, _, ok := snap.Company(cid)
	if !ok {
		return nil, ledger.Company{}, fmt.Errorf("vehicles: company %s: %w", cid, ledger.ErrNotFound)
	}
	return snap, company, nil
}

// List returns the vehicles of company cid in display order.
func (s *Service) List(ctx context.Context, cid string) ([]ledger.Vehicle, error) {
	_, company, err := s.company(ctx, cid)
	if err != nil {
		return nil, err
	}
	return company.Vehicles, nil
}

// Create adds a vehicle at the end of the company's list.
func (s *Service) Create(ctx context.Context, cid string, in VehicleInput) (ledger.Result, error) {
	in = in.normalized()
	snap, company, err := s.company(ctx, cid)
	if err != nil {
		return ledger.Result{}, err
	}
	if err := validate(in, company, ""); err != nil {
		return ledger.Result{}, err
	}

	id, err := s.ctl.Store().Push(ctx, ledger.VehiclesPath(cid))
	if err != nil {
		return ledger.Result{}, shared.WrapStore("push", ledger.VehiclesPath(cid), err)
	}
	vehicle := ledger.Vehicle{
		ID:        id,
		Plate:     in.Plate,
		Type:      in.Type,
		Remarks:   in.Remarks,
		SortIndex: len(company.Vehicles) + 1,
		Records:   []ledger.Record{},
	}
	return s.save(ctx, snap, cid, vehicle)
}

// Update overwrites the editable fields of a vehicle. Records and sort order are kept.
func (s *Service) Update(ctx context.Context, cid, vid string, in VehicleInput) (ledger.Result, error) {
	in = in.normalized()
	snap, company, err := s.company(ctx, cid)
	if err != nil {
		return ledger.Result{}, err
	}
	vehicle, _, ok := company.Vehicle(vid)
	if !ok {
		return ledger.Result{}, fmt.Errorf("vehicles: %s/%s: %w", cid, vid, ledger.ErrNotFound)
	}
	if err := validate(in, company, vid); err != nil {
		return ledger.Result{}, err
	}
	vehicle.Plate = in.Plate
	vehicle.Type = in.Type
	vehicle.Remarks = in.Remarks
	return s.save(ctx, snap, cid, vehicle)
}

func (s *Service) save(ctx context.Context, snap *ledger.Tree, cid string, vehicle ledger.Vehicle) (ledger.Result, error) {
	path := ledger.VehiclePath(cid, vehicle.ID)
	if err := s.ctl.Store().Set(ctx, path, vehicle.Doc()); err != nil {
		s.logger.Error("save vehicle failed", slog.String("source", Source), slog.String("path", path), slog.Any("error", err))
		return ledger.Result{}, shared.WrapStore("set", path, err)
	}
	updated, err := snap.ReplaceSubtree(path, vehicle)
	if err != nil {
		return ledger.Result{}, err
	}
	res := ledger.Merge(Source, updated, ledger.VehicleScope(cid, vehicle.ID))
	res.NewEntity = vehicle
	res.ShouldResetForm = true
	return res, s.ctl.Handle(ctx, res)
}

// Delete removes a vehicle and all its records, then renumbers the remaining vehicles.
func (s *Service) Delete(ctx context.Context, cid, vid string, confirm ledger.Confirmer) (ledger.Result, error) {
	snap, company, err := s.company(ctx, cid)
	if err != nil {
		return ledger.Result{}, err
	}
	vehicle, _, ok := company.Vehicle(vid)
	if !ok {
		return ledger.Result{}, fmt.Errorf("vehicles: %s/%s: %w", cid, vid, ledger.ErrNotFound)
	}
	prompt := fmt.Sprintf("Delete %q? This also deletes all of its records.", vehicle.Plate)
	if err := ledger.RequireConfirmation(ctx, confirm, prompt); err != nil {
		return ledger.Result{}, err
	}

	path := ledger.VehiclePath(cid, vid)
	if err := s.ctl.Store().Remove(ctx, path); err != nil {
		s.logger.Error("delete vehicle failed", slog.String("source", Source), slog.String("path", path), slog.Any("error", err))
		return ledger.Result{}, shared.WrapStore("remove", path, err)
	}

	updated, err := snap.ReplaceSubtree(path, nil)
	if err != nil {
		return ledger.Result{}, err
	}
	remaining, _, _ := updated.Company(cid)
	remaining = cloneCompany(remaining)
	ledger.Renumber(remaining.Vehicles, ledger.BaseOne, func(v *ledger.Vehicle, idx int) { v.SortIndex = idx })
	updated, err = updated.ReplaceSubtree(ledger.CompanyPath(cid), remaining)
	if err != nil {
		return ledger.Result{}, err
	}

	res := ledger.Merge(Source, updated, ledger.CompanyScope(cid))
	if err := s.ctl.Handle(ctx, res); err != nil {
		return ledger.Result{}, err
	}
	writes := ledger.SortWrites(ledger.VehiclesPath(cid), remaining.Vehicles, func(v ledger.Vehicle) (string, int) { return v.ID, v.SortIndex })
	if err := s.ctl.Persist(ctx, writes); err != nil {
		s.logger.Error("renumber vehicles failed", slog.String("source", Source), slog.String("company_id", cid), slog.Any("error", err))
		return res, err
	}
	return res, nil
}

// Reorder moves a vehicle within its company and persists the dense renumbering.
func (s *Service) Reorder(ctx context.Context, cid string, in ReorderInput) (ledger.Result, error) {
	if err := shared.ValidateStruct(in); err != nil {
		return ledger.Result{}, err
	}
	snap, _, err := s.company(ctx, cid)
	if err != nil {
		return ledger.Result{}, err
	}
	updated, writes, ok, err := ledger.ReorderVehicles(snap, cid, in.From, in.To)
	if err != nil {
		return ledger.Result{}, err
	}
	if !ok {
		return ledger.Merge(Source, nil, ledger.CompanyScope(cid)), nil
	}
	res := ledger.Merge(Source, updated, ledger.CompanyScope(cid))
	if err := s.ctl.Handle(ctx, res); err != nil {
		return ledger.Result{}, err
	}
	if err := s.ctl.Persist(ctx, writes); err != nil {
		s.logger.Error("persist vehicle order failed", slog.String("source", Source), slog.String("company_id", cid), slog.Any("error", err))
		return res, err
	}
	return res, nil
}

func cloneCompany(c ledger.Company) ledger.Company {
	vehicles := make([]ledger.Vehicle, len(c.Vehicles))
	copy(vehicles, c.Vehicles)
	c.Vehicles = vehicles
	return c
}

// Package companies is the company editor: create, update, delete and reorder companies.
package companies

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/servicebook/servicebook/internal/ledger"
	"github.com/servicebook/servicebook/internal/shared"
)

// Source identifies this editor in mutation results.
const Source = "companies"

// Service edits the companies of the ledger.
type Service struct {
	ctl    *ledger.Controller
	logger *slog.Logger
}

// NewService constructs a company editor.
func NewService(ctl *ledger.Controller, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{ctl: ctl, logger: logger}
}

// List returns the companies in display order.
func (s *Service) List(ctx context.Context) ([]ledger.Company, error) {
	if err := s.ctl.Ensure(ctx); err != nil {
		return nil, err
	}
	return s.ctl.Snapshot().Companies, nil
}

// Create allocates a new company at the end of the list.
func (s *Service) Create(ctx context.Context, in CompanyInput) (ledger.Result, error) {
	in = in.normalized()
	if err := validate(in); err != nil {
		return ledger.Result{}, err
	}
	if err := s.ctl.Ensure(ctx); err != nil {
		return ledger.Result{}, err
	}
	snap := s.ctl.Snapshot()

	id, err := s.ctl.Store().Push(ctx, ledger.CompaniesPath)
	if err != nil {
		return ledger.Result{}, shared.WrapStore("push", ledger.CompaniesPath, err)
	}
	company := ledger.Company{
		ID:        id,
		Name:      in.Name,
		TaxID:     in.TaxID,
		Phone:     in.Phone,
		Address:   in.Address,
		SortIndex: len(snap.Companies) + 1,
		Vehicles:  []ledger.Vehicle{},
	}
	if err := s.write(ctx, company); err != nil {
		return ledger.Result{}, err
	}

	updated, err := snap.ReplaceSubtree(ledger.CompanyPath(id), company)
	if err != nil {
		return ledger.Result{}, err
	}
	res := ledger.Merge(Source, updated, ledger.CompanyScope(id))
	res.NewEntity = company
	res.ShouldResetForm = true
	return res, s.ctl.Handle(ctx, res)
}

// Update overwrites the editable fields of company id. Vehicles and sort order are kept.
func (s *Service) Update(ctx context.Context, id string, in CompanyInput) (ledger.Result, error) {
	in = in.normalized()
	if err := validate(in); err != nil {
		return ledger.Result{}, err
	}
	if err := s.ctl.Ensure(ctx); err != nil {
		return ledger.Result{}, err
	}
	snap := s.ctl.Snapshot()
	company, _, ok := snap.Company(id)
	if !ok {
		return ledger.Result{}, fmt.Errorf("companies: %s: %w", id, ledger.ErrNotFound)
	}
	company.Name = in.Name
	company.TaxID = in.TaxID
	company.Phone = in.Phone
	company.Address = in.Address
	if err := s.write(ctx, company); err != nil {
		return ledger.Result{}, err
	}

	updated, err := snap.ReplaceSubtree(ledger.CompanyPath(id), company)
	if err != nil {
		return ledger.Result{}, err
	}
	res := ledger.Merge(Source, updated, ledger.CompanyScope(id))
	res.NewEntity = company
	res.ShouldResetForm = true
	return res, s.ctl.Handle(ctx, res)
}

// Delete removes company id with all its vehicles and records, then renumbers the remaining
// companies.
func (s *Service) Delete(ctx context.Context, id string, confirm ledger.Confirmer) (ledger.Result, error) {
	if err := s.ctl.Ensure(ctx); err != nil {
		return ledger.Result{}, err
	}
	snap := s.ctl.Snapshot()
	company, _, ok := snap.Company(id)
	if !ok {
		return ledger.Result{}, fmt.Errorf("companies: %s: %w", id, ledger.ErrNotFound)
	}
	prompt := fmt.Sprintf("Delete %q? This also deletes all of its vehicles and records.", company.Name)
	if err := ledger.RequireConfirmation(ctx, confirm, prompt); err != nil {
		return ledger.Result{}, err
	}

	path := ledger.CompanyPath(id)
	if err := s.ctl.Store().Remove(ctx, path); err != nil {
		s.logger.Error("delete company failed", slog.String("source", Source), slog.String("company_id", id), slog.Any("error", err))
		return ledger.Result{}, shared.WrapStore("remove", path, err)
	}

	updated, err := snap.ReplaceSubtree(path, nil)
	if err != nil {
		return ledger.Result{}, err
	}
	updated = updated.Clone()
	ledger.Renumber(updated.Companies, ledger.BaseOne, func(c *ledger.Company, idx int) { c.SortIndex = idx })

	res := ledger.Merge(Source, updated, ledger.ScopeAll)
	res.ShouldClearFilters = true
	if err := s.ctl.Handle(ctx, res); err != nil {
		return ledger.Result{}, err
	}
	writes := ledger.SortWrites(ledger.CompaniesPath, updated.Companies, func(c ledger.Company) (string, int) { return c.ID, c.SortIndex })
	if err := s.ctl.Persist(ctx, writes); err != nil {
		s.logger.Error("renumber companies failed", slog.String("source", Source), slog.Any("error", err))
		return res, err
	}
	return res, nil
}

// Reorder moves the company at from to position to and persists the dense renumbering. The local
// tree is updated first and is not rolled back when persisting fails.
func (s *Service) Reorder(ctx context.Context, in ReorderInput) (ledger.Result, error) {
	if err := shared.ValidateStruct(in); err != nil {
		return ledger.Result{}, err
	}
	if err := s.ctl.Ensure(ctx); err != nil {
		return ledger.Result{}, err
	}
	updated, writes, ok := ledger.ReorderCompanies(s.ctl.Snapshot(), in.From, in.To)
	if !ok {
		return ledger.Merge(Source, nil, ledger.ScopeAll), nil
	}
	res := ledger.Merge(Source, updated, ledger.ScopeAll)
	if err := s.ctl.Handle(ctx, res); err != nil {
		return ledger.Result{}, err
	}
	if err := s.ctl.Persist(ctx, writes); err != nil {
		s.logger.Error("persist company order failed", slog.String("source", Source), slog.Any("error", err))
		return res, err
	}
	return res, nil
}

func (s *Service) write(ctx context.Context, company ledger.Company) error {
	path := ledger.CompanyPath(company.ID)
	if err := s.ctl.Store().Set(ctx, path, company.Doc()); err != nil {
		s.logger.Error("save company failed", slog.String("source", Source), slog.String("company_id", company.ID), slog.Any("error", err))
		return shared.WrapStore("set", path, err)
	}
	return nil
}

// Package records is the record editor and the filtered record listing.
package records

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/servicebook/servicebook/internal/ledger"
	"github.com/servicebook/servicebook/internal/shared"
)

// Source identifies this editor in mutation results.
const Source = "records"

// Service edits the records of one vehicle and lists the flattened view.
type Service struct {
	ctl     *ledger.Controller
	catalog ItemCatalog
	logger  *slog.Logger
	now     func() time.Time
	perPage int
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the clock used for new timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPageSize sets the default page size of List.
func WithPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.perPage = n
		}
	}
}

// NewService constructs a record editor. catalog may be nil, in which case item names and prices
// are taken as submitted.
func NewService(ctl *ledger.Controller, catalog ItemCatalog, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{ctl: ctl, catalog: catalog, logger: logger, now: time.Now, perPage: shared.DefaultPerPage}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Query selects a page of the flattened view.
type Query struct {
	Filter  ledger.Filter
	Page    int
	PerPage int
	// PrevKey is the filter key of the page the caller is looking at. When the filter changed, the
	// listing restarts at page one.
	PrevKey string
}

// Page is one page of filtered records plus the totals of every filtered record.
type Page struct {
	Records    []ledger.FlatRecord `json:"records"`
	Pagination shared.Pagination   `json:"pagination"`
	Totals     ledger.Totals       `json:"totals"`
	FilterKey  string              `json:"filter_key"`
}

// Filtered returns every row matching f.
func (s *Service) Filtered(ctx context.Context, f ledger.Filter) ([]ledger.FlatRecord, error) {
	if err := s.ctl.Ensure(ctx); err != nil {
		return nil, err
	}
	return s.ctl.Query(f), nil
}

// List returns the requested page of filtered records.
func (s *Service) List(ctx context.Context, q Query) (Page, error) {
	rows, err := s.Filtered(ctx, q.Filter)
	if err != nil {
		return Page{}, err
	}
	perPage := q.PerPage
	if perPage <= 0 {
		perPage = s.perPage
	}
	page := ledger.ResolvePage(q.Page, q.PrevKey, q.Filter)
	items, meta := shared.Paginate(rows, page, perPage)
	return Page{
		Records:    items,
		Pagination: meta,
		Totals:     ledger.Summarize(rows),
		FilterKey:  q.Filter.Key(),
	}, nil
}

func (s *Service) vehicle(ctx context.Context, cid, vid string) (*ledger.Tree, ledger.Vehicle, error) {
	if err := s.ctl.Ensure(ctx); err != nil {
		return nil, ledger.Vehicle{}, err
	}
	snap := s.ctl.Snapshot()
	v, _, ok := snap.Vehicle(cid, vid)
	if !ok {
		return nil, ledger.Vehicle{}, fmt.Errorf("records: vehicle %s/%s: %w", cid, vid, ledger.ErrNotFound)
	}
	return snap, v, nil
}

func (s *Service) build(ctx context.Context, in RecordInput, previous ledger.LineItems) (ledger.Record, error) {
	in = in.normalized()
	if err := shared.ValidateStruct(in); err != nil {
		return ledger.Record{}, err
	}
	if _, ok := ledger.ParseDate(in.Date, nil); !ok {
		return ledger.Record{}, shared.FieldError("date", "must be a date formatted 2006-01-02")
	}
	items, err := s.buildItems(ctx, in.Items, previous)
	if err != nil {
		return ledger.Record{}, err
	}
	return ledger.Record{
		Date:        in.Date,
		PaymentType: ledger.PaymentType(in.PaymentType),
		Items:       items,
		Remarks:     in.Remarks,
	}, nil
}

// Create appends a record to a vehicle. Its timestamp is the current time in milliseconds, bumped
// until unique within the vehicle.
func (s *Service) Create(ctx context.Context, cid, vid string, in RecordInput) (ledger.Result, error) {
	snap, vehicle, err := s.vehicle(ctx, cid, vid)
	if err != nil {
		return ledger.Result{}, err
	}
	record, err := s.build(ctx, in, nil)
	if err != nil {
		return ledger.Result{}, err
	}
	record.Timestamp = s.now().UnixMilli()
	for vehicle.RecordIndex(record.Timestamp) >= 0 {
		record.Timestamp++
	}
	records := append(cloneRecords(vehicle.Records), record)
	return s.save(ctx, snap, cid, vid, records, record)
}

// Update replaces the record identified by ts. The timestamp is preserved, and catalog lines already
// on the record keep the price they were sold at.
func (s *Service) Update(ctx context.Context, cid, vid string, ts int64, in RecordInput) (ledger.Result, error) {
	snap, vehicle, err := s.vehicle(ctx, cid, vid)
	if err != nil {
		return ledger.Result{}, err
	}
	idx := vehicle.RecordIndex(ts)
	if ts == 0 || idx < 0 {
		return ledger.Result{}, fmt.Errorf("records: %s/%s/%d: %w", cid, vid, ts, ledger.ErrNotFound)
	}
	record, err := s.build(ctx, in, vehicle.Records[idx].Items)
	if err != nil {
		return ledger.Result{}, err
	}
	record.Timestamp = ts
	records := cloneRecords(vehicle.Records)
	records[idx] = record
	return s.save(ctx, snap, cid, vid, records, record)
}

// Delete removes the record identified by ts after confirmation.
func (s *Service) Delete(ctx context.Context, cid, vid string, ts int64, confirm ledger.Confirmer) (ledger.Result, error) {
	snap, vehicle, err := s.vehicle(ctx, cid, vid)
	if err != nil {
		return ledger.Result{}, err
	}
	idx := vehicle.RecordIndex(ts)
	if ts == 0 || idx < 0 {
		return ledger.Result{}, fmt.Errorf("records: %s/%s/%d: %w", cid, vid, ts, ledger.ErrNotFound)
	}
	prompt := fmt.Sprintf("Delete the %s record of %s?", vehicle.Records[idx].Date, vehicle.Plate)
	if err := ledger.RequireConfirmation(ctx, confirm, prompt); err != nil {
		return ledger.Result{}, err
	}
	records := cloneRecords(vehicle.Records)
	records = append(records[:idx], records[idx+1:]...)
	return s.save(ctx, snap, cid, vid, records, nil)
}

func (s *Service) save(ctx context.Context, snap *ledger.Tree, cid, vid string, records []ledger.Record, entity any) (ledger.Result, error) {
	path := ledger.RecordsPath(cid, vid)
	if err := s.ctl.Store().Set(ctx, path, records); err != nil {
		s.logger.Error("save records failed", slog.String("source", Source), slog.String("path", path), slog.Any("error", err))
		return ledger.Result{}, shared.WrapStore("set", path, err)
	}
	updated, err := snap.ReplaceSubtree(path, records)
	if err != nil {
		return ledger.Result{}, err
	}
	res := ledger.Merge(Source, updated, ledger.VehicleScope(cid, vid))
	if entity != nil {
		res.NewEntity = entity
		res.ShouldResetForm = true
	}
	return res, s.ctl.Handle(ctx, res)
}

func cloneRecords(records []ledger.Record) []ledger.Record {
	out := make([]ledger.Record, len(records))
	copy(out, records)
	return out
}

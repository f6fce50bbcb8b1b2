package app

import (
	"log/slog"
	"time"

	"golang.org/x/text/language"

	"github.com/servicebook/servicebook/internal/catalog/bundle"
	"github.com/servicebook/servicebook/internal/catalog/groups"
	"github.com/servicebook/servicebook/internal/catalog/items"
	"github.com/servicebook/servicebook/internal/catalog/vehicletypes"
	"github.com/servicebook/servicebook/internal/ledger"
	"github.com/servicebook/servicebook/internal/ledger/companies"
	"github.com/servicebook/servicebook/internal/ledger/export"
	"github.com/servicebook/servicebook/internal/ledger/records"
	"github.com/servicebook/servicebook/internal/ledger/vehicles"
	"github.com/servicebook/servicebook/internal/observability"
	"github.com/servicebook/servicebook/internal/store"
)

// Services is the wired set of editors over one store.
type Services struct {
	Store        store.Store
	Controller   *ledger.Controller
	Companies    *companies.Service
	Vehicles     *vehicles.Service
	Records      *records.Service
	Items        *items.Service
	Groups       *groups.Service
	VehicleTypes *vehicletypes.Service
	Catalogs     *bundle.Loader
	Location     *time.Location
	Language     language.Tag
}

// NewServices wires the ledger controller, the editors and the catalogs. metrics may be nil.
func NewServices(st store.Store, cfg *Config, logger *slog.Logger, metrics *observability.Metrics) (*Services, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	lang, err := language.Parse(cfg.AppLanguage)
	if err != nil {
		lang = language.English
	}

	ctl := ledger.NewController(st, logger, ledger.Options{
		BatchWrites: cfg.ReorderBatch,
		Backfill:    ledger.BackfillOptions{Location: loc},
	})
	if metrics != nil {
		ctl.Subscribe(metrics.ObserveMutation)
	}

	// Group cleanup never consults the item catalog, so the cascade target needs no item source.
	var itemOpts []items.Option
	if cfg.CascadeGroupCleanup {
		itemOpts = append(itemOpts, items.WithGroupCleanup(groups.NewService(st, cfg.ReorderBatch, nil, logger)))
	}
	itemSvc := items.NewService(st, cfg.ReorderBatch, logger, itemOpts...)
	groupSvc := groups.NewService(st, cfg.ReorderBatch, itemSvc, logger)
	typeSvc := vehicletypes.NewService(st, cfg.ReorderBatch, logger)

	return &Services{
		Store:        st,
		Controller:   ctl,
		Companies:    companies.NewService(ctl, logger),
		Vehicles:     vehicles.NewService(ctl, logger),
		Records:      records.NewService(ctl, itemSvc, logger, records.WithPageSize(cfg.PageSize)),
		Items:        itemSvc,
		Groups:       groupSvc,
		VehicleTypes: typeSvc,
		Catalogs:     bundle.NewLoader(st, itemSvc, groupSvc, typeSvc, logger),
		Location:     loc,
		Language:     lang,
	}, nil
}

// Handlers builds the HTTP handlers for every editor.
func (s *Services) Handlers(logger *slog.Logger) []Mounter {
	return []Mounter{
		companies.NewHandler(logger, s.Companies),
		vehicles.NewHandler(logger, s.Vehicles),
		records.NewHandler(logger, s.Records, export.NewWriter(s.Language), s.Location),
		items.NewHandler(logger, s.Items),
		groups.NewHandler(logger, s.Groups),
		vehicletypes.NewHandler(logger, s.VehicleTypes),
		s.Catalogs,
	}
}

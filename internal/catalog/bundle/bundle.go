// Package bundle loads every catalog at once for editors that need them all.
package bundle

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/servicebook/servicebook/internal/catalog"
	"github.com/servicebook/servicebook/internal/catalog/groups"
	"github.com/servicebook/servicebook/internal/catalog/items"
	"github.com/servicebook/servicebook/internal/catalog/vehicletypes"
	"github.com/servicebook/servicebook/internal/platform/httpx"
	"github.com/servicebook/servicebook/internal/store"
)

// Bundle is the content of every catalog.
type Bundle struct {
	Items          []items.Item                `json:"items"`
	Groups         []groups.Group              `json:"groups"`
	VehicleTypes   []vehicletypes.VehicleType `json:"vehicle_types"`
	FormulaHistory []json.RawMessage           `json:"formula_history"`
}

// Loader reads the catalogs concurrently.
type Loader struct {
	store  store.Store
	items  *items.Service
	groups *groups.Service
	types  *vehicletypes.Service
	logger *slog.Logger
}

// NewLoader constructs a Loader.
func NewLoader(st store.Store, itemSvc *items.Service, groupSvc *groups.Service, typeSvc *vehicletypes.Service, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{store: st, items: itemSvc, groups: groupSvc, types: typeSvc, logger: logger}
}

// Load fetches all catalogs. The first failure cancels the remaining reads.
func (l *Loader) Load(ctx context.Context) (Bundle, error) {
	var b Bundle
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		b.Items, err = l.items.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		b.Groups, err = l.groups.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		b.VehicleTypes, err = l.types.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		b.FormulaHistory, err = catalog.LoadFormulaHistory(gctx, l.store)
		return err
	})
	if err := g.Wait(); err != nil {
		return Bundle{}, err
	}
	return b, nil
}

// MountRoutes registers GET /catalog.
func (l *Loader) MountRoutes(r chi.Router) {
	r.Get("/catalog", func(w http.ResponseWriter, r *http.Request) {
		b, err := l.Load(r.Context())
		if err != nil {
			l.logger.Error("load catalogs failed", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, b)
	})
}

package vehicletypes

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/servicebook/servicebook/internal/catalog"
	"github.com/servicebook/servicebook/internal/ledger"
	"github.com/servicebook/servicebook/internal/platform/httpx"
)

// Handler exposes vehicle types over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the vehicle type handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the routes under /catalog/vehicle-types.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/catalog/vehicle-types", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Post("/reorder", h.Reorder)
		r.Put("/{typeID}", h.Rename)
		r.Delete("/{typeID}", h.Delete)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	types, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list vehicle types failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"vehicle_types": types})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in TypeInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	vt, err := h.service.Create(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, catalog.Mutation(Source, vt))
}

func (h *Handler) Rename(w http.ResponseWriter, r *http.Request) {
	var in TypeInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	vt, err := h.service.Rename(r.Context(), chi.URLParam(r, "typeID"), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, catalog.Mutation(Source, vt))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	confirm := ledger.Declined
	if httpx.Confirmed(r) {
		confirm = ledger.Confirmed
	}
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "typeID"), confirm); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, catalog.Mutation(Source, nil))
}

func (h *Handler) Reorder(w http.ResponseWriter, r *http.Request) {
	var in ReorderInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	types, err := h.service.Reorder(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, catalog.Mutation(Source, types))
}

package vehicles

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/servicebook/servicebook/internal/ledger"
	"github.com/servicebook/servicebook/internal/platform/httpx"
)

// Handler exposes the vehicle editor over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the vehicle handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the vehicle routes below a company.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/companies/{companyID}/vehicles", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Post("/reorder", h.Reorder)
		r.Put("/{vehicleID}", h.Update)
		r.Delete("/{vehicleID}", h.Delete)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.service.List(r.Context(), chi.URLParam(r, "companyID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"vehicles": vehicles})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in VehicleInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	res, err := h.service.Create(r.Context(), chi.URLParam(r, "companyID"), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, res)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var in VehicleInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	res, err := h.service.Update(r.Context(), chi.URLParam(r, "companyID"), chi.URLParam(r, "vehicleID"), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	confirm := ledger.Declined
	if httpx.Confirmed(r) {
		confirm = ledger.Confirmed
	}
	res, err := h.service.Delete(r.Context(), chi.URLParam(r, "companyID"), chi.URLParam(r, "vehicleID"), confirm)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) Reorder(w http.ResponseWriter, r *http.Request) {
	var in ReorderInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	res, err := h.service.Reorder(r.Context(), chi.URLParam(r, "companyID"), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

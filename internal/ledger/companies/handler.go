package companies

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/servicebook/servicebook/internal/ledger"
	"github.com/servicebook/servicebook/internal/platform/httpx"
)

// Handler exposes the company editor over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the company handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the company routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/companies", h.List)
	r.Post("/companies", h.Create)
	r.Post("/companies/reorder", h.Reorder)
	r.Put("/companies/{companyID}", h.Update)
	r.Delete("/companies/{companyID}", h.Delete)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	companies, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list companies failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"companies": companies})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in CompanyInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	res, err := h.service.Create(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, res)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var in CompanyInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	res, err := h.service.Update(r.Context(), chi.URLParam(r, "companyID"), in)
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
	res, err := h.service.Delete(r.Context(), chi.URLParam(r, "companyID"), confirm)
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
	res, err := h.service.Reorder(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

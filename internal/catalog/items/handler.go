package items

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/servicebook/servicebook/internal/catalog"
	"github.com/servicebook/servicebook/internal/ledger"
	"github.com/servicebook/servicebook/internal/platform/httpx"
)

// Handler exposes the item catalog over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the item handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the item routes under /catalog/items.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/catalog/items", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Post("/reorder", h.Reorder)
		r.Get("/{itemID}", h.Get)
		r.Put("/{itemID}", h.Update)
		r.Delete("/{itemID}", h.Delete)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.logger.Error("list items failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	it, err := h.service.Get(r.Context(), chi.URLParam(r, "itemID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, it)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in ItemInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	it, err := h.service.Create(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, catalog.Mutation(Source, it))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var in ItemInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	it, err := h.service.Update(r.Context(), chi.URLParam(r, "itemID"), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, catalog.Mutation(Source, it))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	confirm := ledger.Declined
	if httpx.Confirmed(r) {
		confirm = ledger.Confirmed
	}
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "itemID"), confirm); err != nil {
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
	items, err := h.service.Reorder(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, catalog.Mutation(Source, items))
}

package groups

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/servicebook/servicebook/internal/catalog"
	"github.com/servicebook/servicebook/internal/ledger"
	"github.com/servicebook/servicebook/internal/platform/httpx"
)

// Handler exposes service groups over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the group handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the group routes under /catalog/groups.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/catalog/groups", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Post("/reorder", h.Reorder)
		r.Put("/{groupID}", h.Rename)
		r.Delete("/{groupID}", h.Delete)
		r.Get("/{groupID}/items", h.Items)
		r.Post("/{groupID}/items/{itemID}", h.AddItem)
		r.Delete("/{groupID}/items/{itemID}", h.RemoveItem)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list groups failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"groups": groups})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in GroupInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	g, err := h.service.Create(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, catalog.Mutation(Source, g))
}

func (h *Handler) Rename(w http.ResponseWriter, r *http.Request) {
	var in GroupInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	g, err := h.service.Rename(r.Context(), chi.URLParam(r, "groupID"), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, catalog.Mutation(Source, g))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	confirm := ledger.Declined
	if httpx.Confirmed(r) {
		confirm = ledger.Confirmed
	}
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "groupID"), confirm); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, catalog.Mutation(Source, nil))
}

func (h *Handler) Items(w http.ResponseWriter, r *http.Request) {
	resolved, err := h.service.ResolveItems(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": resolved})
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	g, err := h.service.AddItem(r.Context(), chi.URLParam(r, "groupID"), chi.URLParam(r, "itemID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, catalog.Mutation(Source, g))
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	g, err := h.service.RemoveItem(r.Context(), chi.URLParam(r, "groupID"), chi.URLParam(r, "itemID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, catalog.Mutation(Source, g))
}

func (h *Handler) Reorder(w http.ResponseWriter, r *http.Request) {
	var in ReorderInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	groups, err := h.service.Reorder(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, catalog.Mutation(Source, groups))
}

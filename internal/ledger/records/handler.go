package records

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/servicebook/servicebook/internal/ledger"
	"github.com/servicebook/servicebook/internal/ledger/export"
	"github.com/servicebook/servicebook/internal/platform/httpx"
)

// Handler exposes the record editor, the filtered listing and the CSV export.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	exporter *export.Writer
	location *time.Location
}

// NewHandler constructs the record handler. Dates in queries are interpreted in loc.
func NewHandler(logger *slog.Logger, service *Service, exporter *export.Writer, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.Local
	}
	return &Handler{logger: logger, service: service, exporter: exporter, location: loc}
}

// MountRoutes registers the record routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/records", h.List)
	r.Get("/records/export.csv", h.Export)
	r.Route("/companies/{companyID}/vehicles/{vehicleID}/records", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Put("/{timestamp}", h.Update)
		r.Delete("/{timestamp}", h.Delete)
	})
}

func (h *Handler) filter(r *http.Request) (ledger.Filter, error) {
	q := r.URL.Query()
	f := ledger.Filter{
		CompanyID: q.Get("company"),
		VehicleID: q.Get("vehicle"),
		Search:    q.Get("q"),
		Location:  h.location,
	}
	if v := q.Get("start"); v != "" {
		t, ok := ledger.ParseDate(v, h.location)
		if !ok {
			return f, fmt.Errorf("%w: start must be formatted 2006-01-02", httpx.ErrBadRequest)
		}
		f.Start = t
	}
	if v := q.Get("end"); v != "" {
		t, ok := ledger.ParseDate(v, h.location)
		if !ok {
			return f, fmt.Errorf("%w: end must be formatted 2006-01-02", httpx.ErrBadRequest)
		}
		f.End = t
	}
	return f, nil
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	f, err := h.filter(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	prevKey := r.URL.Query().Get("prev_key")
	if prevKey == "" {
		prevKey = f.Key()
	}
	result, err := h.service.List(r.Context(), Query{Filter: f, Page: page, PerPage: limit, PrevKey: prevKey})
	if err != nil {
		h.logger.Error("list records failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	f, err := h.filter(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rows, err := h.service.Filtered(r.Context(), f)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	filename := fmt.Sprintf("records_%s.csv", time.Now().In(h.location).Format("20060102"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if err := h.exporter.Write(w, rows); err != nil {
		h.logger.Error("export records failed", slog.Any("error", err))
	}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in RecordInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	res, err := h.service.Create(r.Context(), chi.URLParam(r, "companyID"), chi.URLParam(r, "vehicleID"), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, res)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	ts, err := strconv.ParseInt(chi.URLParam(r, "timestamp"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid record timestamp")
		return
	}
	var in RecordInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	res, err := h.service.Update(r.Context(), chi.URLParam(r, "companyID"), chi.URLParam(r, "vehicleID"), ts, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ts, err := strconv.ParseInt(chi.URLParam(r, "timestamp"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid record timestamp")
		return
	}
	confirm := ledger.Declined
	if httpx.Confirmed(r) {
		confirm = ledger.Confirmed
	}
	res, err := h.service.Delete(r.Context(), chi.URLParam(r, "companyID"), chi.URLParam(r, "vehicleID"), ts, confirm)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

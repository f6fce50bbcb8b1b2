package records

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/servicebook/servicebook/internal/ledger/export"
)

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	svc, _, _ := setup(t)
	r := chi.NewRouter()
	NewHandler(slog.Default(), svc, export.NewWriter(language.English), time.UTC).MountRoutes(r)
	return r
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const recordBody = `{"date":"2024-05-31","payment_type":"payable","items":[{"kind":"custom","name":"Tow","price":120}],"remarks":"night"}`

func TestHandlerRecordLifecycle(t *testing.T) {
	router := newRouter(t)

	rec := serve(router, http.MethodPost, "/companies/c1/vehicles/v1/records/", recordBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		NewEntity struct {
			Timestamp int64 `json:"timestamp"`
		} `json:"newEntity"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	ts := strconv.FormatInt(created.NewEntity.Timestamp, 10)

	rec = serve(router, http.MethodGet, "/records?company=c1&start=2024-05-01&end=2024-05-31&q=tow", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Records []struct {
			CompanyName   string  `json:"companyName"`
			ComputedTotal float64 `json:"computedTotal"`
		} `json:"records"`
		Totals struct {
			Payable float64 `json:"payable"`
		} `json:"totals"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Records, 1)
	assert.Equal(t, "Acme", page.Records[0].CompanyName)
	assert.Equal(t, 120.0, page.Totals.Payable)

	rec = serve(router, http.MethodGet, "/records/export.csv?vehicle=v1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Payable,2024-05-31,Acme,A 1,Truck,• Tow - $120,night,120")

	rec = serve(router, http.MethodDelete, "/companies/c1/vehicles/v1/records/"+ts, "")
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)

	rec = serve(router, http.MethodDelete, "/companies/c1/vehicles/v1/records/"+ts+"?confirm=true", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandlerRejectsBadInput(t *testing.T) {
	router := newRouter(t)

	rec := serve(router, http.MethodGet, "/records?start=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(router, http.MethodPut, "/companies/c1/vehicles/v1/records/abc", recordBody)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(router, http.MethodPost, "/companies/c1/vehicles/nope/records/", recordBody)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

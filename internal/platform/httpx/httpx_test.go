package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/servicebook/servicebook/internal/shared"
	"github.com/servicebook/servicebook/internal/store"
)

func TestRespondErrorStatuses(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", shared.FieldError("plate", "is required"), http.StatusBadRequest},
		{"bad json", fmt.Errorf("%w: eof", ErrBadRequest), http.StatusBadRequest},
		{"invalid path", store.ErrInvalidPath, http.StatusBadRequest},
		{"not found", fmt.Errorf("vehicles: get: %w", shared.ErrNotFound), http.StatusNotFound},
		{"duplicate", shared.ErrDuplicate, http.StatusConflict},
		{"conflict", store.ErrConflict, http.StatusConflict},
		{"unconfirmed", shared.ErrConfirmationRequired, http.StatusPreconditionFailed},
		{"store", shared.WrapStore("set", "companies", errors.New("timeout")), http.StatusBadGateway},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RespondError(rec, tc.err)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestRespondErrorCarriesFields(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, shared.NewValidationError(map[string]string{"name": "is required"}))

	var body ProblemDetail
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, map[string]string{"name": "is required"}, body.Errors)
}

func TestStoreErrorDetailNamesFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, shared.WrapStore("set", "wash_items", errors.New("permission denied")))

	var body ProblemDetail
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.True(t, strings.HasPrefix(body.Detail, "save failed: "))
	assert.Contains(t, body.Detail, "permission denied")
}

func TestConfirmed(t *testing.T) {
	cases := map[string]bool{
		"/x?confirm=true": true,
		"/x?confirm=YES":  true,
		"/x?confirm=no":   false,
		"/x":              false,
	}
	for target, want := range cases {
		assert.Equal(t, want, Confirmed(httptest.NewRequest(http.MethodDelete, target, nil)), target)
	}

	req := httptest.NewRequest(http.MethodDelete, "/x", nil)
	req.Header.Set("X-Confirm", "Yes")
	assert.True(t, Confirmed(req))
}

func TestDecodeJSONWrapsBadRequest(t *testing.T) {
	var target struct{ Name string }
	err := DecodeJSON(httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{")), &target)
	assert.ErrorIs(t, err, ErrBadRequest)
}

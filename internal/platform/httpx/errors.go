// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/servicebook/servicebook/internal/shared"
	"github.com/servicebook/servicebook/internal/store"
)

// ErrBadRequest marks malformed request input (bad JSON, bad query values).
var ErrBadRequest = errors.New("bad request")

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var verr *shared.ValidationError
	switch {
	case errors.As(err, &verr):
		ProblemWithFields(w, http.StatusBadRequest, "Validation Failed", err.Error(), verr.Fields)
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, shared.ErrValidation), errors.Is(err, ErrBadRequest), errors.Is(err, store.ErrInvalidPath):
		Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, shared.ErrConfirmationRequired):
		Problem(w, http.StatusPreconditionFailed, "Confirmation Required",
			"repeat the request with ?confirm=true or X-Confirm: yes")
	case errors.Is(err, store.ErrConflict):
		Problem(w, http.StatusConflict, "Write Conflict", err.Error())
	case errors.Is(err, shared.ErrStore):
		Problem(w, http.StatusBadGateway, "Store Error", "save failed: "+err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

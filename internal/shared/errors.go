package shared

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound indicates the addressed entity does not exist in the current tree or store.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates a uniqueness rule (plate, catalog id) was violated.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrValidation indicates a field-scoped validation failure.
	ErrValidation = errors.New("validation failed")
	// ErrConfirmationRequired is returned by destructive operations that were not confirmed.
	ErrConfirmationRequired = errors.New("confirmation required")
	// ErrStore marks failures reported by the document store.
	ErrStore = errors.New("store error")
)

// ValidationError carries field-scoped messages. It matches ErrValidation.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a ValidationError from field/message pairs.
func NewValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}

// FieldError is a shorthand for a single-field validation failure.
func FieldError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, ", ")
}

// Is lets errors.Is(err, ErrValidation) succeed.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// StoreError wraps a failed store operation with the path it addressed.
type StoreError struct {
	Op   string
	Path string
	Err  error
}

// WrapStore returns nil when err is nil, otherwise a *StoreError.
func WrapStore(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var existing *StoreError
	if errors.As(err, &existing) {
		return err
	}
	return &StoreError{Op: op, Path: path, Err: err}
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrStore) succeed.
func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}

package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestTransient(t *testing.T) {
	assert.True(t, Transient(&pgconn.PgError{Code: "40001"}))
	assert.True(t, Transient(fmt.Errorf("upsert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, Transient(&pgconn.PgError{Code: "42P01"}))
	assert.False(t, Transient(errors.New("boom")))
}

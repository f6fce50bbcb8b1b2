package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrRetriesExhausted is returned by RetryTx when every attempt hit a transient conflict.
var ErrRetriesExhausted = errors.New("platform/db: transaction retries exhausted")

const (
	codeSerializationFailure = "40001"
	codeUniqueViolation      = "23505"
)

// WithTx executes a function within a transaction using the RepeatableRead isolation level.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: commit tx: %w", err)
	}

	return nil
}

// RetryTx runs fn in WithTx up to attempts times, retrying serialization failures and the unique
// violations two racing upserts of a new row produce.
func RetryTx(ctx context.Context, pool *pgxpool.Pool, attempts int, fn func(pgx.Tx) error) error {
	for attempt := 0; attempt < attempts; attempt++ {
		err := WithTx(ctx, pool, fn)
		if err == nil {
			return nil
		}
		if !Transient(err) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return ErrRetriesExhausted
}

// Transient reports whether err is a conflict worth retrying.
func Transient(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == codeSerializationFailure || pgErr.Code == codeUniqueViolation
}

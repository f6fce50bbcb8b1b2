package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/servicebook/servicebook/internal/platform/db"
)

const pgMaxAttempts = 5

const schemaSQL = `
CREATE TABLE IF NOT EXISTS store_documents (
	root       TEXT PRIMARY KEY,
	body       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore keeps one JSONB document per top-level key in the store_documents table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps pool. Call EnsureSchema once before use.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the backing table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("store/postgres: ensure schema: %w", err)
	}
	return nil
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, path string) (Snapshot, error) {
	segs, err := Split(path)
	if err != nil {
		return Snapshot{}, err
	}
	var raw []byte
	err = s.pool.QueryRow(ctx,
		`SELECT body #> $2::text[] FROM store_documents WHERE root = $1`,
		segs[0], segs[1:],
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{path: Join(segs...)}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("store/postgres: get %s: %w", Join(segs...), err)
	}
	return Snapshot{path: Join(segs...), raw: raw}, nil
}

// Set implements Store.
func (s *PostgresStore) Set(ctx context.Context, path string, value any) error {
	return s.Update(ctx, map[string]any{path: value})
}

// Remove implements Store.
func (s *PostgresStore) Remove(ctx context.Context, path string) error {
	return s.Update(ctx, map[string]any{path: nil})
}

// Push implements Store.
func (s *PostgresStore) Push(ctx context.Context, path string) (string, error) {
	if _, err := Split(path); err != nil {
		return "", err
	}
	return NewPushID(), nil
}

// Update implements Store.
func (s *PostgresStore) Update(ctx context.Context, values map[string]any) error {
	writes, err := planWrites(values)
	if err != nil {
		return err
	}
	if len(writes) == 0 {
		return nil
	}
	rootKeys := roots(writes)

	err = db.RetryTx(ctx, s.pool, pgMaxAttempts, func(tx pgx.Tx) error {
		return s.apply(ctx, tx, rootKeys, writes)
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, db.ErrRetriesExhausted):
		return ErrConflict
	default:
		return fmt.Errorf("store/postgres: update: %w", err)
	}
}

func (s *PostgresStore) apply(ctx context.Context, tx pgx.Tx, rootKeys []string, writes []write) error {
	docs := make(map[string]any, len(rootKeys))
	for _, root := range rootKeys {
		var raw []byte
		err := tx.QueryRow(ctx,
			`SELECT body FROM store_documents WHERE root = $1 FOR UPDATE`, root,
		).Scan(&raw)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		doc, err := decodeDoc(raw)
		if err != nil {
			return fmt.Errorf("decode %s: %w", root, err)
		}
		docs[root] = doc
	}
	for _, w := range writes {
		docs[w.segs[0]] = setAt(docs[w.segs[0]], w.segs[1:], w.value)
	}
	for _, root := range rootKeys {
		doc := docs[root]
		if doc == nil {
			if _, err := tx.Exec(ctx, `DELETE FROM store_documents WHERE root = $1`, root); err != nil {
				return err
			}
			continue
		}
		body, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO store_documents (root, body, updated_at)
			VALUES ($1, $2, now())
			ON CONFLICT (root) DO UPDATE SET body = EXCLUDED.body, updated_at = now()`,
			root, body,
		); err != nil {
			return err
		}
	}
	return nil
}

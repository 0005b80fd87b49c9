package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"askdata/internal/cache/models"
	"askdata/internal/cache/ports"
	"askdata/pkg/platform/sentinel"
	"askdata/pkg/requestcontext"
)

// Schema creates the cache table.
const Schema = `
CREATE TABLE IF NOT EXISTS query_cache (
	query_hash        TEXT PRIMARY KEY,
	query             TEXT NOT NULL,
	payload           BYTEA NOT NULL,
	positive_feedback INTEGER NOT NULL DEFAULT 0,
	negative_feedback INTEGER NOT NULL DEFAULT 0,
	invalidated       BOOLEAN NOT NULL DEFAULT FALSE,
	hit_count         INTEGER NOT NULL DEFAULT 0,
	created_at        TIMESTAMPTZ NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL
)`

// PostgresStore persists entries in PostgreSQL. Each update runs in a
// transaction holding the row lock of its key.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure cache schema: %w", err)
	}
	return nil
}

const selectEntry = `
	SELECT query, payload, positive_feedback, negative_feedback, invalidated,
		hit_count, created_at, updated_at
	FROM query_cache WHERE query_hash = $1`

func (s *PostgresStore) Get(ctx context.Context, key string) (*models.Entry, error) {
	e, err := scanEntry(key, s.pool.QueryRow(ctx, selectEntry, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cache entry: %w", err)
	}
	return e, nil
}

// Update inserts a placeholder row for unknown keys so that concurrent
// updates of a new key also serialize on the row lock. The transaction is
// rolled back when fn writes nothing, which discards the placeholder.
func (s *PostgresStore) Update(ctx context.Context, key string, fn ports.UpdateFunc) (*models.Entry, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin cache update: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := requestcontext.Now(ctx)
	tag, err := tx.Exec(ctx, `
		INSERT INTO query_cache (query_hash, query, payload, created_at, updated_at)
		VALUES ($1, '', '', $2, $2)
		ON CONFLICT (query_hash) DO NOTHING`, key, now)
	if err != nil {
		return nil, fmt.Errorf("lock cache entry: %w", err)
	}

	var current *models.Entry
	if tag.RowsAffected() == 0 {
		current, err = scanEntry(key, tx.QueryRow(ctx, selectEntry+" FOR UPDATE", key))
		if err != nil {
			return nil, fmt.Errorf("select cache entry: %w", err)
		}
	}

	next, err := fn(current)
	if err != nil || next == nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE query_cache SET
			query = $2, payload = $3, positive_feedback = $4, negative_feedback = $5,
			invalidated = $6, hit_count = $7, created_at = $8, updated_at = $9
		WHERE query_hash = $1`,
		key, next.Query, next.Payload, next.Positive, next.Negative,
		next.Invalidated, next.HitCount, next.CreatedAt, next.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("write cache entry: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit cache update: %w", err)
	}
	return next, nil
}

func scanEntry(key string, row pgx.Row) (*models.Entry, error) {
	e := &models.Entry{Key: key}
	err := row.Scan(&e.Query, &e.Payload, &e.Positive, &e.Negative, &e.Invalidated,
		&e.HitCount, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

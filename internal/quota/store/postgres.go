package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"askdata/internal/quota/models"
	"askdata/internal/quota/ports"
	"askdata/pkg/platform/sentinel"
	"askdata/pkg/requestcontext"
)

// Schema creates the quota table.
const Schema = `
CREATE TABLE IF NOT EXISTS quota_usage (
	identity       TEXT PRIMARY KEY,
	day            TEXT NOT NULL,
	queries_today  INTEGER NOT NULL DEFAULT 0,
	has_credential BOOLEAN NOT NULL DEFAULT FALSE,
	updated_at     TIMESTAMPTZ NOT NULL
)`

// PostgresStore persists quota state through database/sql (lib/pq driver).
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure quota schema: %w", err)
	}
	return nil
}

const selectState = `SELECT day, queries_today, has_credential, updated_at FROM quota_usage WHERE identity = $1`

func (s *PostgresStore) Get(ctx context.Context, key string) (*models.State, error) {
	st, err := scanState(key, s.db.QueryRowContext(ctx, selectState, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get quota state: %w", err)
	}
	return st, nil
}

// Update locks the identity row for the duration of fn. Unknown identities
// get a placeholder row first so that concurrent first requests serialize
// too; it is rolled back when fn writes nothing.
func (s *PostgresStore) Update(ctx context.Context, key string, fn ports.UpdateFunc) (*models.State, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin quota update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO quota_usage (identity, day, updated_at)
		VALUES ($1, '', $2)
		ON CONFLICT (identity) DO NOTHING`, key, requestcontext.Now(ctx))
	if err != nil {
		return nil, fmt.Errorf("lock quota row: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("lock quota row: %w", err)
	}

	var current *models.State
	if inserted == 0 {
		current, err = scanState(key, tx.QueryRowContext(ctx, selectState+" FOR UPDATE", key))
		if err != nil {
			return nil, fmt.Errorf("select quota row: %w", err)
		}
	}

	next, err := fn(current)
	if err != nil || next == nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE quota_usage SET day = $2, queries_today = $3, has_credential = $4, updated_at = $5
		WHERE identity = $1`,
		key, next.Date, next.QueriesToday, next.HasCredential, next.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("write quota row: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit quota update: %w", err)
	}
	return next, nil
}

func scanState(key string, row *sql.Row) (*models.State, error) {
	st := &models.State{Key: key}
	if err := row.Scan(&st.Date, &st.QueriesToday, &st.HasCredential, &st.UpdatedAt); err != nil {
		return nil, err
	}
	return st, nil
}

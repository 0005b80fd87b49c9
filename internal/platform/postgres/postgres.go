// Package postgres opens the PostgreSQL handles used by the stores: a pgx
// pool for the response cache and a database/sql handle (lib/pq) for the
// quota governor.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"

	"askdata/internal/platform/config"
)

// Handles bundles both connections to the same database.
type Handles struct {
	Pool *pgxpool.Pool
	DB   *sql.DB
}

// Open connects and pings both handles. It returns nil handles when no DSN
// is configured.
func Open(ctx context.Context, cfg config.Postgres) (*Handles, error) {
	if cfg.DSN == "" {
		return nil, nil
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("open database/sql handle: %w", err)
	}
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(int(cfg.MaxConns))
	}
	if err := db.PingContext(ctx); err != nil {
		pool.Close()
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return &Handles{Pool: pool, DB: db}, nil
}

// Health pings the pool.
func (h *Handles) Health(ctx context.Context) error {
	return h.Pool.Ping(ctx)
}

func (h *Handles) Close() {
	h.Pool.Close()
	_ = h.DB.Close()
}

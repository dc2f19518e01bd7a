// Package db opens and prepares the backing services of the deal sniper.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPostgresPool creates and verifies a pgxpool connection pool.
// maxConns <= 0 keeps the pgxpool default.
func NewPostgresPool(ctx context.Context, databaseURL string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.ParseConfig: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.NewWithConfig: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	return pool, nil
}

// schema is idempotent; it runs on every start.
const schema = `
CREATE TABLE IF NOT EXISTS seen_listings (
    url        TEXT PRIMARY KEY,
    title      TEXT NOT NULL,
    price      DOUBLE PRECISION NOT NULL,
    first_seen TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS seen_listings_first_seen_idx ON seen_listings (first_seen);
`

// Migrate creates the seen_listings table and its index if missing.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate seen_listings: %w", err)
	}
	return nil
}

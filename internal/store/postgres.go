package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"sneakerbot/deal-sniper/internal/model"
)

// Postgres keeps seen listings in the seen_listings table (see db.Migrate).
type Postgres struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgres constructs a Postgres store on an open pool.
func NewPostgres(pool *pgxpool.Pool, opts ...Option) *Postgres {
	o := buildOptions(opts)
	return &Postgres{pool: pool, now: o.now}
}

func (s *Postgres) Seen(ctx context.Context, url string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM seen_listings WHERE url = $1)`, url,
	).Scan(&exists)
	if err != nil {
		return false, &PersistenceError{Op: "seen", URL: url, Err: err}
	}
	return exists, nil
}

func (s *Postgres) Record(ctx context.Context, l model.Listing) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO seen_listings (url, title, price, first_seen)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (url) DO NOTHING`,
		l.URL, l.Title, l.Price, s.now().UTC(),
	)
	if err != nil {
		return &PersistenceError{Op: "record", URL: l.URL, Err: err}
	}
	return nil
}

func (s *Postgres) EvictOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := s.now().UTC().Add(-retention)
	tag, err := s.pool.Exec(ctx, `DELETE FROM seen_listings WHERE first_seen < $1`, cutoff)
	if err != nil {
		return 0, &PersistenceError{Op: "evict", Err: err}
	}
	return tag.RowsAffected(), nil
}

func (s *Postgres) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM seen_listings`).Scan(&n); err != nil {
		return 0, &PersistenceError{Op: "count", Err: err}
	}
	return n, nil
}

// Get returns the stored record for url; ok is false when there is none.
func (s *Postgres) Get(ctx context.Context, url string) (rec model.SeenRecord, ok bool, err error) {
	rows, err := s.pool.Query(ctx,
		`SELECT url, title, price, first_seen FROM seen_listings WHERE url = $1`, url,
	)
	if err != nil {
		return rec, false, &PersistenceError{Op: "get", URL: url, Err: err}
	}
	defer rows.Close()
	if !rows.Next() {
		return rec, false, rows.Err()
	}
	if err := rows.Scan(&rec.URL, &rec.Title, &rec.Price, &rec.FirstSeen); err != nil {
		return rec, false, &PersistenceError{Op: "get", URL: url, Err: err}
	}
	return rec, true, nil
}

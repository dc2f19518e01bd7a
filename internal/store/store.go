// Package store persists the set of listings that have already been announced,
// so that a listing is notified at most once across restarts.
package store

import (
	"context"
	"fmt"
	"time"

	"sneakerbot/deal-sniper/internal/model"
)

// Store is a durable set of seen listing URLs.
type Store interface {
	// Seen reports whether a record for url exists.
	Seen(ctx context.Context, url string) (bool, error)
	// Record inserts a record for l. Recording a known URL is a no-op.
	Record(ctx context.Context, l model.Listing) error
	// EvictOlderThan deletes records first seen before now minus retention
	// and returns how many were removed.
	EvictOlderThan(ctx context.Context, retention time.Duration) (int64, error)
	// Count returns the number of records currently held.
	Count(ctx context.Context) (int64, error)
}

// PersistenceError wraps a failure of the backing store.
type PersistenceError struct {
	Op  string
	URL string
	Err error
}

func (e *PersistenceError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Option configures a store.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now for first_seen stamps and eviction cutoffs.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"sneakerbot/deal-sniper/internal/model"
)

// DefaultRedisPrefix namespaces every key the Redis store writes.
const DefaultRedisPrefix = "sniper:"

// recordScript inserts the listing hash and its index entry only when the
// hash does not exist yet.
//
// KEYS[1] listing hash, KEYS[2] first_seen index
// ARGV: url, title, price, first_seen (unix ms)
var recordScript = redis.NewScript(`
if redis.call('HSETNX', KEYS[1], 'url', ARGV[1]) == 0 then
  return 0
end
redis.call('HSET', KEYS[1], 'title', ARGV[2], 'price', ARGV[3], 'first_seen', ARGV[4])
redis.call('ZADD', KEYS[2], ARGV[4], ARGV[1])
return 1
`)

// evictScript drops every listing whose first_seen is below the cutoff.
//
// KEYS[1] first_seen index
// ARGV: cutoff (unix ms, exclusive), listing key prefix
var evictScript = redis.NewScript(`
local urls = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', '(' .. ARGV[1])
for _, u in ipairs(urls) do
  redis.call('DEL', ARGV[2] .. u)
end
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', '(' .. ARGV[1])
return #urls
`)

// Redis keeps one hash per listing plus a sorted set indexing first_seen.
type Redis struct {
	rdb    *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedis constructs a Redis store. An empty prefix selects DefaultRedisPrefix.
func NewRedis(rdb *redis.Client, prefix string, opts ...Option) *Redis {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	o := buildOptions(opts)
	return &Redis{rdb: rdb, prefix: prefix, now: o.now}
}

func (s *Redis) listingPrefix() string { return s.prefix + "listing:" }
func (s *Redis) listingKey(url string) string {
	return s.listingPrefix() + url
}
func (s *Redis) indexKey() string { return s.prefix + "first_seen" }

func (s *Redis) Seen(ctx context.Context, url string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.listingKey(url)).Result()
	if err != nil {
		return false, &PersistenceError{Op: "seen", URL: url, Err: err}
	}
	return n == 1, nil
}

func (s *Redis) Record(ctx context.Context, l model.Listing) error {
	err := recordScript.Run(ctx, s.rdb,
		[]string{s.listingKey(l.URL), s.indexKey()},
		l.URL, l.Title, strconv.FormatFloat(l.Price, 'f', -1, 64), s.now().UnixMilli(),
	).Err()
	if err != nil {
		return &PersistenceError{Op: "record", URL: l.URL, Err: err}
	}
	return nil
}

func (s *Redis) EvictOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := s.now().Add(-retention).UnixMilli()
	n, err := evictScript.Run(ctx, s.rdb, []string{s.indexKey()}, cutoff, s.listingPrefix()).Int64()
	if err != nil {
		return 0, &PersistenceError{Op: "evict", Err: err}
	}
	return n, nil
}

func (s *Redis) Count(ctx context.Context) (int64, error) {
	n, err := s.rdb.ZCard(ctx, s.indexKey()).Result()
	if err != nil {
		return 0, &PersistenceError{Op: "count", Err: err}
	}
	return n, nil
}

// Get returns the stored record for url; ok is false when there is none.
func (s *Redis) Get(ctx context.Context, url string) (rec model.SeenRecord, ok bool, err error) {
	fields, err := s.rdb.HGetAll(ctx, s.listingKey(url)).Result()
	if err != nil {
		return rec, false, &PersistenceError{Op: "get", URL: url, Err: err}
	}
	if len(fields) == 0 {
		return rec, false, nil
	}
	price, perr := strconv.ParseFloat(fields["price"], 64)
	ms, terr := strconv.ParseInt(fields["first_seen"], 10, 64)
	if err := errors.Join(perr, terr); err != nil {
		return rec, false, &PersistenceError{Op: "get", URL: url, Err: err}
	}
	return model.SeenRecord{
		URL:       fields["url"],
		Title:     fields["title"],
		Price:     price,
		FirstSeen: time.UnixMilli(ms).UTC(),
	}, true, nil
}

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"sneakerbot/deal-sniper/internal/model"
)

// EventDealFound is the type tag on every published deal event.
const EventDealFound = "EVENT_DEAL_FOUND"

// Notifier delivers one deal. Delivery is best effort; callers log errors
// and do not retry.
type Notifier interface {
	Notify(ctx context.Context, d model.Deal) error
}

// Event is the payload written to the message buses.
type Event struct {
	Type    string     `json:"type"`
	Deal    model.Deal `json:"deal"`
	Message Message    `json:"message"`
}

func encodeEvent(d model.Deal) ([]byte, error) {
	return json.Marshal(Event{Type: EventDealFound, Deal: d, Message: Format(d)})
}

// ── Log ────────────────────────────────────────────────────────────────────

// Log writes each deal to a structured logger.
type Log struct {
	Logger *slog.Logger
}

func (n Log) Notify(ctx context.Context, d model.Deal) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := Format(d)
	logger.InfoContext(ctx, "deal found",
		"title", d.Listing.Title,
		"price", d.Listing.Price,
		"score", d.Score,
		"url", m.URL,
		"tier", d.Tier,
	)
	return nil
}

// ── Redis ──────────────────────────────────────────────────────────────────

// Redis publishes each deal as JSON on a pub/sub channel.
type Redis struct {
	rdb     *redis.Client
	channel string
}

// NewRedis constructs a Redis notifier.
func NewRedis(rdb *redis.Client, channel string) *Redis {
	if channel == "" {
		channel = EventDealFound
	}
	return &Redis{rdb: rdb, channel: channel}
}

func (n *Redis) Notify(ctx context.Context, d model.Deal) error {
	payload, err := encodeEvent(d)
	if err != nil {
		return fmt.Errorf("encode deal: %w", err)
	}
	if err := n.rdb.Publish(ctx, n.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", n.channel, err)
	}
	return nil
}

// ── Multi ──────────────────────────────────────────────────────────────────

// Multi delivers to every sink and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, d model.Deal) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

package ws

import (
	"context"
	"encoding/json"
	"time"

	"log/slog"

	"github.com/redis/go-redis/v9"
)

const eventChannel = "room:events"

// RoomEvent is a lifecycle notification published for external lobby or
// presence consumers. The engine never reads these back; the feed is
// write-only and best-effort.
type RoomEvent struct {
	Kind   string    `json:"kind"` // created | joined | removed | swept
	Room   string    `json:"room"`
	Player string    `json:"player,omitempty"`
	At     time.Time `json:"at"`
}

// EventFeed publishes room events over redis pub/sub. A nil feed is valid
// and drops everything, so callers don't need to branch on configuration.
type EventFeed struct {
	rdb *redis.Client
	log *slog.Logger
}

// NewEventFeed connects to redis and verifies connectivity.
func NewEventFeed(ctx context.Context, addr string, db int, log *slog.Logger) (*EventFeed, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &EventFeed{rdb: rdb, log: log}, nil
}

// Publish emits one event. Failures are logged, never propagated: the feed
// is not on any correctness path.
func (f *EventFeed) Publish(ctx context.Context, ev RoomEvent) {
	if f == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	raw, _ := json.Marshal(ev)
	if err := f.rdb.Publish(ctx, eventChannel, raw).Err(); err != nil {
		f.log.Warn("feed.publish", "kind", ev.Kind, "room", ev.Room, "err", err)
	}
}

// Close shuts down the redis connection.
func (f *EventFeed) Close() {
	if f == nil {
		return
	}
	_ = f.rdb.Close()
}

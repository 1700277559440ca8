package session

import (
	"context"
	"log/slog"
	"time"
)

const (
	// DefaultSweepInterval is how often the sweeper scans for dead rooms.
	DefaultSweepInterval = 5 * time.Minute
	// DefaultRoomTTL is how long a room may sit idle before eviction.
	DefaultRoomTTL = time.Hour

	retryInterval = time.Minute
)

// EvictFunc is called after the sweeper removes a room, so collaborators
// (persistence mirror, event feed) can observe the eviction.
type EvictFunc func(ctx context.Context, code string) error

// Sweeper periodically evicts rooms that have been idle past their TTL or
// were flagged inactive.
type Sweeper struct {
	log      *slog.Logger
	reg      *Registry
	interval time.Duration
	ttl      time.Duration
	onEvict  EvictFunc
}

func NewSweeper(log *slog.Logger, reg *Registry, interval, ttl time.Duration, onEvict EvictFunc) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if ttl <= 0 {
		ttl = DefaultRoomTTL
	}
	return &Sweeper{log: log, reg: reg, interval: interval, ttl: ttl, onEvict: onEvict}
}

// Run loops until ctx is cancelled. A failed cycle is logged and retried on
// a shorter interval instead of killing the loop.
func (s *Sweeper) Run(ctx context.Context) {
	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweep.stopped")
			return
		case <-timer.C:
		}

		if err := s.sweepOnce(ctx); err != nil {
			s.log.Error("sweep.cycle", "err", err)
			timer.Reset(retryInterval)
		} else {
			timer.Reset(s.interval)
		}
	}
}

// sweepOnce evicts every expired room. A failure on one room does not stop
// the rest of the sweep; the first error is reported so the loop can back
// off.
func (s *Sweeper) sweepOnce(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-s.ttl)

	var firstErr error
	for _, code := range s.reg.ExpiredRooms(cutoff) {
		s.reg.RemoveRoom(code)
		s.log.Info("sweep.room_evicted", "room", code)

		if s.onEvict == nil {
			continue
		}
		if err := s.onEvict(ctx, code); err != nil {
			s.log.Error("sweep.evict_hook", "room", code, "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

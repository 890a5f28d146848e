package availability

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"villabook/internal/domain/reservation"
)

// RemoteCache mirrors the remote reservations collection. It starts empty
// and unloaded; Run keeps it current through the store's change feed.
type RemoteCache struct {
	Store       reservation.RemoteStore
	Broadcaster *Broadcaster
	Logger      *slog.Logger
	RetryDelay  time.Duration

	mu     sync.RWMutex
	items  map[reservation.Code]*reservation.Reservation
	loaded bool
}

func NewRemoteCache(store reservation.RemoteStore, b *Broadcaster, logger *slog.Logger) *RemoteCache {
	return &RemoteCache{Store: store, Broadcaster: b, Logger: logger}
}

var ErrCacheNotConfigured = errors.New("availability: remote cache missing store")

// Load replaces the snapshot with a fresh read of the collection.
func (c *RemoteCache) Load(ctx context.Context) error {
	if c.Store == nil {
		return ErrCacheNotConfigured
	}
	list, err := c.Store.List(ctx)
	if err != nil {
		return err
	}
	items := make(map[reservation.Code]*reservation.Reservation, len(list))
	for _, r := range list {
		items[r.ID] = r.Clone()
	}
	c.mu.Lock()
	c.items = items
	c.loaded = true
	c.mu.Unlock()
	return nil
}

// Reservations returns a copy of the snapshot and whether it was ever loaded.
func (c *RemoteCache) Reservations() ([]*reservation.Reservation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*reservation.Reservation, 0, len(c.items))
	for _, r := range c.items {
		out = append(out, r.Clone())
	}
	return out, c.loaded
}

func (c *RemoteCache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Put inserts a reservation the process just wrote so the next render sees
// it before the change feed catches up.
func (c *RemoteCache) Put(r *reservation.Reservation) {
	if r == nil {
		return
	}
	c.mu.Lock()
	if c.items == nil {
		c.items = make(map[reservation.Code]*reservation.Reservation)
	}
	c.items[r.ID] = r.Clone()
	c.mu.Unlock()
}

func (c *RemoteCache) Remove(code reservation.Code) {
	c.mu.Lock()
	delete(c.items, code)
	c.mu.Unlock()
}

// Refresh reloads and tells subscribers. Errors are logged and the previous
// snapshot stays in place.
func (c *RemoteCache) Refresh(ctx context.Context) {
	if err := c.Load(ctx); err != nil {
		if c.Logger != nil && ctx.Err() == nil {
			c.Logger.Warn("reservations reload failed", "error", err)
		}
		return
	}
	if c.Broadcaster != nil {
		c.Broadcaster.Publish(Change{Kind: ChangeReservations})
	}
}

// Run loads the collection and then follows the change feed until ctx ends.
// A broken feed is retried after RetryDelay.
func (c *RemoteCache) Run(ctx context.Context) error {
	if c.Store == nil {
		return ErrCacheNotConfigured
	}
	c.Refresh(ctx)
	for {
		err := c.Store.Watch(ctx, func() { c.Refresh(ctx) })
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if c.Logger != nil {
			c.Logger.Warn("reservations watch stopped", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.retryDelay()):
		}
		c.Refresh(ctx)
	}
}

func (c *RemoteCache) retryDelay() time.Duration {
	if c.RetryDelay <= 0 {
		return 2 * time.Second
	}
	return c.RetryDelay
}

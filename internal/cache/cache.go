// Package cache memoizes generated insight responses per feature and subject.
// Entries are never evicted: once the TTL elapses they become stale, and
// stale entries stay servable indefinitely as a degraded fallback when the
// upstream API is unavailable.
package cache

import (
	"context"
	"time"

	"tailwise-insights/internal/metrics"
)

// State classifies a lookup result.
type State int

const (
	StateMiss State = iota
	StateFresh
	StateStale
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateStale:
		return "stale"
	default:
		return "miss"
	}
}

// Entry is a stored response with the time it was written. Freshness is a
// read-side decision; the store keeps stale entries around.
type Entry struct {
	Data     []byte
	StoredAt time.Time
}

// Store is the persistence contract behind ResponseCache.
// Implemented by the memory store (dev) and the Redis store (prod).
type Store interface {
	// Get returns the entry for key regardless of its age.
	Get(ctx context.Context, key string) (Entry, bool, error)
	// Set overwrites the entry for key.
	Set(ctx context.Context, key string, data []byte, storedAt time.Time) error
}

// DefaultTTL is how long an entry counts as fresh.
const DefaultTTL = 24 * time.Hour

// ResponseCache layers TTL semantics over a Store.
type ResponseCache struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

func New(store Store, ttl time.Duration) *ResponseCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ResponseCache{
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}
}

// Lookup returns the cached data for key together with its state. Stale data
// is returned, not discarded; the caller decides whether to serve it.
// A store error is reported as a miss so the caller falls through to a
// regular refresh.
func (c *ResponseCache) Lookup(ctx context.Context, key Key) ([]byte, State, error) {
	entry, ok, err := c.store.Get(ctx, key.String())
	if err != nil {
		metrics.InsightCacheLookups.WithLabelValues(key.Feature, "error").Inc()
		return nil, StateMiss, err
	}
	if !ok {
		metrics.InsightCacheLookups.WithLabelValues(key.Feature, "miss").Inc()
		return nil, StateMiss, nil
	}

	state := StateFresh
	if c.now().Sub(entry.StoredAt) > c.ttl {
		state = StateStale
	}
	metrics.InsightCacheLookups.WithLabelValues(key.Feature, state.String()).Inc()
	return entry.Data, state, nil
}

// Put overwrites the entry for key, stamping it with the current time.
func (c *ResponseCache) Put(ctx context.Context, key Key, data []byte) error {
	return c.store.Set(ctx, key.String(), data, c.now())
}

// TTL returns the configured freshness window.
func (c *ResponseCache) TTL() time.Duration {
	return c.ttl
}

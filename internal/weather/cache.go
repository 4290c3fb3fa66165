// Package weather provides the current-conditions source adapters, the
// adapter-layer read-through cache, and the authority resolver that picks a
// single authoritative source per terminal.
package weather

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// CacheStats is a point-in-time snapshot of cache behavior, exposed for
// diagnostics and tests.
type CacheStats struct {
	Entries     int   `json:"entries"`
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	StaleServes int64 `json:"stale_serves"`
}

type cacheEntry struct {
	obs      LocalObservation
	storedAt time.Time
}

// ConditionsCache is an explicitly constructed, injected TTL cache for local
// observations, keyed by terminal. Entries past the TTL are not returned by
// Get but are retained so GetStale can serve them when a refresh fails
// (availability over freshness). Concurrent population races are acceptable;
// last writer wins, which is safe because entries are pure functions of
// (terminal, time window).
type ConditionsCache struct {
	ttl   time.Duration
	clock clockwork.Clock

	mu      sync.Mutex
	entries map[string]cacheEntry
	stats   CacheStats
}

// NewConditionsCache creates a cache with the given TTL. A nil clock uses
// real time; tests inject a fake clock to step through expiry.
func NewConditionsCache(ttl time.Duration, clock clockwork.Clock) *ConditionsCache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ConditionsCache{
		ttl:     ttl,
		clock:   clock,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the cached observation for key if it is within the TTL.
func (c *ConditionsCache) Get(key string) (LocalObservation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || c.clock.Now().Sub(e.storedAt) > c.ttl {
		c.stats.Misses++
		return LocalObservation{}, false
	}
	c.stats.Hits++
	return e.obs, true
}

// GetStale returns the cached observation regardless of age. Used to serve
// a stale entry when a fresh fetch fails.
func (c *ConditionsCache) GetStale(key string) (LocalObservation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return LocalObservation{}, false
	}
	c.stats.StaleServes++
	return e.obs, true
}

// Put stores an observation under key, resetting its TTL.
func (c *ConditionsCache) Put(key string, obs LocalObservation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{obs: obs, storedAt: c.clock.Now()}
}

// Clear drops all entries. Counters are preserved.
func (c *ConditionsCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// Stats returns a snapshot of the cache counters.
func (c *ConditionsCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Entries = len(c.entries)
	return s
}

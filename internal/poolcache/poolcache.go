// Package poolcache implements the pool snapshot cache (C2): a TTL-bounded,
// single-flight-coalesced cache of composite pool state fetched from the
// gateway. Grounded on the teacher's market.Book mutex-protected local
// mirror, generalized with golang.org/x/sync/singleflight to satisfy the
// concurrent-fetch-coalescing requirement.
package poolcache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"galaswap-agent/pkg/types"
)

// Fetcher fetches a pool's composite state from the transport. Implemented
// by *transport.Gateway in production, faked in tests.
type Fetcher interface {
	GetCompositePool(ctx context.Context, t0, t1 types.TokenKey, fee types.FeeTier) (*types.PoolSnapshot, error)
}

type cacheEntry struct {
	snapshot *types.PoolSnapshot
	expiry   time.Time
}

// Cache is the pool snapshot cache. Safe for concurrent use.
type Cache struct {
	fetcher Fetcher
	ttl     time.Duration

	mu      sync.RWMutex
	entries map[types.PoolKey]*cacheEntry

	sf singleflight.Group
}

// New creates a pool cache backed by fetcher with the given TTL.
func New(fetcher Fetcher, ttl time.Duration) *Cache {
	return &Cache{
		fetcher: fetcher,
		ttl:     ttl,
		entries: make(map[types.PoolKey]*cacheEntry),
	}
}

// Get returns a live snapshot for (t0, t1, fee), fetching on cache miss or
// expiry. Concurrent Gets for the same key coalesce to a single in-flight
// fetch; concurrent Gets for different keys proceed in parallel.
func (c *Cache) Get(ctx context.Context, t0, t1 types.TokenKey, fee types.FeeTier) (*types.PoolSnapshot, error) {
	key := types.CanonicalPoolKey(t0, t1, fee)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && time.Now().Before(entry.expiry) {
		return entry.snapshot, nil
	}

	sfKey := key.Token0.String() + "|" + key.Token1.String() + "|" + strconv.Itoa(int(key.Fee))
	v, err, _ := c.sf.Do(sfKey, func() (any, error) {
		// Re-check under the singleflight critical section in case another
		// goroutine populated it while we were entering Do.
		c.mu.RLock()
		entry, ok := c.entries[key]
		c.mu.RUnlock()
		if ok && time.Now().Before(entry.expiry) {
			return entry.snapshot, nil
		}

		snap, err := c.fetcher.GetCompositePool(ctx, key.Token0, key.Token1, key.Fee)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[key] = &cacheEntry{snapshot: snap, expiry: time.Now().Add(c.ttl)}
		c.mu.Unlock()

		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.PoolSnapshot), nil
}

// SnapshotAll returns every currently-live cache entry without triggering
// new fetches; expired entries are omitted.
func (c *Cache) SnapshotAll() []*types.PoolSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := time.Now()
	out := make([]*types.PoolSnapshot, 0, len(c.entries))
	for _, e := range c.entries {
		if now.Before(e.expiry) {
			out = append(out, e.snapshot)
		}
	}
	return out
}

// EvictExpired removes every entry whose TTL has elapsed.
func (c *Cache) EvictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for k, e := range c.entries {
		if !now.Before(e.expiry) {
			delete(c.entries, k)
		}
	}
}

// EvictAll clears the cache unconditionally.
func (c *Cache) EvictAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[types.PoolKey]*cacheEntry)
}

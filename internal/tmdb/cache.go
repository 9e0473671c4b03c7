package tmdb

import (
	"sync"
	"time"
)

type cacheKey struct {
	kind string
	id   int64
}

type cacheEntry struct {
	ids     ExternalIDs
	expires time.Time
}

type cache struct {
	mu      sync.RWMutex
	entries map[cacheKey]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

func newCache(ttl time.Duration) *cache {
	return &cache{
		entries: make(map[cacheKey]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *cache) get(key cacheKey) (ExternalIDs, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || c.now().After(entry.expires) {
		return ExternalIDs{}, false
	}
	return entry.ids, true
}

func (c *cache) set(key cacheKey, ids ExternalIDs) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		ids:     ids,
		expires: c.now().Add(c.ttl),
	}
}

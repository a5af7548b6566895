package services

import (
	"log"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// Cache is a size-bounded, short-TTL read-through cache. It is an
// optimisation only: a nil *Cache is valid and always calls the loader.
type Cache[V any] struct {
	lru   *expirable.LRU[string, cacheEntry[V]]
	ttl   time.Duration
	loads singleflight.Group

	// generations counts invalidations per key; a load only populates the
	// cache if no invalidation happened while it ran
	mu          sync.Mutex
	generations map[string]uint64
}

type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// NewCache creates a cache holding at most size entries for at most ttl
func NewCache[V any](size int, ttl time.Duration) *Cache[V] {
	if size <= 0 {
		size = 1024
	}
	return &Cache[V]{
		lru:         expirable.NewLRU[string, cacheEntry[V]](size, nil, ttl),
		ttl:         ttl,
		generations: make(map[string]uint64),
	}
}

// GetOrLoad returns the cached value for key, or calls loader and caches its
// result for ttl (capped at the cache's own TTL). Concurrent misses for one
// key share a single load. Loader errors are returned and nothing is cached.
func (c *Cache[V]) GetOrLoad(key string, loader func() (V, error), ttl time.Duration) (V, error) {
	if c == nil || c.lru == nil {
		return loader()
	}

	if entry, ok := c.lru.Get(key); ok && time.Now().Before(entry.expiresAt) {
		return entry.value, nil
	}

	if ttl <= 0 || ttl > c.ttl {
		ttl = c.ttl
	}
	v, err, _ := c.loads.Do(key, func() (interface{}, error) {
		gen := c.generation(key)
		value, err := loader()
		if err != nil {
			return value, err
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.generations[key] == gen {
			c.lru.Add(key, cacheEntry[V]{value: value, expiresAt: time.Now().Add(ttl)})
		}
		return value, nil
	})
	value, _ := v.(V)
	return value, err
}

func (c *Cache[V]) generation(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[key]
}

// Invalidate drops key from the cache. A load already in flight for key
// still returns to its callers but is not cached.
func (c *Cache[V]) Invalidate(key string) {
	if c == nil || c.lru == nil {
		return
	}
	c.mu.Lock()
	c.generations[key]++
	removed := c.lru.Remove(key)
	c.mu.Unlock()
	c.loads.Forget(key)
	if removed {
		log.Printf("[CACHE] invalidated %s", key)
	}
}

// Len returns the number of cached entries
func (c *Cache[V]) Len() int {
	if c == nil || c.lru == nil {
		return 0
	}
	return c.lru.Len()
}

func caseCacheKey(caseID string) string {
	return "case:" + caseID
}

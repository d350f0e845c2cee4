package storage

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultCacheTTL is how long a cached historical shard stays warm.
const DefaultCacheTTL = 8 * time.Hour

// Cache is the optional shard cache consulted by the whole-shard read
// path. Implementations must be safe for concurrent use. Add is
// add-if-absent: a key already present is left untouched.
type Cache interface {
	Get(key string) ([]TimestampedValue, bool)
	Add(key string, shard []TimestampedValue, ttl time.Duration)
}

// LRUCache adapts an expiring LRU to the Cache interface. The entry
// lifetime is fixed at construction; the ttl argument of Add is a hint
// this adapter does not act on.
type LRUCache struct {
	lru *expirable.LRU[string, []TimestampedValue]
}

// NewLRUCache builds a shard cache holding up to size shards for ttl each.
// A non-positive ttl selects DefaultCacheTTL.
func NewLRUCache(size int, ttl time.Duration) *LRUCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &LRUCache{lru: expirable.NewLRU[string, []TimestampedValue](size, nil, ttl)}
}

// Get returns the cached shard for key, if present and unexpired.
func (c *LRUCache) Get(key string) ([]TimestampedValue, bool) {
	return c.lru.Get(key)
}

// Add stores the shard unless the key is already cached.
func (c *LRUCache) Add(key string, shard []TimestampedValue, _ time.Duration) {
	if _, ok := c.lru.Get(key); ok {
		return
	}
	c.lru.Add(key, shard)
}

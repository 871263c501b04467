package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache keeps embedding vectors in process memory with TTL eviction
type MemoryCache struct {
	store *gocache.Cache
}

// NewMemoryCache creates a memory cache with the given default TTL
func NewMemoryCache(defaultTTL time.Duration, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{store: gocache.New(defaultTTL, cleanupInterval)}
}

// Get returns the cached vectors for key
func (c *MemoryCache) Get(key string) ([][]float64, bool) {
	val, found := c.store.Get(key)
	if !found {
		return nil, false
	}
	vectors, ok := val.([][]float64)
	return vectors, ok
}

// Set stores vectors under key; ttl 0 means the cache default
func (c *MemoryCache) Set(key string, vectors [][]float64, ttl time.Duration) error {
	c.store.Set(key, vectors, ttl)
	return nil
}

// Delete removes key
func (c *MemoryCache) Delete(key string) error {
	c.store.Delete(key)
	return nil
}

// Clear drops every entry
func (c *MemoryCache) Clear() error {
	c.store.Flush()
	return nil
}

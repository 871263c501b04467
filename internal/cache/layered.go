package cache

import "time"

// LayeredCache fronts the disk cache with a memory layer so repeated
// analyses of the same document skip both the API and the disk read
type LayeredCache struct {
	memory Cache
	disk   Cache
}

// NewLayeredCache creates a memory-over-disk cache
func NewLayeredCache(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *LayeredCache {
	return &LayeredCache{
		memory: NewMemoryCache(memoryTTL, 10*time.Minute),
		disk:   NewDiskCache(diskDir, diskTTL),
	}
}

// Get checks memory first, then disk, promoting disk hits into memory
func (c *LayeredCache) Get(key string) ([][]float64, bool) {
	if vectors, found := c.memory.Get(key); found {
		return vectors, true
	}
	if vectors, found := c.disk.Get(key); found {
		_ = c.memory.Set(key, vectors, 0)
		return vectors, true
	}
	return nil, false
}

// Set writes through to both layers
func (c *LayeredCache) Set(key string, vectors [][]float64, ttl time.Duration) error {
	if err := c.memory.Set(key, vectors, ttl); err != nil {
		return err
	}
	return c.disk.Set(key, vectors, ttl)
}

// Delete removes key from both layers
func (c *LayeredCache) Delete(key string) error {
	_ = c.memory.Delete(key)
	return c.disk.Delete(key)
}

// Clear drops both layers
func (c *LayeredCache) Clear() error {
	_ = c.memory.Clear()
	return c.disk.Clear()
}

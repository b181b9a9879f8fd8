package cache

import (
	"context"
	"sync"
	"time"

	"github.com/wishlist/backend/internal/domain"
)

// cacheItem represents a single item in the cache with its own TTL
type cacheItem[T any] struct {
	Value    T
	StoredAt time.Time
	TTL      time.Duration
}

func (i cacheItem[T]) expired(now time.Time) bool {
	return now.Sub(i.StoredAt) > i.TTL
}

// MemoryCache is a thread-safe in-memory cache with TTL support.
// Expiry is lazy on Get/Has; Cleanup sweeps everything that has aged out.
type MemoryCache[T any] struct {
	data       map[string]cacheItem[T]
	mutex      sync.RWMutex
	defaultTTL time.Duration
	now        func() time.Time
}

// NewMemoryCache creates a new in-memory cache whose entries live for defaultTTL unless Set says otherwise
func NewMemoryCache[T any](defaultTTL time.Duration) *MemoryCache[T] {
	return &MemoryCache[T]{
		data:       make(map[string]cacheItem[T]),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Set stores value under key, replacing any previous entry. A ttl <= 0 uses the default TTL.
func (c *MemoryCache[T]) Set(key string, value T, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data[key] = cacheItem[T]{
		Value:    value,
		StoredAt: c.now(),
		TTL:      ttl,
	}
}

// Get retrieves a value from the cache, dropping it if it has expired
func (c *MemoryCache[T]) Get(key string) (T, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var zero T
	item, exists := c.data[key]
	if !exists {
		return zero, false
	}
	if item.expired(c.now()) {
		delete(c.data, key)
		return zero, false
	}

	return item.Value, true
}

// Has reports whether key holds an unexpired entry
func (c *MemoryCache[T]) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Delete removes a value from the cache and reports whether it was present
func (c *MemoryCache[T]) Delete(key string) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	_, exists := c.data[key]
	delete(c.data, key)
	return exists
}

// Clear removes all items from the cache
func (c *MemoryCache[T]) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.data = make(map[string]cacheItem[T])
}

// Cleanup removes every expired entry and returns how many were dropped
func (c *MemoryCache[T]) Cleanup() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	removed := 0
	for key, item := range c.data {
		if item.expired(now) {
			delete(c.data, key)
			removed++
		}
	}
	return removed
}

// Stats counts entries without evicting anything
func (c *MemoryCache[T]) Stats() domain.CacheStats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	now := c.now()
	stats := domain.CacheStats{TotalEntries: len(c.data)}
	for _, item := range c.data {
		if item.expired(now) {
			stats.ExpiredEntries++
		} else {
			stats.ValidEntries++
		}
	}
	return stats
}

// Run sweeps expired entries every interval until ctx is cancelled
func (c *MemoryCache[T]) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Cleanup()
		}
	}
}

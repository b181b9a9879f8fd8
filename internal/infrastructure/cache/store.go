package cache

import (
	"context"
	"time"

	"github.com/wishlist/backend/internal/domain"
)

// Store adapts a MemoryCache to domain.CacheRepository
type Store[T any] struct {
	cache *MemoryCache[T]
}

// NewStore wraps cache
func NewStore[T any](cache *MemoryCache[T]) *Store[T] {
	return &Store[T]{cache: cache}
}

// Get returns the live value for key, or domain.ErrCacheMiss
func (s *Store[T]) Get(ctx context.Context, key string) (T, error) {
	value, ok := s.cache.Get(key)
	if !ok {
		return value, domain.ErrCacheMiss
	}
	return value, nil
}

// Set stores value under key for ttl
func (s *Store[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	s.cache.Set(key, value, ttl)
	return nil
}

// Delete removes key
func (s *Store[T]) Delete(ctx context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}

// Exists reports whether key holds a live value
func (s *Store[T]) Exists(ctx context.Context, key string) (bool, error) {
	return s.cache.Has(key), nil
}

// Stats reports the wrapped cache's statistics
func (s *Store[T]) Stats() domain.CacheStats {
	return s.cache.Stats()
}

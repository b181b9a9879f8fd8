package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wishlist/backend/internal/domain"
)

// connectionTimeout bounds the startup ping
const connectionTimeout = 5 * time.Second

// NewRedisClient parses redisURL and verifies the server is reachable
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}

// RedisStore is a domain.CacheRepository backed by Redis, shared between service instances.
// Values are stored as JSON and expire via the Redis TTL.
type RedisStore[T any] struct {
	client *redis.Client
}

// NewRedisStore creates a store on an existing client
func NewRedisStore[T any](client *redis.Client) *RedisStore[T] {
	return &RedisStore[T]{client: client}
}

// Get decodes the value stored under key, or returns domain.ErrCacheMiss
func (s *RedisStore[T]) Get(ctx context.Context, key string) (T, error) {
	var value T

	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return value, domain.ErrCacheMiss
	}
	if err != nil {
		return value, fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}

	if err := json.Unmarshal(data, &value); err != nil {
		return value, fmt.Errorf("decode cached value: %w", err)
	}
	return value, nil
}

// Set JSON-encodes value under key with ttl
func (s *RedisStore[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cached value: %w", err)
	}

	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}
	return nil
}

// Delete removes key
func (s *RedisStore[T]) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}
	return nil
}

// Exists reports whether key is present
func (s *RedisStore[T]) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}
	return n > 0, nil
}

package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository[T any] interface {
	Get(ctx context.Context, key string) (T, error)
	Set(ctx context.Context, key string, value T, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// PageFetcher retrieves raw HTML for a product URL
type PageFetcher interface {
	FetchWithRetry(ctx context.Context, rawURL string, retries int) (*FetchedPage, error)
}

// RateLimiter decides whether a client identity may make another request
type RateLimiter interface {
	Check(key string) RateLimitStatus
}

// CacheStatsReporter exposes TTL cache statistics
type CacheStatsReporter interface {
	Stats() CacheStats
}

// ProductCacheKey namespaces scrape payloads in the product cache
func ProductCacheKey(rawURL string) string {
	return "product:" + rawURL
}

// PriceCacheKey namespaces price snapshots in the price cache
func PriceCacheKey(rawURL string) string {
	return "price:" + rawURL
}

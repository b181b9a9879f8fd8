package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wishlist/backend/config"
	httpDelivery "github.com/wishlist/backend/internal/delivery/http"
	"github.com/wishlist/backend/internal/domain"
	"github.com/wishlist/backend/internal/infrastructure/cache"
	"github.com/wishlist/backend/internal/infrastructure/fetcher"
	"github.com/wishlist/backend/internal/infrastructure/logger"
	"github.com/wishlist/backend/internal/infrastructure/metrics"
	"github.com/wishlist/backend/internal/infrastructure/ratelimit"
	"github.com/wishlist/backend/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "wishlist-scraper: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting wishlist scraper",
		logger.String("environment", cfg.Server.Environment),
		logger.String("port", cfg.Server.Port),
		logger.String("cache_type", cfg.Cache.Type),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Initialize infrastructure dependencies
	products, prices, stats, closeCache, err := buildCaches(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeCache()

	pageFetcher := fetcher.NewClient(fetcher.Config{
		UserAgent:    cfg.Scraper.UserAgent,
		Timeout:      cfg.Scraper.Timeout,
		MaxRetries:   cfg.Scraper.MaxRetries,
		RetryBackoff: cfg.Scraper.RetryBackoff,
		MaxBodyBytes: cfg.Scraper.MaxBodyBytes,
		HostRPS:      cfg.Scraper.HostRPS,
		HostBurst:    cfg.Scraper.HostBurst,
	}, log, m)

	scrapeLimiter := newLimiter(ctx, "scrape", cfg.RateLimit.Scrape, cfg.RateLimit.CleanupInterval)
	apiLimiter := newLimiter(ctx, "api", cfg.RateLimit.API, cfg.RateLimit.CleanupInterval)
	log.Info("Rate limits configured",
		logger.Int("scrape_max", cfg.RateLimit.Scrape.MaxRequests),
		logger.Duration("scrape_window", cfg.RateLimit.Scrape.Window),
		logger.Int("api_max", cfg.RateLimit.API.MaxRequests),
		logger.Duration("api_window", cfg.RateLimit.API.Window),
	)

	// Initialize usecase layer
	scrapeService := usecase.NewScrapeService(products, prices, pageFetcher, scrapeLimiter, usecase.ScrapeServiceConfig{
		CacheTTL:          cfg.Cache.ProductTTL,
		PriceTTL:          cfg.Cache.PriceTTL,
		Retries:           cfg.Scraper.MaxRetries,
		RefreshMaxURLs:    cfg.Refresh.MaxURLs,
		RefreshConcurrent: cfg.Refresh.Concurrency,
		Logger:            log,
		Metrics:           m,
	})

	handler := httpDelivery.NewHandler(scrapeService, stats, log)
	router := httpDelivery.SetupRouter(cfg, handler, httpDelivery.RouterOptions{
		APILimiter: apiLimiter,
		Logger:     log,
		Metrics:    m,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server listening", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		log.Info("Shutting down", logger.Duration("timeout", cfg.Server.ShutdownTimeout))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// buildCaches returns the product and price stores for the configured backend.
// Memory caches get a janitor bound to ctx and are reported by the stats endpoint.
func buildCaches(ctx context.Context, cfg *config.Config, log logger.Logger) (
	domain.CacheRepository[domain.ScrapedProduct],
	domain.CacheRepository[domain.PriceSnapshot],
	map[string]domain.CacheStatsReporter,
	func(),
	error,
) {
	if cfg.Cache.Type == "redis" {
		client, err := cache.NewRedisClient(cfg.Cache.RedisURL)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		log.Info("Using redis cache", logger.Duration("product_ttl", cfg.Cache.ProductTTL))
		closeFn := func() {
			if err := client.Close(); err != nil {
				log.Warn("failed to close redis client", logger.Error(err))
			}
		}
		return cache.NewRedisStore[domain.ScrapedProduct](client),
			cache.NewRedisStore[domain.PriceSnapshot](client),
			nil, closeFn, nil
	}

	products := cache.NewMemoryCache[domain.ScrapedProduct](cfg.Cache.ProductTTL)
	prices := cache.NewMemoryCache[domain.PriceSnapshot](cfg.Cache.PriceTTL)
	go products.Run(ctx, cfg.Cache.CleanupInterval)
	go prices.Run(ctx, cfg.Cache.CleanupInterval)
	log.Info("Using memory cache",
		logger.Duration("product_ttl", cfg.Cache.ProductTTL),
		logger.Duration("cleanup_interval", cfg.Cache.CleanupInterval),
	)

	stats := map[string]domain.CacheStatsReporter{
		"products": products,
		"prices":   prices,
	}
	return cache.NewStore(products), cache.NewStore(prices), stats, func() {}, nil
}

func newLimiter(ctx context.Context, name string, policy config.PolicyConfig, cleanup time.Duration) *ratelimit.FixedWindowLimiter {
	limiter := ratelimit.NewFixedWindowLimiter(ratelimit.Policy{
		Name:        name,
		MaxRequests: policy.MaxRequests,
		Window:      policy.Window,
	})
	go limiter.Run(ctx, cleanup)
	return limiter
}

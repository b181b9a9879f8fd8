package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/wishlist/backend/internal/domain"
	"github.com/wishlist/backend/internal/infrastructure/logger"
	"github.com/wishlist/backend/internal/infrastructure/metrics"
)

// Scrape outcomes used as metric labels
const (
	outcomeSuccess         = "success"
	outcomeCacheHit        = "cache_hit"
	outcomeInvalidURL      = "invalid_url"
	outcomeRateLimited     = "rate_limited"
	outcomeUnsupportedFile = "unsupported_file"
	outcomeFetchFailed     = "fetch_failed"
	outcomeNoProductInfo   = "no_product_info"
	outcomeError           = "error"
)

// ScrapeServiceConfig holds configuration for the scrape service
type ScrapeServiceConfig struct {
	CacheTTL          time.Duration
	PriceTTL          time.Duration
	Retries           int
	RefreshMaxURLs    int
	RefreshConcurrent int
	Logger            logger.Logger
	Metrics           *metrics.Metrics
}

// ScrapeResult is a successful scrape, or the rate-limit verdict of a rejected one
type ScrapeResult struct {
	Product   *domain.ScrapedProduct
	CacheHit  bool
	RateLimit *domain.RateLimitStatus
}

// ScrapeService validates, rate-limits, caches, fetches and extracts product pages
type ScrapeService struct {
	products  domain.CacheRepository[domain.ScrapedProduct]
	prices    domain.CacheRepository[domain.PriceSnapshot]
	fetcher   domain.PageFetcher
	limiter   domain.RateLimiter
	extractor *MetadataExtractor
	log       logger.Logger
	metrics   *metrics.Metrics

	cacheTTL          time.Duration
	priceTTL          time.Duration
	retries           int
	refreshMaxURLs    int
	refreshConcurrent int
	now               func() time.Time
}

// NewScrapeService creates a new scrape service with dependencies
func NewScrapeService(
	products domain.CacheRepository[domain.ScrapedProduct],
	prices domain.CacheRepository[domain.PriceSnapshot],
	fetcher domain.PageFetcher,
	limiter domain.RateLimiter,
	config ScrapeServiceConfig,
) *ScrapeService {
	cacheTTL := config.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	priceTTL := config.PriceTTL
	if priceTTL <= 0 {
		priceTTL = 24 * time.Hour
	}
	retries := config.Retries
	if retries <= 0 {
		retries = 3
	}
	refreshMaxURLs := config.RefreshMaxURLs
	if refreshMaxURLs <= 0 {
		refreshMaxURLs = 20
	}
	refreshConcurrent := config.RefreshConcurrent
	if refreshConcurrent <= 0 {
		refreshConcurrent = 4
	}
	log := config.Logger
	if log == nil {
		log = logger.NewNop()
	}

	return &ScrapeService{
		products:          products,
		prices:            prices,
		fetcher:           fetcher,
		limiter:           limiter,
		extractor:         NewMetadataExtractor(),
		log:               log.With(logger.String("component", "scrape_service")),
		metrics:           config.Metrics,
		cacheTTL:          cacheTTL,
		priceTTL:          priceTTL,
		retries:           retries,
		refreshMaxURLs:    refreshMaxURLs,
		refreshConcurrent: refreshConcurrent,
		now:               time.Now,
	}
}

// Scrape returns product metadata for request.URL.
// Flow: validate -> rate limit -> cache -> file type -> fetch -> extract -> cache -> return.
// Once validation passes the result carries the rate-limit verdict, even alongside an error.
func (s *ScrapeService) Scrape(ctx context.Context, request domain.ScrapeRequest) (*ScrapeResult, error) {
	start := time.Now()
	result, err := s.scrape(ctx, request)
	s.metrics.ObserveScrape(scrapeOutcome(result, err), time.Since(start))
	return result, err
}

func (s *ScrapeService) scrape(ctx context.Context, request domain.ScrapeRequest) (*ScrapeResult, error) {
	target, err := ParseProductURL(request.URL)
	if err != nil {
		return nil, err
	}

	status := s.limiter.Check(request.ClientIdentity)
	result := &ScrapeResult{RateLimit: &status}
	if !status.Allowed {
		s.metrics.ObserveRateLimited("scrape")
		return result, domain.ErrRateLimited
	}

	cacheKey := domain.ProductCacheKey(request.URL)
	cached, err := s.products.Get(ctx, cacheKey)
	if err == nil {
		s.metrics.ObserveCacheLookup(true)
		result.Product = &cached
		result.CacheHit = true
		return result, nil
	}
	if !errors.Is(err, domain.ErrCacheMiss) {
		s.log.Warn("product cache lookup failed", logger.String("url", request.URL), logger.Error(err))
	}
	s.metrics.ObserveCacheLookup(false)

	product, err := s.fetchProduct(ctx, target, request.URL)
	if err != nil {
		return result, err
	}
	result.Product = product
	return result, nil
}

// fetchProduct runs the uncached part of a scrape and repopulates the caches
func (s *ScrapeService) fetchProduct(ctx context.Context, target *url.URL, rawURL string) (*domain.ScrapedProduct, error) {
	if HasDisallowedExtension(target) {
		return nil, domain.ErrUnsupportedFileType
	}

	page, err := s.fetcher.FetchWithRetry(ctx, target.String(), s.retries)
	if err != nil {
		s.log.Error("fetch failed", logger.String("url", rawURL), logger.Error(err))
		if !errors.Is(err, domain.ErrFetchFailed) {
			err = fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
		}
		return nil, err
	}

	meta := s.extractor.Extract(string(page.Body), target.String())
	if meta.Title == "" {
		s.log.Info("no product title found", logger.String("url", rawURL))
		return nil, domain.ErrNoProductInfo
	}

	product := domain.NewScrapedProduct(meta)

	// Log but don't fail if caching fails
	if err := s.products.Set(ctx, domain.ProductCacheKey(rawURL), *product, s.cacheTTL); err != nil {
		s.log.Warn("failed to cache product", logger.String("url", rawURL), logger.Error(err))
	}
	s.recordPrice(ctx, rawURL, product)

	return product, nil
}

// recordPrice stores a price snapshot when the product has a price
func (s *ScrapeService) recordPrice(ctx context.Context, rawURL string, product *domain.ScrapedProduct) {
	if product.CurrentPrice == nil {
		return
	}

	snapshot := domain.PriceSnapshot{
		URL:          rawURL,
		CurrentPrice: *product.CurrentPrice,
		StoreName:    product.StoreName,
		CheckedAt:    s.now(),
	}
	if err := s.prices.Set(ctx, domain.PriceCacheKey(rawURL), snapshot, s.priceTTL); err != nil {
		s.log.Warn("failed to record price snapshot", logger.String("url", rawURL), logger.Error(err))
	}
}

func scrapeOutcome(result *ScrapeResult, err error) string {
	switch {
	case err == nil && result != nil && result.CacheHit:
		return outcomeCacheHit
	case err == nil:
		return outcomeSuccess
	case errors.Is(err, domain.ErrInvalidURL), errors.Is(err, domain.ErrInvalidURLFormat):
		return outcomeInvalidURL
	case errors.Is(err, domain.ErrRateLimited):
		return outcomeRateLimited
	case errors.Is(err, domain.ErrUnsupportedFileType):
		return outcomeUnsupportedFile
	case errors.Is(err, domain.ErrFetchFailed):
		return outcomeFetchFailed
	case errors.Is(err, domain.ErrNoProductInfo):
		return outcomeNoProductInfo
	default:
		return outcomeError
	}
}

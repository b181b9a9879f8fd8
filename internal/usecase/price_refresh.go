package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/wishlist/backend/internal/domain"
	"github.com/wishlist/backend/internal/infrastructure/logger"
	"golang.org/x/sync/errgroup"
)

// RefreshResult is the outcome of a batch price refresh
type RefreshResult struct {
	Items     []domain.RefreshItem
	RateLimit *domain.RateLimitStatus
}

// RefreshPrices re-scrapes every URL without reading the product cache, then repopulates it.
// The batch counts as one request against the rate limiter. Per-URL failures are reported in
// the item's Error field and never fail the batch.
func (s *ScrapeService) RefreshPrices(ctx context.Context, request domain.RefreshRequest) (*RefreshResult, error) {
	if len(request.URLs) == 0 || len(request.URLs) > s.refreshMaxURLs {
		return nil, fmt.Errorf("%w: between 1 and %d urls required", domain.ErrInvalidRequest, s.refreshMaxURLs)
	}

	status := s.limiter.Check(request.ClientIdentity)
	result := &RefreshResult{RateLimit: &status}
	if !status.Allowed {
		s.metrics.ObserveRateLimited("scrape")
		return result, domain.ErrRateLimited
	}

	items := make([]domain.RefreshItem, len(request.URLs))
	var g errgroup.Group
	g.SetLimit(s.refreshConcurrent)

	for i, rawURL := range request.URLs {
		g.Go(func() error {
			items[i] = s.refreshOne(ctx, rawURL)
			return nil
		})
	}
	g.Wait()

	result.Items = items
	return result, nil
}

func (s *ScrapeService) refreshOne(ctx context.Context, rawURL string) domain.RefreshItem {
	item := domain.RefreshItem{URL: rawURL}

	target, err := ParseProductURL(rawURL)
	if err == nil {
		var product *domain.ScrapedProduct
		product, err = s.fetchProduct(ctx, target, rawURL)
		if err == nil {
			item.CurrentPrice = product.CurrentPrice
			item.StoreName = product.StoreName
			return item
		}
	}

	s.log.Info("price refresh failed", logger.String("url", rawURL), logger.Error(err))
	item.Error = domain.UserMessage(err)
	return item
}

// LatestPrice returns the most recent price snapshot recorded for rawURL
func (s *ScrapeService) LatestPrice(ctx context.Context, rawURL string) (*domain.PriceSnapshot, error) {
	if _, err := ParseProductURL(rawURL); err != nil {
		return nil, err
	}

	snapshot, err := s.prices.Get(ctx, domain.PriceCacheKey(rawURL))
	if errors.Is(err, domain.ErrCacheMiss) {
		return nil, domain.ErrPriceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

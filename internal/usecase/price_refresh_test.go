package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/wishlist/backend/internal/domain"
)

func TestRefreshPrices(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects empty and oversized batches", func(t *testing.T) {
		f := newScrapeFixture(10)

		if _, err := f.svc.RefreshPrices(ctx, domain.RefreshRequest{}); !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("empty batch error = %v, want ErrInvalidRequest", err)
		}

		urls := make([]string, 21)
		for i := range urls {
			urls[i] = fmt.Sprintf("https://shop.example.com/p/%d", i)
		}
		if _, err := f.svc.RefreshPrices(ctx, domain.RefreshRequest{URLs: urls}); !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("oversized batch error = %v, want ErrInvalidRequest", err)
		}
		if len(f.limiter.keys) != 0 {
			t.Error("invalid batches must not count against the limiter")
		}
	})

	t.Run("refreshes every url and keeps order", func(t *testing.T) {
		f := newScrapeFixture(10)
		komplett := "https://www.komplett.no/product/1"
		f.fetcher.pages[komplett] = `<html><head><title>Skjerm</title>
<script type="application/ld+json">{"@type":"Product","offers":{"price":"2490"}}</script></head></html>`

		urls := []string{elkjopURL, "not a url", komplett, "https://down.example.com/p", "https://shop.example.com/a.pdf"}
		result, err := f.svc.RefreshPrices(ctx, domain.RefreshRequest{URLs: urls, ClientIdentity: "a"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Items) != len(urls) {
			t.Fatalf("items = %d, want %d", len(result.Items), len(urls))
		}
		for i, item := range result.Items {
			if item.URL != urls[i] {
				t.Errorf("item %d url = %q, want %q", i, item.URL, urls[i])
			}
		}

		if p := result.Items[0].CurrentPrice; p == nil || *p != 1299 || result.Items[0].StoreName != "Elkjøp" {
			t.Errorf("elkjop item = %+v", result.Items[0])
		}
		if p := result.Items[2].CurrentPrice; p == nil || *p != 2490 || result.Items[2].Error != "" {
			t.Errorf("komplett item = %+v", result.Items[2])
		}

		wantErrors := map[int]error{
			1: domain.ErrInvalidURLFormat,
			3: domain.ErrFetchFailed,
			4: domain.ErrUnsupportedFileType,
		}
		for i, err := range wantErrors {
			if got := result.Items[i].Error; got != domain.UserMessage(err) {
				t.Errorf("item %d error = %q, want %q", i, got, domain.UserMessage(err))
			}
		}
	})

	t.Run("bypasses the product cache and repopulates it", func(t *testing.T) {
		f := newScrapeFixture(10)
		key := domain.ProductCacheKey(elkjopURL)
		f.products.data[key] = domain.ScrapedProduct{Title: "Gammel"}

		if _, err := f.svc.RefreshPrices(ctx, domain.RefreshRequest{URLs: []string{elkjopURL}}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if f.fetcher.callCount() != 1 {
			t.Errorf("fetch calls = %d, want 1", f.fetcher.callCount())
		}
		if got := f.products.data[key].Title; got != "Produkt X" {
			t.Errorf("cached title = %q, want Produkt X", got)
		}
	})

	t.Run("batch counts once against the limiter", func(t *testing.T) {
		f := newScrapeFixture(1)
		urls := []string{elkjopURL, elkjopURL, elkjopURL}

		if _, err := f.svc.RefreshPrices(ctx, domain.RefreshRequest{URLs: urls, ClientIdentity: "a"}); err != nil {
			t.Fatalf("first batch: %v", err)
		}
		if len(f.limiter.keys) != 1 {
			t.Errorf("limiter checks = %d, want 1", len(f.limiter.keys))
		}

		result, err := f.svc.RefreshPrices(ctx, domain.RefreshRequest{URLs: urls, ClientIdentity: "a"})
		if !errors.Is(err, domain.ErrRateLimited) {
			t.Fatalf("error = %v, want ErrRateLimited", err)
		}
		if result == nil || result.RateLimit == nil || result.RateLimit.Allowed {
			t.Errorf("result = %+v, want denied status", result)
		}
	})
}

func TestLatestPrice(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the recorded snapshot", func(t *testing.T) {
		f := newScrapeFixture(10)
		checkedAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		f.prices.data[domain.PriceCacheKey(elkjopURL)] = domain.PriceSnapshot{
			URL: elkjopURL, CurrentPrice: 1299, StoreName: "Elkjøp", CheckedAt: checkedAt,
		}

		snapshot, err := f.svc.LatestPrice(ctx, elkjopURL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if snapshot.CurrentPrice != 1299 || !snapshot.CheckedAt.Equal(checkedAt) {
			t.Errorf("snapshot = %+v", snapshot)
		}
	})

	t.Run("missing snapshot", func(t *testing.T) {
		f := newScrapeFixture(10)

		if _, err := f.svc.LatestPrice(ctx, elkjopURL); !errors.Is(err, domain.ErrPriceNotFound) {
			t.Errorf("error = %v, want ErrPriceNotFound", err)
		}
	})

	t.Run("invalid url", func(t *testing.T) {
		f := newScrapeFixture(10)

		if _, err := f.svc.LatestPrice(ctx, ""); !errors.Is(err, domain.ErrInvalidURL) {
			t.Errorf("error = %v, want ErrInvalidURL", err)
		}
	})

	t.Run("cache failure is not a miss", func(t *testing.T) {
		f := newScrapeFixture(10)
		f.prices.getError = domain.ErrCacheUnavailable

		_, err := f.svc.LatestPrice(ctx, elkjopURL)
		if !errors.Is(err, domain.ErrCacheUnavailable) {
			t.Errorf("error = %v, want ErrCacheUnavailable", err)
		}
	})
}

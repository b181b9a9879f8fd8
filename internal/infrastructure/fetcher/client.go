package fetcher

import (
	"bufio"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/wishlist/backend/internal/domain"
	"github.com/wishlist/backend/internal/infrastructure/logger"
	"github.com/wishlist/backend/internal/infrastructure/metrics"
	"golang.org/x/time/rate"
)

// DefaultUserAgent is a current desktop Chrome string; storefronts reject obvious bots
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Config holds fetcher configuration
type Config struct {
	UserAgent    string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	MaxBodyBytes int64
	// HostRPS paces requests to a single host. Zero disables pacing.
	HostRPS   float64
	HostBurst int
}

// DefaultConfig returns the fetcher defaults
func DefaultConfig() Config {
	return Config{
		UserAgent:    DefaultUserAgent,
		Timeout:      15 * time.Second,
		MaxRetries:   3,
		RetryBackoff: time.Second,
		MaxBodyBytes: 5 << 20,
		HostRPS:      2,
		HostBurst:    4,
	}
}

// StatusError is returned for a non-2xx upstream response
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

// Client fetches product pages with retries and per-host pacing
type Client struct {
	httpClient *http.Client
	cfg        Config
	log        logger.Logger
	metrics    *metrics.Metrics

	mu       sync.Mutex
	limiters map[string]*rate.Limiter

	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates a new page fetcher
func NewClient(cfg Config, log logger.Logger, m *metrics.Metrics) *Client {
	defaults := DefaultConfig()
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaults.UserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = defaults.RetryBackoff
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaults.MaxBodyBytes
	}
	if cfg.HostBurst <= 0 {
		cfg.HostBurst = 1
	}
	if log == nil {
		log = logger.NewNop()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		cfg:      cfg,
		log:      log.With(logger.String("component", "fetcher")),
		metrics:  m,
		limiters: make(map[string]*rate.Limiter),
		sleep:    sleepContext,
	}
}

// FetchWithRetry GETs rawURL, retrying transport errors and non-2xx responses.
// Attempt i (0-based) that fails waits RetryBackoff*(i+1) before the next one.
// retries <= 0 uses the configured MaxRetries.
func (c *Client) FetchWithRetry(ctx context.Context, rawURL string, retries int) (*domain.FetchedPage, error) {
	if retries <= 0 {
		retries = c.cfg.MaxRetries
	}

	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		if err := c.waitForHost(ctx, rawURL); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
		}

		page, err := c.fetch(ctx, rawURL)
		if err == nil {
			c.metrics.ObserveFetchAttempt("ok")
			return page, nil
		}

		lastErr = err
		c.metrics.ObserveFetchAttempt(attemptOutcome(err))
		c.log.Warn("fetch attempt failed",
			logger.String("url", rawURL),
			logger.Int("attempt", attempt+1),
			logger.Int("max_attempts", retries),
			logger.Error(err))

		if attempt == retries-1 {
			break
		}
		if err := c.sleep(ctx, linearBackoff(c.cfg.RetryBackoff, attempt)); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
		}
	}

	return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, lastErr)
}

// fetch executes a single GET with browser-like headers
func (c *Client) fetch(ctx context.Context, rawURL string) (*domain.FetchedPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "nb-NO,nb;q=0.9,no;q=0.8,en-US;q=0.6,en;q=0.5")
	req.Header.Set("Accept-Encoding", "gzip, deflate")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	body, err := decodeBody(resp)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, c.cfg.MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &domain.FetchedPage{
		URL:         rawURL,
		FinalURL:    resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        data,
	}, nil
}

// decodeBody undoes Content-Encoding. Setting Accept-Encoding by hand turns off the
// transport's transparent gzip handling, so it has to happen here.
func decodeBody(resp *http.Response) (io.ReadCloser, error) {
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip", "x-gzip":
		r, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip body: %w", err)
		}
		return r, nil
	case "deflate":
		// "deflate" is meant to be zlib-wrapped, but some servers send raw DEFLATE
		br := bufio.NewReader(resp.Body)
		header, _ := br.Peek(2)
		if !isZlibHeader(header) {
			return flate.NewReader(br), nil
		}
		r, err := zlib.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("deflate body: %w", err)
		}
		return r, nil
	default:
		return io.NopCloser(resp.Body), nil
	}
}

// isZlibHeader reports whether b starts with a zlib CMF/FLG pair using the deflate method
func isZlibHeader(b []byte) bool {
	if len(b) < 2 {
		return false
	}
	return b[0]&0x0f == 8 && (uint16(b[0])<<8|uint16(b[1]))%31 == 0
}

// waitForHost blocks until the per-host limiter admits another request
func (c *Client) waitForHost(ctx context.Context, rawURL string) error {
	if c.cfg.HostRPS <= 0 {
		return nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	return c.hostLimiter(strings.ToLower(u.Host)).Wait(ctx)
}

func (c *Client) hostLimiter(host string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	limiter, exists := c.limiters[host]
	if !exists {
		limiter = rate.NewLimiter(rate.Limit(c.cfg.HostRPS), c.cfg.HostBurst)
		c.limiters[host] = limiter
	}
	return limiter
}

// linearBackoff returns base*(attempt+1): 1s, 2s, 3s with the default base
func linearBackoff(base time.Duration, attempt int) time.Duration {
	return base * time.Duration(attempt+1)
}

func attemptOutcome(err error) string {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return "http_error"
	}
	return "network_error"
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

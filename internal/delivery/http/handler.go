package http

import (
	"errors"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wishlist/backend/internal/domain"
	"github.com/wishlist/backend/internal/infrastructure/logger"
	"github.com/wishlist/backend/internal/usecase"
)

const (
	// unknownClient is the shared rate-limit bucket for requests without any address information
	unknownClient = "unknown"

	// resetTimeLayout renders X-RateLimit-Reset as a UTC ISO-8601 timestamp with milliseconds
	resetTimeLayout = "2006-01-02T15:04:05.000Z07:00"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	scrapeService *usecase.ScrapeService
	cacheStats    map[string]domain.CacheStatsReporter
	log           logger.Logger
}

// NewHandler creates a new HTTP handler with dependencies.
// cacheStats names the in-memory caches reported by the stats endpoint and may be nil.
func NewHandler(scrapeService *usecase.ScrapeService, cacheStats map[string]domain.CacheStatsReporter, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{
		scrapeService: scrapeService,
		cacheStats:    cacheStats,
		log:           log,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "wishlist-scraper",
		"version": "1.0.0",
	})
}

// scrapeBody keeps url untyped so a non-string value is reported as an invalid URL
type scrapeBody struct {
	URL any `json:"url"`
}

// ScrapeProduct handles POST /scrape-product
func (h *Handler) ScrapeProduct(c *gin.Context) {
	if !h.ready(c) {
		return
	}

	var body scrapeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.respondError(c, domain.ErrInvalidURL)
		return
	}
	rawURL, ok := body.URL.(string)
	if !ok {
		h.respondError(c, domain.ErrInvalidURL)
		return
	}

	result, err := h.scrapeService.Scrape(c.Request.Context(), domain.ScrapeRequest{
		URL:            rawURL,
		ClientIdentity: clientIdentity(c.Request),
	})
	if result != nil {
		setRateLimitHeaders(c, result.RateLimit)
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	if result.CacheHit {
		c.Header("X-Cache", "HIT")
	} else {
		c.Header("X-Cache", "MISS")
	}
	c.JSON(http.StatusOK, result.Product)
}

// GetPrice handles GET /api/v1/prices?url=
func (h *Handler) GetPrice(c *gin.Context) {
	if !h.ready(c) {
		return
	}

	snapshot, err := h.scrapeService.LatestPrice(c.Request.Context(), c.Query("url"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// RefreshPrices handles POST /api/v1/prices/refresh
func (h *Handler) RefreshPrices(c *gin.Context) {
	if !h.ready(c) {
		return
	}

	var body struct {
		URLs []string `json:"urls"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		h.respondError(c, domain.ErrInvalidRequest)
		return
	}

	result, err := h.scrapeService.RefreshPrices(c.Request.Context(), domain.RefreshRequest{
		URLs:           body.URLs,
		ClientIdentity: clientIdentity(c.Request),
	})
	if result != nil {
		setRateLimitHeaders(c, result.RateLimit)
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": result.Items})
}

// CacheStats handles GET /api/v1/cache/stats
func (h *Handler) CacheStats(c *gin.Context) {
	stats := make(map[string]domain.CacheStats, len(h.cacheStats))
	for name, reporter := range h.cacheStats {
		stats[name] = reporter.Stats()
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) ready(c *gin.Context) bool {
	if h.scrapeService != nil {
		return true
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error": "Tjenesten er ikke konfigurert.",
	})
	return false
}

// respondError writes the Norwegian message for err with its mapped status.
// Server-side failures are attached to the context so the access log records them.
func (h *Handler) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": domain.UserMessage(err)})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidURL),
		errors.Is(err, domain.ErrInvalidURLFormat),
		errors.Is(err, domain.ErrUnsupportedFileType),
		errors.Is(err, domain.ErrNoProductInfo),
		errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrPriceNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrFetchFailed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// setRateLimitHeaders exposes the limiter verdict, plus Retry-After when the request was denied
func setRateLimitHeaders(c *gin.Context, status *domain.RateLimitStatus) {
	if status == nil {
		return
	}
	c.Header("X-RateLimit-Limit", strconv.Itoa(status.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(status.Remaining))
	c.Header("X-RateLimit-Reset", status.ResetAt.UTC().Format(resetTimeLayout))

	if !status.Allowed {
		seconds := int(math.Ceil(time.Until(status.ResetAt).Seconds()))
		if seconds < 1 {
			seconds = 1
		}
		c.Header("Retry-After", strconv.Itoa(seconds))
	}
}

// clientIdentity is the first X-Forwarded-For entry, then X-Real-IP, then the peer address
func clientIdentity(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if first := strings.TrimSpace(strings.Split(forwarded, ",")[0]); first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return unknownClient
}

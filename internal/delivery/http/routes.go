package http

import (
	"github.com/gin-gonic/gin"
	"github.com/wishlist/backend/config"
	"github.com/wishlist/backend/internal/domain"
	"github.com/wishlist/backend/internal/infrastructure/logger"
	"github.com/wishlist/backend/internal/infrastructure/metrics"
)

// RouterOptions carries the optional collaborators of the router
type RouterOptions struct {
	// APILimiter guards the /api/v1 group; nil disables the group-wide policy
	APILimiter domain.RateLimiter
	Logger     logger.Logger
	Metrics    *metrics.Metrics
}

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, opts RouterOptions) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}

	router := gin.New()

	// Global middleware
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware(log))
	router.Use(RecoveryMiddleware(log))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	router.GET("/health", handler.HealthCheck)
	if opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	// Original scrape contract
	router.POST("/scrape-product", handler.ScrapeProduct)

	// API v1 routes
	v1 := router.Group("/api/v1")
	if opts.APILimiter != nil {
		v1.Use(RateLimitMiddleware(opts.APILimiter, "api", opts.Metrics))
	}
	{
		v1.POST("/scrape", handler.ScrapeProduct)

		prices := v1.Group("/prices")
		{
			prices.GET("", handler.GetPrice)
			prices.POST("/refresh", handler.RefreshPrices)
		}

		v1.GET("/cache/stats", handler.CacheStats)
	}

	return router
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/wishlist/backend/internal/infrastructure/ratelimit"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Scraper   ScraperConfig   `mapstructure:"scraper"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Refresh   RefreshConfig   `mapstructure:"refresh"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Environment     string        `mapstructure:"environment"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ScraperConfig holds outbound fetch configuration
type ScraperConfig struct {
	UserAgent    string        `mapstructure:"user_agent"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
	HostRPS      float64       `mapstructure:"host_rps"`
	HostBurst    int           `mapstructure:"host_burst"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type            string        `mapstructure:"type"` // "memory" or "redis"
	RedisURL        string        `mapstructure:"redis_url"`
	ProductTTL      time.Duration `mapstructure:"product_ttl"`
	PriceTTL        time.Duration `mapstructure:"price_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// PolicyConfig is one fixed-window rate-limit policy
type PolicyConfig struct {
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Scrape          PolicyConfig  `mapstructure:"scrape"`
	API             PolicyConfig  `mapstructure:"api"`
	Auth            PolicyConfig  `mapstructure:"auth"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RefreshConfig bounds batch price refreshes
type RefreshConfig struct {
	MaxURLs     int `mapstructure:"max_urls"`
	Concurrency int `mapstructure:"concurrency"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/wishlist-scraper/")

	// WISHLIST_CACHE_REDIS_URL overrides cache.redis_url
	v.SetEnvPrefix("WISHLIST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads .env from the working directory when present.
// Variables already set in the environment win.
func loadEnvFile() error {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"chrome-extension://*", "http://localhost:3000"})
	v.SetDefault("server.shutdown_timeout", "10s")

	// Scraper defaults
	v.SetDefault("scraper.user_agent", "")
	v.SetDefault("scraper.timeout", "15s")
	v.SetDefault("scraper.max_retries", 3)
	v.SetDefault("scraper.retry_backoff", "1s")
	v.SetDefault("scraper.max_body_bytes", 5<<20)
	v.SetDefault("scraper.host_rps", 2.0)
	v.SetDefault("scraper.host_burst", 4)

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.product_ttl", "10m")
	v.SetDefault("cache.price_ttl", "24h")
	v.SetDefault("cache.cleanup_interval", "5m")

	// Rate limit defaults
	for key, policy := range map[string]ratelimit.Policy{
		"scrape": ratelimit.ScrapePolicy,
		"api":    ratelimit.APIPolicy,
		"auth":   ratelimit.AuthPolicy,
	} {
		v.SetDefault("ratelimit."+key+".max_requests", policy.MaxRequests)
		v.SetDefault("ratelimit."+key+".window", policy.Window)
	}
	v.SetDefault("ratelimit.cleanup_interval", "60s")

	// Refresh defaults
	v.SetDefault("refresh.max_urls", 20)
	v.SetDefault("refresh.concurrency", 4)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if config.Cache.Type != "memory" && config.Cache.Type != "redis" {
		return fmt.Errorf("cache type must be 'memory' or 'redis', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "redis" && config.Cache.RedisURL == "" {
		return fmt.Errorf("redis URL is required when cache type is 'redis' (set WISHLIST_CACHE_REDIS_URL)")
	}

	if config.Cache.ProductTTL <= 0 || config.Cache.PriceTTL <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}

	if config.Cache.CleanupInterval <= 0 || config.RateLimit.CleanupInterval <= 0 {
		return fmt.Errorf("cleanup intervals must be positive")
	}

	if config.Scraper.MaxRetries < 1 {
		return fmt.Errorf("scraper max_retries must be at least 1, got: %d", config.Scraper.MaxRetries)
	}

	policies := map[string]PolicyConfig{
		"scrape": config.RateLimit.Scrape,
		"api":    config.RateLimit.API,
		"auth":   config.RateLimit.Auth,
	}
	for name, policy := range policies {
		if policy.MaxRequests <= 0 || policy.Window <= 0 {
			return fmt.Errorf("rate limit policy %q needs positive max_requests and window", name)
		}
	}

	if config.Refresh.MaxURLs <= 0 || config.Refresh.Concurrency <= 0 {
		return fmt.Errorf("refresh max_urls and concurrency must be positive")
	}

	return nil
}

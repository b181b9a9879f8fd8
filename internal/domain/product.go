package domain

import "time"

// ProviderScraper tags payloads produced by the scraper so callers can tell them apart from manual entries
const ProviderScraper = "scraper"

// ProductMetadata is what the extractor recovers from a product page
type ProductMetadata struct {
	Title       string   `json:"title"`
	Price       *float64 `json:"price,omitempty"`
	Image       string   `json:"image,omitempty"`
	Description string   `json:"description,omitempty"`
	SiteName    string   `json:"siteName,omitempty"`
}

// ScrapeRequest represents a request to scrape a single product URL
type ScrapeRequest struct {
	URL            string `json:"url"`
	ClientIdentity string `json:"-"`
}

// ScrapedProduct is the user-facing scrape payload
type ScrapedProduct struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Image        string   `json:"image"`
	StoreName    string   `json:"store_name"`
	CurrentPrice *float64 `json:"current_price"`
	Provider     string   `json:"provider"`
}

// NewScrapedProduct renames extractor fields to their external names
func NewScrapedProduct(meta ProductMetadata) *ScrapedProduct {
	return &ScrapedProduct{
		Title:        meta.Title,
		Description:  meta.Description,
		Image:        meta.Image,
		StoreName:    meta.SiteName,
		CurrentPrice: meta.Price,
		Provider:     ProviderScraper,
	}
}

// PriceSnapshot records the price seen for a URL at a point in time
type PriceSnapshot struct {
	URL          string    `json:"url"`
	CurrentPrice float64   `json:"current_price"`
	StoreName    string    `json:"store_name"`
	CheckedAt    time.Time `json:"checked_at"`
}

// RefreshRequest asks for a batch of product URLs to be re-scraped
type RefreshRequest struct {
	URLs           []string `json:"urls"`
	ClientIdentity string   `json:"-"`
}

// RefreshItem is the outcome of re-scraping one URL
type RefreshItem struct {
	URL          string   `json:"url"`
	CurrentPrice *float64 `json:"current_price"`
	StoreName    string   `json:"store_name,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// FetchedPage is a successful upstream response
type FetchedPage struct {
	URL         string
	FinalURL    string
	StatusCode  int
	ContentType string
	Body        []byte
}

// RateLimitStatus is the limiter's verdict for one request
type RateLimitStatus struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// CacheStats summarises the entries held by a TTL cache
type CacheStats struct {
	TotalEntries   int `json:"totalEntries"`
	ValidEntries   int `json:"validEntries"`
	ExpiredEntries int `json:"expiredEntries"`
}

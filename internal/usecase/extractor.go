package usecase

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/wishlist/backend/internal/domain"
	"golang.org/x/net/html"
)

// MetadataExtractor derives product metadata from raw HTML. It does no I/O and
// returns the same result for the same input.
type MetadataExtractor struct{}

// NewMetadataExtractor creates a new extractor
func NewMetadataExtractor() *MetadataExtractor {
	return &MetadataExtractor{}
}

// Extract parses html fetched from sourceURL.
// Text fields fall back OpenGraph → Twitter Card → plain HTML independently of each other.
// Price comes from JSON-LD, then the storefront's own patterns or the generic ones.
// An empty Title means nothing usable was found.
func (e *MetadataExtractor) Extract(rawHTML, sourceURL string) domain.ProductMetadata {
	page := &Page{
		HTML: rawHTML,
		Doc:  parseDocument(rawHTML),
		Host: hostname(sourceURL),
	}

	meta := domain.ProductMetadata{
		Title: firstNonEmpty(
			metaContent(page.Doc, "og:title"),
			metaContent(page.Doc, "twitter:title"),
			cleanText(page.Doc.Find("title").Not("svg title").First().Text()),
		),
		Description: firstNonEmpty(
			metaContent(page.Doc, "og:description"),
			metaContent(page.Doc, "twitter:description"),
			metaContent(page.Doc, "description"),
		),
		Image: resolveURL(sourceURL, firstNonEmpty(
			metaContent(page.Doc, "og:image"),
			metaContent(page.Doc, "twitter:image"),
		)),
		SiteName: metaContent(page.Doc, "og:site_name"),
	}

	if price, ok := extractPrice(page); ok {
		meta.Price = &price
	}

	if meta.SiteName == "" {
		meta.SiteName = ResolveStoreName(page.Host)
	}

	return meta
}

func extractPrice(page *Page) (float64, bool) {
	for _, strategy := range priceStrategiesFor(page.Host) {
		if price, ok := strategy(page); ok {
			return price, true
		}
	}
	return 0, false
}

// parseDocument never fails: unparseable input yields an empty document
func parseDocument(rawHTML string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return goquery.NewDocumentFromNode(&html.Node{Type: html.DocumentNode})
	}
	return doc
}

// metaContent returns the first non-empty content of a meta tag keyed by property or name
func metaContent(doc *goquery.Document, key string) string {
	selector := fmt.Sprintf(`meta[property=%q], meta[name=%q]`, key, key)

	var content string
	doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		content = cleanText(s.AttrOr("content", ""))
		return content == ""
	})
	return content
}

// cleanText collapses runs of whitespace
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func hostname(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// resolveURL makes relative image references absolute against the page URL
func resolveURL(base, ref string) string {
	if ref == "" {
		return ""
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}

package usecase

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Page is the parsed view of a product page shared by the extraction strategies
type Page struct {
	HTML string
	Doc  *goquery.Document
	Host string
}

// PriceStrategy recovers a price from a page, reporting false when it finds nothing usable
type PriceStrategy func(page *Page) (float64, bool)

// RegexPriceStrategy tries each pattern in order and every match of a pattern in document
// order. The first non-empty capture of a match is the candidate, and the first candidate
// that parses to a plausible price wins.
func RegexPriceStrategy(patterns ...*regexp.Regexp) PriceStrategy {
	return func(page *Page) (float64, bool) {
		for _, pattern := range patterns {
			for _, match := range pattern.FindAllStringSubmatch(page.HTML, -1) {
				if price, ok := ParsePrice(firstCapture(match)); ok {
					return price, true
				}
			}
		}
		return 0, false
	}
}

func firstCapture(match []string) string {
	for _, group := range match[1:] {
		if group != "" {
			return group
		}
	}
	return ""
}

// StructuredDataPrice reads offers.price from the page's JSON-LD blocks
func StructuredDataPrice(page *Page) (float64, bool) {
	var (
		price float64
		found bool
	)
	page.Doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		price, found = ParseStructuredDataPrice(s.Text())
		return !found
	})
	return price, found
}

// ParseStructuredDataPrice extracts offers.price from one JSON-LD document.
// Malformed JSON and documents without an offer price both report false.
func ParseStructuredDataPrice(raw string) (float64, bool) {
	var doc any
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &doc); err != nil {
		return 0, false
	}

	for _, node := range jsonLDNodes(doc) {
		if price, ok := offerPrice(node["offers"]); ok {
			return price, true
		}
	}
	return 0, false
}

// jsonLDNodes flattens top-level arrays and @graph containers into their object nodes
func jsonLDNodes(doc any) []map[string]any {
	var nodes []map[string]any
	switch v := doc.(type) {
	case []any:
		for _, item := range v {
			nodes = append(nodes, jsonLDNodes(item)...)
		}
	case map[string]any:
		nodes = append(nodes, v)
		if graph, ok := v["@graph"]; ok {
			nodes = append(nodes, jsonLDNodes(graph)...)
		}
	}
	return nodes
}

func offerPrice(offers any) (float64, bool) {
	switch v := offers.(type) {
	case map[string]any:
		return jsonNumber(v["price"])
	case []any:
		for _, offer := range v {
			if price, ok := offerPrice(offer); ok {
				return price, true
			}
		}
	}
	return 0, false
}

func jsonNumber(value any) (float64, bool) {
	var price float64
	switch v := value.(type) {
	case float64:
		price = v
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return ParsePrice(v)
		}
		price = parsed
	default:
		return 0, false
	}
	if !validPrice(price) {
		return 0, false
	}
	return price, true
}

// siteRule binds a storefront domain to its price patterns
type siteRule struct {
	domain   string
	strategy PriceStrategy
}

// amountPattern matches one amount in running text: thousand-grouped with space, nbsp or
// dot ("1 299", "12.499"), or ungrouped ("1299", "49.90"), optionally ending in ",95" or ",-".
// Groups must be exactly three digits so neighbouring numbers are never joined.
const amountPattern = `\d{1,3}(?:[\x{00a0} .]\d{3})+(?:,(?:\d{1,2}|-))?|\d+(?:,(?:\d{1,2}|-)|\.\d{1,2})?`

// jsonField matches a JSON price field holding a quoted string or a plain number
func jsonField(name string) *regexp.Regexp {
	return regexp.MustCompile(`"` + name + `"\s*:\s*(?:"([^"]+)"|(\d+(?:\.\d+)?))`)
}

// Patterns shared between site rules and the generic fallback
var (
	metaPriceAmount         = regexp.MustCompile(`<meta[^>]*property=["'](?:product|og):price:amount["'][^>]*content=["']([^"']+)["']`)
	metaPriceAmountReversed = regexp.MustCompile(`<meta[^>]*content=["']([^"']+)["'][^>]*property=["'](?:product|og):price:amount["']`)
	dataPriceAttr           = regexp.MustCompile(`data-price=["']([^"']+)["']`)
	jsonPriceField          = jsonField("price")
)

var siteRules = []siteRule{
	{"elkjop.no", RegexPriceStrategy(
		dataPriceAttr,
		regexp.MustCompile(`"currentPrice"\s*:\s*"?(\d[\d.,]*)`),
		jsonPriceField,
		regexp.MustCompile(`<span[^>]*class="[^"]*price[^"]*"[^>]*>([^<]+)</span>`),
		metaPriceAmount,
	)},
	{"komplett.no", RegexPriceStrategy(
		regexp.MustCompile(`<span[^>]*class="[^"]*product-price-now[^"]*"[^>]*>([^<]+)<`),
		regexp.MustCompile(`data-price-including-vat=["']([^"']+)["']`),
		jsonPriceField,
		metaPriceAmount,
	)},
	{"power.no", RegexPriceStrategy(
		regexp.MustCompile(`"salesPrice"\s*:\s*"?(\d[\d.,]*)`),
		dataPriceAttr,
		jsonPriceField,
		metaPriceAmount,
	)},
	{"xxl.no", RegexPriceStrategy(
		regexp.MustCompile(`<span[^>]*data-testid="current-price"[^>]*>([^<]+)<`),
		regexp.MustCompile(`"salesPrice"\s*:\s*\{[^}]*"amount"\s*:\s*"?(\d[\d.,]*)`),
		jsonPriceField,
		metaPriceAmount,
	)},
	{"zalando.no", RegexPriceStrategy(
		regexp.MustCompile(`"price"\s*:\s*\{[^}]*"original"\s*:\s*"([^"]+)"`),
		jsonPriceField,
		metaPriceAmount,
	)},
	{"ikea.com", RegexPriceStrategy(
		regexp.MustCompile(`<span[^>]*class="[^"]*pip-price__integer[^"]*"[^>]*>([^<]+)<`),
		dataPriceAttr,
		jsonPriceField,
	)},
	{"clasohlson.com", RegexPriceStrategy(
		regexp.MustCompile(`<span[^>]*class="[^"]*product__price-value[^"]*"[^>]*>([^<]+)<`),
		jsonPriceField,
		metaPriceAmount,
	)},
	{"amazon.", RegexPriceStrategy(
		regexp.MustCompile(`<span[^>]*class="a-offscreen"[^>]*>([^<]+)<`),
		regexp.MustCompile(`<span[^>]*class="a-price-whole"[^>]*>([^<]+)<`),
		regexp.MustCompile(`"priceAmount"\s*:\s*(\d[\d.]*)`),
		metaPriceAmount,
	)},
}

// genericPricePatterns run for hosts without a site rule, from most to least specific
var genericPricePatterns = []*regexp.Regexp{
	jsonPriceField,
	jsonField("lowPrice"),
	metaPriceAmount,
	metaPriceAmountReversed,
	regexp.MustCompile(`<meta[^>]*itemprop=["']price["'][^>]*content=["']([^"']+)["']`),
	regexp.MustCompile(`itemprop=["']price["'][^>]*>([^<]+)<`),
	regexp.MustCompile(`class=["'][^"']*\bprice\b[^"']*["'][^>]*>\s*([^<]+)<`),
	dataPriceAttr,
	regexp.MustCompile(`data-price-amount=["']([^"']+)["']`),
	regexp.MustCompile(`(?i)\b(?:kr|nok)\.?[\x{00a0} ]*(` + amountPattern + `)`),
	// a size label such as "Str. 38" directly before the amount is consumed, not captured
	regexp.MustCompile(`(?i)(?:\bstr\.?[\x{00a0} ]*\d+[\x{00a0} ]+)?(` + amountPattern + `)[\x{00a0} ]*(?:kr|kroner|nok)\b`),
	regexp.MustCompile(`€[\x{00a0} ]*(\d[\d.,]*)`),
	regexp.MustCompile(`(\d[\d.,]*)[\x{00a0} ]*€`),
	regexp.MustCompile(`\$[\x{00a0} ]*(\d[\d.,]*)`),
	regexp.MustCompile(`£[\x{00a0} ]*(\d[\d.,]*)`),
	regexp.MustCompile(`\b(\d{1,3}(?:[\x{00a0} .]\d{3})+(?:,\d{2})?|\d+,\d{2})\b`),
}

var genericPrice = RegexPriceStrategy(genericPricePatterns...)

// siteStrategyFor returns the price strategy of the first site rule whose domain host contains
func siteStrategyFor(host string) (PriceStrategy, bool) {
	for _, rule := range siteRules {
		if strings.Contains(host, rule.domain) {
			return rule.strategy, true
		}
	}
	return nil, false
}

// priceStrategiesFor orders the strategies for host: structured data, then either the
// storefront's own patterns or the generic fallback.
func priceStrategiesFor(host string) []PriceStrategy {
	strategies := []PriceStrategy{StructuredDataPrice}
	if site, ok := siteStrategyFor(host); ok {
		return append(strategies, site)
	}
	return append(strategies, genericPrice)
}

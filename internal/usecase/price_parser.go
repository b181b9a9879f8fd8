package usecase

import (
	"regexp"
	"strconv"
	"strings"
)

// maxPrice bounds accepted prices; anything at or above it is a mis-parse
const maxPrice = 1_000_000

var (
	nonPriceCharsRegex = regexp.MustCompile(`[^\d,.\-]`)
	leadingNumberRegex = regexp.MustCompile(`^-?\d+(?:\.\d+)?`)
	dotGroupedRegex    = regexp.MustCompile(`^-?\d{1,3}(?:\.\d{3})+$`)
)

// NormalizePriceString reduces a scraped price label to a dot-decimal number string.
// Everything but digits, comma, dot and hyphen is dropped, commas become dots, and every
// dot except the last is treated as a thousands separator. Without a comma, dots that only
// ever group three digits ("1.299", "12.499.000") are thousands separators as well.
func NormalizePriceString(raw string) string {
	s := nonPriceCharsRegex.ReplaceAllString(raw, "")
	if !strings.Contains(s, ",") && dotGroupedRegex.MatchString(s) {
		return strings.ReplaceAll(s, ".", "")
	}

	s = strings.ReplaceAll(s, ",", ".")
	if last := strings.LastIndex(s, "."); last >= 0 {
		s = strings.ReplaceAll(s[:last], ".", "") + s[last:]
	}
	return s
}

// ParsePrice normalizes raw and parses its leading number, accepting only plausible prices.
// Trailing noise such as the ",-" in "1 299,-" is ignored.
func ParsePrice(raw string) (float64, bool) {
	number := leadingNumberRegex.FindString(NormalizePriceString(raw))
	if number == "" {
		return 0, false
	}

	price, err := strconv.ParseFloat(number, 64)
	if err != nil || !validPrice(price) {
		return 0, false
	}
	return price, true
}

func validPrice(price float64) bool {
	return price > 0 && price < maxPrice
}

package domain

import "errors"

var (
	// ErrInvalidURL is returned when the url field is missing or not a string
	ErrInvalidURL = errors.New("invalid url")

	// ErrInvalidURLFormat is returned when the url cannot be parsed as an absolute http(s) URL
	ErrInvalidURLFormat = errors.New("invalid url format")

	// ErrUnsupportedFileType is returned when the url points at a known non-HTML file
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrFetchFailed is returned when the product page could not be fetched after all retries
	ErrFetchFailed = errors.New("fetch failed")

	// ErrNoProductInfo is returned when the page yields no title
	ErrNoProductInfo = errors.New("no product info found")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrPriceNotFound is returned when no price snapshot exists for a url
	ErrPriceNotFound = errors.New("price snapshot not found")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable is returned when cache service is unavailable
	ErrCacheUnavailable = errors.New("cache service unavailable")
)

// UserMessage returns the Norwegian message shown to the caller for err
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrInvalidURL):
		return "Ugyldig URL. Oppgi en lenke til et produkt."
	case errors.Is(err, ErrInvalidURLFormat):
		return "Ugyldig URL-format. Sjekk at lenken er riktig."
	case errors.Is(err, ErrRateLimited):
		return "For mange forespørsler. Vent litt og prøv igjen."
	case errors.Is(err, ErrUnsupportedFileType):
		return "Denne filtypen støttes ikke. Bruk en lenke til en produktside."
	case errors.Is(err, ErrFetchFailed):
		return "Kunne ikke hente siden. Nettbutikken svarer ikke, prøv igjen senere."
	case errors.Is(err, ErrNoProductInfo):
		return "Fant ingen produktinformasjon på denne siden."
	case errors.Is(err, ErrInvalidRequest):
		return "Ugyldig forespørsel."
	case errors.Is(err, ErrPriceNotFound):
		return "Fant ingen lagret pris for denne lenken."
	default:
		return "Noe gikk galt under henting av produktinformasjon."
	}
}

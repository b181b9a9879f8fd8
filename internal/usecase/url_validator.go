package usecase

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/wishlist/backend/internal/domain"
)

// disallowedExtensions are file types that are never product pages
var disallowedExtensions = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true, ".ppt": true, ".pptx": true,
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".svg": true, ".bmp": true, ".ico": true,
	".mp4": true, ".mov": true, ".avi": true, ".mkv": true, ".webm": true,
	".mp3": true, ".wav": true, ".ogg": true, ".flac": true,
	".zip": true, ".rar": true, ".7z": true, ".tar": true, ".gz": true,
	".exe": true, ".dmg": true, ".msi": true, ".apk": true, ".iso": true,
}

// ParseProductURL checks that raw is present and parses as an absolute http(s) URL
func ParseProductURL(raw string) (*url.URL, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, domain.ErrInvalidURL
	}

	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidURLFormat, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q is not an absolute http(s) url", domain.ErrInvalidURLFormat, raw)
	}
	return u, nil
}

// HasDisallowedExtension reports whether the URL path ends in a known non-HTML file extension
func HasDisallowedExtension(u *url.URL) bool {
	return disallowedExtensions[strings.ToLower(path.Ext(u.Path))]
}

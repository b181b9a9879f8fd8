// Package ratelimit implements fixed-window request counting keyed by client identity.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/wishlist/backend/internal/domain"
)

// Policy is a named request ceiling per window
type Policy struct {
	Name        string
	MaxRequests int
	Window      time.Duration
}

// Default policies. Scraping triggers an outbound fetch per request, so it gets the tightest ceiling.
var (
	ScrapePolicy = Policy{Name: "scrape", MaxRequests: 10, Window: time.Minute}
	APIPolicy    = Policy{Name: "api", MaxRequests: 100, Window: 15 * time.Minute}
	AuthPolicy   = Policy{Name: "auth", MaxRequests: 5, Window: 5 * time.Minute}
)

type window struct {
	count   int
	resetAt time.Time
}

// FixedWindowLimiter counts requests per key in fixed windows.
// A key that was never seen and a key whose window has passed are treated alike: both start a fresh window.
type FixedWindowLimiter struct {
	policy  Policy
	windows map[string]*window
	mu      sync.Mutex
	now     func() time.Time
}

// NewFixedWindowLimiter creates a limiter enforcing policy
func NewFixedWindowLimiter(policy Policy) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		policy:  policy,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Policy returns the policy this limiter enforces
func (l *FixedWindowLimiter) Policy() Policy {
	return l.policy
}

// IsAllowed records a request for key and reports whether it fits in the current window
func (l *FixedWindowLimiter) IsAllowed(key string) bool {
	return l.Check(key).Allowed
}

// Check records a request for key and returns the verdict together with the header values
// describing the window after this request.
func (l *FixedWindowLimiter) Check(key string) domain.RateLimitStatus {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, exists := l.windows[key]
	if !exists || now.After(w.resetAt) {
		w = &window{count: 1, resetAt: now.Add(l.policy.Window)}
		l.windows[key] = w
		return l.status(true, w)
	}

	if w.count >= l.policy.MaxRequests {
		return l.status(false, w)
	}

	w.count++
	return l.status(true, w)
}

func (l *FixedWindowLimiter) status(allowed bool, w *window) domain.RateLimitStatus {
	remaining := l.policy.MaxRequests - w.count
	if remaining < 0 {
		remaining = 0
	}
	return domain.RateLimitStatus{
		Allowed:   allowed,
		Limit:     l.policy.MaxRequests,
		Remaining: remaining,
		ResetAt:   w.resetAt,
	}
}

// RemainingRequests returns how many more requests key may make in its current window
func (l *FixedWindowLimiter) RemainingRequests(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, exists := l.windows[key]
	if !exists || l.now().After(w.resetAt) {
		return l.policy.MaxRequests
	}
	if remaining := l.policy.MaxRequests - w.count; remaining > 0 {
		return remaining
	}
	return 0
}

// ResetTime returns when key's current window ends. Without a live window it is one window from now.
func (l *FixedWindowLimiter) ResetTime(key string) time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, exists := l.windows[key]
	if !exists || now.After(w.resetAt) {
		return now.Add(l.policy.Window)
	}
	return w.resetAt
}

// Cleanup drops every window whose reset time has passed and returns how many were removed
func (l *FixedWindowLimiter) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, w := range l.windows {
		if now.After(w.resetAt) {
			delete(l.windows, key)
			removed++
		}
	}
	return removed
}

// Run sweeps expired windows every interval until ctx is cancelled
func (l *FixedWindowLimiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Cleanup()
		}
	}
}

func (l *FixedWindowLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

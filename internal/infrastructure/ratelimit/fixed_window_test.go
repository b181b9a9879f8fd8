package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu      sync.Mutex
	current time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = f.current.Add(d)
}

func newTestLimiter(policy Policy) (*FixedWindowLimiter, *fakeClock) {
	clock := &fakeClock{current: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	limiter := NewFixedWindowLimiter(policy)
	limiter.now = clock.Now
	return limiter, clock
}

func TestDefaultPolicies(t *testing.T) {
	assert.Equal(t, 10, ScrapePolicy.MaxRequests)
	assert.Equal(t, time.Minute, ScrapePolicy.Window)
	assert.Equal(t, 5, AuthPolicy.MaxRequests)
	assert.Equal(t, 5*time.Minute, AuthPolicy.Window)
	assert.Greater(t, APIPolicy.MaxRequests, ScrapePolicy.MaxRequests)
	assert.Greater(t, APIPolicy.Window, ScrapePolicy.Window)
}

func TestIsAllowed_Boundary(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
	}{
		{"scrape policy", ScrapePolicy},
		{"auth policy", AuthPolicy},
		{"single request", Policy{Name: "one", MaxRequests: 1, Window: time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter, clock := newTestLimiter(tt.policy)

			for i := 0; i < tt.policy.MaxRequests; i++ {
				require.True(t, limiter.IsAllowed("203.0.113.7"), "request %d should be allowed", i+1)
			}
			assert.False(t, limiter.IsAllowed("203.0.113.7"), "request N+1 should be denied")
			assert.False(t, limiter.IsAllowed("203.0.113.7"), "denials do not reopen the window")

			// Exactly at the reset time the window is still live.
			clock.Advance(tt.policy.Window)
			assert.False(t, limiter.IsAllowed("203.0.113.7"))

			clock.Advance(time.Millisecond)
			assert.True(t, limiter.IsAllowed("203.0.113.7"))
			assert.Equal(t, tt.policy.MaxRequests-1, limiter.RemainingRequests("203.0.113.7"))
		})
	}
}

func TestIsAllowed_KeysAreIndependent(t *testing.T) {
	limiter, _ := newTestLimiter(Policy{Name: "t", MaxRequests: 2, Window: time.Minute})

	assert.True(t, limiter.IsAllowed("a"))
	assert.True(t, limiter.IsAllowed("a"))
	assert.False(t, limiter.IsAllowed("a"))

	assert.True(t, limiter.IsAllowed("b"))
	assert.True(t, limiter.IsAllowed("unknown"))
}

func TestCheck_Status(t *testing.T) {
	limiter, clock := newTestLimiter(Policy{Name: "t", MaxRequests: 3, Window: time.Minute})
	start := clock.Now()

	status := limiter.Check("k")
	assert.True(t, status.Allowed)
	assert.Equal(t, 3, status.Limit)
	assert.Equal(t, 2, status.Remaining)
	assert.Equal(t, start.Add(time.Minute), status.ResetAt)

	clock.Advance(10 * time.Second)
	limiter.Check("k")
	status = limiter.Check("k")
	assert.True(t, status.Allowed)
	assert.Equal(t, 0, status.Remaining)
	assert.Equal(t, start.Add(time.Minute), status.ResetAt, "reset time is fixed by the first request")

	status = limiter.Check("k")
	assert.False(t, status.Allowed)
	assert.Equal(t, 0, status.Remaining)
}

func TestRemainingAndResetTime_UnknownKey(t *testing.T) {
	limiter, clock := newTestLimiter(ScrapePolicy)

	assert.Equal(t, ScrapePolicy.MaxRequests, limiter.RemainingRequests("nobody"))
	assert.Equal(t, clock.Now().Add(ScrapePolicy.Window), limiter.ResetTime("nobody"))
	assert.Equal(t, 0, limiter.size(), "queries must not create windows")
}

func TestResetTime_ExpiredWindow(t *testing.T) {
	limiter, clock := newTestLimiter(ScrapePolicy)

	limiter.IsAllowed("k")
	first := limiter.ResetTime("k")
	clock.Advance(2 * ScrapePolicy.Window)

	assert.Equal(t, clock.Now().Add(ScrapePolicy.Window), limiter.ResetTime("k"))
	assert.True(t, limiter.ResetTime("k").After(first))
	assert.Equal(t, ScrapePolicy.MaxRequests, limiter.RemainingRequests("k"))
}

func TestCleanup(t *testing.T) {
	limiter, clock := newTestLimiter(Policy{Name: "t", MaxRequests: 5, Window: time.Minute})

	limiter.IsAllowed("old-1")
	limiter.IsAllowed("old-2")
	clock.Advance(30 * time.Second)
	limiter.IsAllowed("fresh")
	clock.Advance(31 * time.Second)

	assert.Equal(t, 2, limiter.Cleanup())
	assert.Equal(t, 1, limiter.size())
	assert.Equal(t, 4, limiter.RemainingRequests("fresh"))
}

func TestRun_SweepsUntilCancelled(t *testing.T) {
	limiter := NewFixedWindowLimiter(Policy{Name: "t", MaxRequests: 1, Window: time.Millisecond})
	limiter.IsAllowed("k")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		limiter.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return limiter.size() == 0 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestIsAllowed_ConcurrentNoLostUpdates(t *testing.T) {
	limiter, _ := newTestLimiter(Policy{Name: "t", MaxRequests: 50, Window: time.Minute})

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.IsAllowed("shared") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, allowed)
}

func BenchmarkCheck(b *testing.B) {
	limiter := NewFixedWindowLimiter(APIPolicy)
	for i := 0; i < b.N; i++ {
		limiter.Check(fmt.Sprintf("client-%d", i%64))
	}
}

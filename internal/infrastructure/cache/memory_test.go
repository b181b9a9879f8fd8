package cache

import (
	"context"
	"testing"
	"time"
)

// fakeClock lets tests step over TTL boundaries without sleeping
type fakeClock struct {
	current time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{current: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time { return f.current }

func (f *fakeClock) Advance(d time.Duration) { f.current = f.current.Add(d) }

func newTestCache[T any](defaultTTL time.Duration) (*MemoryCache[T], *fakeClock) {
	clock := newFakeClock()
	cache := NewMemoryCache[T](defaultTTL)
	cache.now = clock.Now
	return cache, clock
}

func TestMemoryCache_SetAndGet(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		ttl     time.Duration
		advance time.Duration
		wantOK  bool
	}{
		{
			name:   "store and retrieve immediately",
			key:    "product:https://example.com/a",
			value:  "payload",
			ttl:    time.Minute,
			wantOK: true,
		},
		{
			name:    "still valid exactly at ttl",
			key:     "product:https://example.com/b",
			value:   "payload",
			ttl:     time.Minute,
			advance: time.Minute,
			wantOK:  true,
		},
		{
			name:    "expired after ttl",
			key:     "product:https://example.com/c",
			value:   "payload",
			ttl:     time.Minute,
			advance: time.Minute + time.Nanosecond,
			wantOK:  false,
		},
		{
			name:    "zero ttl falls back to default",
			key:     "product:https://example.com/d",
			value:   "payload",
			ttl:     0,
			advance: 9 * time.Minute,
			wantOK:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache, clock := newTestCache[string](10 * time.Minute)

			cache.Set(tt.key, tt.value, tt.ttl)
			clock.Advance(tt.advance)

			got, ok := cache.Get(tt.key)
			if ok != tt.wantOK {
				t.Fatalf("Get() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.value {
				t.Errorf("Get() = %v, want %v", got, tt.value)
			}
		})
	}
}

func TestMemoryCache_Get_CacheMiss(t *testing.T) {
	cache := NewMemoryCache[int](time.Minute)

	got, ok := cache.Get("non-existent-key")
	if ok {
		t.Errorf("Get() ok = true, want false")
	}
	if got != 0 {
		t.Errorf("Get() = %v, want zero value", got)
	}
}

func TestMemoryCache_LazyExpiryRemovesEntry(t *testing.T) {
	cache, clock := newTestCache[string](time.Minute)

	cache.Set("k", "v", time.Second)
	clock.Advance(2 * time.Second)

	if stats := cache.Stats(); stats.TotalEntries != 1 || stats.ExpiredEntries != 1 {
		t.Fatalf("Stats() before read = %+v, want 1 total / 1 expired", stats)
	}

	if cache.Has("k") {
		t.Errorf("Has() = true, want false after expiry")
	}

	if stats := cache.Stats(); stats.TotalEntries != 0 {
		t.Errorf("Stats().TotalEntries = %d, want 0 after lazy expiry", stats.TotalEntries)
	}
}

func TestMemoryCache_SetReplaces(t *testing.T) {
	cache, clock := newTestCache[string](time.Minute)

	cache.Set("k", "first", time.Second)
	clock.Advance(500 * time.Millisecond)
	cache.Set("k", "second", time.Second)
	clock.Advance(900 * time.Millisecond)

	got, ok := cache.Get("k")
	if !ok || got != "second" {
		t.Errorf("Get() = %q, %v, want second, true", got, ok)
	}
}

func TestMemoryCache_Delete(t *testing.T) {
	cache := NewMemoryCache[string](time.Minute)

	key := "delete-test"
	cache.Set(key, "value", time.Minute)

	if !cache.Delete(key) {
		t.Errorf("Delete() = false, want true for present key")
	}
	if cache.Delete(key) {
		t.Errorf("Delete() = true, want false for absent key")
	}
	if _, ok := cache.Get(key); ok {
		t.Errorf("Get() after delete ok = true, want false")
	}
}

func TestMemoryCache_Has(t *testing.T) {
	cache := NewMemoryCache[string](time.Minute)

	if cache.Has("exists-test") {
		t.Errorf("Has() = true, want false for non-existent key")
	}

	cache.Set("exists-test", "value", time.Minute)

	if !cache.Has("exists-test") {
		t.Errorf("Has() = false, want true after setting value")
	}
}

func TestMemoryCache_CleanupAndStats(t *testing.T) {
	cache, clock := newTestCache[int](time.Minute)

	for i := 0; i < 3; i++ {
		cache.Set(string(rune('a'+i)), i, time.Second)
	}
	for i := 3; i < 5; i++ {
		cache.Set(string(rune('a'+i)), i, time.Hour)
	}
	clock.Advance(time.Minute)

	stats := cache.Stats()
	if stats.TotalEntries != 5 || stats.ValidEntries != 2 || stats.ExpiredEntries != 3 {
		t.Errorf("Stats() = %+v, want 5 total / 2 valid / 3 expired", stats)
	}

	if removed := cache.Cleanup(); removed != 3 {
		t.Errorf("Cleanup() = %d, want 3", removed)
	}

	stats = cache.Stats()
	if stats.TotalEntries != 2 || stats.ExpiredEntries != 0 {
		t.Errorf("Stats() after cleanup = %+v, want 2 total / 0 expired", stats)
	}
}

func TestMemoryCache_Clear(t *testing.T) {
	cache := NewMemoryCache[int](time.Minute)

	for i := 0; i < 5; i++ {
		cache.Set(string(rune('a'+i)), i, time.Minute)
	}

	if stats := cache.Stats(); stats.TotalEntries != 5 {
		t.Fatalf("TotalEntries = %d, want 5 before clear", stats.TotalEntries)
	}

	cache.Clear()

	if stats := cache.Stats(); stats.TotalEntries != 0 {
		t.Errorf("TotalEntries = %d, want 0 after clear", stats.TotalEntries)
	}
	for i := 0; i < 5; i++ {
		key := string(rune('a' + i))
		if _, ok := cache.Get(key); ok {
			t.Errorf("Get(%s) after clear ok = true, want false", key)
		}
	}
}

func TestMemoryCache_RunStopsOnCancel(t *testing.T) {
	cache := NewMemoryCache[int](time.Millisecond)
	cache.Set("a", 1, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		cache.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for cache.Stats().TotalEntries != 0 {
		select {
		case <-deadline:
			t.Fatal("Run() did not sweep expired entry")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestMemoryCache_Concurrent(t *testing.T) {
	cache := NewMemoryCache[int](time.Minute)

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(id int) {
			key := string(rune('a' + id))
			cache.Set(key, id, time.Minute)
			if _, ok := cache.Get(key); !ok {
				t.Errorf("Concurrent Get(%s) ok = false", key)
			}
			cache.Stats()
			cache.Cleanup()
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}

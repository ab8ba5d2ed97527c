package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(t *testing.T, cfg *Config) (*Limiter, *fakeClock) {
	t.Helper()
	cfg.CleanupInterval = 0
	l := NewLimiter(cfg)
	clock := newFakeClock()
	l.now = clock.Now
	t.Cleanup(l.Stop)
	return l, clock
}

func TestTokenBucket_Take(t *testing.T) {
	start := newFakeClock().Now()
	bucket := newTokenBucket(10, 1.0, start)

	for i := 0; i < 10; i++ {
		allowed, _, _ := bucket.take(start)
		if !allowed {
			t.Errorf("Expected request %d to be allowed", i+1)
		}
	}

	allowed, remaining, _ := bucket.take(start)
	assert.False(t, allowed, "11th request should be denied")
	assert.Equal(t, 0, remaining)
}

func TestTokenBucket_Refill(t *testing.T) {
	start := newFakeClock().Now()
	bucket := newTokenBucket(10, 1.0, start)
	for i := 0; i < 10; i++ {
		bucket.take(start)
	}

	later := start.Add(1100 * time.Millisecond)
	allowed, _, _ := bucket.take(later)
	assert.True(t, allowed, "one token should refill after a second")

	allowed, _, _ = bucket.take(later)
	assert.False(t, allowed, "refilled token was already consumed")
}

func TestTokenBucket_ResetTime(t *testing.T) {
	start := newFakeClock().Now()
	bucket := newTokenBucket(10, 1.0, start)
	for i := 0; i < 4; i++ {
		bucket.take(start)
	}

	_, remaining, reset := bucket.take(start)
	assert.Equal(t, 5, remaining)
	assert.Equal(t, start.Add(5*time.Second), reset)
}

func TestTokenBucket_CapsAtCapacity(t *testing.T) {
	start := newFakeClock().Now()
	bucket := newTokenBucket(3, 1.0, start)

	_, remaining, _ := bucket.take(start.Add(time.Hour))
	assert.Equal(t, 2, remaining)
}

func TestLimiter_Disabled(t *testing.T) {
	l, _ := newTestLimiter(t, &Config{Enabled: false})

	for i := 0; i < 100; i++ {
		allowed, _ := l.Allow("client", "/crew/kickoff", "POST")
		require.True(t, allowed)
	}
	assert.Equal(t, 0, l.Size())
}

func TestLimiter_WhitelistAndBlacklist(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Whitelist = map[string]bool{"10.0.0.1": true}
	cfg.Blacklist = map[string]bool{"10.0.0.2": true}
	l, _ := newTestLimiter(t, cfg)

	for i := 0; i < 50; i++ {
		allowed, _ := l.Allow("10.0.0.1", "/crew/kickoff", "POST")
		require.True(t, allowed, "whitelisted client request %d", i+1)
	}

	allowed, info := l.Allow("10.0.0.2", "/health", "GET")
	assert.False(t, allowed)
	assert.False(t, info.Allowed)
}

func TestLimiter_KickoffBurst(t *testing.T) {
	l, clock := newTestLimiter(t, DefaultConfig())

	for i := 0; i < 2; i++ {
		allowed, info := l.Allow("client", "/crew/kickoff", "POST")
		require.True(t, allowed, "request %d within burst", i+1)
		assert.Equal(t, 10, info.Limit)
	}

	allowed, info := l.Allow("client", "/crew/kickoff", "POST")
	assert.False(t, allowed)
	assert.Positive(t, info.RetryAfter)

	// 10 per hour refills one token every six minutes
	clock.Advance(7 * time.Minute)
	allowed, _ = l.Allow("client", "/crew/kickoff", "POST")
	assert.True(t, allowed)
}

func TestLimiter_ClientsAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(t, DefaultConfig())

	for i := 0; i < 2; i++ {
		l.Allow("a", "/crew/kickoff", "POST")
	}
	allowed, _ := l.Allow("a", "/crew/kickoff", "POST")
	assert.False(t, allowed)

	allowed, _ = l.Allow("b", "/crew/kickoff", "POST")
	assert.True(t, allowed)
}

func TestLimiter_StepEndpointsShareBudget(t *testing.T) {
	l, _ := newTestLimiter(t, DefaultConfig())

	stages := []string{"search", "match", "resume", "research", "interview"}
	for i := 0; i < 10; i++ {
		path := "/crew/step/" + stages[i%len(stages)]
		allowed, _ := l.Allow("client", path, "POST")
		require.True(t, allowed, "request %d to %s", i+1, path)
	}

	allowed, _ := l.Allow("client", "/crew/step/search", "POST")
	assert.False(t, allowed, "step burst is shared across stages")
	assert.Equal(t, 1, l.Size())
}

func TestLimiter_HealthUnlimited(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultLimit = 1
	l, _ := newTestLimiter(t, cfg)

	for i := 0; i < 20; i++ {
		allowed, _ := l.Allow("client", "/health", "GET")
		require.True(t, allowed)
	}
}

func TestLimiter_DefaultLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultLimit = 3
	l, _ := newTestLimiter(t, cfg)

	for i := 0; i < 3; i++ {
		allowed, _ := l.Allow("client", "/crew/status/abc", "GET")
		require.True(t, allowed)
	}
	allowed, info := l.Allow("client", "/crew/status/abc", "GET")
	assert.False(t, allowed)
	assert.Equal(t, 3, info.Limit)
}

func TestLimiter_Cleanup(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IdleTimeout = time.Minute
	l, clock := newTestLimiter(t, cfg)

	l.Allow("a", "/crew/tasks", "GET")
	clock.Advance(30 * time.Second)
	l.Allow("b", "/crew/tasks", "GET")
	require.Equal(t, 2, l.Size())

	clock.Advance(45 * time.Second)
	assert.Equal(t, 1, l.Cleanup())
	assert.Equal(t, 1, l.Size())
}

func TestLimiter_Concurrent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DefaultLimit = 100
	l, _ := newTestLimiter(t, cfg)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowedCount := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow("client", "/crew/tasks", "GET"); ok {
				mu.Lock()
				allowedCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, allowedCount)
}

func TestLimiter_StopIdempotent(t *testing.T) {
	l := NewLimiter(DefaultConfig())
	l.Stop()
	l.Stop()
}

func TestMatchEndpoint(t *testing.T) {
	configs := DefaultEndpointConfigs()

	tests := []struct {
		path     string
		method   string
		wantPath string
	}{
		{"/crew/kickoff", "POST", "/crew/kickoff"},
		{"/crew/kickoff/sync", "POST", "/crew/kickoff/sync"},
		{"/crew/kickoff/stream", "POST", "/crew/kickoff/stream"},
		{"/crew/step/match", "POST", "/crew/step/"},
		{"/crew/step/interview", "POST", "/crew/step/"},
		{"/health", "GET", "/health"},
		{"/crew/kickoff", "GET", ""},
		{"/crew/status/abc", "GET", ""},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s %s", tt.method, tt.path), func(t *testing.T) {
			got := MatchEndpoint(tt.path, tt.method, configs)
			if tt.wantPath == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantPath, got.Path)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		t.Setenv("RATE_LIMIT_ENABLED", "false")
		assert.False(t, LoadConfig().Enabled)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("RATE_LIMIT_DEFAULT_LIMIT", "42")
		t.Setenv("RATE_LIMIT_RUN_LIMIT", "3")
		t.Setenv("RATE_LIMIT_RUN_WINDOW", "10m")
		t.Setenv("RATE_LIMIT_WHITELIST", "1.2.3.4, 5.6.7.8")

		cfg := LoadConfig()
		assert.True(t, cfg.Enabled)
		assert.Equal(t, 42, cfg.DefaultLimit)
		assert.True(t, cfg.Whitelist["5.6.7.8"])
		for _, ep := range cfg.EndpointConfigs {
			assert.Equal(t, 3, ep.Limit, ep.Path)
			assert.Equal(t, 10*time.Minute, ep.Window, ep.Path)
		}
	})

	t.Run("bad values fall back", func(t *testing.T) {
		t.Setenv("RATE_LIMIT_DEFAULT_LIMIT", "lots")
		assert.Equal(t, DefaultConfig().DefaultLimit, LoadConfig().DefaultLimit)
	})
}

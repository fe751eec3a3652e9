package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestBucket(rate float64, burst int) (*TokenBucket, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	tb := NewTokenBucket(rate, burst)
	tb.now = clock.Now
	return tb, clock
}

func TestTokenBucket_Allow(t *testing.T) {
	tb, clock := newTestBucket(2, 3)

	for i := 2; i >= 0; i-- {
		ok, remaining, _ := tb.Allow("a")
		require.True(t, ok)
		assert.Equal(t, i, remaining)
	}
	ok, _, retry := tb.Allow("a")
	assert.False(t, ok)
	assert.Equal(t, 500*time.Millisecond, retry)

	ok, _, _ = tb.Allow("b")
	assert.True(t, ok, "keys have separate buckets")

	clock.Advance(500 * time.Millisecond)
	ok, _, _ = tb.Allow("a")
	assert.True(t, ok)

	clock.Advance(time.Hour)
	_, remaining, _ := tb.Allow("a")
	assert.Equal(t, 2, remaining, "refill is capped at burst")
}

func TestTokenBucket_Sweep(t *testing.T) {
	tb, clock := newTestBucket(1, 1)
	tb.Allow("old")
	clock.Advance(10 * time.Minute)
	tb.Allow("new")

	assert.Equal(t, 1, tb.Sweep(5*time.Minute))
	assert.Len(t, tb.buckets, 1)
}

func TestRateLimit(t *testing.T) {
	tb, _ := newTestBucket(1, 1)
	h := RateLimit(tb, 1, []string{"/healthz"})(okHandler())

	do := func(path, addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	w := do("/api/v1/rinchi/key", "10.0.0.1:5000")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))

	w = do("/api/v1/rinchi/key", "10.0.0.1:5001")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")

	assert.Equal(t, http.StatusOK, do("/api/v1/rinchi/key", "10.0.0.2:5000").Code)
	assert.Equal(t, http.StatusOK, do("/healthz", "10.0.0.1:5002").Code)
}

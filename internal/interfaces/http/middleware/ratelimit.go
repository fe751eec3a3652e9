package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Limiter decides whether the client identified by key may proceed.
type Limiter interface {
	Allow(key string) (ok bool, remaining int, retryAfter time.Duration)
}

type bucket struct {
	tokens float64
	last   time.Time
}

// TokenBucket is a per-key token bucket. Idle buckets are dropped by Sweep.
type TokenBucket struct {
	rate  float64
	burst int
	now   func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

func NewTokenBucket(rate float64, burst int) *TokenBucket {
	if burst < 1 {
		burst = 1
	}
	return &TokenBucket{rate: rate, burst: burst, now: time.Now, buckets: make(map[string]*bucket)}
}

func (t *TokenBucket) Allow(key string) (bool, int, time.Duration) {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(t.burst), last: now}
		t.buckets[key] = b
	}
	b.tokens = math.Min(float64(t.burst), b.tokens+now.Sub(b.last).Seconds()*t.rate)
	b.last = now

	if b.tokens >= 1 {
		b.tokens--
		return true, int(b.tokens), 0
	}
	wait := time.Duration((1 - b.tokens) / t.rate * float64(time.Second))
	return false, 0, wait
}

// Sweep drops buckets idle for longer than idle. Full buckets carry no
// state worth keeping.
func (t *TokenBucket) Sweep(idle time.Duration) int {
	cutoff := t.now().Add(-idle)
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for k, b := range t.buckets {
		if b.last.Before(cutoff) {
			delete(t.buckets, k)
			n++
		}
	}
	return n
}

// RateLimit rejects clients over their budget with 429. Clients are keyed
// by remote IP; chi's RealIP middleware runs first in the router.
func RateLimit(l Limiter, burst int, skipPaths []string) func(http.Handler) http.Handler {
	limit := strconv.Itoa(burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipped(skipPaths, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			ok, remaining, retry := l.Allow(clientIP(r))
			w.Header().Set("X-RateLimit-Limit", limit)
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(max(1, int(math.Ceil(retry.Seconds())))))
				writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

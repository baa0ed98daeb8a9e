package httpx

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// keyedLimiter keeps one token bucket per key, evicting buckets idle for
// longer than idleEvict so the map does not grow with every client ever seen.
type keyedLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	limit rate.Limit
	burst int
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

const idleEvict = 10 * time.Minute

func newKeyedLimiter(rps float64, burst int) *keyedLimiter {
	return &keyedLimiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(rps),
		burst:   burst,
	}
}

func (kl *keyedLimiter) allow(key string) bool {
	now := time.Now()

	kl.mu.Lock()
	defer kl.mu.Unlock()

	b, ok := kl.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(kl.limit, kl.burst)}
		kl.buckets[key] = b
	}
	b.lastSeen = now

	// Opportunistic eviction amortized over requests; no janitor goroutine.
	if len(kl.buckets) > 1024 {
		for k, other := range kl.buckets {
			if now.Sub(other.lastSeen) > idleEvict {
				delete(kl.buckets, k)
			}
		}
	}

	return b.lim.Allow()
}

// RateLimitByIP limits requests per client IP. Used on unauthenticated
// endpoints, the token endpoint above all.
func RateLimitByIP(rps float64, burst int) Middleware {
	kl := newKeyedLimiter(rps, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}
			if !kl.allow(host) {
				WriteError(w, r, ErrRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitByKey limits requests per caller-derived key, e.g. the
// authenticated principal. Requests with an empty key pass through.
func RateLimitByKey(rps float64, burst int, keyFn func(*http.Request) string) Middleware {
	kl := newKeyedLimiter(rps, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFn(r)
			if key != "" && !kl.allow(key) {
				WriteError(w, r, ErrRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

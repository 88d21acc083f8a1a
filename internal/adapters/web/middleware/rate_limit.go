package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxTrackedClients bounds the limiter table before stale entries are
// evicted.
const maxTrackedClients = 10000

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rate     rate.Limit
	burst    int
	idle     time.Duration
}

// NewRateLimiter allows rps requests per second per client with bursts of
// up to burst requests.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     rate.Limit(rps),
		burst:    burst,
		idle:     10 * time.Minute,
	}
}

// Allow reports whether a request from ip may proceed.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	e, ok := rl.limiters[ip]
	if !ok {
		if len(rl.limiters) >= maxTrackedClients {
			rl.cleanupLocked()
		}
		e = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[ip] = e
	}
	e.lastSeen = time.Now()
	return e.limiter.Allow()
}

// cleanupLocked removes clients idle for longer than rl.idle.
func (rl *RateLimiter) cleanupLocked() {
	cutoff := time.Now().Add(-rl.idle)
	for ip, e := range rl.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(rl.limiters, ip)
		}
	}
}

// RateLimitMiddleware rejects requests over the client's budget with 429.
func RateLimitMiddleware(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(ClientIP(r)) {
				w.Header().Set("Retry-After", "1")
				http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP extracts the client address, preferring the first
// X-Forwarded-For hop.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Allow(t *testing.T) {
	limiter := NewRateLimiter(0.001, 3)

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow("192.168.1.1"), "request %d should be allowed", i+1)
	}
	assert.False(t, limiter.Allow("192.168.1.1"), "burst exhausted")
	assert.True(t, limiter.Allow("192.168.1.2"), "other clients have their own bucket")
}

func TestRateLimiter_Refill(t *testing.T) {
	limiter := NewRateLimiter(20, 1)

	assert.True(t, limiter.Allow("192.168.1.1"))
	assert.False(t, limiter.Allow("192.168.1.1"))

	assert.Eventually(t, func() bool {
		return limiter.Allow("192.168.1.1")
	}, time.Second, 10*time.Millisecond)
}

func TestRateLimiter_Cleanup(t *testing.T) {
	limiter := NewRateLimiter(1, 1)
	limiter.Allow("192.168.1.1")
	limiter.Allow("192.168.1.2")

	limiter.mu.Lock()
	limiter.limiters["192.168.1.1"].lastSeen = time.Now().Add(-time.Hour)
	limiter.cleanupLocked()
	_, stale := limiter.limiters["192.168.1.1"]
	_, fresh := limiter.limiters["192.168.1.2"]
	limiter.mu.Unlock()

	assert.False(t, stale)
	assert.True(t, fresh)
}

func TestRateLimitMiddleware(t *testing.T) {
	handler := RateLimitMiddleware(NewRateLimiter(0.001, 2))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
		req.RemoteAddr = "10.0.0.5:5555"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		xff    string
		want   string
	}{
		{"remote addr", "10.0.0.5:5555", "", "10.0.0.5"},
		{"forwarded", "10.0.0.5:5555", "203.0.113.7, 10.0.0.1", "203.0.113.7"},
		{"no port", "10.0.0.5", "", "10.0.0.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			assert.Equal(t, tt.want, ClientIP(req))
		})
	}
}

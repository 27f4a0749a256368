package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestMemoryLimiterFixedWindow(t *testing.T) {
	limiter := NewMemoryLimiter()
	defer limiter.Close()

	for i := 1; i <= 3; i++ {
		decision := limiter.Allow("ip:1.2.3.4", 3, time.Minute)
		assert.True(t, decision.Allowed, "request %d should pass", i)
		assert.Equal(t, i, decision.Count)
	}
	decision := limiter.Allow("ip:1.2.3.4", 3, time.Minute)
	assert.False(t, decision.Allowed)

	// A different key has its own window.
	assert.True(t, limiter.Allow("ip:5.6.7.8", 3, time.Minute).Allowed)
}

func TestMemoryLimiterWindowReset(t *testing.T) {
	limiter := NewMemoryLimiter()
	defer limiter.Close()

	assert.True(t, limiter.Allow("k", 1, 20*time.Millisecond).Allowed)
	assert.False(t, limiter.Allow("k", 1, 20*time.Millisecond).Allowed)

	time.Sleep(30 * time.Millisecond)
	assert.True(t, limiter.Allow("k", 1, 20*time.Millisecond).Allowed)
}

func TestMemoryLimiterSweep(t *testing.T) {
	limiter := NewMemoryLimiter()
	defer limiter.Close()

	limiter.Allow("stale", 5, 10*time.Millisecond)
	limiter.Allow("fresh", 5, time.Minute)
	time.Sleep(20 * time.Millisecond)
	limiter.Sweep()

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	assert.NotContains(t, limiter.entries, "stale")
	assert.Contains(t, limiter.entries, "fresh")
}

func TestMemoryLimiterUnlimited(t *testing.T) {
	limiter := NewMemoryLimiter()
	defer limiter.Close()
	for i := 0; i < 100; i++ {
		assert.True(t, limiter.Allow("k", 0, time.Minute).Allowed)
	}
}

func newLimitedRouter(limiter Limiter, limit int) http.Handler {
	r := mux.NewRouter()
	r.Use(RateLimitMiddleware(limiter, limit, time.Minute, testLogger()))
	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return r
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := NewMemoryLimiter()
	defer limiter.Close()
	router := newLimitedRouter(limiter, 2)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))

	// Another client is unaffected.
	req = httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitMiddlewareDisabled(t *testing.T) {
	router := newLimitedRouter(nil, 0)
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

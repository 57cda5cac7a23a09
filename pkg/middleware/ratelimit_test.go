package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/recipebox/pkg/observability"
)

func TestRateLimiter_Allow(t *testing.T) {
	limiter := NewRateLimiter(&RateLimitConfig{
		RequestsPerWindow: 10,
		WindowDuration:    time.Hour,
		BurstSize:         3,
	})
	ctx := context.Background()

	allowed := 0
	for i := 0; i < 6; i++ {
		ok, err := limiter.Allow(ctx, "ip:10.0.0.1")
		require.NoError(t, err)
		if ok {
			allowed++
		}
	}
	assert.Equal(t, 3, allowed)

	ok, err := limiter.Allow(ctx, "ip:10.0.0.2")
	require.NoError(t, err)
	assert.True(t, ok, "keys have independent buckets")
}

func TestRateLimiter_BurstDefaultsToRequests(t *testing.T) {
	limiter := NewRateLimiter(&RateLimitConfig{RequestsPerWindow: 2, WindowDuration: time.Hour})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, _ := limiter.Allow(ctx, "k")
		assert.True(t, ok)
	}
	ok, _ := limiter.Allow(ctx, "k")
	assert.False(t, ok)
}

func TestRateLimiter_Cleanup(t *testing.T) {
	limiter := NewRateLimiter(&RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Millisecond})
	_, _ = limiter.Allow(context.Background(), "stale")

	time.Sleep(5 * time.Millisecond)
	limiter.Cleanup()

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	assert.Empty(t, limiter.visitors)
}

type erroringLimiter struct{}

func (erroringLimiter) Allow(context.Context, string) (bool, error) {
	return true, errors.New("backend down")
}

func TestRateLimitMiddleware(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	limiter := NewRateLimiter(&RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute, BurstSize: 1})
	handler := RateLimit(limiter, "memory", time.Minute, metrics, false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(remote string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/recipes/", nil)
		r.RemoteAddr = remote
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w
	}

	first := send("192.0.2.1:5000")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "0", first.Header().Get("X-RateLimit-Remaining"))

	w := send("192.0.2.1:5001")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "Request was throttled.")
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.RateLimitedTotal.WithLabelValues("memory")))

	assert.Equal(t, http.StatusOK, send("192.0.2.2:5000").Code)
}

func TestRateLimitMiddleware_FailsOpen(t *testing.T) {
	handler := RateLimit(erroringLimiter{}, "redis", time.Minute, nil, false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimiter_Remaining(t *testing.T) {
	limiter := NewRateLimiter(&RateLimitConfig{RequestsPerWindow: 10, WindowDuration: time.Hour, BurstSize: 3})
	ctx := context.Background()

	remaining, err := limiter.Remaining(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 3, remaining)

	_, _ = limiter.Allow(ctx, "k")
	remaining, err = limiter.Remaining(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)
}

func TestRateLimitMiddleware_ForwardedHeaders(t *testing.T) {
	newHandler := func(trustProxy bool) http.Handler {
		limiter := NewRateLimiter(&RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute, BurstSize: 1})
		return RateLimit(limiter, "memory", time.Minute, nil, trustProxy)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
	}
	send := func(h http.Handler, forwarded string) int {
		r := httptest.NewRequest(http.MethodGet, "/recipes/", nil)
		r.RemoteAddr = "192.0.2.1:5000"
		r.Header.Set("X-Forwarded-For", forwarded)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w.Code
	}

	t.Run("untrusted headers cannot rotate the key", func(t *testing.T) {
		h := newHandler(false)
		assert.Equal(t, http.StatusOK, send(h, "198.51.100.1"))
		assert.Equal(t, http.StatusTooManyRequests, send(h, "198.51.100.2"))
		assert.Equal(t, http.StatusTooManyRequests, send(h, "198.51.100.3"))
	})

	t.Run("trusted proxy separates clients", func(t *testing.T) {
		h := newHandler(true)
		assert.Equal(t, http.StatusOK, send(h, "198.51.100.1"))
		assert.Equal(t, http.StatusOK, send(h, "198.51.100.2"))
		assert.Equal(t, http.StatusTooManyRequests, send(h, "198.51.100.1"))
	})
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remote     string
		trustProxy bool
		want       string
	}{
		{"remote addr", nil, "203.0.113.9:4321", false, "203.0.113.9"},
		{"forwarded chain ignored", map[string]string{"X-Forwarded-For": "198.51.100.1, 10.0.0.1"}, "10.0.0.1:80", false, "10.0.0.1"},
		{"real ip ignored", map[string]string{"X-Real-IP": "198.51.100.7"}, "10.0.0.1:80", false, "10.0.0.1"},
		{"trusted forwarded chain", map[string]string{"X-Forwarded-For": "198.51.100.1, 10.0.0.1"}, "10.0.0.1:80", true, "198.51.100.1"},
		{"trusted real ip", map[string]string{"X-Real-IP": "198.51.100.7"}, "10.0.0.1:80", true, "198.51.100.7"},
		{"trusted without headers", nil, "10.0.0.1:80", true, "10.0.0.1"},
		{"unparseable remote", nil, "pipe", false, "pipe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientIP(r, tt.trustProxy))
		})
	}
}

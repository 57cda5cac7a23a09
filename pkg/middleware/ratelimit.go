package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/platinummonkey/recipebox/pkg/httputil"
	"github.com/platinummonkey/recipebox/pkg/observability"
)

// RateLimitConfig defines rate limiting configuration
type RateLimitConfig struct {
	// RequestsPerWindow is the max requests allowed in the time window
	RequestsPerWindow int
	// WindowDuration is the time window for rate limiting
	WindowDuration time.Duration
	// BurstSize allows temporary bursts above the rate
	BurstSize int
}

// DefaultRateLimitConfig returns default rate limit settings
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerWindow: 100,
		WindowDuration:    time.Minute,
		BurstSize:         20,
	}
}

// Limiter decides whether a client identified by key may proceed
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// remainingCounter is implemented by limiters that can report a client's remaining quota
type remainingCounter interface {
	Remaining(ctx context.Context, key string) (int, error)
}

// RateLimiter is an in-process token bucket per client key
type RateLimiter struct {
	config   *RateLimitConfig
	limit    rate.Limit
	burst    int
	visitors map[string]*visitor
	mu       sync.Mutex
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a new in-memory rate limiter
func NewRateLimiter(config *RateLimitConfig) *RateLimiter {
	if config == nil || config.RequestsPerWindow <= 0 || config.WindowDuration <= 0 {
		config = DefaultRateLimitConfig()
	}

	burst := config.BurstSize
	if burst <= 0 {
		burst = config.RequestsPerWindow
	}

	return &RateLimiter{
		config:   config,
		limit:    rate.Every(config.WindowDuration / time.Duration(config.RequestsPerWindow)),
		burst:    burst,
		visitors: make(map[string]*visitor),
	}
}

// Allow takes a token from the key's bucket. It never returns an error.
func (rl *RateLimiter) Allow(_ context.Context, key string) (bool, error) {
	rl.mu.Lock()
	v, exists := rl.visitors[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = time.Now()
	rl.mu.Unlock()

	return v.limiter.Allow(), nil
}

// Remaining returns the whole tokens left in the key's bucket. Unknown keys have a full burst.
func (rl *RateLimiter) Remaining(_ context.Context, key string) (int, error) {
	rl.mu.Lock()
	v, exists := rl.visitors[key]
	rl.mu.Unlock()

	if !exists {
		return rl.burst, nil
	}
	tokens := int(v.limiter.Tokens())
	if tokens < 0 {
		tokens = 0
	}
	return tokens, nil
}

// Cleanup forgets clients idle for more than two windows
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for key, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.config.WindowDuration*2 {
			delete(rl.visitors, key)
		}
	}
}

// StartCleanup runs Cleanup every window until ctx is done. A panic is logged with the
// context logger and stops the loop.
func (rl *RateLimiter) StartCleanup(ctx context.Context) {
	ticker := time.NewTicker(rl.config.WindowDuration)
	go func() {
		defer ticker.Stop()
		defer observability.RecoverPanic(observability.FromContext(ctx), "rate limit cleanup")
		for {
			select {
			case <-ticker.C:
				rl.Cleanup()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// RateLimit rejects clients over their limit with a 429. Limiter errors let the request
// through so a broken backend does not take the API down. Forwarding headers only identify
// the client when trustProxy is set.
func RateLimit(limiter Limiter, name string, window time.Duration, metrics *observability.Metrics, trustProxy bool) func(http.Handler) http.Handler {
	retryAfter := strconv.Itoa(int(window.Seconds()))
	counter, _ := limiter.(remainingCounter)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ip:" + clientIP(r, trustProxy)

			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				observability.FromContext(r.Context()).WithError(err).
					WithField("limiter", name).
					Warn("Rate limiter unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				metrics.RecordRateLimited(name)
				w.Header().Set("Retry-After", retryAfter)
				w.Header().Set("X-RateLimit-Remaining", "0")
				httputil.WriteTooManyRequests(w, "Request was throttled.")
				return
			}

			if counter != nil {
				if remaining, err := counter.Remaining(r.Context(), key); err == nil {
					w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP is the peer address, or the first forwarded address when the API sits behind a
// trusted proxy
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			if first = strings.TrimSpace(first); first != "" {
				return first
			}
		}

		if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
			return realIP
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

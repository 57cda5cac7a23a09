// Package middleware holds request limiting for the recipebox API.
//
// RateLimit wraps a Limiter keyed by client IP. RateLimiter keeps token buckets in process;
// DistributedRateLimiter counts fixed windows in Redis so replicas share one budget:
//
//	limiter := middleware.NewRateLimiter(&middleware.RateLimitConfig{
//		RequestsPerWindow: 100,
//		WindowDuration:    time.Minute,
//		BurstSize:         20,
//	})
//	handler = middleware.RateLimit(limiter, "memory", time.Minute, metrics, false)(handler)
//
// The client IP is the peer address unless trustProxy is set, in which case the first
// X-Forwarded-For entry or X-Real-IP wins. Allowed responses carry X-RateLimit-Remaining.
// Requests over the limit get a 429 with a Retry-After header. If the Redis backend fails the
// request is let through and a warning logged.
package middleware

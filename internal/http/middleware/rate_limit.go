package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rendevo/booking-api/internal/http/response"
	"github.com/rendevo/booking-api/pkg/logger"
)

// fixedWindowScript counts requests per key and stamps a TTL on the first
// hit of each window. INCR and PEXPIRE run atomically so concurrent hits
// cannot create an unexpiring counter.
var fixedWindowScript = redis.NewScript(`
local current = redis.call('INCR', KEYS[1])
if current == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return current
`)

// RateLimiter is a fixed-window limiter keyed by client IP. With no redis
// client it becomes a no-op, which keeps single-instance dev setups simple.
type RateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewRateLimiter(client *redis.Client, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{client: client, limit: limit, window: window}
}

func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rl.client == nil || rl.limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			key := "ratelimit:" + clientIP(r)
			if !rl.allow(r.Context(), key) {
				response.RateLimit(w, "too many requests, try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) allow(ctx context.Context, key string) bool {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	count, err := fixedWindowScript.Run(ctx, rl.client, []string{key}, rl.window.Milliseconds()).Int()
	if err != nil {
		// Fail open: a redis outage must not take booking down with it.
		logger.Warn("Rate limit check failed", "error", err)
		return true
	}
	return count <= rl.limit
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

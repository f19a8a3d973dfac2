package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ovasylenko/contactbook-backend/internal/database"
	"github.com/ovasylenko/contactbook-backend/pkg/clientip"
)

// RateLimitKeyPrefix is the Redis key prefix for per-route window counters
const RateLimitKeyPrefix = "ratelimit:"

// RateLimit limits each (client IP, route) pair to limit requests per
// window using a Redis fixed-window counter. INCR is atomic, so concurrent
// requests from the same client cannot slip past the limit. If Redis is
// unreachable the request is allowed (fail open): rate limiting is a
// guard, not a dependency.
func RateLimit(route string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientip.RealClientIP(r)
			key := RateLimitKeyPrefix + route + ":" + ip

			ctx := context.Background()
			count, err := database.RedisClient.Incr(ctx, key).Result()
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				// First request opens the window
				database.RedisClient.Expire(ctx, key, window)
			}

			if count > int64(limit) {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(fmt.Sprintf(`{"success":false,"message":"Rate limit exceeded. Please try again later.","retry_after":%d}`, int(window.Seconds()))))
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(limit-int(count)))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(window).Unix(), 10))

			next.ServeHTTP(w, r)
		})
	}
}

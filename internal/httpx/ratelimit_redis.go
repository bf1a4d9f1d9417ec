package httpx

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// counterScript increments the window counter and arms its expiry on first
// hit, atomically, so the window cannot leak without a TTL.
var counterScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// RedisRateLimiter is the fixed-window limiter shared across replicas,
// protecting the public availability and booking endpoints.
type RedisRateLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	prefix string
}

func NewRedisRateLimiter(rdb *redis.Client, limit int, window time.Duration, prefix string) *RedisRateLimiter {
	rl := &RedisRateLimiter{
		rdb:    rdb,
		limit:  limit,
		window: window,
		prefix: strings.TrimSpace(prefix),
	}
	if rl.limit <= 0 {
		rl.limit = 60
	}
	if rl.window <= 0 {
		rl.window = time.Minute
	}
	if rl.prefix == "" {
		rl.prefix = "rl"
	}
	return rl
}

// Middleware enforces the limit. When Redis is unreachable, failOpen decides
// between letting traffic through and answering 503.
func (rl *RedisRateLimiter) Middleware(logger *slog.Logger, failOpen bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n, err := rl.hit(r.Context(), clientKey(r))
			switch {
			case err != nil && failOpen:
				if logger != nil {
					logger.Warn("rate limiter unavailable, failing open", "err", err)
				}
			case err != nil:
				http.Error(w, "rate limiter unavailable", http.StatusServiceUnavailable)
				return
			case n > int64(rl.limit):
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RedisRateLimiter) hit(ctx context.Context, client string) (int64, error) {
	key := rl.prefix + ":" + client
	res, err := counterScript.Run(ctx, rl.rdb, []string{key}, rl.window.Milliseconds()).Result()
	if err != nil {
		return 0, err
	}
	return coerceCount(res)
}

func coerceCount(res any) (int64, error) {
	switch v := res.(type) {
	case int64:
		return v, nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected script result %T", res)
	}
}

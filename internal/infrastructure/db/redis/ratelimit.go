package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pressify/reprint-hub/internal/core/ports"
)

// incrScript bumps the window counter and arms its expiry on first use.
var incrScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// RateLimiter is a fixed-window limiter shared by every API replica.
// Key format: ratelimit:<prefix>:<key>:<window_start_unix>
type RateLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
}

// NewRateLimiter allows limit hits per window for each key.
func NewRateLimiter(client *redis.Client, prefix string, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{client: client, prefix: prefix, limit: limit, window: window}
}

func (l *RateLimiter) Allow(ctx context.Context, key string, now time.Time) (ports.RateLimitResult, error) {
	if l.limit <= 0 || l.window <= 0 || key == "" {
		return ports.RateLimitResult{Allowed: true}, nil
	}

	start := now.Truncate(l.window)
	retryAfter := start.Add(l.window).Sub(now)

	res, err := incrScript.Run(ctx, l.client, []string{l.key(key, start)}, l.window.Milliseconds()).Result()
	if err != nil {
		return ports.RateLimitResult{}, fmt.Errorf("rate limit: %w", err)
	}
	count, ok := res.(int64)
	if !ok {
		return ports.RateLimitResult{}, errors.New("rate limit: unexpected redis response type")
	}

	if count > int64(l.limit) {
		return ports.RateLimitResult{Allowed: false, RetryAfter: retryAfter}, nil
	}
	return ports.RateLimitResult{Allowed: true, Remaining: l.limit - int(count), RetryAfter: retryAfter}, nil
}

func (l *RateLimiter) key(key string, windowStart time.Time) string {
	return fmt.Sprintf("ratelimit:%s:%s:%d", l.prefix, key, windowStart.Unix())
}

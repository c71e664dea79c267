package ports

import (
	"context"
	"time"
)

// RateLimitResult describes the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// RateLimiter counts attempts per key in fixed windows.
type RateLimiter interface {
	Allow(ctx context.Context, key string, now time.Time) (RateLimitResult, error)
}

// Package memory holds single-process fallbacks for the Redis-backed
// infrastructure.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/pressify/reprint-hub/internal/core/ports"
)

// pruneThreshold bounds how many stale keys accumulate before a sweep.
const pruneThreshold = 4096

type window struct {
	start time.Time
	count int
}

// RateLimiter implements a fixed-window in-memory rate limiter.
type RateLimiter struct {
	mu       sync.Mutex
	limit    int
	size     time.Duration
	counters map[string]*window
}

// NewRateLimiter allows limit hits per window for each key.
func NewRateLimiter(limit int, size time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:    limit,
		size:     size,
		counters: make(map[string]*window),
	}
}

func (l *RateLimiter) Allow(_ context.Context, key string, now time.Time) (ports.RateLimitResult, error) {
	if l.limit <= 0 || l.size <= 0 || key == "" {
		return ports.RateLimitResult{Allowed: true}, nil
	}

	start := now.Truncate(l.size)
	retryAfter := start.Add(l.size).Sub(now)

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.counters) > pruneThreshold {
		l.prune(start)
	}

	w := l.counters[key]
	if w == nil || !w.start.Equal(start) {
		w = &window{start: start}
		l.counters[key] = w
	}
	if w.count >= l.limit {
		return ports.RateLimitResult{Allowed: false, RetryAfter: retryAfter}, nil
	}
	w.count++
	return ports.RateLimitResult{Allowed: true, Remaining: l.limit - w.count, RetryAfter: retryAfter}, nil
}

func (l *RateLimiter) prune(current time.Time) {
	for k, w := range l.counters {
		if w.start.Before(current) {
			delete(l.counters, k)
		}
	}
}

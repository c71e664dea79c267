// Package redis holds the Redis-backed pieces of the auth API: the shared
// login limiter and the browser session store.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	dialTimeout = 5 * time.Second
	clientName  = "reprint-hub"
)

// Config is the connection half of the REDIS_* settings.
type Config struct {
	Addr     string
	Password string
	DB       int
	// Timeout bounds the dial, the startup ping and every command.
	Timeout time.Duration
}

// Connect dials Redis and fails fast when the server does not answer, so the
// API never starts with a limiter that cannot count.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = dialTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ClientName:   clientName,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := Ping(pingCtx, client); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// Ping reports whether client can reach its server. The /health/ready check
// uses it too.
func Ping(ctx context.Context, client *redis.Client) error {
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

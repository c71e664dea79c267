package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

var (
	ErrTimeout            = errors.New("request timed out")
	ErrNetworkUnreachable = errors.New("cannot connect to server, check your network connection")
	ErrSessionExpired     = errors.New("session expired")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// defaultRetryAfter applies when a 429 carries no usable Retry-After header.
const defaultRetryAfter = 60 * time.Second

// RateLimitedError reports a 429 and the advised wait.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, try again in %d seconds", int(e.RetryAfter/time.Second))
}

// APIError is any other non-2xx response.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// IsUnreachable reports whether err means the server could not be reached.
func IsUnreachable(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrNetworkUnreachable)
}

// translateTransport maps a transport failure to the client taxonomy.
// Caller cancellation is passed through untouched.
func translateTransport(ctx context.Context, err error) error {
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ErrTimeout
	}
	return fmt.Errorf("%w: %v", ErrNetworkUnreachable, err)
}

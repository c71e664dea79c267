package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidCredentials covers both unknown usernames and wrong passwords
	// so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidCode        = errors.New("sso code is invalid or expired")
	ErrAccountDisabled    = errors.New("user account is disabled")
	ErrRateLimited        = errors.New("too many attempts")
	ErrValidation         = errors.New("validation failed")

	ErrUserNotFound    = errors.New("user not found")
	ErrTokenNotFound   = errors.New("token not found")
	ErrCodeNotFound    = errors.New("sso code not found")
	ErrDuplicateCode   = errors.New("sso code already exists")
	ErrSessionNotFound = errors.New("session not found")
)

// RateLimitedError carries the advisory wait before the next attempt.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many attempts, retry in %d seconds", e.RetryAfterSeconds())
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds, minimum one.
func (e *RateLimitedError) RetryAfterSeconds() int {
	secs := int((e.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

func (e *RateLimitedError) Unwrap() error { return ErrRateLimited }

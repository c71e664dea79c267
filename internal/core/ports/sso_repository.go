package ports

import (
	"context"
	"time"

	"github.com/pressify/reprint-hub/internal/core/domain"
)

// SSOCodeRepository persists one-time codes.
type SSOCodeRepository interface {
	// Insert returns domain.ErrDuplicateCode on a uniqueness violation.
	Insert(ctx context.Context, code *domain.SSOCode) error
	// Consume marks a valid code used and returns it, in one conditional
	// write. domain.ErrCodeNotFound when the code is unknown, used or expired.
	Consume(ctx context.Context, code string, now time.Time) (*domain.SSOCode, error)
	// DeleteExpired removes codes whose expiry is before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

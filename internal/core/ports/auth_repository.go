package ports

import (
	"context"

	"github.com/pressify/reprint-hub/internal/core/domain"
)

// AuthRepository defines the Credential Store. Users are created and edited
// by the admin tooling; this module only reads them.
type AuthRepository interface {
	// FindActiveByUsername returns domain.ErrUserNotFound when no Active user
	// has exactly this username.
	FindActiveByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
}

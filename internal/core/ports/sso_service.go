package ports

import (
	"context"
	"time"

	"github.com/pressify/reprint-hub/internal/core/domain"
)

// IssuedCode is the answer to a code generation request.
type IssuedCode struct {
	Code      string
	ExpiresAt time.Time
}

// SSOService hands an authenticated desktop identity over to a browser.
type SSOService interface {
	GenerateCode(ctx context.Context, user *domain.User) (*IssuedCode, error)
	RedeemCode(ctx context.Context, code string) (*domain.User, error)
}

// SessionStore is the web session mechanism used after a code is redeemed.
type SessionStore interface {
	Create(ctx context.Context, userID int64) (string, error)
	Lookup(ctx context.Context, sessionID string) (int64, error)
	Destroy(ctx context.Context, sessionID string) error
}

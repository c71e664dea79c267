package ports

import (
	"context"
	"time"

	"github.com/pressify/reprint-hub/internal/core/domain"
)

// TokenRepository persists access tokens. Every write is a single atomic
// operation so the one-token-per-user policy holds under concurrent logins.
type TokenRepository interface {
	// Replace stores token as the only token of token.UserID.
	Replace(ctx context.Context, token *domain.AccessToken) error
	// Rotate swaps the unexpired token with digest oldDigest for next and
	// returns the owner id, which is also copied into next.UserID.
	// domain.ErrTokenNotFound when nothing matched.
	Rotate(ctx context.Context, oldDigest string, next *domain.AccessToken, now time.Time) (int64, error)
	// Touch resolves an unexpired token and stamps its last use.
	Touch(ctx context.Context, digest string, now time.Time) (*domain.AccessToken, error)
	Delete(ctx context.Context, digest string) error
	// DeleteExpired purges tokens whose expiry is before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

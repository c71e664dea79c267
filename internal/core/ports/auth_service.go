package ports

import (
	"context"

	"github.com/pressify/reprint-hub/internal/core/domain"
)

// AuthResult is returned by login and refresh.
type AuthResult struct {
	Token string
	User  *domain.User
}

// Validation is the non-failing answer to a token check.
type Validation struct {
	Valid bool
	User  *domain.User
}

type AuthService interface {
	Login(ctx context.Context, username, password string) (*AuthResult, error)
	Logout(ctx context.Context, token string) error
	Refresh(ctx context.Context, token string) (*AuthResult, error)
	Me(ctx context.Context, token string) (*domain.User, error)
	Validate(ctx context.Context, token string) Validation
	// Authenticate resolves a bearer token to its active owner.
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

// TokenIssuer mints, rotates, revokes and resolves bearer tokens.
type TokenIssuer interface {
	Issue(ctx context.Context, user *domain.User) (*domain.IssuedToken, error)
	Rotate(ctx context.Context, token string) (*domain.IssuedToken, error)
	Revoke(ctx context.Context, token string) error
	Resolve(ctx context.Context, token string) (int64, error)
}

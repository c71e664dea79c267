package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/pressify/reprint-hub/internal/core/domain"
)

const (
	userKey  = "user"
	tokenKey = "token"
)

// Authenticator resolves a bearer token to its active owner.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

// Auth resolves the bearer token and injects the user and raw token into the
// context. Missing, unknown or expired tokens yield domain.ErrUnauthenticated.
func Auth(auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := BearerToken(c)
			if token == "" {
				return domain.ErrUnauthenticated
			}

			user, err := auth.Authenticate(c.Request().Context(), token)
			if err != nil {
				return err
			}

			c.Set(userKey, user)
			c.Set(tokenKey, token)
			return next(c)
		}
	}
}

// AuthLenient is Auth for routes that must stay idempotent once the token is
// gone, such as logout. An unknown or expired token still reaches next, with
// no user in the context. A missing token is rejected.
func AuthLenient(auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := BearerToken(c)
			if token == "" {
				return domain.ErrUnauthenticated
			}

			user, err := auth.Authenticate(c.Request().Context(), token)
			switch {
			case err == nil:
				c.Set(userKey, user)
			case !errors.Is(err, domain.ErrUnauthenticated):
				return err
			}
			c.Set(tokenKey, token)
			return next(c)
		}
	}
}

// BearerToken extracts the token from the Authorization header, or "".
func BearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// UserFrom returns the user injected by Auth.
func UserFrom(c echo.Context) *domain.User {
	u, _ := c.Get(userKey).(*domain.User)
	return u
}

// TokenFrom returns the bearer token injected by Auth.
func TokenFrom(c echo.Context) string {
	t, _ := c.Get(tokenKey).(string)
	return t
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pressify/reprint-hub/internal/core/domain"
	"github.com/pressify/reprint-hub/internal/core/ports"
)

const tokenSecretLength = 48

// Clock returns the current time. Services default to time.Now.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}

type tokenIssuer struct {
	repo  ports.TokenRepository
	clock Clock
	log   zerolog.Logger
}

// NewTokenIssuer returns a TokenIssuer backed by repo.
func NewTokenIssuer(repo ports.TokenRepository, clock Clock, log zerolog.Logger) ports.TokenIssuer {
	return &tokenIssuer{repo: repo, clock: clock, log: log}
}

// Issue replaces every token of user with a fresh one. The plaintext secret
// is only available in the returned value.
func (i *tokenIssuer) Issue(ctx context.Context, user *domain.User) (*domain.IssuedToken, error) {
	if !user.IsActive() {
		return nil, domain.ErrAccountDisabled
	}

	secret, tok, err := i.mint(user.ID)
	if err != nil {
		return nil, err
	}
	if err := i.repo.Replace(ctx, tok); err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	i.log.Debug().Int64("user_id", user.ID).Time("expires_at", tok.ExpiresAt).Msg("token issued")
	return &domain.IssuedToken{PlainText: secret, UserID: user.ID, ExpiresAt: tok.ExpiresAt}, nil
}

// Rotate atomically swaps token for a new one owned by the same user.
func (i *tokenIssuer) Rotate(ctx context.Context, token string) (*domain.IssuedToken, error) {
	if token == "" {
		return nil, domain.ErrUnauthenticated
	}

	// Owner is filled in by the repository from the row being replaced.
	secret, next, err := i.mint(0)
	if err != nil {
		return nil, err
	}

	userID, err := i.repo.Rotate(ctx, digest(token), next, i.clock.now())
	if err != nil {
		if errors.Is(err, domain.ErrTokenNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, fmt.Errorf("rotate token: %w", err)
	}

	i.log.Debug().Int64("user_id", userID).Msg("token rotated")
	return &domain.IssuedToken{PlainText: secret, UserID: userID, ExpiresAt: next.ExpiresAt}, nil
}

// Revoke deletes token. Unknown tokens are not an error.
func (i *tokenIssuer) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := i.repo.Delete(ctx, digest(token)); err != nil && !errors.Is(err, domain.ErrTokenNotFound) {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// Resolve returns the owner of a live token.
func (i *tokenIssuer) Resolve(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, domain.ErrUnauthenticated
	}

	now := i.clock.now()
	tok, err := i.repo.Touch(ctx, digest(token), now)
	if err != nil {
		if errors.Is(err, domain.ErrTokenNotFound) {
			return 0, domain.ErrUnauthenticated
		}
		return 0, fmt.Errorf("resolve token: %w", err)
	}
	if tok.Expired(now) {
		return 0, domain.ErrUnauthenticated
	}
	return tok.UserID, nil
}

func (i *tokenIssuer) mint(userID int64) (string, *domain.AccessToken, error) {
	secret, err := randomString(tokenSecretLength)
	if err != nil {
		return "", nil, err
	}
	now := i.clock.now()
	return secret, &domain.AccessToken{
		UserID:    userID,
		Name:      domain.TokenName,
		Digest:    digest(secret),
		Abilities: []string{domain.AbilityAll},
		CreatedAt: now,
		ExpiresAt: now.Add(domain.TokenTTL),
	}, nil
}

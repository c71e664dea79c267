package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/pressify/reprint-hub/internal/core/domain"
	"github.com/pressify/reprint-hub/internal/core/ports"
)

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// equalizeTiming burns one bcrypt comparison so that unknown usernames take
// as long to reject as wrong passwords.
func equalizeTiming(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("reprint-hub-dummy"), bcrypt.DefaultCost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}

// AuthService implements login, logout, refresh and token resolution.
type AuthService struct {
	repo   ports.AuthRepository
	tokens ports.TokenIssuer
	log    zerolog.Logger
}

func NewAuthService(repo ports.AuthRepository, tokens ports.TokenIssuer, log zerolog.Logger) *AuthService {
	return &AuthService{repo: repo, tokens: tokens, log: log}
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*ports.AuthResult, error) {
	if username == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindActiveByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			equalizeTiming(password)
			s.log.Info().Str("username", username).Msg("login rejected")
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.log.Info().Str("username", username).Msg("login rejected")
		return nil, domain.ErrInvalidCredentials
	}

	issued, err := s.tokens.Issue(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	s.log.Info().Int64("user_id", user.ID).Msg("login succeeded")
	return &ports.AuthResult{Token: issued.PlainText, User: user}, nil
}

// Logout revokes token. It succeeds for tokens that are already gone.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.tokens.Revoke(ctx, token)
}

func (s *AuthService) Refresh(ctx context.Context, token string) (*ports.AuthResult, error) {
	issued, err := s.tokens.Rotate(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.FindByID(ctx, issued.UserID)
	if err != nil || !user.IsActive() {
		if revokeErr := s.tokens.Revoke(ctx, issued.PlainText); revokeErr != nil {
			s.log.Warn().Err(revokeErr).Int64("user_id", issued.UserID).Msg("failed to revoke rotated token")
		}
		if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
			return nil, fmt.Errorf("refresh: %w", err)
		}
		return nil, domain.ErrUnauthenticated
	}

	s.log.Info().Int64("user_id", user.ID).Msg("token refreshed")
	return &ports.AuthResult{Token: issued.PlainText, User: user}, nil
}

func (s *AuthService) Me(ctx context.Context, token string) (*domain.User, error) {
	return s.Authenticate(ctx, token)
}

// Validate is the polling form of Me: every failure is reported as invalid.
func (s *AuthService) Validate(ctx context.Context, token string) ports.Validation {
	user, err := s.Authenticate(ctx, token)
	if err != nil {
		if !errors.Is(err, domain.ErrUnauthenticated) {
			s.log.Warn().Err(err).Msg("token validation failed")
		}
		return ports.Validation{Valid: false}
	}
	return ports.Validation{Valid: true, User: user}
}

func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	userID, err := s.tokens.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	if !user.IsActive() {
		return nil, domain.ErrUnauthenticated
	}
	return user, nil
}

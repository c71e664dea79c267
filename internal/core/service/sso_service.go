package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pressify/reprint-hub/internal/core/domain"
	"github.com/pressify/reprint-hub/internal/core/ports"
)

const maxCodeAttempts = 5

type ssoService struct {
	codes ports.SSOCodeRepository
	users ports.AuthRepository
	clock Clock
	log   zerolog.Logger
}

// NewSSOService returns an SSOService implementation.
func NewSSOService(codes ports.SSOCodeRepository, users ports.AuthRepository, clock Clock, log zerolog.Logger) ports.SSOService {
	return &ssoService{codes: codes, users: users, clock: clock, log: log}
}

// GenerateCode sweeps expired codes, then stores a fresh code for user.
func (s *ssoService) GenerateCode(ctx context.Context, user *domain.User) (*ports.IssuedCode, error) {
	if !user.IsActive() {
		return nil, domain.ErrAccountDisabled
	}

	now := s.clock.now()
	if removed, err := s.codes.DeleteExpired(ctx, now); err != nil {
		s.log.Warn().Err(err).Msg("sso code sweep failed")
	} else if removed > 0 {
		s.log.Debug().Int64("removed", removed).Msg("expired sso codes swept")
	}

	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		value, err := randomString(domain.SSOCodeLength)
		if err != nil {
			return nil, err
		}
		code := &domain.SSOCode{
			Code:      value,
			UserID:    user.ID,
			ExpiresAt: now.Add(domain.SSOCodeTTL),
			CreatedAt: now,
		}
		err = s.codes.Insert(ctx, code)
		if errors.Is(err, domain.ErrDuplicateCode) {
			s.log.Warn().Int("attempt", attempt).Msg("sso code collision, regenerating")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("generate sso code: %w", err)
		}

		s.log.Info().Int64("user_id", user.ID).Msg("sso code issued")
		return &ports.IssuedCode{Code: code.Code, ExpiresAt: code.ExpiresAt}, nil
	}
	return nil, fmt.Errorf("generate sso code: %w", domain.ErrDuplicateCode)
}

// RedeemCode consumes code and returns its active owner. The code is spent
// even when the owner turns out to be disabled.
func (s *ssoService) RedeemCode(ctx context.Context, code string) (*domain.User, error) {
	if len(code) != domain.SSOCodeLength {
		return nil, fmt.Errorf("%w: code must be exactly %d characters", domain.ErrValidation, domain.SSOCodeLength)
	}

	consumed, err := s.codes.Consume(ctx, code, s.clock.now())
	if err != nil {
		if errors.Is(err, domain.ErrCodeNotFound) {
			return nil, domain.ErrInvalidCode
		}
		return nil, fmt.Errorf("redeem sso code: %w", err)
	}

	user, err := s.users.FindByID(ctx, consumed.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrAccountDisabled
		}
		return nil, fmt.Errorf("redeem sso code: %w", err)
	}
	if !user.IsActive() {
		s.log.Info().Int64("user_id", user.ID).Msg("sso redemption for disabled account")
		return nil, domain.ErrAccountDisabled
	}

	s.log.Info().Int64("user_id", user.ID).Msg("sso code redeemed")
	return user, nil
}

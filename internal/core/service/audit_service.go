package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pressify/reprint-hub/internal/core/domain"
	"github.com/pressify/reprint-hub/internal/core/ports"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

type auditService struct {
	repo  ports.AuditRepository
	clock Clock
	log   zerolog.Logger
}

// NewAuditService returns an AuditService backed by repo.
func NewAuditService(repo ports.AuditRepository, clock Clock, log zerolog.Logger) ports.AuditService {
	return &auditService{repo: repo, clock: clock, log: log}
}

// Record stamps and persists event. Failures are logged only.
func (s *auditService) Record(ctx context.Context, event domain.AuthEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.clock.now()
	}

	if err := s.repo.Insert(ctx, &event); err != nil {
		s.log.Warn().Err(err).Str("kind", string(event.Kind)).Int64("user_id", event.UserID).Msg("failed to insert audit event")
		return
	}

	s.log.Debug().
		Str("kind", string(event.Kind)).
		Int64("user_id", event.UserID).
		Str("surface", event.Surface).
		Msg("audit event recorded")
}

// History returns the newest events of userID. limit is clamped to
// [1, 100] with 20 used when unset.
func (s *auditService) History(ctx context.Context, userID int64, limit int) ([]domain.AuthEvent, error) {
	switch {
	case limit <= 0:
		limit = defaultHistoryLimit
	case limit > maxHistoryLimit:
		limit = maxHistoryLimit
	}

	events, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("audit history: %w", err)
	}
	return events, nil
}

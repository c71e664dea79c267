package ports

import (
	"context"
	"time"

	"github.com/pressify/reprint-hub/internal/core/domain"
)

// AuditRepository persists the auth audit trail.
type AuditRepository interface {
	Insert(ctx context.Context, event *domain.AuthEvent) error
	// ListByUser returns the newest events of userID first.
	ListByUser(ctx context.Context, userID int64, limit int) ([]domain.AuthEvent, error)
	// DeleteBefore purges events older than cutoff.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// AuditService records auth events. Record never fails the caller: a store
// error is logged and swallowed.
type AuditService interface {
	Record(ctx context.Context, event domain.AuthEvent)
	History(ctx context.Context, userID int64, limit int) ([]domain.AuthEvent, error)
}

package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pressify/reprint-hub/internal/core/domain"
)

type stubAuditRepo struct {
	mu        sync.Mutex
	insertErr error
	listErr   error
	inserted  []domain.AuthEvent
	lastLimit int
}

func (r *stubAuditRepo) Insert(_ context.Context, e *domain.AuthEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	r.inserted = append(r.inserted, *e)
	return nil
}

func (r *stubAuditRepo) ListByUser(_ context.Context, userID int64, limit int) ([]domain.AuthEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastLimit = limit
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []domain.AuthEvent
	for i := len(r.inserted) - 1; i >= 0 && len(out) < limit; i-- {
		if r.inserted[i].UserID == userID {
			out = append(out, r.inserted[i])
		}
	}
	return out, nil
}

func (r *stubAuditRepo) DeleteBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func TestAuditService_Record_StampsTime(t *testing.T) {
	repo := &stubAuditRepo{}
	clock := newFakeClock()
	svc := NewAuditService(repo, clock.Now, zerolog.Nop())

	svc.Record(context.Background(), domain.AuthEvent{Kind: domain.EventLoginSucceeded, UserID: 1})

	if len(repo.inserted) != 1 {
		t.Fatalf("inserted %d events, want 1", len(repo.inserted))
	}
	if !repo.inserted[0].OccurredAt.Equal(clock.Now()) {
		t.Errorf("occurred_at = %v, want %v", repo.inserted[0].OccurredAt, clock.Now())
	}
}

func TestAuditService_Record_KeepsGivenTime(t *testing.T) {
	repo := &stubAuditRepo{}
	svc := NewAuditService(repo, newFakeClock().Now, zerolog.Nop())
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	svc.Record(context.Background(), domain.AuthEvent{Kind: domain.EventLogout, UserID: 1, OccurredAt: at})

	if !repo.inserted[0].OccurredAt.Equal(at) {
		t.Errorf("occurred_at = %v, want %v", repo.inserted[0].OccurredAt, at)
	}
}

func TestAuditService_Record_SwallowsStoreError(t *testing.T) {
	repo := &stubAuditRepo{insertErr: errors.New("mongo down")}
	svc := NewAuditService(repo, nil, zerolog.Nop())

	// Must not panic or block the caller.
	svc.Record(context.Background(), domain.AuthEvent{Kind: domain.EventLoginFailed, Username: "ghost"})

	if len(repo.inserted) != 0 {
		t.Errorf("expected nothing stored, got %d", len(repo.inserted))
	}
}

func TestAuditService_History_ClampsLimit(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{0, 20},
		{-5, 20},
		{7, 7},
		{1000, 100},
	}

	for _, tc := range cases {
		repo := &stubAuditRepo{}
		svc := NewAuditService(repo, nil, zerolog.Nop())
		if _, err := svc.History(context.Background(), 1, tc.in); err != nil {
			t.Fatalf("History(%d): %v", tc.in, err)
		}
		if repo.lastLimit != tc.want {
			t.Errorf("History(%d) limit = %d, want %d", tc.in, repo.lastLimit, tc.want)
		}
	}
}

func TestAuditService_History_NewestFirstForUser(t *testing.T) {
	repo := &stubAuditRepo{}
	clock := newFakeClock()
	svc := NewAuditService(repo, clock.Now, zerolog.Nop())
	ctx := context.Background()

	svc.Record(ctx, domain.AuthEvent{Kind: domain.EventLoginSucceeded, UserID: 1})
	clock.Advance(time.Minute)
	svc.Record(ctx, domain.AuthEvent{Kind: domain.EventLoginSucceeded, UserID: 2})
	clock.Advance(time.Minute)
	svc.Record(ctx, domain.AuthEvent{Kind: domain.EventLogout, UserID: 1})

	events, err := svc.History(ctx, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Kind != domain.EventLogout {
		t.Errorf("first event = %s, want logout", events[0].Kind)
	}
}

func TestAuditService_History_WrapsError(t *testing.T) {
	boom := errors.New("boom")
	svc := NewAuditService(&stubAuditRepo{listErr: boom}, nil, zerolog.Nop())

	if _, err := svc.History(context.Background(), 1, 5); !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped boom", err)
	}
}

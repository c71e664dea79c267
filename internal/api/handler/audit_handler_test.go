package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pressify/reprint-hub/internal/core/domain"
	"github.com/pressify/reprint-hub/internal/core/ports"
)

type recordingAudit struct {
	events    []domain.AuthEvent
	history   []domain.AuthEvent
	historyFn func(userID int64, limit int) error
}

func (a *recordingAudit) Record(_ context.Context, e domain.AuthEvent) {
	a.events = append(a.events, e)
}

func (a *recordingAudit) History(_ context.Context, userID int64, limit int) ([]domain.AuthEvent, error) {
	if a.historyFn != nil {
		if err := a.historyFn(userID, limit); err != nil {
			return nil, err
		}
	}
	return a.history, nil
}

func (a *recordingAudit) kinds() []domain.AuthEventKind {
	out := make([]domain.AuthEventKind, 0, len(a.events))
	for _, e := range a.events {
		out = append(out, e.Kind)
	}
	return out
}

func TestAuditHandler_History(t *testing.T) {
	e := newTestEcho()
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	audit := &recordingAudit{
		history: []domain.AuthEvent{{Kind: domain.EventLoginSucceeded, UserID: 42, OccurredAt: at}},
		historyFn: func(userID int64, limit int) error {
			if userID != 42 || limit != 5 {
				t.Fatalf("unexpected args: user=%d limit=%d", userID, limit)
			}
			return nil
		},
	}

	c, rec := jsonRequest(e, http.MethodGet, "/api/auth/history?limit=5", "")
	c.Request().Header.Set(echo.HeaderAuthorization, "Bearer tok")
	if err := authenticated(alice(), "tok", NewAuditHandler(audit).History)(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	events, ok := decodeBody(t, rec)["events"].([]any)
	if !ok || len(events) != 1 {
		t.Fatalf("unexpected events payload: %s", rec.Body.String())
	}
	if events[0].(map[string]any)["kind"] != "login_succeeded" {
		t.Fatalf("unexpected event: %+v", events[0])
	}
}

func TestAuditHandler_History_EmptyIsArray(t *testing.T) {
	e := newTestEcho()

	c, rec := jsonRequest(e, http.MethodGet, "/api/auth/history", "")
	c.Request().Header.Set(echo.HeaderAuthorization, "Bearer tok")
	if err := authenticated(alice(), "tok", NewAuditHandler(&recordingAudit{}).History)(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if got := rec.Body.String(); got != "{\"events\":[]}\n" {
		t.Fatalf("unexpected body %q", got)
	}
}

func TestAuditHandler_History_BadLimit(t *testing.T) {
	e := newTestEcho()

	c, _ := jsonRequest(e, http.MethodGet, "/api/auth/history?limit=ten", "")
	c.Request().Header.Set(echo.HeaderAuthorization, "Bearer tok")
	err := authenticated(alice(), "tok", NewAuditHandler(&recordingAudit{}).History)(c)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestAuthHandler_RecordsLoginOutcomes(t *testing.T) {
	e := newTestEcho()
	audit := &recordingAudit{}
	stub := &stubAuthService{
		loginFn: func(ctx context.Context, username, password string) (*ports.AuthResult, error) {
			if password != "secret" {
				return nil, domain.ErrInvalidCredentials
			}
			return &ports.AuthResult{Token: "tok", User: alice()}, nil
		},
	}
	h := NewAuthHandler(stub, time.Hour).WithAudit(audit)

	c, _ := jsonRequest(e, http.MethodPost, "/api/auth/login", `{"username":"alice","password":"nope"}`)
	c.Request().RemoteAddr = "203.0.113.9:5000"
	_ = h.Login(c)

	c, _ = jsonRequest(e, http.MethodPost, "/api/auth/login", `{"username":"alice","password":"secret"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if len(audit.events) != 2 {
		t.Fatalf("recorded %v, want 2 events", audit.kinds())
	}
	failed, ok := audit.events[0], audit.events[1]
	if failed.Kind != domain.EventLoginFailed || failed.Username != "alice" || failed.UserID != 0 || failed.IP != "203.0.113.9" {
		t.Fatalf("unexpected failure event: %+v", failed)
	}
	if ok.Kind != domain.EventLoginSucceeded || ok.UserID != 42 {
		t.Fatalf("unexpected success event: %+v", ok)
	}
}

func TestSSOHandler_RecordsRedemptions(t *testing.T) {
	e := newTestEcho()
	audit := &recordingAudit{}

	h, _ := newSSOHandlerForTest(redeemingAs(alice(), nil), newStubSessionStore())
	h.WithAudit(audit)
	c, _ := jsonRequest(e, http.MethodGet, "/sso/callback?code="+validCode, "")
	if err := h.Callback(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	h, _ = newSSOHandlerForTest(redeemingAs(nil, domain.ErrInvalidCode), newStubSessionStore())
	h.WithAudit(audit)
	c, _ = jsonRequest(e, http.MethodGet, "/sso/callback?code="+validCode, "")
	if err := h.Callback(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	want := []domain.AuthEventKind{domain.EventSSORedeemed, domain.EventSSORejected}
	got := audit.kinds()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("recorded %v, want %v", got, want)
	}
	if audit.events[0].Surface != surfaceBrowser || audit.events[0].UserID != 42 {
		t.Fatalf("unexpected redeem event: %+v", audit.events[0])
	}
}

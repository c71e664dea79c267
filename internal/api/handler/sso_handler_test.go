package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/pressify/reprint-hub/internal/core/domain"
	"github.com/pressify/reprint-hub/internal/core/ports"
)

var validCode = strings.Repeat("a", domain.SSOCodeLength)

type stubSSOService struct {
	generateFn func(ctx context.Context, user *domain.User) (*ports.IssuedCode, error)
	redeemFn   func(ctx context.Context, code string) (*domain.User, error)
}

func (s *stubSSOService) GenerateCode(ctx context.Context, user *domain.User) (*ports.IssuedCode, error) {
	return s.generateFn(ctx, user)
}

func (s *stubSSOService) RedeemCode(ctx context.Context, code string) (*domain.User, error) {
	return s.redeemFn(ctx, code)
}

type stubSessionStore struct {
	sessions  map[string]int64
	next      int
	destroyed []string
	createErr error
}

func newStubSessionStore() *stubSessionStore {
	return &stubSessionStore{sessions: make(map[string]int64)}
}

func (s *stubSessionStore) Create(_ context.Context, userID int64) (string, error) {
	if s.createErr != nil {
		return "", s.createErr
	}
	s.next++
	id := fmt.Sprintf("sess-%d", s.next)
	s.sessions[id] = userID
	return id, nil
}

func (s *stubSessionStore) Lookup(_ context.Context, id string) (int64, error) {
	uid, ok := s.sessions[id]
	if !ok {
		return 0, domain.ErrSessionNotFound
	}
	return uid, nil
}

func (s *stubSessionStore) Destroy(_ context.Context, id string) error {
	delete(s.sessions, id)
	s.destroyed = append(s.destroyed, id)
	return nil
}

func redeemingAs(user *domain.User, err error) *stubSSOService {
	return &stubSSOService{
		redeemFn: func(ctx context.Context, code string) (*domain.User, error) {
			if err != nil {
				return nil, err
			}
			return user, nil
		},
	}
}

func newSSOHandlerForTest(sso ports.SSOService, sessions ports.SessionStore) (*SSOHandler, *SessionCookie) {
	cookie := NewSessionCookie("test-secret", time.Hour, false)
	return NewSSOHandler(sso, sessions, cookie, "/dashboard", zerolog.Nop()), cookie
}

func sessionCookieFrom(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == SessionCookieName {
			return ck
		}
	}
	return nil
}

func TestSSOHandler_GenerateCode(t *testing.T) {
	e := newTestEcho()
	expires := time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC)
	sso := &stubSSOService{
		generateFn: func(ctx context.Context, user *domain.User) (*ports.IssuedCode, error) {
			if user.ID != 42 {
				t.Fatalf("expected code for token owner, got %+v", user)
			}
			return &ports.IssuedCode{Code: validCode, ExpiresAt: expires}, nil
		},
	}
	h, _ := newSSOHandlerForTest(sso, newStubSessionStore())

	c, rec := jsonRequest(e, http.MethodPost, "/api/auth/sso-code", "")
	c.Request().Header.Set(echo.HeaderAuthorization, "Bearer tok")
	if err := authenticated(alice(), "tok", h.GenerateCode)(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	resp := decodeBody(t, rec)
	if resp["code"] != validCode || resp["expires_at"] != "2026-03-01T10:05:00Z" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestSSOHandler_GenerateCode_RequiresBearer(t *testing.T) {
	e := newTestEcho()
	h, _ := newSSOHandlerForTest(&stubSSOService{}, newStubSessionStore())

	c, _ := jsonRequest(e, http.MethodPost, "/api/auth/sso-code", "")
	if err := authenticated(alice(), "tok", h.GenerateCode)(c); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestSSOHandler_Exchange_Success(t *testing.T) {
	e := newTestEcho()
	sessions := newStubSessionStore()
	h, cookie := newSSOHandlerForTest(redeemingAs(alice(), nil), sessions)

	c, rec := jsonRequest(e, http.MethodPost, "/api/auth/sso-exchange", `{"code":"`+validCode+`"}`)
	if err := h.Exchange(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	resp := decodeBody(t, rec)
	if resp["message"] != "SSO login successful." {
		t.Fatalf("unexpected message: %v", resp["message"])
	}
	if user := resp["user"].(map[string]any); user["uid"] != "42" {
		t.Fatalf("unexpected user: %+v", user)
	}

	ck := sessionCookieFrom(rec)
	if ck == nil || !ck.HttpOnly {
		t.Fatalf("expected an HttpOnly session cookie, got %+v", ck)
	}

	// The cookie must resolve to the created session.
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(ck)
	sid, err := cookie.Read(e.NewContext(req, httptest.NewRecorder()))
	if err != nil {
		t.Fatalf("read cookie: %v", err)
	}
	if sessions.sessions[sid] != 42 {
		t.Fatalf("session %q not bound to alice", sid)
	}
}

func TestSSOHandler_Exchange_Failures(t *testing.T) {
	cases := []struct {
		name string
		body string
		err  error
		want error
	}{
		{"missing code", `{}`, nil, domain.ErrValidation},
		{"short code", `{"code":"abc"}`, nil, domain.ErrValidation},
		{"invalid code", `{"code":"` + validCode + `"}`, domain.ErrInvalidCode, domain.ErrInvalidCode},
		{"disabled account", `{"code":"` + validCode + `"}`, domain.ErrAccountDisabled, domain.ErrAccountDisabled},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEcho()
			sessions := newStubSessionStore()
			h, _ := newSSOHandlerForTest(redeemingAs(alice(), tc.err), sessions)

			c, rec := jsonRequest(e, http.MethodPost, "/api/auth/sso-exchange", tc.body)
			if err := h.Exchange(c); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if len(sessions.sessions) != 0 || sessionCookieFrom(rec) != nil {
				t.Fatalf("no session may be created on failure")
			}
		})
	}
}

func TestSSOHandler_Callback_Success(t *testing.T) {
	e := newTestEcho()
	h, _ := newSSOHandlerForTest(redeemingAs(alice(), nil), newStubSessionStore())

	req := httptest.NewRequest(http.MethodGet, "/sso/callback?code="+validCode, nil)
	rec := httptest.NewRecorder()
	if err := h.Callback(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusFound || rec.Header().Get(echo.HeaderLocation) != "/dashboard" {
		t.Fatalf("expected redirect to /dashboard, got %d %q", rec.Code, rec.Header().Get(echo.HeaderLocation))
	}
	if sessionCookieFrom(rec) == nil {
		t.Fatalf("expected session cookie")
	}
}

func TestSSOHandler_Callback_ReplacesExistingSession(t *testing.T) {
	e := newTestEcho()
	sessions := newStubSessionStore()
	h, cookie := newSSOHandlerForTest(redeemingAs(alice(), nil), sessions)

	old, _ := sessions.Create(context.Background(), 99)
	setRec := httptest.NewRecorder()
	if err := cookie.Set(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), setRec), old); err != nil {
		t.Fatalf("set cookie: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/sso/callback?code="+validCode, nil)
	req.AddCookie(sessionCookieFrom(setRec))
	if err := h.Callback(e.NewContext(req, httptest.NewRecorder())); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if _, ok := sessions.sessions[old]; ok {
		t.Fatalf("previous session must be destroyed")
	}
}

func TestSSOHandler_Callback_Failures(t *testing.T) {
	cases := []struct {
		name   string
		query  string
		err    error
		status int
		text   string
	}{
		{"missing code", "", nil, http.StatusBadRequest, "Missing SSO code."},
		{"invalid code", "?code=" + validCode, domain.ErrInvalidCode, http.StatusUnauthorized, "SSO code is invalid or expired."},
		{"wrong length", "?code=abc", fmt.Errorf("%w: too short", domain.ErrValidation), http.StatusUnauthorized, "SSO code is invalid or expired."},
		{"disabled account", "?code=" + validCode, domain.ErrAccountDisabled, http.StatusForbidden, "User account is disabled."},
		{"store error", "?code=" + validCode, errors.New("db down"), http.StatusInternalServerError, "Something went wrong."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEcho()
			h, _ := newSSOHandlerForTest(redeemingAs(alice(), tc.err), newStubSessionStore())

			req := httptest.NewRequest(http.MethodGet, "/sso/callback"+tc.query, nil)
			rec := httptest.NewRecorder()
			if err := h.Callback(e.NewContext(req, rec)); err != nil {
				t.Fatalf("handler error: %v", err)
			}

			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
			if !strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMETextHTML) {
				t.Fatalf("expected html, got %q", rec.Header().Get(echo.HeaderContentType))
			}
			if !strings.Contains(rec.Body.String(), tc.text) {
				t.Fatalf("expected %q in body", tc.text)
			}
			if sessionCookieFrom(rec) != nil {
				t.Fatalf("no cookie may be set on failure")
			}
		})
	}
}

func TestSSOHandler_Exchange_SessionStoreError(t *testing.T) {
	e := newTestEcho()
	sessions := newStubSessionStore()
	sessions.createErr = errors.New("redis down")
	h, _ := newSSOHandlerForTest(redeemingAs(alice(), nil), sessions)

	c, rec := jsonRequest(e, http.MethodPost, "/api/auth/sso-exchange", `{"code":"`+validCode+`"}`)
	if err := h.Exchange(c); err == nil {
		t.Fatalf("expected error")
	}
	if sessionCookieFrom(rec) != nil {
		t.Fatalf("no cookie may be set without a session")
	}
}

package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func roundTrip(t *testing.T, writer, reader *SessionCookie, sid string) (string, error) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	if err := writer.Set(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec), sid); err != nil {
		t.Fatalf("set: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(sessionCookieFrom(rec))
	return reader.Read(e.NewContext(req, httptest.NewRecorder()))
}

func TestSessionCookie_RoundTrip(t *testing.T) {
	c := NewSessionCookie("secret", time.Hour, true)

	sid, err := roundTrip(t, c, c, "sess-1")
	if err != nil || sid != "sess-1" {
		t.Fatalf("expected sess-1, got %q (%v)", sid, err)
	}
}

func TestSessionCookie_Attributes(t *testing.T) {
	c := NewSessionCookie("secret", 2*time.Hour, true)
	rec := httptest.NewRecorder()
	if err := c.Set(echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec), "sess-1"); err != nil {
		t.Fatalf("set: %v", err)
	}

	ck := sessionCookieFrom(rec)
	if !ck.HttpOnly || !ck.Secure || ck.SameSite != http.SameSiteLaxMode || ck.Path != "/" {
		t.Fatalf("unexpected cookie attributes: %+v", ck)
	}
	if ck.MaxAge != 7200 {
		t.Fatalf("expected max age 7200, got %d", ck.MaxAge)
	}
}

func TestSessionCookie_WrongSecret(t *testing.T) {
	writer := NewSessionCookie("secret", time.Hour, false)
	reader := NewSessionCookie("other", time.Hour, false)

	if _, err := roundTrip(t, writer, reader, "sess-1"); err == nil {
		t.Fatalf("expected signature failure")
	}
}

func TestSessionCookie_Expired(t *testing.T) {
	issued := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	writer := NewSessionCookie("secret", time.Hour, false)
	writer.now = func() time.Time { return issued }
	reader := NewSessionCookie("secret", time.Hour, false)
	reader.now = func() time.Time { return issued.Add(2 * time.Hour) }

	if _, err := roundTrip(t, writer, reader, "sess-1"); err == nil {
		t.Fatalf("expected expired cookie to be rejected")
	}
}

func TestSessionCookie_Missing(t *testing.T) {
	c := NewSessionCookie("secret", time.Hour, false)
	ctx := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	if _, err := c.Read(ctx); err == nil {
		t.Fatalf("expected error without cookie")
	}
}

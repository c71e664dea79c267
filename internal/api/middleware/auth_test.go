package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/pressify/reprint-hub/internal/core/domain"
)

type stubAuthenticator struct {
	users map[string]*domain.User
	err   error
	calls int
}

func (s *stubAuthenticator) Authenticate(_ context.Context, token string) (*domain.User, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if u, ok := s.users[token]; ok {
		return u, nil
	}
	return nil, domain.ErrUnauthenticated
}

func newAuthContext(header string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	alice := &domain.User{ID: 42, Username: "alice", Status: domain.StatusActive}
	stub := &stubAuthenticator{users: map[string]*domain.User{"tok123": alice}}
	c, rec := newAuthContext("Bearer tok123")

	called := false
	handler := Auth(stub)(func(c echo.Context) error {
		called = true
		if UserFrom(c) != alice {
			t.Fatalf("user not set")
		}
		if TokenFrom(c) != "tok123" {
			t.Fatalf("token not set")
		}
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthMiddleware_SchemeIsCaseInsensitive(t *testing.T) {
	stub := &stubAuthenticator{users: map[string]*domain.User{"tok123": {ID: 1}}}
	c, _ := newAuthContext("bearer tok123")

	err := Auth(stub)(func(c echo.Context) error { return nil })(c)
	if err != nil {
		t.Fatalf("expected lowercase scheme to be accepted, got %v", err)
	}
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	cases := map[string]string{
		"missing header": "",
		"wrong scheme":   "Token tok123",
		"no token":       "Bearer",
		"unknown token":  "Bearer nope",
	}

	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			stub := &stubAuthenticator{users: map[string]*domain.User{"tok123": {ID: 1}}}
			c, _ := newAuthContext(header)

			err := Auth(stub)(func(c echo.Context) error {
				t.Fatalf("should not reach next")
				return nil
			})(c)
			if !errors.Is(err, domain.ErrUnauthenticated) {
				t.Fatalf("expected ErrUnauthenticated, got %v", err)
			}
		})
	}
}

func TestAuthMiddleware_MissingHeaderSkipsLookup(t *testing.T) {
	stub := &stubAuthenticator{}
	c, _ := newAuthContext("")

	_ = Auth(stub)(func(c echo.Context) error { return nil })(c)
	if stub.calls != 0 {
		t.Fatalf("expected no lookup without a token, got %d", stub.calls)
	}
}

func TestAuthLenient_UnknownTokenReachesNext(t *testing.T) {
	stub := &stubAuthenticator{users: map[string]*domain.User{"tok123": {ID: 1}}}
	c, _ := newAuthContext("Bearer revoked")

	called := false
	err := AuthLenient(stub)(func(c echo.Context) error {
		called = true
		if UserFrom(c) != nil {
			t.Fatalf("expected no user for an unknown token")
		}
		if TokenFrom(c) != "revoked" {
			t.Fatalf("expected raw token in context, got %q", TokenFrom(c))
		}
		return nil
	})(c)
	if err != nil || !called {
		t.Fatalf("expected next to run, err=%v called=%v", err, called)
	}
}

func TestAuthLenient_KnownTokenSetsUser(t *testing.T) {
	stub := &stubAuthenticator{users: map[string]*domain.User{"tok123": {ID: 1}}}
	c, _ := newAuthContext("Bearer tok123")

	err := AuthLenient(stub)(func(c echo.Context) error {
		if u := UserFrom(c); u == nil || u.ID != 1 {
			t.Fatalf("expected user 1, got %+v", u)
		}
		return nil
	})(c)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
}

func TestAuthLenient_Rejects(t *testing.T) {
	c, _ := newAuthContext("")
	err := AuthLenient(&stubAuthenticator{})(func(c echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	})(c)
	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}

	boom := errors.New("db down")
	c, _ = newAuthContext("Bearer tok123")
	err = AuthLenient(&stubAuthenticator{err: boom})(func(c echo.Context) error { return nil })(c)
	if !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestAuthMiddleware_StoreErrorPropagates(t *testing.T) {
	boom := errors.New("db down")
	stub := &stubAuthenticator{err: boom}
	c, _ := newAuthContext("Bearer tok123")

	err := Auth(stub)(func(c echo.Context) error { return nil })(c)
	if !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
}

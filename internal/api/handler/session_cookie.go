package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// SessionCookieName carries the signed web session reference.
const SessionCookieName = "reprint_session"

var errNoSessionCookie = errors.New("no session cookie")

type sessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// SessionCookie signs and verifies the browser session cookie. The cookie
// only references a server-side session; it never carries the user identity.
type SessionCookie struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func NewSessionCookie(secret string, ttl time.Duration, secure bool) *SessionCookie {
	return &SessionCookie{secret: []byte(secret), ttl: ttl, secure: secure, now: time.Now}
}

// Set writes a cookie referencing sessionID.
func (s *SessionCookie) Set(c echo.Context, sessionID string) error {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return err
	}

	c.SetCookie(s.cookie(signed, int(s.ttl.Seconds())))
	return nil
}

// Read returns the session id from a valid cookie.
func (s *SessionCookie) Read(c echo.Context) (string, error) {
	ck, err := c.Cookie(SessionCookieName)
	if err != nil || ck.Value == "" {
		return "", errNoSessionCookie
	}

	var claims sessionClaims
	_, err = jwt.ParseWithClaims(ck.Value, &claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	if claims.SessionID == "" {
		return "", errNoSessionCookie
	}
	return claims.SessionID, nil
}

// Clear expires the cookie in the browser.
func (s *SessionCookie) Clear(c echo.Context) {
	c.SetCookie(s.cookie("", -1))
}

func (s *SessionCookie) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

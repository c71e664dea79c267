package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/pressify/reprint-hub/internal/core/domain"
	"github.com/pressify/reprint-hub/internal/core/ports"
)

// WebHandler serves the browser pages behind the SSO session.
type WebHandler struct {
	sessions ports.SessionStore
	users    ports.AuthRepository
	cookie   *SessionCookie
	homePath string
	log      zerolog.Logger
}

func NewWebHandler(sessions ports.SessionStore, users ports.AuthRepository, cookie *SessionCookie, homePath string, log zerolog.Logger) *WebHandler {
	return &WebHandler{sessions: sessions, users: users, cookie: cookie, homePath: homePath, log: log}
}

// Dashboard renders the signed-in home view.
func (h *WebHandler) Dashboard(c echo.Context) error {
	user, err := h.currentUser(c)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthenticated) {
			return renderError(c, http.StatusUnauthorized, "Not signed in", "Open the web view from the desktop app to sign in.")
		}
		return err
	}

	profile := domain.NewProfile(user)
	return renderPage(c, http.StatusOK, dashboardPage, dashboardView{Title: "Dashboard", Profile: profile})
}

// Logout ends the browser session. It succeeds without a session.
func (h *WebHandler) Logout(c echo.Context) error {
	if sessionID, err := h.cookie.Read(c); err == nil {
		if err := h.sessions.Destroy(c.Request().Context(), sessionID); err != nil {
			h.log.Warn().Err(err).Msg("failed to destroy web session")
		}
	}
	h.cookie.Clear(c)
	return c.Redirect(http.StatusSeeOther, h.homePath)
}

// currentUser resolves the cookie to an active user. A stale session for a
// disabled account is destroyed on sight.
func (h *WebHandler) currentUser(c echo.Context) (*domain.User, error) {
	ctx := c.Request().Context()

	sessionID, err := h.cookie.Read(c)
	if err != nil {
		return nil, domain.ErrUnauthenticated
	}

	userID, err := h.sessions.Lookup(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			h.cookie.Clear(c)
			return nil, domain.ErrUnauthenticated
		}
		return nil, err
	}

	user, err := h.users.FindByID(ctx, userID)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}
	if err != nil || !user.IsActive() {
		if err := h.sessions.Destroy(ctx, sessionID); err != nil {
			h.log.Warn().Err(err).Msg("failed to destroy web session")
		}
		h.cookie.Clear(c)
		return nil, domain.ErrUnauthenticated
	}
	return user, nil
}

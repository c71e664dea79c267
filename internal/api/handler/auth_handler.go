package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pressify/reprint-hub/internal/api/metrics"
	"github.com/pressify/reprint-hub/internal/api/middleware"
	"github.com/pressify/reprint-hub/internal/core/domain"
	"github.com/pressify/reprint-hub/internal/core/ports"
)

type AuthHandler struct {
	authService    ports.AuthService
	clientLifetime time.Duration
	audit          ports.AuditService
}

// NewAuthHandler wires the desktop auth endpoints. clientLifetime is
// advertised through /api/client-settings.
func NewAuthHandler(authService ports.AuthService, clientLifetime time.Duration) *AuthHandler {
	return &AuthHandler{authService: authService, clientLifetime: clientLifetime, audit: nopAudit{}}
}

// WithAudit records logins, logouts and refreshes to audit.
func (h *AuthHandler) WithAudit(audit ports.AuditService) *AuthHandler {
	h.audit = audit
	return h
}

type loginRequest struct {
	Username string `json:"username" validate:"required,max=255"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	Token string         `json:"token"`
	User  domain.Profile `json:"user"`
}

type userResponse struct {
	User domain.Profile `json:"user"`
}

type validateResponse struct {
	Valid bool           `json:"valid"`
	User  domain.Profile `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type clientSettingsResponse struct {
	SessionLifetimeDays int `json:"session_lifetime_days"`
}

// Login authenticates a desktop user and returns a bearer token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  authResponse
// @Failure      401   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.authService.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
			record(c, h.audit, domain.AuthEvent{Kind: domain.EventLoginFailed, Username: req.Username, Surface: surfaceAPI})
		} else {
			metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		}
		return err
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	metrics.TokensIssuedTotal.WithLabelValues("login").Inc()
	record(c, h.audit, domain.AuthEvent{Kind: domain.EventLoginSucceeded, UserID: res.User.ID, Username: res.User.Username, Surface: surfaceAPI})
	return c.JSON(http.StatusOK, authResponse{Token: res.Token, User: domain.NewProfile(res.User)})
}

// Logout revokes the presented bearer token. A token that is already gone
// still logs out.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  messageResponse
// @Failure      401  {object}  errorResponse
// @Router       /api/auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.authService.Logout(c.Request().Context(), middleware.TokenFrom(c)); err != nil {
		return err
	}
	if u := middleware.UserFrom(c); u != nil {
		record(c, h.audit, domain.AuthEvent{Kind: domain.EventLogout, UserID: u.ID, Username: u.Username, Surface: surfaceAPI})
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Logged out successfully."})
}

// Refresh rotates the presented bearer token.
//
// @Summary      Refresh token
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  authResponse
// @Failure      401  {object}  errorResponse
// @Router       /api/auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	res, err := h.authService.Refresh(c.Request().Context(), middleware.TokenFrom(c))
	if err != nil {
		return err
	}

	metrics.TokensIssuedTotal.WithLabelValues("refresh").Inc()
	record(c, h.audit, domain.AuthEvent{Kind: domain.EventTokenRefreshed, UserID: res.User.ID, Username: res.User.Username, Surface: surfaceAPI})
	return c.JSON(http.StatusOK, authResponse{Token: res.Token, User: domain.NewProfile(res.User)})
}

// Me returns the profile of the bearer token owner.
//
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  userResponse
// @Failure      401  {object}  errorResponse
// @Router       /api/auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, userResponse{User: domain.NewProfile(middleware.UserFrom(c))})
}

// Validate reports whether the presented token is still usable.
//
// @Summary      Validate token
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  validateResponse
// @Failure      401  {object}  errorResponse
// @Router       /api/auth/validate [post]
func (h *AuthHandler) Validate(c echo.Context) error {
	v := h.authService.Validate(c.Request().Context(), middleware.BearerToken(c))
	if !v.Valid {
		metrics.TokenValidationsTotal.WithLabelValues("false").Inc()
		return domain.ErrUnauthenticated
	}

	metrics.TokenValidationsTotal.WithLabelValues("true").Inc()
	return c.JSON(http.StatusOK, validateResponse{Valid: true, User: domain.NewProfile(v.User)})
}

// ClientSettings exposes the settings the desktop client caches locally.
//
// @Summary      Desktop client settings
// @Tags         auth
// @Produce      json
// @Success      200  {object}  clientSettingsResponse
// @Router       /api/client-settings [get]
func (h *AuthHandler) ClientSettings(c echo.Context) error {
	days := int(h.clientLifetime / (24 * time.Hour))
	if days < 1 {
		days = 1
	}
	return c.JSON(http.StatusOK, clientSettingsResponse{SessionLifetimeDays: days})
}

// bindAndValidate decodes the JSON body into req and runs struct validation.
// Both failures are reported as domain.ErrValidation.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return validationError("The request body must be valid JSON.")
	}
	if err := c.Validate(req); err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}

func validationError(msg string) error {
	return fmt.Errorf("%w: %s", domain.ErrValidation, msg)
}

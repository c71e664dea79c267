package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/pressify/reprint-hub/internal/api/metrics"
	"github.com/pressify/reprint-hub/internal/api/middleware"
	"github.com/pressify/reprint-hub/internal/core/domain"
	"github.com/pressify/reprint-hub/internal/core/ports"
)

const (
	surfaceAPI     = "api"
	surfaceBrowser = "browser"
)

// SSOHandler moves an authenticated desktop identity into a browser session.
type SSOHandler struct {
	sso      ports.SSOService
	sessions ports.SessionStore
	cookie   *SessionCookie
	homePath string
	log      zerolog.Logger
	audit    ports.AuditService
}

func NewSSOHandler(sso ports.SSOService, sessions ports.SessionStore, cookie *SessionCookie, homePath string, log zerolog.Logger) *SSOHandler {
	return &SSOHandler{sso: sso, sessions: sessions, cookie: cookie, homePath: homePath, log: log, audit: nopAudit{}}
}

// WithAudit records code issuance and redemption to audit.
func (h *SSOHandler) WithAudit(audit ports.AuditService) *SSOHandler {
	h.audit = audit
	return h
}

type ssoCodeResponse struct {
	Code      string `json:"code"`
	ExpiresAt string `json:"expires_at"`
}

type ssoExchangeRequest struct {
	Code string `json:"code" validate:"required,len=64"`
}

type ssoExchangeResponse struct {
	Message string         `json:"message"`
	User    domain.Profile `json:"user"`
}

// GenerateCode issues a one-time code for the bearer token owner.
//
// @Summary      Generate SSO code
// @Tags         sso
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  ssoCodeResponse
// @Failure      401  {object}  errorResponse
// @Router       /api/auth/sso-code [post]
func (h *SSOHandler) GenerateCode(c echo.Context) error {
	user := middleware.UserFrom(c)
	issued, err := h.sso.GenerateCode(c.Request().Context(), user)
	if err != nil {
		return err
	}

	metrics.SSOCodesIssuedTotal.Inc()
	record(c, h.audit, domain.AuthEvent{Kind: domain.EventSSOCodeIssued, UserID: user.ID, Username: user.Username, Surface: surfaceAPI})
	return c.JSON(http.StatusOK, ssoCodeResponse{
		Code:      issued.Code,
		ExpiresAt: issued.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Exchange redeems a one-time code and starts a web session.
//
// @Summary      Exchange SSO code
// @Tags         sso
// @Accept       json
// @Produce      json
// @Param        body  body      ssoExchangeRequest  true  "One-time code"
// @Success      200   {object}  ssoExchangeResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /api/auth/sso-exchange [post]
func (h *SSOHandler) Exchange(c echo.Context) error {
	var req ssoExchangeRequest
	if err := bindAndValidate(c, &req); err != nil {
		metrics.SSORedemptionsTotal.WithLabelValues(surfaceAPI, "validation").Inc()
		return err
	}

	user, err := h.redeem(c, req.Code, surfaceAPI)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ssoExchangeResponse{Message: "SSO login successful.", User: domain.NewProfile(user)})
}

// Callback is the browser landing URL opened by the desktop app.
//
// @Summary      SSO browser callback
// @Tags         sso
// @Produce      html
// @Param        code  query  string  true  "One-time code"
// @Success      302
// @Failure      400
// @Failure      401
// @Failure      403
// @Router       /sso/callback [get]
func (h *SSOHandler) Callback(c echo.Context) error {
	code := c.QueryParam("code")
	if code == "" {
		metrics.SSORedemptionsTotal.WithLabelValues(surfaceBrowser, "validation").Inc()
		return renderError(c, http.StatusBadRequest, "Sign-in failed", "Missing SSO code.")
	}

	if _, err := h.redeem(c, code, surfaceBrowser); err != nil {
		switch {
		case errors.Is(err, domain.ErrAccountDisabled):
			return renderError(c, http.StatusForbidden, "Account disabled", "User account is disabled.")
		case errors.Is(err, domain.ErrInvalidCode), errors.Is(err, domain.ErrValidation):
			return renderError(c, http.StatusUnauthorized, "Sign-in failed", "SSO code is invalid or expired.")
		default:
			h.log.Error().Err(err).Str("path", c.Path()).Msg("sso callback failed")
			return renderError(c, http.StatusInternalServerError, "Sign-in failed", "Something went wrong. Please try again.")
		}
	}
	return c.Redirect(http.StatusFound, h.homePath)
}

// redeem spends code and logs its owner into a fresh web session, replacing
// any session the browser already had.
func (h *SSOHandler) redeem(c echo.Context, code, surface string) (*domain.User, error) {
	ctx := c.Request().Context()

	user, err := h.sso.RedeemCode(ctx, code)
	if err != nil {
		outcome := redemptionOutcome(err)
		metrics.SSORedemptionsTotal.WithLabelValues(surface, outcome).Inc()
		if outcome != "error" {
			record(c, h.audit, domain.AuthEvent{Kind: domain.EventSSORejected, Surface: surface})
		}
		return nil, err
	}

	h.dropExistingSession(ctx, c)

	sessionID, err := h.sessions.Create(ctx, user.ID)
	if err != nil {
		metrics.SSORedemptionsTotal.WithLabelValues(surface, "error").Inc()
		return nil, err
	}
	if err := h.cookie.Set(c, sessionID); err != nil {
		metrics.SSORedemptionsTotal.WithLabelValues(surface, "error").Inc()
		return nil, err
	}

	metrics.SSORedemptionsTotal.WithLabelValues(surface, "success").Inc()
	record(c, h.audit, domain.AuthEvent{Kind: domain.EventSSORedeemed, UserID: user.ID, Username: user.Username, Surface: surface})
	h.log.Info().Int64("user_id", user.ID).Str("surface", surface).Msg("web session started")
	return user, nil
}

func (h *SSOHandler) dropExistingSession(ctx context.Context, c echo.Context) {
	prev, err := h.cookie.Read(c)
	if err != nil {
		return
	}
	if err := h.sessions.Destroy(ctx, prev); err != nil {
		h.log.Warn().Err(err).Msg("failed to drop previous web session")
	}
}

func redemptionOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidCode):
		return "invalid_code"
	case errors.Is(err, domain.ErrAccountDisabled):
		return "account_disabled"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	default:
		return "error"
	}
}

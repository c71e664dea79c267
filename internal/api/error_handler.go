package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/pressify/reprint-hub/internal/core/domain"
)

// Wire error codes shared with the desktop client.
const (
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeRateLimited        = "RATE_LIMITED"
	CodeInvalidCode        = "INVALID_CODE"
	CodeAccountDisabled    = "ACCOUNT_DISABLED"
	CodeValidation         = "VALIDATION_ERROR"
	CodeNotFound           = "NOT_FOUND"
	CodeInternal           = "INTERNAL_ERROR"
)

// errorResponse is the canonical error envelope for all API errors. Bearer
// failures omit the code and carry only the message.
type errorResponse struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their HTTP status and wire code.
//   - Sets Retry-After on rate limited responses.
//   - Logs unexpected errors internally without leaking details to the client.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	var rl *domain.RateLimitedError
	if errors.As(err, &rl) {
		secs := rl.RetryAfterSeconds()
		c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
		return http.StatusTooManyRequests, errorResponse{
			Error:   CodeRateLimited,
			Message: fmt.Sprintf("Too many login attempts. Please try again in %d seconds.", secs),
		}
	}

	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorResponse{Error: CodeInvalidCredentials, Message: "Invalid username or password."}
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, errorResponse{Message: "Unauthenticated."}
	case errors.Is(err, domain.ErrInvalidCode):
		return http.StatusUnauthorized, errorResponse{Error: CodeInvalidCode, Message: "SSO code is invalid or expired."}
	case errors.Is(err, domain.ErrAccountDisabled):
		return http.StatusForbidden, errorResponse{Error: CodeAccountDisabled, Message: "User account is disabled."}
	case errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity, errorResponse{Error: CodeValidation, Message: validationMessage(err)}
	}

	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Error: codeForStatus(he.Code), Message: fmt.Sprintf("%v", he.Message)}
	}

	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, errorResponse{Error: CodeInternal, Message: "Internal server error."}
}

// validationMessage strips the sentinel prefix so clients get the field detail.
func validationMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), domain.ErrValidation.Error()+": ")
	if msg == "" || msg == domain.ErrValidation.Error() {
		return "The given data was invalid."
	}
	return msg
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusUnauthorized:
		return ""
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return CodeValidation
	case http.StatusTooManyRequests:
		return CodeRateLimited
	}
	if status >= http.StatusInternalServerError {
		return CodeInternal
	}
	return strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_"))
}

package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/pressify/reprint-hub/internal/api/metrics"
	"github.com/pressify/reprint-hub/internal/core/domain"
	"github.com/pressify/reprint-hub/internal/core/ports"
)

// Throttle limits requests per client IP using limiter. Limiter failures are
// logged and the request is let through.
func Throttle(limiter ports.RateLimiter, now func() time.Time, log zerolog.Logger) echo.MiddlewareFunc {
	if now == nil {
		now = time.Now
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			res, err := limiter.Allow(c.Request().Context(), c.RealIP(), now())
			if err != nil {
				log.Warn().Err(err).Str("path", c.Path()).Msg("rate limiter unavailable")
				return next(c)
			}
			if !res.Allowed {
				metrics.RequestsThrottledTotal.WithLabelValues(c.Path()).Inc()
				return &domain.RateLimitedError{RetryAfter: res.RetryAfter}
			}
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			return next(c)
		}
	}
}

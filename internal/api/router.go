package api

import (
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/pressify/reprint-hub/docs"
	"github.com/pressify/reprint-hub/internal/api/handler"
	"github.com/pressify/reprint-hub/internal/api/middleware"
	"github.com/pressify/reprint-hub/internal/core/ports"
)

// Deps are the collaborators the HTTP surface needs.
type Deps struct {
	Log          zerolog.Logger
	Auth         ports.AuthService
	SSO          ports.SSOService
	Users        ports.AuthRepository
	Sessions     ports.SessionStore
	LoginLimiter ports.RateLimiter
	// Audit is optional. Without it no auth events are recorded and the
	// history endpoint is not mounted.
	Audit        ports.AuditService
	Checks       map[string]handler.DependencyCheck

	SessionSecret  string
	SecureCookies  bool
	WebLifetime    time.Duration
	ClientLifetime time.Duration
	HomePath       string
	// Now overrides the clock used by the login throttle.
	Now func() time.Time
	// Registry replaces the default Prometheus registry for HTTP metrics.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(promMiddlewareConfig(d.Registry)))

	// --- Dependencies ---
	cookie := handler.NewSessionCookie(d.SessionSecret, d.WebLifetime, d.SecureCookies)
	authHandler := handler.NewAuthHandler(d.Auth, d.ClientLifetime)
	ssoHandler := handler.NewSSOHandler(d.SSO, d.Sessions, cookie, d.HomePath, d.Log)
	webHandler := handler.NewWebHandler(d.Sessions, d.Users, cookie, d.HomePath, d.Log)
	bearer := middleware.Auth(d.Auth)
	if d.Audit != nil {
		authHandler.WithAudit(d.Audit)
		ssoHandler.WithAudit(d.Audit)
	}

	// --- Desktop API ---
	api := e.Group("/api")
	api.GET("/client-settings", authHandler.ClientSettings)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login, middleware.Throttle(d.LoginLimiter, d.Now, d.Log))
	auth.POST("/validate", authHandler.Validate)
	auth.POST("/sso-exchange", ssoHandler.Exchange)
	auth.POST("/logout", authHandler.Logout, middleware.AuthLenient(d.Auth))
	auth.POST("/refresh", authHandler.Refresh, bearer)
	auth.GET("/me", authHandler.Me, bearer)
	auth.POST("/sso-code", ssoHandler.GenerateCode, bearer)
	if d.Audit != nil {
		auth.GET("/history", handler.NewAuditHandler(d.Audit).History, bearer)
	}

	// --- Browser ---
	e.GET("/sso/callback", ssoHandler.Callback)
	e.GET("/dashboard", webHandler.Dashboard)
	e.POST("/logout", webHandler.Logout)

	// --- Ops (no auth required) ---
	e.GET("/health", handler.NewHealthHandler().Liveness)
	e.GET("/health/ready", handler.NewReadinessHandler(d.Checks).Readiness)
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(promHandlerConfig(d.Registry)))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// requestLogger writes one zerolog line per request. Only the matched route
// is logged so one-time codes in the query string never reach the logs.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogStatus:    true,
		LogMethod:    true,
		LogRoutePath: true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= 500 {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("route", v.RoutePath).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}

func promMiddlewareConfig(reg *prometheus.Registry) echoprometheus.MiddlewareConfig {
	cfg := echoprometheus.MiddlewareConfig{Subsystem: "reprint"}
	if reg != nil {
		cfg.Registerer = reg
	}
	return cfg
}

func promHandlerConfig(reg *prometheus.Registry) echoprometheus.HandlerConfig {
	var cfg echoprometheus.HandlerConfig
	if reg != nil {
		cfg.Gatherer = reg
	}
	return cfg
}

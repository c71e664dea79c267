// Package metrics defines the custom Prometheus metrics for the reprint hub
// auth surface. It is the single source of truth for metric names, labels,
// and help strings.
//
// All metrics register with the default Prometheus registry at init time via
// promauto; /metrics is served by the echoprometheus handler.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "reprint"

// ── Desktop auth ─────────────────────────────────────────────────────────────

// LoginAttemptsTotal counts login attempts that reached the handler.
// Label:
//   - result: "success", "invalid_credentials" or "error"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of desktop login attempts, by result.",
	},
	[]string{"result"},
)

// RequestsThrottledTotal counts requests rejected by the rate limiter.
// Label:
//   - route: the matched route path (e.g. "/api/auth/login")
var RequestsThrottledTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "requests_throttled_total",
		Help:      "Total number of requests rejected by the rate limiter, by route.",
	},
	[]string{"route"},
)

// TokensIssuedTotal counts bearer tokens handed to clients.
// Label:
//   - reason: "login" or "refresh"
var TokensIssuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_issued_total",
		Help:      "Total number of bearer tokens issued, by reason.",
	},
	[]string{"reason"},
)

// TokenValidationsTotal counts validate calls.
// Label:
//   - valid: "true" or "false"
var TokenValidationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_validations_total",
		Help:      "Total number of token validation checks, by outcome.",
	},
	[]string{"valid"},
)

// ── SSO hand-off ─────────────────────────────────────────────────────────────

// SSOCodesIssuedTotal counts one-time codes generated for desktop users.
var SSOCodesIssuedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sso_codes_issued_total",
		Help:      "Total number of one-time SSO codes issued.",
	},
)

// SSORedemptionsTotal counts one-time code redemptions.
// Labels:
//   - surface: "api" (JSON exchange) or "browser" (callback)
//   - outcome: "success", "invalid_code", "account_disabled", "validation" or "error"
var SSORedemptionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sso_redemptions_total",
		Help:      "Total number of SSO code redemptions, by surface and outcome.",
	},
	[]string{"surface", "outcome"},
)

package domain

import "time"

// AuthEventKind names what happened in an auth audit entry.
type AuthEventKind string

const (
	EventLoginSucceeded AuthEventKind = "login_succeeded"
	EventLoginFailed    AuthEventKind = "login_failed"
	EventLogout         AuthEventKind = "logout"
	EventTokenRefreshed AuthEventKind = "token_refreshed"
	EventSSOCodeIssued  AuthEventKind = "sso_code_issued"
	EventSSORedeemed    AuthEventKind = "sso_redeemed"
	EventSSORejected    AuthEventKind = "sso_rejected"
)

// AuthEvent is one entry of the auth audit trail. UserID is zero when the
// actor could not be identified, e.g. a failed login or a rejected code.
// Tokens and codes are never recorded.
type AuthEvent struct {
	Kind       AuthEventKind `json:"kind"`
	UserID     int64         `json:"user_id,omitempty"`
	Username   string        `json:"username,omitempty"`
	Surface    string        `json:"surface,omitempty"`
	IP         string        `json:"ip,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

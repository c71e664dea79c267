package domain

import "time"

const (
	// SSOCodeLength is the exact length of a one-time code.
	SSOCodeLength = 64
	// SSOCodeTTL is how long a one-time code stays redeemable.
	SSOCodeTTL = 5 * time.Minute
)

// SSOCode is a single-use credential that hands a desktop identity over to a
// browser session.
type SSOCode struct {
	Code      string
	UserID    int64
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// Valid reports whether the code can still be redeemed at now.
func (c *SSOCode) Valid(now time.Time) bool {
	return !c.Used && now.Before(c.ExpiresAt)
}

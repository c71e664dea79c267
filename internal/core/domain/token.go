package domain

import "time"

const (
	// TokenTTL is the fixed lifetime of a bearer token.
	TokenTTL = 7 * 24 * time.Hour
	// TokenName labels tokens minted for the desktop client.
	TokenName = "desktop-app"
	// AbilityAll is the unrestricted ability set granted to every token.
	AbilityAll = "*"
)

// AccessToken is the stored form of a bearer credential. Only the digest of
// the secret is persisted.
type AccessToken struct {
	ID         string
	UserID     int64
	Name       string
	Digest     string
	Abilities  []string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	LastUsedAt *time.Time
}

// Expired reports whether the token is past its expiry at now.
func (t *AccessToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// IssuedToken is returned exactly once when a token is minted.
type IssuedToken struct {
	PlainText string
	UserID    int64
	ExpiresAt time.Time
}

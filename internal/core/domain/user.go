package domain

import (
	"strconv"
	"strings"
	"time"
)

// User status values as stored by the admin tooling.
const (
	StatusActive   = "Active"
	StatusDisabled = "Disabled"
)

// Role is the opaque role reference carried by a user.
type Role struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// User models an operator of the reprint tracker.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name,omitempty"`
	LastName     string    `json:"last_name,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Status       string    `json:"status"`
	Role         *Role     `json:"role,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsActive reports whether the user may hold tokens or sessions.
func (u *User) IsActive() bool {
	return u != nil && u.Status == StatusActive
}

// DisplayName is "first last" trimmed, falling back to the username.
func (u *User) DisplayName() string {
	full := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if full != "" {
		return full
	}
	return u.Username
}

// Profile is the user view shared by the desktop client and the web surface.
// uid, username, name, role and role_id are consumed by the desktop app and
// must keep their exact semantics.
type Profile struct {
	UID      string  `json:"uid"`
	Username string  `json:"username"`
	Name     string  `json:"name"`
	Role     *string `json:"role"`
	RoleID   string  `json:"role_id"`

	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     string    `json:"phone"`
	RoleName  *string   `json:"role_name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// NewProfile builds the profile view for u. A user without a role gets a null
// role and an empty role_id.
func NewProfile(u *User) Profile {
	p := Profile{
		UID:       strconv.FormatInt(u.ID, 10),
		Username:  u.Username,
		Name:      u.DisplayName(),
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
		Status:    u.Status,
		CreatedAt: u.CreatedAt,
	}
	if u.Role != nil {
		lower := strings.ToLower(u.Role.Name)
		name := u.Role.Name
		p.Role = &lower
		p.RoleName = &name
		p.RoleID = strconv.FormatInt(u.Role.ID, 10)
	}
	return p
}

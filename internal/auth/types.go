package auth

import (
	"strings"
	"time"
)

// User is a stored credential record. PasswordHash never leaves the auth and
// storage packages.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Active       bool      `json:"active"`
	ClientID     string    `json:"client_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Principal is the session-facing view of an authenticated identity. It is
// derived from a User (or a fallback identity) and carries no secret
// material.
type Principal struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
	ClientID string `json:"client_id,omitempty"`
}

// PrincipalFromUser projects the stored record into its session view.
func PrincipalFromUser(u *User) Principal {
	return Principal{
		ID:       u.ID,
		Email:    u.Email,
		Name:     u.Name,
		Role:     u.Role,
		ClientID: u.ClientID,
	}
}

// RefreshToken is the persisted half of an opaque refresh credential. Only
// the sha256 of the client-held secret is stored.
type RefreshToken struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	TokenHash string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	Revoked   bool      `json:"revoked"`
}

// TokenPair is what a successful login or refresh hands to the client.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// UserUpdate carries optional field changes for a stored user. Nil fields
// are left untouched.
type UserUpdate struct {
	Email        *string
	Name         *string
	PasswordHash *string
	Role         *Role
	Active       *bool
	ClientID     *string
}

// NormalizeEmail fixes the lookup-key policy: email comparison is
// case-insensitive, with surrounding whitespace ignored, at every boundary.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

package auth

import (
	"fmt"
	"strings"
)

// Role is the canonical internal role representation. The closed set below is
// the whole vocabulary; handlers and templates never see any other spelling.
type Role string

const (
	// RoleAdmin passes every gate regardless of declared requirements.
	RoleAdmin Role = "admin"
	// RoleGeneral is the default back-office account.
	RoleGeneral Role = "general"
	// RoleDataEntry operates the insight and catalog intake screens.
	RoleDataEntry Role = "data_entry"
	// RoleClientUser is scoped to a single owning client.
	RoleClientUser Role = "client_user"
)

// Roles lists every valid role, in display order.
var Roles = []Role{RoleAdmin, RoleGeneral, RoleDataEntry, RoleClientUser}

// ParseRole folds any stored or submitted spelling (legacy rows carry
// upper-case values) into the canonical form.
func ParseRole(s string) (Role, error) {
	r := Role(strings.TrimSpace(strings.ToLower(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, s)
	}
	return r, nil
}

// Valid reports whether r belongs to the closed role set.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleGeneral, RoleDataEntry, RoleClientUser:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// Storage returns the upper-case spelling persisted in the users table. The
// mapping lives only here and in RoleFromStorage; nothing else case-folds
// roles.
func (r Role) Storage() string { return strings.ToUpper(string(r)) }

// RoleFromStorage converts a persisted role column value to canonical form.
func RoleFromStorage(s string) (Role, error) {
	return ParseRole(s)
}

package auth

import (
	"crypto/subtle"
	"os"
	"strings"
)

// FallbackIdentity is a break-glass login configured outside the credential
// store. Fallbacks bypass per-user deactivation, so they are intended for
// bootstrap and recovery only; every use is audited by the login flow.
type FallbackIdentity struct {
	Email    string
	Password string
	Name     string
	Role     Role
}

// Matches compares the submitted pair against the configured one in constant
// time. Email comparison follows the same normalization as stored lookups.
func (f FallbackIdentity) Matches(email, password string) bool {
	if f.Email == "" || f.Password == "" {
		return false
	}
	emailOK := subtle.ConstantTimeCompare([]byte(NormalizeEmail(f.Email)), []byte(NormalizeEmail(email))) == 1
	passOK := subtle.ConstantTimeCompare([]byte(f.Password), []byte(password)) == 1
	return emailOK && passOK
}

// FallbacksFromEnv reads the two configured fallback identities at process
// start. A pair with either half missing is skipped.
func FallbacksFromEnv() []FallbackIdentity {
	var out []FallbackIdentity
	if f, ok := fallbackFromEnv("MEDIALENS_FALLBACK_ADMIN_EMAIL", "MEDIALENS_FALLBACK_ADMIN_PASSWORD",
		"Recovery administrator", RoleAdmin); ok {
		out = append(out, f)
	}
	if f, ok := fallbackFromEnv("MEDIALENS_FALLBACK_OPERATOR_EMAIL", "MEDIALENS_FALLBACK_OPERATOR_PASSWORD",
		"Recovery operator", RoleDataEntry); ok {
		out = append(out, f)
	}
	return out
}

func fallbackFromEnv(emailVar, passwordVar, name string, role Role) (FallbackIdentity, bool) {
	email := strings.TrimSpace(os.Getenv(emailVar))
	password := os.Getenv(passwordVar)
	if email == "" || password == "" {
		return FallbackIdentity{}, false
	}
	return FallbackIdentity{Email: email, Password: password, Name: name, Role: role}, true
}

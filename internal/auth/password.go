package auth

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2 parameters. Changing any of these invalidates nothing already
// stored: verification always re-derives with the parameters below, so they
// are part of the storage format's contract.
const (
	saltLength = 32
	keyLength  = 64
	iterations = 100_000
)

// HashPassword derives a storable secret from a plaintext password. The
// result is hex(salt):hex(key); two calls with the same password produce
// different secrets because the salt is drawn fresh each time.
func HashPassword(password string) (string, error) {
	if len(password) == 0 {
		return "", errors.New("password is empty")
	}
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := pbkdf2.Key([]byte(password), salt, iterations, keyLength, sha512.New)
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(key), nil
}

// VerifyPassword reports whether password matches the stored secret. A
// stored value without the salt separator is compared as plaintext — strictly
// a migration path for pre-hashing rows; see IsLegacySecret. Malformed
// secrets (bad hex, empty halves) verify false, never fault.
func VerifyPassword(stored, password string) bool {
	if stored == "" || password == "" {
		return false
	}
	salt, expected, ok := splitSecret(stored)
	if !ok {
		// Legacy plaintext row.
		if !strings.Contains(stored, ":") {
			return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1
		}
		return false
	}
	key := pbkdf2.Key([]byte(password), salt, iterations, keyLength, sha512.New)
	return subtle.ConstantTimeCompare(key, expected) == 1
}

// IsLegacySecret reports whether stored is a pre-migration plaintext value.
// Callers use it to surface remaining rows that still need rehashing.
func IsLegacySecret(stored string) bool {
	return stored != "" && !strings.Contains(stored, ":")
}

func splitSecret(stored string) (salt, key []byte, ok bool) {
	idx := strings.IndexByte(stored, ':')
	if idx <= 0 || idx == len(stored)-1 {
		return nil, nil, false
	}
	salt, err := hex.DecodeString(stored[:idx])
	if err != nil || len(salt) == 0 {
		return nil, nil, false
	}
	key, err = hex.DecodeString(stored[idx+1:])
	if err != nil || len(key) == 0 {
		return nil, nil, false
	}
	return salt, key, true
}

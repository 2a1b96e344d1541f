package auth

import (
	"strings"
	"testing"
)

func TestHashAndVerifyRoundTrip(t *testing.T) {
	stored, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !strings.Contains(stored, ":") {
		t.Fatalf("expected salt:key format, got %q", stored)
	}
	if !VerifyPassword(stored, "s3cret-pass") {
		t.Fatal("correct password did not verify")
	}
	if VerifyPassword(stored, "s3cret-pass2") {
		t.Fatal("wrong password verified")
	}
	if VerifyPassword(stored, "") {
		t.Fatal("empty password verified")
	}
}

func TestHashProducesDistinctSalts(t *testing.T) {
	first, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	second, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if first == second {
		t.Fatal("two hashes of the same password are identical; salt is not random")
	}
	if !VerifyPassword(first, "same-password") || !VerifyPassword(second, "same-password") {
		t.Fatal("both salted secrets must verify the original password")
	}
}

func TestLegacyPlaintextSecret(t *testing.T) {
	if !VerifyPassword("oldplain", "oldplain") {
		t.Fatal("legacy plaintext secret must verify by equality")
	}
	if VerifyPassword("oldplain", "other") {
		t.Fatal("legacy plaintext secret verified a different password")
	}
	if !IsLegacySecret("oldplain") {
		t.Fatal("expected legacy detection for separator-free secret")
	}
	hashed, _ := HashPassword("x")
	if IsLegacySecret(hashed) {
		t.Fatal("hashed secret misdetected as legacy")
	}
}

func TestMalformedStoredSecretsFailClosed(t *testing.T) {
	cases := []string{
		":",
		"abc:",
		":def",
		"zz-not-hex:deadbeef",
		"deadbeef:zz-not-hex",
	}
	for _, stored := range cases {
		if VerifyPassword(stored, "anything") {
			t.Fatalf("malformed secret %q verified", stored)
		}
	}
}

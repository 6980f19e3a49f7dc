package security

import (
	"errors"
	"testing"
	"time"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPassword(hash, "s3cret!") {
		t.Fatalf("expected password to match")
	}
	if CheckPassword(hash, "wrong") {
		t.Fatalf("expected mismatch")
	}
	if _, err := HashPassword(""); err == nil {
		t.Fatalf("expected error for empty password")
	}
}

func TestGenerateRandomString(t *testing.T) {
	code, err := GenerateRandomString(6)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("length = %d", len(code))
	}
	for _, r := range code {
		if !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') {
			t.Fatalf("unexpected rune %q in %s", r, code)
		}
	}
}

func TestTokenScopes(t *testing.T) {
	token, err := GenerateUserToken("secret", 42, time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := ParseUserToken("secret", token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != 42 {
		t.Fatalf("user id = %d", claims.UserID)
	}
	if _, err := ParseAdminToken("secret", token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("user token accepted as admin: %v", err)
	}
	if _, err := ParseUserToken("other", token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("wrong secret accepted: %v", err)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	token, err := GenerateAdminToken("secret", 7, time.Nanosecond)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	time.Sleep(1100 * time.Millisecond)
	if _, err := ParseAdminToken("secret", token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token accepted: %v", err)
	}
}

func TestTOTP(t *testing.T) {
	secret, url, err := GenerateTOTPSecret("GrowTrade", "admin@example.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if secret == "" || url == "" {
		t.Fatalf("empty secret or url")
	}
	code, err := TOTPCode(secret, time.Now())
	if err != nil {
		t.Fatalf("code: %v", err)
	}
	if !ValidateTOTP(secret, code) {
		t.Fatalf("expected code to validate")
	}
	if ValidateTOTP(secret, "000000") && code != "000000" {
		t.Fatalf("unexpected validation of wrong code")
	}
}

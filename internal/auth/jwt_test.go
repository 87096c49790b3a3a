package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestFileTokenRoundTrip(t *testing.T) {
	tok, err := GenerateFileToken("s3cret", "abc", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := ValidateFileToken("s3cret", "abc", tok)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Key != "abc" {
		t.Fatalf("key = %q", claims.Key)
	}
	if claims.ExpiresAt == nil {
		t.Fatal("expected expiry")
	}
}

func TestFileTokenWrongKey(t *testing.T) {
	tok, _ := GenerateFileToken("s3cret", "abc", time.Hour)
	if _, err := ValidateFileToken("s3cret", "other", tok); !errors.Is(err, ErrKeyMismatch) {
		t.Fatalf("expected ErrKeyMismatch, got %v", err)
	}
}

func TestFileTokenWrongSecret(t *testing.T) {
	tok, _ := GenerateFileToken("s3cret", "abc", time.Hour)
	if _, err := ValidateFileToken("different", "abc", tok); !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
		t.Fatalf("expected signature error, got %v", err)
	}
}

func TestFileTokenWithoutTTLNeverExpires(t *testing.T) {
	tok, _ := GenerateFileToken("s3cret", "abc", 0)
	claims, err := ValidateFileToken("s3cret", "abc", tok)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.ExpiresAt != nil {
		t.Fatalf("expected no expiry, got %v", claims.ExpiresAt)
	}
}

func TestFileTokenExpired(t *testing.T) {
	claims := FileClaims{
		Key: "abc",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("s3cret"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ValidateFileToken("s3cret", "abc", expired); !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestFileTokenGarbage(t *testing.T) {
	if _, err := ValidateFileToken("s3cret", "abc", "not-a-token"); err == nil {
		t.Fatal("expected error")
	}
}

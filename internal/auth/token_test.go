package auth

import (
	"errors"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	raw, err := issuer.Issue("alice@example.com", "1000000001")
	if err != nil {
		t.Fatal(err)
	}

	claims, err := issuer.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if claims.Email != "alice@example.com" || claims.AccountNumber != "1000000001" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	raw, err := NewTokenIssuer("secret-a", time.Hour).Issue("alice@example.com", "1000000001")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := NewTokenIssuer("secret-b", time.Hour).Parse(raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestTokenExpired(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", -time.Minute)

	raw, err := issuer.Issue("alice@example.com", "1000000001")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := issuer.Parse(raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestTokenGarbage(t *testing.T) {
	if _, err := NewTokenIssuer("test-secret", time.Hour).Parse("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestBcryptHasher(t *testing.T) {
	hasher := NewBcryptHasher(4)

	digest, err := hasher.Hash("s3cretpass")
	if err != nil {
		t.Fatal(err)
	}
	if !hasher.Verify("s3cretpass", digest) {
		t.Fatal("correct password rejected")
	}
	if hasher.Verify("wrongpass", digest) {
		t.Fatal("wrong password accepted")
	}
}

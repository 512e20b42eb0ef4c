package token

import (
	"errors"
	"testing"
	"time"

	"github.com/dotwe/early-access/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndVerify_Success(t *testing.T) {
	t.Parallel()

	svc := NewService([]byte("super-secret"), time.Hour)

	tok, err := svc.Issue("user@example.com", "google-123", time.Hour)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	claims, err := svc.Verify(tok)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if claims.Email != "user@example.com" || claims.IdentityID != "google-123" {
		t.Fatalf("claims mismatch: %+v", claims)
	}
	if claims.ID == "" {
		t.Fatalf("expected a jti to be set")
	}
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	svc := NewService([]byte("secret"), time.Hour)

	// zero and negative lifetimes produce already-expired tokens; the
	// configured default is never substituted.
	for _, ttl := range []time.Duration{0, -1 * time.Nanosecond, -time.Hour} {
		tok, err := svc.Issue("user@example.com", "g1", ttl)
		if err != nil {
			t.Fatalf("Issue error for ttl=%v: %v", ttl, err)
		}
		if _, err := svc.Verify(tok); !errors.Is(err, common.ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken for ttl=%v, got %v", ttl, err)
		}
	}

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-1 * time.Hour)),
			ID:        "jti-1",
		},
		Email:      "user@example.com",
		IdentityID: "g1",
		Purpose:    PurposeDownload,
	})
	signed, err := expired.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign error: %v", err)
	}

	if _, err := svc.Verify(signed); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := NewService([]byte("right-secret"), time.Hour).Issue("u@example.com", "g1", time.Hour)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	if _, err := NewService([]byte("wrong-secret"), time.Hour).Verify(tok); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
}

func TestVerify_WrongPurpose(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")
	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			ID:        "jti-2",
		},
		Email:      "user@example.com",
		IdentityID: "g1",
		Purpose:    "session",
	})
	signed, err := forged.SignedString(secret)
	if err != nil {
		t.Fatalf("sign error: %v", err)
	}

	if _, err := NewService(secret, time.Hour).Verify(signed); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong purpose, got %v", err)
	}
}

func TestVerify_Garbage(t *testing.T) {
	t.Parallel()

	svc := NewService([]byte("secret"), time.Hour)
	for _, tok := range []string{"", "garbage", "aaa.bbb.ccc"} {
		if _, err := svc.Verify(tok); !errors.Is(err, common.ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken for %q, got %v", tok, err)
		}
	}
}

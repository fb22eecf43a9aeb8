package security

import (
	"errors"
	"testing"
	"time"
)

func newTestIssuer(t *testing.T) *TokenIssuer {
	t.Helper()

	issuer, err := NewTokenIssuer("test-signing-secret", "swapsavvy-api", 15*time.Minute, 30*time.Minute)
	if err != nil {
		t.Fatalf("NewTokenIssuer returned error: %v", err)
	}

	return issuer
}

func TestTokenIssuerAccessRoundTrip(t *testing.T) {
	issuer := newTestIssuer(t)

	token, err := issuer.IssueAccessToken("account-123", time.Time{})
	if err != nil {
		t.Fatalf("IssueAccessToken returned error: %v", err)
	}

	claims, err := issuer.ParseAccessToken(token)
	if err != nil {
		t.Fatalf("ParseAccessToken returned error: %v", err)
	}

	if claims.AccountID != "account-123" {
		t.Fatalf("expected account-123, got %s", claims.AccountID)
	}
	if claims.Issuer != "swapsavvy-api" {
		t.Fatalf("expected issuer swapsavvy-api, got %s", claims.Issuer)
	}
}

func TestTokenIssuerVerificationRoundTrip(t *testing.T) {
	issuer := newTestIssuer(t)

	token, err := issuer.IssueVerificationToken(PurposeSignupVerify, "pending-42", time.Time{})
	if err != nil {
		t.Fatalf("IssueVerificationToken returned error: %v", err)
	}

	claims, err := issuer.ParseVerificationToken(token, PurposeSignupVerify)
	if err != nil {
		t.Fatalf("ParseVerificationToken returned error: %v", err)
	}
	if claims.TargetID != "pending-42" {
		t.Fatalf("expected pending-42, got %s", claims.TargetID)
	}

	if _, err := issuer.ParseVerificationToken(token, PurposeAccountVerify); !errors.Is(err, ErrTokenPurposeMismatch) {
		t.Fatalf("expected purpose mismatch, got %v", err)
	}
}

func TestTokenIssuerRejectsExpiredToken(t *testing.T) {
	issuer := newTestIssuer(t)

	token, err := issuer.IssueAccessToken("account-123", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("IssueAccessToken returned error: %v", err)
	}

	if _, err := issuer.ParseAccessToken(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected expired token error, got %v", err)
	}
}

func TestTokenIssuerRejectsForeignSignature(t *testing.T) {
	issuer := newTestIssuer(t)

	other, err := NewTokenIssuer("another-secret", "swapsavvy-api", 0, 0)
	if err != nil {
		t.Fatalf("NewTokenIssuer returned error: %v", err)
	}

	token, err := other.IssueAccessToken("account-123", time.Time{})
	if err != nil {
		t.Fatalf("IssueAccessToken returned error: %v", err)
	}

	if _, err := issuer.ParseAccessToken(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected invalid token error for foreign signature, got %v", err)
	}
}

func TestTokenIssuerInputValidation(t *testing.T) {
	if _, err := NewTokenIssuer("", "swapsavvy-api", 0, 0); err == nil {
		t.Fatal("expected error for empty secret")
	}
	if _, err := NewTokenIssuer("secret", "", 0, 0); err == nil {
		t.Fatal("expected error for empty issuer")
	}

	issuer := newTestIssuer(t)

	if _, err := issuer.IssueAccessToken("", time.Time{}); err == nil {
		t.Fatal("expected error for empty account id")
	}
	if _, err := issuer.IssueVerificationToken(PurposeAccess, "pending-42", time.Time{}); err == nil {
		t.Fatal("expected error for non-verification purpose")
	}
	if _, err := issuer.ParseAccessToken(""); !errors.Is(err, ErrTokenInvalid) {
		t.Fatal("expected invalid token error for empty token")
	}
}

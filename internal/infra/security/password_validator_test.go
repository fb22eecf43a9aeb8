package security

import (
	"errors"
	"testing"

	zxcvbn "github.com/nbutton23/zxcvbn-go"

	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/core/domain"
)

func TestDefaultPasswordValidatorSuccess(t *testing.T) {
	validator := DefaultPasswordValidator()

	password := "C0mplex!Passphrase#2025"
	if strength := zxcvbn.PasswordStrength(password, nil); strength.Score < defaultMinZxcvbnScore {
		t.Fatalf("test password unexpectedly weak: score=%d", strength.Score)
	}
	if err := validator.Validate(password); err != nil {
		t.Fatalf("expected password to pass validation, got %v", err)
	}
}

func TestDefaultPasswordValidatorViolations(t *testing.T) {
	validator := DefaultPasswordValidator()

	assertViolation := func(password, expectedCode string) {
		err := validator.Validate(password)
		if err == nil {
			t.Fatalf("expected validation error for %s", expectedCode)
		}
		var vErr *PasswordValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected PasswordValidationError, got %T", err)
		}
		if vErr.Code != expectedCode {
			t.Fatalf("expected %s code, got %s", expectedCode, vErr.Code)
		}
	}

	assertViolation("Short1!", "min_length")
	assertViolation("password", "weak_password")
}

func TestPasswordPolicyUsesContextInputs(t *testing.T) {
	policy := NewPasswordPolicy()

	password := "miguel.santos88"
	ctx := domain.PasswordContext{
		Username: "miguel.santos",
		Email:    "miguel.santos@example.com",
	}

	if strength := zxcvbn.PasswordStrength(password, []string{ctx.Username, ctx.Email}); strength.Score >= defaultMinZxcvbnScore {
		t.Fatalf("test password unexpectedly strong with context inputs: score=%d", strength.Score)
	}

	err := policy.Validate(password, ctx)
	if err == nil {
		t.Fatal("expected password derived from username to be rejected")
	}

	var vErr *PasswordValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected PasswordValidationError, got %T", err)
	}
	if vErr.Code != "weak_password" {
		t.Fatalf("expected weak_password code, got %s", vErr.Code)
	}
}

func TestCustomPasswordValidator(t *testing.T) {
	validator := NewPasswordValidator(
		MinLengthRule(12),
		RequirePasswordStrengthRule(5),
	)

	if err := validator.Validate("short"); err == nil {
		t.Fatal("expected validation error for short password")
	}

	if err := validator.Validate("correct horse battery staple"); err != nil {
		t.Fatalf("expected passphrase to pass with clamped score requirement, got %v", err)
	}
}

func TestPasswordValidatorNilSafety(t *testing.T) {
	var validator *PasswordValidator
	if err := validator.Validate("anything"); err == nil {
		t.Fatal("expected error from nil validator")
	}

	var policy *PasswordPolicy
	if err := policy.Validate("anything", domain.PasswordContext{}); err == nil {
		t.Fatal("expected error from nil policy")
	}
}

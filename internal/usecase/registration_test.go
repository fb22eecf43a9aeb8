package usecase

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/core/domain"
	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/infra/security"
)

const strongSignupPassword = "Sup3r!SecurePass#7890"

func newTestRegistrationService(m *serviceMocks, issuer *security.TokenIssuer) *RegistrationService {
	verification := newTestVerificationService(m)
	return NewRegistrationService(m.accounts, m.pendings, m.codes, verification, m.dispatcher, m.events, nil, issuer, zap.NewNop())
}

func TestRegistrationService_RegisterUser_CreatesPendingRegistration(t *testing.T) {
	fixedNow := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mocks := newServiceMocks()
	issuer := newTestTokenIssuer(t)

	service := newTestRegistrationService(mocks, issuer).WithClock(func() time.Time { return fixedNow })

	result, err := service.RegisterUser(context.Background(), RegisterUserInput{
		Username:    " alice ",
		Email:       " Alice@Example.COM ",
		Password:    strongSignupPassword,
		DisplayName: "Alice W",
		Gender:      "FEMALE",
	})
	if err != nil {
		t.Fatalf("RegisterUser returned error: %v", err)
	}

	if mocks.pendings.createCalls != 1 {
		t.Fatalf("expected one pending registration, got %d", mocks.pendings.createCalls)
	}

	created := mocks.pendings.created
	if created.Username != "alice" {
		t.Fatalf("expected trimmed username alice, got %q", created.Username)
	}
	if created.Email != "alice@example.com" {
		t.Fatalf("expected lowercased email, got %q", created.Email)
	}
	if created.Gender != "female" {
		t.Fatalf("expected normalized gender female, got %q", created.Gender)
	}
	if created.Avatar != "avatars/female_default.png" {
		t.Fatalf("expected stock avatar, got %q", created.Avatar)
	}
	if created.Status != domain.PendingStatusPending {
		t.Fatalf("expected pending status, got %q", created.Status)
	}
	if !created.CreatedAt.Equal(fixedNow) {
		t.Fatalf("expected created_at %v, got %v", fixedNow, created.CreatedAt)
	}
	if !created.ExpiresAt.Equal(fixedNow.Add(domain.PendingTTL)) {
		t.Fatalf("expected expires_at %v, got %v", fixedNow.Add(domain.PendingTTL), created.ExpiresAt)
	}
	if created.DisplayName == nil || *created.DisplayName != "Alice W" {
		t.Fatalf("expected display name Alice W, got %v", created.DisplayName)
	}

	if !regexp.MustCompile(`^ali\d{4}$`).MatchString(created.AssignedID) {
		t.Fatalf("expected assigned id like ali0000, got %q", created.AssignedID)
	}

	if ok, err := security.VerifyPassword(strongSignupPassword, created.PasswordHash); err != nil || !ok {
		t.Fatalf("expected stored hash to match original password")
	}

	if !codePattern.MatchString(result.Code) {
		t.Fatalf("expected six digit code, got %q", result.Code)
	}
	if mocks.dispatcher.codeCalls != 1 {
		t.Fatalf("expected one code delivery, got %d", mocks.dispatcher.codeCalls)
	}
	if mocks.dispatcher.codeEmail != "alice@example.com" {
		t.Fatalf("expected delivery to alice@example.com, got %s", mocks.dispatcher.codeEmail)
	}
	if mocks.dispatcher.codeValue != result.Code {
		t.Fatalf("expected delivered code %s, got %s", result.Code, mocks.dispatcher.codeValue)
	}

	if result.Pending.PasswordHash != "" {
		t.Fatalf("expected sanitized password hash in result")
	}

	claims, err := issuer.ParseVerificationToken(result.VerificationToken, security.PurposeSignupVerify)
	if err != nil {
		t.Fatalf("expected parseable verification token, got %v", err)
	}
	if claims.TargetID != created.ID {
		t.Fatalf("expected token target %s, got %s", created.ID, claims.TargetID)
	}

	if mocks.events.startedCalls != 1 {
		t.Fatalf("expected registration started event, got %d", mocks.events.startedCalls)
	}
	event := mocks.events.startedEvent
	if event.PendingID != created.ID {
		t.Fatalf("expected event pending id %s, got %s", created.ID, event.PendingID)
	}
	if event.MaskedEmail == "" || event.MaskedEmail == "alice@example.com" {
		t.Fatalf("expected masked email in event, got %q", event.MaskedEmail)
	}
	if !event.ExpiresAt.Equal(created.ExpiresAt) {
		t.Fatalf("expected event expiry %v, got %v", created.ExpiresAt, event.ExpiresAt)
	}
}

func TestRegistrationService_RegisterUser_ShortUsernamePadsAssignedID(t *testing.T) {
	mocks := newServiceMocks()
	service := newTestRegistrationService(mocks, newTestTokenIssuer(t))

	if _, err := service.RegisterUser(context.Background(), RegisterUserInput{
		Username: "AL",
		Email:    "al@example.com",
		Password: strongSignupPassword,
	}); err != nil {
		t.Fatalf("RegisterUser returned error: %v", err)
	}

	if !regexp.MustCompile(`^alx\d{4}$`).MatchString(mocks.pendings.created.AssignedID) {
		t.Fatalf("expected padded assigned id like alx0000, got %q", mocks.pendings.created.AssignedID)
	}
}

func TestRegistrationService_RegisterUser_RejectsWeakPassword(t *testing.T) {
	mocks := newServiceMocks()
	verification := newTestVerificationService(mocks)
	service := NewRegistrationService(
		mocks.accounts, mocks.pendings, mocks.codes, verification,
		mocks.dispatcher, mocks.events,
		stubPasswordPolicy{err: errors.New("too guessable")},
		newTestTokenIssuer(t), zap.NewNop(),
	)

	_, err := service.RegisterUser(context.Background(), RegisterUserInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "whatever-the-policy-hates",
	})
	if !errors.Is(err, ErrPasswordPolicyViolation) {
		t.Fatalf("expected ErrPasswordPolicyViolation, got %v", err)
	}
	if mocks.pendings.createCalls != 0 {
		t.Fatalf("expected no registration for rejected password, got %d", mocks.pendings.createCalls)
	}

	// The default policy enforces the minimum length itself.
	defaulted := newTestRegistrationService(newServiceMocks(), newTestTokenIssuer(t))
	if _, err := defaulted.RegisterUser(context.Background(), RegisterUserInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "short",
	}); !errors.Is(err, ErrPasswordPolicyViolation) {
		t.Fatalf("expected ErrPasswordPolicyViolation for short password, got %v", err)
	}
}

func TestRegistrationService_RegisterUser_ConflictChecks(t *testing.T) {
	fixedNow := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("account email", func(t *testing.T) {
		mocks := newServiceMocks()
		mocks.accounts.existsEmailResult = true
		service := newTestRegistrationService(mocks, newTestTokenIssuer(t))

		_, err := service.RegisterUser(context.Background(), RegisterUserInput{
			Username: "bob", Email: "Bob@Example.com", Password: strongSignupPassword,
		})
		if !errors.Is(err, ErrEmailTaken) {
			t.Fatalf("expected ErrEmailTaken, got %v", err)
		}
		if mocks.accounts.existsEmailLast != "bob@example.com" {
			t.Fatalf("expected lowercased lookup, got %q", mocks.accounts.existsEmailLast)
		}
	})

	t.Run("pending email", func(t *testing.T) {
		mocks := newServiceMocks()
		mocks.pendings.liveEmailResult = livePendingFixture(fixedNow)
		service := newTestRegistrationService(mocks, newTestTokenIssuer(t))

		if _, err := service.RegisterUser(context.Background(), RegisterUserInput{
			Username: "bob", Email: "bob@example.com", Password: strongSignupPassword,
		}); !errors.Is(err, ErrEmailTaken) {
			t.Fatalf("expected ErrEmailTaken, got %v", err)
		}
	})

	t.Run("account username", func(t *testing.T) {
		mocks := newServiceMocks()
		mocks.accounts.existsUsernameResult = true
		service := newTestRegistrationService(mocks, newTestTokenIssuer(t))

		if _, err := service.RegisterUser(context.Background(), RegisterUserInput{
			Username: "bob", Email: "bob@example.com", Password: strongSignupPassword,
		}); !errors.Is(err, ErrUsernameTaken) {
			t.Fatalf("expected ErrUsernameTaken, got %v", err)
		}
	})

	t.Run("pending username", func(t *testing.T) {
		mocks := newServiceMocks()
		mocks.pendings.liveUsernameResult = livePendingFixture(fixedNow)
		service := newTestRegistrationService(mocks, newTestTokenIssuer(t))

		if _, err := service.RegisterUser(context.Background(), RegisterUserInput{
			Username: "bob", Email: "bob@example.com", Password: strongSignupPassword,
		}); !errors.Is(err, ErrUsernameTaken) {
			t.Fatalf("expected ErrUsernameTaken, got %v", err)
		}
	})
}

func TestRegistrationService_RegisterUser_DeliveryFailureDiscardsRegistration(t *testing.T) {
	mocks := newServiceMocks()
	mocks.dispatcher.codeErr = errors.New("smtp unavailable")
	service := newTestRegistrationService(mocks, newTestTokenIssuer(t))

	_, err := service.RegisterUser(context.Background(), RegisterUserInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: strongSignupPassword,
	})
	if !errors.Is(err, ErrDeliveryFailure) {
		t.Fatalf("expected ErrDeliveryFailure, got %v", err)
	}

	if mocks.pendings.deleteCalls != 1 {
		t.Fatalf("expected abandoned registration deleted, got %d", mocks.pendings.deleteCalls)
	}
	if mocks.pendings.deleteLastID != mocks.pendings.created.ID {
		t.Fatalf("expected deletion of created registration")
	}
	if mocks.events.startedCalls != 0 {
		t.Fatalf("expected no event for failed signup, got %d", mocks.events.startedCalls)
	}
}

func TestRegistrationService_RegisterUser_CodeStorageFailureDiscardsRegistration(t *testing.T) {
	mocks := newServiceMocks()
	mocks.codes.createErr = errors.New("insert failed")
	service := newTestRegistrationService(mocks, newTestTokenIssuer(t))

	_, err := service.RegisterUser(context.Background(), RegisterUserInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: strongSignupPassword,
	})
	if err == nil {
		t.Fatalf("expected error when code storage fails")
	}

	if mocks.pendings.deleteCalls != 1 {
		t.Fatalf("expected abandoned registration deleted, got %d", mocks.pendings.deleteCalls)
	}
	if mocks.dispatcher.codeCalls != 0 {
		t.Fatalf("expected no delivery without a stored code, got %d", mocks.dispatcher.codeCalls)
	}
}

func TestRegistrationService_RegisterUser_AssignedIDCollisionRetries(t *testing.T) {
	mocks := newServiceMocks()
	mocks.accounts.assignedCollisions = 2
	service := newTestRegistrationService(mocks, newTestTokenIssuer(t))

	if _, err := service.RegisterUser(context.Background(), RegisterUserInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: strongSignupPassword,
	}); err != nil {
		t.Fatalf("RegisterUser returned error: %v", err)
	}

	if mocks.accounts.assignedExistsCalls != 3 {
		t.Fatalf("expected three account candidate checks, got %d", mocks.accounts.assignedExistsCalls)
	}
	if mocks.pendings.assignedExistsCalls != 1 {
		t.Fatalf("expected only the free candidate to reach the pending check, got %d", mocks.pendings.assignedExistsCalls)
	}
}

func TestRegistrationService_RegisterUser_AssignedIDSpaceExhausted(t *testing.T) {
	mocks := newServiceMocks()
	mocks.accounts.assignedCollisions = assignedIDMaxTries
	service := newTestRegistrationService(mocks, newTestTokenIssuer(t))

	_, err := service.RegisterUser(context.Background(), RegisterUserInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: strongSignupPassword,
	})
	if err == nil || !strings.Contains(err.Error(), "assigned id") {
		t.Fatalf("expected assigned id exhaustion error, got %v", err)
	}
	if mocks.pendings.createCalls != 0 {
		t.Fatalf("expected no registration without an assigned id, got %d", mocks.pendings.createCalls)
	}
}

func TestRegistrationService_RegisterUser_ValidatesInput(t *testing.T) {
	mocks := newServiceMocks()
	service := newTestRegistrationService(mocks, newTestTokenIssuer(t))

	cases := []RegisterUserInput{
		{Username: "  ", Email: "alice@example.com", Password: strongSignupPassword},
		{Username: "alice", Email: "", Password: strongSignupPassword},
		{Username: "alice", Email: "alice@example.com", Password: ""},
	}
	for _, input := range cases {
		if _, err := service.RegisterUser(context.Background(), input); err == nil {
			t.Fatalf("expected validation error for %+v", input)
		}
	}
	if mocks.accounts.existsEmailCalls != 0 {
		t.Fatalf("expected no repository calls for invalid input, got %d", mocks.accounts.existsEmailCalls)
	}
}

func TestRegistrationService_RegisterUser_PreservesPasswordExactly(t *testing.T) {
	mocks := newServiceMocks()
	verification := newTestVerificationService(mocks)
	service := NewRegistrationService(
		mocks.accounts, mocks.pendings, mocks.codes, verification,
		mocks.dispatcher, mocks.events,
		stubPasswordPolicy{}, newTestTokenIssuer(t), zap.NewNop(),
	)

	padded := "  padded passphrase 42  "
	if _, err := service.RegisterUser(context.Background(), RegisterUserInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: padded,
	}); err != nil {
		t.Fatalf("RegisterUser returned error: %v", err)
	}

	hash := mocks.pendings.created.PasswordHash
	if ok, _ := security.VerifyPassword(padded, hash); !ok {
		t.Fatalf("expected hash to match the untrimmed password")
	}
	if ok, _ := security.VerifyPassword(strings.TrimSpace(padded), hash); ok {
		t.Fatalf("expected trimmed variant to mismatch")
	}
}

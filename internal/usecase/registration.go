package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/core/domain"
	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/core/port"
	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/infra/logger"
	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/infra/security"
	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/repository"
)

const (
	assignedIDMaxTries     = 30
	assignedIDSuffixLength = 4
)

var (
	// ErrEmailTaken indicates the email belongs to an account or a live pending registration.
	ErrEmailTaken = errors.New("email already registered or pending verification")
	// ErrUsernameTaken indicates the username belongs to an account or a live pending registration.
	ErrUsernameTaken = errors.New("username already taken or pending")
	// ErrPasswordPolicyViolation indicates the password does not satisfy complexity requirements.
	ErrPasswordPolicyViolation = errors.New("password does not meet complexity requirements")
)

// RegistrationService handles new account onboarding up to the point a
// verification code is in the user's inbox.
type RegistrationService struct {
	accounts     port.AccountRepository
	pendings     port.PendingRegistrationRepository
	codes        port.VerificationCodeRepository
	verification *VerificationService
	dispatcher   port.NotificationDispatcher
	events       port.EventPublisher
	policy       port.PasswordPolicyValidator
	tokens       *security.TokenIssuer
	logger       *zap.Logger
	now          func() time.Time
}

// NewRegistrationService constructs a registration service.
func NewRegistrationService(
	accounts port.AccountRepository,
	pendings port.PendingRegistrationRepository,
	codes port.VerificationCodeRepository,
	verification *VerificationService,
	dispatcher port.NotificationDispatcher,
	events port.EventPublisher,
	policy port.PasswordPolicyValidator,
	tokens *security.TokenIssuer,
	log *zap.Logger,
) *RegistrationService {
	if policy == nil {
		policy = security.NewPasswordPolicy()
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &RegistrationService{
		accounts:     accounts,
		pendings:     pendings,
		codes:        codes,
		verification: verification,
		dispatcher:   dispatcher,
		events:       events,
		policy:       policy,
		tokens:       tokens,
		logger:       log,
		now:          time.Now,
	}
}

// WithClock overrides the service clock, primarily for deterministic testing.
func (s *RegistrationService) WithClock(clock func() time.Time) *RegistrationService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// RegisterUserInput carries the signup form fields.
type RegisterUserInput struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
	Gender      string
}

// RegistrationResult captures the created registration and the artifacts the
// transport layer hands back to the caller.
type RegistrationResult struct {
	Pending           domain.PendingRegistration
	Code              string
	VerificationToken string
}

// RegisterUser validates the signup, creates a pending registration, issues
// the first verification code, and emails it. A failed delivery removes the
// registration again so the signup can be retried cleanly.
func (s *RegistrationService) RegisterUser(ctx context.Context, input RegisterUserInput) (RegistrationResult, error) {
	var zero RegistrationResult

	username := strings.TrimSpace(input.Username)
	if username == "" {
		return zero, fmt.Errorf("username is required")
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return zero, fmt.Errorf("email is required")
	}
	if input.Password == "" {
		return zero, fmt.Errorf("password is required")
	}
	if s.tokens == nil {
		return zero, fmt.Errorf("token issuer not configured")
	}

	if err := s.policy.Validate(input.Password, domain.PasswordContext{Username: username, Email: email}); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrPasswordPolicyViolation, err)
	}

	now := s.now().UTC()

	if err := s.checkConflicts(ctx, email, username, now); err != nil {
		return zero, err
	}

	assignedID, err := s.generateAssignedID(ctx, username)
	if err != nil {
		return zero, err
	}

	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return zero, fmt.Errorf("hash password: %w", err)
	}

	gender := domain.NormalizeGender(input.Gender)
	pending := domain.PendingRegistration{
		ID:           uuid.NewString(),
		AssignedID:   assignedID,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Gender:       gender,
		Avatar:       domain.DefaultAvatar(gender),
		CreatedAt:    now,
		ExpiresAt:    now.Add(domain.PendingTTL),
		Status:       domain.PendingStatusPending,
	}
	if displayName := strings.TrimSpace(input.DisplayName); displayName != "" {
		pending.DisplayName = &displayName
	}

	if err := s.pendings.Create(ctx, pending); err != nil {
		return zero, fmt.Errorf("create pending registration: %w", err)
	}

	code, err := s.verification.IssueCode(ctx, pending.ID)
	if err != nil {
		s.discard(ctx, pending.ID)
		return zero, err
	}

	if err := s.dispatcher.SendVerificationCode(ctx, pending.Email, pending.Username, code); err != nil {
		s.logger.Warn("verification code delivery failed",
			zap.String("email", logger.MaskEmail(pending.Email)),
			zap.Error(err),
		)
		s.discard(ctx, pending.ID)
		return zero, fmt.Errorf("%w: %v", ErrDeliveryFailure, err)
	}

	s.publishRegistrationStarted(ctx, pending)

	token, err := s.tokens.IssueVerificationToken(security.PurposeSignupVerify, pending.ID, now)
	if err != nil {
		return zero, fmt.Errorf("issue verification token: %w", err)
	}

	sanitized := pending
	sanitized.PasswordHash = ""

	return RegistrationResult{
		Pending:           sanitized,
		Code:              code,
		VerificationToken: token,
	}, nil
}

// checkConflicts rejects signups whose email or username collides with a
// verified account or a still-live pending registration.
func (s *RegistrationService) checkConflicts(ctx context.Context, email, username string, at time.Time) error {
	emailTaken, err := s.accounts.ExistsByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("check account email: %w", err)
	}
	if emailTaken {
		return ErrEmailTaken
	}

	if _, err := s.pendings.FindLiveByEmail(ctx, email, at); err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("check pending email: %w", err)
	}

	usernameTaken, err := s.accounts.ExistsByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("check account username: %w", err)
	}
	if usernameTaken {
		return ErrUsernameTaken
	}

	if _, err := s.pendings.FindLiveByUsername(ctx, username, at); err == nil {
		return ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("check pending username: %w", err)
	}

	return nil
}

// generateAssignedID derives candidate ids from the username prefix plus a
// random four-digit suffix until one is free in both tables.
func (s *RegistrationService) generateAssignedID(ctx context.Context, username string) (string, error) {
	prefix := domain.AssignedIDPrefix(username)

	for i := 0; i < assignedIDMaxTries; i++ {
		suffix, err := security.GenerateNumericCode(assignedIDSuffixLength)
		if err != nil {
			return "", fmt.Errorf("generate assigned id suffix: %w", err)
		}
		candidate := prefix + suffix

		taken, err := s.accounts.AssignedIDExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check account assigned id: %w", err)
		}
		if taken {
			continue
		}

		taken, err = s.pendings.AssignedIDExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check pending assigned id: %w", err)
		}
		if taken {
			continue
		}

		return candidate, nil
	}

	return "", fmt.Errorf("exhausted %d assigned id candidates", assignedIDMaxTries)
}

// discard removes a pending registration and its codes after a failed signup step.
func (s *RegistrationService) discard(ctx context.Context, pendingID string) {
	if _, err := s.codes.DeleteForPending(ctx, pendingID); err != nil {
		s.logger.Warn("failed to delete abandoned codes", zap.Error(err))
	}
	if err := s.pendings.Delete(ctx, pendingID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("failed to delete abandoned registration", zap.Error(err))
	}
}

func (s *RegistrationService) publishRegistrationStarted(ctx context.Context, pending domain.PendingRegistration) {
	if s.events == nil {
		return
	}

	event := domain.RegistrationStartedEvent{
		EventID:     uuid.NewString(),
		PendingID:   pending.ID,
		AssignedID:  pending.AssignedID,
		Username:    pending.Username,
		MaskedEmail: logger.MaskEmail(pending.Email),
		StartedAt:   pending.CreatedAt,
		ExpiresAt:   pending.ExpiresAt,
	}

	if err := s.events.PublishRegistrationStarted(ctx, event); err != nil {
		s.logger.Warn("failed to publish registration started event", zap.Error(err))
	}
}

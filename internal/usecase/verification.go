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
	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/infra/config"
	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/infra/logger"
	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/infra/security"
	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/repository"
)

const (
	resendRateLimitScope = "verification_resend"

	defaultResendWindow = time.Hour
	defaultResendLimit  = 3
)

var (
	// ErrPendingNotFound indicates the referenced pending registration does not exist.
	ErrPendingNotFound = errors.New("pending registration not found")
	// ErrPendingExpired indicates the pending registration can no longer be verified.
	ErrPendingExpired = errors.New("pending registration expired")
	// ErrCodeExpired indicates no live verification code exists for the target.
	ErrCodeExpired = errors.New("verification code expired")
	// ErrTooManyAttempts indicates the code is locked after repeated failed submissions.
	ErrTooManyAttempts = errors.New("too many attempts")
	// ErrCodeMismatch indicates the submitted code does not match the stored one.
	ErrCodeMismatch = errors.New("invalid verification code")
	// ErrAccountExists indicates a verified account already holds the username or email.
	ErrAccountExists = errors.New("account already exists")
	// ErrAccountNotFound indicates the referenced account does not exist.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountAlreadyVerified indicates re-verification was requested for a verified account.
	ErrAccountAlreadyVerified = errors.New("account already verified")
	// ErrDeliveryFailure indicates the verification email could not be handed off.
	ErrDeliveryFailure = errors.New("failed to deliver verification email")
)

// RateLimitExceededError reports that a throttled operation must wait before retrying.
type RateLimitExceededError struct {
	Scope      string
	RetryAfter time.Duration
}

func (e *RateLimitExceededError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limit exceeded for %s, retry after %s", e.Scope, e.RetryAfter)
	}
	return fmt.Sprintf("rate limit exceeded for %s", e.Scope)
}

// VerificationService drives the verification-code lifecycle for pending
// registrations and for existing accounts that still need email verification.
type VerificationService struct {
	pendings     port.PendingRegistrationRepository
	codes        port.VerificationCodeRepository
	accounts     port.AccountRepository
	throttle     port.RateLimitStore
	dispatcher   port.NotificationDispatcher
	events       port.EventPublisher
	logger       *zap.Logger
	now          func() time.Time
	resendWindow time.Duration
	resendLimit  int
}

// NewVerificationService constructs a VerificationService.
func NewVerificationService(
	cfg *config.AppConfig,
	pendings port.PendingRegistrationRepository,
	codes port.VerificationCodeRepository,
	accounts port.AccountRepository,
	throttle port.RateLimitStore,
	dispatcher port.NotificationDispatcher,
	events port.EventPublisher,
	log *zap.Logger,
) *VerificationService {
	if log == nil {
		log = zap.NewNop()
	}

	window := defaultResendWindow
	limit := defaultResendLimit
	if cfg != nil {
		if cfg.RateLimit.ResendWindow > 0 {
			window = cfg.RateLimit.ResendWindow
		}
		if cfg.RateLimit.ResendMaxAttempts > 0 {
			limit = cfg.RateLimit.ResendMaxAttempts
		}
	}

	return &VerificationService{
		pendings:     pendings,
		codes:        codes,
		accounts:     accounts,
		throttle:     throttle,
		dispatcher:   dispatcher,
		events:       events,
		logger:       log,
		now:          time.Now,
		resendWindow: window,
		resendLimit:  limit,
	}
}

// WithClock overrides the service clock, primarily for deterministic testing.
func (s *VerificationService) WithClock(clock func() time.Time) *VerificationService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// IssueCode replaces any stored code for the pending registration with a fresh
// six-digit code and returns its plaintext value for delivery.
func (s *VerificationService) IssueCode(ctx context.Context, pendingID string) (string, error) {
	if pendingID == "" {
		return "", fmt.Errorf("pending id is required")
	}

	if _, err := s.pendings.GetByID(ctx, pendingID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrPendingNotFound
		}
		return "", fmt.Errorf("lookup pending registration: %w", err)
	}

	record, err := s.issueCode(ctx, pendingID, "", 0)
	if err != nil {
		return "", err
	}

	return record.Code, nil
}

// RequestResend issues and emails a fresh code for a pending registration,
// subject to the sliding-window resend throttle. The stored code is untouched
// when the throttle rejects the request.
func (s *VerificationService) RequestResend(ctx context.Context, pendingID string) (string, error) {
	if pendingID == "" {
		return "", fmt.Errorf("pending id is required")
	}

	now := s.now().UTC()

	pending, err := s.pendings.GetByID(ctx, pendingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrPendingNotFound
		}
		return "", fmt.Errorf("lookup pending registration: %w", err)
	}
	if !pending.IsLive(now) {
		return "", ErrPendingExpired
	}

	key := pendingResendKey(pendingID)
	if err := s.resendAllowed(ctx, key); err != nil {
		return "", err
	}

	resendCount := 0
	if previous, err := s.codes.LatestForPending(ctx, pendingID); err == nil {
		resendCount = previous.ResendCount + 1
	} else if !errors.Is(err, repository.ErrNotFound) {
		return "", fmt.Errorf("lookup verification code: %w", err)
	}

	record, err := s.issueCode(ctx, pendingID, "", resendCount)
	if err != nil {
		return "", err
	}

	s.recordResend(ctx, key)

	if err := s.dispatcher.SendVerificationCode(ctx, pending.Email, pending.Username, record.Code); err != nil {
		s.logger.Warn("verification code delivery failed",
			zap.String("email", logger.MaskEmail(pending.Email)),
			zap.Error(err),
		)
		return "", fmt.Errorf("%w: %v", ErrDeliveryFailure, err)
	}

	return record.Code, nil
}

// CheckCode validates a submitted code against the pending registration and,
// on success, atomically promotes the registration into a verified account.
// The failure checks run in a fixed order: missing registration, missing or
// expired code, locked code, mismatch, then username/email conflict.
func (s *VerificationService) CheckCode(ctx context.Context, pendingID, submitted string) (domain.Account, error) {
	submitted = strings.TrimSpace(submitted)
	if pendingID == "" {
		return domain.Account{}, fmt.Errorf("pending id is required")
	}

	now := s.now().UTC()

	pending, err := s.pendings.GetByID(ctx, pendingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Account{}, ErrPendingNotFound
		}
		return domain.Account{}, fmt.Errorf("lookup pending registration: %w", err)
	}

	code, err := s.codes.LatestForPending(ctx, pendingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Account{}, ErrCodeExpired
		}
		return domain.Account{}, fmt.Errorf("lookup verification code: %w", err)
	}
	if code.IsExpired(now) {
		return domain.Account{}, ErrCodeExpired
	}

	if code.AttemptsExhausted() {
		return domain.Account{}, ErrTooManyAttempts
	}

	if !code.Matches(submitted) {
		if _, err := s.codes.IncrementAttempts(ctx, code.ID); err != nil {
			s.logger.Warn("failed to record code attempt", zap.Error(err))
		}
		return domain.Account{}, ErrCodeMismatch
	}

	conflict, err := s.accountConflict(ctx, pending.Email, pending.Username)
	if err != nil {
		return domain.Account{}, err
	}
	if conflict {
		s.expireConflicted(ctx, pendingID)
		return domain.Account{}, ErrAccountExists
	}

	account := pending.Promote(uuid.NewString(), now)
	if err := s.accounts.PromotePending(ctx, pendingID, account); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			s.expireConflicted(ctx, pendingID)
			return domain.Account{}, ErrAccountExists
		case errors.Is(err, repository.ErrNotFound):
			return domain.Account{}, ErrPendingNotFound
		}
		return domain.Account{}, fmt.Errorf("promote pending registration: %w", err)
	}

	s.resetThrottle(ctx, pendingResendKey(pendingID))

	if err := s.dispatcher.SendWelcome(ctx, account.Email, account.Username); err != nil {
		s.logger.Warn("welcome email delivery failed",
			zap.String("email", logger.MaskEmail(account.Email)),
			zap.Error(err),
		)
	}

	s.publishAccountRegistered(ctx, account)

	sanitized := account
	sanitized.PasswordHash = ""

	return sanitized, nil
}

// StartAccountVerification issues and emails a verification code for an
// existing unverified account, typically after a login attempt.
func (s *VerificationService) StartAccountVerification(ctx context.Context, account domain.Account) error {
	if account.ID == "" {
		return fmt.Errorf("account id is required")
	}
	if account.IsVerified {
		return ErrAccountAlreadyVerified
	}

	record, err := s.issueCode(ctx, "", account.ID, 0)
	if err != nil {
		return err
	}

	if err := s.dispatcher.SendVerificationCode(ctx, account.Email, account.Username, record.Code); err != nil {
		s.logger.Warn("verification code delivery failed",
			zap.String("email", logger.MaskEmail(account.Email)),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", ErrDeliveryFailure, err)
	}

	return nil
}

// RequestAccountResend mirrors RequestResend for account-owned codes.
func (s *VerificationService) RequestAccountResend(ctx context.Context, accountID string) (string, error) {
	if accountID == "" {
		return "", fmt.Errorf("account id is required")
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrAccountNotFound
		}
		return "", fmt.Errorf("lookup account: %w", err)
	}
	if account.IsVerified {
		return "", ErrAccountAlreadyVerified
	}

	key := accountResendKey(accountID)
	if err := s.resendAllowed(ctx, key); err != nil {
		return "", err
	}

	resendCount := 0
	if previous, err := s.codes.LatestForAccount(ctx, accountID); err == nil {
		resendCount = previous.ResendCount + 1
	} else if !errors.Is(err, repository.ErrNotFound) {
		return "", fmt.Errorf("lookup verification code: %w", err)
	}

	record, err := s.issueCode(ctx, "", accountID, resendCount)
	if err != nil {
		return "", err
	}

	s.recordResend(ctx, key)

	if err := s.dispatcher.SendVerificationCode(ctx, account.Email, account.Username, record.Code); err != nil {
		s.logger.Warn("verification code delivery failed",
			zap.String("email", logger.MaskEmail(account.Email)),
			zap.Error(err),
		)
		return "", fmt.Errorf("%w: %v", ErrDeliveryFailure, err)
	}

	return record.Code, nil
}

// CheckAccountCode validates a submitted code for an existing account and
// marks the account verified on success. The failure order matches CheckCode.
func (s *VerificationService) CheckAccountCode(ctx context.Context, accountID, submitted string) error {
	submitted = strings.TrimSpace(submitted)
	if accountID == "" {
		return fmt.Errorf("account id is required")
	}

	now := s.now().UTC()

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("lookup account: %w", err)
	}
	if account.IsVerified {
		return ErrAccountAlreadyVerified
	}

	code, err := s.codes.LatestForAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCodeExpired
		}
		return fmt.Errorf("lookup verification code: %w", err)
	}
	if code.IsExpired(now) {
		return ErrCodeExpired
	}

	if code.AttemptsExhausted() {
		return ErrTooManyAttempts
	}

	if !code.Matches(submitted) {
		if _, err := s.codes.IncrementAttempts(ctx, code.ID); err != nil {
			s.logger.Warn("failed to record code attempt", zap.Error(err))
		}
		return ErrCodeMismatch
	}

	if err := s.accounts.SetVerified(ctx, accountID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("mark account verified: %w", err)
	}

	if _, err := s.codes.DeleteForAccount(ctx, accountID); err != nil {
		s.logger.Warn("failed to delete redeemed codes", zap.Error(err))
	}

	s.resetThrottle(ctx, accountResendKey(accountID))
	s.publishAccountVerified(ctx, *account, now)

	return nil
}

func (s *VerificationService) issueCode(ctx context.Context, pendingID, accountID string, resendCount int) (domain.VerificationCode, error) {
	now := s.now().UTC()

	value, err := security.GenerateNumericCode(domain.CodeLength)
	if err != nil {
		return domain.VerificationCode{}, fmt.Errorf("generate verification code: %w", err)
	}

	record := domain.VerificationCode{
		ID:          uuid.NewString(),
		Code:        value,
		ResendCount: resendCount,
		LastSentAt:  now,
		CreatedAt:   now,
		ExpiresAt:   now.Add(domain.CodeTTL),
	}

	switch {
	case pendingID != "":
		if _, err := s.codes.DeleteForPending(ctx, pendingID); err != nil {
			return domain.VerificationCode{}, fmt.Errorf("delete previous codes: %w", err)
		}
		record.PendingID = &pendingID
	case accountID != "":
		if _, err := s.codes.DeleteForAccount(ctx, accountID); err != nil {
			return domain.VerificationCode{}, fmt.Errorf("delete previous codes: %w", err)
		}
		record.AccountID = &accountID
	default:
		return domain.VerificationCode{}, fmt.Errorf("verification target is required")
	}

	if err := s.codes.Create(ctx, record); err != nil {
		return domain.VerificationCode{}, fmt.Errorf("store verification code: %w", err)
	}

	return record, nil
}

// resendAllowed applies the sliding-window throttle gate. Store failures are
// logged and admit the request rather than blocking verification entirely.
func (s *VerificationService) resendAllowed(ctx context.Context, key string) error {
	if s.throttle == nil {
		return nil
	}

	now := s.now().UTC()

	if err := s.throttle.TrimWindow(ctx, key, s.resendWindow, now); err != nil {
		s.logger.Warn("resend throttle trim failed", zap.Error(err))
		return nil
	}

	count, err := s.throttle.CountAttempts(ctx, key, s.resendWindow, now)
	if err != nil {
		s.logger.Warn("resend throttle count failed", zap.Error(err))
		return nil
	}

	if count >= s.resendLimit {
		retryAfter := time.Duration(0)
		if oldest, ok, err := s.throttle.OldestAttempt(ctx, key, s.resendWindow, now); err == nil && ok {
			reset := oldest.Add(s.resendWindow)
			if reset.After(now) {
				retryAfter = reset.Sub(now)
			}
		} else if err != nil {
			s.logger.Warn("resend throttle oldest lookup failed", zap.Error(err))
		}
		return &RateLimitExceededError{Scope: resendRateLimitScope, RetryAfter: retryAfter}
	}

	return nil
}

func (s *VerificationService) recordResend(ctx context.Context, key string) {
	if s.throttle == nil {
		return
	}
	if err := s.throttle.RecordAttempt(ctx, key, s.now().UTC()); err != nil {
		s.logger.Warn("resend throttle record failed", zap.Error(err))
	}
}

func (s *VerificationService) resetThrottle(ctx context.Context, key string) {
	if s.throttle == nil {
		return
	}
	if err := s.throttle.Reset(ctx, key); err != nil {
		s.logger.Warn("resend throttle reset failed", zap.Error(err))
	}
}

func (s *VerificationService) accountConflict(ctx context.Context, email, username string) (bool, error) {
	emailTaken, err := s.accounts.ExistsByEmail(ctx, email)
	if err != nil {
		return false, fmt.Errorf("check account email: %w", err)
	}
	if emailTaken {
		return true, nil
	}

	usernameTaken, err := s.accounts.ExistsByUsername(ctx, username)
	if err != nil {
		return false, fmt.Errorf("check account username: %w", err)
	}

	return usernameTaken, nil
}

// expireConflicted retires a pending registration whose username or email was
// claimed by a verified account while the code was in flight.
func (s *VerificationService) expireConflicted(ctx context.Context, pendingID string) {
	if _, err := s.codes.DeleteForPending(ctx, pendingID); err != nil {
		s.logger.Warn("failed to delete conflicted codes", zap.Error(err))
	}
	if err := s.pendings.MarkExpired(ctx, pendingID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("failed to expire conflicted registration", zap.Error(err))
	}
}

func (s *VerificationService) publishAccountRegistered(ctx context.Context, account domain.Account) {
	if s.events == nil {
		return
	}

	event := domain.AccountRegisteredEvent{
		EventID:      uuid.NewString(),
		AccountID:    account.ID,
		AssignedID:   account.AssignedID,
		Username:     account.Username,
		MaskedEmail:  logger.MaskEmail(account.Email),
		RegisteredAt: account.CreatedAt,
	}

	if err := s.events.PublishAccountRegistered(ctx, event); err != nil {
		s.logger.Warn("failed to publish account registered event", zap.Error(err))
	}
}

func (s *VerificationService) publishAccountVerified(ctx context.Context, account domain.Account, at time.Time) {
	if s.events == nil {
		return
	}

	event := domain.AccountVerifiedEvent{
		EventID:     uuid.NewString(),
		AccountID:   account.ID,
		Username:    account.Username,
		MaskedEmail: logger.MaskEmail(account.Email),
		VerifiedAt:  at,
	}

	if err := s.events.PublishAccountVerified(ctx, event); err != nil {
		s.logger.Warn("failed to publish account verified event", zap.Error(err))
	}
}

func pendingResendKey(pendingID string) string {
	return fmt.Sprintf("resend:pending:%s", pendingID)
}

func accountResendKey(accountID string) string {
	return fmt.Sprintf("resend:account:%s", accountID)
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/core/domain"
	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/core/port"
	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/infra/config"
	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/infra/logger"
	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/infra/security"
	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/repository"
)

var (
	// ErrInvalidCredentials indicates the provided identifier or password are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountPending indicates the account still requires email verification before login.
	ErrAccountPending = errors.New("account pending verification")
	// ErrInvalidVerificationToken indicates a verification token failed validation.
	ErrInvalidVerificationToken = errors.New("invalid verification token")
	// ErrInvalidAccessToken indicates an access token failed validation.
	ErrInvalidAccessToken = errors.New("invalid access token")
	// ErrExpiredAccessToken indicates the access token is past its expiry.
	ErrExpiredAccessToken = errors.New("access token expired")
)

// AuthenticationError wraps a login failure together with the context the
// transport layer needs to respond, such as the verification token issued
// when an unverified account attempts to sign in.
type AuthenticationError struct {
	Err               error
	Account           *domain.Account
	VerificationToken string
}

func (e *AuthenticationError) Error() string {
	return e.Err.Error()
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// AuthService authenticates accounts and resolves the tokens the HTTP layer
// hands out and accepts back.
type AuthService struct {
	cfg          *config.AppConfig
	accounts     port.AccountRepository
	verification *VerificationService
	tokens       *security.TokenIssuer
	logger       *zap.Logger
	now          func() time.Time
}

// NewAuthService constructs an authentication service.
func NewAuthService(
	cfg *config.AppConfig,
	accounts port.AccountRepository,
	verification *VerificationService,
	tokens *security.TokenIssuer,
	log *zap.Logger,
) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}

	return &AuthService{
		cfg:          cfg,
		accounts:     accounts,
		verification: verification,
		tokens:       tokens,
		logger:       log,
		now:          time.Now,
	}
}

// WithClock overrides the service clock, primarily for deterministic testing.
func (s *AuthService) WithClock(clock func() time.Time) *AuthService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// LoginResult is returned on a successful authentication.
type LoginResult struct {
	AccessToken string
	ExpiresIn   int64
	Account     domain.Account
}

// Authenticate verifies the identifier/password pair and issues an access
// token. An unverified account receives a fresh verification code by email
// and the failure carries a verification token for the confirm step.
func (s *AuthService) Authenticate(ctx context.Context, identifier, password string) (LoginResult, error) {
	var zero LoginResult

	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" {
		return zero, fmt.Errorf("identifier is required")
	}
	if password == "" {
		return zero, fmt.Errorf("password is required")
	}
	if s.tokens == nil {
		return zero, fmt.Errorf("token issuer not configured")
	}

	found, err := s.accounts.FindByUsernameOrEmail(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return zero, &AuthenticationError{Err: ErrInvalidCredentials}
		}
		return zero, fmt.Errorf("find account: %w", err)
	}
	account := *found

	ok, err := security.VerifyPassword(password, account.PasswordHash)
	if err != nil {
		return zero, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return zero, &AuthenticationError{Err: ErrInvalidCredentials}
	}

	now := s.now().UTC()

	if !account.IsVerified {
		if s.verification != nil {
			if err := s.verification.StartAccountVerification(ctx, account); err != nil {
				s.logger.Warn("failed to start verification for unverified login",
					zap.String("email", logger.MaskEmail(account.Email)),
					zap.Error(err),
				)
			}
		}

		token, err := s.tokens.IssueVerificationToken(security.PurposeAccountVerify, account.ID, now)
		if err != nil {
			return zero, fmt.Errorf("issue verification token: %w", err)
		}

		sanitized := account
		sanitized.PasswordHash = ""

		return zero, &AuthenticationError{
			Err:               ErrAccountPending,
			Account:           &sanitized,
			VerificationToken: token,
		}
	}

	accessToken, err := s.tokens.IssueAccessToken(account.ID, now)
	if err != nil {
		return zero, fmt.Errorf("issue access token: %w", err)
	}

	sanitized := account
	sanitized.PasswordHash = ""

	return LoginResult{
		AccessToken: accessToken,
		ExpiresIn:   int64(s.cfg.JWT.AccessTokenTTL.Seconds()),
		Account:     sanitized,
	}, nil
}

// GetAccount loads an account by id with the password hash stripped.
func (s *AuthService) GetAccount(ctx context.Context, accountID string) (domain.Account, error) {
	found, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Account{}, ErrAccountNotFound
		}
		return domain.Account{}, fmt.Errorf("get account: %w", err)
	}

	account := *found
	account.PasswordHash = ""
	return account, nil
}

// ParseAccessToken validates a bearer token and returns the account id it
// was issued for.
func (s *AuthService) ParseAccessToken(token string) (string, error) {
	if s.tokens == nil {
		return "", fmt.Errorf("token issuer not configured")
	}

	claims, err := s.tokens.ParseAccessToken(token)
	if err != nil {
		if errors.Is(err, security.ErrTokenExpired) {
			return "", ErrExpiredAccessToken
		}
		return "", ErrInvalidAccessToken
	}

	return claims.AccountID, nil
}

// ResolvePendingID extracts the pending registration id from a signup
// verification token.
func (s *AuthService) ResolvePendingID(token string) (string, error) {
	return s.resolveVerificationTarget(token, security.PurposeSignupVerify)
}

// ResolveAccountID extracts the account id from an account verification token.
func (s *AuthService) ResolveAccountID(token string) (string, error) {
	return s.resolveVerificationTarget(token, security.PurposeAccountVerify)
}

func (s *AuthService) resolveVerificationTarget(token string, purpose security.TokenPurpose) (string, error) {
	if s.tokens == nil {
		return "", fmt.Errorf("token issuer not configured")
	}

	claims, err := s.tokens.ParseVerificationToken(token, purpose)
	if err != nil {
		return "", ErrInvalidVerificationToken
	}

	return claims.TargetID, nil
}

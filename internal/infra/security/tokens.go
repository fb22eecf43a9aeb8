package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"
)

// TokenPurpose scopes a signed token to a single flow.
type TokenPurpose string

const (
	// PurposeAccess marks tokens that authenticate API requests.
	PurposeAccess TokenPurpose = "access"
	// PurposeSignupVerify marks tokens bound to a pending registration awaiting its code.
	PurposeSignupVerify TokenPurpose = "signup_verify"
	// PurposeAccountVerify marks tokens bound to an unverified account re-running verification.
	PurposeAccountVerify TokenPurpose = "account_verify"
)

var (
	// ErrTokenInvalid indicates the token is malformed or signed with the wrong key.
	ErrTokenInvalid = errors.New("jwt: invalid token")
	// ErrTokenExpired indicates the token is past its expiry.
	ErrTokenExpired = errors.New("jwt: token expired")
	// ErrTokenPurposeMismatch indicates the token was issued for a different flow.
	ErrTokenPurposeMismatch = errors.New("jwt: token purpose mismatch")
)

const (
	defaultAccessTokenTTL       = 15 * time.Minute
	defaultVerificationTokenTTL = 30 * time.Minute
)

// AccessTokenClaims carries the authenticated account identity.
type AccessTokenClaims struct {
	AccountID string `json:"uid"`
	jwt.RegisteredClaims
}

// VerificationTokenClaims binds a short-lived token to one verification target.
type VerificationTokenClaims struct {
	Purpose  string `json:"purpose"`
	TargetID string `json:"target"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and parses the service's HMAC-signed tokens.
type TokenIssuer struct {
	secret    []byte
	issuer    string
	accessTTL time.Duration
	verifyTTL time.Duration
}

// NewTokenIssuer constructs a TokenIssuer with the supplied signing secret.
func NewTokenIssuer(secret, issuer string, accessTTL, verifyTTL time.Duration) (*TokenIssuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt: signing secret is required")
	}
	if strings.TrimSpace(issuer) == "" {
		return nil, errors.New("jwt: issuer is required")
	}
	if accessTTL <= 0 {
		accessTTL = defaultAccessTokenTTL
	}
	if verifyTTL <= 0 {
		verifyTTL = defaultVerificationTokenTTL
	}

	return &TokenIssuer{
		secret:    []byte(secret),
		issuer:    issuer,
		accessTTL: accessTTL,
		verifyTTL: verifyTTL,
	}, nil
}

// IssueAccessToken signs an access token for the account. A zero now defaults
// to the current time.
func (i *TokenIssuer) IssueAccessToken(accountID string, now time.Time) (string, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return "", fmt.Errorf("jwt: account id is required")
	}
	now = normalizeIssuedAt(now)

	claims := &AccessTokenClaims{
		AccountID: accountID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.accessTTL)),
			ID:        uuid.NewString(),
		},
	}

	return i.sign(claims)
}

// IssueVerificationToken signs a purpose-scoped token for the verification target.
func (i *TokenIssuer) IssueVerificationToken(purpose TokenPurpose, targetID string, now time.Time) (string, error) {
	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		return "", fmt.Errorf("jwt: target id is required")
	}
	if purpose != PurposeSignupVerify && purpose != PurposeAccountVerify {
		return "", fmt.Errorf("jwt: unsupported verification purpose %q", purpose)
	}
	now = normalizeIssuedAt(now)

	claims := &VerificationTokenClaims{
		Purpose:  string(purpose),
		TargetID: targetID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   targetID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.verifyTTL)),
			ID:        uuid.NewString(),
		},
	}

	return i.sign(claims)
}

// ParseAccessToken validates the signature and registered claims of an access token.
func (i *TokenIssuer) ParseAccessToken(tokenString string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}
	if err := i.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if strings.TrimSpace(claims.AccountID) == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// ParseVerificationToken validates a verification token and enforces its purpose.
func (i *TokenIssuer) ParseVerificationToken(tokenString string, purpose TokenPurpose) (*VerificationTokenClaims, error) {
	claims := &VerificationTokenClaims{}
	if err := i.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if strings.TrimSpace(claims.TargetID) == "" {
		return nil, ErrTokenInvalid
	}
	if claims.Purpose != string(purpose) {
		return nil, ErrTokenPurposeMismatch
	}
	return claims, nil
}

func (i *TokenIssuer) sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}

	return signed, nil
}

func (i *TokenIssuer) parse(tokenString string, claims jwt.Claims) error {
	if strings.TrimSpace(tokenString) == "" {
		return ErrTokenInvalid
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(i.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return ErrTokenInvalid
	}

	return nil
}

func normalizeIssuedAt(now time.Time) time.Time {
	if now.IsZero() {
		return time.Now().UTC()
	}
	return now.UTC()
}

package domain

import "time"

const (
	// CodeLength is the number of digits in a verification code.
	CodeLength = 6
	// CodeTTL is the window in which a verification code can be redeemed.
	CodeTTL = 10 * time.Minute
	// MaxCodeAttempts caps failed comparisons before a code is locked.
	MaxCodeAttempts = 5
)

// VerificationCode mirrors the persisted representation in the verification_codes table.
// Exactly one of PendingID/AccountID is set: a code either confirms a pending
// registration or re-verifies an existing account.
type VerificationCode struct {
	ID          string
	PendingID   *string
	AccountID   *string
	Code        string
	Attempts    int
	ResendCount int
	LastSentAt  time.Time
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// IsExpired reports whether the code has elapsed its validity window. A code
// is still redeemable at the expiry instant itself.
func (c VerificationCode) IsExpired(at time.Time) bool {
	return at.After(c.ExpiresAt)
}

// AttemptsExhausted reports whether failed submissions have locked the code.
func (c VerificationCode) AttemptsExhausted() bool {
	return c.Attempts >= MaxCodeAttempts
}

// Matches compares a submitted value against the stored code.
func (c VerificationCode) Matches(submitted string) bool {
	return c.Code == submitted
}

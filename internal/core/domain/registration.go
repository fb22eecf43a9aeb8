package domain

import (
	"fmt"
	"strings"
	"time"
)

// PendingStatus enumerates possible pending-registration states.
type PendingStatus string

const (
	PendingStatusPending PendingStatus = "pending"
	PendingStatusExpired PendingStatus = "expired"
)

// PendingTTL is the window a signup has to confirm its verification code.
const PendingTTL = 24 * time.Hour

// PendingRegistration mirrors the persisted representation in the pending_registrations table.
type PendingRegistration struct {
	ID           string
	AssignedID   string
	Username     string
	Email        string
	PasswordHash string
	DisplayName  *string
	Gender       string
	Avatar       string
	CreatedAt    time.Time
	ExpiresAt    time.Time
	Status       PendingStatus
}

// IsExpired reports whether the registration window has elapsed.
func (p PendingRegistration) IsExpired(at time.Time) bool {
	return at.After(p.ExpiresAt)
}

// IsLive returns true while the registration can still be verified.
func (p PendingRegistration) IsLive(at time.Time) bool {
	return p.Status == PendingStatusPending && !p.IsExpired(at)
}

// Promote materializes the verified account this registration becomes.
func (p PendingRegistration) Promote(accountID string, at time.Time) Account {
	return Account{
		ID:           accountID,
		AssignedID:   p.AssignedID,
		Username:     p.Username,
		Email:        p.Email,
		PasswordHash: p.PasswordHash,
		DisplayName:  p.DisplayName,
		Gender:       p.Gender,
		Avatar:       p.Avatar,
		IsVerified:   true,
		CreatedAt:    at,
	}
}

const assignedIDPrefixLength = 3

// AssignedIDPrefix derives the human-readable prefix of an assigned id from a
// username: its first three runes, lowercased, padded with 'x' when shorter.
func AssignedIDPrefix(username string) string {
	normalized := strings.ToLower(strings.TrimSpace(username))
	padded := []rune(normalized + strings.Repeat("x", assignedIDPrefixLength))
	return string(padded[:assignedIDPrefixLength])
}

// NormalizeGender constrains free-form gender input to the supported set.
func NormalizeGender(gender string) string {
	switch strings.ToLower(strings.TrimSpace(gender)) {
	case "male":
		return "male"
	case "female":
		return "female"
	default:
		return "other"
	}
}

// DefaultAvatar returns the stock avatar reference for a gender.
func DefaultAvatar(gender string) string {
	return fmt.Sprintf("avatars/%s_default.png", NormalizeGender(gender))
}

// PasswordContext carries user-supplied values a password must not resemble.
type PasswordContext struct {
	Username string
	Email    string
}

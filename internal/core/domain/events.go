package domain

import "time"

// RegistrationStartedEvent represents the payload for identity.registration.started messages.
type RegistrationStartedEvent struct {
	EventID     string
	PendingID   string
	AssignedID  string
	Username    string
	MaskedEmail string
	StartedAt   time.Time
	ExpiresAt   time.Time
	Metadata    map[string]any
}

// AccountRegisteredEvent represents the payload for identity.account.registered messages.
type AccountRegisteredEvent struct {
	EventID      string
	AccountID    string
	AssignedID   string
	Username     string
	MaskedEmail  string
	RegisteredAt time.Time
	Metadata     map[string]any
}

// AccountVerifiedEvent represents the payload for identity.account.verified messages.
type AccountVerifiedEvent struct {
	EventID     string
	AccountID   string
	Username    string
	MaskedEmail string
	VerifiedAt  time.Time
	Metadata    map[string]any
}

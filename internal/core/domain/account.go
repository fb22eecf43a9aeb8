package domain

import "time"

// Account mirrors the persisted representation in the accounts table.
type Account struct {
	ID           string
	AssignedID   string
	Username     string
	Email        string
	PasswordHash string
	DisplayName  *string
	Gender       string
	Avatar       string
	IsVerified   bool
	CreatedAt    time.Time
}

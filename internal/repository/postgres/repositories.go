package postgres

import "github.com/jackc/pgx/v5/pgxpool"

// Repositories groups concrete PostgreSQL repository implementations.
type Repositories struct {
	Pendings *PendingRegistrationRepository
	Codes    *VerificationCodeRepository
	Accounts *AccountRepository
}

// NewRepositories wires all repositories backed by the provided pool.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Pendings: NewPendingRegistrationRepository(pool),
		Codes:    NewVerificationCodeRepository(pool),
		Accounts: NewAccountRepository(pool),
	}
}

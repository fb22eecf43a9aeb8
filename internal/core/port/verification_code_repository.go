package port

import (
	"context"
	"time"

	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/core/domain"
)

// VerificationCodeRepository manages verification code records for both
// pending registrations and existing accounts.
type VerificationCodeRepository interface {
	Create(ctx context.Context, code domain.VerificationCode) error
	LatestForPending(ctx context.Context, pendingID string) (*domain.VerificationCode, error)
	LatestForAccount(ctx context.Context, accountID string) (*domain.VerificationCode, error)
	DeleteForPending(ctx context.Context, pendingID string) (int64, error)
	DeleteForAccount(ctx context.Context, accountID string) (int64, error)
	IncrementAttempts(ctx context.Context, id string) (int, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

package port

import (
	"context"

	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/core/domain"
)

// AccountRepository exposes persistence behavior for verified accounts.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	FindByUsernameOrEmail(ctx context.Context, identifier string) (*domain.Account, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	AssignedIDExists(ctx context.Context, assignedID string) (bool, error)
	SetVerified(ctx context.Context, id string) error
	// PromotePending atomically inserts the account, deletes the pending
	// registration's verification codes, and deletes the pending row itself.
	PromotePending(ctx context.Context, pendingID string, account domain.Account) error
}

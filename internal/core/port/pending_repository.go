package port

import (
	"context"
	"time"

	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/core/domain"
)

// PendingRegistrationRepository exposes persistence behavior for pending registrations.
type PendingRegistrationRepository interface {
	Create(ctx context.Context, pending domain.PendingRegistration) error
	GetByID(ctx context.Context, id string) (*domain.PendingRegistration, error)
	FindLiveByEmail(ctx context.Context, email string, at time.Time) (*domain.PendingRegistration, error)
	FindLiveByUsername(ctx context.Context, username string, at time.Time) (*domain.PendingRegistration, error)
	AssignedIDExists(ctx context.Context, assignedID string) (bool, error)
	MarkExpired(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

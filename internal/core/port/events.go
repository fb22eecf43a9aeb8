package port

import (
	"context"

	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/core/domain"
)

// EventPublisher publishes domain events to the message bus.
type EventPublisher interface {
	PublishRegistrationStarted(ctx context.Context, event domain.RegistrationStartedEvent) error
	PublishAccountRegistered(ctx context.Context, event domain.AccountRegisteredEvent) error
	PublishAccountVerified(ctx context.Context, event domain.AccountVerifiedEvent) error
}

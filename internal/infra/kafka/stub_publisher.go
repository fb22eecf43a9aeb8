package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/core/domain"
	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, accountID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("account_id", accountID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishRegistrationStarted logs identity.registration.started events.
func (p *StubPublisher) PublishRegistrationStarted(_ context.Context, event domain.RegistrationStartedEvent) error {
	payload := map[string]any{
		"pending_id":   event.PendingID,
		"assigned_id":  event.AssignedID,
		"username":     event.Username,
		"masked_email": event.MaskedEmail,
		"started_at":   event.StartedAt,
		"expires_at":   event.ExpiresAt,
		"metadata":     event.Metadata,
	}
	p.logEvent("identity.registration.started", "", event.StartedAt, payload)
	return nil
}

// PublishAccountRegistered logs identity.account.registered events.
func (p *StubPublisher) PublishAccountRegistered(_ context.Context, event domain.AccountRegisteredEvent) error {
	payload := map[string]any{
		"account_id":    event.AccountID,
		"assigned_id":   event.AssignedID,
		"username":      event.Username,
		"masked_email":  event.MaskedEmail,
		"registered_at": event.RegisteredAt,
		"metadata":      event.Metadata,
	}
	p.logEvent("identity.account.registered", event.AccountID, event.RegisteredAt, payload)
	return nil
}

// PublishAccountVerified logs identity.account.verified events.
func (p *StubPublisher) PublishAccountVerified(_ context.Context, event domain.AccountVerifiedEvent) error {
	payload := map[string]any{
		"account_id":   event.AccountID,
		"username":     event.Username,
		"masked_email": event.MaskedEmail,
		"verified_at":  event.VerifiedAt,
		"metadata":     event.Metadata,
	}
	p.logEvent("identity.account.verified", event.AccountID, event.VerifiedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)

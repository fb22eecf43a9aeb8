package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/core/domain"
	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/core/port"
	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/infra/config"
)

const (
	schemaVersion = "1.0"

	// eventsTopic is the suffix of the single identity lifecycle topic; the
	// producer prepends the configured topic prefix.
	eventsTopic = "identity.events"
)

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	AccountID string           `json:"account_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, accountID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		AccountID: accountID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventsTopic),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishRegistrationStarted publishes identity.registration.started events.
func (p *EventPublisher) PublishRegistrationStarted(ctx context.Context, event domain.RegistrationStartedEvent) error {
	payload := struct {
		PendingID   string         `json:"pending_id"`
		AssignedID  string         `json:"assigned_id"`
		Username    string         `json:"username"`
		MaskedEmail string         `json:"masked_email"`
		StartedAt   time.Time      `json:"started_at"`
		ExpiresAt   time.Time      `json:"expires_at"`
		Metadata    map[string]any `json:"metadata,omitempty"`
	}{
		PendingID:   event.PendingID,
		AssignedID:  event.AssignedID,
		Username:    event.Username,
		MaskedEmail: event.MaskedEmail,
		StartedAt:   event.StartedAt.UTC(),
		ExpiresAt:   event.ExpiresAt.UTC(),
		Metadata:    event.Metadata,
	}

	return p.publish(ctx, event.EventID, "identity.registration.started", "", event.StartedAt, payload)
}

// PublishAccountRegistered publishes identity.account.registered events.
func (p *EventPublisher) PublishAccountRegistered(ctx context.Context, event domain.AccountRegisteredEvent) error {
	payload := struct {
		AccountID    string         `json:"account_id"`
		AssignedID   string         `json:"assigned_id"`
		Username     string         `json:"username"`
		MaskedEmail  string         `json:"masked_email"`
		RegisteredAt time.Time      `json:"registered_at"`
		Metadata     map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:    event.AccountID,
		AssignedID:   event.AssignedID,
		Username:     event.Username,
		MaskedEmail:  event.MaskedEmail,
		RegisteredAt: event.RegisteredAt.UTC(),
		Metadata:     event.Metadata,
	}

	return p.publish(ctx, event.EventID, "identity.account.registered", event.AccountID, event.RegisteredAt, payload)
}

// PublishAccountVerified publishes identity.account.verified events.
func (p *EventPublisher) PublishAccountVerified(ctx context.Context, event domain.AccountVerifiedEvent) error {
	payload := struct {
		AccountID   string         `json:"account_id"`
		Username    string         `json:"username"`
		MaskedEmail string         `json:"masked_email"`
		VerifiedAt  time.Time      `json:"verified_at"`
		Metadata    map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:   event.AccountID,
		Username:    event.Username,
		MaskedEmail: event.MaskedEmail,
		VerifiedAt:  event.VerifiedAt.UTC(),
		Metadata:    event.Metadata,
	}

	return p.publish(ctx, event.EventID, "identity.account.verified", event.AccountID, event.VerifiedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)

package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap/zaptest"

	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/core/domain"
	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/infra/config"
)

type fakeAsyncProducer struct {
	input  chan *sarama.ProducerMessage
	errors chan *sarama.ProducerError
}

func newFakeAsyncProducer() *fakeAsyncProducer {
	return &fakeAsyncProducer{
		input:  make(chan *sarama.ProducerMessage, 1),
		errors: make(chan *sarama.ProducerError, 1),
	}
}

func (f *fakeAsyncProducer) AsyncClose() {}

func (f *fakeAsyncProducer) Close() error { return nil }

func (f *fakeAsyncProducer) Input() chan<- *sarama.ProducerMessage { return f.input }

func (f *fakeAsyncProducer) Successes() <-chan *sarama.ProducerMessage { return nil }

func (f *fakeAsyncProducer) Errors() <-chan *sarama.ProducerError { return f.errors }

func (f *fakeAsyncProducer) IsTransactional() bool { return false }

func (f *fakeAsyncProducer) BeginTxn() error { return nil }

func (f *fakeAsyncProducer) CommitTxn() error { return nil }

func (f *fakeAsyncProducer) AbortTxn() error { return nil }

func (f *fakeAsyncProducer) AddOffsetsToTxn(offsets map[string][]*sarama.PartitionOffsetMetadata, groupID string) error {
	return nil
}

func (f *fakeAsyncProducer) AddMessageToTxn(msg *sarama.ConsumerMessage, groupID string, metadata *string) error {
	return nil
}

func (f *fakeAsyncProducer) TxnStatus() sarama.ProducerTxnStatusFlag {
	return sarama.ProducerTxnStatusFlag(0)
}

func newTestPublisher(t *testing.T, asyncProducer sarama.AsyncProducer) *EventPublisher {
	t.Helper()

	producer := &Producer{
		producer: asyncProducer,
		logger:   zaptest.NewLogger(t),
		cfg: config.KafkaSettings{
			TopicPrefix: "swapsavvy",
		},
		errChan: make(chan error, 1),
		done:    make(chan struct{}),
	}

	return NewEventPublisher(producer, config.AppSettings{
		Name: "swapsavvy-api",
		Env:  "test",
	}, zaptest.NewLogger(t))
}

func TestPublishRegistrationStarted(t *testing.T) {
	asyncProducer := newFakeAsyncProducer()
	publisher := newTestPublisher(t, asyncProducer)

	startedAt := time.Date(2026, 2, 14, 9, 0, 0, 0, time.UTC)
	event := domain.RegistrationStartedEvent{
		EventID:     "event-123",
		PendingID:   "pending-456",
		AssignedID:  "joh4821",
		Username:    "johndoe",
		MaskedEmail: "joh***@example.com",
		StartedAt:   startedAt,
		ExpiresAt:   startedAt.Add(24 * time.Hour),
		Metadata:    map[string]any{"source": "unit-test"},
	}

	if err := publisher.PublishRegistrationStarted(context.Background(), event); err != nil {
		t.Fatalf("PublishRegistrationStarted returned error: %v", err)
	}

	select {
	case msg := <-asyncProducer.input:
		if msg.Topic != "swapsavvy.identity.events" {
			t.Fatalf("unexpected topic: %s", msg.Topic)
		}

		bytes, err := msg.Value.Encode()
		if err != nil {
			t.Fatalf("Value.Encode returned error: %v", err)
		}

		var envelope map[string]any
		if err := json.Unmarshal(bytes, &envelope); err != nil {
			t.Fatalf("failed to unmarshal envelope: %v", err)
		}

		if got := envelope["event_type"]; got != "identity.registration.started" {
			t.Fatalf("unexpected event_type: %v", got)
		}

		if _, present := envelope["account_id"]; present {
			t.Fatalf("expected account_id to be omitted before promotion, got %v", envelope["account_id"])
		}

		timestamp, ok := envelope["timestamp"].(string)
		if !ok {
			t.Fatalf("timestamp not a string: %T", envelope["timestamp"])
		}
		if timestamp != startedAt.Format(time.RFC3339Nano) {
			t.Fatalf("unexpected timestamp: %s", timestamp)
		}

		payload, ok := envelope["payload"].(map[string]any)
		if !ok {
			t.Fatalf("payload not a map: %T", envelope["payload"])
		}

		if got := payload["pending_id"]; got != event.PendingID {
			t.Fatalf("unexpected pending_id: %v", got)
		}
		if got := payload["assigned_id"]; got != event.AssignedID {
			t.Fatalf("unexpected assigned_id: %v", got)
		}
		if got := payload["masked_email"]; got != event.MaskedEmail {
			t.Fatalf("unexpected masked_email: %v", got)
		}

		metadata, ok := payload["metadata"].(map[string]any)
		if !ok {
			t.Fatalf("metadata not a map: %T", payload["metadata"])
		}
		if metadata["source"] != "unit-test" {
			t.Fatalf("metadata did not round-trip: %v", metadata)
		}

		envelopeMetadata, ok := envelope["metadata"].(map[string]any)
		if !ok {
			t.Fatalf("envelope metadata not a map: %T", envelope["metadata"])
		}
		if envelopeMetadata["service"] != "swapsavvy-api" {
			t.Fatalf("unexpected metadata service: %v", envelopeMetadata["service"])
		}
		if envelopeMetadata["environment"] != "test" {
			t.Fatalf("unexpected metadata environment: %v", envelopeMetadata["environment"])
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message on async producer input channel")
	}
}

func TestPublishAccountRegistered(t *testing.T) {
	asyncProducer := newFakeAsyncProducer()
	publisher := newTestPublisher(t, asyncProducer)

	registeredAt := time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC)
	event := domain.AccountRegisteredEvent{
		EventID:      "event-456",
		AccountID:    "account-789",
		AssignedID:   "joh4821",
		Username:     "johndoe",
		MaskedEmail:  "joh***@example.com",
		RegisteredAt: registeredAt,
	}

	if err := publisher.PublishAccountRegistered(context.Background(), event); err != nil {
		t.Fatalf("PublishAccountRegistered returned error: %v", err)
	}

	select {
	case msg := <-asyncProducer.input:
		if msg.Topic != "swapsavvy.identity.events" {
			t.Fatalf("unexpected topic: %s", msg.Topic)
		}

		bytes, err := msg.Value.Encode()
		if err != nil {
			t.Fatalf("Value.Encode returned error: %v", err)
		}

		var envelope map[string]any
		if err := json.Unmarshal(bytes, &envelope); err != nil {
			t.Fatalf("failed to unmarshal envelope: %v", err)
		}

		if got := envelope["event_type"]; got != "identity.account.registered" {
			t.Fatalf("unexpected event_type: %v", got)
		}
		if got := envelope["account_id"]; got != event.AccountID {
			t.Fatalf("unexpected account_id: %v", got)
		}

		payload, ok := envelope["payload"].(map[string]any)
		if !ok {
			t.Fatalf("payload not a map: %T", envelope["payload"])
		}

		if got := payload["account_id"]; got != event.AccountID {
			t.Fatalf("unexpected payload.account_id: %v", got)
		}

		registeredAtValue, ok := payload["registered_at"].(string)
		if !ok {
			t.Fatalf("registered_at not a string: %T", payload["registered_at"])
		}
		if registeredAtValue != registeredAt.Format(time.RFC3339Nano) {
			t.Fatalf("unexpected registered_at: %s", registeredAtValue)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message on async producer input channel")
	}
}

func TestPublishAccountVerifiedCancelledContext(t *testing.T) {
	blocked := &fakeAsyncProducer{
		input:  make(chan *sarama.ProducerMessage),
		errors: make(chan *sarama.ProducerError, 1),
	}
	publisher := newTestPublisher(t, blocked)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := publisher.PublishAccountVerified(ctx, domain.AccountVerifiedEvent{
		AccountID:  "account-789",
		Username:   "johndoe",
		VerifiedAt: time.Now(),
	})
	if err == nil {
		t.Fatal("expected context error when producer input is blocked")
	}
}

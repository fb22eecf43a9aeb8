package mail

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/infra/config"
)

func TestNewDispatcherSelectsDriver(t *testing.T) {
	log := zap.NewNop()

	if _, ok := NewDispatcher(config.MailSettings{Driver: "smtp"}, log).(*SMTPDispatcher); !ok {
		t.Fatal("expected smtp driver to build an SMTPDispatcher")
	}

	if _, ok := NewDispatcher(config.MailSettings{Driver: "log"}, log).(*LogDispatcher); !ok {
		t.Fatal("expected log driver to build a LogDispatcher")
	}

	if _, ok := NewDispatcher(config.MailSettings{}, log).(*LogDispatcher); !ok {
		t.Fatal("expected empty driver to fall back to LogDispatcher")
	}
}

func TestLogDispatcherNeverFails(t *testing.T) {
	dispatcher := NewLogDispatcher(zap.NewNop())
	ctx := context.Background()

	if err := dispatcher.SendVerificationCode(ctx, "user@example.com", "user", "123456"); err != nil {
		t.Fatalf("SendVerificationCode returned error: %v", err)
	}
	if err := dispatcher.SendWelcome(ctx, "user@example.com", "user"); err != nil {
		t.Fatalf("SendWelcome returned error: %v", err)
	}
}

func TestNilLoggerFallsBackToNoop(t *testing.T) {
	dispatcher := NewLogDispatcher(nil)
	ctx := context.Background()

	if err := dispatcher.SendVerificationCode(ctx, "user@example.com", "user", "123456"); err != nil {
		t.Fatalf("SendVerificationCode returned error: %v", err)
	}
	if err := dispatcher.SendWelcome(ctx, "user@example.com", "user"); err != nil {
		t.Fatalf("SendWelcome returned error: %v", err)
	}
}

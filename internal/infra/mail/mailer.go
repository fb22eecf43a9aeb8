package mail

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	gomail "gopkg.in/gomail.v2"

	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/core/port"
	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/infra/config"
	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/infra/logger"
)

const (
	verificationSubject = "SwapSavvy Pro — Email Verification Code"
	welcomeSubject      = "Welcome to SwapSavvy Pro!"
)

// NewDispatcher selects the mail driver from configuration. Anything other
// than "smtp" falls back to the logging driver so development environments
// never need a relay.
func NewDispatcher(cfg config.MailSettings, log *zap.Logger) port.NotificationDispatcher {
	if cfg.Driver == "smtp" {
		return NewSMTPDispatcher(cfg, log)
	}
	return NewLogDispatcher(log)
}

// SMTPDispatcher delivers notification emails through an SMTP relay.
type SMTPDispatcher struct {
	dialer *gomail.Dialer
	sender string
	log    *zap.Logger
}

// NewSMTPDispatcher constructs a dispatcher connected to the configured relay.
func NewSMTPDispatcher(cfg config.MailSettings, log *zap.Logger) *SMTPDispatcher {
	return &SMTPDispatcher{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		sender: cfg.Sender,
		log:    log,
	}
}

// SendVerificationCode emails the verification code to the recipient.
func (d *SMTPDispatcher) SendVerificationCode(ctx context.Context, email, username, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", d.sender)
	m.SetHeader("To", email)
	m.SetHeader("Subject", verificationSubject)
	m.SetBody("text/plain", fmt.Sprintf(
		"Hi %s,\n\nYour verification code is: %s\n\nThis code will expire in 10 minutes.",
		username, code,
	))
	m.AddAlternative("text/html", fmt.Sprintf(`
		<h2>SwapSavvy Pro Email Verification</h2>
		<p>Hi %s,</p>
		<p>Your verification code is: <strong>%s</strong></p>
		<p>This code will expire in 10 minutes.</p>
	`, username, code))

	if err := d.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}

	if d.log != nil {
		d.log.Debug("verification email dispatched",
			zap.String("email", logger.MaskEmail(email)),
			zap.String("code", logger.MaskString(code)),
		)
	}

	return nil
}

// SendWelcome emails the post-verification welcome message.
func (d *SMTPDispatcher) SendWelcome(ctx context.Context, email, username string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", d.sender)
	m.SetHeader("To", email)
	m.SetHeader("Subject", welcomeSubject)
	m.SetBody("text/plain", fmt.Sprintf(
		"Hi %s,\n\nWelcome to SwapSavvy Pro! Your account has been successfully created.",
		username,
	))
	m.AddAlternative("text/html", fmt.Sprintf(`
		<h2>Welcome to SwapSavvy Pro!</h2>
		<p>Hi %s,</p>
		<p>Your account has been successfully created and verified.</p>
		<p>Start exploring the platform and connect with other professionals!</p>
	`, username))

	if err := d.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send welcome email: %w", err)
	}

	if d.log != nil {
		d.log.Debug("welcome email dispatched", zap.String("email", logger.MaskEmail(email)))
	}

	return nil
}

// LogDispatcher records notification dispatch events instead of delivering them.
type LogDispatcher struct {
	log *zap.Logger
}

// NewLogDispatcher constructs a dispatcher backed by structured logging.
func NewLogDispatcher(log *zap.Logger) port.NotificationDispatcher {
	if log == nil {
		return noopDispatcher{}
	}
	return &LogDispatcher{log: log}
}

func (d *LogDispatcher) SendVerificationCode(_ context.Context, email, username, code string) error {
	if d == nil || d.log == nil {
		return nil
	}

	d.log.Info("dispatch verification code",
		zap.String("email", email),
		zap.String("username", username),
		zap.String("code", code),
	)
	return nil
}

func (d *LogDispatcher) SendWelcome(_ context.Context, email, username string) error {
	if d == nil || d.log == nil {
		return nil
	}

	d.log.Info("dispatch welcome email",
		zap.String("email", email),
		zap.String("username", username),
	)
	return nil
}

type noopDispatcher struct{}

func (noopDispatcher) SendVerificationCode(context.Context, string, string, string) error {
	return nil
}

func (noopDispatcher) SendWelcome(context.Context, string, string) error { return nil }

var (
	_ port.NotificationDispatcher = (*SMTPDispatcher)(nil)
	_ port.NotificationDispatcher = (*LogDispatcher)(nil)
	_ port.NotificationDispatcher = noopDispatcher{}
)

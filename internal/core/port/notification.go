package port

import "context"

// NotificationDispatcher delivers transactional email for the verification lifecycle.
// A non-nil error means the message was not handed off; callers decide whether
// that unwinds the surrounding operation.
type NotificationDispatcher interface {
	SendVerificationCode(ctx context.Context, email, username, code string) error
	SendWelcome(ctx context.Context, email, username string) error
}

package port

import "github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/core/domain"

// PasswordPolicyValidator enforces password strength requirements.
type PasswordPolicyValidator interface {
	Validate(password string, ctx domain.PasswordContext) error
}

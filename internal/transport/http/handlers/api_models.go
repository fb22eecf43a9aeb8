package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/core/domain"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// AccountSummary describes the public view of an account returned by the API.
type AccountSummary struct {
	ID          string  `json:"id"`
	AssignedID  string  `json:"assigned_id"`
	Username    string  `json:"username"`
	Email       string  `json:"email"`
	DisplayName *string `json:"display_name,omitempty"`
	Gender      string  `json:"gender"`
	Avatar      string  `json:"avatar"`
	IsVerified  bool    `json:"is_verified"`
	CreatedAt   string  `json:"created_at"`
}

func newAccountSummary(account domain.Account) AccountSummary {
	return AccountSummary{
		ID:          account.ID,
		AssignedID:  account.AssignedID,
		Username:    account.Username,
		Email:       account.Email,
		DisplayName: account.DisplayName,
		Gender:      account.Gender,
		Avatar:      account.Avatar,
		IsVerified:  account.IsVerified,
		CreatedAt:   account.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// PendingSummary describes a signup awaiting code confirmation.
type PendingSummary struct {
	AssignedID string `json:"assigned_id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	ExpiresAt  string `json:"expires_at"`
}

func newPendingSummary(pending domain.PendingRegistration) PendingSummary {
	return PendingSummary{
		AssignedID: pending.AssignedID,
		Username:   pending.Username,
		Email:      pending.Email,
		ExpiresAt:  pending.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

// SignupRequest defines the account registration payload.
type SignupRequest struct {
	Username    string `json:"username" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"display_name"`
	Gender      string `json:"gender"`
}

// SignupResponse contains the pending registration and the verification next step.
type SignupResponse struct {
	Pending           PendingSummary `json:"pending"`
	VerificationToken string         `json:"verification_token"`
	Message           string         `json:"message"`
	// DevCode is ONLY populated in development mode; in production the code
	// travels exclusively by email.
	DevCode *string `json:"dev_code,omitempty"`
}

// VerifyRequest holds the submitted verification code.
type VerifyRequest struct {
	Code string `json:"code" binding:"required"`
}

// VerifyResponse is returned after a successful promotion.
type VerifyResponse struct {
	Message string         `json:"message"`
	Account AccountSummary `json:"account"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

// LoginResponse describes the response returned for a successful login.
type LoginResponse struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	ExpiresIn   int64          `json:"expires_in"`
	Account     AccountSummary `json:"account"`
}

// LoginPendingResponse is returned when a login hits an unverified account. A
// fresh code is emailed and the token drives the verify-account step.
type LoginPendingResponse struct {
	Message           string         `json:"message"`
	Account           AccountSummary `json:"account"`
	VerificationToken string         `json:"verification_token"`
}

// HealthResponse reports liveness information.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse aggregates readiness check outcomes per dependency.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

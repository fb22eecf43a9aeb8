package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/usecase"
)

// RegistrationHandler exposes the signup and verification-code endpoints.
type RegistrationHandler struct {
	registration *usecase.RegistrationService
	verification *usecase.VerificationService
	auth         *usecase.AuthService
	isDev        bool
}

// NewRegistrationHandler builds the handler. The isDev flag controls whether
// plaintext codes are echoed back in responses for local testing.
func NewRegistrationHandler(
	registration *usecase.RegistrationService,
	verification *usecase.VerificationService,
	auth *usecase.AuthService,
	isDev bool,
) *RegistrationHandler {
	return &RegistrationHandler{
		registration: registration,
		verification: verification,
		auth:         auth,
		isDev:        isDev,
	}
}

// RegisterRoutes binds registration and verification endpoints.
func (h *RegistrationHandler) RegisterRoutes(r *gin.RouterGroup, signupMiddlewares, resendMiddlewares []gin.HandlerFunc) {
	signup := append([]gin.HandlerFunc{}, signupMiddlewares...)
	signup = append(signup, h.Signup)
	r.POST("/signup", signup...)

	r.POST("/verify", h.Verify)
	r.POST("/verify-account", h.VerifyAccount)

	resend := append([]gin.HandlerFunc{}, resendMiddlewares...)
	r.POST("/resend", append(append([]gin.HandlerFunc{}, resend...), h.Resend)...)
	r.POST("/resend-account", append(append([]gin.HandlerFunc{}, resend...), h.ResendAccount)...)
}

// Signup godoc
// @Summary Register a new account
// @Description Creates a pending registration and emails a six-digit verification code.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body SignupRequest true "Signup request"
// @Success 201 {object} SignupResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /api/v1/auth/signup [post]
func (h *RegistrationHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid signup payload"))
		return
	}

	result, err := h.registration.RegisterUser(c.Request.Context(), usecase.RegisterUserInput{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Gender:      req.Gender,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrEmailTaken, Status: http.StatusConflict, Message: "email already registered"},
			{Err: usecase.ErrUsernameTaken, Status: http.StatusConflict, Message: "username already taken"},
			{Err: usecase.ErrPasswordPolicyViolation, Status: http.StatusBadRequest, Message: "password does not meet requirements"},
			{Err: usecase.ErrDeliveryFailure, Status: http.StatusBadGateway, Message: "failed to deliver verification email, please try again"},
		}, http.StatusInternalServerError, "failed to register")
		return
	}

	resp := SignupResponse{
		Pending:           newPendingSummary(result.Pending),
		VerificationToken: result.VerificationToken,
		Message:           "verification code sent",
	}
	if h.isDev {
		if code := strings.TrimSpace(result.Code); code != "" {
			resp.DevCode = &code
		}
	}

	c.JSON(http.StatusCreated, resp)
}

// Verify godoc
// @Summary Confirm a pending registration
// @Description Checks the submitted code and promotes the pending registration into a verified account.
// @Tags Auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body VerifyRequest true "Verification request"
// @Success 200 {object} VerifyResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 410 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /api/v1/auth/verify [post]
func (h *RegistrationHandler) Verify(c *gin.Context) {
	pendingID, ok := h.resolvePendingID(c)
	if !ok {
		return
	}

	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid verification payload"))
		return
	}

	account, err := h.verification.CheckCode(c.Request.Context(), pendingID, req.Code)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrPendingNotFound, Status: http.StatusNotFound, Message: "registration not found, please sign up again"},
			{Err: usecase.ErrCodeExpired, Status: http.StatusGone, Message: "verification code expired, request a new one"},
			{Err: usecase.ErrTooManyAttempts, Status: http.StatusTooManyRequests, Message: "too many failed attempts, request a new code"},
			{Err: usecase.ErrCodeMismatch, Status: http.StatusBadRequest, Message: "incorrect verification code"},
			{Err: usecase.ErrAccountExists, Status: http.StatusConflict, Message: "account already exists, please log in"},
		}, http.StatusInternalServerError, "verification failed")
		return
	}

	c.JSON(http.StatusOK, VerifyResponse{
		Message: "account verified",
		Account: newAccountSummary(account),
	})
}

// Resend godoc
// @Summary Resend a verification code
// @Description Issues and emails a fresh code for the pending registration, subject to the resend throttle.
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} MessageResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 410 {object} ErrorResponse
// @Failure 429 {object} ThrottleProblem
// @Failure 502 {object} ErrorResponse
// @Router /api/v1/auth/resend [post]
func (h *RegistrationHandler) Resend(c *gin.Context) {
	pendingID, ok := h.resolvePendingID(c)
	if !ok {
		return
	}

	if _, err := h.verification.RequestResend(c.Request.Context(), pendingID); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrPendingNotFound, Status: http.StatusNotFound, Message: "registration not found, please sign up again"},
			{Err: usecase.ErrPendingExpired, Status: http.StatusGone, Message: "registration expired, please sign up again"},
			{Err: usecase.ErrDeliveryFailure, Status: http.StatusBadGateway, Message: "failed to deliver verification email, please try again"},
		}, http.StatusInternalServerError, "failed to resend code")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "verification code sent"})
}

// VerifyAccount godoc
// @Summary Verify an existing account
// @Description Confirms the code emailed to an unverified account after a login attempt.
// @Tags Auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body VerifyRequest true "Verification request"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 410 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /api/v1/auth/verify-account [post]
func (h *RegistrationHandler) VerifyAccount(c *gin.Context) {
	accountID, ok := h.resolveAccountID(c)
	if !ok {
		return
	}

	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid verification payload"))
		return
	}

	if err := h.verification.CheckAccountCode(c.Request.Context(), accountID, req.Code); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
			{Err: usecase.ErrAccountAlreadyVerified, Status: http.StatusConflict, Message: "account already verified, please log in"},
			{Err: usecase.ErrCodeExpired, Status: http.StatusGone, Message: "verification code expired, request a new one"},
			{Err: usecase.ErrTooManyAttempts, Status: http.StatusTooManyRequests, Message: "too many failed attempts, request a new code"},
			{Err: usecase.ErrCodeMismatch, Status: http.StatusBadRequest, Message: "incorrect verification code"},
		}, http.StatusInternalServerError, "verification failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "account verified, you can now log in"})
}

// ResendAccount godoc
// @Summary Resend a verification code for an existing account
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} MessageResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 429 {object} ThrottleProblem
// @Failure 502 {object} ErrorResponse
// @Router /api/v1/auth/resend-account [post]
func (h *RegistrationHandler) ResendAccount(c *gin.Context) {
	accountID, ok := h.resolveAccountID(c)
	if !ok {
		return
	}

	if _, err := h.verification.RequestAccountResend(c.Request.Context(), accountID); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "account not found"},
			{Err: usecase.ErrAccountAlreadyVerified, Status: http.StatusConflict, Message: "account already verified, please log in"},
			{Err: usecase.ErrDeliveryFailure, Status: http.StatusBadGateway, Message: "failed to deliver verification email, please try again"},
		}, http.StatusInternalServerError, "failed to resend code")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "verification code sent"})
}

func (h *RegistrationHandler) resolvePendingID(c *gin.Context) (string, bool) {
	token, ok := bearerToken(c)
	if !ok {
		return "", false
	}

	pendingID, err := h.auth.ResolvePendingID(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid or expired verification token"))
		return "", false
	}

	return pendingID, true
}

func (h *RegistrationHandler) resolveAccountID(c *gin.Context) (string, bool) {
	token, ok := bearerToken(c)
	if !ok {
		return "", false
	}

	accountID, err := h.auth.ResolveAccountID(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid or expired verification token"))
		return "", false
	}

	return accountID, true
}

// bearerToken extracts the Authorization bearer credential, responding with
// 401 itself when the header is missing or malformed.
func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "missing authorization header"))
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid authorization format: expected 'Bearer <token>'"))
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "missing token"))
		return "", false
	}

	return token, true
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/transport/http/middleware"
	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/usecase"
)

// AuthHandler exposes login and the authenticated account endpoint.
type AuthHandler struct {
	auth *usecase.AuthService
}

// NewAuthHandler builds an AuthHandler.
func NewAuthHandler(auth *usecase.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Login godoc
// @Summary Authenticate with username or email
// @Description Issues an access token. Unverified accounts receive 403 with a verification token and a fresh emailed code.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} LoginPendingResponse
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	result, err := h.auth.Authenticate(c.Request.Context(), req.Identifier, req.Password)
	if err != nil {
		var authErr *usecase.AuthenticationError
		if errors.As(err, &authErr) {
			switch {
			case errors.Is(authErr.Err, usecase.ErrAccountPending) && authErr.Account != nil:
				c.JSON(http.StatusForbidden, LoginPendingResponse{
					Message:           "account pending verification, a code has been emailed",
					Account:           newAccountSummary(*authErr.Account),
					VerificationToken: authErr.VerificationToken,
				})
			default:
				c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid username/email or password"))
			}
			return
		}

		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "login failed"))
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		AccessToken: result.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   result.ExpiresIn,
		Account:     newAccountSummary(result.Account),
	})
}

// Me godoc
// @Summary Current account
// @Description Returns the account identified by the access token.
// @Tags Accounts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} AccountSummary
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/accounts/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	accountID, ok := middleware.GetAuthenticatedAccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	account, err := h.auth.GetAccount(c.Request.Context(), accountID)
	if err != nil {
		if errors.Is(err, usecase.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, NewErrorResponse(c, "account not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to load account"))
		return
	}

	c.JSON(http.StatusOK, newAccountSummary(account))
}

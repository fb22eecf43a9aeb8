package handlers

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nikhilrawat2005/MINI-PROJECT-SWAPSAVVY/internal/usecase"
)

const (
	throttleProblemType  = "https://api.swapsavvy.example.com/errors/rate-limit-exceeded"
	throttleProblemTitle = "Rate Limit Exceeded"
)

// ErrorCase maps a sentinel error to an HTTP status code and response message.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// RespondWithMappedError resolves the provided error against known cases or falls back to a generic response.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	var rateLimited *usecase.RateLimitExceededError
	if errors.As(err, &rateLimited) {
		RespondRateLimited(c, rateLimited)
		return
	}

	for _, cs := range cases {
		if cs.Err == nil {
			continue
		}
		if errors.Is(err, cs.Err) {
			c.JSON(cs.Status, NewErrorResponse(c, cs.Message))
			return
		}
	}

	c.JSON(fallbackStatus, NewErrorResponse(c, fallbackMessage))
}

// ThrottleProblem is the RFC 9457 payload returned when a verification resend
// throttle rejects the request.
type ThrottleProblem struct {
	Type       string `json:"type"`
	Title      string `json:"title"`
	Status     int    `json:"status"`
	Detail     string `json:"detail"`
	Instance   string `json:"instance"`
	Scope      string `json:"scope,omitempty"`
	RetryAfter int    `json:"retry_after"`
	TraceID    string `json:"trace_id,omitempty"`
}

// RespondRateLimited renders a throttled operation as 429 with Retry-After.
func RespondRateLimited(c *gin.Context, err *usecase.RateLimitExceededError) {
	retrySeconds := int(math.Ceil(err.RetryAfter.Seconds()))
	if retrySeconds < 0 {
		retrySeconds = 0
	}

	instance := c.FullPath()
	if instance == "" {
		instance = c.Request.URL.Path
	}

	if retrySeconds > 0 {
		c.Writer.Header().Set("Retry-After", strconv.Itoa(retrySeconds))
	}

	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	c.JSON(http.StatusTooManyRequests, ThrottleProblem{
		Type:       throttleProblemType,
		Title:      throttleProblemTitle,
		Status:     http.StatusTooManyRequests,
		Detail:     fmt.Sprintf("Too many resend requests. Try again in %d seconds.", retrySeconds),
		Instance:   instance,
		Scope:      err.Scope,
		RetryAfter: retrySeconds,
		TraceID:    traceIDStr,
	})
}

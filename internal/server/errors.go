package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/shopforge/invoicepress/internal/apperr"
)

type errorPayload struct {
	Type    string   `json:"type"`
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

// ErrorHandlingMiddleware converts errors recorded on the gin context
// into the JSON error envelope. Handlers call AbortWithError and never
// write error bodies themselves.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return apperr.NewValidation([]string{"invalid request body"})
}

func mapError(err error) (int, errorPayload) {
	var verr *apperr.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  verr.Violations,
		}
	}

	switch {
	case apperr.IsValidation(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case apperr.IsNotFound(err), errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: err.Error(),
		}
	case apperr.IsConflict(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case errors.Is(err, apperr.ErrCalculation):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "calculation_error",
			Message: err.Error(),
		}
	case apperr.IsResource(err):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "resource_error",
			Message: "a backing resource is unavailable, retry later",
		}
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

var errRateLimited = errors.New("rate_limited")

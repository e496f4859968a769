package api

import (
	"errors"
	"net/http"

	"barbershop/internal/auth"
	"barbershop/internal/database"
	"barbershop/internal/service"
	"barbershop/internal/validation"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidBody      = "Invalid request body"
	msgSignInRequired   = "Please sign in to continue."
	msgSessionExpired   = "Your session has expired. Please sign in again."
	msgBookingRateLimit = "Too many booking attempts. Please try again later."
	msgUnavailable      = "Service temporarily unavailable. Please try again."
)

func writeError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// errorResponse maps an error from the core to a status code and the one
// message the caller may see.
func errorResponse(err error) (int, string) {
	var verr *validation.ValidationError
	var perr *auth.ProviderError

	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Message
	case errors.As(err, &perr):
		status := perr.Status
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		return status, perr.Message
	case errors.Is(err, auth.ErrNoCredentials):
		return http.StatusUnauthorized, msgSignInRequired
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrSignedOut):
		return http.StatusUnauthorized, msgSessionExpired
	case errors.Is(err, auth.ErrRateLimited):
		return http.StatusTooManyRequests, msgBookingRateLimit
	case errors.Is(err, service.ErrAuthRequired):
		return http.StatusUnauthorized, service.UserMessage(err)
	case errors.Is(err, service.ErrAccessDenied):
		return http.StatusForbidden, service.UserMessage(err)
	case errors.Is(err, database.ErrBookingNotFound):
		return http.StatusNotFound, service.UserMessage(err)
	case errors.Is(err, service.ErrPaymentSession):
		return http.StatusBadGateway, service.UserMessage(err)
	default:
		return http.StatusInternalServerError, service.UserMessage(err)
	}
}

func abortWithError(c *gin.Context, err error) {
	status, msg := errorResponse(err)
	_ = c.Error(err)
	writeError(c, status, msg)
}

package service

import (
	"errors"

	"barbershop/internal/auth"
	"barbershop/internal/validation"
)

var (
	ErrAuthRequired   = errors.New("authentication required")
	ErrPersistence    = errors.New("failed to persist booking")
	ErrPaymentSession = errors.New("failed to create payment session")
	ErrNotification   = errors.New("failed to send confirmation")
	ErrFetch          = errors.New("failed to fetch bookings")
	ErrUpdate         = errors.New("failed to update booking status")
	ErrAccessDenied   = errors.New("admin privileges required")
)

const msgUnexpected = "An unexpected error occurred. Please try again."

var userMessages = []struct {
	err error
	msg string
}{
	{ErrAuthRequired, "Please sign in to book an appointment."},
	{auth.ErrRateLimited, "Too many booking attempts. Please try again later."},
	{ErrPersistence, "Failed to submit booking. Please try again."},
	{ErrPaymentSession, "Failed to start payment. Your booking was saved but is unpaid. Please try again."},
	{ErrNotification, "We couldn't send the confirmation email. We'll contact you soon."},
	{ErrFetch, "Failed to load bookings"},
	{ErrUpdate, "Failed to update booking status"},
	{ErrAccessDenied, "Access denied. Admin privileges required."},
}

// UserMessage returns the single human-readable message shown for err.
// Wrapped causes never leak into it.
func UserMessage(err error) string {
	var verr *validation.ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	for _, m := range userMessages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	return msgUnexpected
}

package models

import "time"

// Booking is a persisted booking record.
type Booking struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id,omitempty"`
	Name            string    `json:"name"`
	Phone           string    `json:"phone"`
	Email           string    `json:"email"`
	Service         string    `json:"service"`
	PreferredDate   string    `json:"preferred_date"`
	PreferredTime   string    `json:"preferred_time"`
	Notes           *string   `json:"notes"`
	Status          string    `json:"status"` // pending, confirmed, completed, cancelled
	PaymentStatus   *string   `json:"payment_status"`
	PaymentAmount   *int64    `json:"payment_amount"`
	StripeSessionID *string   `json:"stripe_session_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// BookingRequest is a validated booking submission with trimmed fields.
// Notes is nil when the customer left it empty.
type BookingRequest struct {
	Name          string  `json:"name"`
	Phone         string  `json:"phone"`
	Email         string  `json:"email"`
	Service       string  `json:"service"`
	PreferredDate string  `json:"preferred_date"`
	PreferredTime string  `json:"preferred_time"`
	Notes         *string `json:"notes,omitempty"`
}

// NotesOrEmpty returns the booking notes or an empty string.
func (b *Booking) NotesOrEmpty() string {
	if b == nil || b.Notes == nil {
		return ""
	}
	return *b.Notes
}

// HasPaymentSession reports whether a checkout reference was stored.
func (b *Booking) HasPaymentSession() bool {
	return b != nil && b.StripeSessionID != nil && *b.StripeSessionID != ""
}

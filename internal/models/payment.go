package models

// CheckoutRequest is what a payment gateway needs to open a hosted checkout.
type CheckoutRequest struct {
	BookingID     string `json:"bookingId"`
	Amount        int64  `json:"amount"`
	CustomerEmail string `json:"customerEmail"`
	CustomerName  string `json:"customerName"`
	Service       string `json:"service"`
}

// CheckoutSession is the hosted checkout returned by a gateway.
type CheckoutSession struct {
	URL       string `json:"url"`
	SessionID string `json:"sessionId"`
}

// Confirmation carries the fields rendered into the confirmation email.
// Name, Phone and Notes are expected to be HTML-escaped by the caller.
type Confirmation struct {
	Name          string  `json:"name"`
	Email         string  `json:"email"`
	Service       string  `json:"service"`
	PreferredDate string  `json:"preferredDate"`
	PreferredTime string  `json:"preferredTime"`
	Phone         string  `json:"phone"`
	Notes         *string `json:"notes,omitempty"`
}

package models

import "fmt"

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
)

const RoleAdmin = "admin"

const (
	ParseModeMarkdown = "Markdown"
	ParseModeHTML     = "HTML"
)

const (
	// DefaultSessionCacheTTL bounds how long a verified token stays cached.
	DefaultSessionCacheTTL = 5 * 60 // seconds

	// SubmissionRateLimit is the number of booking submissions per window for one user.
	SubmissionRateLimit = 5

	// SubmissionRateWindow is the submission rate limit window.
	SubmissionRateWindow = 10 * 60 // seconds

	// WorkerQueueSize is the in-memory sheets queue capacity.
	WorkerQueueSize = 128

	// SheetsCacheTTL is how often the sheet row index is rebuilt.
	SheetsCacheTTL = 60 * 60 // seconds
)

var bookingStatuses = []string{StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled}

// BookingStatuses lists every status an admin may assign.
func BookingStatuses() []string {
	return append([]string(nil), bookingStatuses...)
}

// IsValidStatus reports whether s is a known booking status.
func IsValidStatus(s string) bool {
	for _, st := range bookingStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// ParseBookingStatus accepts only the exact lowercase status values.
func ParseBookingStatus(s string) (string, error) {
	if !IsValidStatus(s) {
		return "", fmt.Errorf("invalid booking status: %q", s)
	}
	return s, nil
}

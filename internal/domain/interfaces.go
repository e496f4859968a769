package domain

import (
	"context"
	"time"

	"barbershop/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type BookingRepository interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	ListBookings(ctx context.Context) ([]*models.Booking, error)
	UpdateBookingStatus(ctx context.Context, id, status string) error
	SetPaymentSession(ctx context.Context, id, sessionID string) error
}

type RoleRepository interface {
	HasRole(ctx context.Context, userID, role string) (bool, error)
}

// SessionRepository caches verified tokens and remembers revoked ones.
// A ttl <= 0 falls back to the repository default.
type SessionRepository interface {
	GetSession(ctx context.Context, key string) (*models.SessionState, error)
	SetSession(ctx context.Context, key string, state *models.SessionState, ttl time.Duration) error
	ClearSession(ctx context.Context, key string) error
	CheckRateLimit(ctx context.Context, subject string, limit int, window time.Duration) (bool, error)
}

type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (*models.AuthTokens, error)
	SignUp(ctx context.Context, email, password, fullName string) (*models.AuthTokens, error)
	Refresh(ctx context.Context, refreshToken string) (*models.AuthTokens, error)
	SignOut(ctx context.Context, accessToken string) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type PaymentGateway interface {
	Name() string
	CreateCheckoutSession(ctx context.Context, req *models.CheckoutRequest, bearer string) (*models.CheckoutSession, error)
}

type ConfirmationSender interface {
	SendConfirmation(ctx context.Context, c *models.Confirmation, bearer string) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type SheetsWriter interface {
	AppendBooking(ctx context.Context, booking *models.Booking) error
	UpsertBooking(ctx context.Context, booking *models.Booking) error
	UpdateBookingStatus(ctx context.Context, bookingID, status string) error
}

// SubmissionLimiter caps how many bookings one user may create per window.
type SubmissionLimiter interface {
	CheckRateLimit(ctx context.Context, userID string) error
}

type SyncWorker interface {
	EnqueueTask(ctx context.Context, taskType, bookingID string, booking *models.Booking, status string) error
}

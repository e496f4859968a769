package events

import (
	"encoding/json"
	"sync"
	"time"

	"barbershop/internal/models"

	"github.com/rs/zerolog"
)

const (
	EventBookingCreated       = "booking_created"
	EventBookingStatusChanged = "booking_status_changed"
)

// BookingEventPayload is the booking snapshot handed to event consumers.
type BookingEventPayload struct {
	BookingID      string `json:"booking_id"`
	UserID         string `json:"user_id,omitempty"`
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	Email          string `json:"email"`
	Service        string `json:"service"`
	PreferredDate  string `json:"preferred_date"`
	PreferredTime  string `json:"preferred_time"`
	Notes          string `json:"notes,omitempty"`
	Status         string `json:"status"`
	PreviousStatus string `json:"previous_status,omitempty"`
	PaymentStatus  string `json:"payment_status,omitempty"`
	Amount         int64  `json:"amount,omitempty"`
	ChangedBy      string `json:"changed_by,omitempty"`
}

// PayloadFromBooking copies the fields consumers care about.
func PayloadFromBooking(b *models.Booking) BookingEventPayload {
	p := BookingEventPayload{
		BookingID:     b.ID,
		UserID:        b.UserID,
		Name:          b.Name,
		Phone:         b.Phone,
		Email:         b.Email,
		Service:       b.Service,
		PreferredDate: b.PreferredDate,
		PreferredTime: b.PreferredTime,
		Notes:         b.NotesOrEmpty(),
		Status:        b.Status,
	}
	if b.PaymentStatus != nil {
		p.PaymentStatus = *b.PaymentStatus
	}
	if b.PaymentAmount != nil {
		p.Amount = *b.PaymentAmount
	}
	return p
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals the JSON payload into out.
func (e *Event) Decode(out interface{}) error {
	return json.Unmarshal(e.Payload, out)
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
	logger      *zerolog.Logger
}

// NewEventBus constructs an empty bus. Handler errors are logged to logger when set.
func NewEventBus(logger *zerolog.Logger) *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler), logger: logger}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
// Handlers run synchronously and must hand slow work off themselves.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		if err := handler(event); err != nil && b.logger != nil {
			b.logger.Error().Err(err).Str("event_type", event.Type).Msg("event handler failed")
		}
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	event, err := NewJSONEvent(eventType, payload)
	if err != nil {
		return err
	}
	b.Publish(&event)
	return nil
}

// NewJSONEvent builds an Event with JSON payload for manual publishing.
func NewJSONEvent(eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{Type: eventType, Payload: raw, CreatedAt: time.Now()}, nil
}

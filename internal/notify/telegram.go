package notify

import (
	"context"
	"fmt"
	"strings"

	"barbershop/internal/config"
	"barbershop/internal/domain"
	"barbershop/internal/events"
	"barbershop/internal/models"
	"barbershop/internal/validation"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// NewTelegramBot connects to the Bot API. It performs a getMe request.
func NewTelegramBot(cfg config.TelegramConfig) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	bot.Debug = cfg.Debug
	return bot, nil
}

type notification struct {
	eventType string
	payload   events.BookingEventPayload
}

// TelegramNotifier tells staff chats about new bookings and status changes.
// Event handlers only enqueue; delivery happens on the Start goroutine.
type TelegramNotifier struct {
	bot     domain.TelegramSender
	chatIDs []int64
	queue   chan notification
	logger  zerolog.Logger
}

func NewTelegramNotifier(bot domain.TelegramSender, chatIDs []int64, logger *zerolog.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		bot:     bot,
		chatIDs: chatIDs,
		queue:   make(chan notification, models.WorkerQueueSize),
		logger:  logger.With().Str("component", "telegram").Logger(),
	}
}

// Subscribe registers the notifier on the bus.
func (n *TelegramNotifier) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.EventBookingCreated, n.handle)
	bus.Subscribe(events.EventBookingStatusChanged, n.handle)
}

func (n *TelegramNotifier) handle(event *events.Event) error {
	var payload events.BookingEventPayload
	if err := event.Decode(&payload); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", event.Type, err)
	}
	select {
	case n.queue <- notification{eventType: event.Type, payload: payload}:
		return nil
	default:
		return fmt.Errorf("telegram queue full, dropping %s for booking %s", event.Type, payload.BookingID)
	}
}

// Start delivers queued notifications until ctx is done.
func (n *TelegramNotifier) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case note := <-n.queue:
				n.deliver(note)
			}
		}
	}()
}

func (n *TelegramNotifier) deliver(note notification) {
	var text string
	switch note.eventType {
	case events.EventBookingCreated:
		text = formatCreated(note.payload)
	case events.EventBookingStatusChanged:
		text = formatStatusChanged(note.payload)
	default:
		return
	}

	for _, chatID := range n.chatIDs {
		if _, err := n.SendHTML(chatID, text); err != nil {
			n.logger.Error().Err(err).Int64("chat_id", chatID).Str("booking_id", note.payload.BookingID).Msg("Failed to notify staff")
		}
	}
}

func (n *TelegramNotifier) SendHTML(chatID int64, text string) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = models.ParseModeHTML
	msg.DisableWebPagePreview = true
	return n.bot.Send(msg)
}

func esc(s string) string {
	return validation.SanitizeForEmail(s)
}

func formatCreated(p events.BookingEventPayload) string {
	var b strings.Builder
	b.WriteString("<b>New booking</b>\n\n")
	fmt.Fprintf(&b, "Service: %s\n", esc(p.Service))
	fmt.Fprintf(&b, "Date: %s at %s\n", esc(p.PreferredDate), esc(p.PreferredTime))
	fmt.Fprintf(&b, "Client: %s\n", esc(p.Name))
	fmt.Fprintf(&b, "Phone: %s\n", esc(p.Phone))
	fmt.Fprintf(&b, "Email: %s\n", esc(p.Email))
	if p.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", esc(p.Notes))
	}
	if p.Amount > 0 {
		fmt.Fprintf(&b, "Amount: R%d (%s)\n", p.Amount, esc(p.PaymentStatus))
	}
	fmt.Fprintf(&b, "ID: <code>%s</code>", esc(p.BookingID))
	return b.String()
}

func formatStatusChanged(p events.BookingEventPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>Booking %s</b>\n\n", esc(p.Status))
	fmt.Fprintf(&b, "Client: %s\n", esc(p.Name))
	fmt.Fprintf(&b, "Service: %s\n", esc(p.Service))
	fmt.Fprintf(&b, "Date: %s at %s\n", esc(p.PreferredDate), esc(p.PreferredTime))
	if p.PreviousStatus != "" {
		fmt.Fprintf(&b, "Status: %s → %s\n", esc(p.PreviousStatus), esc(p.Status))
	}
	if p.ChangedBy != "" {
		fmt.Fprintf(&b, "By: %s\n", esc(p.ChangedBy))
	}
	fmt.Fprintf(&b, "ID: <code>%s</code>", esc(p.BookingID))
	return b.String()
}

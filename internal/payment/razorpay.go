package payment

import (
	"context"
	"fmt"

	"barbershop/internal/config"
	"barbershop/internal/models"

	"github.com/razorpay/razorpay-go"
	"github.com/rs/zerolog"
)

type paymentLinkCreator interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// RazorpayGateway issues a hosted payment link per booking.
type RazorpayGateway struct {
	links      paymentLinkCreator
	currency   string
	successURL string
	logger     zerolog.Logger
}

func NewRazorpayGateway(cfg config.PaymentConfig, logger *zerolog.Logger) (*RazorpayGateway, error) {
	if cfg.Razorpay.KeyID == "" || cfg.Razorpay.KeySecret == "" {
		return nil, fmt.Errorf("%w: payment.razorpay credentials are empty", ErrNotConfigured)
	}
	client := razorpay.NewClient(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret)
	return newRazorpayGateway(client.PaymentLink, cfg, logger), nil
}

func newRazorpayGateway(links paymentLinkCreator, cfg config.PaymentConfig, logger *zerolog.Logger) *RazorpayGateway {
	return &RazorpayGateway{
		links:      links,
		currency:   cfg.Currency,
		successURL: cfg.SuccessURL,
		logger:     *logger,
	}
}

func (g *RazorpayGateway) Name() string {
	return ProviderRazorpay
}

// CreateCheckoutSession runs the SDK call on a goroutine so the request
// context can abandon it; the SDK itself takes no context.
func (g *RazorpayGateway) CreateCheckoutSession(ctx context.Context, req *models.CheckoutRequest, _ string) (*models.CheckoutSession, error) {
	if err := checkRequest(req); err != nil {
		return nil, err
	}

	data := map[string]interface{}{
		"amount":       req.Amount * 100,
		"currency":     g.currency,
		"reference_id": req.BookingID,
		"description":  req.Service,
		"customer": map[string]interface{}{
			"name":  req.CustomerName,
			"email": req.CustomerEmail,
		},
		"notify": map[string]interface{}{"email": false, "sms": false},
	}
	if g.successURL != "" {
		data["callback_url"] = g.successURL
		data["callback_method"] = "get"
	}

	type result struct {
		body map[string]interface{}
		err  error
	}
	done := make(chan result, 1)
	go func() {
		body, err := g.links.Create(data, nil)
		done <- result{body, err}
	}()

	var res result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-done:
	}
	if res.err != nil {
		return nil, fmt.Errorf("razorpay payment link create failed: %w", res.err)
	}

	shortURL, _ := res.body["short_url"].(string)
	id, _ := res.body["id"].(string)
	if shortURL == "" {
		return nil, ErrMissingURL
	}
	g.logger.Debug().Str("booking_id", req.BookingID).Str("link_id", id).Msg("payment link created")
	return &models.CheckoutSession{URL: shortURL, SessionID: id}, nil
}

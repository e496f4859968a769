package payment

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"barbershop/internal/config"
	"barbershop/internal/domain"
	"barbershop/internal/models"

	"github.com/rs/zerolog"
)

const (
	ProviderFunction    = "function"
	ProviderMercadoPago = "mercadopago"
	ProviderRazorpay    = "razorpay"
)

var (
	ErrMissingURL     = errors.New("payment provider returned no checkout url")
	ErrNotConfigured  = errors.New("payment gateway not configured")
	ErrInvalidRequest = errors.New("invalid checkout request")
)

// New builds the gateway selected by cfg.Provider.
func New(cfg config.PaymentConfig, logger *zerolog.Logger) (domain.PaymentGateway, error) {
	log := logger.With().Str("component", "payment").Str("provider", cfg.Provider).Logger()
	if cfg.Mock {
		log.Warn().Msg("payment gateway mock mode enabled")
		return &MockGateway{provider: cfg.Provider, baseURL: cfg.SuccessURL}, nil
	}

	switch cfg.Provider {
	case ProviderFunction, "":
		return NewFunctionClient(cfg, &log)
	case ProviderMercadoPago:
		return NewMercadoPagoGateway(cfg, &log)
	case ProviderRazorpay:
		return NewRazorpayGateway(cfg, &log)
	default:
		return nil, fmt.Errorf("unsupported payment provider: %q", cfg.Provider)
	}
}

func timeout(seconds int) time.Duration {
	if d := config.Seconds(seconds); d > 0 {
		return d
	}
	return 15 * time.Second
}

func checkRequest(req *models.CheckoutRequest) error {
	if req == nil || req.BookingID == "" || req.Amount <= 0 {
		return ErrInvalidRequest
	}
	return nil
}

// MockGateway returns deterministic checkout sessions for local runs.
type MockGateway struct {
	provider string
	baseURL  string
}

func (g *MockGateway) Name() string {
	return "mock-" + g.provider
}

func (g *MockGateway) CreateCheckoutSession(_ context.Context, req *models.CheckoutRequest, _ string) (*models.CheckoutSession, error) {
	if err := checkRequest(req); err != nil {
		return nil, err
	}
	base := g.baseURL
	if base == "" {
		base = "http://localhost:8080/booking/success"
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid mock checkout base url: %w", err)
	}
	q := u.Query()
	q.Set("booking_id", req.BookingID)
	q.Set("mock_checkout", "1")
	u.RawQuery = q.Encode()
	return &models.CheckoutSession{URL: u.String(), SessionID: "mock_" + req.BookingID}, nil
}

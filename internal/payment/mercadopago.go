package payment

import (
	"context"
	"fmt"

	"barbershop/internal/config"
	"barbershop/internal/models"

	mpconfig "github.com/mercadopago/sdk-go/pkg/config"
	"github.com/mercadopago/sdk-go/pkg/preference"
	"github.com/rs/zerolog"
)

type preferenceCreator interface {
	Create(ctx context.Context, request preference.Request) (*preference.Response, error)
}

// MercadoPagoGateway opens a Checkout Pro preference per booking.
type MercadoPagoGateway struct {
	client          preferenceCreator
	currency        string
	successURL      string
	cancelURL       string
	notificationURL string
	logger          zerolog.Logger
}

func NewMercadoPagoGateway(cfg config.PaymentConfig, logger *zerolog.Logger) (*MercadoPagoGateway, error) {
	if cfg.MercadoPago.AccessToken == "" {
		return nil, fmt.Errorf("%w: payment.mercadopago.access_token is empty", ErrNotConfigured)
	}
	sdkCfg, err := mpconfig.New(cfg.MercadoPago.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create mercadopago config: %w", err)
	}
	return newMercadoPagoGateway(preference.NewClient(sdkCfg), cfg, logger), nil
}

func newMercadoPagoGateway(client preferenceCreator, cfg config.PaymentConfig, logger *zerolog.Logger) *MercadoPagoGateway {
	return &MercadoPagoGateway{
		client:          client,
		currency:        cfg.Currency,
		successURL:      cfg.SuccessURL,
		cancelURL:       cfg.CancelURL,
		notificationURL: cfg.MercadoPago.NotificationURL,
		logger:          *logger,
	}
}

func (g *MercadoPagoGateway) Name() string {
	return ProviderMercadoPago
}

func (g *MercadoPagoGateway) CreateCheckoutSession(ctx context.Context, req *models.CheckoutRequest, _ string) (*models.CheckoutSession, error) {
	if err := checkRequest(req); err != nil {
		return nil, err
	}
	if g.client == nil {
		return nil, ErrNotConfigured
	}

	pref := preference.Request{
		Items: []preference.ItemRequest{{
			ID:         req.BookingID,
			Title:      req.Service,
			Quantity:   1,
			UnitPrice:  float64(req.Amount),
			CurrencyID: g.currency,
		}},
		Payer: &preference.PayerRequest{
			Name:  req.CustomerName,
			Email: req.CustomerEmail,
		},
		ExternalReference: req.BookingID,
		NotificationURL:   g.notificationURL,
	}
	if g.successURL != "" {
		pref.BackURLs = &preference.BackURLsRequest{
			Success: g.successURL,
			Pending: g.successURL,
			Failure: g.cancelURL,
		}
		pref.AutoReturn = "approved"
	}

	resp, err := g.client.Create(ctx, pref)
	if err != nil {
		return nil, fmt.Errorf("mercadopago preference create failed: %w", err)
	}
	if resp == nil || resp.InitPoint == "" {
		return nil, ErrMissingURL
	}
	g.logger.Debug().Str("booking_id", req.BookingID).Str("preference_id", resp.ID).Msg("preference created")
	return &models.CheckoutSession{URL: resp.InitPoint, SessionID: resp.ID}, nil
}

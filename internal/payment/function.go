package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"barbershop/internal/config"
	"barbershop/internal/models"

	"github.com/rs/zerolog"
)

// FunctionClient calls a hosted create-checkout-session function over HTTP.
type FunctionClient struct {
	url        string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewFunctionClient(cfg config.PaymentConfig, logger *zerolog.Logger) (*FunctionClient, error) {
	if cfg.Function.URL == "" {
		return nil, fmt.Errorf("%w: payment.function.url is empty", ErrNotConfigured)
	}
	return &FunctionClient{
		url:        cfg.Function.URL,
		apiKey:     cfg.Function.APIKey,
		httpClient: &http.Client{Timeout: timeout(cfg.TimeoutSeconds)},
		logger:     *logger,
	}, nil
}

func (c *FunctionClient) Name() string {
	return ProviderFunction
}

func (c *FunctionClient) CreateCheckoutSession(ctx context.Context, req *models.CheckoutRequest, bearer string) (*models.CheckoutSession, error) {
	if err := checkRequest(req); err != nil {
		return nil, err
	}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+bearer)
	}
	if c.apiKey != "" {
		httpReq.Header.Set("apikey", c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("checkout function returned http %d", resp.StatusCode)
	}

	var out models.CheckoutSession
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode checkout response: %w", err)
	}
	if out.URL == "" {
		return nil, ErrMissingURL
	}
	c.logger.Debug().Str("booking_id", req.BookingID).Str("session_id", out.SessionID).Msg("checkout session created")
	return &out, nil
}

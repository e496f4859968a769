package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"barbershop/internal/config"
	"barbershop/internal/domain"
	"barbershop/internal/models"

	"github.com/rs/zerolog"
)

const (
	ModeFunction = "function"
	ModeSMTP     = "smtp"
	ModeDisabled = "disabled"
)

// FunctionClient posts the confirmation to the send-booking-confirmation function.
type FunctionClient struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

func NewFunctionClient(cfg config.EmailConfig) (*FunctionClient, error) {
	if cfg.Function.URL == "" {
		return nil, errors.New("email.function.url is empty")
	}
	timeout := config.Seconds(cfg.TimeoutSeconds)
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &FunctionClient{
		url:        cfg.Function.URL,
		apiKey:     cfg.Function.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (c *FunctionClient) SendConfirmation(ctx context.Context, conf *models.Confirmation, bearer string) error {
	data, err := json.Marshal(conf)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("confirmation function returned http %d", resp.StatusCode)
	}
	return nil
}

// DisabledSender drops confirmations. Used when email.mode is disabled.
type DisabledSender struct {
	logger zerolog.Logger
}

func (s *DisabledSender) SendConfirmation(_ context.Context, c *models.Confirmation, _ string) error {
	s.logger.Debug().Str("to", c.Email).Msg("email disabled, confirmation skipped")
	return nil
}

// New builds the workflow's confirmation sender for cfg.Mode.
func New(cfg config.EmailConfig, logger *zerolog.Logger) (domain.ConfirmationSender, error) {
	switch cfg.Mode {
	case ModeFunction:
		return NewFunctionClient(cfg)
	case ModeSMTP:
		return NewSMTPSender(cfg, logger)
	case ModeDisabled, "":
		return &DisabledSender{logger: logger.With().Str("component", "email").Logger()}, nil
	default:
		return nil, fmt.Errorf("unsupported email mode: %q", cfg.Mode)
	}
}

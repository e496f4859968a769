package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	"barbershop/internal/config"
	"barbershop/internal/models"

	"github.com/rs/zerolog"
	gomail "gopkg.in/gomail.v2"
)

var ErrNoRecipient = errors.New("confirmation has no recipient")

type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender renders the confirmation and delivers it with gomail.
type SMTPSender struct {
	dialer   mailDialer
	from     string
	subject  string
	renderer *Renderer
	logger   zerolog.Logger
}

func NewSMTPSender(cfg config.EmailConfig, logger *zerolog.Logger) (*SMTPSender, error) {
	if cfg.SMTP.Host == "" {
		return nil, errors.New("email.smtp.host is empty")
	}
	dialer := gomail.NewDialer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password)
	dialer.TLSConfig = &tls.Config{
		InsecureSkipVerify: cfg.SMTP.InsecureSkipVerify,
		ServerName:         cfg.SMTP.Host,
	}
	return newSMTPSender(dialer, cfg, logger), nil
}

func newSMTPSender(dialer mailDialer, cfg config.EmailConfig, logger *zerolog.Logger) *SMTPSender {
	return &SMTPSender{
		dialer:   dialer,
		from:     cfg.From,
		subject:  cfg.Subject,
		renderer: NewRenderer(),
		logger:   logger.With().Str("component", "smtp").Logger(),
	}
}

// SendConfirmation ignores the bearer; SMTP credentials come from config.
func (s *SMTPSender) SendConfirmation(ctx context.Context, c *models.Confirmation, _ string) error {
	if c == nil || c.Email == "" {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := s.renderer.Render(c)
	if err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", c.Email)
	msg.SetHeader("Subject", s.subject)
	msg.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	s.logger.Info().Str("to", c.Email).Msg("confirmation email sent")
	return nil
}

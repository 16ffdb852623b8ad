package mailer

import (
	"context"
	"errors"
	"os"

	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

var ErrDisabled = errors.New("email delivery disabled")

// Sender delivers receipts. Implementations must be safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, to string, r Receipt) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender sends receipts through an SMTP relay with mandatory STARTTLS.
type SMTPSender struct {
	client *mail.Client
	from   string
}

func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.From == "" {
		return nil, errors.New("smtp: sender address is required")
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, err
	}
	return &SMTPSender{client: client, from: cfg.From}, nil
}

func (s *SMTPSender) Send(ctx context.Context, to string, r Receipt) error {
	body, err := RenderReceipt(r)
	if err != nil {
		return err
	}

	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject(r.Subject())
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return err
	}
	logger.Info().Int64("order_id", r.OrderID).Str("to", to).Msg("Receipt sent")
	return nil
}

// Disabled is used when SMTP is not configured. Every send fails with ErrDisabled.
type Disabled struct{}

func (Disabled) Send(_ context.Context, to string, r Receipt) error {
	logger.Info().Int64("order_id", r.OrderID).Str("to", to).Msg("Email disabled, receipt not sent")
	return ErrDisabled
}

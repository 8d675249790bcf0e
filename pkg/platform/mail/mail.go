package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tendant/simple-platform/pkg/platform"
	"gopkg.in/gomail.v2"
)

// SMTPConfig holds outbound SMTP settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTP delivers mail through an SMTP relay.
type SMTP struct {
	from   string
	dialer *gomail.Dialer
}

// NewSMTP creates an SMTP mailer
func NewSMTP(cfg SMTPConfig) (*SMTP, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}
	if cfg.From == "" {
		return nil, errors.New("smtp from address is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTP{
		from:   cfg.From,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}, nil
}

var _ platform.Mailer = (*SMTP)(nil)

// Send delivers m. gomail has no context support, so cancellation is only
// checked before dialing.
func (s *SMTP) Send(ctx context.Context, m platform.Mail) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.dialer.DialAndSend(s.message(m)); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

func (s *SMTP) message(m platform.Mail) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", m.To)
	if m.ReplyTo != "" {
		msg.SetHeader("Reply-To", m.ReplyTo)
	}
	msg.SetHeader("Subject", m.Subject)
	msg.SetBody("text/plain", m.Body)
	return msg
}

// Log writes outgoing mail to the logger instead of sending it. Used in
// development and tests.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a logging mailer. A nil logger uses slog.Default().
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

var _ platform.Mailer = (*Log)(nil)

func (l *Log) Send(ctx context.Context, m platform.Mail) error {
	l.logger.InfoContext(ctx, "Mail not sent (log mailer)",
		"to", m.To,
		"reply_to", m.ReplyTo,
		"subject", m.Subject,
		"body_length", len(m.Body))
	return nil
}

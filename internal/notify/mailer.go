package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/sigreer/diskmon/internal/config"
)

// Message is one consolidated report ready for delivery
type Message struct {
	Subject    string
	HTMLBody   string
	Recipients []string
}

// Sink delivers a report; any error counts as a failed attempt
type Sink interface {
	Deliver(ctx context.Context, m Message) error
}

// SMTPSink sends reports through an SMTP relay
type SMTPSink struct {
	Server   string
	Port     int
	Security string
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// NewSMTPSink builds a sink from the mail settings of cfg
func NewSMTPSink(cfg *config.Config) *SMTPSink {
	return &SMTPSink{
		Server:   cfg.SMTPServer,
		Port:     cfg.SMTPPort,
		Security: cfg.SMTPSecurity,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		From:     cfg.EmailFrom,
		Timeout:  30 * time.Second,
	}
}

// Deliver sends m over a fresh connection
func (s *SMTPSink) Deliver(ctx context.Context, m Message) error {
	msg, err := s.message(m)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(s.Server, s.options()...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send via %s:%d: %w", s.Server, s.Port, err)
	}
	return nil
}

func (s *SMTPSink) message(m Message) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(s.From); err != nil {
		return nil, fmt.Errorf("invalid sender address %q: %w", s.From, err)
	}
	for _, rcpt := range m.Recipients {
		if err := msg.AddTo(rcpt); err != nil {
			return nil, fmt.Errorf("invalid recipient address %q: %w", rcpt, err)
		}
	}
	msg.Subject(m.Subject)
	msg.SetBodyString(mail.TypeTextHTML, m.HTMLBody)
	return msg, nil
}

func (s *SMTPSink) options() []mail.Option {
	opts := []mail.Option{mail.WithPort(s.Port)}
	if s.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(s.Timeout))
	}

	switch s.Security {
	case config.SecuritySSL:
		opts = append(opts, mail.WithSSL())
	case config.SecurityNone:
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}

	if s.Username != "" || s.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.Username),
			mail.WithPassword(s.Password),
		)
	}
	return opts
}

// Package smtp delivers mail through an authenticated SMTP relay such as
// Gmail (smtp.gmail.com:587 with STARTTLS and an app password).
package smtp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/textproto"

	"gopkg.in/gomail.v2"

	"github.com/xrsl/reachout/pkg/mail"
)

const (
	DefaultHost = "smtp.gmail.com"
	DefaultPort = 587
)

// Config holds SMTP relay settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string // Defaults to Username
	FromName string
}

// dialer is the part of gomail.Dialer the sender uses.
type dialer interface {
	Dial() (gomail.SendCloser, error)
}

// Sender implements mail.Sender over SMTP.
type Sender struct {
	dialer dialer
	config Config
}

// New creates an SMTP sender. Nothing is dialed until Verify or Send.
func New(cfg Config) *Sender {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &Sender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		config: cfg,
	}
}

// Verify dials and authenticates, then hangs up.
func (s *Sender) Verify(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	conn, err := s.dialer.Dial()
	if err != nil {
		return s.classify(err)
	}
	return conn.Close()
}

// Send implements mail.Sender.
func (s *Sender) Send(ctx context.Context, email *mail.Email) error {
	if err := email.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := s.message(email)

	conn, err := s.dialer.Dial()
	if err != nil {
		return s.classify(err)
	}
	defer conn.Close()

	if err := gomail.Send(conn, msg); err != nil {
		return s.classify(err)
	}
	return nil
}

func (s *Sender) message(email *mail.Email) *gomail.Message {
	from, fromName := email.From, email.FromName
	if from == "" {
		from, fromName = s.config.From, s.config.FromName
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", from, fromName)
	m.SetAddressHeader("To", email.To, email.ToName)
	if email.ReplyTo != "" {
		m.SetHeader("Reply-To", email.ReplyTo)
	}
	m.SetHeader("Subject", email.Subject)
	m.SetBody("text/plain", email.Text)

	for _, a := range email.Attachments {
		content := a.Content
		settings := []gomail.FileSetting{
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(content)
				return err
			}),
		}
		if a.ContentType != "" {
			settings = append(settings, gomail.SetHeader(map[string][]string{
				"Content-Type": {a.ContentType},
			}))
		}
		m.Attach(a.Filename, settings...)
	}
	return m
}

// classify maps SMTP authentication replies to mail.ErrAuth.
func (s *Sender) classify(err error) error {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		switch tpErr.Code {
		case 530, 534, 535:
			return fmt.Errorf("%w: login %s at %s:%d: %v", mail.ErrAuth, s.config.Username, s.config.Host, s.config.Port, err)
		}
	}
	return fmt.Errorf("%w: %v", mail.ErrSendFailed, err)
}

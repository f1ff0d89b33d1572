// Package resend delivers mail through the Resend HTTP API.
package resend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/resend/resend-go/v3"

	"github.com/xrsl/reachout/pkg/mail"
)

// Config holds Resend settings.
type Config struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// emailAPI is the part of the Resend client the sender uses.
type emailAPI interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// Sender implements mail.Sender using the Resend API.
type Sender struct {
	emails emailAPI
	config Config
}

// New creates a Resend sender.
func New(cfg Config) *Sender {
	client := resend.NewClient(cfg.APIKey)
	return &Sender{
		emails: client.Emails,
		config: cfg,
	}
}

// Verify only checks that the sender is configured; the Resend API has no
// side-effect-free credential check for send-only keys.
func (s *Sender) Verify(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.config.APIKey == "" {
		return fmt.Errorf("%w: resend API key is empty", mail.ErrAuth)
	}
	if s.config.FromEmail == "" {
		return errors.New("resend: sender address is empty")
	}
	return nil
}

// Send implements mail.Sender.
func (s *Sender) Send(ctx context.Context, email *mail.Email) error {
	if err := email.Validate(); err != nil {
		return err
	}

	from := mail.Address(s.config.FromName, s.config.FromEmail)
	if email.From != "" {
		from = mail.Address(email.FromName, email.From)
	}

	req := &resend.SendEmailRequest{
		From:    from,
		To:      []string{mail.Address(email.ToName, email.To)},
		Subject: email.Subject,
		Text:    email.Text,
		ReplyTo: email.ReplyTo,
	}
	for _, a := range email.Attachments {
		req.Attachments = append(req.Attachments, &resend.Attachment{
			Filename:    a.Filename,
			Content:     a.Content,
			ContentType: a.ContentType,
		})
	}

	if _, err := s.emails.SendWithContext(ctx, req); err != nil {
		return classify(err)
	}
	return nil
}

// classify maps credential rejections to mail.ErrAuth.
func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "401"),
		strings.Contains(msg, "403"),
		strings.Contains(msg, "api key is invalid"),
		strings.Contains(msg, "missing api key"):
		return fmt.Errorf("%w: resend: %v", mail.ErrAuth, err)
	default:
		return fmt.Errorf("%w: resend: %v", mail.ErrSendFailed, err)
	}
}

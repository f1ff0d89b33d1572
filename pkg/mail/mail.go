// Package mail defines the outgoing message and the transport interface that
// delivers it. Concrete transports live in the smtp and resend subpackages.
package mail

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrNoRecipient indicates no recipient was specified.
	ErrNoRecipient = errors.New("email must have a recipient")

	// ErrNoSubject indicates no subject was provided.
	ErrNoSubject = errors.New("email must have a subject")

	// ErrNoContent indicates the body is empty.
	ErrNoContent = errors.New("email must have a body")

	// ErrAuth indicates the transport rejected our credentials. It aborts a run.
	ErrAuth = errors.New("mail authentication failed")

	// ErrSendFailed indicates delivery of a single message failed.
	ErrSendFailed = errors.New("failed to send email")
)

// Sender delivers prepared emails.
type Sender interface {
	// Verify checks connectivity and credentials without sending anything.
	Verify(ctx context.Context) error
	// Send delivers one message.
	Send(ctx context.Context, email *Email) error
}

// Attachment is a file sent along with the message.
type Attachment struct {
	Filename    string // Display name, e.g. "CV.pdf"
	ContentType string // MIME type, e.g. "application/pdf"
	Content     []byte
}

// Email is a plain-text message ready for delivery.
type Email struct {
	From        string // Overrides the transport's default sender
	FromName    string
	To          string
	ToName      string
	ReplyTo     string
	Subject     string
	Text        string
	Attachments []Attachment
}

// Validate checks the fields every transport requires.
func (e *Email) Validate() error {
	switch {
	case strings.TrimSpace(e.To) == "":
		return ErrNoRecipient
	case strings.TrimSpace(e.Subject) == "":
		return ErrNoSubject
	case strings.TrimSpace(e.Text) == "":
		return ErrNoContent
	}
	return nil
}

// Address formats a name and email into RFC 5322 form.
func Address(name, email string) string {
	if name == "" {
		return email
	}
	return fmt.Sprintf("%s <%s>", name, email)
}

// AttachmentFromFile reads a file into an Attachment. name overrides the
// display filename; the content type is derived from it.
func AttachmentFromFile(path, name string) (Attachment, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Attachment{}, fmt.Errorf("read attachment: %w", err)
	}
	if name == "" {
		name = filepath.Base(path)
	}
	ct := mime.TypeByExtension(filepath.Ext(name))
	if ct == "" {
		ct = "application/octet-stream"
	}
	return Attachment{
		Filename:    name,
		ContentType: ct,
		Content:     content,
	}, nil
}

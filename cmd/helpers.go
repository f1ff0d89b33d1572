package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/xrsl/reachout/pkg/ai"
	"github.com/xrsl/reachout/pkg/compose"
	"github.com/xrsl/reachout/pkg/config"
	"github.com/xrsl/reachout/pkg/mail"
	"github.com/xrsl/reachout/pkg/mail/resend"
	"github.com/xrsl/reachout/pkg/mail/smtp"
	"github.com/xrsl/reachout/pkg/prompt"
	"github.com/xrsl/reachout/pkg/sheets"
	"github.com/xrsl/reachout/pkg/style"
)

// log prints a progress line unless --quiet is set
func log(format string, args ...any) {
	if !quiet {
		fmt.Printf(format+"\n", args...)
	}
}

// loadConfig loads and validates the configuration, applying an agent
// override before validation so the right API key is checked.
func loadConfig(agent string) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	if agent != "" {
		cfg.Agent = agent
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newSource(ctx context.Context, cfg *config.Config) (*sheets.Source, error) {
	return sheets.New(ctx, sheets.Config{
		SpreadsheetID:   cfg.SheetID,
		Range:           cfg.SheetRange,
		CredentialsFile: cfg.ServiceAccountFile,
		Columns:         cfg.Columns,
	})
}

func newSender(cfg *config.Config) mail.Sender {
	if cfg.Transport == config.TransportResend {
		return resend.New(resend.Config{
			APIKey:    cfg.ResendAPIKey,
			FromEmail: cfg.FromAddress,
			FromName:  cfg.FromName,
		})
	}
	return smtp.New(smtp.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.EmailUsername,
		Password: cfg.EmailPassword,
		From:     cfg.FromAddress,
		FromName: cfg.FromName,
	})
}

// newComposer wires the AI client, prompt template and CV text. The caller
// must Close the returned client.
func newComposer(ctx context.Context, cfg *config.Config) (*compose.Composer, ai.Client, error) {
	tmpl, err := prompt.Load(cfg.PromptPath)
	if err != nil {
		return nil, nil, err
	}
	client, err := ai.NewClient(ctx, cfg.Agent, cfg.Keys())
	if err != nil {
		return nil, nil, fmt.Errorf("error creating AI client: %w", err)
	}
	senderName := cfg.FromName
	if senderName == "" {
		senderName = cfg.EmailUsername
	}
	return compose.New(client, tmpl, compose.ReadCVText(cfg.CVPath), senderName), client, nil
}

func loadAttachment(cfg *config.Config) (mail.Attachment, error) {
	a, err := mail.AttachmentFromFile(cfg.CVPath, cfg.AttachmentName)
	if err != nil {
		return mail.Attachment{}, fmt.Errorf("CV attachment: %w", err)
	}
	return a, nil
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// withSpinner shows a spinner on stderr while fn runs.
func withSpinner(message string, fn func() error) error {
	if quiet || style.NoColor {
		return fn()
	}

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i++ {
			fmt.Fprintf(os.Stderr, "\r%s %s", style.C(style.Cyan, spinnerFrames[i%len(spinnerFrames)]), message)
			select {
			case <-done:
				fmt.Fprintf(os.Stderr, "\r\033[K")
				return
			case <-ticker.C:
			}
		}
	}()

	err := fn()
	close(done)
	<-stopped
	return err
}

// Package compose drafts a personalized email for one recipient with a
// language model.
package compose

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/xrsl/reachout/pkg/ai"
	"github.com/xrsl/reachout/pkg/prompt"
	"github.com/xrsl/reachout/pkg/recipient"
	"github.com/xrsl/reachout/pkg/utils"
)

const (
	// cvReadLimit bounds how much of the CV file is read for the prompt.
	cvReadLimit = 5000
	// highlightLimit is how many characters of CV text reach the prompt.
	highlightLimit = 500

	cvUnreadable = "CV could not be read. Please ensure it exists at the specified path."
)

// SystemPrompt fixes the response shape for every provider.
const SystemPrompt = `You write concise, polite, personalized outreach emails from a student to researchers.
Respond with a single JSON object and nothing else, in the form:
{"subject": "<subject line>", "body": "<plain-text email body>"}`

// ErrEmptyDraft indicates the model returned no usable subject or body.
var ErrEmptyDraft = errors.New("model returned an empty draft")

// Draft is a generated email. It is never persisted.
type Draft struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Composer renders the prompt template and asks the model for a draft.
type Composer struct {
	client     ai.Client
	tmpl       *template.Template
	highlights string
	senderName string
}

// New creates a Composer. cvText is the raw CV text; only its start is used.
func New(client ai.Client, tmpl *template.Template, cvText, senderName string) *Composer {
	return &Composer{
		client:     client,
		tmpl:       tmpl,
		highlights: Highlights(cvText),
		senderName: senderName,
	}
}

// Prompt renders the user prompt for r.
func (c *Composer) Prompt(r recipient.Recipient) (string, error) {
	var sb strings.Builder
	err := c.tmpl.Execute(&sb, prompt.Data{
		Recipient:    r,
		CVHighlights: c.highlights,
		SenderName:   c.senderName,
	})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return sb.String(), nil
}

// Compose generates a draft for r.
func (c *Composer) Compose(ctx context.Context, r recipient.Recipient) (Draft, error) {
	userPrompt, err := c.Prompt(r)
	if err != nil {
		return Draft{}, err
	}

	raw, err := c.client.GenerateContentWithSystem(ctx, SystemPrompt, userPrompt)
	if err != nil {
		return Draft{}, fmt.Errorf("generate email: %w", err)
	}

	return ParseDraft(raw)
}

// ParseDraft decodes the model's JSON answer.
func ParseDraft(raw string) (Draft, error) {
	var d Draft
	cleaned := CleanJSONBlock(raw)
	if err := json.Unmarshal([]byte(cleaned), &d); err != nil {
		// Some models add a sentence around the object; retry on the outermost braces.
		start, end := strings.Index(cleaned, "{"), strings.LastIndex(cleaned, "}")
		if start < 0 || end <= start {
			return Draft{}, fmt.Errorf("parse model response: %w", err)
		}
		if err := json.Unmarshal([]byte(cleaned[start:end+1]), &d); err != nil {
			return Draft{}, fmt.Errorf("parse model response: %w", err)
		}
	}

	d.Subject = strings.TrimSpace(d.Subject)
	d.Body = strings.TrimSpace(d.Body)
	if d.Subject == "" || d.Body == "" {
		return Draft{}, ErrEmptyDraft
	}
	// Subjects are single-line header values.
	d.Subject = strings.Join(strings.Fields(d.Subject), " ")
	return d, nil
}

// CleanJSONBlock removes markdown code fences around a JSON answer.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	// Drop a language tag such as "json" on the opening fence line.
	if idx := strings.Index(text, "\n"); idx >= 0 {
		first := text[:idx]
		if len(first) < 20 && !strings.ContainsAny(first, " {") {
			text = text[idx+1:]
		}
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

// ReadCVText reads the start of the CV for prompting. Unreadable files yield
// a placeholder so drafting still works; the attachment is checked separately.
func ReadCVText(path string) string {
	data, err := utils.ReadPrefix(path, cvReadLimit)
	if err != nil {
		return cvUnreadable
	}
	return strings.ToValidUTF8(string(data), "")
}

// Highlights trims CV text to the part that goes into the prompt.
func Highlights(cvText string) string {
	runes := []rune(strings.TrimSpace(cvText))
	if len(runes) > highlightLimit {
		runes = runes[:highlightLimit]
	}
	return string(runes)
}

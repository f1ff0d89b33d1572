package claude

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/xrsl/reachout/pkg/retry"
)

const DefaultAgent = "claude-sonnet-4-5"

// Rate limiter for API calls (1 request per second, conservative default)
var rateLimiter = retry.NewRateLimiter(1.0)

var SupportedAgents = []string{
	"claude-sonnet-4",
	"claude-sonnet-4-5",
	"claude-opus-4-5",
	"claude-haiku-4-5",
}

// Map friendly agent names to Anthropic model IDs
var modelMapping = map[string]string{
	"claude-sonnet-4":   "claude-sonnet-4-20250514",
	"claude-sonnet-4-5": "claude-sonnet-4-5-20250929",
	"claude-opus-4-5":   "claude-opus-4-5-20251101",
	"claude-haiku-4-5":  "claude-haiku-4-5-20251001",
}

func IsAgentSupported(agent string) bool {
	return slices.Contains(SupportedAgents, agent)
}

type Client struct {
	client anthropic.Client
	model  string
}

func NewClient(model, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is not set")
	}
	if model == "" {
		model = DefaultAgent
	}

	modelID, ok := modelMapping[model]
	if !ok {
		modelID = model
	}

	return &Client{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  modelID,
	}, nil
}

func (c *Client) GenerateContent(ctx context.Context, prompt string) (string, error) {
	return c.GenerateContentWithSystem(ctx, "", prompt)
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "rate_limit") ||
		strings.Contains(errStr, "overloaded") ||
		strings.Contains(errStr, "529") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "timeout")
}

// formatAPIError converts API errors to user-friendly messages
func formatAPIError(err error, model string) error {
	if err == nil {
		return nil
	}
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "401") || strings.Contains(errStr, "authentication_error"):
		return fmt.Errorf("claude API error: invalid API key. Check ANTHROPIC_API_KEY")
	case strings.Contains(errStr, "404") || strings.Contains(errStr, "not_found"):
		return fmt.Errorf("claude API error: model %q not found", model)
	case strings.Contains(errStr, "rate_limit"):
		return fmt.Errorf("claude API error: rate limit exceeded for model %q", model)
	case strings.Contains(errStr, "overloaded") || strings.Contains(errStr, "529"):
		return fmt.Errorf("claude API error: service overloaded")
	default:
		return fmt.Errorf("claude API error: %w", err)
	}
}

// GenerateContentWithSystem sends a prompt with a cached system message.
// Every recipient shares the same system prompt, so caching it pays off
// from the second email of a run.
func (c *Client) GenerateContentWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if err := rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	return retry.Do(ctx, retry.DefaultConfig(), func() (string, error) {
		params := anthropic.MessageNewParams{
			Model:     anthropic.Model(c.model),
			MaxTokens: 1024,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
			},
		}

		if systemPrompt != "" {
			params.System = []anthropic.TextBlockParam{
				{
					Type: "text",
					Text: systemPrompt,
					CacheControl: anthropic.CacheControlEphemeralParam{
						Type: "ephemeral",
					},
				},
			}
		}

		message, err := c.client.Messages.New(ctx, params)
		if err != nil {
			if isRetryableError(err) {
				return "", retry.Retryable(formatAPIError(err, c.model))
			}
			return "", formatAPIError(err, c.model)
		}

		for _, block := range message.Content {
			if block.Type == "text" {
				return block.Text, nil
			}
		}
		return "", fmt.Errorf("no text content in response")
	})
}

func (c *Client) Close() {}

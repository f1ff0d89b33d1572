package gemini

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/xrsl/reachout/pkg/retry"
)

const DefaultAgent = "gemini-2.5-flash"

var SupportedAgents = []string{
	"gemini-2.5-flash",
	"gemini-2.5-pro",
	"gemini-2.0-flash",
	"gemini-3-flash-preview",
	"gemini-3-pro-preview",
}

func IsAgentSupported(agent string) bool {
	return slices.Contains(SupportedAgents, agent)
}

type Client struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewClient(ctx context.Context, model, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}
	if model == "" {
		model = DefaultAgent
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	m := client.GenerativeModel(model)
	m.ResponseMIMEType = "application/json"
	m.SetTemperature(0.7)

	return &Client{
		client: client,
		model:  m,
	}, nil
}

func (c *Client) GenerateContent(ctx context.Context, prompt string) (string, error) {
	return c.GenerateContentWithSystem(ctx, "", prompt)
}

// GenerateContentWithSystem sends userPrompt with systemPrompt as the
// model's system instruction.
func (c *Client) GenerateContentWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if systemPrompt != "" {
		c.model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(systemPrompt)},
		}
	}

	return retry.Do(ctx, retry.DefaultConfig(), func() (string, error) {
		resp, err := c.model.GenerateContent(ctx, genai.Text(userPrompt))
		if err != nil {
			if isRetryableError(err) {
				return "", retry.Retryable(fmt.Errorf("gemini API error: %w", err))
			}
			return "", fmt.Errorf("gemini API error: %w", err)
		}
		return extractText(resp)
	})
}

func (c *Client) Close() {
	_ = c.client.Close()
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no content generated")
	}
	cand := resp.Candidates[0]
	if cand.Content == nil || len(cand.Content.Parts) == 0 {
		return "", fmt.Errorf("no content generated")
	}

	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("unexpected response format")
	}
	return sb.String(), nil
}

func isRetryableError(err error) bool {
	s := err.Error()
	return strings.Contains(s, "429") ||
		strings.Contains(s, "RESOURCE_EXHAUSTED") ||
		strings.Contains(s, "503") ||
		strings.Contains(s, "UNAVAILABLE") ||
		strings.Contains(s, "500")
}

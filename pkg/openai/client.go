package openai

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/xrsl/reachout/pkg/retry"
)

const DefaultAgent = "gpt-4o-mini"

var SupportedAgents = []string{
	"gpt-4o-mini",
	"gpt-4o",
	"gpt-4.1-mini",
	"gpt-4.1",
	"gpt-3.5-turbo",
}

func IsAgentSupported(agent string) bool {
	return slices.Contains(SupportedAgents, agent)
}

type Client struct {
	client openai.Client
	model  string
}

func NewClient(model, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}
	if model == "" {
		model = DefaultAgent
	}
	return &Client{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

func (c *Client) GenerateContent(ctx context.Context, prompt string) (string, error) {
	return c.GenerateContentWithSystem(ctx, "", prompt)
}

func (c *Client) GenerateContentWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	messages = append(messages, openai.UserMessage(userPrompt))

	return retry.Do(ctx, retry.DefaultConfig(), func() (string, error) {
		completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model:    openai.ChatModel(c.model),
			Messages: messages,
		})
		if err != nil {
			return "", classify(err, c.model)
		}
		if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
			return "", fmt.Errorf("no content in response")
		}
		return completion.Choices[0].Message.Content, nil
	})
}

func (c *Client) Close() {}

// classify turns API errors into user-facing messages, marking rate limits
// and server errors as retryable.
func classify(err error, model string) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("openai API error: %w", err)
	}
	switch code := apiErr.StatusCode; {
	case code == 401:
		return fmt.Errorf("openai API error: invalid API key. Check OPENAI_API_KEY")
	case code == 404:
		return fmt.Errorf("openai API error: model %q not found", model)
	case code == 429 || code >= 500:
		return retry.Retryable(fmt.Errorf("openai API error: status %d: %s", code, apiErr.Message))
	default:
		return fmt.Errorf("openai API error: status %d: %s", code, apiErr.Message)
	}
}

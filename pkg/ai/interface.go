package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/xrsl/reachout/pkg/claude"
	"github.com/xrsl/reachout/pkg/gemini"
	"github.com/xrsl/reachout/pkg/openai"
)

// Client is the common interface for AI providers
type Client interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	GenerateContentWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Close()
}

// DefaultAgent is used when no agent is configured.
const DefaultAgent = openai.DefaultAgent

// Keys carries provider API keys.
type Keys struct {
	OpenAI    string
	Gemini    string
	Anthropic string
}

// Provider names an agent family.
type Provider string

const (
	ProviderOpenAI     Provider = "openai"
	ProviderGemini     Provider = "gemini"
	ProviderClaude     Provider = "claude"
	ProviderClaudeCode Provider = "claude-code"
	ProviderGeminiCLI  Provider = "gemini-cli"
	ProviderUnknown    Provider = ""
)

// ProviderOf resolves the provider for an agent name.
func ProviderOf(agent string) Provider {
	switch {
	case agent == "claude-code" || strings.HasPrefix(agent, "claude-code:"):
		return ProviderClaudeCode
	case agent == "gemini-cli" || strings.HasPrefix(agent, "gemini-cli:"):
		return ProviderGeminiCLI
	case strings.HasPrefix(agent, "gemini-"):
		return ProviderGemini
	case strings.HasPrefix(agent, "claude-"):
		return ProviderClaude
	case strings.HasPrefix(agent, "gpt-"):
		return ProviderOpenAI
	default:
		return ProviderUnknown
	}
}

// KeyEnv returns the environment variable holding the API key an agent
// needs, or "" for local CLI agents.
func KeyEnv(agent string) string {
	switch ProviderOf(agent) {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderGemini:
		return "GEMINI_API_KEY"
	case ProviderClaude:
		return "ANTHROPIC_API_KEY"
	default:
		return ""
	}
}

// KeyFor picks the key an agent needs out of keys.
func (k Keys) KeyFor(agent string) string {
	switch ProviderOf(agent) {
	case ProviderOpenAI:
		return k.OpenAI
	case ProviderGemini:
		return k.Gemini
	case ProviderClaude:
		return k.Anthropic
	default:
		return ""
	}
}

// NewClient creates an AI client based on agent prefix
func NewClient(ctx context.Context, agent string, keys Keys) (Client, error) {
	switch ProviderOf(agent) {
	case ProviderClaudeCode:
		if !IsClaudeCLIAvailable() {
			return nil, fmt.Errorf("claude CLI not found in PATH")
		}
		return NewClaudeCLI(subAgent(agent)), nil
	case ProviderGeminiCLI:
		if !IsGeminiCLIAvailable() {
			return nil, fmt.Errorf("gemini CLI not found in PATH")
		}
		return NewGeminiCLI(subAgent(agent)), nil
	case ProviderGemini:
		return gemini.NewClient(ctx, agent, keys.Gemini)
	case ProviderClaude:
		return claude.NewClient(agent, keys.Anthropic)
	case ProviderOpenAI:
		return openai.NewClient(agent, keys.OpenAI)
	default:
		return nil, fmt.Errorf("unknown agent: %s (use gpt-*, gemini-*, claude-*, claude-code or gemini-cli)", agent)
	}
}

// subAgent parses "claude-code:sonnet-4-5" into "sonnet-4-5".
func subAgent(agent string) string {
	if _, model, ok := strings.Cut(agent, ":"); ok {
		return model
	}
	return ""
}

// IsAgentSupported checks if an agent is supported by any provider
func IsAgentSupported(agent string) bool {
	switch ProviderOf(agent) {
	case ProviderClaudeCode:
		return IsClaudeCLIAvailable()
	case ProviderGeminiCLI:
		return IsGeminiCLIAvailable()
	case ProviderGemini:
		return gemini.IsAgentSupported(agent)
	case ProviderClaude:
		return claude.IsAgentSupported(agent)
	case ProviderOpenAI:
		return openai.IsAgentSupported(agent)
	default:
		return false
	}
}

// SupportedAgents returns all supported agents (CLI + API)
func SupportedAgents() []string {
	agents := []string{}
	if IsClaudeCLIAvailable() {
		agents = append(agents, "claude-code")
	}
	if IsGeminiCLIAvailable() {
		agents = append(agents, "gemini-cli")
	}
	agents = append(agents, openai.SupportedAgents...)
	agents = append(agents, gemini.SupportedAgents...)
	agents = append(agents, claude.SupportedAgents...)
	return agents
}

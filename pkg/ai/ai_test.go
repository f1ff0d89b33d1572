package ai

import (
	"context"
	"strings"
	"testing"
)

func TestProviderOf(t *testing.T) {
	tests := []struct {
		agent string
		want  Provider
	}{
		{"gpt-4o-mini", ProviderOpenAI},
		{"gemini-2.5-flash", ProviderGemini},
		{"claude-sonnet-4-5", ProviderClaude},
		{"claude-code", ProviderClaudeCode},
		{"claude-code:opus-4-5", ProviderClaudeCode},
		{"gemini-cli:flash", ProviderGeminiCLI},
		{"llama-3", ProviderUnknown},
		{"", ProviderUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.agent, func(t *testing.T) {
			if got := ProviderOf(tt.agent); got != tt.want {
				t.Errorf("ProviderOf(%q) = %q, want %q", tt.agent, got, tt.want)
			}
		})
	}
}

func TestKeyEnvAndKeyFor(t *testing.T) {
	keys := Keys{OpenAI: "sk-o", Gemini: "g", Anthropic: "a"}
	tests := []struct {
		agent   string
		wantEnv string
		wantKey string
	}{
		{"gpt-4o", "OPENAI_API_KEY", "sk-o"},
		{"gemini-2.5-pro", "GEMINI_API_KEY", "g"},
		{"claude-haiku-4-5", "ANTHROPIC_API_KEY", "a"},
		{"claude-code", "", ""},
	}
	for _, tt := range tests {
		if got := KeyEnv(tt.agent); got != tt.wantEnv {
			t.Errorf("KeyEnv(%q) = %q, want %q", tt.agent, got, tt.wantEnv)
		}
		if got := keys.KeyFor(tt.agent); got != tt.wantKey {
			t.Errorf("KeyFor(%q) = %q, want %q", tt.agent, got, tt.wantKey)
		}
	}
}

func TestSubAgent(t *testing.T) {
	if got := subAgent("claude-code:sonnet-4-5"); got != "sonnet-4-5" {
		t.Errorf("subAgent = %q", got)
	}
	if got := subAgent("gemini-cli"); got != "" {
		t.Errorf("subAgent = %q, want empty", got)
	}
}

func TestNewClientAPI(t *testing.T) {
	keys := Keys{OpenAI: "sk-test", Anthropic: "test"}
	for _, agent := range []string{"gpt-4o-mini", "claude-sonnet-4-5"} {
		client, err := NewClient(context.Background(), agent, keys)
		if err != nil {
			t.Fatalf("NewClient(%q): %v", agent, err)
		}
		client.Close()
	}
}

func TestNewClientMissingKey(t *testing.T) {
	_, err := NewClient(context.Background(), "gpt-4o-mini", Keys{})
	if err == nil || !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Errorf("expected missing key error, got %v", err)
	}
}

func TestNewClientInvalid(t *testing.T) {
	if _, err := NewClient(context.Background(), "invalid-model", Keys{}); err == nil {
		t.Error("expected error for invalid agent")
	}
}

func TestIsAgentSupported(t *testing.T) {
	for _, agent := range []string{"gpt-4o-mini", "gemini-2.5-flash", "claude-sonnet-4-5"} {
		if !IsAgentSupported(agent) {
			t.Errorf("%q should be supported", agent)
		}
	}
	if IsAgentSupported("gpt-2") {
		t.Error("gpt-2 should not be supported")
	}
	if len(SupportedAgents()) == 0 {
		t.Error("SupportedAgents() returned empty list")
	}
}

package openai

import (
	"errors"
	"strings"
	"testing"

	"github.com/openai/openai-go"

	"github.com/xrsl/reachout/pkg/retry"
)

func TestNewClient(t *testing.T) {
	if _, err := NewClient(DefaultAgent, ""); err == nil || !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Errorf("expected missing key error, got %v", err)
	}

	c, err := NewClient("", "sk-test")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if c.model != DefaultAgent {
		t.Errorf("model = %q, want %q", c.model, DefaultAgent)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
		contains  string
	}{
		{401, false, "invalid API key"},
		{404, false, "not found"},
		{429, true, "status 429"},
		{503, true, "status 503"},
		{400, false, "openai API error"},
	}
	for _, tt := range tests {
		err := classify(&openai.Error{StatusCode: tt.status}, "gpt-4o-mini")
		if retry.IsRetryable(err) != tt.retryable {
			t.Errorf("status %d: retryable = %v, want %v", tt.status, retry.IsRetryable(err), tt.retryable)
		}
		if !strings.Contains(err.Error(), tt.contains) {
			t.Errorf("status %d: error %q should contain %q", tt.status, err, tt.contains)
		}
	}

	if err := classify(errors.New("dial tcp: timeout"), "m"); retry.IsRetryable(err) {
		t.Error("transport errors without status should not be retried")
	}
}

func TestIsAgentSupported(t *testing.T) {
	if !IsAgentSupported("gpt-4o-mini") {
		t.Error("gpt-4o-mini should be supported")
	}
	if IsAgentSupported("claude-sonnet-4-5") {
		t.Error("claude model should not be supported")
	}
}

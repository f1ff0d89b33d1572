package ai

import (
	"context"
	"os/exec"
)

// GeminiCLI implements Client using the gemini CLI
type GeminiCLI struct {
	model string // e.g. "flash", "pro"
}

func NewGeminiCLI(model string) *GeminiCLI {
	return &GeminiCLI{model: model}
}

// IsGeminiCLIAvailable checks if gemini CLI is installed
func IsGeminiCLIAvailable() bool {
	_, err := exec.LookPath("gemini")
	return err == nil
}

func (c *GeminiCLI) GenerateContent(ctx context.Context, prompt string) (string, error) {
	return c.GenerateContentWithSystem(ctx, "", prompt)
}

// The gemini CLI has no system prompt flag, so instructions are prepended.
func (c *GeminiCLI) GenerateContentWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	prompt := userPrompt
	if systemPrompt != "" {
		prompt = systemPrompt + "\n\n" + userPrompt
	}
	args := []string{"-p", prompt, "-o", "text"}
	if c.model != "" {
		args = append(args, "--model", c.model)
	}
	return runCLI(ctx, "gemini", args)
}

func (c *GeminiCLI) Close() {}


package ai

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ClaudeCLI implements Client using the claude CLI
type ClaudeCLI struct {
	model string // e.g. "sonnet-4-5"
}

func NewClaudeCLI(model string) *ClaudeCLI {
	return &ClaudeCLI{model: model}
}

// IsClaudeCLIAvailable checks if claude CLI is installed
func IsClaudeCLIAvailable() bool {
	_, err := exec.LookPath("claude")
	return err == nil
}

func (c *ClaudeCLI) GenerateContent(ctx context.Context, prompt string) (string, error) {
	return c.GenerateContentWithSystem(ctx, "", prompt)
}

func (c *ClaudeCLI) GenerateContentWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	args := []string{"-p", userPrompt, "--output-format", "text"}
	if systemPrompt != "" {
		args = append(args, "--append-system-prompt", systemPrompt)
	}
	if c.model != "" {
		args = append(args, "--model", "claude-"+c.model)
	}
	return runCLI(ctx, "claude", args)
}

func (c *ClaudeCLI) Close() {}

// runCLI runs an agent CLI and returns its stdout, folding stderr into errors.
func runCLI(ctx context.Context, name string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return "", fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return string(output), nil
}

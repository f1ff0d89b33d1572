package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xrsl/reachout/pkg/ai"
	"github.com/xrsl/reachout/pkg/config"
	"github.com/xrsl/reachout/pkg/prompt"
	"github.com/xrsl/reachout/pkg/status"
	"github.com/xrsl/reachout/pkg/style"
	"github.com/xrsl/reachout/pkg/utils"
)

var doctorOnlineFlag bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that reachout is ready to send",
	Long: `Verify configuration, credentials and files needed for reachout run.

With --online, also log in to the mail server and read the sheet.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	doctorCmd.Annotations = map[string]string{
		style.EnvAnnotation: "GOOGLE_SHEET_ID GOOGLE_APPLICATION_CREDENTIALS CV_PATH REACHOUT_AGENT REACHOUT_TRANSPORT",
	}
	doctorCmd.Flags().BoolVar(&doctorOnlineFlag, "online", false, "Also verify mail login and sheet access")
	rootCmd.AddCommand(doctorCmd)
}

type checker struct {
	failed bool
}

func (c *checker) ok(format string, args ...any) {
	fmt.Printf("%s %s\n", style.C(style.Green, "✓"), fmt.Sprintf(format, args...))
}

func (c *checker) warn(format string, args ...any) {
	fmt.Printf("%s %s\n", style.C(style.Yellow, "⚠"), fmt.Sprintf(format, args...))
}

func (c *checker) fail(hint string, format string, args ...any) {
	c.failed = true
	fmt.Printf("%s %s\n", style.C(style.Red, "✗"), fmt.Sprintf(format, args...))
	if hint != "" {
		fmt.Printf("  %s\n", hint)
	}
}

func (c *checker) file(label, path, hint string) {
	switch {
	case path == "":
		c.fail(hint, "%s not configured", label)
	case !utils.FileExists(path):
		c.fail(hint, "%s not found: %s", label, path)
	default:
		c.ok("%s %s", label, style.C(style.Gray, path))
	}
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	var c checker

	fmt.Printf("%s Checking configuration\n\n", style.C(style.Blue, "→"))

	if utils.FileExists(config.Path()) {
		c.ok("config file %s", style.C(style.Gray, config.Path()))
	} else {
		c.warn("no %s, using environment and defaults (run: reachout init)", config.Path())
	}

	cfg, err := config.Load()
	if err != nil {
		c.fail("", "%v", err)
		return fmt.Errorf("setup issues detected")
	}
	if err := cfg.Validate(); err != nil {
		c.fail("Set the missing values in .env or with reachout config set", "%v", err)
	} else {
		c.ok("settings complete (transport %s, agent %s)", cfg.Transport, cfg.Agent)
	}

	fmt.Printf("\n%s Checking files\n\n", style.C(style.Blue, "→"))

	c.file("service account", cfg.ServiceAccountFile, "Download a JSON key for a service account with access to the sheet")
	c.file("CV", cfg.CVPath, "Set CV_PATH to the PDF to attach")

	if _, err := prompt.Load(cfg.PromptPath); err != nil {
		c.fail("Fix the template or run: reachout init --reset-prompt", "%v", err)
	} else if utils.FileExists(cfg.PromptPath) {
		c.ok("prompt template %s", style.C(style.Gray, cfg.PromptPath))
	} else {
		c.ok("prompt template (bundled default)")
	}

	if store, err := status.Load(cfg.StatusFile); err != nil {
		c.fail("Fix or move the file; it is recreated on the next run", "%v", err)
	} else {
		counts := store.Counts()
		c.ok("status file %s (%d sent, %d failed, %d skipped)", style.C(style.Gray, cfg.StatusFile),
			counts[status.Sent], counts[status.Failed], counts[status.Skipped])
	}

	fmt.Printf("\n%s Checking AI agent\n\n", style.C(style.Blue, "→"))

	switch ai.ProviderOf(cfg.Agent) {
	case ai.ProviderClaudeCode, ai.ProviderGeminiCLI:
		if ai.IsAgentSupported(cfg.Agent) {
			c.ok("%s available", cfg.Agent)
		} else {
			c.fail("Install the CLI or choose an API agent", "%s not found in PATH", cfg.Agent)
		}
	case ai.ProviderUnknown:
		c.fail(fmt.Sprintf("Supported: %v", ai.SupportedAgents()), "unknown agent %s", cfg.Agent)
	default:
		env := ai.KeyEnv(cfg.Agent)
		if os.Getenv(env) != "" || cfg.Keys().KeyFor(cfg.Agent) != "" {
			c.ok("%s set for %s", env, cfg.Agent)
		} else {
			c.fail("", "%s not set (required for %s)", env, cfg.Agent)
		}
		if !ai.IsAgentSupported(cfg.Agent) {
			c.warn("%s is not a known model name; the API may reject it", cfg.Agent)
		}
	}

	if doctorOnlineFlag && !c.failed {
		fmt.Printf("\n%s Checking connectivity\n\n", style.C(style.Blue, "→"))

		if err := newSender(cfg).Verify(ctx); err != nil {
			c.fail("", "mail login: %v", err)
		} else {
			c.ok("%s login as %s", cfg.Transport, cfg.FromAddress)
		}

		if source, err := newSource(ctx, cfg); err != nil {
			c.fail("", "%v", err)
		} else if recipients, err := source.Recipients(ctx); err != nil {
			c.fail("Share the sheet with the service account's email address", "%v", err)
		} else {
			c.ok("sheet readable, %d rows in %s", len(recipients), cfg.SheetRange)
		}
	}

	fmt.Println()

	if c.failed {
		return fmt.Errorf("setup issues detected")
	}
	fmt.Printf("%s Setup OK\n", style.C(style.Green, "✓"))
	return nil
}

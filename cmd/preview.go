package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xrsl/reachout/pkg/compose"
	"github.com/xrsl/reachout/pkg/recipient"
	"github.com/xrsl/reachout/pkg/status"
	"github.com/xrsl/reachout/pkg/style"
)

var (
	previewAgentFlag  string
	previewPromptFlag bool
)

var previewCmd = &cobra.Command{
	Use:   "preview <email>",
	Short: "Draft the email for one recipient without sending it",
	Long: `Look up a recipient in the sheet and print the email the AI drafts for them.

Nothing is sent and the status file is not touched. Use it to tune the prompt
template in .reachout/prompt.md.

Examples:
  reachout preview prof@uni.edu
  reachout preview prof@uni.edu --prompt     # also print the rendered prompt
  reachout preview prof@uni.edu -a claude-sonnet-4-5`,
	Args: cobra.ExactArgs(1),
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().StringVarP(&previewAgentFlag, "agent", "a", "", "AI agent (overrides config)")
	previewCmd.Flags().BoolVar(&previewPromptFlag, "prompt", false, "Print the rendered prompt before the draft")
	rootCmd.AddCommand(previewCmd)
}

func runPreview(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	key := recipient.Key(args[0])

	cfg, err := loadConfig(previewAgentFlag)
	if err != nil {
		return err
	}

	source, err := newSource(ctx, cfg)
	if err != nil {
		return err
	}
	recipients, err := source.Recipients(ctx)
	if err != nil {
		return err
	}

	var target *recipient.Recipient
	for i := range recipients {
		if recipients[i].Key() == key {
			target = &recipients[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("%s not found in sheet range %s", args[0], cfg.SheetRange)
	}
	if err := target.Validate(); err != nil {
		return fmt.Errorf("row %d: %w", target.Row, err)
	}

	if store, err := status.Load(cfg.StatusFile); err == nil && store.IsSent(key) {
		fmt.Printf("%s%s was already emailed; a run will not send this\n\n", style.Warning("Note"), target.Email)
	}

	composer, client, err := newComposer(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	if previewPromptFlag {
		p, err := composer.Prompt(*target)
		if err != nil {
			return err
		}
		fmt.Printf("%s\n%s\n\n", style.C(style.Magenta, "Prompt:"), p)
	}

	var draft compose.Draft
	err = withSpinner(fmt.Sprintf("Drafting email using 🤖 %s...", cfg.Agent), func() error {
		var err error
		draft, err = composer.Compose(ctx, *target)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Printf("%s %s\n", style.B("To:"), target)
	fmt.Printf("%s %s\n", style.B("Subject:"), draft.Subject)
	fmt.Printf("%s %s\n\n", style.B("Attachment:"), cfg.AttachmentName)
	fmt.Println(draft.Body)
	return nil
}

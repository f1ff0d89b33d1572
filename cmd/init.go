package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xrsl/reachout/pkg/config"
	"github.com/xrsl/reachout/pkg/prompt"
	"github.com/xrsl/reachout/pkg/style"
)

var (
	initForceFlag       bool
	initResetPromptFlag bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize reachout in this directory",
	Long: `Create the configuration file and an editable prompt template.

Creates:
  .reachout.yaml         Settings (secrets stay in .env or the environment)
  .reachout/prompt.md    Prompt template used to draft each email

Existing files are kept unless --force or --reset-prompt is given.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForceFlag, "force", false, "Overwrite an existing config file with defaults")
	initCmd.Flags().BoolVar(&initResetPromptFlag, "reset-prompt", false, "Overwrite the prompt template with the bundled default")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	created, err := config.WriteDefaults(initForceFlag)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", config.Path(), err)
	}
	if created {
		fmt.Printf("%s%s\n", style.Success("Created"), config.Path())
	} else {
		fmt.Printf("%s %s already exists\n", style.C(style.Green, "✓"), config.Path())
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	promptPath := cfg.PromptPath
	if promptPath == "" {
		promptPath = prompt.DefaultPath
	}

	if initResetPromptFlag {
		if err := prompt.Reset(promptPath); err != nil {
			return err
		}
		fmt.Printf("%s%s\n", style.Success("Reset"), promptPath)
	} else {
		created, err := prompt.Init(promptPath)
		if err != nil {
			return err
		}
		if created {
			fmt.Printf("%s%s\n", style.Success("Created"), promptPath)
		} else {
			fmt.Printf("%s %s already exists\n", style.C(style.Green, "✓"), promptPath)
		}
	}

	fmt.Printf("\n%s\n", style.B("Next steps:"))
	fmt.Printf("  %s    set the sheet ID\n", style.C(style.Cyan, "reachout config set sheet_id <id>"))
	fmt.Printf("  %s      set the CV to attach\n", style.C(style.Cyan, "reachout config set cv_path cv.pdf"))
	fmt.Printf("  %s   EMAIL_USERNAME, EMAIL_PASSWORD and %s\n", style.C(style.Cyan, "add secrets to .env:"), "OPENAI_API_KEY")
	fmt.Printf("  %s                          check everything\n\n", style.C(style.Cyan, "reachout doctor"))
	return nil
}

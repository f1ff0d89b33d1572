package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/xrsl/reachout/pkg/campaign"
	"github.com/xrsl/reachout/pkg/status"
	"github.com/xrsl/reachout/pkg/style"
)

var (
	runDryRunFlag   bool
	runLimitFlag    int
	runIntervalFlag time.Duration
	runAgentFlag    string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Send the next batch of emails",
	Long: `Fetch recipients from the sheet and email everyone not yet marked sent.

Each outcome is written to the status file as soon as it is known, so the
command can be interrupted and rerun safely. Failed and skipped recipients
are retried on the next run.

Examples:
  reachout run
  reachout run --dry-run --limit 2       # print two drafts, send nothing
  reachout run --interval 1m -a gemini-2.5-flash`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runCmd.Annotations = map[string]string{
		style.EnvAnnotation: "GOOGLE_SHEET_ID GOOGLE_APPLICATION_CREDENTIALS EMAIL_USERNAME EMAIL_PASSWORD " +
			"RESEND_API_KEY OPENAI_API_KEY GEMINI_API_KEY ANTHROPIC_API_KEY CV_PATH EMAILS_PER_DAY REACHOUT_STATUS_FILE",
	}
	runCmd.Flags().BoolVar(&runDryRunFlag, "dry-run", false, "Draft and print emails without sending or recording")
	runCmd.Flags().IntVarP(&runLimitFlag, "limit", "n", 0, "Maximum emails to send this run, 0 for no limit (overrides max_per_run)")
	runCmd.Flags().DurationVar(&runIntervalFlag, "interval", 0, "Minimum pause between two emails (overrides send_interval)")
	runCmd.Flags().StringVarP(&runAgentFlag, "agent", "a", "", "AI agent (overrides config)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(runAgentFlag)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("limit") {
		if runLimitFlag < 0 {
			return fmt.Errorf("--limit must not be negative")
		}
		cfg.MaxPerRun = runLimitFlag
	}
	if cmd.Flags().Changed("interval") {
		cfg.SendInterval = runIntervalFlag
	}

	store, err := status.Load(cfg.StatusFile)
	if err != nil {
		return err
	}

	attachment, err := loadAttachment(cfg)
	if err != nil {
		return err
	}

	source, err := newSource(ctx, cfg)
	if err != nil {
		return err
	}

	composer, client, err := newComposer(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	runner := campaign.New(source, composer, newSender(cfg), store, campaign.Options{
		MaxPerRun:    cfg.MaxPerRun,
		SendInterval: cfg.SendInterval,
		DryRun:       runDryRunFlag,
		Out:          os.Stdout,
		From:         cfg.FromAddress,
		FromName:     cfg.FromName,
		ReplyTo:      cfg.ReplyTo,
		Attachment:   attachment,
	})

	if runDryRunFlag {
		log("Dry run: drafting with %s, nothing will be sent", cfg.Agent)
	} else {
		limit := "no limit"
		if cfg.MaxPerRun > 0 {
			limit = fmt.Sprintf("at most %d emails", cfg.MaxPerRun)
		}
		log("Sending via %s, drafting with %s, %s", cfg.Transport, cfg.Agent, limit)
	}

	sum, err := runner.Run(ctx)
	printSummary(sum, runDryRunFlag, store.Path())
	return err
}

func printSummary(sum campaign.Summary, dryRun bool, path string) {
	if quiet {
		return
	}
	fmt.Println()
	if dryRun {
		fmt.Printf("%s%d drafted, %d already sent, %d skipped (nothing sent)\n",
			style.Success("Dry run"), sum.Drafted, sum.AlreadySent, sum.Skipped)
		return
	}

	label := style.Success("Done")
	if sum.Interrupted {
		label = style.Warning("Interrupted")
	}
	fmt.Printf("%s%s sent, %s failed, %d skipped, %d already sent\n",
		label,
		style.C(style.Green, fmt.Sprint(sum.Sent)),
		style.C(style.Red, fmt.Sprint(sum.Failed)),
		sum.Skipped,
		sum.AlreadySent,
	)
	if sum.Remaining > 0 {
		fmt.Printf("  %d recipients left for the next run\n", sum.Remaining)
	}
	fmt.Printf("  %s\n", style.C(style.Gray, path))
}

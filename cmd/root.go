package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/xrsl/reachout/pkg/config"
	clog "github.com/xrsl/reachout/pkg/log"
	"github.com/xrsl/reachout/pkg/signal"
	"github.com/xrsl/reachout/pkg/style"
)

var (
	quiet   bool
	verbose bool
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "reachout",
	Short: "Send personalized internship emails from a Google Sheet",
	Long: `reachout sends one batch of internship application emails per run.

Recipients come from a Google Sheet, each email is drafted by an AI model and
sent with your CV attached. Outcomes are kept in a status file so a recipient
is never mailed twice, and a scheduled job can simply run it again tomorrow.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupRoot,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	// Load .env file if it exists
	_ = godotenv.Load()

	ctx, cancel := signal.WithInterrupt(context.Background())
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s%v\n", style.Failure("Error"), err)
		os.Exit(1)
	}
}

func init() {
	// Setup Typer-style help formatting
	style.SetupHelp(rootCmd)

	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log warnings and errors")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug details")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default .reachout.yaml)")
	rootCmd.MarkFlagsMutuallyExclusive("quiet", "verbose")
}

func setupRoot(cmd *cobra.Command, args []string) error {
	clog.SetVerbose(verbose)
	clog.SetQuiet(quiet)
	if cfgFile != "" {
		return config.SetFile(cfgFile)
	}
	return nil
}

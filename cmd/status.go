package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xrsl/reachout/pkg/config"
	"github.com/xrsl/reachout/pkg/status"
	"github.com/xrsl/reachout/pkg/style"
)

var statusStateFlag string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show who has been emailed",
	Long: `List the recorded outcome for every recipient in the status file.

Examples:
  reachout status
  reachout status --state failed
  reachout status reset prof@uni.edu`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

var statusResetCmd = &cobra.Command{
	Use:   "reset <email>...",
	Short: "Forget recipients so the next run emails them again",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runStatusReset,
}

func init() {
	statusCmd.Flags().StringVarP(&statusStateFlag, "state", "s", "", "Only show entries in this state (sent, failed, skipped)")
	statusCmd.AddCommand(statusResetCmd)
	rootCmd.AddCommand(statusCmd)
}

func loadStatus() (*status.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	return status.Load(cfg.StatusFile)
}

func runStatus(cmd *cobra.Command, args []string) error {
	filter := status.State(strings.ToLower(statusStateFlag))
	if filter != "" && !filter.Valid() {
		return fmt.Errorf("unknown state: %s (use sent, failed or skipped)", statusStateFlag)
	}

	store, err := loadStatus()
	if err != nil {
		return err
	}

	if store.Len() == 0 {
		fmt.Printf("No recipients recorded in %s\n", store.Path())
		return nil
	}

	shown := 0
	for _, e := range store.Entries() {
		if filter != "" && e.State != filter {
			continue
		}
		printEntry(e)
		shown++
	}
	if shown == 0 {
		fmt.Printf("No %s recipients\n", filter)
	}

	counts := store.Counts()
	fmt.Printf("\n%s %d sent, %d failed, %d skipped\n",
		style.B(fmt.Sprintf("%d recipients:", store.Len())),
		counts[status.Sent], counts[status.Failed], counts[status.Skipped])
	fmt.Println(style.C(style.Gray, store.Path()))
	return nil
}

func printEntry(e status.Entry) {
	state := string(e.State)
	pad := ""
	if n := 8 - len(state); n > 0 {
		pad = strings.Repeat(" ", n)
	}
	fmt.Printf("  %-36s %s%s %d  %s", e.Email, style.State(state), pad, e.Attempts,
		style.C(style.Gray, e.UpdatedAt.Local().Format("2006-01-02 15:04")))
	if e.Error != "" {
		fmt.Printf("  %s", truncate(e.Error, 60))
	}
	fmt.Println()
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func runStatusReset(cmd *cobra.Command, args []string) error {
	store, err := loadStatus()
	if err != nil {
		return err
	}

	var missing []string
	for _, email := range args {
		if store.Reset(email) {
			fmt.Printf("%s%s\n", style.Success("Reset"), email)
		} else {
			missing = append(missing, email)
		}
	}

	if err := store.Save(); err != nil {
		return err
	}
	if len(missing) > 0 {
		return fmt.Errorf("no entry for %s", strings.Join(missing, ", "))
	}
	return nil
}

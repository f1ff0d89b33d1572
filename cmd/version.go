package cmd

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X github.com/xrsl/reachout/cmd.Version=...".
var Version = ""

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print reachout version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("reachout %s\n", getVersion())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func getVersion() string {
	if Version != "" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev"
}

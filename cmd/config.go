package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xrsl/reachout/pkg/config"
	"github.com/xrsl/reachout/pkg/style"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage reachout configuration",
	Long: `Show or change settings in .reachout.yaml.

Environment variables (and .env) override the file. Secrets such as
EMAIL_PASSWORD and API keys can only be set through the environment.

Examples:
  reachout config list
  reachout config get max_per_run
  reachout config set sheet_range "Targets!A2:D"
  reachout config set columns name,email,research_domain,organization`,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if err := config.Set(key, value); err != nil {
			return err
		}
		fmt.Printf("Set %s = %s\n", key, value)
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a config value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := config.Get(args[0])
		if err != nil {
			return err
		}
		if value == "" {
			fmt.Println("(not set)")
		} else {
			fmt.Println(value)
		}
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all config values",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := config.Load(); err != nil {
			return err
		}
		values := config.All()

		fmt.Printf("\n%s\n", style.B(style.C(style.Cyan, "reachout config")))
		fmt.Printf("%s\n\n", style.C(style.Gray, config.Path()))

		for _, k := range config.Keys() {
			printConfigRow(k, values[k.Name])
		}
		fmt.Println()
		return nil
	},
}

func printConfigRow(k config.Key, value string) {
	env := ""
	if k.Env != "" {
		env = style.C(style.Gray, "$"+k.Env)
	}
	if value == "" {
		fmt.Printf("  %-22s %s %s\n", k.Name, style.C(style.Gray, "(not set)"), env)
		return
	}
	fmt.Printf("  %-22s %s %s\n", k.Name, style.C(style.Green, value), env)
}

func init() {
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configListCmd)
	rootCmd.AddCommand(configCmd)
}

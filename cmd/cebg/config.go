package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ceinfra/cebg/internal/config"
	"github.com/ceinfra/cebg/internal/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration settings",
	Long: `Manage cebg configuration.

Settings live in .cebg/config.yaml (searched upward from the working
directory) and can be overridden per-invocation with CEBG_* environment
variables. Run 'cebg config list' to see every key, its value, and its
environment variable.

Examples:
  cebg config set discovery.bucket compiler-artifacts
  cebg config set aws.region us-east-2
  cebg config get discovery.prefix
  cebg config list`,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a configuration value",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		key := args[0]
		if config.LookupKey(key) == nil {
			fmt.Fprintf(os.Stderr, "Error: unknown config key %q\n", key)
			os.Exit(1)
		}
		fmt.Println(config.GetString(key))
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	Run: func(_ *cobra.Command, args []string) {
		key, value := args[0], args[1]
		if err := config.Set(key, value); err != nil {
			fmt.Fprintf(os.Stderr, "Error setting config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Set %s = %s\n", key, value)
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all configuration keys and current values",
	Run: func(_ *cobra.Command, _ []string) {
		for _, k := range config.Keys {
			value := config.GetString(k.Name)
			if value == "" {
				value = ui.RenderMuted("(unset)")
			}
			fmt.Printf("%s = %s\n", k.Name, value)
			fmt.Printf("  %s\n", ui.RenderMuted(fmt.Sprintf("%s [%s]", k.Description, k.EnvVar)))
		}
	},
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configListCmd)
	rootCmd.AddCommand(configCmd)
}

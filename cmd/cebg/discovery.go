package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ceinfra/cebg/internal/discovery"
	"github.com/ceinfra/cebg/internal/env"
	"github.com/ceinfra/cebg/internal/release"
	"github.com/ceinfra/cebg/internal/ui"
)

var discoveryCmd = &cobra.Command{
	Use:   "discovery",
	Short: "Inspect and repair compiler discovery artifacts",
}

var discoveryStatusCmd = &cobra.Command{
	Use:   "status <version>",
	Short: "Show which environments have discovery for a version",
	Long: `Probe every environment for the version's discovery artifact and print one
status line per environment, in the order prod, staging, beta.

A probe failure aborts the report rather than printing "not found": an
unreachable artifact store is not the same as a missing artifact.`,
	Args: cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		version := args[0]
		red := color.New(color.FgRed).SprintFunc()

		store, err := newArtifactStore(rootCtx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", red("Error:"), err)
			os.Exit(1)
		}

		statuses, err := discovery.ProbeStatuses(rootCtx, store, version, env.All())
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", red("Error:"), err)
			os.Exit(1)
		}

		fmt.Printf("%s\n", ui.RenderHeading(fmt.Sprintf("Discovery status for %s:", version)))
		discovery.WriteStatuses(os.Stdout, statuses)
	},
}

var discoveryCopyFrom string

var discoveryCopyCmd = &cobra.Command{
	Use:   "copy <version>",
	Short: "Copy discovery from a sibling environment into prod and re-verify",
	Long: `Copy the version's discovery artifact from a sibling environment into
production, then re-run the production discovery check. On copy or
verification failure this falls back to a release without the discovery
check, mirroring what the interactive deploy recovery does.

EXAMPLES:

  cebg discovery copy gh-12345 --from staging
  cebg discovery copy gh-12345 --from beta`,
	Args: cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		version := args[0]
		red := color.New(color.FgRed).SprintFunc()

		source, err := env.Parse(discoveryCopyFrom)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", red("Error:"), err)
			os.Exit(1)
		}
		if source == env.Prod {
			fmt.Fprintf(os.Stderr, "%s cannot copy discovery from prod to itself\n", red("Error:"))
			os.Exit(1)
		}

		store, err := newArtifactStore(rootCtx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", red("Error:"), err)
			os.Exit(1)
		}
		relSource := release.NewSource(store)

		flow := &discovery.RecoveryFlow{
			Prober:   store,
			Copier:   store,
			Checker:  relSource,
			Fallback: relSource,
		}
		dctx := &release.DeployContext{Version: version}

		rel, err := flow.CopyAndCheck(rootCtx, source, version, dctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", red("Error:"), err)
			os.Exit(1)
		}
		if !rel.HasDiscovery {
			os.Exit(1)
		}
	},
}

func init() {
	discoveryCopyCmd.Flags().StringVar(&discoveryCopyFrom, "from", "staging", "Source environment (staging or beta)")
	discoveryCmd.AddCommand(discoveryStatusCmd)
	discoveryCmd.AddCommand(discoveryCopyCmd)
	rootCmd.AddCommand(discoveryCmd)
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ceinfra/cebg/internal/config"
	"github.com/ceinfra/cebg/internal/debug"
	"github.com/ceinfra/cebg/internal/telemetry"
)

var (
	verboseFlag bool
	quietFlag   bool

	// Signal-aware context for graceful cancellation
	rootCtx    context.Context
	rootCancel context.CancelFunc
)

var rootCmd = &cobra.Command{
	Use:   "cebg",
	Short: "cebg - blue-green deployment helper for compiler discovery",
	Long: `cebg manages compiler discovery artifacts during blue-green deployments.

Production deployments require a per-version discovery artifact so the site
knows which compilers a release supports. When the artifact is missing, cebg
probes the staging and beta environments for an equivalent one and walks the
operator through the recovery options.`,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help() // Help() always returns nil for cobra commands
	},
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		debug.SetVerbose(verboseFlag)
		debug.SetQuiet(quietFlag)

		rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

		if err := telemetry.Init(rootCtx, "cebg", Version); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: telemetry init failed: %v\n", err)
		}
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		telemetry.Shutdown(shutdownCtx)

		if rootCancel != nil {
			rootCancel()
		}
	},
}

func init() {
	if err := config.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize config: %v\n", err)
	}

	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose/debug output")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-essential output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

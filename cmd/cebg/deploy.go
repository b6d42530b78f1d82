package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/term"

	"github.com/ceinfra/cebg/internal/config"
	"github.com/ceinfra/cebg/internal/discovery"
	"github.com/ceinfra/cebg/internal/discovery/s3store"
	"github.com/ceinfra/cebg/internal/release"
	"github.com/ceinfra/cebg/internal/telemetry"
)

// exitCodeCancelled is returned when the operator aborts from the recovery
// menu, so wrapper scripts can tell a deliberate abort from a failure.
const exitCodeCancelled = 3

var deployCmd = &cobra.Command{
	Use:   "deploy <version>",
	Short: "Resolve a release for a blue-green production deployment",
	Long: `Resolve the release for a production deployment of the given version.

The normal path verifies that a compiler discovery artifact exists for the
version in production. When it doesn't, cebg probes staging and beta and
offers the operator a recovery menu:

  - copy the artifact from a sibling environment and re-verify
  - continue without discovery (risky, reduced verification)
  - cancel the deployment

Traffic cutover and instance management are handled by the surrounding
deployment pipeline; this command only resolves the release.

EXAMPLES:

  cebg deploy gh-12345            # verify discovery and resolve the release
  CEBG_DEBUG=1 cebg deploy gh-12345   # with probe-level logging`,
	Args: cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		version := args[0]

		red := color.New(color.FgRed).SprintFunc()
		green := color.New(color.FgGreen).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()

		store, err := newArtifactStore(rootCtx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", red("Error:"), err)
			os.Exit(1)
		}
		source := release.NewSource(store)
		dctx := &release.DeployContext{
			Version:     version,
			TargetColor: config.GetString("deploy.target_color"),
		}

		ctx, span := telemetry.Tracer("").Start(rootCtx, "deploy.resolve_release")
		defer span.End()

		rel, err := source.CheckCompilerDiscovery(ctx, dctx)
		outcome := "verified"
		if err != nil {
			var missing *release.MissingDiscoveryError
			if !errors.As(err, &missing) {
				// Probe transport failure: recovering through the same
				// broken transport would only mislead the operator.
				fmt.Fprintf(os.Stderr, "%s %v\n", red("Error:"), err)
				os.Exit(1)
			}

			if !term.IsTerminal(int(os.Stdin.Fd())) {
				fmt.Fprintf(os.Stderr, "%s prod discovery is missing for %s and no terminal is attached\n", red("Error:"), version)
				fmt.Fprintf(os.Stderr, "Rerun interactively, or generate discovery with: ce workflows run-discovery --buildnumber %s --environment staging\n", version)
				os.Exit(1)
			}

			flow := &discovery.RecoveryFlow{
				Prober:   store,
				Copier:   store,
				Checker:  source,
				Fallback: source,
			}
			rel, err = flow.HandleProdMissingDiscovery(ctx, err, version, dctx)
			if err != nil {
				if discovery.IsCancelled(err) {
					recordOutcome(ctx, "cancelled")
					fmt.Printf("%s Deployment of %s cancelled.\n", yellow("⚠"), version)
					os.Exit(exitCodeCancelled)
				}
				fmt.Fprintf(os.Stderr, "%s %v\n", red("Error:"), err)
				os.Exit(1)
			}
			outcome = "recovered"
			if !rel.HasDiscovery {
				outcome = "fallback"
			}
		}
		recordOutcome(ctx, outcome)

		if rel.HasDiscovery {
			fmt.Printf("%s Release %s ready for %s (discovery verified)\n", green("✓"), rel.Version, rel.Env)
		} else {
			fmt.Printf("%s Release %s ready for %s WITHOUT verified discovery\n", yellow("⚠"), rel.Version, rel.Env)
		}
	},
}

func init() {
	rootCmd.AddCommand(deployCmd)
}

// newArtifactStore builds the S3-backed discovery store from configuration.
func newArtifactStore(ctx context.Context) (*s3store.Store, error) {
	return s3store.New(ctx, s3store.Config{
		Bucket:          config.GetString("discovery.bucket"),
		Prefix:          config.GetString("discovery.prefix"),
		Region:          config.GetString("aws.region"),
		Endpoint:        config.GetString("aws.endpoint"),
		AccessKeyID:     config.GetString("aws.access_key_id"),
		SecretAccessKey: config.GetString("aws.secret_access_key"),
	})
}

// recordOutcome bumps the per-outcome deploy counter. Telemetry is usually
// disabled, in which case this is a no-op on the noop meter.
func recordOutcome(ctx context.Context, outcome string) {
	counter, err := telemetry.Meter("").Int64Counter("cebg.deploy.outcome")
	if err != nil {
		return
	}
	counter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

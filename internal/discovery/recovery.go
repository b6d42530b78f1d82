package discovery

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ceinfra/cebg/internal/env"
	"github.com/ceinfra/cebg/internal/release"
	"github.com/ceinfra/cebg/internal/ui"
)

// runDiscoveryHint is the out-of-band remediation shown when no sibling
// environment can supply the artifact.
const runDiscoveryHint = "ce workflows run-discovery --buildnumber %s --environment staging"

// RecoveryFlow drives the interactive recovery when production's compiler
// discovery check fails: probe siblings, present a menu, dispatch the
// operator's choice. All collaborators are injected so the flow itself stays
// free of transport and terminal specifics.
//
// A flow instance handles one deployment at a time; it assumes exclusive
// operator control and holds no state between invocations.
type RecoveryFlow struct {
	Prober   Prober
	Copier   Copier
	Checker  release.Checker
	Fallback release.Fallback

	// In and Out are the operator terminal. Nil values default to
	// os.Stdin/os.Stdout.
	In  io.Reader
	Out io.Writer
}

func (f *RecoveryFlow) out() io.Writer {
	if f.Out != nil {
		return f.Out
	}
	return os.Stdout
}

func (f *RecoveryFlow) in() io.Reader {
	if f.In != nil {
		return f.In
	}
	return os.Stdin
}

// HandleProdMissingDiscovery recovers from a failed production discovery
// check. It probes staging and beta (production is already known absent),
// shows their status, and asks the operator to pick a remediation. It
// returns the release produced by exactly one dispatched action, or a
// DeploymentCancelledError when the operator aborts.
//
// Probe failures propagate: an unreachable artifact store must never be
// presented to the operator as "not found".
func (f *RecoveryFlow) HandleProdMissingDiscovery(ctx context.Context, originalErr error, version string, dctx *release.DeployContext) (*release.Release, error) {
	w := f.out()

	fmt.Fprintf(w, "\n%s Prod discovery check failed for %s: %v\n", ui.RenderWarn(ui.IconWarn), version, originalErr)

	statuses, err := ProbeStatuses(ctx, f.Prober, version, env.Siblings())
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(w, "\n%s\n", ui.RenderHeading("Sibling discovery status:"))
	WriteStatuses(w, statuses)
	fmt.Fprintln(w)

	stagingFound := statusFound(statuses, env.Staging)
	betaFound := statusFound(statuses, env.Beta)

	switch {
	case stagingFound:
		fmt.Fprintf(w, "Staging discovery IS available for %s.\n", version)
	case betaFound:
		fmt.Fprintf(w, "Beta discovery IS available for %s.\n", version)
	default:
		fmt.Fprintf(w, "%s\n", ui.RenderWarn("WARNING: No discovery found in staging or beta."))
		fmt.Fprintf(w, "You can generate it out-of-band and retry the deployment:\n")
		fmt.Fprintf(w, "  "+runDiscoveryHint+"\n", version)
	}

	options := buildMenu(stagingFound, betaFound)
	writeMenu(w, options)

	choice, err := f.readChoice(ctx, options)
	if err != nil {
		return nil, err
	}

	switch choice.kind {
	case actionCopy:
		return f.CopyAndCheck(ctx, choice.source, version, dctx)
	case actionContinue:
		return f.Fallback.ReleaseWithoutDiscoveryCheck(ctx, dctx)
	default:
		return nil, &DeploymentCancelledError{Version: version}
	}
}

// readChoice reads operator tokens until one matches the menu. Invalid
// tokens are rejected with no side effects; there is no retry limit, the
// operator cancels explicitly or keeps trying. A read failure (closed or
// exhausted input) or context cancellation aborts the flow.
func (f *RecoveryFlow) readChoice(ctx context.Context, options []menuOption) (menuOption, error) {
	reader := bufio.NewReader(f.in())
	for {
		fmt.Fprintf(f.out(), "Your choice: ")
		line, err := readLineWithContext(ctx, reader)
		if err != nil && line == "" {
			return menuOption{}, fmt.Errorf("reading menu choice: %w", err)
		}
		opt, ok := selectOption(line, options)
		if !ok {
			fmt.Fprintf(f.out(), "Invalid choice %q, enter 1-%d.\n", trimToken(line), len(options))
			if err != nil {
				// Last line before EOF was invalid; nothing more to read.
				return menuOption{}, fmt.Errorf("reading menu choice: %w", err)
			}
			continue
		}
		return opt, nil
	}
}

// CopyAndCheck copies discovery from source into production and re-runs the
// production check. Both a copy failure and a post-copy verification failure
// degrade to the discovery-less fallback instead of aborting: by then the
// operator has already chosen to deploy this version.
func (f *RecoveryFlow) CopyAndCheck(ctx context.Context, source env.Environment, version string, dctx *release.DeployContext) (*release.Release, error) {
	w := f.out()

	fmt.Fprintf(w, "Copying discovery from %s to prod...\n", source)
	copied, err := f.Copier.CopyToProd(ctx, source, version)
	if err != nil {
		fmt.Fprintf(w, "%s Copy from %s failed: %v\n", ui.RenderFail(ui.IconFail), source, err)
		return f.withoutDiscovery(ctx, dctx)
	}
	if !copied {
		fmt.Fprintf(w, "%s Copy from %s reported failure.\n", ui.RenderFail(ui.IconFail), source)
		return f.withoutDiscovery(ctx, dctx)
	}

	fmt.Fprintf(w, "Copy complete, re-checking prod discovery...\n")
	rel, err := f.Checker.CheckCompilerDiscovery(ctx, dctx)
	if err != nil {
		fmt.Fprintf(w, "%s Discovery check still failing after copy: %v\n", ui.RenderWarn(ui.IconWarn), err)
		return f.withoutDiscovery(ctx, dctx)
	}

	fmt.Fprintf(w, "%s Prod discovery verified for %s.\n", ui.RenderPass(ui.IconPass), version)
	return rel, nil
}

func (f *RecoveryFlow) withoutDiscovery(ctx context.Context, dctx *release.DeployContext) (*release.Release, error) {
	fmt.Fprintf(f.out(), "Falling back to a release without the discovery check.\n")
	return f.Fallback.ReleaseWithoutDiscoveryCheck(ctx, dctx)
}

func statusFound(statuses []Status, e env.Environment) bool {
	for _, s := range statuses {
		if s.Env == e {
			return s.Found
		}
	}
	return false
}

func trimToken(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

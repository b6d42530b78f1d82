// Package discovery implements the compiler discovery recovery flow for
// blue-green deployments: probing sibling environments for a discovery
// artifact production is missing, walking the operator through the
// remediation options, and running the copy-then-reverify protocol.
package discovery

import (
	"context"
	"fmt"
	"io"

	"github.com/ceinfra/cebg/internal/env"
	"github.com/ceinfra/cebg/internal/ui"
)

// Prober reports whether a discovery artifact exists for an
// (environment, version) pair. Absence is a normal false result;
// a non-nil error always means the probe itself failed, never that
// the artifact is missing.
type Prober interface {
	Exists(ctx context.Context, e env.Environment, version string) (bool, error)
}

// Copier copies a sibling environment's discovery artifact into production.
// The bool reports success; there is no partial-success state.
type Copier interface {
	CopyToProd(ctx context.Context, source env.Environment, version string) (bool, error)
}

// Status is one environment's probe result for a single version.
// Statuses are produced fresh on every probe and never cached.
type Status struct {
	Env   env.Environment
	Found bool
}

// Line renders the status as the canonical single-line form,
// e.g. "staging: found" or "beta: not found".
func (s Status) Line() string {
	if s.Found {
		return fmt.Sprintf("%s: %s", s.Env, ui.RenderPass("found"))
	}
	return fmt.Sprintf("%s: %s", s.Env, ui.RenderFail("not found"))
}

// ProbeStatuses probes each environment in the given order and returns one
// Status per environment. The first probe failure aborts: a partial report
// could misrepresent an unreachable store as a missing artifact.
func ProbeStatuses(ctx context.Context, p Prober, version string, envs []env.Environment) ([]Status, error) {
	statuses := make([]Status, 0, len(envs))
	for _, e := range envs {
		found, err := p.Exists(ctx, e, version)
		if err != nil {
			return nil, fmt.Errorf("probing %s discovery for %s: %w", e, version, err)
		}
		statuses = append(statuses, Status{Env: e, Found: found})
	}
	return statuses, nil
}

// WriteStatuses writes one line per status to w, indented for report output.
func WriteStatuses(w io.Writer, statuses []Status) {
	for _, s := range statuses {
		fmt.Fprintf(w, "  %s\n", s.Line())
	}
}

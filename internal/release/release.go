// Package release models the artifact a blue-green deployment promotes and
// the two ways the deploy flow can obtain one: the normal path that verifies
// production compiler discovery first, and the degraded path that skips the
// check entirely.
package release

import (
	"context"
	"fmt"

	"github.com/ceinfra/cebg/internal/env"
)

// Release describes a deployable build for one environment.
// The recovery flow treats it as opaque beyond "exists".
type Release struct {
	Version      string          // build identifier, e.g. "gh-12345"
	Env          env.Environment // environment the release targets
	HasDiscovery bool            // whether compiler discovery was verified for this release
}

// DeployContext carries ambient deployment state that would otherwise live in
// globals: the version being rolled out and which color generation receives it.
// It is threaded explicitly through the recovery flow and release sources.
type DeployContext struct {
	Version     string
	TargetColor string // "blue" or "green"
}

// Checker verifies production compiler discovery and produces the release.
// This is the same check whose failure triggers the recovery flow; the flow
// re-runs it after copying discovery from a sibling environment.
type Checker interface {
	CheckCompilerDiscovery(ctx context.Context, dctx *DeployContext) (*Release, error)
}

// Fallback produces a release without any discovery verification.
// Its errors are fatal to the deployment; nothing in the recovery flow
// absorbs them.
type Fallback interface {
	ReleaseWithoutDiscoveryCheck(ctx context.Context, dctx *DeployContext) (*Release, error)
}

// Prober is the minimal discovery probe the release source needs.
type Prober interface {
	Exists(ctx context.Context, e env.Environment, version string) (bool, error)
}

// MissingDiscoveryError reports that production has no discovery artifact for
// a version. It is the expected failure mode that routes a deployment into
// the interactive recovery flow.
type MissingDiscoveryError struct {
	Version string
}

func (e *MissingDiscoveryError) Error() string {
	return fmt.Sprintf("no compiler discovery for prod version %s", e.Version)
}

// Source builds releases backed by a discovery artifact store.
type Source struct {
	Prober Prober
}

// NewSource returns a Source probing p for discovery artifacts.
func NewSource(p Prober) *Source {
	return &Source{Prober: p}
}

// CheckCompilerDiscovery probes production discovery for the context's version.
// A clean "absent" result becomes a MissingDiscoveryError; transport failures
// propagate as-is so callers never mistake an unreachable store for a missing
// artifact.
func (s *Source) CheckCompilerDiscovery(ctx context.Context, dctx *DeployContext) (*Release, error) {
	found, err := s.Prober.Exists(ctx, env.Prod, dctx.Version)
	if err != nil {
		return nil, fmt.Errorf("checking prod discovery for %s: %w", dctx.Version, err)
	}
	if !found {
		return nil, &MissingDiscoveryError{Version: dctx.Version}
	}
	return &Release{
		Version:      dctx.Version,
		Env:          env.Prod,
		HasDiscovery: true,
	}, nil
}

// ReleaseWithoutDiscoveryCheck builds the release unconditionally. The
// resulting release is marked as lacking verified discovery so downstream
// tooling can surface the degraded state.
func (s *Source) ReleaseWithoutDiscoveryCheck(ctx context.Context, dctx *DeployContext) (*Release, error) {
	return &Release{
		Version:      dctx.Version,
		Env:          env.Prod,
		HasDiscovery: false,
	}, nil
}

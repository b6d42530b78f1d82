package discovery

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ceinfra/cebg/internal/env"
	"github.com/ceinfra/cebg/internal/release"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProber struct {
	found map[env.Environment]bool
	errs  map[env.Environment]error
	calls []env.Environment
}

func (p *fakeProber) Exists(_ context.Context, e env.Environment, _ string) (bool, error) {
	p.calls = append(p.calls, e)
	if err := p.errs[e]; err != nil {
		return false, err
	}
	return p.found[e], nil
}

type copyCall struct {
	source  env.Environment
	version string
}

type fakeCopier struct {
	copied bool
	err    error
	calls  []copyCall
}

func (c *fakeCopier) CopyToProd(_ context.Context, source env.Environment, version string) (bool, error) {
	c.calls = append(c.calls, copyCall{source: source, version: version})
	return c.copied, c.err
}

type fakeChecker struct {
	rel   *release.Release
	err   error
	calls int
}

func (c *fakeChecker) CheckCompilerDiscovery(context.Context, *release.DeployContext) (*release.Release, error) {
	c.calls++
	return c.rel, c.err
}

type fakeFallback struct {
	rel   *release.Release
	err   error
	calls int
}

func (f *fakeFallback) ReleaseWithoutDiscoveryCheck(context.Context, *release.DeployContext) (*release.Release, error) {
	f.calls++
	return f.rel, f.err
}

type flowFixture struct {
	flow     *RecoveryFlow
	prober   *fakeProber
	copier   *fakeCopier
	checker  *fakeChecker
	fallback *fakeFallback
	out      *bytes.Buffer
}

func newFixture(found map[env.Environment]bool, input string) *flowFixture {
	fx := &flowFixture{
		prober:   &fakeProber{found: found, errs: map[env.Environment]error{}},
		copier:   &fakeCopier{copied: true},
		checker:  &fakeChecker{rel: &release.Release{Version: "gh-123", Env: env.Prod, HasDiscovery: true}},
		fallback: &fakeFallback{rel: &release.Release{Version: "gh-123", Env: env.Prod}},
		out:      &bytes.Buffer{},
	}
	fx.flow = &RecoveryFlow{
		Prober:   fx.prober,
		Copier:   fx.copier,
		Checker:  fx.checker,
		Fallback: fx.fallback,
		In:       strings.NewReader(input),
		Out:      fx.out,
	}
	return fx
}

func (fx *flowFixture) handle(t *testing.T) (*release.Release, error) {
	t.Helper()
	dctx := &release.DeployContext{Version: "gh-123"}
	return fx.flow.HandleProdMissingDiscovery(context.Background(), errors.New("no discovery"), "gh-123", dctx)
}

func TestStagingAvailableCopySucceeds(t *testing.T) {
	fx := newFixture(map[env.Environment]bool{env.Staging: true}, "1\n")

	rel, err := fx.handle(t)

	require.NoError(t, err)
	require.Same(t, fx.checker.rel, rel)
	require.Equal(t, []copyCall{{source: env.Staging, version: "gh-123"}}, fx.copier.calls)
	assert.Equal(t, 0, fx.fallback.calls)

	out := fx.out.String()
	assert.Contains(t, out, "Staging discovery IS available")
	assert.Contains(t, out, "Copy discovery from staging (recommended)")
	assert.Contains(t, out, "staging: found")
	assert.Contains(t, out, "beta: not found")
}

func TestStagingPreferredOverBeta(t *testing.T) {
	// Both siblings have discovery: option 1 must copy from staging.
	fx := newFixture(map[env.Environment]bool{env.Staging: true, env.Beta: true}, "1\n")

	_, err := fx.handle(t)

	require.NoError(t, err)
	require.Len(t, fx.copier.calls, 1)
	assert.Equal(t, env.Staging, fx.copier.calls[0].source)
	assert.NotContains(t, fx.out.String(), "Copy discovery from beta")
}

func TestBetaAvailableCopy(t *testing.T) {
	fx := newFixture(map[env.Environment]bool{env.Beta: true}, "1\n")

	_, err := fx.handle(t)

	require.NoError(t, err)
	require.Equal(t, []copyCall{{source: env.Beta, version: "gh-123"}}, fx.copier.calls)

	out := fx.out.String()
	assert.Contains(t, out, "Beta discovery IS available")
	assert.Contains(t, out, "Copy discovery from beta")
}

func TestNeitherAvailableContinue(t *testing.T) {
	fx := newFixture(map[env.Environment]bool{}, "1\n")

	rel, err := fx.handle(t)

	require.NoError(t, err)
	require.Same(t, fx.fallback.rel, rel)
	assert.Equal(t, 1, fx.fallback.calls)
	assert.Empty(t, fx.copier.calls)

	out := fx.out.String()
	assert.Contains(t, out, "WARNING: No discovery found in staging or beta")
	assert.Contains(t, out, "ce workflows run-discovery")
	assert.Contains(t, out, "Continue without discovery (risky)")
	// Two options only.
	assert.Contains(t, out, "2. Cancel deployment")
	assert.NotContains(t, out, "3.")
}

func TestNeitherAvailableCancel(t *testing.T) {
	fx := newFixture(map[env.Environment]bool{}, "2\n")

	rel, err := fx.handle(t)

	require.Nil(t, rel)
	require.True(t, IsCancelled(err))

	var cancelled *DeploymentCancelledError
	require.ErrorAs(t, err, &cancelled)
	assert.Equal(t, "gh-123", cancelled.Version)
	assert.Equal(t, 0, fx.fallback.calls)
	assert.Empty(t, fx.copier.calls)
}

func TestStagingAvailableCancel(t *testing.T) {
	fx := newFixture(map[env.Environment]bool{env.Staging: true}, "3\n")

	rel, err := fx.handle(t)

	require.Nil(t, rel)
	assert.True(t, IsCancelled(err))
	assert.Empty(t, fx.copier.calls)
}

func TestStagingAvailableContinueWithout(t *testing.T) {
	fx := newFixture(map[env.Environment]bool{env.Staging: true}, "2\n")

	rel, err := fx.handle(t)

	require.NoError(t, err)
	require.Same(t, fx.fallback.rel, rel)
	assert.Equal(t, 1, fx.fallback.calls)
	assert.Empty(t, fx.copier.calls)
}

func TestInvalidTokensThenValid(t *testing.T) {
	fx := newFixture(map[env.Environment]bool{}, "9\nfoo\n\n1\n")

	rel, err := fx.handle(t)

	require.NoError(t, err)
	require.Same(t, fx.fallback.rel, rel)
	// Invalid tokens produced re-prompts and no side effects: exactly one
	// dispatch happened once the valid token arrived.
	assert.Equal(t, 1, fx.fallback.calls)
	assert.Empty(t, fx.copier.calls)
	assert.Contains(t, fx.out.String(), `Invalid choice "9"`)
}

func TestProbeFailurePropagates(t *testing.T) {
	fx := newFixture(map[env.Environment]bool{}, "1\n")
	probeErr := errors.New("dial tcp: connection refused")
	fx.prober.errs[env.Staging] = probeErr

	rel, err := fx.handle(t)

	require.Nil(t, rel)
	require.ErrorIs(t, err, probeErr)
	assert.False(t, IsCancelled(err))
	// No menu, no dispatch: the status display must never lie about
	// absence vs unknown.
	assert.Empty(t, fx.copier.calls)
	assert.Equal(t, 0, fx.fallback.calls)
	assert.NotContains(t, fx.out.String(), "Options:")
}

func TestInputExhaustedAborts(t *testing.T) {
	fx := newFixture(map[env.Environment]bool{env.Staging: true}, "")

	rel, err := fx.handle(t)

	require.Nil(t, rel)
	require.Error(t, err)
	assert.False(t, IsCancelled(err))
	assert.Empty(t, fx.copier.calls)
	assert.Equal(t, 0, fx.fallback.calls)
}

func TestCopyAndCheckSuccess(t *testing.T) {
	fx := newFixture(nil, "")
	fx.copier.copied = true

	rel, err := fx.flow.CopyAndCheck(context.Background(), env.Staging, "gh-123", &release.DeployContext{Version: "gh-123"})

	require.NoError(t, err)
	require.Same(t, fx.checker.rel, rel)
	assert.Equal(t, 1, fx.checker.calls)
	assert.Equal(t, 0, fx.fallback.calls)
}

func TestCopyAndCheckVerifyFails(t *testing.T) {
	fx := newFixture(nil, "")
	fx.copier.copied = true
	fx.checker.rel = nil
	fx.checker.err = errors.New("still no discovery")

	rel, err := fx.flow.CopyAndCheck(context.Background(), env.Staging, "gh-123", &release.DeployContext{Version: "gh-123"})

	require.NoError(t, err)
	require.Same(t, fx.fallback.rel, rel)
	assert.Equal(t, 1, fx.fallback.calls)
	assert.Contains(t, fx.out.String(), "still no discovery")
}

func TestCopyAndCheckCopyReportsFailure(t *testing.T) {
	fx := newFixture(nil, "")
	fx.copier.copied = false

	rel, err := fx.flow.CopyAndCheck(context.Background(), env.Beta, "gh-123", &release.DeployContext{Version: "gh-123"})

	require.NoError(t, err)
	require.Same(t, fx.fallback.rel, rel)
	// Copy failed, so verification must not run.
	assert.Equal(t, 0, fx.checker.calls)
	assert.Equal(t, 1, fx.fallback.calls)
}

func TestCopyAndCheckCopyTransportError(t *testing.T) {
	fx := newFixture(nil, "")
	fx.copier.copied = false
	fx.copier.err = errors.New("copy object: timeout")

	rel, err := fx.flow.CopyAndCheck(context.Background(), env.Staging, "gh-123", &release.DeployContext{Version: "gh-123"})

	require.NoError(t, err)
	require.Same(t, fx.fallback.rel, rel)
	assert.Equal(t, 0, fx.checker.calls)
	assert.Equal(t, 1, fx.fallback.calls)
}

func TestFallbackErrorPropagates(t *testing.T) {
	fx := newFixture(map[env.Environment]bool{}, "1\n")
	fx.fallback.rel = nil
	fx.fallback.err = errors.New("release fetch failed")

	rel, err := fx.handle(t)

	require.Nil(t, rel)
	require.ErrorContains(t, err, "release fetch failed")
	assert.False(t, IsCancelled(err))
}

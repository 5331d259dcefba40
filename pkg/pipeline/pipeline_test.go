package pipeline_test

import (
	"context"
	"testing"
	"time"

	"github.com/hostfleet/gangway/pkg/advisor"
	"github.com/hostfleet/gangway/pkg/dispatch"
	"github.com/hostfleet/gangway/pkg/health"
	"github.com/hostfleet/gangway/pkg/pipeline"
	"github.com/hostfleet/gangway/pkg/result"
	"github.com/hostfleet/gangway/pkg/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExecutor scripts one error per operation keyword and records every
// request it sees.
type fakeExecutor struct {
	errs     map[string]error
	requests []dispatch.Request
	removed  []string
}

func (f *fakeExecutor) Execute(_ context.Context, req dispatch.Request) (*dispatch.Response, error) {
	f.requests = append(f.requests, req)
	if err := f.errs[req.Operation]; err != nil {
		return nil, err
	}
	return &dispatch.Response{JSON: []byte(`{"released": true}`)}, nil
}

func (f *fakeExecutor) RemovePath(_ context.Context, path string) error {
	f.removed = append(f.removed, path)
	return nil
}

func (f *fakeExecutor) operations() []string {
	ops := make([]string, 0, len(f.requests))
	for _, req := range f.requests {
		ops = append(ops, req.Operation)
	}
	return ops
}

type fakeTransferrer struct {
	synced  bool
	local   string
	staging string
	err     error
}

func (f *fakeTransferrer) StagingPath(tenant string) string {
	return "/srv/staging/" + tenant + "-test"
}

func (f *fakeTransferrer) Sync(_ context.Context, localPath, stagingPath string) (*transfer.Stats, error) {
	f.synced = true
	f.local = localPath
	f.staging = stagingPath
	if f.err != nil {
		return nil, f.err
	}
	return &transfer.Stats{Files: 7, Bytes: 4096}, nil
}

type fakeWaiter struct {
	healthy bool
	called  bool
	onWait  func()
}

func (f *fakeWaiter) Wait(_ context.Context, _ string, _, _ time.Duration) *health.Result {
	f.called = true
	if f.onWait != nil {
		f.onWait()
	}
	return &health.Result{Healthy: f.healthy, Attempts: 3}
}

type fakeAugmenter struct{}

func (fakeAugmenter) Advisories(_ context.Context, _ string) []advisor.Advisory {
	return []advisor.Advisory{{Capability: "identity", Severity: "high"}}
}

func newPipeline(executor *fakeExecutor, transferrer *fakeTransferrer, waiter *fakeWaiter) *pipeline.Pipeline {
	return &pipeline.Pipeline{
		Executor:  executor,
		Transfer:  transferrer,
		Health:    waiter,
		Augmenter: fakeAugmenter{},
	}
}

func job(t *testing.T) pipeline.Job {
	t.Helper()
	return pipeline.Job{
		Tenant:        "demo",
		LocalPath:     t.TempDir(),
		Install:       true,
		WaitHealthy:   true,
		Cleanup:       true,
		AutoProvision: true,
	}
}

func TestInvalidPathHasNoRemoteSideEffects(t *testing.T) {
	executor := &fakeExecutor{}
	transferrer := &fakeTransferrer{}
	p := newPipeline(executor, transferrer, &fakeWaiter{})

	j := job(t)
	j.LocalPath = "/does/not/exist"

	_, err := p.Run(context.Background(), j)
	require.Error(t, err)
	assert.Equal(t, result.CodeInvalidPath, result.ErrorCode(err))
	assert.Empty(t, executor.requests)
	assert.Empty(t, executor.removed)
	assert.False(t, transferrer.synced)
}

func TestRunHappyPath(t *testing.T) {
	executor := &fakeExecutor{}
	transferrer := &fakeTransferrer{}
	waiter := &fakeWaiter{healthy: true}
	p := newPipeline(executor, transferrer, waiter)

	res, err := p.Run(context.Background(), job(t))
	require.NoError(t, err)

	assert.True(t, res.Deployed)
	assert.True(t, res.Healthy)
	assert.False(t, res.AutoProvisioned)
	assert.Empty(t, res.Warning)
	assert.Equal(t, "/srv/staging/demo-test", res.Source)
	assert.Equal(t, 7, res.TransferStats.Files)
	assert.JSONEq(t, `{"released": true}`, string(res.DeployResult))
	require.Len(t, res.Advisories, 1)

	// Existence probe, then deploy; no create for a tenant that exists.
	assert.Equal(t, []string{"status", "deploy"}, executor.operations())

	deployRequest := executor.requests[1]
	assert.Equal(t, "/srv/staging/demo-test", deployRequest.SourcePath)
	assert.Equal(t, []string{"--install"}, deployRequest.Flags)
	assert.True(t, deployRequest.Structured)

	// Staging removed even on success.
	assert.Equal(t, []string{"/srv/staging/demo-test"}, executor.removed)
}

func TestAutoProvisionOnFirstContact(t *testing.T) {
	executor := &fakeExecutor{errs: map[string]error{
		"status": result.Errorf(result.CodeExecuteError, "no such tenant"),
	}}
	transferrer := &fakeTransferrer{}
	p := newPipeline(executor, transferrer, &fakeWaiter{healthy: true})

	res, err := p.Run(context.Background(), job(t))
	require.NoError(t, err)

	assert.True(t, res.AutoProvisioned)
	assert.Equal(t, "next", res.Runtime)
	assert.Equal(t, []string{"status", "create", "deploy"}, executor.operations())
	assert.Equal(t, []string{"--runtime", "next", "--no-start"}, executor.requests[1].Flags)
}

func TestAutoProvisionFailure(t *testing.T) {
	executor := &fakeExecutor{errs: map[string]error{
		"status": result.Errorf(result.CodeExecuteError, "no such tenant"),
		"create": result.Errorf(result.CodeExecuteError, "quota exceeded"),
	}}
	transferrer := &fakeTransferrer{}
	p := newPipeline(executor, transferrer, &fakeWaiter{})

	_, err := p.Run(context.Background(), job(t))
	require.Error(t, err)
	assert.Equal(t, result.CodeAutoProvisionFail, result.ErrorCode(err))
	assert.False(t, transferrer.synced)
}

func TestProbeFailureKeepsClassification(t *testing.T) {
	for _, code := range []result.Code{result.CodeTimeout, result.CodePermissionDenied} {
		executor := &fakeExecutor{errs: map[string]error{
			"status": result.Errorf(code, "probe failed"),
		}}
		transferrer := &fakeTransferrer{}
		p := newPipeline(executor, transferrer, &fakeWaiter{})

		_, err := p.Run(context.Background(), job(t))
		require.Error(t, err, code)
		assert.Equal(t, code, result.ErrorCode(err), code)

		// No create over a dead or denied channel.
		assert.Equal(t, []string{"status"}, executor.operations(), code)
		assert.False(t, transferrer.synced, code)
	}
}

func TestCleanupPrecedesHealthPolling(t *testing.T) {
	executor := &fakeExecutor{}
	waiter := &fakeWaiter{healthy: true}
	removedAtWait := -1
	waiter.onWait = func() {
		removedAtWait = len(executor.removed)
	}
	p := newPipeline(executor, &fakeTransferrer{}, waiter)

	_, err := p.Run(context.Background(), job(t))
	require.NoError(t, err)

	assert.Equal(t, 1, removedAtWait)
	// Not removed a second time by the deferred path.
	assert.Equal(t, []string{"/srv/staging/demo-test"}, executor.removed)
}

func TestTransferFailureStillCleansUp(t *testing.T) {
	executor := &fakeExecutor{}
	transferrer := &fakeTransferrer{err: result.Errorf(result.CodeRsyncFailed, "connection closed")}
	p := newPipeline(executor, transferrer, &fakeWaiter{})

	_, err := p.Run(context.Background(), job(t))
	require.Error(t, err)
	assert.Equal(t, result.CodeRsyncFailed, result.ErrorCode(err))
	assert.Equal(t, []string{"/srv/staging/demo-test"}, executor.removed)
}

func TestDeployFailureWrappedAndCleanedUp(t *testing.T) {
	executor := &fakeExecutor{errs: map[string]error{
		"deploy": result.Errorf(result.CodeExecuteError, "release hook failed"),
	}}
	p := newPipeline(executor, &fakeTransferrer{}, &fakeWaiter{})

	_, err := p.Run(context.Background(), job(t))
	require.Error(t, err)
	assert.Equal(t, result.CodeDeployFailed, result.ErrorCode(err))
	assert.Equal(t, []string{"/srv/staging/demo-test"}, executor.removed)
}

func TestDeployPermissionDenialKeepsClassification(t *testing.T) {
	executor := &fakeExecutor{errs: map[string]error{
		"deploy": result.Errorf(result.CodePermissionDenied, "deploy not allowed"),
	}}
	p := newPipeline(executor, &fakeTransferrer{}, &fakeWaiter{})

	_, err := p.Run(context.Background(), job(t))
	require.Error(t, err)
	assert.Equal(t, result.CodePermissionDenied, result.ErrorCode(err))
}

func TestUnhealthyDeployIsPartialSuccess(t *testing.T) {
	executor := &fakeExecutor{}
	waiter := &fakeWaiter{healthy: false}
	p := newPipeline(executor, &fakeTransferrer{}, waiter)

	res, err := p.Run(context.Background(), job(t))
	require.NoError(t, err)

	assert.True(t, res.Deployed)
	assert.False(t, res.Healthy)
	assert.True(t, waiter.called)
	assert.Contains(t, res.Warning, "did not report healthy")
}

func TestCleanupDisabled(t *testing.T) {
	executor := &fakeExecutor{}
	p := newPipeline(executor, &fakeTransferrer{}, &fakeWaiter{healthy: true})

	j := job(t)
	j.Cleanup = false

	_, err := p.Run(context.Background(), j)
	require.NoError(t, err)
	assert.Empty(t, executor.removed)
}

func TestWaitHealthyDisabled(t *testing.T) {
	executor := &fakeExecutor{}
	waiter := &fakeWaiter{}
	p := newPipeline(executor, &fakeTransferrer{}, waiter)

	j := job(t)
	j.WaitHealthy = false

	res, err := p.Run(context.Background(), j)
	require.NoError(t, err)
	assert.True(t, res.Deployed)
	assert.False(t, waiter.called)
	assert.Nil(t, res.Health)
}

// Package pipeline sequences one deployment job from local validation
// through transfer, remote activation and health verification.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/hostfleet/gangway/pkg/advisor"
	"github.com/hostfleet/gangway/pkg/detect"
	"github.com/hostfleet/gangway/pkg/dispatch"
	"github.com/hostfleet/gangway/pkg/health"
	"github.com/hostfleet/gangway/pkg/metrics"
	"github.com/hostfleet/gangway/pkg/result"
	"github.com/hostfleet/gangway/pkg/transfer"
	log "github.com/sirupsen/logrus"
)

type Executor interface {
	Execute(ctx context.Context, req dispatch.Request) (*dispatch.Response, error)
	RemovePath(ctx context.Context, path string) error
}

type Transferrer interface {
	StagingPath(tenant string) string
	Sync(ctx context.Context, localPath, stagingPath string) (*transfer.Stats, error)
}

type HealthWaiter interface {
	Wait(ctx context.Context, tenant string, timeout, interval time.Duration) *health.Result
}

type Augmenter interface {
	Advisories(ctx context.Context, tenant string) []advisor.Advisory
}

// Job describes one deployment. A job never mutates tenant state locally;
// it only issues remote operations that do.
type Job struct {
	Tenant            string
	LocalPath         string
	Install           bool
	Build             bool
	WaitHealthy       bool
	Cleanup           bool
	OverrideRateLimit bool
	AutoProvision     bool
	HealthTimeout     time.Duration
	HealthInterval    time.Duration
}

type Result struct {
	Deployed        bool               `json:"deployed"`
	Healthy         bool               `json:"healthy"`
	AutoProvisioned bool               `json:"autoProvisioned"`
	Runtime         string             `json:"runtime,omitempty"`
	Source          string             `json:"source"`
	TransferStats   *transfer.Stats    `json:"transferStats,omitempty"`
	DeployResult    json.RawMessage    `json:"deployResult,omitempty"`
	Health          *health.Result     `json:"health,omitempty"`
	Warning         string             `json:"warning,omitempty"`
	Advisories      []advisor.Advisory `json:"advisories,omitempty"`
}

type Pipeline struct {
	Executor       Executor
	Transfer       Transferrer
	Health         HealthWaiter
	Augmenter      Augmenter
	DefaultRuntime detect.Runtime
}

// Run executes the job's stages strictly in order; each stage depends on
// the side effect of the one before it. Staging cleanup is attempted on
// every exit path after transfer begins, unless the job disables it.
func (p *Pipeline) Run(ctx context.Context, job Job) (*Result, error) {
	started := time.Now()
	logger := log.WithField("tenant", job.Tenant)
	res := &Result{}

	outcome := func(state string) {
		metrics.DeployResult(state, job.Tenant, time.Since(started))
	}

	// ValidatingPath: rejected jobs must have zero remote side effects.
	info, err := os.Stat(job.LocalPath)
	if err != nil {
		outcome("failed")
		return nil, result.Errorf(result.CodeInvalidPath, "local path %q does not exist", job.LocalPath)
	}
	if !info.IsDir() {
		outcome("failed")
		return nil, result.Errorf(result.CodeInvalidPath, "local path %q is not a directory", job.LocalPath)
	}

	if job.AutoProvision {
		provisioned, runtime, err := p.ensureTenant(ctx, job)
		if err != nil {
			outcome("failed")
			return nil, err
		}
		res.AutoProvisioned = provisioned
		res.Runtime = string(runtime)
	}

	staging := p.Transfer.StagingPath(job.Tenant)
	res.Source = staging

	// Best effort on success and failure alike. Stale staging directories
	// are a maintenance concern, not a correctness one. The deferred call
	// covers error exits; the success path cleans up explicitly right
	// after activation so staging does not linger through health polling.
	cleanup := func() {}
	if job.Cleanup {
		cleaned := false
		cleanup = func() {
			if cleaned {
				return
			}
			cleaned = true
			if err := p.Executor.RemovePath(ctx, staging); err != nil {
				logger.Warnf("staging cleanup failed, leaving %s behind", staging)
			}
		}
		defer cleanup()
	}

	logger.Infof("transferring %s to staging location %s", job.LocalPath, staging)
	stats, err := p.Transfer.Sync(ctx, job.LocalPath, staging)
	if err != nil {
		outcome("failed")
		return nil, err
	}
	res.TransferStats = stats

	logger.Infof("activating release from %s", staging)
	response, err := p.Executor.Execute(ctx, dispatch.Request{
		Operation:  "deploy",
		Tenant:     job.Tenant,
		SourcePath: staging,
		Flags:      deployFlags(job),
		Structured: true,
	})
	if err != nil {
		outcome("failed")
		// Authorization denials keep their classification so callers can
		// route them to permission repair; everything else is a deploy
		// failure. The previous release remains active remotely.
		if result.ErrorCode(err) == result.CodePermissionDenied {
			return nil, err
		}
		return nil, result.ErrorWrap(result.CodeDeployFailed, fmt.Errorf("deploy step failed: %w", err))
	}
	res.Deployed = true
	res.DeployResult = response.JSON

	cleanup()

	if job.WaitHealthy {
		logger.Infof("waiting for %s to report healthy", job.Tenant)
		res.Health = p.Health.Wait(ctx, job.Tenant, job.HealthTimeout, job.HealthInterval)
		res.Healthy = res.Health.Healthy
		if !res.Healthy {
			// Deliberate partial success: activation already happened,
			// reverting is a remote-side decision outside this core.
			res.Warning = fmt.Sprintf("deployed, but %s did not report healthy within the timeout (%d attempts); the release is active and may still be starting", job.Tenant, res.Health.Attempts)
			logger.Warn(res.Warning)
		}
	}

	if p.Augmenter != nil {
		res.Advisories = p.Augmenter.Advisories(ctx, job.Tenant)
	}

	switch {
	case !job.WaitHealthy:
		outcome("deployed")
	case res.Healthy:
		outcome("healthy")
	default:
		outcome("unhealthy")
	}

	return res, nil
}

func deployFlags(job Job) []string {
	flags := make([]string, 0, 3)
	if job.Install {
		flags = append(flags, "--install")
	}
	if job.Build {
		flags = append(flags, "--build")
	}
	if job.OverrideRateLimit {
		flags = append(flags, "--no-ratelimit")
	}
	return flags
}

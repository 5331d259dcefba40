package pipeline

import (
	"context"
	"fmt"

	"github.com/hostfleet/gangway/pkg/detect"
	"github.com/hostfleet/gangway/pkg/dispatch"
	"github.com/hostfleet/gangway/pkg/result"
	log "github.com/sirupsen/logrus"
)

// ensureTenant provisions the tenant on first contact. The existence
// probe makes repeat runs a no-op, and the service is created unstarted
// so no traffic reaches an empty tenant.
func (p *Pipeline) ensureTenant(ctx context.Context, job Job) (bool, detect.Runtime, error) {
	_, err := p.Executor.Execute(ctx, dispatch.Request{
		Operation:  "status",
		Tenant:     job.Tenant,
		Structured: true,
	})
	if err == nil {
		return false, "", nil
	}

	// Only a genuine not-found answer from the remote means the tenant is
	// missing. Transport timeouts and authorization denials keep their
	// classification; creating a tenant over a dead or denied channel
	// would only mask the real failure.
	switch result.ErrorCode(err) {
	case result.CodeTimeout, result.CodePermissionDenied:
		return false, "", err
	}

	runtime := detect.Detect(job.LocalPath, p.DefaultRuntime)
	log.Infof("tenant %s not found; provisioning with detected runtime %q", job.Tenant, runtime)

	_, err = p.Executor.Execute(ctx, dispatch.Request{
		Operation:  "create",
		Tenant:     job.Tenant,
		Flags:      []string{"--runtime", string(runtime), "--no-start"},
		Structured: true,
	})
	if err != nil {
		return false, runtime, result.ErrorWrap(result.CodeAutoProvisionFail, fmt.Errorf("provision tenant %s: %w", job.Tenant, err))
	}

	return true, runtime, nil
}

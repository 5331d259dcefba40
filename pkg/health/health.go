// Package health implements the bounded polling primitive shared by the
// deployment pipeline and the standalone wait operation.
package health

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hostfleet/gangway/pkg/dispatch"
	"github.com/hostfleet/gangway/pkg/metrics"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultTimeout  = time.Second * 120
	DefaultInterval = time.Second * 5
	MaxTimeout      = time.Minute * 10
	MinInterval     = time.Second
)

type Executor interface {
	Execute(ctx context.Context, req dispatch.Request) (*dispatch.Response, error)
}

// Result is the outcome of one polling run. Snapshot holds the last raw
// response for diagnostics regardless of outcome.
type Result struct {
	Healthy   bool            `json:"healthy"`
	Snapshot  json.RawMessage `json:"snapshot,omitempty"`
	Attempts  int             `json:"attempts"`
	ElapsedMs int64           `json:"elapsedMs"`
}

type Poller struct {
	Executor Executor
}

// Wait polls the tenant's health until a normalized-healthy response or
// until the timeout elapses. Query failures are treated as not yet
// healthy; transient unavailability during startup is expected. The last
// sleep is shortened so one final check lands at the deadline, keeping a
// service that comes up in the exact instant of timeout from being
// reported down.
func (p *Poller) Wait(ctx context.Context, tenant string, timeout, interval time.Duration) *Result {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if timeout > MaxTimeout {
		log.Warnf("health timeout %s capped at %s", timeout, MaxTimeout)
		timeout = MaxTimeout
	}
	if interval < MinInterval {
		interval = MinInterval
	}

	started := time.Now()
	deadline := started.Add(timeout)
	res := &Result{}

	for {
		res.Attempts++
		healthy, snapshot := p.query(ctx, tenant)
		if snapshot != nil {
			res.Snapshot = snapshot
		}
		if healthy {
			res.Healthy = true
			break
		}

		remaining := time.Until(deadline)
		if remaining <= 0 || ctx.Err() != nil {
			break
		}
		if remaining < interval {
			time.Sleep(remaining)
		} else {
			time.Sleep(interval)
		}
	}

	res.ElapsedMs = time.Since(started).Milliseconds()
	return res
}

func (p *Poller) query(ctx context.Context, tenant string) (bool, json.RawMessage) {
	metrics.HealthCheck()

	response, err := p.Executor.Execute(ctx, dispatch.Request{
		Operation:  "health",
		Tenant:     tenant,
		Structured: true,
	})
	if err != nil {
		log.Debugf("health query for %s: %s", tenant, err)
		return false, nil
	}

	return Normalize(response.JSON), response.JSON
}

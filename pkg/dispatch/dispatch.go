// Package dispatch is the single chokepoint between local orchestration
// and the remote platform. Every remote invocation, including staging
// cleanup, goes through the Dispatcher.
package dispatch

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/hostfleet/gangway/pkg/metrics"
	"github.com/hostfleet/gangway/pkg/remote"
	"github.com/hostfleet/gangway/pkg/result"
	log "github.com/sirupsen/logrus"
)

const DefaultTool = "stackctl"

// Request describes one validated operation. Requests are immutable once
// dispatched; retrying callers must construct a new one.
type Request struct {
	// Operation is the validated operation text, split on whitespace
	// into argv tokens.
	Operation string

	// Tenant, when set, is appended after the operation tokens. Leave
	// empty when the operation text already names its tenant.
	Tenant string

	// SourcePath, when set, is passed as `--source PATH` before any
	// boolean flags.
	SourcePath string

	// Flags are boolean `--name` tokens, already in their fixed order.
	Flags []string

	// Structured selects machine-parsable output from the remote tool.
	Structured bool
}

type Response struct {
	Raw  []byte
	JSON json.RawMessage
}

// Dispatcher turns requests into remote invocations. It does not retry;
// retry policy belongs to callers.
type Dispatcher struct {
	Session remote.Session
	Tool    string
}

func New(session remote.Session) *Dispatcher {
	return &Dispatcher{
		Session: session,
		Tool:    DefaultTool,
	}
}

func (d *Dispatcher) argv(req Request) []string {
	argv := []string{d.Tool}
	argv = append(argv, strings.Fields(req.Operation)...)
	if req.Tenant != "" {
		argv = append(argv, req.Tenant)
	}
	if req.SourcePath != "" {
		argv = append(argv, "--source", req.SourcePath)
	}
	argv = append(argv, req.Flags...)
	if req.Structured {
		argv = append(argv, "--json")
	}
	return argv
}

func (d *Dispatcher) Execute(ctx context.Context, req Request) (*Response, error) {
	stdout, stderr, err := d.Session.Run(ctx, d.argv(req))
	if err != nil {
		classified := d.classify(req, stderr, err)
		metrics.Dispatch(string(result.ErrorCode(classified)))
		return nil, classified
	}

	response := &Response{Raw: stdout}
	if req.Structured {
		trimmed := json.RawMessage(strings.TrimSpace(string(stdout)))
		if !json.Valid(trimmed) {
			metrics.Dispatch(string(result.CodeExecuteError))
			return nil, result.Errorf(result.CodeExecuteError, "remote tool returned unparsable structured output")
		}
		response.JSON = trimmed
	}

	metrics.Dispatch("success")
	return response, nil
}

// RemovePath deletes a remote path, composed as argv so the operation text
// never passes through a shell. Used for staging cleanup only.
func (d *Dispatcher) RemovePath(ctx context.Context, path string) error {
	_, stderr, err := d.Session.Run(ctx, []string{"rm", "-rf", "--", path})
	if err != nil {
		log.Warnf("remove remote path %s: %s: %s", path, err, firstLine(stderr))
		return err
	}
	return nil
}

func firstLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if i := strings.IndexByte(s, '\n'); i > 0 {
		return s[:i]
	}
	return s
}

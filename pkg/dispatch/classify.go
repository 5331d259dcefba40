package dispatch

import (
	"context"
	"errors"
	"strings"

	"github.com/aymerick/raymond"
	"github.com/hostfleet/gangway/pkg/result"
)

// PermissionGap records a detected deficiency in the remote authorization
// configuration. Gaps are advisory; they never block the current request.
type PermissionGap struct {
	Command    string `json:"command"`
	Scope      string `json:"scope"`
	Tenant     string `json:"tenant,omitempty"`
	Suggestion string `json:"suggestion"`
}

// denialMarkers are the substrings the remote tool emits when an operation
// is rejected by its authorization layer rather than failing outright.
var denialMarkers = []string{
	"not allowed",
	"permission denied",
	"access denied",
	"unauthorized",
}

var remediationTemplate = raymond.MustParse(
	`as an operator, run: {{tool}} grant --command "{{command}}"{{#if tenant}} --tenant {{tenant}}{{/if}}`,
)

// classify separates authorization denials from generic execution
// failures, so callers can route the former to a permission-repair
// workflow instead of retrying blindly.
func (d *Dispatcher) classify(req Request, stderr []byte, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return result.Errorf(result.CodeTimeout, "remote call timed out: %s", err)
	}

	text := strings.ToLower(err.Error() + " " + string(stderr))
	for _, marker := range denialMarkers {
		if !strings.Contains(text, marker) {
			continue
		}

		gap := d.permissionGap(req)
		classified := result.Errorf(result.CodePermissionDenied, "remote platform denied operation %q: %s", req.Operation, firstLine(stderr))
		classified.Details = map[string]any{
			"permissionGap": gap,
			"remediation":   gap.Suggestion,
		}
		return classified
	}

	detail := firstLine(stderr)
	if detail == "" {
		detail = err.Error()
	}
	return result.Errorf(result.CodeExecuteError, "remote operation %q failed: %s", req.Operation, detail)
}

func (d *Dispatcher) permissionGap(req Request) PermissionGap {
	scope := "tenant"
	if req.Tenant == "" {
		scope = "global"
	}

	suggestion, err := remediationTemplate.Exec(map[string]any{
		"tool":    d.Tool,
		"command": req.Operation,
		"tenant":  req.Tenant,
	})
	if err != nil {
		suggestion = "ask an operator to grant this command"
	}

	return PermissionGap{
		Command:    req.Operation,
		Scope:      scope,
		Tenant:     req.Tenant,
		Suggestion: suggestion,
	}
}

// Package advisor inspects a tenant's enabled capabilities after a
// successful operation and attaches advisory warnings for capabilities
// with documented integration pitfalls. Advisories are informational
// scaffolding for the calling agent, never a correctness gate.
package advisor

import (
	"context"
	"encoding/json"

	"github.com/aymerick/raymond"
	"github.com/hostfleet/gangway/pkg/dispatch"
	log "github.com/sirupsen/logrus"
)

type Executor interface {
	Execute(ctx context.Context, req dispatch.Request) (*dispatch.Response, error)
}

type Advisory struct {
	Capability  string   `json:"capability"`
	Severity    string   `json:"severity"`
	Problems    []string `json:"problems"`
	Remediation string   `json:"remediation"`
}

type pitfall struct {
	severity    string
	problems    []string
	remediation *raymond.Template
}

// knownPitfalls maps capability names to their documented gotchas.
var knownPitfalls = map[string]pitfall{
	"identity": {
		severity: "high",
		problems: []string{
			"the identity endpoint wraps its payload in an extra envelope; clients expecting a flat user object will see empty fields",
			"session cookies are issued base64url-encoded; standard base64 decoding corrupts the trailing padding",
		},
		remediation: raymond.MustParse(
			`unwrap the "data" envelope before reading user fields, and decode session cookies for {{tenant}} with base64url; see the identity capability notes`,
		),
	},
}

type Augmenter struct {
	Executor Executor
}

// Advisories returns applicable advisories for the tenant. Any failure is
// logged and yields no advisories; the primary result is never affected.
func (a *Augmenter) Advisories(ctx context.Context, tenant string) []Advisory {
	if tenant == "" {
		return nil
	}

	response, err := a.Executor.Execute(ctx, dispatch.Request{
		Operation:  "features",
		Tenant:     tenant,
		Structured: true,
	})
	if err != nil {
		log.Debugf("capability lookup for %s: %s", tenant, err)
		return nil
	}

	advisories := make([]Advisory, 0)
	for _, capability := range enabledCapabilities(response.JSON) {
		p, ok := knownPitfalls[capability]
		if !ok {
			continue
		}

		remediation, err := p.remediation.Exec(map[string]any{"tenant": tenant})
		if err != nil {
			log.Warnf("render advisory for %s: %s", capability, err)
			continue
		}

		advisories = append(advisories, Advisory{
			Capability:  capability,
			Severity:    p.severity,
			Problems:    p.problems,
			Remediation: remediation,
		})
	}

	if len(advisories) == 0 {
		return nil
	}
	return advisories
}

// enabledCapabilities accepts either a bare list or an envelope with a
// "features" list.
func enabledCapabilities(raw json.RawMessage) []string {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}

	envelope := struct {
		Features []string `json:"features"`
	}{}
	if err := json.Unmarshal(raw, &envelope); err == nil {
		return envelope.Features
	}
	return nil
}

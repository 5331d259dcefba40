// Package gate validates and scopes operations before they are allowed
// anywhere near the remote platform. Rejections here are cheap and
// deterministic; no remote round-trip ever happens for a gated operation.
package gate

import (
	"regexp"
	"strings"

	"github.com/hostfleet/gangway/pkg/result"
)

// Gate holds the caller's statically configured tenant. An empty
// ScopedTenant means the caller operates the whole platform.
type Gate struct {
	ScopedTenant string
}

// Verdict carries the tenant context resolved for a permitted operation.
type Verdict struct {
	// EffectiveTenant is the tenant the operation will run against:
	// explicit parameter, then tenant extracted from the operation text,
	// then the static tenant, in that order.
	EffectiveTenant string

	// ExtractedTenant is the tenant inferred from the operation text,
	// if any. Kept for diagnostics.
	ExtractedTenant string
}

func (g *Gate) Scoped() bool {
	return g.ScopedTenant != ""
}

// Check runs the safety checks in their fixed order: forbidden list and
// shell metacharacters first (these cannot be relaxed by configuration),
// then the mode-specific operator-only and cross-tenant checks.
func (g *Gate) Check(operation, explicitTenant string) (*Verdict, error) {
	normalized := normalize(operation)

	for _, entry := range forbiddenOperations {
		if strings.HasPrefix(normalized, entry) {
			return nil, result.Errorf(result.CodeForbiddenCommand, "operation %q is forbidden through this channel", firstToken(normalized))
		}
	}

	if strings.ContainsAny(operation, shellMetacharacters) {
		return nil, result.Errorf(result.CodeForbiddenCommand, "operation contains shell metacharacters")
	}

	if err := validTenantName(explicitTenant); err != nil {
		return nil, err
	}

	extracted := extractTenant(normalized)

	if g.Scoped() {
		for _, entry := range operatorOnlyOperations {
			if normalized == entry || strings.HasPrefix(normalized, entry+" ") {
				return nil, result.Errorf(result.CodeOperatorOnly, "operation %q administers the whole platform and is not available in tenant-scoped mode", entry)
			}
		}

		if extracted != "" && !strings.EqualFold(extracted, g.ScopedTenant) {
			return nil, result.Errorf(result.CodeCrossTenantBlocked, "operation targets tenant %q but this caller is bound to %q", extracted, g.ScopedTenant)
		}

		if explicitTenant != "" && !strings.EqualFold(explicitTenant, g.ScopedTenant) {
			return nil, result.Errorf(result.CodeCrossTenantBlocked, "requested tenant %q but this caller is bound to %q", explicitTenant, g.ScopedTenant)
		}

		return &Verdict{EffectiveTenant: g.ScopedTenant, ExtractedTenant: extracted}, nil
	}

	// The operation text cannot be rewritten, so a conflicting explicit
	// tenant is unsatisfiable rather than a matter of precedence.
	if extracted != "" && explicitTenant != "" && !strings.EqualFold(extracted, explicitTenant) {
		return nil, result.Errorf(result.CodeCrossTenantBlocked, "operation text targets tenant %q but request specifies %q", extracted, explicitTenant)
	}

	verdict := &Verdict{ExtractedTenant: extracted}
	switch {
	case explicitTenant != "":
		verdict.EffectiveTenant = explicitTenant
	default:
		verdict.EffectiveTenant = extracted
	}

	return verdict, nil
}

// ResolveTenant scopes a tenant supplied outside of any operation text,
// as used by deployments and health waits.
func (g *Gate) ResolveTenant(explicit string) (string, error) {
	if err := validTenantName(explicit); err != nil {
		return "", err
	}
	if g.Scoped() {
		if explicit != "" && !strings.EqualFold(explicit, g.ScopedTenant) {
			return "", result.Errorf(result.CodeCrossTenantBlocked, "requested tenant %q but this caller is bound to %q", explicit, g.ScopedTenant)
		}
		return g.ScopedTenant, nil
	}
	return explicit, nil
}

// validTenantName holds tenant parameters to the platform's account name
// charset. Tenants reach the remote command line verbatim, so everything
// outside the allowed set is rejected before any dispatch.
func validTenantName(tenant string) error {
	if tenant == "" {
		return nil
	}
	if !tenantNamePattern.MatchString(tenant) {
		return result.Errorf(result.CodeForbiddenCommand, "tenant name %q contains characters outside the allowed set", tenant)
	}
	return nil
}

var tenantNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// extractTenant is a best-effort classifier. Tenant-scoped command
// families place the tenant right after the action keyword; anything else
// yields no match and the caller's static tenant applies.
func extractTenant(normalized string) string {
	fields := strings.Fields(normalized)
	if len(fields) < 2 {
		return ""
	}
	if !tenantArgActions[fields[0]] {
		return ""
	}
	if strings.HasPrefix(fields[1], "-") {
		return ""
	}
	return fields[1]
}

func normalize(operation string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(operation))), " ")
}

func firstToken(s string) string {
	if i := strings.IndexByte(s, ' '); i > 0 {
		return s[:i]
	}
	return s
}

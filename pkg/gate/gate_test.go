package gate_test

import (
	"testing"

	"github.com/hostfleet/gangway/pkg/gate"
	"github.com/hostfleet/gangway/pkg/result"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShellMetacharactersRejected(t *testing.T) {
	g := &gate.Gate{}
	for _, operation := range []string{
		"status demo; rm -rf /",
		"logs demo & sleep 600",
		"status demo | tee /tmp/out",
		"status `whoami`",
		"status $HOME",
		"status demo (test)",
	} {
		_, err := g.Check(operation, "")
		require.Error(t, err, operation)
		assert.Equal(t, result.CodeForbiddenCommand, result.ErrorCode(err), operation)
	}
}

func TestForbiddenOperationsRejectedInBothModes(t *testing.T) {
	for _, operation := range []string{
		"purge",
		"wipe",
		"factory-reset",
		"delete --all",
		"DELETE   --all now",
		"server-reset",
	} {
		for _, g := range []*gate.Gate{{}, {ScopedTenant: "alpha"}} {
			_, err := g.Check(operation, "")
			require.Error(t, err, operation)
			assert.Equal(t, result.CodeForbiddenCommand, result.ErrorCode(err), operation)
		}
	}
}

func TestOperatorOnlyRejectedInScopedMode(t *testing.T) {
	scoped := &gate.Gate{ScopedTenant: "alpha"}
	operator := &gate.Gate{}

	for _, operation := range []string{
		"create newtenant",
		"delete alpha",
		"list",
		"global-status",
	} {
		_, err := scoped.Check(operation, "")
		require.Error(t, err, operation)
		assert.Equal(t, result.CodeOperatorOnly, result.ErrorCode(err), operation)

		_, err = operator.Check(operation, "")
		assert.NoError(t, err, operation)
	}
}

func TestCrossTenantBlocked(t *testing.T) {
	g := &gate.Gate{ScopedTenant: "alpha"}

	_, err := g.Check("deploy beta --install", "")
	require.Error(t, err)
	assert.Equal(t, result.CodeCrossTenantBlocked, result.ErrorCode(err))

	_, err = g.Check("status alpha", "beta")
	require.Error(t, err)
	assert.Equal(t, result.CodeCrossTenantBlocked, result.ErrorCode(err))
}

func TestTenantParameterCharset(t *testing.T) {
	g := &gate.Gate{}
	for _, tenant := range []string{
		"demo;touch /tmp/pwned",
		"demo$(id)",
		"demo|cat",
		"demo beta",
		"`demo`",
		"-demo",
	} {
		_, err := g.Check("status", tenant)
		require.Error(t, err, tenant)
		assert.Equal(t, result.CodeForbiddenCommand, result.ErrorCode(err), tenant)

		_, err = g.ResolveTenant(tenant)
		require.Error(t, err, tenant)
		assert.Equal(t, result.CodeForbiddenCommand, result.ErrorCode(err), tenant)
	}

	for _, tenant := range []string{"demo", "demo-2", "demo.example", "Demo_01"} {
		_, err := g.Check("status", tenant)
		assert.NoError(t, err, tenant)

		resolved, err := g.ResolveTenant(tenant)
		require.NoError(t, err, tenant)
		assert.Equal(t, tenant, resolved)
	}
}

func TestScopedTenantCaseInsensitive(t *testing.T) {
	g := &gate.Gate{ScopedTenant: "Alpha"}

	// Operation text is lowercased during normalization; the configured
	// tenant's casing must not trip the cross-tenant check.
	verdict, err := g.Check("status alpha", "")
	require.NoError(t, err)
	assert.Equal(t, "Alpha", verdict.EffectiveTenant)

	_, err = g.ResolveTenant("ALPHA")
	assert.NoError(t, err)
}

func TestConflictingExplicitAndTextTenant(t *testing.T) {
	g := &gate.Gate{}

	_, err := g.Check("status demo", "beta")
	require.Error(t, err)
	assert.Equal(t, result.CodeCrossTenantBlocked, result.ErrorCode(err))

	// Agreement between text and parameter is fine.
	verdict, err := g.Check("status demo", "demo")
	require.NoError(t, err)
	assert.Equal(t, "demo", verdict.EffectiveTenant)
}

func TestTenantExtraction(t *testing.T) {
	for _, testCase := range []struct {
		operation string
		extracted string
	}{
		{"deploy demo --install", "demo"},
		{"enable demo ssl", "demo"},
		{"logs demo --tail 100", "demo"},
		{"status demo", "demo"},
		{"config demo set KEY=value", "demo"},
		{"restart demo", "demo"},
		{"status --all", ""},
		{"version", ""},
		{"unknown-command demo", ""},
	} {
		g := &gate.Gate{}
		verdict, err := g.Check(testCase.operation, "")
		require.NoError(t, err, testCase.operation)
		assert.Equal(t, testCase.extracted, verdict.ExtractedTenant, testCase.operation)
	}
}

func TestScopedFallbackToStaticTenant(t *testing.T) {
	g := &gate.Gate{ScopedTenant: "alpha"}

	// Extraction failure falls back to the caller's static tenant.
	verdict, err := g.Check("version", "")
	require.NoError(t, err)
	assert.Equal(t, "alpha", verdict.EffectiveTenant)

	// Matching tenant in text is permitted.
	verdict, err = g.Check("status alpha", "")
	require.NoError(t, err)
	assert.Equal(t, "alpha", verdict.EffectiveTenant)
	assert.Equal(t, "alpha", verdict.ExtractedTenant)
}

func TestResolveTenant(t *testing.T) {
	scoped := &gate.Gate{ScopedTenant: "alpha"}

	tenant, err := scoped.ResolveTenant("")
	require.NoError(t, err)
	assert.Equal(t, "alpha", tenant)

	tenant, err = scoped.ResolveTenant("alpha")
	require.NoError(t, err)
	assert.Equal(t, "alpha", tenant)

	_, err = scoped.ResolveTenant("beta")
	require.Error(t, err)
	assert.Equal(t, result.CodeCrossTenantBlocked, result.ErrorCode(err))

	operator := &gate.Gate{}
	tenant, err = operator.ResolveTenant("beta")
	require.NoError(t, err)
	assert.Equal(t, "beta", tenant)
}

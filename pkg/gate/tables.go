package gate

// Policy tables are data, not control flow, so new command families can be
// added without touching the checks themselves.

// forbiddenOperations are irreversible, cross-tenant-destructive operations
// that are never dispatched through this channel, in any mode.
var forbiddenOperations = []string{
	"purge",
	"wipe",
	"factory-reset",
	"delete --all",
	"delete-all",
	"server-reset",
}

// operatorOnlyOperations administer the platform as a whole and are
// rejected whenever the caller is bound to a single tenant.
var operatorOnlyOperations = []string{
	"create",
	"delete",
	"list",
	"suspend",
	"resume",
	"global-status",
	"server-status",
}

// tenantArgActions are the command families that take the tenant name as
// the token immediately following the action keyword.
var tenantArgActions = map[string]bool{
	"config":   true,
	"deploy":   true,
	"disable":  true,
	"enable":   true,
	"features": true,
	"health":   true,
	"logs":     true,
	"restart":  true,
	"start":    true,
	"status":   true,
	"stop":     true,
}

// shellMetacharacters would alter command interpretation if the operation
// text ever reached a shell. Rejected outright, even though operations are
// normally passed as opaque arguments.
const shellMetacharacters = ";&|`$()"

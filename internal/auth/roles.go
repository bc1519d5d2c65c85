package auth

import "strings"

// Role is a staff or device role carried in JWT claims.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleChef       Role = "CHEF"
	RoleStore      Role = "STORE"
	RoleCook       Role = "COOK"
	RoleFnbManager Role = "FNB_MANAGER"
	RoleScanner    Role = "SCANNER"
	RoleViewer     Role = "VIEWER"
)

// Capability names an operation group gated by role.
type Capability string

const (
	CapScan           Capability = "scan"
	CapApproveScan    Capability = "approve_scan"
	CapManageCatalog  Capability = "manage_catalog"
	CapManageStudents Capability = "manage_students"
	CapManageBilling  Capability = "manage_billing"
	CapManageOrders   Capability = "manage_orders"
	CapManageConfig   Capability = "manage_config"
	CapViewReports    Capability = "view_reports"
)

// capabilities is the central role permission table; route middleware
// consults it instead of per-handler role checks.
var capabilities = map[Role]map[Capability]bool{
	RoleAdmin: {
		CapScan: true, CapApproveScan: true, CapManageCatalog: true,
		CapManageStudents: true, CapManageBilling: true, CapManageOrders: true,
		CapManageConfig: true, CapViewReports: true,
	},
	RoleFnbManager: {
		CapScan: true, CapApproveScan: true, CapManageBilling: true,
		CapManageOrders: true, CapViewReports: true,
	},
	RoleChef: {
		CapManageCatalog: true, CapViewReports: true,
	},
	RoleStore: {
		CapManageCatalog: true,
	},
	RoleCook: {
		CapViewReports: true,
	},
	RoleScanner: {
		CapScan: true,
	},
	RoleViewer: {
		CapViewReports: true,
	},
}

// Can reports whether the role holds the capability.
func Can(role Role, cap Capability) bool {
	return capabilities[role][cap]
}

// ParseRole normalises a role string; unknown roles map to VIEWER.
func ParseRole(s string) Role {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := capabilities[r]; ok {
		return r
	}
	return RoleViewer
}

package models

// Capability names a single permission checked by handlers and services.
type Capability string

const (
	CapModeratePosts  Capability = "posts:moderate"
	CapReadLogs       Capability = "logs:read"
	CapReadAllLogs    Capability = "logs:read-all"
	CapExportLogs     Capability = "logs:export"
	CapCreateUsers    Capability = "users:create"
	CapDeleteUsers    Capability = "users:delete"
	CapChangeRoles    Capability = "users:change-role"
	CapManageSections Capability = "sections:manage"
)

// RoleCapabilities is the authoritative role to capability table.
var RoleCapabilities = map[UserRole]map[Capability]struct{}{
	RoleAdmin: {
		CapModeratePosts:  {},
		CapReadLogs:       {},
		CapReadAllLogs:    {},
		CapExportLogs:     {},
		CapCreateUsers:    {},
		CapDeleteUsers:    {},
		CapChangeRoles:    {},
		CapManageSections: {},
	},
	RoleModerator: {
		CapModeratePosts:  {},
		CapReadLogs:       {},
		CapManageSections: {},
	},
}

// HasCapability reports whether role grants capability. Unknown roles grant nothing.
func HasCapability(role UserRole, capability Capability) bool {
	caps, ok := RoleCapabilities[role]
	if !ok {
		return false
	}
	_, ok = caps[capability]
	return ok
}

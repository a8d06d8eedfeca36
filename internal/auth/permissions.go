package auth

import "slices"

// Permission represents a named capability in the admin API.
type Permission string

// Permission constants.
const (
	PermDatabaseRead    Permission = "database:read"
	PermDatabaseControl Permission = "database:control"
)

// rolePermissions maps each role to its granted permissions.
var rolePermissions = map[Role][]Permission{
	RoleViewer: {
		PermDatabaseRead,
	},
	RoleOperator: {
		PermDatabaseRead,
		PermDatabaseControl,
	},
}

// HasPermission returns true if the given role has the specified permission.
func HasPermission(role Role, perm Permission) bool {
	return slices.Contains(rolePermissions[role], perm)
}

// PermissionsForRole returns all permissions granted to a role.
// Returns nil for unknown roles.
func PermissionsForRole(role Role) []Permission {
	return slices.Clone(rolePermissions[role])
}

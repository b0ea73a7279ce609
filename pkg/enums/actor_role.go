package enums

import "fmt"

// ActorRole identifies who is acting on an order or wallet.
type ActorRole string

const (
	ActorRoleEmployee   ActorRole = "ROLE_EMPLOYEE"
	ActorRoleVendor     ActorRole = "ROLE_VENDOR"
	ActorRoleOrgAdmin   ActorRole = "ROLE_ORG_ADMIN"
	ActorRoleSuperAdmin ActorRole = "ROLE_SUPER_ADMIN"
)

var validActorRoles = []ActorRole{
	ActorRoleEmployee,
	ActorRoleVendor,
	ActorRoleOrgAdmin,
	ActorRoleSuperAdmin,
}

// String implements fmt.Stringer.
func (r ActorRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ActorRole.
func (r ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsPrivileged reports whether the role may act on any order regardless of
// ownership.
func (r ActorRole) IsPrivileged() bool {
	return r == ActorRoleOrgAdmin || r == ActorRoleSuperAdmin
}

// ParseActorRole converts raw input into an ActorRole.
func ParseActorRole(value string) (ActorRole, error) {
	for _, candidate := range validActorRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}

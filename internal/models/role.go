package models

// Role is the application role stored on the local profile.
type Role string

const (
	RoleStudent  Role = "student"
	RoleLecturer Role = "lecturer"
	RoleAdmin    Role = "admin"
)

// DefaultRole is assigned when the identity provider carries no usable role.
const DefaultRole = RoleStudent

// Valid checks if the role is one of the predefined roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleLecturer, RoleAdmin:
		return true
	default:
		return false
	}
}

// ParseRole safely parses a string into a Role.
func ParseRole(s string) (Role, bool) {
	role := Role(s)
	return role, role.Valid()
}

// AllRoles returns every role, least privileged first.
func AllRoles() []Role {
	return []Role{RoleStudent, RoleLecturer, RoleAdmin}
}

// InitialRole picks the role a new profile starts with from the provider's role claim:
// admin wins over lecturer, otherwise the first recognised role, otherwise the default.
func InitialRole(claimed []string) Role {
	first := Role("")
	for _, c := range claimed {
		role, ok := ParseRole(c)
		if !ok {
			continue
		}
		if role == RoleAdmin {
			return RoleAdmin
		}
		if first == "" || role == RoleLecturer {
			first = role
		}
	}
	if first == "" {
		return DefaultRole
	}
	return first
}

// ProviderRole picks the most privileged recognised role from the provider's role list.
// ok is false when none is recognised, in which case the stored role should be kept.
func ProviderRole(roles []string) (role Role, ok bool) {
	for _, candidate := range []Role{RoleAdmin, RoleLecturer, RoleStudent} {
		for _, r := range roles {
			if Role(r) == candidate {
				return candidate, true
			}
		}
	}
	return "", false
}

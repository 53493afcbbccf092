package usersync

import (
	"slices"

	"github.com/SimpnicServerTeam/planner-usersync/internal/models"
)

// Roles are the role predicates every view gates on. They are for display only;
// the server enforces access with the stored profile role.
type Roles struct {
	Role       models.Role
	IsAdmin    bool
	IsLecturer bool
	IsStudent  bool
}

// RolesOf derives the flags from a profile. A nil profile has no roles.
func RolesOf(profile *models.UserProfile) Roles {
	if profile == nil {
		return Roles{}
	}
	return Roles{
		Role:       profile.Role,
		IsAdmin:    profile.Role == models.RoleAdmin,
		IsLecturer: profile.Role == models.RoleLecturer,
		IsStudent:  profile.Role == models.RoleStudent,
	}
}

// RolesFor derives the flags from the profile carried by a status.
func RolesFor(st Status) Roles {
	return RolesOf(st.Profile)
}

func (r Roles) HasRole(role models.Role) bool {
	return r.Role != "" && r.Role == role
}

func (r Roles) HasAnyRole(roles ...models.Role) bool {
	return r.Role != "" && slices.Contains(roles, r.Role)
}

package usersync

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/SimpnicServerTeam/planner-usersync/internal/models"
)

func TestRolesFor(t *testing.T) {
	lecturer := &models.UserProfile{Role: models.RoleLecturer}

	tests := []struct {
		name     string
		status   Status
		expected Roles
	}{
		{"idle", Idle(), Roles{}},
		{"syncing without profile", Syncing(nil), Roles{}},
		{"synced lecturer", Synced(lecturer), Roles{Role: models.RoleLecturer, IsLecturer: true}},
		{"failed keeps last profile", Failed(lecturer, "boom", false, errors.New("boom")), Roles{Role: models.RoleLecturer, IsLecturer: true}},
		{"synced admin", Synced(&models.UserProfile{Role: models.RoleAdmin}), Roles{Role: models.RoleAdmin, IsAdmin: true}},
		{"unknown role", Synced(&models.UserProfile{Role: "guest"}), Roles{Role: "guest"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, RolesFor(tc.status))
		})
	}
}

func TestRoles_Predicates(t *testing.T) {
	roles := RolesOf(&models.UserProfile{Role: models.RoleLecturer})

	assert.True(t, roles.IsLecturer)
	assert.False(t, roles.IsAdmin)
	assert.True(t, roles.HasRole(models.RoleLecturer))
	assert.False(t, roles.HasRole(models.RoleStudent))
	assert.True(t, roles.HasAnyRole(models.RoleAdmin, models.RoleLecturer))
	assert.False(t, roles.HasAnyRole(models.RoleAdmin))
	assert.False(t, roles.HasAnyRole())

	none := RolesOf(nil)
	assert.False(t, none.HasRole(""))
	assert.False(t, none.HasAnyRole(models.RoleStudent, ""))
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "syncing", Syncing(nil).String())
	assert.Equal(t, "error: nope", Failed(nil, "nope", false, nil).String())
}

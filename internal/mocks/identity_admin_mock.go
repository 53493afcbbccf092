package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/SimpnicServerTeam/planner-usersync/internal/models"
)

// MockIdentityAdmin is a mock implementation of the IdentityAdmin interface.
type MockIdentityAdmin struct {
	mock.Mock
}

func (m *MockIdentityAdmin) UpdateProfile(ctx context.Context, authID string, update models.IdentityProfileUpdate) error {
	args := m.Called(ctx, authID, update)
	return args.Error(0)
}

func (m *MockIdentityAdmin) DeleteUser(ctx context.Context, authID string) error {
	args := m.Called(ctx, authID)
	return args.Error(0)
}

func (m *MockIdentityAdmin) UserRoles(ctx context.Context, authID string) ([]string, error) {
	args := m.Called(ctx, authID)
	roles, _ := args.Get(0).([]string)
	return roles, args.Error(1)
}

func (m *MockIdentityAdmin) AssignRole(ctx context.Context, authID string, role models.Role) error {
	args := m.Called(ctx, authID, role)
	return args.Error(0)
}

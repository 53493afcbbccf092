package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/SimpnicServerTeam/planner-usersync/internal/models"
)

// MockUserProfileManager is a mock implementation of the UserProfileManager interface.
type MockUserProfileManager struct {
	mock.Mock
}

func (m *MockUserProfileManager) SyncProfile(ctx context.Context, identity models.Identity, req models.SyncProfileRequest) (*models.UserProfile, bool, error) {
	args := m.Called(ctx, identity, req)
	profile, _ := args.Get(0).(*models.UserProfile)
	return profile, args.Bool(1), args.Error(2)
}

func (m *MockUserProfileManager) GetProfile(ctx context.Context, authID string) (*models.UserProfile, error) {
	args := m.Called(ctx, authID)
	profile, _ := args.Get(0).(*models.UserProfile)
	return profile, args.Error(1)
}

func (m *MockUserProfileManager) UpdateProfile(ctx context.Context, authID string, req models.UpdateProfileRequest) (*models.UserProfile, error) {
	args := m.Called(ctx, authID, req)
	profile, _ := args.Get(0).(*models.UserProfile)
	return profile, args.Error(1)
}

func (m *MockUserProfileManager) DeleteAccount(ctx context.Context, authID string) error {
	args := m.Called(ctx, authID)
	return args.Error(0)
}

func (m *MockUserProfileManager) UsernameAvailable(ctx context.Context, authID, username string) (bool, error) {
	args := m.Called(ctx, authID, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserProfileManager) ListUsers(ctx context.Context, filter models.ProfileFilter) ([]*models.UserProfile, error) {
	args := m.Called(ctx, filter)
	profiles, _ := args.Get(0).([]*models.UserProfile)
	return profiles, args.Error(1)
}

func (m *MockUserProfileManager) SetRole(ctx context.Context, id string, role models.Role) (*models.UserProfile, error) {
	args := m.Called(ctx, id, role)
	profile, _ := args.Get(0).(*models.UserProfile)
	return profile, args.Error(1)
}

func (m *MockUserProfileManager) GetUser(ctx context.Context, id string) (*models.UserProfile, error) {
	args := m.Called(ctx, id)
	profile, _ := args.Get(0).(*models.UserProfile)
	return profile, args.Error(1)
}

func (m *MockUserProfileManager) UpdateUser(ctx context.Context, id string, req models.AdminUpdateUserRequest) (*models.UserProfile, error) {
	args := m.Called(ctx, id, req)
	profile, _ := args.Get(0).(*models.UserProfile)
	return profile, args.Error(1)
}

func (m *MockUserProfileManager) DeleteUser(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserProfileManager) Stats(ctx context.Context) (*models.UserStats, error) {
	args := m.Called(ctx)
	stats, _ := args.Get(0).(*models.UserStats)
	return stats, args.Error(1)
}

func (m *MockUserProfileManager) RefreshRoles(ctx context.Context) (*models.RoleRefreshReport, error) {
	args := m.Called(ctx)
	report, _ := args.Get(0).(*models.RoleRefreshReport)
	return report, args.Error(1)
}

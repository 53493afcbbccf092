package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/SimpnicServerTeam/planner-usersync/internal/models"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) CreateUser(ctx context.Context, profile *models.UserProfile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *MockUserRepository) GetUserByAuthID(ctx context.Context, authID string) (*models.UserProfile, error) {
	args := m.Called(ctx, authID)
	profile, _ := args.Get(0).(*models.UserProfile)
	return profile, args.Error(1)
}

func (m *MockUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.UserProfile, error) {
	args := m.Called(ctx, email)
	profile, _ := args.Get(0).(*models.UserProfile)
	return profile, args.Error(1)
}

func (m *MockUserRepository) GetUserByID(ctx context.Context, id string) (*models.UserProfile, error) {
	args := m.Called(ctx, id)
	profile, _ := args.Get(0).(*models.UserProfile)
	return profile, args.Error(1)
}

func (m *MockUserRepository) UpdateUser(ctx context.Context, profile *models.UserProfile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *MockUserRepository) UsernameTaken(ctx context.Context, username, excludeAuthID string) (bool, error) {
	args := m.Called(ctx, username, excludeAuthID)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) ListUsers(ctx context.Context, filter models.ProfileFilter) ([]*models.UserProfile, error) {
	args := m.Called(ctx, filter)
	profiles, _ := args.Get(0).([]*models.UserProfile)
	return profiles, args.Error(1)
}

func (m *MockUserRepository) DeleteUser(ctx context.Context, authID string) error {
	args := m.Called(ctx, authID)
	return args.Error(0)
}

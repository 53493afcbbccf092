package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/SimpnicServerTeam/planner-usersync/internal/models"
)

type MockProfileCache struct {
	mock.Mock
}

func (m *MockProfileCache) GetProfile(ctx context.Context, authID string) (*models.UserProfile, error) {
	args := m.Called(ctx, authID)
	profile, _ := args.Get(0).(*models.UserProfile)
	return profile, args.Error(1)
}

func (m *MockProfileCache) StoreProfile(ctx context.Context, profile *models.UserProfile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *MockProfileCache) InvalidateProfile(ctx context.Context, authID string) error {
	args := m.Called(ctx, authID)
	return args.Error(0)
}

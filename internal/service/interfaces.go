package service

import (
	"context"

	"github.com/SimpnicServerTeam/planner-usersync/internal/models"
)

// TokenGenerator mints bearer tokens for development and tests.
type TokenGenerator interface {
	GenerateToken(identity models.Identity) (string, error)
}

// UserProfileManager owns the local profile lifecycle.
type UserProfileManager interface {
	// SyncProfile creates the caller's profile, or links and refreshes an existing one
	// found by subject or email. created reports which happened.
	SyncProfile(ctx context.Context, identity models.Identity, req models.SyncProfileRequest) (profile *models.UserProfile, created bool, err error)
	GetProfile(ctx context.Context, authID string) (*models.UserProfile, error)
	UpdateProfile(ctx context.Context, authID string, req models.UpdateProfileRequest) (*models.UserProfile, error)
	// DeleteAccount removes the provider account first and the local profile second.
	DeleteAccount(ctx context.Context, authID string) error
	UsernameAvailable(ctx context.Context, authID, username string) (bool, error)
	ListUsers(ctx context.Context, filter models.ProfileFilter) ([]*models.UserProfile, error)
	SetRole(ctx context.Context, id string, role models.Role) (*models.UserProfile, error)

	// Administration by profile ID
	GetUser(ctx context.Context, id string) (*models.UserProfile, error)
	UpdateUser(ctx context.Context, id string, req models.AdminUpdateUserRequest) (*models.UserProfile, error)
	DeleteUser(ctx context.Context, id string) error
	Stats(ctx context.Context) (*models.UserStats, error)
	// RefreshRoles re-reads every active user's role from the identity provider.
	RefreshRoles(ctx context.Context) (*models.RoleRefreshReport, error)
}

// IdentityAdmin manages accounts at the identity provider.
type IdentityAdmin interface {
	UpdateProfile(ctx context.Context, authID string, update models.IdentityProfileUpdate) error
	DeleteUser(ctx context.Context, authID string) error
	// UserRoles lists the role names assigned to the account.
	UserRoles(ctx context.Context, authID string) ([]string, error)
	// AssignRole replaces every assigned role with role.
	AssignRole(ctx context.Context, authID string, role models.Role) error
}

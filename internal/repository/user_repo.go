package repository

import (
	"context"
	"fmt"

	"github.com/SimpnicServerTeam/planner-usersync/internal/models"
)

// UserRepository defines operations for storing/retrieving local user profiles
type UserRepository interface {
	// CreateUser stores a new profile.
	// It should return ErrUserExists if the auth0 ID or email is already taken.
	CreateUser(ctx context.Context, profile *models.UserProfile) error

	// GetUserByAuthID retrieves the profile linked to an external subject.
	// It should return ErrUserNotFound if the user does not exist.
	GetUserByAuthID(ctx context.Context, authID string) (*models.UserProfile, error)

	// GetUserByEmail is used to link an existing profile to a new subject.
	// It should return ErrUserNotFound if the user does not exist.
	GetUserByEmail(ctx context.Context, email string) (*models.UserProfile, error)

	GetUserByID(ctx context.Context, id string) (*models.UserProfile, error)

	// UpdateUser persists every mutable column of the profile, matched by ID.
	// It should return ErrUsernameTaken when the username belongs to someone else.
	UpdateUser(ctx context.Context, profile *models.UserProfile) error

	// UsernameTaken reports whether another subject already uses the username.
	UsernameTaken(ctx context.Context, username, excludeAuthID string) (bool, error)

	ListUsers(ctx context.Context, filter models.ProfileFilter) ([]*models.UserProfile, error)

	DeleteUser(ctx context.Context, authID string) error
}

// Common errors
var ErrUserNotFound = fmt.Errorf("user not found")
var ErrUserExists = fmt.Errorf("user already exists")
var ErrUsernameTaken = fmt.Errorf("username already taken")

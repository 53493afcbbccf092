package repository

import (
	"context"
	"errors"

	"github.com/SimpnicServerTeam/planner-usersync/internal/models"
)

// ErrCacheMiss is returned when no cached profile exists for a subject.
var ErrCacheMiss = errors.New("profile not cached")

// ProfileCache keeps recently read profiles keyed by external subject.
type ProfileCache interface {
	// GetProfile returns ErrCacheMiss when nothing is cached.
	GetProfile(ctx context.Context, authID string) (*models.UserProfile, error)
	StoreProfile(ctx context.Context, profile *models.UserProfile) error
	// InvalidateProfile drops the cached entry; missing entries are not an error.
	InvalidateProfile(ctx context.Context, authID string) error
}

package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/SimpnicServerTeam/planner-usersync/internal/models"
	"github.com/SimpnicServerTeam/planner-usersync/internal/repository"
)

// MemoryUserRepository implements UserRepository in memory (NOT FOR PRODUCTION)
type MemoryUserRepository struct {
	users  map[string]models.UserProfile // ID -> profile
	byAuth map[string]string             // auth0 ID -> ID
	mutex  sync.RWMutex
}

var _ repository.UserRepository = (*MemoryUserRepository)(nil)

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users:  make(map[string]models.UserProfile),
		byAuth: make(map[string]string),
	}
}

func (r *MemoryUserRepository) CreateUser(ctx context.Context, profile *models.UserProfile) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.byAuth[profile.Auth0ID]; exists {
		return repository.ErrUserExists
	}
	if _, exists := r.users[profile.ID]; exists {
		return repository.ErrUserExists
	}
	for _, u := range r.users {
		if strings.EqualFold(u.Email, profile.Email) {
			return repository.ErrUserExists
		}
		if profile.Username != "" && u.Username == profile.Username {
			return repository.ErrUsernameTaken
		}
	}

	r.users[profile.ID] = *profile
	r.byAuth[profile.Auth0ID] = profile.ID
	return nil
}

func (r *MemoryUserRepository) GetUserByAuthID(ctx context.Context, authID string) (*models.UserProfile, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	id, ok := r.byAuth[authID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	u := r.users[id]
	return &u, nil
}

func (r *MemoryUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.UserProfile, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *MemoryUserRepository) GetUserByID(ctx context.Context, id string) (*models.UserProfile, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &u, nil
}

func (r *MemoryUserRepository) UpdateUser(ctx context.Context, profile *models.UserProfile) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	current, ok := r.users[profile.ID]
	if !ok {
		return repository.ErrUserNotFound
	}
	for id, u := range r.users {
		if id == profile.ID {
			continue
		}
		if profile.Username != "" && u.Username == profile.Username {
			return repository.ErrUsernameTaken
		}
		if u.Auth0ID == profile.Auth0ID || strings.EqualFold(u.Email, profile.Email) {
			return repository.ErrUserExists
		}
	}

	// the subject may change when an account is linked by email
	if current.Auth0ID != profile.Auth0ID {
		delete(r.byAuth, current.Auth0ID)
		r.byAuth[profile.Auth0ID] = profile.ID
	}
	r.users[profile.ID] = *profile
	return nil
}

func (r *MemoryUserRepository) UsernameTaken(ctx context.Context, username, excludeAuthID string) (bool, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, u := range r.users {
		if u.Username == username && u.Auth0ID != excludeAuthID {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryUserRepository) ListUsers(ctx context.Context, filter models.ProfileFilter) ([]*models.UserProfile, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	out := make([]*models.UserProfile, 0, len(r.users))
	for _, u := range r.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		u := u
		out = append(out, &u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryUserRepository) DeleteUser(ctx context.Context, authID string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	id, ok := r.byAuth[authID]
	if !ok {
		return repository.ErrUserNotFound
	}
	delete(r.byAuth, authID)
	delete(r.users, id)
	return nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/SimpnicServerTeam/planner-usersync/internal/models"
	"github.com/SimpnicServerTeam/planner-usersync/internal/repository"
)

// ErrInvalidRole is returned when a role change names an unknown role.
var ErrInvalidRole = errors.New("invalid role")

// ErrProviderDelete wraps a failure to delete the account at the identity provider.
// The local profile is kept when it occurs.
var ErrProviderDelete = errors.New("failed to delete user at identity provider")

var _ UserProfileManager = (*userService)(nil)

type userService struct {
	userRepo repository.UserRepository
	cache    repository.ProfileCache // nil disables caching
	idp      IdentityAdmin
	now      func() time.Time
}

func NewUserService(userRepo repository.UserRepository, cache repository.ProfileCache, idp IdentityAdmin) *userService {
	if idp == nil {
		idp = NoopIdentityAdmin{}
	}
	return &userService{
		userRepo: userRepo,
		cache:    cache,
		idp:      idp,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *userService) SyncProfile(ctx context.Context, identity models.Identity, req models.SyncProfileRequest) (*models.UserProfile, bool, error) {
	if identity.Subject == "" {
		return nil, false, errors.New("identity subject is required")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.userRepo.GetUserByAuthID(ctx, identity.Subject)
	if errors.Is(err, repository.ErrUserNotFound) {
		user, err = s.userRepo.GetUserByEmail(ctx, email)
	}
	if errors.Is(err, repository.ErrUserNotFound) {
		return s.createProfile(ctx, identity, email, req)
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up user: %w", err)
	}

	if user.Auth0ID != identity.Subject {
		log.Info().Str("userId", user.ID).Str("oldAuthId", user.Auth0ID).Str("authId", identity.Subject).Msg("Linking existing profile to new identity")
		s.invalidate(ctx, user.Auth0ID)
	}

	now := s.now()
	user.Auth0ID = identity.Subject
	if email != "" {
		user.Email = email
	}
	user.Name = req.Name
	switch {
	case req.FullName != "":
		user.FullName = req.FullName
	case user.FullName == "":
		user.FullName = req.Name
	}
	if req.Username != "" {
		user.Username = req.Username
	}
	user.Picture = req.Picture
	user.EmailVerified = user.EmailVerified || req.EmailVerified
	user.Role = s.providerRole(ctx, user, identity.Roles)
	user.LastLogin = now
	user.UpdatedAt = now

	if err := s.userRepo.UpdateUser(ctx, user); err != nil {
		return nil, false, err
	}
	s.invalidate(ctx, user.Auth0ID)
	return user, false, nil
}

func (s *userService) createProfile(ctx context.Context, identity models.Identity, email string, req models.SyncProfileRequest) (*models.UserProfile, bool, error) {
	now := s.now()
	user := &models.UserProfile{
		ID:            uuid.NewString(),
		Auth0ID:       identity.Subject,
		Email:         email,
		Name:          req.Name,
		FullName:      req.FullName,
		Username:      req.Username,
		Picture:       req.Picture,
		EmailVerified: req.EmailVerified,
		Role:          models.InitialRole(identity.Roles),
		IsActive:      true,
		LastLogin:     now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if user.FullName == "" {
		user.FullName = req.Name
	}

	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		return nil, false, err
	}
	log.Info().Str("authId", user.Auth0ID).Str("email", user.Email).Str("role", string(user.Role)).Msg("Created user profile")
	return user, true, nil
}

// providerRole asks the provider for the account's roles, falling back to the token's
// roles claim. The stored role is kept when neither names a known role.
func (s *userService) providerRole(ctx context.Context, user *models.UserProfile, tokenRoles []string) models.Role {
	roles, err := s.idp.UserRoles(ctx, user.Auth0ID)
	if err != nil {
		log.Warn().Err(err).Str("authId", user.Auth0ID).Msg("Could not read roles from identity provider, using token roles")
	}
	if len(roles) == 0 {
		roles = tokenRoles
	}

	role, ok := models.ProviderRole(roles)
	if !ok {
		return user.Role
	}
	if role != user.Role {
		log.Info().Str("authId", user.Auth0ID).Str("from", string(user.Role)).Str("to", string(role)).Msg("Role changed at identity provider")
	}
	return role
}

func (s *userService) GetProfile(ctx context.Context, authID string) (*models.UserProfile, error) {
	if s.cache != nil {
		cached, err := s.cache.GetProfile(ctx, authID)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, repository.ErrCacheMiss) {
			log.Warn().Err(err).Str("authId", authID).Msg("Profile cache read failed")
		}
	}

	user, err := s.userRepo.GetUserByAuthID(ctx, authID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.StoreProfile(ctx, user); err != nil {
			log.Warn().Err(err).Str("authId", authID).Msg("Profile cache write failed")
		}
	}
	return user, nil
}

func (s *userService) UpdateProfile(ctx context.Context, authID string, req models.UpdateProfileRequest) (*models.UserProfile, error) {
	user, err := s.userRepo.GetUserByAuthID(ctx, authID)
	if err != nil {
		return nil, err
	}
	if req.IsEmpty() {
		return user, nil
	}

	if req.Username != "" && req.Username != user.Username {
		taken, err := s.userRepo.UsernameTaken(ctx, req.Username, authID)
		if err != nil {
			return nil, fmt.Errorf("failed to check username: %w", err)
		}
		if taken {
			return nil, repository.ErrUsernameTaken
		}
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.FullName != "" {
		user.FullName = req.FullName
	}
	if req.Username != "" {
		user.Username = req.Username
	}
	if req.StudentID != "" {
		user.StudentID = req.StudentID
	}
	if req.Picture != "" {
		user.Picture = req.Picture
	}
	user.UpdatedAt = s.now()

	if err := s.userRepo.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	s.invalidate(ctx, authID)

	update := models.IdentityProfileUpdate{
		Name:      req.Name,
		GivenName: req.FullName,
		Nickname:  req.Username,
		Picture:   req.Picture,
	}
	if err := s.idp.UpdateProfile(ctx, authID, update); err != nil {
		// The local profile is authoritative; the provider copy catches up on the next edit.
		log.Warn().Err(err).Str("authId", authID).Msg("Failed to mirror profile to identity provider")
	}
	return user, nil
}

func (s *userService) DeleteAccount(ctx context.Context, authID string) error {
	if _, err := s.userRepo.GetUserByAuthID(ctx, authID); err != nil {
		return err
	}
	return s.deleteEverywhere(ctx, authID)
}

// deleteEverywhere removes the provider account, then the local profile.
func (s *userService) deleteEverywhere(ctx context.Context, authID string) error {
	if err := s.idp.DeleteUser(ctx, authID); err != nil {
		return fmt.Errorf("%w: %w", ErrProviderDelete, err)
	}
	if err := s.userRepo.DeleteUser(ctx, authID); err != nil {
		return err
	}
	s.invalidate(ctx, authID)
	log.Info().Str("authId", authID).Msg("Deleted user account")
	return nil
}

func (s *userService) UsernameAvailable(ctx context.Context, authID, username string) (bool, error) {
	taken, err := s.userRepo.UsernameTaken(ctx, username, authID)
	if err != nil {
		return false, err
	}
	return !taken, nil
}

func (s *userService) ListUsers(ctx context.Context, filter models.ProfileFilter) ([]*models.UserProfile, error) {
	return s.userRepo.ListUsers(ctx, filter)
}

func (s *userService) SetRole(ctx context.Context, id string, role models.Role) (*models.UserProfile, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	user, err := s.userRepo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role == role {
		return user, nil
	}

	oldRole := user.Role
	user.Role = role
	user.UpdatedAt = s.now()
	if err := s.userRepo.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	s.invalidate(ctx, user.Auth0ID)
	log.Info().Str("userId", id).Str("from", string(oldRole)).Str("to", string(role)).Msg("User role updated")

	if err := s.idp.AssignRole(ctx, user.Auth0ID, role); err != nil {
		log.Warn().Err(err).Str("authId", user.Auth0ID).Msg("Failed to update role at identity provider")
	}
	return user, nil
}

func (s *userService) GetUser(ctx context.Context, id string) (*models.UserProfile, error) {
	return s.userRepo.GetUserByID(ctx, id)
}

func (s *userService) UpdateUser(ctx context.Context, id string, req models.AdminUpdateUserRequest) (*models.UserProfile, error) {
	user, err := s.userRepo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" && email == "" {
		return user, nil
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if email != "" {
		user.Email = email
	}
	user.UpdatedAt = s.now()
	if err := s.userRepo.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	s.invalidate(ctx, user.Auth0ID)

	update := models.IdentityProfileUpdate{Name: req.Name, Email: email}
	if err := s.idp.UpdateProfile(ctx, user.Auth0ID, update); err != nil {
		log.Warn().Err(err).Str("authId", user.Auth0ID).Msg("Failed to mirror admin edit to identity provider")
	}
	return user, nil
}

func (s *userService) DeleteUser(ctx context.Context, id string) error {
	user, err := s.userRepo.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	return s.deleteEverywhere(ctx, user.Auth0ID)
}

func (s *userService) Stats(ctx context.Context) (*models.UserStats, error) {
	users, err := s.userRepo.ListUsers(ctx, models.ProfileFilter{})
	if err != nil {
		return nil, err
	}

	stats := &models.UserStats{}
	for _, u := range users {
		if !u.IsActive {
			continue
		}
		stats.TotalUsers++
		if u.EmailVerified {
			stats.VerifiedUsers++
		}
		switch u.Role {
		case models.RoleStudent:
			stats.Roles.Students++
		case models.RoleLecturer:
			stats.Roles.Lecturers++
		case models.RoleAdmin:
			stats.Roles.Admins++
		}
	}
	return stats, nil
}

// RefreshRoles applies the provider's current role to every active user. A user the
// provider cannot answer for is reported as an error and left unchanged; the rest
// still run.
func (s *userService) RefreshRoles(ctx context.Context) (*models.RoleRefreshReport, error) {
	users, err := s.userRepo.ListUsers(ctx, models.ProfileFilter{})
	if err != nil {
		return nil, err
	}

	report := &models.RoleRefreshReport{Results: []models.RoleRefreshResult{}}
	for _, user := range users {
		if !user.IsActive || user.Auth0ID == "" {
			continue
		}
		report.Summary.Total++
		result := s.refreshRole(ctx, user)
		if result.Status == models.RoleRefreshError {
			report.Summary.Errors++
		} else if result.Updated {
			report.Summary.Updated++
		}
		report.Results = append(report.Results, result)
	}

	report.Message = fmt.Sprintf("Role refresh completed. %d users updated, %d errors.", report.Summary.Updated, report.Summary.Errors)
	log.Info().Int("total", report.Summary.Total).Int("updated", report.Summary.Updated).Int("errors", report.Summary.Errors).Msg("Role refresh completed")
	return report, nil
}

func (s *userService) refreshRole(ctx context.Context, user *models.UserProfile) models.RoleRefreshResult {
	result := models.RoleRefreshResult{
		Email:   user.Email,
		Auth0ID: user.Auth0ID,
		OldRole: user.Role,
		NewRole: user.Role,
		Status:  models.RoleRefreshSuccess,
	}
	fail := func(err error) models.RoleRefreshResult {
		log.Warn().Err(err).Str("authId", user.Auth0ID).Msg("Role refresh failed")
		result.NewRole = ""
		result.Status = models.RoleRefreshError
		result.Error = err.Error()
		return result
	}

	roles, err := s.idp.UserRoles(ctx, user.Auth0ID)
	if err != nil {
		return fail(err)
	}
	role, ok := models.ProviderRole(roles)
	if !ok || role == user.Role {
		return result
	}

	user.Role = role
	user.UpdatedAt = s.now()
	if err := s.userRepo.UpdateUser(ctx, user); err != nil {
		return fail(err)
	}
	s.invalidate(ctx, user.Auth0ID)
	result.NewRole = role
	result.Updated = true
	return result
}

func (s *userService) invalidate(ctx context.Context, authID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateProfile(ctx, authID); err != nil {
		log.Warn().Err(err).Str("authId", authID).Msg("Profile cache invalidation failed")
	}
}

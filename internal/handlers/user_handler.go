package handlers

import (
	"errors"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/SimpnicServerTeam/planner-usersync/internal/middleware"
	"github.com/SimpnicServerTeam/planner-usersync/internal/models"
	"github.com/SimpnicServerTeam/planner-usersync/internal/repository"
	"github.com/SimpnicServerTeam/planner-usersync/internal/service"
)

type UserHandler struct {
	UserService service.UserProfileManager
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService service.UserProfileManager) *UserHandler {
	return &UserHandler{UserService: userService}
}

// GetProfile returns the caller's local profile
func (h *UserHandler) GetProfile(c echo.Context) error {
	authID, err := getAuthIDFromContext(c)
	if err != nil {
		return err
	}

	profile, err := h.UserService.GetProfile(c.Request().Context(), authID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "User profile not found")
	}
	if err != nil {
		log.Error().Err(err).Str("authId", authID).Msg("Failed to get user profile")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to get user profile")
	}
	return c.JSON(http.StatusOK, profile)
}

// SyncProfile creates or links the caller's profile after login
func (h *UserHandler) SyncProfile(c echo.Context) error {
	identity, err := middleware.IdentityFromContext(c)
	if err != nil {
		return err
	}

	req := new(models.SyncProfileRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	profile, created, err := h.UserService.SyncProfile(c.Request().Context(), identity, *req)
	if err != nil {
		if errors.Is(err, repository.ErrUserExists) || errors.Is(err, repository.ErrUsernameTaken) {
			return echo.NewHTTPError(http.StatusConflict, "Conflict: a user with this email or Auth0 ID already exists")
		}
		log.Error().Err(err).Str("authId", identity.Subject).Msg("Failed to sync user profile")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to sync user profile")
	}

	if created {
		return c.JSON(http.StatusCreated, profile)
	}
	return c.JSON(http.StatusOK, profile)
}

// UpdateProfile applies a partial edit to the caller's profile
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	authID, err := getAuthIDFromContext(c)
	if err != nil {
		return err
	}

	req := new(models.UpdateProfileRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	profile, err := h.UserService.UpdateProfile(c.Request().Context(), authID, *req)
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	case errors.Is(err, repository.ErrUsernameTaken):
		return echo.NewHTTPError(http.StatusConflict, "Username already taken")
	case err != nil:
		log.Error().Err(err).Str("authId", authID).Msg("Failed to update user profile")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update user profile")
	}
	return c.JSON(http.StatusOK, profile)
}

// DeleteAccount deletes the caller at the identity provider and locally
func (h *UserHandler) DeleteAccount(c echo.Context) error {
	authID, err := getAuthIDFromContext(c)
	if err != nil {
		return err
	}

	err = h.UserService.DeleteAccount(c.Request().Context(), authID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	}
	if err != nil {
		log.Error().Err(err).Str("authId", authID).Msg("Self-deletion failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete account")
	}
	return c.NoContent(http.StatusNoContent)
}

// UsernameAvailable checks ?u= against every other user
func (h *UserHandler) UsernameAvailable(c echo.Context) error {
	authID, err := getAuthIDFromContext(c)
	if err != nil {
		return err
	}

	username := c.QueryParam("u")
	if username == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Username parameter required")
	}

	available, err := h.UserService.UsernameAvailable(c.Request().Context(), authID, username)
	if err != nil {
		log.Error().Err(err).Str("username", username).Msg("Failed to check username availability")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to check username availability")
	}
	return c.JSON(http.StatusOK, models.UsernameAvailabilityResponse{Available: available})
}

// ListUsers lists profiles, optionally filtered by ?role=
func (h *UserHandler) ListUsers(c echo.Context) error {
	var filter models.ProfileFilter
	if raw := c.QueryParam("role"); raw != "" {
		role, ok := models.ParseRole(raw)
		if !ok {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid role")
		}
		filter.Role = role
	}

	users, err := h.UserService.ListUsers(c.Request().Context(), filter)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list users")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to list users")
	}
	return c.JSON(http.StatusOK, users)
}

// SetRole changes the role of the user with the given profile ID
func (h *UserHandler) SetRole(c echo.Context) error {
	req := new(models.UpdateRoleRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	role, ok := models.ParseRole(req.Role)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid role")
	}

	id := c.Param("id")
	profile, err := h.UserService.SetRole(c.Request().Context(), id, role)
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	case errors.Is(err, service.ErrInvalidRole):
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid role")
	case err != nil:
		log.Error().Err(err).Str("userId", id).Msg("Failed to update user role")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update user role")
	}
	return c.JSON(http.StatusOK, profile)
}

// GetUser returns one profile by ID
func (h *UserHandler) GetUser(c echo.Context) error {
	id := c.Param("id")
	profile, err := h.UserService.GetUser(c.Request().Context(), id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	}
	if err != nil {
		log.Error().Err(err).Str("userId", id).Msg("Failed to get user")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to get user")
	}
	return c.JSON(http.StatusOK, profile)
}

// UpdateUser edits name and email of the user with the given profile ID
func (h *UserHandler) UpdateUser(c echo.Context) error {
	req := new(models.AdminUpdateUserRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	id := c.Param("id")
	profile, err := h.UserService.UpdateUser(c.Request().Context(), id, *req)
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	case errors.Is(err, repository.ErrUserExists):
		return echo.NewHTTPError(http.StatusConflict, "Email already in use")
	case err != nil:
		log.Error().Err(err).Str("userId", id).Msg("Failed to update user")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update user profile")
	}
	return c.JSON(http.StatusOK, profile)
}

// DeleteUser deletes the user with the given profile ID at the identity provider and locally
func (h *UserHandler) DeleteUser(c echo.Context) error {
	id := c.Param("id")
	err := h.UserService.DeleteUser(c.Request().Context(), id)
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	case errors.Is(err, service.ErrProviderDelete):
		log.Error().Err(err).Str("userId", id).Msg("Failed to delete user at identity provider")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete user in Auth0")
	case err != nil:
		log.Error().Err(err).Str("userId", id).Msg("Failed to delete user")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete user")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "User deleted successfully"})
}

// Stats counts active users by verification and role
func (h *UserHandler) Stats(c echo.Context) error {
	stats, err := h.UserService.Stats(c.Request().Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to get user stats")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to get user statistics")
	}
	return c.JSON(http.StatusOK, stats)
}

// RefreshRoles re-reads every active user's role from the identity provider
func (h *UserHandler) RefreshRoles(c echo.Context) error {
	report, err := h.UserService.RefreshRoles(c.Request().Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to refresh user roles")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to refresh user roles")
	}
	return c.JSON(http.StatusOK, report)
}

// Get authID from jwt, return http error not able to parse
func getAuthIDFromContext(c echo.Context) (string, error) {
	userContext := c.Get(middleware.UserContextKey)
	if userContext == nil {
		log.Error().Msg("'user' not found in context. This indicates a middleware issue or misconfiguration.")
		return "", echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated: context missing user information")
	}

	user, ok := userContext.(*jwt.Token)
	if !ok {
		log.Error().Interface("actualType", userContext).Msg("'user' in context is not of type *jwt.Token")
		return "", echo.NewHTTPError(http.StatusInternalServerError, "Internal server error: user context type mismatch")
	}

	authID, err := user.Claims.GetSubject()
	if err != nil {
		log.Error().Err(err).Msg("Error getting subject claim from token")
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Invalid token: cannot get subject")
	} else if authID == "" {
		log.Error().Msg("Subject claim is empty in token")
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Invalid token: subject claim is missing or empty")
	}
	return authID, nil
}

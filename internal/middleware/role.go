package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/SimpnicServerTeam/planner-usersync/internal/models"
	"github.com/SimpnicServerTeam/planner-usersync/internal/repository"
)

// ProfileLookup loads the caller's local profile.
type ProfileLookup func(ctx context.Context, authID string) (*models.UserProfile, error)

// RequireRole lets the request through when the caller's stored profile has one of roles.
// Token role claims are not trusted here; an admin may have changed the role since the
// token was issued.
func RequireRole(lookup ProfileLookup, adminContact string, roles ...models.Role) echo.MiddlewareFunc {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	denied := "Insufficient permissions: requires " + strings.Join(names, " or ")
	if adminContact != "" {
		denied = fmt.Sprintf("%s. Contact %s to request access", denied, adminContact)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, err := IdentityFromContext(c)
			if err != nil {
				return err
			}

			profile, err := lookup(c.Request().Context(), id.Subject)
			if errors.Is(err, repository.ErrUserNotFound) {
				return echo.NewHTTPError(http.StatusForbidden, "User profile not found")
			}
			if err != nil {
				return fmt.Errorf("failed to load profile for role check: %w", err)
			}

			for _, role := range roles {
				if profile.HasRole(role) {
					return next(c)
				}
			}
			log.Warn().Str("authId", id.Subject).Str("role", string(profile.Role)).Strs("required", names).Msg("Role check failed")
			return echo.NewHTTPError(http.StatusForbidden, denied)
		}
	}
}

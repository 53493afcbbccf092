package router

import (
	"github.com/labstack/echo/v4"

	"github.com/SimpnicServerTeam/planner-usersync/internal/handlers"
)

// SetupUserRoutes mounts /api/users. auth guards every route; adminOnly additionally
// guards the administration routes.
func SetupUserRoutes(e *echo.Echo, h *handlers.UserHandler, auth, adminOnly echo.MiddlewareFunc) {
	users := e.Group("/api/users", auth)

	users.POST("", h.SyncProfile)
	users.GET("/profile", h.GetProfile)
	users.PUT("/profile", h.UpdateProfile)
	users.DELETE("/me", h.DeleteAccount)
	users.GET("/username-available", h.UsernameAvailable)

	// Admin
	users.GET("", h.ListUsers, adminOnly)
	users.GET("/stats", h.Stats, adminOnly)
	users.POST("/refresh-roles", h.RefreshRoles, adminOnly)
	users.GET("/:id", h.GetUser, adminOnly)
	users.PUT("/:id", h.UpdateUser, adminOnly)
	users.DELETE("/:id", h.DeleteUser, adminOnly)
	users.PUT("/:id/role", h.SetRole, adminOnly)
}

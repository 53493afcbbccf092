package mocks

import (
	"time"

	"github.com/SimpnicServerTeam/planner-usersync/internal/config"
)

const TestRolesClaim = "https://my-app.com/roles"

// CreateTestConfig returns a config that verifies HS256 tokens with a fixed secret.
func CreateTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Port: "5000", Env: "test", LogLevel: "debug"},
		Database: config.DatabaseConfig{
			Driver: "memory",
		},
		Redis: config.RedisSettings{ProfileTTL: 5 * time.Minute},
		Auth0: config.Auth0Config{
			Audience:   "http://localhost:5000",
			RolesClaim: TestRolesClaim,
		},
		JWTSecret: "test-jwt-secret",
		Client: config.ClientConfig{
			APIBaseURL:     "http://localhost:5000/api",
			RequestTimeout: 10 * time.Second,
			TokenTimeout:   5 * time.Second,
			MaxRetries:     2,
			InitialBackoff: 2 * time.Second,
		},
		AdminContactEmail: "admin@example.com",
	}
}

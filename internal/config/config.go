package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type AppConfig struct {
	// Server port
	Port     string
	Env      string
	LogLevel string
}

type DatabaseConfig struct {
	// sqlite3 or memory
	Driver string
	DSN    string
}

type RedisSettings struct {
	Address  string
	Password string
	DB       int
	// How long a read profile stays cached, zero disables caching
	ProfileTTL time.Duration
}

type Auth0Config struct {
	Domain   string
	Audience string
	// Namespaced custom claim carrying the roles assigned in the provider
	RolesClaim string
	// Management API credentials, optional
	ManagementClientID     string
	ManagementClientSecret string
}

// Enabled reports whether tokens are verified against a real tenant.
func (c Auth0Config) Enabled() bool {
	return c.Domain != ""
}

// IssuerURL returns "https://{domain}/", or the domain itself when it already carries a scheme.
func (c Auth0Config) IssuerURL() string {
	domain := strings.TrimSuffix(strings.TrimSpace(c.Domain), "/")
	if domain == "" {
		return ""
	}
	if strings.HasPrefix(domain, "http://") || strings.HasPrefix(domain, "https://") {
		return domain + "/"
	}
	return "https://" + domain + "/"
}

// ClientConfig drives the user sync client.
type ClientConfig struct {
	APIBaseURL     string
	RequestTimeout time.Duration
	TokenTimeout   time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
}

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisSettings
	Auth0     Auth0Config
	JWTSecret string
	Client    ClientConfig
	// Shown to users who need a role change
	AdminContactEmail string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "5000")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATABASE_DRIVER", "sqlite3")
	v.SetDefault("DATABASE_DSN", "file:planner?mode=memory&cache=shared")
	v.SetDefault("PROFILE_CACHE_TTL", 5*time.Minute)
	v.SetDefault("AUTH0_ROLES_CLAIM", "https://my-app.com/roles")
	v.SetDefault("API_BASE_URL", "http://localhost:5000/api")
	v.SetDefault("API_TIMEOUT", 10*time.Second)
	v.SetDefault("TOKEN_TIMEOUT", 5*time.Second)
	v.SetDefault("SYNC_MAX_RETRIES", 2)
	v.SetDefault("SYNC_INITIAL_BACKOFF", 2*time.Second)
	v.SetDefault("ADMIN_CONTACT_EMAIL", "admin@example.com")
}

// LoadConfig reads .env (if present) and the environment.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()
	setDefaults(v)

	// Load configuration
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			log.Info().Msg("Config file not found, using defaults and environment variables")
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Port:     v.GetString("APP_PORT"),
			Env:      v.GetString("APP_ENV"),
			LogLevel: v.GetString("LOG_LEVEL"),
		},
		Database: DatabaseConfig{
			Driver: v.GetString("DATABASE_DRIVER"),
			DSN:    v.GetString("DATABASE_DSN"),
		},
		Redis: RedisSettings{
			Address:    v.GetString("REDIS_ADDRESS"),
			Password:   v.GetString("REDIS_PASSWORD"),
			DB:         v.GetInt("REDIS_DB"),
			ProfileTTL: v.GetDuration("PROFILE_CACHE_TTL"),
		},
		Auth0: Auth0Config{
			Domain:                 v.GetString("AUTH0_DOMAIN"),
			Audience:               v.GetString("AUTH0_AUDIENCE"),
			RolesClaim:             v.GetString("AUTH0_ROLES_CLAIM"),
			ManagementClientID:     v.GetString("AUTH0_MGMT_CLIENT_ID"),
			ManagementClientSecret: v.GetString("AUTH0_MGMT_CLIENT_SECRET"),
		},
		JWTSecret: v.GetString("JWT_SECRET"),
		Client: ClientConfig{
			APIBaseURL:     strings.TrimSuffix(v.GetString("API_BASE_URL"), "/"),
			RequestTimeout: v.GetDuration("API_TIMEOUT"),
			TokenTimeout:   v.GetDuration("TOKEN_TIMEOUT"),
			MaxRetries:     v.GetInt("SYNC_MAX_RETRIES"),
			InitialBackoff: v.GetDuration("SYNC_INITIAL_BACKOFF"),
		},
		AdminContactEmail: v.GetString("ADMIN_CONTACT_EMAIL"),
	}

	switch cfg.Database.Driver {
	case "sqlite3", "memory":
	default:
		return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q", cfg.Database.Driver)
	}
	if cfg.Client.MaxRetries < 0 {
		log.Warn().Int("maxRetries", cfg.Client.MaxRetries).Msg("Negative SYNC_MAX_RETRIES, defaulting to 0")
		cfg.Client.MaxRetries = 0
	}
	// Audience defaults to the API base URL without the /api suffix, like the SPA does.
	if cfg.Auth0.Audience == "" {
		cfg.Auth0.Audience = strings.TrimSuffix(cfg.Client.APIBaseURL, "/api")
	}
	return cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if !c.Auth0.Enabled() && c.JWTSecret == "" {
		return errors.New("either AUTH0_DOMAIN or JWT_SECRET must be set")
	}
	if !c.Auth0.Enabled() && c.App.Env == "production" {
		log.Warn().Msg("Using HS256 development tokens in production. Set AUTH0_DOMAIN.")
	}
	return nil
}

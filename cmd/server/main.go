package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/SimpnicServerTeam/planner-usersync/internal/config"
	"github.com/SimpnicServerTeam/planner-usersync/internal/handlers"
	"github.com/SimpnicServerTeam/planner-usersync/internal/logger"
	"github.com/SimpnicServerTeam/planner-usersync/internal/middleware"
	"github.com/SimpnicServerTeam/planner-usersync/internal/models"
	"github.com/SimpnicServerTeam/planner-usersync/internal/repository"
	"github.com/SimpnicServerTeam/planner-usersync/internal/repository/memory"
	redis_repo "github.com/SimpnicServerTeam/planner-usersync/internal/repository/redis"
	sqlite_repo "github.com/SimpnicServerTeam/planner-usersync/internal/repository/sqlite"
	"github.com/SimpnicServerTeam/planner-usersync/internal/router"
	"github.com/SimpnicServerTeam/planner-usersync/internal/server"
	"github.com/SimpnicServerTeam/planner-usersync/internal/service"
	"github.com/SimpnicServerTeam/planner-usersync/internal/validation"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger.Init(cfg.App.LogLevel, cfg.App.Env)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx := context.Background()

	var userRepo repository.UserRepository
	switch cfg.Database.Driver {
	case "memory":
		log.Warn().Msg("Using in-memory user repository, profiles are lost on restart")
		userRepo = memory.NewMemoryUserRepository()
	default:
		db, err := sqlite_repo.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open database")
		}
		defer db.Close()
		userRepo = sqlite_repo.NewSQLUserRepository(db)
	}

	var profileCache repository.ProfileCache
	if cfg.Redis.Address != "" && cfg.Redis.ProfileTTL > 0 {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("address", cfg.Redis.Address).Msg("Redis unreachable, profile reads will fall through to the database")
		}
		profileCache = redis_repo.NewRedisProfileCache(redisClient, cfg.Redis.ProfileTTL)
	}

	userService := service.NewUserService(userRepo, profileCache, service.NewIdentityAdmin(cfg.Auth0))

	parseToken, err := middleware.NewTokenParser(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up token verification")
	}

	app := server.New(validation.New())
	router.SetupUserRoutes(app,
		handlers.NewUserHandler(userService),
		middleware.JWTAuth(parseToken, cfg.Auth0.RolesClaim),
		middleware.RequireRole(userService.GetProfile, cfg.AdminContactEmail, models.RoleAdmin),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Server starting")
		if err := app.Start(":" + cfg.App.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		return
	}

	log.Info().Msg("Server stopped gracefully.")
}

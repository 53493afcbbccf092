// Command usersync logs in as one identity, syncs its profile with the API and prints
// the resulting profile and role flags.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/SimpnicServerTeam/planner-usersync/internal/apiclient"
	"github.com/SimpnicServerTeam/planner-usersync/internal/config"
	"github.com/SimpnicServerTeam/planner-usersync/internal/logger"
	"github.com/SimpnicServerTeam/planner-usersync/internal/models"
	"github.com/SimpnicServerTeam/planner-usersync/internal/retry"
	"github.com/SimpnicServerTeam/planner-usersync/internal/service"
	"github.com/SimpnicServerTeam/planner-usersync/internal/usersync"
)

func main() {
	var (
		identity models.Identity
		roles    string
		token    string
	)
	flag.StringVar(&identity.Subject, "sub", "", "subject of the identity to log in as")
	flag.StringVar(&identity.Email, "email", "", "email claim")
	flag.StringVar(&identity.Name, "name", "", "name claim, defaults to the email")
	flag.StringVar(&identity.Picture, "picture", "", "picture claim")
	flag.StringVar(&roles, "roles", "", "comma separated provider roles, used when minting a token")
	flag.StringVar(&token, "token", os.Getenv("ACCESS_TOKEN"), "bearer token; minted with JWT_SECRET when empty")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger.Init(cfg.App.LogLevel, cfg.App.Env)

	if identity.Subject == "" {
		log.Fatal().Msg("-sub is required")
	}
	if roles != "" {
		identity.Roles = strings.Split(roles, ",")
	}

	provider, err := tokenProvider(cfg, identity, token)
	if err != nil {
		log.Fatal().Err(err).Msg("No access token available")
	}

	tokens := apiclient.NewTokenSource()
	client := apiclient.New(cfg.Client.APIBaseURL, tokens, apiclient.Options{
		RequestTimeout: cfg.Client.RequestTimeout,
		TokenTimeout:   cfg.Client.TokenTimeout,
	})
	policy := retry.DefaultPolicy(apiclient.IsTimeout)
	policy.MaxAttempts = cfg.Client.MaxRetries + 1
	policy.InitialInterval = cfg.Client.InitialBackoff
	engine := usersync.New(client, tokens, usersync.Options{Policy: policy})

	stop := engine.OnChange(func(st usersync.Status) {
		log.Info().Str("state", st.State.String()).Str("message", st.Message).Msg("Sync status changed")
	})
	defer stop()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	engine.Login(identity, provider)
	st := engine.EnsureSynced(ctx)
	if !st.IsSynced() {
		if st.CanRetry() {
			log.Warn().Msg("Sync timed out, retrying once")
			engine.Retry()
			st = engine.EnsureSynced(ctx)
		}
		if !st.IsSynced() {
			log.Error().Err(st.Err).Str("status", st.String()).Msg("Profile sync failed")
			os.Exit(1)
		}
	}

	out := struct {
		Profile *models.UserProfile `json:"profile"`
		Roles   usersync.Roles      `json:"roles"`
	}{st.Profile, engine.Roles()}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to encode profile")
	}
	fmt.Println(string(b))
}

// tokenProvider uses the given token, or signs a development token when only the
// shared secret is configured.
func tokenProvider(cfg *config.Config, identity models.Identity, token string) (apiclient.TokenProvider, error) {
	if token != "" {
		return apiclient.StaticToken(token), nil
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("set -token, ACCESS_TOKEN or JWT_SECRET")
	}
	minted, err := service.NewTokenService(cfg.JWTSecret, cfg.Auth0.Audience, cfg.Auth0.RolesClaim).GenerateToken(identity)
	if err != nil {
		return nil, fmt.Errorf("failed to sign development token: %w", err)
	}
	return apiclient.StaticToken(minted), nil
}

package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/SimpnicServerTeam/planner-usersync/internal/config"
	"github.com/SimpnicServerTeam/planner-usersync/internal/models"
)

const (
	// UserContextKey holds the verified *jwt.Token.
	UserContextKey = "user"
	// IdentityContextKey holds the models.Identity read from the token.
	IdentityContextKey = "identity"
)

// TokenParser verifies a raw bearer token and returns its claims.
type TokenParser func(ctx context.Context, raw string) (jwt.MapClaims, error)

// HS256Parser verifies tokens signed with a shared secret. Used in development and tests.
func HS256Parser(secret []byte, audience string) TokenParser {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	parser := jwt.NewParser(opts...)

	return func(_ context.Context, raw string) (jwt.MapClaims, error) {
		claims := jwt.MapClaims{}
		if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
			return secret, nil
		}); err != nil {
			return nil, err
		}
		return claims, nil
	}
}

// OIDCParser verifies tokens against the issuer's published keys.
func OIDCParser(verifier *oidc.IDTokenVerifier) TokenParser {
	return func(ctx context.Context, raw string) (jwt.MapClaims, error) {
		token, err := verifier.Verify(ctx, raw)
		if err != nil {
			return nil, err
		}
		claims := jwt.MapClaims{}
		if err := token.Claims(&claims); err != nil {
			return nil, fmt.Errorf("failed to decode token claims: %w", err)
		}
		return claims, nil
	}
}

// NewTokenParser picks OIDC discovery when a tenant domain is configured and the shared
// secret otherwise.
func NewTokenParser(ctx context.Context, cfg *config.Config) (TokenParser, error) {
	if !cfg.Auth0.Enabled() {
		if cfg.JWTSecret == "" {
			return nil, errors.New("either AUTH0_DOMAIN or JWT_SECRET must be set")
		}
		log.Warn().Msg("AUTH0_DOMAIN not set, verifying HS256 tokens with JWT_SECRET")
		return HS256Parser([]byte(cfg.JWTSecret), cfg.Auth0.Audience), nil
	}

	// The provider keeps ctx for later JWKS refreshes, so it must outlive this call.
	issuer := cfg.Auth0.IssuerURL()
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		log.Error().Err(err).Str("issuer", issuer).Msg("Failed to create OIDC provider")
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}
	verifier := provider.Verifier(&oidc.Config{
		ClientID:          cfg.Auth0.Audience,
		SkipClientIDCheck: cfg.Auth0.Audience == "",
	})
	log.Info().Str("issuer", issuer).Str("audience", cfg.Auth0.Audience).Msg("Verifying access tokens with OIDC discovery")
	return OIDCParser(verifier), nil
}

// JWTAuth rejects requests without a valid bearer token. On success the token is stored
// under UserContextKey and the caller's identity under IdentityContextKey.
func JWTAuth(parse TokenParser, rolesClaim string) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey: UserContextKey,
		ParseTokenFunc: func(c echo.Context, auth string) (interface{}, error) {
			claims, err := parse(c.Request().Context(), auth)
			if err != nil {
				return nil, err
			}
			return &jwt.Token{Raw: auth, Claims: claims, Valid: true}, nil
		},
		SuccessHandler: func(c echo.Context) {
			token := c.Get(UserContextKey).(*jwt.Token)
			c.Set(IdentityContextKey, identityFromClaims(token.Claims.(jwt.MapClaims), rolesClaim))
		},
		ErrorHandler: func(c echo.Context, err error) error {
			var tokenErr *echojwt.TokenError
			if errors.As(err, &tokenErr) {
				log.Debug().Err(err).Msg("Rejected bearer token")
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token").SetInternal(err)
			}
			return echo.NewHTTPError(http.StatusUnauthorized, "Authorization header format must be Bearer {token}").SetInternal(err)
		},
	})
}

func identityFromClaims(claims jwt.MapClaims, rolesClaim string) models.Identity {
	sub, _ := claims.GetSubject()
	id := models.Identity{
		Subject: sub,
		Email:   stringClaim(claims, "email"),
		Name:    stringClaim(claims, "name"),
		Picture: stringClaim(claims, "picture"),
	}
	id.EmailVerified, _ = claims["email_verified"].(bool)

	switch roles := claims[rolesClaim].(type) {
	case []interface{}:
		for _, r := range roles {
			if s, ok := r.(string); ok {
				id.Roles = append(id.Roles, s)
			}
		}
	case []string:
		id.Roles = roles
	case string:
		id.Roles = []string{roles}
	}
	return id
}

func stringClaim(claims jwt.MapClaims, key string) string {
	s, _ := claims[key].(string)
	return s
}

// IdentityFromContext returns the identity stored by JWTAuth.
func IdentityFromContext(c echo.Context) (models.Identity, error) {
	id, ok := c.Get(IdentityContextKey).(models.Identity)
	if !ok {
		return models.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated: context missing user information")
	}
	if id.Subject == "" {
		return models.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "Invalid token: subject claim is missing or empty")
	}
	return id, nil
}

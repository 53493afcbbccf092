package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/SimpnicServerTeam/planner-usersync/internal/models"
)

// TokenService signs HS256 access tokens shaped like the provider's, for local runs
// where no tenant is configured.
type TokenService struct {
	jwtSecret  []byte
	audience   string
	rolesClaim string
	ttl        time.Duration
}

var _ TokenGenerator = (*TokenService)(nil)

// NewTokenService creates a TokenService
func NewTokenService(secret, audience, rolesClaim string) *TokenService {
	return &TokenService{
		jwtSecret:  []byte(secret),
		audience:   audience,
		rolesClaim: rolesClaim,
		ttl:        time.Hour,
	}
}

// GenerateToken creates a new JWT for an identity
func (s *TokenService) GenerateToken(identity models.Identity) (string, error) {
	if len(s.jwtSecret) == 0 {
		return "", errors.New("jwt secret is not configured")
	}
	if identity.Subject == "" {
		return "", errors.New("identity subject is required")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":            identity.Subject,
		"iat":            now.Unix(),
		"nbf":            now.Unix(),
		"exp":            now.Add(s.ttl).Unix(),
		"email":          identity.Email,
		"name":           identity.Name,
		"picture":        identity.Picture,
		"email_verified": identity.EmailVerified,
	}
	if s.audience != "" {
		claims["aud"] = s.audience
	}
	if s.rolesClaim != "" && len(identity.Roles) > 0 {
		claims[s.rolesClaim] = identity.Roles
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SimpnicServerTeam/planner-usersync/internal/models"
)

const (
	testSecret     = "test-jwt-secret"
	testRolesClaim = "https://my-app.com/roles"
)

func TestNewTokenService(t *testing.T) {
	service := NewTokenService(testSecret, "http://localhost:5000", testRolesClaim)
	require.NotNil(t, service, "NewTokenService should not return nil")
	assert.Equal(t, []byte(testSecret), service.jwtSecret, "jwtSecret was not initialized correctly")
}

func TestTokenService_GenerateToken(t *testing.T) {
	service := NewTokenService(testSecret, "http://localhost:5000", testRolesClaim)
	identity := models.Identity{
		Subject: "auth0|123",
		Email:   "lecturer@example.com",
		Name:    "Lecturer",
		Roles:   []string{"lecturer"},
	}

	t.Run("Success", func(t *testing.T) {
		tokenString, err := service.GenerateToken(identity)
		require.NoError(t, err, "GenerateToken should not return an error")
		require.NotEmpty(t, tokenString, "Generated token string should not be empty")

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(testSecret), nil
		})
		require.NoError(t, err, "Failed to parse generated token")
		assert.True(t, token.Valid, "Generated token should be valid")

		claims, ok := token.Claims.(jwt.MapClaims)
		require.True(t, ok, "Token claims should be of type jwt.MapClaims")
		assert.Equal(t, "auth0|123", claims["sub"])
		assert.Equal(t, "http://localhost:5000", claims["aud"])
		assert.Equal(t, "lecturer@example.com", claims["email"])
		assert.Equal(t, []interface{}{"lecturer"}, claims[testRolesClaim])

		exp, err := claims.GetExpirationTime()
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().Add(time.Hour), exp.Time, 5*time.Second)
	})

	t.Run("MissingSubject", func(t *testing.T) {
		_, err := service.GenerateToken(models.Identity{Email: "x@example.com"})
		assert.Error(t, err)
	})

	t.Run("MissingSecret", func(t *testing.T) {
		_, err := NewTokenService("", "", testRolesClaim).GenerateToken(identity)
		assert.Error(t, err)
	})
}

package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/SimpnicServerTeam/planner-usersync/internal/config"
	"github.com/SimpnicServerTeam/planner-usersync/internal/models"
)

// ErrRoleNotFound is returned when the tenant has no role with the requested name.
var ErrRoleNotFound = errors.New("role not defined at identity provider")

// Auth0AdminService calls the Auth0 Management API with a machine-to-machine token.
type Auth0AdminService struct {
	baseURL string
	client  *http.Client

	rolesMu sync.Mutex
	roleIDs map[string]string // role name -> role ID
}

var _ IdentityAdmin = (*Auth0AdminService)(nil)

// NewIdentityAdmin returns the Auth0 admin when management credentials are configured,
// and a no-op admin otherwise.
func NewIdentityAdmin(cfg config.Auth0Config) IdentityAdmin {
	if cfg.Domain == "" || cfg.ManagementClientID == "" || cfg.ManagementClientSecret == "" {
		log.Warn().Msg("Auth0 management credentials not configured, identity provider updates are disabled")
		return NoopIdentityAdmin{}
	}
	return NewAuth0AdminService(cfg)
}

// NewAuth0AdminService creates an admin for the tenant at cfg.Domain. Tokens are fetched
// with the client credentials grant and cached until they expire.
func NewAuth0AdminService(cfg config.Auth0Config) *Auth0AdminService {
	issuer := cfg.IssuerURL()
	cc := &clientcredentials.Config{
		ClientID:     cfg.ManagementClientID,
		ClientSecret: cfg.ManagementClientSecret,
		TokenURL:     issuer + "oauth/token",
		EndpointParams: url.Values{
			"audience": {issuer + "api/v2/"},
		},
	}
	return &Auth0AdminService{
		baseURL: issuer + "api/v2",
		client:  cc.Client(context.Background()),
	}
}

func (s *Auth0AdminService) UpdateProfile(ctx context.Context, authID string, update models.IdentityProfileUpdate) error {
	if update.IsEmpty() {
		return nil
	}
	if err := s.do(ctx, http.MethodPatch, "/users/"+url.PathEscape(authID), update, nil); err != nil {
		return fmt.Errorf("failed to update provider profile: %w", err)
	}
	log.Info().Str("authId", authID).Msg("Updated profile at identity provider")
	return nil
}

func (s *Auth0AdminService) DeleteUser(ctx context.Context, authID string) error {
	if authID == "" {
		return errors.New("missing provider user ID")
	}
	if err := s.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(authID), nil, nil); err != nil {
		return fmt.Errorf("failed to delete provider user: %w", err)
	}
	log.Info().Str("authId", authID).Msg("Deleted user at identity provider")
	return nil
}

type auth0Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type auth0RoleIDs struct {
	Roles []string `json:"roles"`
}

func (s *Auth0AdminService) userRoles(ctx context.Context, authID string) ([]auth0Role, error) {
	var roles []auth0Role
	if err := s.do(ctx, http.MethodGet, "/users/"+url.PathEscape(authID)+"/roles", nil, &roles); err != nil {
		return nil, err
	}
	return roles, nil
}

func (s *Auth0AdminService) UserRoles(ctx context.Context, authID string) ([]string, error) {
	roles, err := s.userRoles(ctx, authID)
	if err != nil {
		return nil, fmt.Errorf("failed to list provider roles: %w", err)
	}
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = r.Name
	}
	return names, nil
}

func (s *Auth0AdminService) AssignRole(ctx context.Context, authID string, role models.Role) error {
	roleID, err := s.roleID(ctx, string(role))
	if err != nil {
		return err
	}

	current, err := s.userRoles(ctx, authID)
	if err != nil {
		return fmt.Errorf("failed to list provider roles: %w", err)
	}
	if len(current) > 0 {
		ids := auth0RoleIDs{Roles: make([]string, len(current))}
		for i, r := range current {
			ids.Roles[i] = r.ID
		}
		if err := s.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(authID)+"/roles", ids, nil); err != nil {
			// Assigning the new role still matters more than a clean slate.
			log.Warn().Err(err).Str("authId", authID).Msg("Failed to remove existing provider roles")
		}
	}

	if err := s.do(ctx, http.MethodPost, "/users/"+url.PathEscape(authID)+"/roles", auth0RoleIDs{Roles: []string{roleID}}, nil); err != nil {
		return fmt.Errorf("failed to assign provider role: %w", err)
	}
	log.Info().Str("authId", authID).Str("role", string(role)).Msg("Assigned role at identity provider")
	return nil
}

// roleID resolves a role name, loading the tenant's role list once.
func (s *Auth0AdminService) roleID(ctx context.Context, name string) (string, error) {
	s.rolesMu.Lock()
	defer s.rolesMu.Unlock()

	if s.roleIDs == nil {
		var roles []auth0Role
		if err := s.do(ctx, http.MethodGet, "/roles", nil, &roles); err != nil {
			return "", fmt.Errorf("failed to list provider roles: %w", err)
		}
		s.roleIDs = make(map[string]string, len(roles))
		for _, r := range roles {
			s.roleIDs[r.Name] = r.ID
		}
	}

	id, ok := s.roleIDs[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrRoleNotFound, name)
	}
	return id, nil
}

func (s *Auth0AdminService) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.Warn().Int("statusCode", resp.StatusCode).Str("body", string(bodyBytes)).Str("path", path).Msg("Error response from management API")
		return fmt.Errorf("management API %s %s failed with status: %s", method, path, resp.Status)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode management API response: %w", err)
	}
	return nil
}

// NoopIdentityAdmin is used when no management credentials are configured.
type NoopIdentityAdmin struct{}

var _ IdentityAdmin = NoopIdentityAdmin{}

func (NoopIdentityAdmin) UpdateProfile(context.Context, string, models.IdentityProfileUpdate) error {
	return nil
}

func (NoopIdentityAdmin) DeleteUser(context.Context, string) error {
	return nil
}

func (NoopIdentityAdmin) UserRoles(context.Context, string) ([]string, error) {
	return nil, nil
}

func (NoopIdentityAdmin) AssignRole(context.Context, string, models.Role) error {
	return nil
}

package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/SimpnicServerTeam/planner-usersync/internal/models"
)

// GetProfile fetches the caller's local profile.
func (c *Client) GetProfile(ctx context.Context) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := c.Do(ctx, http.MethodGet, "/users/profile", nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// CreateProfile creates (or links) the caller's profile from identity claims.
func (c *Client) CreateProfile(ctx context.Context, req models.SyncProfileRequest) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := c.Do(ctx, http.MethodPost, "/users", req, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpdateProfile applies a partial update to the caller's profile.
func (c *Client) UpdateProfile(ctx context.Context, req models.UpdateProfileRequest) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := c.Do(ctx, http.MethodPut, "/users/profile", req, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// DeleteAccount removes the caller's account, including the identity provider record.
func (c *Client) DeleteAccount(ctx context.Context) error {
	return c.Do(ctx, http.MethodDelete, "/users/me", nil, nil)
}

// UsernameAvailable asks whether username is free for the caller.
func (c *Client) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	var resp models.UsernameAvailabilityResponse
	path := "/users/username-available?u=" + url.QueryEscape(username)
	if err := c.Do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return false, err
	}
	return resp.Available, nil
}

package models

// Identity holds the verified claims of the caller's bearer token.
type Identity struct {
	Subject       string   `json:"sub"`
	Email         string   `json:"email,omitempty"`
	Name          string   `json:"name,omitempty"`
	Picture       string   `json:"picture,omitempty"`
	EmailVerified bool     `json:"email_verified,omitempty"`
	Roles         []string `json:"roles,omitempty"`
}

// IdentityProfileUpdate carries the profile fields mirrored back to the identity provider.
type IdentityProfileUpdate struct {
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	GivenName string `json:"given_name,omitempty"`
	Nickname  string `json:"nickname,omitempty"`
	Picture   string `json:"picture,omitempty"`
}

// IsEmpty reports whether there is nothing to send.
func (u IdentityProfileUpdate) IsEmpty() bool {
	return u.Name == "" && u.Email == "" && u.GivenName == "" && u.Nickname == "" && u.Picture == ""
}

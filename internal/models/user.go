package models

import (
	"time"
)

// UserProfile is the local mirror of an external identity.
type UserProfile struct {
	ID            string    `json:"id" db:"id"`
	Auth0ID       string    `json:"auth0_id" db:"auth0_id"`
	Email         string    `json:"email" db:"email"`
	Name          string    `json:"name" db:"name"`
	FullName      string    `json:"full_name,omitempty" db:"full_name"`
	Username      string    `json:"username,omitempty" db:"username"`
	StudentID     string    `json:"student_id,omitempty" db:"student_id"`
	Picture       string    `json:"picture,omitempty" db:"picture"`
	EmailVerified bool      `json:"email_verified" db:"email_verified"`
	Role          Role      `json:"role" db:"role"`
	IsActive      bool      `json:"is_active" db:"is_active"`
	LastLogin     time.Time `json:"last_login" db:"last_login"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// HasRole reports whether the profile carries exactly the given role.
func (p *UserProfile) HasRole(role Role) bool {
	return p != nil && p.Role == role
}

// ProfileFilter narrows admin listings.
type ProfileFilter struct {
	Role Role
}

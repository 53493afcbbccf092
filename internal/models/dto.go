package models

// SyncProfileRequest is the body of POST /users. The subject comes from the token.
type SyncProfileRequest struct {
	Email         string `json:"email" validate:"required,email"`
	Name          string `json:"name" validate:"required,max=120"`
	FullName      string `json:"full_name,omitempty" validate:"omitempty,max=120"`
	Username      string `json:"username,omitempty" validate:"omitempty,min=3,max=32,alphanum_"`
	Picture       string `json:"picture,omitempty" validate:"omitempty,url"`
	EmailVerified bool   `json:"email_verified"`
}

// UpdateProfileRequest is the body of PUT /users/profile. Empty fields are left unchanged.
type UpdateProfileRequest struct {
	Name      string `json:"name,omitempty" validate:"omitempty,max=120"`
	FullName  string `json:"full_name,omitempty" validate:"omitempty,max=120"`
	Username  string `json:"username,omitempty" validate:"omitempty,min=3,max=32,alphanum_"`
	StudentID string `json:"student_id,omitempty" validate:"omitempty,max=20,alphanum"`
	Picture   string `json:"picture,omitempty" validate:"omitempty,url"`
}

// IsEmpty reports whether the update carries no changes.
func (r UpdateProfileRequest) IsEmpty() bool {
	return r.Name == "" && r.FullName == "" && r.Username == "" && r.StudentID == "" && r.Picture == ""
}

// AdminUpdateUserRequest is the body of PUT /users/:id. Empty fields are left unchanged.
type AdminUpdateUserRequest struct {
	Name  string `json:"name,omitempty" validate:"omitempty,max=120"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
}

// UpdateRoleRequest is the body of PUT /users/:id/role.
type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// UsernameAvailabilityResponse answers GET /users/username-available.
type UsernameAvailabilityResponse struct {
	Available bool `json:"available"`
}

// ErrorResponse standard error format
type ErrorResponse struct {
	Error string `json:"error"`
}

// UserStats answers GET /users/stats. Only active profiles are counted.
type UserStats struct {
	TotalUsers    int        `json:"total_users"`
	VerifiedUsers int        `json:"verified_users"`
	Roles         RoleCounts `json:"roles"`
}

type RoleCounts struct {
	Students  int `json:"students"`
	Lecturers int `json:"lecturers"`
	Admins    int `json:"admins"`
}

const (
	RoleRefreshSuccess = "success"
	RoleRefreshError   = "error"
)

// RoleRefreshResult is one user's outcome in a bulk role refresh.
type RoleRefreshResult struct {
	Email   string `json:"email"`
	Auth0ID string `json:"auth0_id"`
	OldRole Role   `json:"old_role"`
	NewRole Role   `json:"new_role,omitempty"`
	Updated bool   `json:"updated"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
}

type RoleRefreshSummary struct {
	Total   int `json:"total"`
	Updated int `json:"updated"`
	Errors  int `json:"errors"`
}

// RoleRefreshReport answers POST /users/refresh-roles.
type RoleRefreshReport struct {
	Message string              `json:"message"`
	Summary RoleRefreshSummary  `json:"summary"`
	Results []RoleRefreshResult `json:"results"`
}

package models

import "time"

// Role constants for platform users.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a registered user. The primary key is the identity
// provider subject id, so a row exists only after a first successful login.
type User struct {
	ID        string         `json:"id"` // Cognito sub
	Email     string         `json:"email"`
	Username  string         `json:"username"`
	FullName  string         `json:"full_name,omitempty"`
	Role      string         `json:"role"`
	IsActive  bool           `json:"is_active"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	LastLogin *time.Time     `json:"last_login,omitempty"`
}

// IsAdmin returns true if the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

package types

import "time"

// Profile roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Profile extends an auth identity with a display name and a role.
// Its ID is the owning user's ID.
type Profile struct {
	ID        string    `json:"id" db:"id"`
	FullName  string    `json:"full_name" db:"full_name"`
	Role      string    `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Session is the per-request identity resolved from a token plus the
// role looked up from the user's profile.
type Session struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`

	// ProfileMissing is set when no profile row existed for the user and
	// the role fell back to "user". It distinguishes graceful degradation
	// from a real profile.
	ProfileMissing bool `json:"profile_missing,omitempty"`
}

// IsAdmin reports whether the session carries the admin role.
func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}

package models

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin   UserRole = "Admin"
	RoleTeacher UserRole = "Teacher"
	RoleStudent UserRole = "Student"
)

// Valid reports whether the role is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	default:
		return false
	}
}

// User represents an application user stored in the users table.
// Password is stored and compared as plain text.
type User struct {
	ID       string   `db:"user_id" json:"user_id"`
	Name     string   `db:"user_name" json:"user_name"`
	Role     UserRole `db:"user_role" json:"user_role"`
	Password string   `db:"user_pass" json:"-"`
}

// Profile is the Teacher or Student subtype row keyed by the user id.
type Profile struct {
	UserID    string `db:"user_id" json:"user_id"`
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
}

// UserSummary is the id/name pair used for availability listings.
type UserSummary struct {
	ID   string `db:"user_id" json:"user_id"`
	Name string `db:"user_name" json:"user_name"`
}

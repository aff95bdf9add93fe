package domain

import "time"

// Role enumerates tenant-scoped user roles.
type Role string

const (
	RoleUser      Role = "USER"
	RoleModerator Role = "MODERATOR"
	RoleAdmin     Role = "ADMIN"
)

// User is the domain model for company members: ticket submitters,
// moderators, and admins. Skills are free-form strings maintained by
// admins or the moderator themselves; the triage core only reads them.
type User struct {
	ID           string
	CompanyID    string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Skills       []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

package entities

import "github.com/google/uuid"

// UserRole represents platform-level roles carried in identity tokens
type UserRole string

const (
	UserRoleAdmin UserRole = "ADMIN"
	UserRoleUser  UserRole = "USER"
)

// Actor is the authenticated caller of a ledger operation
type Actor struct {
	UserID uuid.UUID
	Role   UserRole
}

// IsAdmin reports whether the actor holds the platform admin role
func (a Actor) IsAdmin() bool {
	return a.Role == UserRoleAdmin
}

// Package identity describes the authenticated caller as seen by the
// domain layer.
package identity

import "github.com/google/uuid"

// Role is the coarse platform role carried in the auth token.
type Role string

const (
	RolePatient  Role = "patient"
	RoleProvider Role = "provider"
	RoleAdmin    Role = "admin"

	// RoleNone means the actor holds no relation that authorizes the call.
	RoleNone Role = ""
)

// Actor is the authenticated caller.
type Actor struct {
	ID   uuid.UUID
	Role Role
	Name string
}

// IsAdmin reports whether the actor is the platform audit actor.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

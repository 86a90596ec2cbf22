package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/wheelworks/shopfloor-backend/pkg/enums"
)

// AccessTokenClaims is the typed JWT minted by the external auth service.
// The engine only verifies and reads it.
type AccessTokenClaims struct {
	UserID      uuid.UUID          `json:"user_id"`
	DisplayName string             `json:"display_name"`
	Role        enums.ActorRole    `json:"role"`
	Departments []enums.Department `json:"departments,omitempty"`
	jwt.RegisteredClaims
}

// Actor is the authenticated identity every mutating call carries.
type Actor struct {
	UserID      uuid.UUID
	DisplayName string
	Role        enums.ActorRole
	Departments []enums.Department
}

// ActorFromClaims converts verified claims into the domain actor.
func ActorFromClaims(claims *AccessTokenClaims) Actor {
	if claims == nil {
		return Actor{}
	}
	return Actor{
		UserID:      claims.UserID,
		DisplayName: claims.DisplayName,
		Role:        claims.Role,
		Departments: claims.Departments,
	}
}

// IsAdmin reports whether the actor holds the privileged role.
func (a Actor) IsAdmin() bool {
	return a.Role == enums.RoleAdmin
}

// HasDepartment reports whether the department is in the actor's scope.
// Admins are in scope everywhere.
func (a Actor) HasDepartment(d enums.Department) bool {
	if a.IsAdmin() {
		return true
	}
	for _, candidate := range a.Departments {
		if candidate == d {
			return true
		}
	}
	return false
}

package platform

import (
	"context"

	"github.com/google/uuid"
)

// Role is one of the two administrative roles.
type Role string

const (
	RoleTenantAdmin   Role = "tenant_admin"
	RolePlatformAdmin Role = "platform_admin"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	return r == RoleTenantAdmin || r == RolePlatformAdmin
}

// Actor is the authenticated identity making a request. TenantID is set
// for tenant admins only.
type Actor struct {
	ID       uuid.UUID  `json:"id"`
	Email    string     `json:"email,omitempty"`
	Role     Role       `json:"role"`
	TenantID *uuid.UUID `json:"tenant_id,omitempty"`
}

// IsPlatformAdmin reports whether the actor holds the platform_admin role.
func (a *Actor) IsPlatformAdmin() bool {
	return a != nil && a.Role == RolePlatformAdmin
}

// IsTenantAdmin reports whether the actor holds the tenant_admin role.
func (a *Actor) IsTenantAdmin() bool {
	return a != nil && a.Role == RoleTenantAdmin
}

// Validate checks the role/tenant pairing.
func (a *Actor) Validate() error {
	if a == nil {
		return AuthenticationError()
	}
	if !a.Role.IsValid() {
		return FieldError("role", "must be tenant_admin or platform_admin")
	}
	if a.Role == RoleTenantAdmin && (a.TenantID == nil || *a.TenantID == uuid.Nil) {
		return FieldError("tenant_id", "is required for tenant_admin")
	}
	return nil
}

type actorKey struct{}

// WithActor returns a copy of ctx carrying the actor.
func WithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext resolves the current actor. A nil result means the
// request is anonymous, which is not an error.
func ActorFromContext(ctx context.Context) *Actor {
	if ctx == nil {
		return nil
	}
	actor, _ := ctx.Value(actorKey{}).(*Actor)
	return actor
}

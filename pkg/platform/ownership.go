package platform

import "github.com/google/uuid"

const ownershipMessage = "you can only act on your own tenant's resources"

// CheckOwnership enforces that a tenant admin only touches resources owned
// by their tenant. Platform admins always pass. Every item-level operation
// goes through here.
func CheckOwnership(actor *Actor, owner uuid.UUID) error {
	if err := RequireAnyAdmin(actor); err != nil {
		return err
	}
	if actor.IsPlatformAdmin() {
		return nil
	}
	if actor.TenantID == nil || owner == uuid.Nil || *actor.TenantID != owner {
		return AuthorizationError(ownershipMessage)
	}
	return nil
}

// ScopeTenantFilter returns the tenant filter a list query must use.
// Tenant admins are always pinned to their own tenant regardless of the
// requested filter; everyone else keeps the explicit filter, if any.
func ScopeTenantFilter(actor *Actor, requested *uuid.UUID) *uuid.UUID {
	if actor.IsTenantAdmin() && actor.TenantID != nil {
		scoped := *actor.TenantID
		return &scoped
	}
	return requested
}

// PublicOnly reports whether a read must be restricted to publicly visible
// rows. True for anonymous callers; never relaxed.
func PublicOnly(actor *Actor) bool {
	return actor == nil
}

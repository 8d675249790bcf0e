package platform

// RequireAuthenticated succeeds iff an actor is present.
func RequireAuthenticated(actor *Actor) error {
	if actor == nil {
		return AuthenticationError()
	}
	return nil
}

// RequireRole requires authentication and then membership in allowed.
// A platform admin satisfies any check that admits tenant admins.
func RequireRole(actor *Actor, allowed ...Role) error {
	if err := RequireAuthenticated(actor); err != nil {
		return err
	}
	for _, role := range allowed {
		if actor.Role == role {
			return nil
		}
		if role == RoleTenantAdmin && actor.Role == RolePlatformAdmin {
			return nil
		}
	}
	return RoleError(allowed)
}

// RequirePlatformAdmin is RequireRole(actor, RolePlatformAdmin).
func RequirePlatformAdmin(actor *Actor) error {
	return RequireRole(actor, RolePlatformAdmin)
}

// RequireAnyAdmin is RequireRole(actor, RoleTenantAdmin, RolePlatformAdmin).
func RequireAnyAdmin(actor *Actor) error {
	return RequireRole(actor, RoleTenantAdmin, RolePlatformAdmin)
}

package platform_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/tendant/simple-platform/pkg/platform"
)

func tenantAdmin(tenantID uuid.UUID) *platform.Actor {
	tid := tenantID
	return &platform.Actor{ID: uuid.New(), Email: "tenant@example.com", Role: platform.RoleTenantAdmin, TenantID: &tid}
}

func platformAdmin() *platform.Actor {
	return &platform.Actor{ID: uuid.New(), Email: "root@example.com", Role: platform.RolePlatformAdmin}
}

func TestRequireAuthenticated(t *testing.T) {
	err := platform.RequireAuthenticated(nil)
	assert.True(t, platform.IsKind(err, platform.KindAuthentication))

	assert.NoError(t, platform.RequireAuthenticated(platformAdmin()))
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name    string
		actor   *platform.Actor
		allowed []platform.Role
		want    platform.ErrorKind
	}{
		{"anonymous", nil, []platform.Role{platform.RoleTenantAdmin}, platform.KindAuthentication},
		{"tenant admin on platform route", tenantAdmin(uuid.New()), []platform.Role{platform.RolePlatformAdmin}, platform.KindAuthorization},
		{"tenant admin on tenant route", tenantAdmin(uuid.New()), []platform.Role{platform.RoleTenantAdmin}, ""},
		{"platform admin on tenant route", platformAdmin(), []platform.Role{platform.RoleTenantAdmin}, ""},
		{"platform admin on platform route", platformAdmin(), []platform.Role{platform.RolePlatformAdmin}, ""},
		{"unknown role", &platform.Actor{ID: uuid.New(), Role: "editor"}, []platform.Role{platform.RoleTenantAdmin}, platform.KindAuthorization},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := platform.RequireRole(tt.actor, tt.allowed...)
			assert.Equal(t, tt.want, platform.KindOf(err))
		})
	}
}

func TestRequireRole_NamesAllowedRoles(t *testing.T) {
	err := platform.RequirePlatformAdmin(tenantAdmin(uuid.New()))
	assert.Contains(t, err.Error(), "platform_admin")

	err = platform.RequireRole(&platform.Actor{ID: uuid.New(), Role: "editor"}, platform.RolePlatformAdmin, platform.RoleTenantAdmin)
	assert.Equal(t, "insufficient permissions: requires one of platform_admin, tenant_admin", err.Error())
}

func TestRequireAnyAdmin(t *testing.T) {
	assert.NoError(t, platform.RequireAnyAdmin(tenantAdmin(uuid.New())))
	assert.NoError(t, platform.RequireAnyAdmin(platformAdmin()))
	assert.True(t, platform.IsKind(platform.RequireAnyAdmin(nil), platform.KindAuthentication))
}

package settings_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-platform/pkg/platform"
	"github.com/tendant/simple-platform/pkg/platform/settings"
)

func TestStore_Apply(t *testing.T) {
	store := settings.NewStore(settings.Settings{SiteName: "Platform"})
	platformAdmin := &platform.Actor{ID: uuid.New(), Role: platform.RolePlatformAdmin}
	tid := uuid.New()
	tenantAdmin := &platform.Actor{ID: uuid.New(), Role: platform.RoleTenantAdmin, TenantID: &tid}

	on := true
	msg := "back soon"

	t.Run("tenant admin rejected", func(t *testing.T) {
		_, err := store.Apply(tenantAdmin, settings.Update{MaintenanceMode: &on})
		assert.True(t, platform.IsKind(err, platform.KindAuthorization))
		enabled, _ := store.Maintenance()
		assert.False(t, enabled)
	})

	t.Run("anonymous rejected", func(t *testing.T) {
		_, err := store.Apply(nil, settings.Update{MaintenanceMode: &on})
		assert.True(t, platform.IsKind(err, platform.KindAuthentication))
	})

	t.Run("platform admin enables maintenance", func(t *testing.T) {
		updated, err := store.Apply(platformAdmin, settings.Update{MaintenanceMode: &on, MaintenanceMessage: &msg})
		require.NoError(t, err)
		assert.True(t, updated.MaintenanceMode)
		assert.Equal(t, "Platform", updated.SiteName)

		enabled, message := store.Maintenance()
		assert.True(t, enabled)
		assert.Equal(t, msg, message)
	})

	t.Run("invalid email", func(t *testing.T) {
		bad := "not-an-email"
		_, err := store.Apply(platformAdmin, settings.Update{ContactEmail: &bad})
		require.Error(t, err)
		perr := platform.AsError(err)
		assert.Equal(t, platform.KindValidation, perr.Kind)
		assert.Contains(t, perr.FieldErrors, "contact_email")
	})
}

package platform_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-platform/pkg/platform"
)

func TestAuthorizeTransition(t *testing.T) {
	owner := uuid.New()
	owning := tenantAdmin(owner)
	other := tenantAdmin(uuid.New())
	admin := platformAdmin()

	tests := []struct {
		transition platform.Transition
		actor      *platform.Actor
		want       platform.ErrorKind
	}{
		{platform.TransitionCreate, owning, ""},
		{platform.TransitionCreate, other, platform.KindAuthorization},
		{platform.TransitionEdit, owning, ""},
		{platform.TransitionEdit, other, platform.KindAuthorization},
		{platform.TransitionEdit, admin, ""},
		{platform.TransitionDelete, owning, ""},
		{platform.TransitionDelete, other, platform.KindAuthorization},
		{platform.TransitionApprove, owning, platform.KindAuthorization},
		{platform.TransitionApprove, admin, ""},
		{platform.TransitionReject, owning, platform.KindAuthorization},
		{platform.TransitionFeature, owning, platform.KindAuthorization},
		{platform.TransitionFeature, admin, ""},
		{platform.TransitionActivate, owning, platform.KindAuthorization},
		{platform.TransitionApprove, nil, platform.KindAuthentication},
		{platform.Transition("archive"), admin, platform.KindInternal},
	}

	for _, tt := range tests {
		name := string(tt.transition)
		if tt.actor != nil {
			name += "/" + string(tt.actor.Role)
		}
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, platform.KindOf(platform.AuthorizeTransition(tt.actor, tt.transition, owner)))
		})
	}
}

func TestNewLifecycle(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for _, requested := range []platform.PublicationState{"", platform.PublicationDraft, platform.PublicationPublished} {
		t.Run("requested "+string(requested), func(t *testing.T) {
			lc, err := platform.NewLifecycle(requested, now)
			require.NoError(t, err)
			assert.Equal(t, platform.ApprovalPending, lc.ApprovalState)
			assert.False(t, lc.IsPublic())
			assert.False(t, lc.IsFeatured)
		})
	}

	lc, err := platform.NewLifecycle(platform.PublicationPublished, now)
	require.NoError(t, err)
	require.NotNil(t, lc.PublishedAt)
	assert.Equal(t, now, *lc.PublishedAt)

	lc, err = platform.NewLifecycle("", now)
	require.NoError(t, err)
	assert.Equal(t, platform.PublicationDraft, lc.PublicationState)
	assert.Nil(t, lc.PublishedAt)

	_, err = platform.NewLifecycle("archived", now)
	assert.True(t, platform.IsKind(err, platform.KindValidation))
}

func TestLifecycle_SetPublication(t *testing.T) {
	first := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	later := first.Add(time.Hour)

	lc := platform.Lifecycle{ApprovalState: platform.ApprovalApproved, PublicationState: platform.PublicationDraft}

	lc.SetPublication(platform.PublicationPublished, first)
	require.NotNil(t, lc.PublishedAt)
	assert.Equal(t, first, *lc.PublishedAt)
	assert.True(t, lc.IsPublic())

	lc.SetPublication(platform.PublicationPublished, later)
	assert.Equal(t, first, *lc.PublishedAt, "republishing keeps the first timestamp")

	lc.SetPublication(platform.PublicationDraft, later)
	assert.Nil(t, lc.PublishedAt)
	assert.False(t, lc.IsPublic())
	assert.Equal(t, platform.ApprovalApproved, lc.ApprovalState)

	lc.SetPublication(platform.PublicationPublished, later)
	assert.Equal(t, later, *lc.PublishedAt)
}

func TestApplyDecision(t *testing.T) {
	next, err := platform.ApplyDecision(platform.ApprovalPending, platform.TransitionApprove)
	require.NoError(t, err)
	assert.Equal(t, platform.ApprovalApproved, next)

	next, err = platform.ApplyDecision(next, platform.TransitionApprove)
	require.NoError(t, err)
	assert.Equal(t, platform.ApprovalApproved, next)

	next, err = platform.ApplyDecision(next, platform.TransitionReject)
	require.NoError(t, err)
	assert.Equal(t, platform.ApprovalRejected, next)

	_, err = platform.ApplyDecision(next, platform.TransitionEdit)
	assert.True(t, platform.IsKind(err, platform.KindInternal))
}

func TestDecisionTransition(t *testing.T) {
	tr, err := platform.DecisionTransition(platform.ApprovalApproved)
	require.NoError(t, err)
	assert.Equal(t, platform.TransitionApprove, tr)

	tr, err = platform.DecisionTransition(platform.ApprovalRejected)
	require.NoError(t, err)
	assert.Equal(t, platform.TransitionReject, tr)

	_, err = platform.DecisionTransition(platform.ApprovalPending)
	assert.True(t, platform.IsKind(err, platform.KindValidation))
}

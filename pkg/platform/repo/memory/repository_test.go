package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-platform/pkg/platform"
	"github.com/tendant/simple-platform/pkg/platform/repo/memory"
)

func newTenant(slug string) *platform.Tenant {
	now := time.Now().UTC()
	return &platform.Tenant{
		ID:            uuid.New(),
		Name:          "Tenant " + slug,
		Slug:          slug,
		ApprovalState: platform.ApprovalPending,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func newStory(owner uuid.UUID, title string, approval platform.ApprovalState, publication platform.PublicationState) *platform.Content {
	now := time.Now().UTC()
	return &platform.Content{
		ID:            uuid.New(),
		Kind:          platform.KindStory,
		OwnerTenantID: owner,
		Title:         title,
		Lifecycle: platform.Lifecycle{
			ApprovalState:    approval,
			PublicationState: publication,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestMemoryRepository_TenantOperations(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	t.Run("CreateAndGet", func(t *testing.T) {
		tenant := newTenant("create-get")
		require.NoError(t, repo.CreateTenant(ctx, tenant))

		retrieved, err := repo.GetTenant(ctx, tenant.ID)
		require.NoError(t, err)
		assert.Equal(t, tenant.Name, retrieved.Name)
		assert.Equal(t, platform.ApprovalPending, retrieved.ApprovalState)
	})

	t.Run("DuplicateSlug", func(t *testing.T) {
		require.NoError(t, repo.CreateTenant(ctx, newTenant("dup")))
		err := repo.CreateTenant(ctx, newTenant("dup"))
		assert.ErrorIs(t, err, platform.ErrConflict)
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := repo.GetTenant(ctx, uuid.New())
		assert.ErrorIs(t, err, platform.ErrNotFound)
	})

	t.Run("ReturnsCopies", func(t *testing.T) {
		tenant := newTenant("copies")
		require.NoError(t, repo.CreateTenant(ctx, tenant))

		retrieved, err := repo.GetTenant(ctx, tenant.ID)
		require.NoError(t, err)
		retrieved.Name = "changed"

		again, err := repo.GetTenant(ctx, tenant.ID)
		require.NoError(t, err)
		assert.Equal(t, tenant.Name, again.Name)
	})

	t.Run("ListFilters", func(t *testing.T) {
		repo := memory.New()
		approved := newTenant("approved")
		approved.ApprovalState = platform.ApprovalApproved
		inactive := newTenant("inactive")
		inactive.ApprovalState = platform.ApprovalApproved
		inactive.Active = false
		require.NoError(t, repo.CreateTenant(ctx, approved))
		require.NoError(t, repo.CreateTenant(ctx, inactive))
		require.NoError(t, repo.CreateTenant(ctx, newTenant("pending")))

		state, active := platform.ApprovalApproved, true
		tenants, err := repo.ListTenants(ctx, platform.TenantFilter{ApprovalState: &state, Active: &active})
		require.NoError(t, err)
		require.Len(t, tenants, 1)
		assert.Equal(t, approved.ID, tenants[0].ID)

		tenants, err = repo.ListTenants(ctx, platform.TenantFilter{IDs: []uuid.UUID{inactive.ID}})
		require.NoError(t, err)
		require.Len(t, tenants, 1)
		assert.Equal(t, inactive.ID, tenants[0].ID)
	})
}

func TestMemoryRepository_DeleteTenantCascades(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	doomed := newTenant("doomed")
	other := newTenant("other")
	require.NoError(t, repo.CreateTenant(ctx, doomed))
	require.NoError(t, repo.CreateTenant(ctx, other))

	tid := doomed.ID
	account := &platform.Account{ID: uuid.New(), Email: "a@example.com", Role: platform.RoleTenantAdmin, TenantID: &tid}
	require.NoError(t, repo.CreateAccount(ctx, account))

	story := newStory(doomed.ID, "gone", platform.ApprovalApproved, platform.PublicationPublished)
	kept := newStory(other.ID, "kept", platform.ApprovalApproved, platform.PublicationPublished)
	require.NoError(t, repo.CreateContent(ctx, story))
	require.NoError(t, repo.CreateContent(ctx, kept))

	message := &platform.Message{ID: uuid.New(), OwnerTenantID: &tid, SenderEmail: "s@example.com", Body: "hi"}
	require.NoError(t, repo.CreateMessage(ctx, message))
	parentID := message.ID
	reply := &platform.Message{ID: uuid.New(), ParentID: &parentID, Body: "re"}
	require.NoError(t, repo.CreateMessage(ctx, reply))

	require.NoError(t, repo.DeleteTenant(ctx, doomed.ID))

	_, err := repo.GetTenant(ctx, doomed.ID)
	assert.ErrorIs(t, err, platform.ErrNotFound)

	detached, err := repo.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Nil(t, detached.TenantID)

	_, err = repo.GetContent(ctx, story.ID)
	assert.ErrorIs(t, err, platform.ErrNotFound)
	_, err = repo.GetContent(ctx, kept.ID)
	assert.NoError(t, err)

	_, err = repo.GetMessage(ctx, message.ID)
	assert.ErrorIs(t, err, platform.ErrNotFound)
	_, err = repo.GetMessage(ctx, reply.ID)
	assert.ErrorIs(t, err, platform.ErrNotFound)
}

func TestMemoryRepository_ListContent(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	tenant := newTenant("content")
	require.NoError(t, repo.CreateTenant(ctx, tenant))

	public := newStory(tenant.ID, "Harvest festival", platform.ApprovalApproved, platform.PublicationPublished)
	pendingPublished := newStory(tenant.ID, "Pending but published", platform.ApprovalPending, platform.PublicationPublished)
	approvedDraft := newStory(tenant.ID, "Approved draft", platform.ApprovalApproved, platform.PublicationDraft)
	for _, c := range []*platform.Content{public, pendingPublished, approvedDraft} {
		require.NoError(t, repo.CreateContent(ctx, c))
	}

	approved, published := platform.ApprovalApproved, platform.PublicationPublished

	tests := []struct {
		name   string
		filter platform.ContentFilter
		want   []uuid.UUID
	}{
		{
			name:   "public filter",
			filter: platform.ContentFilter{ApprovalState: &approved, PublicationState: &published},
			want:   []uuid.UUID{public.ID},
		},
		{
			name:   "query",
			filter: platform.ContentFilter{Query: "harvest"},
			want:   []uuid.UUID{public.ID},
		},
		{
			name:   "approved only",
			filter: platform.ContentFilter{ApprovalState: &approved},
			want:   []uuid.UUID{public.ID, approvedDraft.ID},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := repo.ListContent(ctx, tt.filter)
			require.NoError(t, err)
			var got []uuid.UUID
			for _, item := range items {
				got = append(got, item.ID)
			}
			assert.ElementsMatch(t, tt.want, got)
		})
	}

	t.Run("pagination", func(t *testing.T) {
		items, err := repo.ListContent(ctx, platform.ContentFilter{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, items, 2)

		items, err = repo.ListContent(ctx, platform.ContentFilter{Offset: 10})
		require.NoError(t, err)
		assert.Empty(t, items)
	})
}

func TestMemoryRepository_Accounts(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	account := &platform.Account{ID: uuid.New(), Email: "admin@example.com", Role: platform.RolePlatformAdmin}
	require.NoError(t, repo.CreateAccount(ctx, account))

	err := repo.CreateAccount(ctx, &platform.Account{ID: uuid.New(), Email: "admin@example.com", Role: platform.RolePlatformAdmin})
	assert.ErrorIs(t, err, platform.ErrConflict)

	found, err := repo.GetAccountByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, account.ID, found.ID)

	_, err = repo.GetAccountByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, platform.ErrNotFound)
}

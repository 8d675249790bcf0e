package platform

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Tenant operations

func (s *service) CreateTenant(ctx context.Context, actor *Actor, req CreateTenantRequest) (*Tenant, error) {
	if err := RequirePlatformAdmin(actor); err != nil {
		return nil, err
	}
	if err := ValidateStruct(req); err != nil {
		return nil, err
	}

	now := s.clock()
	tenant := &Tenant{
		ID:            uuid.New(),
		Name:          strings.TrimSpace(req.Name),
		Slug:          strings.ToLower(strings.TrimSpace(req.Slug)),
		Description:   req.Description,
		ContactEmail:  normalizeEmail(req.ContactEmail),
		ApprovalState: ApprovalPending,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repository.CreateTenant(ctx, tenant); err != nil {
		return nil, storeError("tenant", "create", err)
	}

	s.logger.Info("Tenant created", "tenant_id", tenant.ID.String(), "slug", tenant.Slug)
	return tenant, nil
}

func (s *service) GetTenant(ctx context.Context, actor *Actor, id uuid.UUID) (*Tenant, error) {
	if actor != nil {
		if err := CheckOwnership(actor, id); err != nil {
			return nil, err
		}
	}

	tenant, err := s.repository.GetTenant(ctx, id)
	if err != nil {
		return nil, storeError("tenant", "load", err)
	}
	if PublicOnly(actor) && !tenant.IsPublic() {
		return nil, NotFoundError("tenant")
	}
	return tenant, nil
}

func (s *service) UpdateTenant(ctx context.Context, actor *Actor, id uuid.UUID, req UpdateTenantRequest) (*Tenant, error) {
	if err := CheckOwnership(actor, id); err != nil {
		return nil, err
	}
	if err := ValidateStruct(req); err != nil {
		return nil, err
	}

	tenant, err := s.repository.GetTenant(ctx, id)
	if err != nil {
		return nil, storeError("tenant", "load", err)
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, FieldError("name", "is required")
		}
		tenant.Name = name
	}
	if req.Description != nil {
		tenant.Description = *req.Description
	}
	if req.ContactEmail != nil {
		tenant.ContactEmail = normalizeEmail(*req.ContactEmail)
	}
	tenant.UpdatedAt = s.clock()

	if err := s.repository.UpdateTenant(ctx, tenant); err != nil {
		return nil, storeError("tenant", "update", err)
	}
	return tenant, nil
}

func (s *service) DeleteTenant(ctx context.Context, actor *Actor, id uuid.UUID) error {
	if err := RequirePlatformAdmin(actor); err != nil {
		return err
	}

	if _, err := s.repository.GetTenant(ctx, id); err != nil {
		return storeError("tenant", "load", err)
	}

	// Blobs go only after the rows are gone, so a failed cascade never
	// leaves media pointing at missing files.
	var media []*Content
	if s.blobStore != nil {
		kind := KindMedia
		items, err := s.repository.ListContent(ctx, ContentFilter{Kind: &kind, TenantID: &id})
		if err != nil {
			return storeError("media", "list", err)
		}
		media = items
	}

	if err := s.repository.DeleteTenant(ctx, id); err != nil {
		return storeError("tenant", "delete", err)
	}

	for _, item := range media {
		s.deleteBlob(ctx, item)
	}

	s.logger.Info("Tenant deleted", "tenant_id", id.String(), "actor_id", actor.ID.String())
	return nil
}

func (s *service) ListTenants(ctx context.Context, actor *Actor, req ListTenantsRequest) ([]*Tenant, error) {
	filter := TenantFilter{
		ApprovalState: req.ApprovalState,
		Active:        req.Active,
		Limit:         clampLimit(req.Limit),
		Offset:        req.Offset,
	}

	switch {
	case PublicOnly(actor):
		approved, active := ApprovalApproved, true
		filter.ApprovalState = &approved
		filter.Active = &active
	case actor.IsTenantAdmin():
		if actor.TenantID == nil {
			return nil, AuthorizationError(ownershipMessage)
		}
		filter.IDs = []uuid.UUID{*actor.TenantID}
	case !actor.IsPlatformAdmin():
		return nil, RequireAnyAdmin(actor)
	}

	tenants, err := s.repository.ListTenants(ctx, filter)
	if err != nil {
		return nil, storeError("tenant", "list", err)
	}
	return tenants, nil
}

func (s *service) ApproveTenant(ctx context.Context, actor *Actor, id uuid.UUID) (*Tenant, error) {
	return s.decideTenant(ctx, actor, id, TransitionApprove)
}

func (s *service) RejectTenant(ctx context.Context, actor *Actor, id uuid.UUID) (*Tenant, error) {
	return s.decideTenant(ctx, actor, id, TransitionReject)
}

func (s *service) decideTenant(ctx context.Context, actor *Actor, id uuid.UUID, t Transition) (*Tenant, error) {
	if err := AuthorizeTransition(actor, t, id); err != nil {
		return nil, err
	}

	tenant, err := s.repository.GetTenant(ctx, id)
	if err != nil {
		return nil, storeError("tenant", "load", err)
	}

	next, err := ApplyDecision(tenant.ApprovalState, t)
	if err != nil {
		return nil, err
	}
	if next == tenant.ApprovalState {
		return tenant, nil
	}

	tenant.ApprovalState = next
	tenant.UpdatedAt = s.clock()
	if err := s.repository.UpdateTenant(ctx, tenant); err != nil {
		return nil, storeError("tenant", "update", err)
	}

	s.logger.Info("Tenant moderated", "tenant_id", id.String(), "approval_state", next)
	return tenant, nil
}

func (s *service) SetTenantActive(ctx context.Context, actor *Actor, id uuid.UUID, active bool) (*Tenant, error) {
	if err := AuthorizeTransition(actor, TransitionActivate, id); err != nil {
		return nil, err
	}

	tenant, err := s.repository.GetTenant(ctx, id)
	if err != nil {
		return nil, storeError("tenant", "load", err)
	}
	if tenant.Active == active {
		return tenant, nil
	}

	tenant.Active = active
	tenant.UpdatedAt = s.clock()
	if err := s.repository.UpdateTenant(ctx, tenant); err != nil {
		return nil, storeError("tenant", "update", err)
	}
	return tenant, nil
}

package platform

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Content operations

func (s *service) CreateContent(ctx context.Context, actor *Actor, req CreateContentRequest) (*Content, error) {
	if !req.Kind.IsValid() {
		return nil, FieldError("kind", "must be story, media or event")
	}
	if err := RequireAnyAdmin(actor); err != nil {
		return nil, err
	}

	owner, err := s.resolveCreateOwner(ctx, actor, req.TenantID)
	if err != nil {
		return nil, err
	}
	if err := AuthorizeTransition(actor, TransitionCreate, owner); err != nil {
		return nil, err
	}
	if err := ValidateStruct(req); err != nil {
		return nil, err
	}

	now := s.clock()
	lifecycle, err := NewLifecycle(req.PublicationState, now)
	if err != nil {
		return nil, err
	}

	content := &Content{
		ID:            uuid.New(),
		Kind:          req.Kind,
		OwnerTenantID: owner,
		Title:         strings.TrimSpace(req.Title),
		Summary:       req.Summary,
		Body:          req.Body,
		Lifecycle:     lifecycle,
		CreatedBy:     actor.ID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	switch req.Kind {
	case KindMedia:
		content.MimeType = req.MimeType
		content.FileName = SanitizeFileName(req.FileName)
	case KindEvent:
		content.Location = req.Location
		content.StartsAt = utcPtr(req.StartsAt)
		content.EndsAt = utcPtr(req.EndsAt)
		if err := validateSchedule(content.StartsAt, content.EndsAt); err != nil {
			return nil, err
		}
	}

	if err := s.repository.CreateContent(ctx, content); err != nil {
		return nil, storeError(req.Kind.Label(), "create", err)
	}

	s.logger.Info("Content created",
		"content_id", content.ID.String(),
		"kind", content.Kind,
		"tenant_id", owner.String(),
		"publication_state", content.PublicationState)
	return content, nil
}

// resolveCreateOwner picks the tenant a new resource belongs to. Tenant admins
// always create for their own tenant; platform admins must name one.
func (s *service) resolveCreateOwner(ctx context.Context, actor *Actor, requested *uuid.UUID) (uuid.UUID, error) {
	if actor.IsTenantAdmin() {
		if actor.TenantID == nil {
			return uuid.Nil, AuthorizationError(ownershipMessage)
		}
		if requested != nil && *requested != uuid.Nil && *requested != *actor.TenantID {
			return uuid.Nil, AuthorizationError(ownershipMessage)
		}
		return *actor.TenantID, nil
	}

	if requested == nil || *requested == uuid.Nil {
		return uuid.Nil, FieldError("tenant_id", "is required")
	}
	if _, err := s.repository.GetTenant(ctx, *requested); err != nil {
		return uuid.Nil, storeError("tenant", "load", err)
	}
	return *requested, nil
}

func (s *service) GetContent(ctx context.Context, actor *Actor, kind Kind, id uuid.UUID) (*Content, error) {
	content, err := s.loadContent(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	if PublicOnly(actor) {
		if !content.IsPublic() {
			return nil, NotFoundError(kind.Label())
		}
		return content, nil
	}
	if err := CheckOwnership(actor, content.OwnerTenantID); err != nil {
		return nil, err
	}
	return content, nil
}

func (s *service) UpdateContent(ctx context.Context, actor *Actor, kind Kind, id uuid.UUID, req UpdateContentRequest) (*Content, error) {
	if err := RequireAnyAdmin(actor); err != nil {
		return nil, err
	}

	content, err := s.loadContent(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if err := AuthorizeTransition(actor, TransitionEdit, content.OwnerTenantID); err != nil {
		return nil, err
	}
	if err := ValidateStruct(req); err != nil {
		return nil, err
	}

	now := s.clock()
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, FieldError("title", "is required")
		}
		content.Title = title
	}
	if req.Summary != nil {
		content.Summary = *req.Summary
	}
	if req.Body != nil {
		content.Body = *req.Body
	}
	if req.PublicationState != nil {
		if !req.PublicationState.IsValid() {
			return nil, FieldError("publication_state", "must be draft or published")
		}
		content.SetPublication(*req.PublicationState, now)
	}

	switch content.Kind {
	case KindMedia:
		if req.FileName != nil {
			content.FileName = SanitizeFileName(*req.FileName)
		}
	case KindEvent:
		if req.Location != nil {
			content.Location = *req.Location
		}
		if req.StartsAt != nil {
			content.StartsAt = utcPtr(req.StartsAt)
		}
		if req.EndsAt != nil {
			content.EndsAt = utcPtr(req.EndsAt)
		}
		if err := validateSchedule(content.StartsAt, content.EndsAt); err != nil {
			return nil, err
		}
	}

	content.UpdatedAt = now
	if err := s.repository.UpdateContent(ctx, content); err != nil {
		return nil, storeError(kind.Label(), "update", err)
	}
	return content, nil
}

func (s *service) DeleteContent(ctx context.Context, actor *Actor, kind Kind, id uuid.UUID) error {
	if err := RequireAnyAdmin(actor); err != nil {
		return err
	}

	content, err := s.loadContent(ctx, kind, id)
	if err != nil {
		return err
	}
	if err := AuthorizeTransition(actor, TransitionDelete, content.OwnerTenantID); err != nil {
		return err
	}

	if err := s.repository.DeleteContent(ctx, id); err != nil {
		return storeError(kind.Label(), "delete", err)
	}
	s.deleteBlob(ctx, content)

	s.logger.Info("Content deleted", "content_id", id.String(), "kind", kind, "actor_id", actor.ID.String())
	return nil
}

func (s *service) ListContent(ctx context.Context, actor *Actor, req ListContentRequest) ([]*Content, error) {
	if req.Kind != nil && !req.Kind.IsValid() {
		return nil, FieldError("kind", "must be story, media or event")
	}

	filter := ContentFilter{
		Kind:             req.Kind,
		TenantID:         req.TenantID,
		ApprovalState:    req.ApprovalState,
		PublicationState: req.PublicationState,
		Featured:         req.Featured,
		Query:            strings.TrimSpace(req.Query),
		Limit:            clampLimit(req.Limit),
		Offset:           req.Offset,
	}

	if PublicOnly(actor) {
		approved, published := ApprovalApproved, PublicationPublished
		filter.ApprovalState = &approved
		filter.PublicationState = &published
	} else {
		if err := RequireAnyAdmin(actor); err != nil {
			return nil, err
		}
		filter.TenantID = ScopeTenantFilter(actor, req.TenantID)
	}

	items, err := s.repository.ListContent(ctx, filter)
	if err != nil {
		return nil, storeError("content", "list", err)
	}
	return items, nil
}

func (s *service) ApproveContent(ctx context.Context, actor *Actor, kind Kind, id uuid.UUID) (*Content, error) {
	return s.decideContent(ctx, actor, kind, id, TransitionApprove)
}

func (s *service) RejectContent(ctx context.Context, actor *Actor, kind Kind, id uuid.UUID) (*Content, error) {
	return s.decideContent(ctx, actor, kind, id, TransitionReject)
}

func (s *service) decideContent(ctx context.Context, actor *Actor, kind Kind, id uuid.UUID, t Transition) (*Content, error) {
	if err := AuthorizeTransition(actor, t, uuid.Nil); err != nil {
		return nil, err
	}

	content, err := s.loadContent(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	next, err := ApplyDecision(content.ApprovalState, t)
	if err != nil {
		return nil, err
	}
	if next == content.ApprovalState {
		return content, nil
	}

	content.ApprovalState = next
	content.UpdatedAt = s.clock()
	if err := s.repository.UpdateContent(ctx, content); err != nil {
		return nil, storeError(kind.Label(), "update", err)
	}

	s.logger.Info("Content moderated",
		"content_id", id.String(),
		"kind", kind,
		"approval_state", next,
		"actor_id", actor.ID.String())
	return content, nil
}

func (s *service) SetContentFeatured(ctx context.Context, actor *Actor, kind Kind, id uuid.UUID, featured bool) (*Content, error) {
	if err := AuthorizeTransition(actor, TransitionFeature, uuid.Nil); err != nil {
		return nil, err
	}

	content, err := s.loadContent(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if content.IsFeatured == featured {
		return content, nil
	}

	content.IsFeatured = featured
	content.UpdatedAt = s.clock()
	if err := s.repository.UpdateContent(ctx, content); err != nil {
		return nil, storeError(kind.Label(), "update", err)
	}
	return content, nil
}

// Media file operations

func (s *service) UploadMedia(ctx context.Context, actor *Actor, id uuid.UUID, upload MediaUpload) (*Content, error) {
	if err := RequireAnyAdmin(actor); err != nil {
		return nil, err
	}
	if s.blobStore == nil {
		return nil, InternalError("upload media", fmt.Errorf("no blob store configured"))
	}
	if upload.Reader == nil {
		return nil, FieldError("file", "is required")
	}

	content, err := s.loadContent(ctx, KindMedia, id)
	if err != nil {
		return nil, err
	}
	if err := AuthorizeTransition(actor, TransitionEdit, content.OwnerTenantID); err != nil {
		return nil, err
	}

	mimeType := upload.MimeType
	if mimeType == "" {
		mimeType = content.MimeType
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	objectKey := mediaObjectKey(content)
	counter := &countingReader{r: upload.Reader}
	if err := s.blobStore.Upload(ctx, objectKey, mimeType, counter); err != nil {
		return nil, InternalError("upload media", err)
	}

	content.ObjectKey = objectKey
	content.MimeType = mimeType
	content.FileSize = counter.n
	if name := SanitizeFileName(upload.FileName); name != "" {
		content.FileName = name
	}
	content.UpdatedAt = s.clock()

	if err := s.repository.UpdateContent(ctx, content); err != nil {
		return nil, storeError("media", "update", err)
	}

	s.logger.Info("Media uploaded", "content_id", id.String(), "size", content.FileSize, "mime_type", mimeType)
	return content, nil
}

func (s *service) OpenMedia(ctx context.Context, actor *Actor, id uuid.UUID) (*Content, io.ReadCloser, error) {
	content, err := s.GetContent(ctx, actor, KindMedia, id)
	if err != nil {
		return nil, nil, err
	}
	if content.ObjectKey == "" || s.blobStore == nil {
		return nil, nil, NotFoundError("media file")
	}

	reader, err := s.blobStore.Download(ctx, content.ObjectKey)
	if err != nil {
		return nil, nil, storeError("media file", "download", err)
	}
	return content, reader, nil
}

func (s *service) MediaURL(ctx context.Context, actor *Actor, id uuid.UUID) (string, error) {
	content, err := s.GetContent(ctx, actor, KindMedia, id)
	if err != nil {
		return "", err
	}
	if content.ObjectKey == "" || s.blobStore == nil {
		return "", NotFoundError("media file")
	}

	url, err := s.blobStore.GetDownloadURL(ctx, content.ObjectKey, content.FileName)
	if err != nil {
		return "", InternalError("create media download url", err)
	}
	return url, nil
}

// loadContent fetches a content row and hides rows of a different kind.
func (s *service) loadContent(ctx context.Context, kind Kind, id uuid.UUID) (*Content, error) {
	if !kind.IsValid() {
		return nil, NotFoundError("content")
	}
	content, err := s.repository.GetContent(ctx, id)
	if err != nil {
		return nil, storeError(kind.Label(), "load", err)
	}
	if content.Kind != kind {
		return nil, NotFoundError(kind.Label())
	}
	return content, nil
}

func (s *service) deleteBlob(ctx context.Context, content *Content) {
	if s.blobStore == nil || content.ObjectKey == "" {
		return
	}
	if err := s.blobStore.Delete(ctx, content.ObjectKey); err != nil {
		s.logger.Warn("Failed to delete media blob", "content_id", content.ID.String(), "err", err)
	}
}

func mediaObjectKey(content *Content) string {
	return fmt.Sprintf("media/%s/%s", content.OwnerTenantID, content.ID)
}

func validateSchedule(startsAt, endsAt *time.Time) error {
	if startsAt != nil && endsAt != nil && !endsAt.After(*startsAt) {
		return FieldError("ends_at", "must be after starts_at")
	}
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

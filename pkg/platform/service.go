package platform

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// Service is the authorization-aware entry point to the platform. Every
// method that acts on behalf of someone takes the actor explicitly; a nil
// actor means an anonymous caller.
type Service interface {
	// Session operations
	Login(ctx context.Context, req LoginRequest) (string, *Actor, error)
	Logout(ctx context.Context, token string) error
	ResolveSession(ctx context.Context, token string) (*Actor, error)

	// Account operations
	CreateAccount(ctx context.Context, actor *Actor, req CreateAccountRequest) (*Account, error)
	ListAccounts(ctx context.Context, actor *Actor, tenantID *uuid.UUID) ([]*Account, error)

	// Tenant operations
	CreateTenant(ctx context.Context, actor *Actor, req CreateTenantRequest) (*Tenant, error)
	GetTenant(ctx context.Context, actor *Actor, id uuid.UUID) (*Tenant, error)
	UpdateTenant(ctx context.Context, actor *Actor, id uuid.UUID, req UpdateTenantRequest) (*Tenant, error)
	DeleteTenant(ctx context.Context, actor *Actor, id uuid.UUID) error
	ListTenants(ctx context.Context, actor *Actor, req ListTenantsRequest) ([]*Tenant, error)
	ApproveTenant(ctx context.Context, actor *Actor, id uuid.UUID) (*Tenant, error)
	RejectTenant(ctx context.Context, actor *Actor, id uuid.UUID) (*Tenant, error)
	SetTenantActive(ctx context.Context, actor *Actor, id uuid.UUID, active bool) (*Tenant, error)

	// Content operations (stories, media, events)
	CreateContent(ctx context.Context, actor *Actor, req CreateContentRequest) (*Content, error)
	GetContent(ctx context.Context, actor *Actor, kind Kind, id uuid.UUID) (*Content, error)
	UpdateContent(ctx context.Context, actor *Actor, kind Kind, id uuid.UUID, req UpdateContentRequest) (*Content, error)
	DeleteContent(ctx context.Context, actor *Actor, kind Kind, id uuid.UUID) error
	ListContent(ctx context.Context, actor *Actor, req ListContentRequest) ([]*Content, error)
	ApproveContent(ctx context.Context, actor *Actor, kind Kind, id uuid.UUID) (*Content, error)
	RejectContent(ctx context.Context, actor *Actor, kind Kind, id uuid.UUID) (*Content, error)
	SetContentFeatured(ctx context.Context, actor *Actor, kind Kind, id uuid.UUID, featured bool) (*Content, error)

	// Media file operations
	UploadMedia(ctx context.Context, actor *Actor, id uuid.UUID, upload MediaUpload) (*Content, error)
	OpenMedia(ctx context.Context, actor *Actor, id uuid.UUID) (*Content, io.ReadCloser, error)
	// MediaURL returns a direct download URL when the blob store offers one,
	// or "" when the file has to be streamed through OpenMedia.
	MediaURL(ctx context.Context, actor *Actor, id uuid.UUID) (string, error)

	// Message operations
	SubmitMessage(ctx context.Context, req SubmitMessageRequest) (*Message, error)
	GetMessage(ctx context.Context, actor *Actor, id uuid.UUID) (*Message, error)
	ListMessages(ctx context.Context, actor *Actor, req ListMessagesRequest) ([]*Message, error)
	ReplyMessage(ctx context.Context, actor *Actor, id uuid.UUID, req ReplyMessageRequest) (*Message, error)
	DeleteMessage(ctx context.Context, actor *Actor, id uuid.UUID) error
	ApproveMessage(ctx context.Context, actor *Actor, id uuid.UUID) (*Message, error)
	RejectMessage(ctx context.Context, actor *Actor, id uuid.UUID) (*Message, error)
	SetMessageActive(ctx context.Context, actor *Actor, id uuid.UUID, active bool) (*Message, error)
}

// MediaUpload describes a media file being attached to a media item.
type MediaUpload struct {
	MimeType string
	FileName string
	Reader   io.Reader
}

package platform

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// Repository defines persistence for every resource kind. Implementations
// return ErrNotFound and ErrConflict (possibly wrapped) for missing and
// duplicate records.
type Repository interface {
	// Tenant operations
	CreateTenant(ctx context.Context, tenant *Tenant) error
	GetTenant(ctx context.Context, id uuid.UUID) (*Tenant, error)
	UpdateTenant(ctx context.Context, tenant *Tenant) error
	ListTenants(ctx context.Context, filter TenantFilter) ([]*Tenant, error)
	// DeleteTenant removes the tenant and everything it owns, and clears
	// the tenant reference of any account attached to it.
	DeleteTenant(ctx context.Context, id uuid.UUID) error

	// Account operations
	CreateAccount(ctx context.Context, account *Account) error
	GetAccount(ctx context.Context, id uuid.UUID) (*Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*Account, error)
	ListAccounts(ctx context.Context, filter AccountFilter) ([]*Account, error)

	// Content operations
	CreateContent(ctx context.Context, content *Content) error
	GetContent(ctx context.Context, id uuid.UUID) (*Content, error)
	UpdateContent(ctx context.Context, content *Content) error
	DeleteContent(ctx context.Context, id uuid.UUID) error
	ListContent(ctx context.Context, filter ContentFilter) ([]*Content, error)

	// Message operations
	CreateMessage(ctx context.Context, message *Message) error
	GetMessage(ctx context.Context, id uuid.UUID) (*Message, error)
	UpdateMessage(ctx context.Context, message *Message) error
	DeleteMessage(ctx context.Context, id uuid.UUID) error
	ListMessages(ctx context.Context, filter MessageFilter) ([]*Message, error)
}

// SessionStore maps opaque tokens to actors. Resolve returns (nil, nil)
// for unknown or expired tokens.
type SessionStore interface {
	Resolve(ctx context.Context, token string) (*Actor, error)
	Create(ctx context.Context, actor *Actor) (string, error)
	Destroy(ctx context.Context, token string) error
}

// BlobStore holds media file bytes.
type BlobStore interface {
	// Upload stores the reader's content under objectKey
	Upload(ctx context.Context, objectKey, mimeType string, reader io.Reader) error

	// Download streams the content stored under objectKey
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete removes the object
	Delete(ctx context.Context, objectKey string) error

	// GetDownloadURL returns a direct URL, or "" when the backend serves bytes only
	GetDownloadURL(ctx context.Context, objectKey, fileName string) (string, error)
}

// Mailer delivers outbound email.
type Mailer interface {
	Send(ctx context.Context, mail Mail) error
}

// Mail is a single plain-text email.
type Mail struct {
	To      string
	ReplyTo string
	Subject string
	Body    string
}

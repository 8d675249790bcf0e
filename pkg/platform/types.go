package platform

import (
	"time"

	"github.com/google/uuid"
)

// ApprovalState is the platform-controlled moderation status.
type ApprovalState string

const (
	ApprovalPending  ApprovalState = "pending"
	ApprovalApproved ApprovalState = "approved"
	ApprovalRejected ApprovalState = "rejected"
)

// IsValid reports whether s is a known approval state.
func (s ApprovalState) IsValid() bool {
	switch s {
	case ApprovalPending, ApprovalApproved, ApprovalRejected:
		return true
	}
	return false
}

// PublicationState is the tenant-controlled visibility toggle.
type PublicationState string

const (
	PublicationDraft     PublicationState = "draft"
	PublicationPublished PublicationState = "published"
)

// IsValid reports whether s is a known publication state.
func (s PublicationState) IsValid() bool {
	return s == PublicationDraft || s == PublicationPublished
}

// Kind distinguishes the tenant-published content resources.
type Kind string

const (
	KindStory Kind = "story"
	KindMedia Kind = "media"
	KindEvent Kind = "event"
)

// IsValid reports whether k is a known content kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindStory, KindMedia, KindEvent:
		return true
	}
	return false
}

// Label is the human-readable resource name used in error messages.
func (k Kind) Label() string {
	switch k {
	case KindStory:
		return "story"
	case KindMedia:
		return "media"
	case KindEvent:
		return "event"
	}
	return "content"
}

// Lifecycle holds the moderation and publication fields shared by every
// content kind. Approval and publication are independent axes.
type Lifecycle struct {
	ApprovalState    ApprovalState    `json:"approval_state"`
	PublicationState PublicationState `json:"publication_state"`
	PublishedAt      *time.Time       `json:"published_at,omitempty"`
	IsFeatured       bool             `json:"is_featured"`
}

// IsPublic reports whether the resource may be shown to anonymous callers.
func (l Lifecycle) IsPublic() bool {
	return l.ApprovalState == ApprovalApproved && l.PublicationState == PublicationPublished
}

// Tenant is an independent organization.
type Tenant struct {
	ID            uuid.UUID     `json:"id"`
	Name          string        `json:"name"`
	Slug          string        `json:"slug"`
	Description   string        `json:"description,omitempty"`
	ContactEmail  string        `json:"contact_email,omitempty"`
	ApprovalState ApprovalState `json:"approval_state"`
	Active        bool          `json:"active"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// IsPublic reports whether the tenant is visible to anonymous callers.
func (t *Tenant) IsPublic() bool {
	return t.ApprovalState == ApprovalApproved && t.Active
}

// Content is a story, media item, or event owned by a tenant.
//
// Media and event specific attributes are first-class optional fields; they
// stay empty for kinds that do not use them.
type Content struct {
	ID            uuid.UUID `json:"id"`
	Kind          Kind      `json:"kind"`
	OwnerTenantID uuid.UUID `json:"owner_tenant_id"`
	Title         string    `json:"title"`
	Summary       string    `json:"summary,omitempty"`
	Body          string    `json:"body,omitempty"`
	Lifecycle

	// Media
	MimeType  string `json:"mime_type,omitempty"`
	FileName  string `json:"file_name,omitempty"`
	FileSize  int64  `json:"file_size,omitempty"`
	ObjectKey string `json:"-"`

	// Event
	Location string     `json:"location,omitempty"`
	StartsAt *time.Time `json:"starts_at,omitempty"`
	EndsAt   *time.Time `json:"ends_at,omitempty"`

	CreatedBy uuid.UUID `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is a contact-form submission to a tenant, or a reply to one.
// Replies carry ParentID and no owner; ownership resolves through the parent.
type Message struct {
	ID            uuid.UUID     `json:"id"`
	OwnerTenantID *uuid.UUID    `json:"owner_tenant_id,omitempty"`
	ParentID      *uuid.UUID    `json:"parent_id,omitempty"`
	SenderName    string        `json:"sender_name"`
	SenderEmail   string        `json:"sender_email"`
	Subject       string        `json:"subject,omitempty"`
	Body          string        `json:"body"`
	ApprovalState ApprovalState `json:"approval_state"`
	Active        bool          `json:"active"`
	CreatedBy     *uuid.UUID    `json:"created_by,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Account is a persisted administrator login.
type Account struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	TenantID     *uuid.UUID `json:"tenant_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Actor returns the session identity for the account.
func (a *Account) Actor() *Actor {
	actor := &Actor{ID: a.ID, Email: a.Email, Role: a.Role}
	if a.TenantID != nil {
		tid := *a.TenantID
		actor.TenantID = &tid
	}
	return actor
}

// TenantFilter narrows tenant listings.
type TenantFilter struct {
	ApprovalState *ApprovalState
	Active        *bool
	IDs           []uuid.UUID
	Limit         int
	Offset        int
}

// ContentFilter narrows content listings. A nil field means "any".
type ContentFilter struct {
	Kind             *Kind
	TenantID         *uuid.UUID
	ApprovalState    *ApprovalState
	PublicationState *PublicationState
	Featured         *bool
	Query            string
	Limit            int
	Offset           int
}

// MessageFilter narrows message listings.
type MessageFilter struct {
	TenantID      *uuid.UUID
	ParentID      *uuid.UUID
	ApprovalState *ApprovalState
	Limit         int
	Offset        int
}

// AccountFilter narrows account listings.
type AccountFilter struct {
	TenantID *uuid.UUID
	Role     *Role
}

package platform

import (
	"time"

	"github.com/google/uuid"
)

// Edit requests carry no approval or featured fields. Those only change
// through moderation calls.

// LoginRequest contains credentials for Login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// CreateAccountRequest contains parameters for creating an administrator account
type CreateAccountRequest struct {
	Email    string     `json:"email" validate:"required,email,max=320"`
	Password string     `json:"password" validate:"required,min=8,max=128"`
	Role     Role       `json:"role" validate:"required,oneof=tenant_admin platform_admin"`
	TenantID *uuid.UUID `json:"tenant_id,omitempty"`
}

// CreateTenantRequest contains parameters for creating a tenant
type CreateTenantRequest struct {
	Name         string `json:"name" validate:"required,max=200"`
	Slug         string `json:"slug" validate:"required,max=100"`
	Description  string `json:"description" validate:"max=5000"`
	ContactEmail string `json:"contact_email" validate:"omitempty,email"`
}

// UpdateTenantRequest contains the editable tenant fields
type UpdateTenantRequest struct {
	Name         *string `json:"name" validate:"omitempty,max=200"`
	Description  *string `json:"description" validate:"omitempty,max=5000"`
	ContactEmail *string `json:"contact_email" validate:"omitempty,email"`
}

// ListTenantsRequest contains parameters for listing tenants
type ListTenantsRequest struct {
	ApprovalState *ApprovalState
	Active        *bool
	Limit         int
	Offset        int
}

// CreateContentRequest contains parameters for creating a story, media item or event.
// TenantID is required for platform admins; tenant admins always create for
// their own tenant.
type CreateContentRequest struct {
	Kind             Kind             `json:"-"`
	TenantID         *uuid.UUID       `json:"tenant_id,omitempty"`
	Title            string           `json:"title" validate:"required,max=300"`
	Summary          string           `json:"summary" validate:"max=1000"`
	Body             string           `json:"body" validate:"max=100000"`
	PublicationState PublicationState `json:"publication_state" validate:"omitempty,oneof=draft published"`
	MimeType         string           `json:"mime_type" validate:"max=255"`
	FileName         string           `json:"file_name" validate:"max=255"`
	Location         string           `json:"location" validate:"max=500"`
	StartsAt         *time.Time       `json:"starts_at,omitempty"`
	EndsAt           *time.Time       `json:"ends_at,omitempty"`
}

// UpdateContentRequest contains the editable content fields. Nil means unchanged.
type UpdateContentRequest struct {
	Title            *string           `json:"title" validate:"omitempty,max=300"`
	Summary          *string           `json:"summary" validate:"omitempty,max=1000"`
	Body             *string           `json:"body" validate:"omitempty,max=100000"`
	PublicationState *PublicationState `json:"publication_state" validate:"omitempty,oneof=draft published"`
	FileName         *string           `json:"file_name" validate:"omitempty,max=255"`
	Location         *string           `json:"location" validate:"omitempty,max=500"`
	StartsAt         *time.Time        `json:"starts_at,omitempty"`
	EndsAt           *time.Time        `json:"ends_at,omitempty"`
}

// ListContentRequest contains parameters for listing content
type ListContentRequest struct {
	Kind             *Kind
	TenantID         *uuid.UUID
	ApprovalState    *ApprovalState
	PublicationState *PublicationState
	Featured         *bool
	Query            string
	Limit            int
	Offset           int
}

// SubmitMessageRequest contains a public contact-form submission
type SubmitMessageRequest struct {
	TenantID    uuid.UUID `json:"-"`
	SenderName  string    `json:"sender_name" validate:"required,max=200"`
	SenderEmail string    `json:"sender_email" validate:"required,email,max=320"`
	Subject     string    `json:"subject" validate:"max=300"`
	Body        string    `json:"body" validate:"required,max=5000"`
}

// ReplyMessageRequest contains an administrator's reply to a message
type ReplyMessageRequest struct {
	Subject string `json:"subject" validate:"max=300"`
	Body    string `json:"body" validate:"required,max=5000"`
}

// ListMessagesRequest contains parameters for listing messages
type ListMessagesRequest struct {
	TenantID      *uuid.UUID
	ParentID      *uuid.UUID
	ApprovalState *ApprovalState
	Limit         int
	Offset        int
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

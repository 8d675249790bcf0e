package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-platform/pkg/platform"
)

// Repository implements platform.Repository using in-memory storage
type Repository struct {
	mu             sync.RWMutex
	tenants        map[uuid.UUID]*platform.Tenant
	accounts       map[uuid.UUID]*platform.Account
	contents       map[uuid.UUID]*platform.Content
	messages       map[uuid.UUID]*platform.Message
	tenantsBySlug  map[string]uuid.UUID
	accountsByMail map[string]uuid.UUID
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		tenants:        make(map[uuid.UUID]*platform.Tenant),
		accounts:       make(map[uuid.UUID]*platform.Account),
		contents:       make(map[uuid.UUID]*platform.Content),
		messages:       make(map[uuid.UUID]*platform.Message),
		tenantsBySlug:  make(map[string]uuid.UUID),
		accountsByMail: make(map[string]uuid.UUID),
	}
}

var _ platform.Repository = (*Repository)(nil)

// Tenant operations

func (r *Repository) CreateTenant(ctx context.Context, tenant *platform.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tenants[tenant.ID]; exists {
		return platform.ErrConflict
	}
	if _, exists := r.tenantsBySlug[tenant.Slug]; exists {
		return platform.ErrConflict
	}

	tenantCopy := *tenant
	r.tenants[tenant.ID] = &tenantCopy
	r.tenantsBySlug[tenant.Slug] = tenant.ID
	return nil
}

func (r *Repository) GetTenant(ctx context.Context, id uuid.UUID) (*platform.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tenant, exists := r.tenants[id]
	if !exists {
		return nil, platform.ErrNotFound
	}
	tenantCopy := *tenant
	return &tenantCopy, nil
}

func (r *Repository) UpdateTenant(ctx context.Context, tenant *platform.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.tenants[tenant.ID]
	if !exists {
		return platform.ErrNotFound
	}
	if existing.Slug != tenant.Slug {
		if _, taken := r.tenantsBySlug[tenant.Slug]; taken {
			return platform.ErrConflict
		}
		delete(r.tenantsBySlug, existing.Slug)
		r.tenantsBySlug[tenant.Slug] = tenant.ID
	}

	tenantCopy := *tenant
	r.tenants[tenant.ID] = &tenantCopy
	return nil
}

func (r *Repository) ListTenants(ctx context.Context, filter platform.TenantFilter) ([]*platform.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids map[uuid.UUID]struct{}
	if filter.IDs != nil {
		ids = make(map[uuid.UUID]struct{}, len(filter.IDs))
		for _, id := range filter.IDs {
			ids[id] = struct{}{}
		}
	}

	var result []*platform.Tenant
	for _, tenant := range r.tenants {
		if ids != nil {
			if _, ok := ids[tenant.ID]; !ok {
				continue
			}
		}
		if filter.ApprovalState != nil && tenant.ApprovalState != *filter.ApprovalState {
			continue
		}
		if filter.Active != nil && tenant.Active != *filter.Active {
			continue
		}
		tenantCopy := *tenant
		result = append(result, &tenantCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return paginate(result, filter.Limit, filter.Offset), nil
}

// DeleteTenant removes the tenant with its content and messages, and detaches
// any account attached to it.
func (r *Repository) DeleteTenant(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tenant, exists := r.tenants[id]
	if !exists {
		return platform.ErrNotFound
	}

	now := time.Now().UTC()
	for _, account := range r.accounts {
		if account.TenantID != nil && *account.TenantID == id {
			account.TenantID = nil
			account.UpdatedAt = now
		}
	}
	for cid, content := range r.contents {
		if content.OwnerTenantID == id {
			delete(r.contents, cid)
		}
	}
	for mid, message := range r.messages {
		if message.OwnerTenantID != nil && *message.OwnerTenantID == id {
			r.deleteMessageLocked(mid)
		}
	}

	delete(r.tenantsBySlug, tenant.Slug)
	delete(r.tenants, id)
	return nil
}

// Account operations

func (r *Repository) CreateAccount(ctx context.Context, account *platform.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.accounts[account.ID]; exists {
		return platform.ErrConflict
	}
	if _, exists := r.accountsByMail[account.Email]; exists {
		return platform.ErrConflict
	}

	r.accounts[account.ID] = cloneAccount(account)
	r.accountsByMail[account.Email] = account.ID
	return nil
}

func (r *Repository) GetAccount(ctx context.Context, id uuid.UUID) (*platform.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, exists := r.accounts[id]
	if !exists {
		return nil, platform.ErrNotFound
	}
	return cloneAccount(account), nil
}

func (r *Repository) GetAccountByEmail(ctx context.Context, email string) (*platform.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.accountsByMail[email]
	if !exists {
		return nil, platform.ErrNotFound
	}
	return cloneAccount(r.accounts[id]), nil
}

func (r *Repository) ListAccounts(ctx context.Context, filter platform.AccountFilter) ([]*platform.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*platform.Account
	for _, account := range r.accounts {
		if filter.TenantID != nil && (account.TenantID == nil || *account.TenantID != *filter.TenantID) {
			continue
		}
		if filter.Role != nil && account.Role != *filter.Role {
			continue
		}
		result = append(result, cloneAccount(account))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Email < result[j].Email
	})
	return result, nil
}

// Content operations

func (r *Repository) CreateContent(ctx context.Context, content *platform.Content) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.contents[content.ID]; exists {
		return platform.ErrConflict
	}
	if _, exists := r.tenants[content.OwnerTenantID]; !exists {
		return platform.ErrNotFound
	}
	r.contents[content.ID] = cloneContent(content)
	return nil
}

func (r *Repository) GetContent(ctx context.Context, id uuid.UUID) (*platform.Content, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	content, exists := r.contents[id]
	if !exists {
		return nil, platform.ErrNotFound
	}
	return cloneContent(content), nil
}

func (r *Repository) UpdateContent(ctx context.Context, content *platform.Content) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.contents[content.ID]; !exists {
		return platform.ErrNotFound
	}
	r.contents[content.ID] = cloneContent(content)
	return nil
}

func (r *Repository) DeleteContent(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.contents[id]; !exists {
		return platform.ErrNotFound
	}
	delete(r.contents, id)
	return nil
}

func (r *Repository) ListContent(ctx context.Context, filter platform.ContentFilter) ([]*platform.Content, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query := strings.ToLower(filter.Query)

	var result []*platform.Content
	for _, content := range r.contents {
		if filter.Kind != nil && content.Kind != *filter.Kind {
			continue
		}
		if filter.TenantID != nil && content.OwnerTenantID != *filter.TenantID {
			continue
		}
		if filter.ApprovalState != nil && content.ApprovalState != *filter.ApprovalState {
			continue
		}
		if filter.PublicationState != nil && content.PublicationState != *filter.PublicationState {
			continue
		}
		if filter.Featured != nil && content.IsFeatured != *filter.Featured {
			continue
		}
		if query != "" && !matches(content, query) {
			continue
		}
		result = append(result, cloneContent(content))
	}

	// Sort by created_at descending
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return paginate(result, filter.Limit, filter.Offset), nil
}

func matches(content *platform.Content, query string) bool {
	return strings.Contains(strings.ToLower(content.Title), query) ||
		strings.Contains(strings.ToLower(content.Summary), query) ||
		strings.Contains(strings.ToLower(content.Body), query)
}

// Message operations

func (r *Repository) CreateMessage(ctx context.Context, message *platform.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.messages[message.ID]; exists {
		return platform.ErrConflict
	}
	if message.ParentID != nil {
		if _, exists := r.messages[*message.ParentID]; !exists {
			return platform.ErrNotFound
		}
	}
	r.messages[message.ID] = cloneMessage(message)
	return nil
}

func (r *Repository) GetMessage(ctx context.Context, id uuid.UUID) (*platform.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	message, exists := r.messages[id]
	if !exists {
		return nil, platform.ErrNotFound
	}
	return cloneMessage(message), nil
}

func (r *Repository) UpdateMessage(ctx context.Context, message *platform.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.messages[message.ID]; !exists {
		return platform.ErrNotFound
	}
	r.messages[message.ID] = cloneMessage(message)
	return nil
}

// DeleteMessage removes the message and its replies.
func (r *Repository) DeleteMessage(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.messages[id]; !exists {
		return platform.ErrNotFound
	}
	r.deleteMessageLocked(id)
	return nil
}

func (r *Repository) deleteMessageLocked(id uuid.UUID) {
	delete(r.messages, id)
	for cid, child := range r.messages {
		if child.ParentID != nil && *child.ParentID == id {
			r.deleteMessageLocked(cid)
		}
	}
}

func (r *Repository) ListMessages(ctx context.Context, filter platform.MessageFilter) ([]*platform.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*platform.Message
	for _, message := range r.messages {
		if filter.TenantID != nil && (message.OwnerTenantID == nil || *message.OwnerTenantID != *filter.TenantID) {
			continue
		}
		if filter.ParentID != nil && (message.ParentID == nil || *message.ParentID != *filter.ParentID) {
			continue
		}
		if filter.ApprovalState != nil && message.ApprovalState != *filter.ApprovalState {
			continue
		}
		result = append(result, cloneMessage(message))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return paginate(result, filter.Limit, filter.Offset), nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

func cloneAccount(a *platform.Account) *platform.Account {
	c := *a
	c.TenantID = cloneUUID(a.TenantID)
	return &c
}

func cloneContent(content *platform.Content) *platform.Content {
	c := *content
	c.PublishedAt = cloneTime(content.PublishedAt)
	c.StartsAt = cloneTime(content.StartsAt)
	c.EndsAt = cloneTime(content.EndsAt)
	return &c
}

func cloneMessage(m *platform.Message) *platform.Message {
	c := *m
	c.OwnerTenantID = cloneUUID(m.OwnerTenantID)
	c.ParentID = cloneUUID(m.ParentID)
	c.CreatedBy = cloneUUID(m.CreatedBy)
	return &c
}

func cloneUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

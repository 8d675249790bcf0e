package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tendant/simple-platform/pkg/platform"
	"github.com/tendant/simple-platform/pkg/platform/respond"
)

// TenantHandler handles tenant administration
type TenantHandler struct {
	service   platform.Service
	formatter *respond.Formatter
}

// NewTenantHandler creates a new tenant handler
func NewTenantHandler(service platform.Service, formatter *respond.Formatter) *TenantHandler {
	return &TenantHandler{service: service, formatter: formatter}
}

// Routes returns the routes for tenants
func (h *TenantHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListTenants)
	r.Post("/", h.CreateTenant)
	r.Get("/{id}", h.GetTenant)
	r.Put("/{id}", h.UpdateTenant)
	r.Delete("/{id}", h.DeleteTenant)

	// Moderation
	r.Post("/{id}/approve", h.ApproveTenant)
	r.Post("/{id}/reject", h.RejectTenant)
	r.Post("/{id}/activate", h.setActive(true))
	r.Post("/{id}/deactivate", h.setActive(false))

	return r
}

// ListTenants lists tenants visible to the actor
func (h *TenantHandler) ListTenants(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	req := platform.ListTenantsRequest{
		ApprovalState: q.approval("approval_state"),
		Active:        q.boolean("active"),
		Limit:         q.integer("limit"),
		Offset:        q.integer("offset"),
	}
	if err := q.err(); err != nil {
		h.formatter.Error(w, r, err)
		return
	}

	tenants, err := h.service.ListTenants(r.Context(), platform.ActorFromContext(r.Context()), req)
	if err != nil {
		h.formatter.Error(w, r, err)
		return
	}
	writeList(w, r, tenants)
}

// CreateTenant creates a pending tenant
func (h *TenantHandler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	var req platform.CreateTenantRequest
	if err := decodeJSON(r, &req); err != nil {
		h.formatter.Error(w, r, err)
		return
	}

	tenant, err := h.service.CreateTenant(r.Context(), platform.ActorFromContext(r.Context()), req)
	if err != nil {
		h.formatter.Error(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusCreated, tenant)
}

// GetTenant returns a tenant the actor may manage
func (h *TenantHandler) GetTenant(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.formatter.Error(w, r, err)
		return
	}

	tenant, err := h.service.GetTenant(r.Context(), platform.ActorFromContext(r.Context()), id)
	if err != nil {
		h.formatter.Error(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, tenant)
}

// UpdateTenant edits a tenant's profile
func (h *TenantHandler) UpdateTenant(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.formatter.Error(w, r, err)
		return
	}

	var req platform.UpdateTenantRequest
	if err := decodeJSON(r, &req); err != nil {
		h.formatter.Error(w, r, err)
		return
	}

	tenant, err := h.service.UpdateTenant(r.Context(), platform.ActorFromContext(r.Context()), id, req)
	if err != nil {
		h.formatter.Error(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, tenant)
}

// DeleteTenant removes a tenant and everything it owns
func (h *TenantHandler) DeleteTenant(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.formatter.Error(w, r, err)
		return
	}

	if err := h.service.DeleteTenant(r.Context(), platform.ActorFromContext(r.Context()), id); err != nil {
		h.formatter.Error(w, r, err)
		return
	}
	respond.NoContent(w, r)
}

// ApproveTenant approves a tenant
func (h *TenantHandler) ApproveTenant(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, h.service.ApproveTenant)
}

// RejectTenant rejects a tenant
func (h *TenantHandler) RejectTenant(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, h.service.RejectTenant)
}

func (h *TenantHandler) setActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.moderate(w, r, func(ctx context.Context, actor *platform.Actor, id uuid.UUID) (*platform.Tenant, error) {
			return h.service.SetTenantActive(ctx, actor, id, active)
		})
	}
}

func (h *TenantHandler) moderate(w http.ResponseWriter, r *http.Request, op func(context.Context, *platform.Actor, uuid.UUID) (*platform.Tenant, error)) {
	id, err := idParam(r)
	if err != nil {
		h.formatter.Error(w, r, err)
		return
	}

	tenant, err := op(r.Context(), platform.ActorFromContext(r.Context()), id)
	if err != nil {
		h.formatter.Error(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, tenant)
}

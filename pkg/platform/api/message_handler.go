package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tendant/simple-platform/pkg/platform"
	"github.com/tendant/simple-platform/pkg/platform/ratelimit"
	"github.com/tendant/simple-platform/pkg/platform/respond"
)

// MessageHandler handles the contact-form inbox of each tenant
type MessageHandler struct {
	service   platform.Service
	limiter   *ratelimit.Limiter
	formatter *respond.Formatter
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(service platform.Service, limiter *ratelimit.Limiter, formatter *respond.Formatter) *MessageHandler {
	return &MessageHandler{service: service, limiter: limiter, formatter: formatter}
}

// Routes returns the routes for messages
func (h *MessageHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListMessages)
	r.Get("/{id}", h.GetMessage)
	r.Delete("/{id}", h.DeleteMessage)
	r.With(RateLimit(h.limiter, ratelimit.CategoryEmail, h.formatter)).Post("/{id}/reply", h.ReplyMessage)

	// Moderation
	r.Post("/{id}/approve", h.ApproveMessage)
	r.Post("/{id}/reject", h.RejectMessage)
	r.Post("/{id}/activate", h.setActive(true))
	r.Post("/{id}/deactivate", h.setActive(false))

	return r
}

// ListMessages lists messages of the actor's tenant
func (h *MessageHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	req := platform.ListMessagesRequest{
		TenantID:      q.uuid("tenant_id"),
		ParentID:      q.uuid("parent_id"),
		ApprovalState: q.approval("approval_state"),
		Limit:         q.integer("limit"),
		Offset:        q.integer("offset"),
	}
	if err := q.err(); err != nil {
		h.formatter.Error(w, r, err)
		return
	}

	messages, err := h.service.ListMessages(r.Context(), platform.ActorFromContext(r.Context()), req)
	if err != nil {
		h.formatter.Error(w, r, err)
		return
	}
	writeList(w, r, messages)
}

// GetMessage returns one message
func (h *MessageHandler) GetMessage(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, http.StatusOK, h.service.GetMessage)
}

// DeleteMessage removes a message and its replies
func (h *MessageHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.formatter.Error(w, r, err)
		return
	}

	if err := h.service.DeleteMessage(r.Context(), platform.ActorFromContext(r.Context()), id); err != nil {
		h.formatter.Error(w, r, err)
		return
	}
	respond.NoContent(w, r)
}

// ReplyMessage records a reply and emails it to the original sender
func (h *MessageHandler) ReplyMessage(w http.ResponseWriter, r *http.Request) {
	var req platform.ReplyMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		h.formatter.Error(w, r, err)
		return
	}
	h.withID(w, r, http.StatusCreated, func(ctx context.Context, actor *platform.Actor, id uuid.UUID) (*platform.Message, error) {
		return h.service.ReplyMessage(ctx, actor, id, req)
	})
}

// ApproveMessage approves a message
func (h *MessageHandler) ApproveMessage(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, http.StatusOK, h.service.ApproveMessage)
}

// RejectMessage rejects a message
func (h *MessageHandler) RejectMessage(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, http.StatusOK, h.service.RejectMessage)
}

func (h *MessageHandler) setActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.withID(w, r, http.StatusOK, func(ctx context.Context, actor *platform.Actor, id uuid.UUID) (*platform.Message, error) {
			return h.service.SetMessageActive(ctx, actor, id, active)
		})
	}
}

func (h *MessageHandler) withID(w http.ResponseWriter, r *http.Request, status int, op func(context.Context, *platform.Actor, uuid.UUID) (*platform.Message, error)) {
	id, err := idParam(r)
	if err != nil {
		h.formatter.Error(w, r, err)
		return
	}

	message, err := op(r.Context(), platform.ActorFromContext(r.Context()), id)
	if err != nil {
		h.formatter.Error(w, r, err)
		return
	}
	respond.JSON(w, r, status, message)
}

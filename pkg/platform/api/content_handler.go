package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tendant/simple-platform/pkg/platform"
	"github.com/tendant/simple-platform/pkg/platform/respond"
)

// maxUploadBytes caps a single media file upload.
const maxUploadBytes = 50 << 20

// ContentHandler handles administration of stories, media and events. The
// kind comes from the {kind} path segment of the parent router.
type ContentHandler struct {
	service   platform.Service
	formatter *respond.Formatter
}

// NewContentHandler creates a new content handler
func NewContentHandler(service platform.Service, formatter *respond.Formatter) *ContentHandler {
	return &ContentHandler{service: service, formatter: formatter}
}

// Routes returns the routes for one content kind
func (h *ContentHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListContent)
	r.Post("/", h.CreateContent)
	r.Get("/{id}", h.GetContent)
	r.Put("/{id}", h.UpdateContent)
	r.Delete("/{id}", h.DeleteContent)

	// Moderation
	r.Post("/{id}/approve", h.ApproveContent)
	r.Post("/{id}/reject", h.RejectContent)
	r.Post("/{id}/feature", h.setFeatured(true))
	r.Post("/{id}/unfeature", h.setFeatured(false))

	// Media files
	r.Put("/{id}/file", h.UploadMedia)
	r.Get("/{id}/file", h.DownloadMedia)

	return r
}

// ListContent lists content of the routed kind
func (h *ContentHandler) ListContent(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		h.formatter.Error(w, r, err)
		return
	}

	q := newQuery(r)
	req := platform.ListContentRequest{
		Kind:             &kind,
		TenantID:         q.uuid("tenant_id"),
		ApprovalState:    q.approval("approval_state"),
		PublicationState: q.publication("publication_state"),
		Featured:         q.boolean("featured"),
		Query:            q.text("q"),
		Limit:            q.integer("limit"),
		Offset:           q.integer("offset"),
	}
	if err := q.err(); err != nil {
		h.formatter.Error(w, r, err)
		return
	}

	items, err := h.service.ListContent(r.Context(), platform.ActorFromContext(r.Context()), req)
	if err != nil {
		h.formatter.Error(w, r, err)
		return
	}
	writeList(w, r, items)
}

// CreateContent creates content owned by the actor's tenant
func (h *ContentHandler) CreateContent(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		h.formatter.Error(w, r, err)
		return
	}

	var req platform.CreateContentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.formatter.Error(w, r, err)
		return
	}
	req.Kind = kind

	content, err := h.service.CreateContent(r.Context(), platform.ActorFromContext(r.Context()), req)
	if err != nil {
		h.formatter.Error(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusCreated, content)
}

// GetContent returns content the actor may see
func (h *ContentHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	h.withKindAndID(w, r, func(ctx context.Context, actor *platform.Actor, kind platform.Kind, id uuid.UUID) (*platform.Content, error) {
		return h.service.GetContent(ctx, actor, kind, id)
	})
}

// UpdateContent edits content owned by the actor's tenant
func (h *ContentHandler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	var req platform.UpdateContentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.formatter.Error(w, r, err)
		return
	}
	h.withKindAndID(w, r, func(ctx context.Context, actor *platform.Actor, kind platform.Kind, id uuid.UUID) (*platform.Content, error) {
		return h.service.UpdateContent(ctx, actor, kind, id, req)
	})
}

// DeleteContent removes content owned by the actor's tenant
func (h *ContentHandler) DeleteContent(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		h.formatter.Error(w, r, err)
		return
	}
	id, err := idParam(r)
	if err != nil {
		h.formatter.Error(w, r, err)
		return
	}

	if err := h.service.DeleteContent(r.Context(), platform.ActorFromContext(r.Context()), kind, id); err != nil {
		h.formatter.Error(w, r, err)
		return
	}
	respond.NoContent(w, r)
}

// ApproveContent approves content for public display
func (h *ContentHandler) ApproveContent(w http.ResponseWriter, r *http.Request) {
	h.withKindAndID(w, r, h.service.ApproveContent)
}

// RejectContent rejects content
func (h *ContentHandler) RejectContent(w http.ResponseWriter, r *http.Request) {
	h.withKindAndID(w, r, h.service.RejectContent)
}

func (h *ContentHandler) setFeatured(featured bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.withKindAndID(w, r, func(ctx context.Context, actor *platform.Actor, kind platform.Kind, id uuid.UUID) (*platform.Content, error) {
			return h.service.SetContentFeatured(ctx, actor, kind, id, featured)
		})
	}
}

// UploadMedia stores the multipart "file" field as the media item's file
func (h *ContentHandler) UploadMedia(w http.ResponseWriter, r *http.Request) {
	id, err := mediaIDParam(r)
	if err != nil {
		h.formatter.Error(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		h.formatter.Error(w, r, platform.FieldError("file", "is required"))
		return
	}
	defer file.Close()

	content, err := h.service.UploadMedia(r.Context(), platform.ActorFromContext(r.Context()), id, platform.MediaUpload{
		MimeType: header.Header.Get("Content-Type"),
		FileName: header.Filename,
		Reader:   file,
	})
	if err != nil {
		h.formatter.Error(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, content)
}

// DownloadMedia streams a media file the actor may see, approved or not
func (h *ContentHandler) DownloadMedia(w http.ResponseWriter, r *http.Request) {
	id, err := mediaIDParam(r)
	if err != nil {
		h.formatter.Error(w, r, err)
		return
	}

	downloadMedia(w, r, h.service, platform.ActorFromContext(r.Context()), id, h.formatter)
}

func (h *ContentHandler) withKindAndID(w http.ResponseWriter, r *http.Request, op func(context.Context, *platform.Actor, platform.Kind, uuid.UUID) (*platform.Content, error)) {
	kind, err := kindParam(r)
	if err != nil {
		h.formatter.Error(w, r, err)
		return
	}
	id, err := idParam(r)
	if err != nil {
		h.formatter.Error(w, r, err)
		return
	}

	content, err := op(r.Context(), platform.ActorFromContext(r.Context()), kind, id)
	if err != nil {
		h.formatter.Error(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, content)
}

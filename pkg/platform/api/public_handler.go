package api

import (
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tendant/simple-platform/pkg/platform"
	"github.com/tendant/simple-platform/pkg/platform/ratelimit"
	"github.com/tendant/simple-platform/pkg/platform/respond"
	"github.com/tendant/simple-platform/pkg/platform/settings"
)

// PublicSettings is the part of the site settings anonymous callers see
type PublicSettings struct {
	SiteName           string `json:"site_name"`
	ContactEmail       string `json:"contact_email,omitempty"`
	MaintenanceMode    bool   `json:"maintenance_mode"`
	MaintenanceMessage string `json:"maintenance_message,omitempty"`
}

// PublicHandler serves anonymous reads and contact-form submissions. It
// always acts as an anonymous caller, even when a session is present, so
// only approved and published resources are returned.
type PublicHandler struct {
	service   platform.Service
	limiter   *ratelimit.Limiter
	settings  *settings.Store
	formatter *respond.Formatter
}

// NewPublicHandler creates a new public handler
func NewPublicHandler(service platform.Service, limiter *ratelimit.Limiter, store *settings.Store, formatter *respond.Formatter) *PublicHandler {
	return &PublicHandler{
		service:   service,
		limiter:   limiter,
		settings:  store,
		formatter: formatter,
	}
}

// Routes returns the public routes
func (h *PublicHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(RateLimit(h.limiter, ratelimit.CategoryPublicRead, h.formatter))

		r.Get("/settings", h.GetSettings)
		r.Get("/tenants", h.ListTenants)
		r.Get("/tenants/{id}", h.GetTenant)
		r.Get("/{kind}", h.ListContent)
		r.Get("/{kind}/{id}", h.GetContent)
		r.Get("/{kind}/{id}/file", h.DownloadMedia)
	})

	r.With(RateLimit(h.limiter, ratelimit.CategorySearch, h.formatter)).Get("/search", h.Search)
	r.With(RateLimit(h.limiter, ratelimit.CategoryContact, h.formatter)).Post("/tenants/{id}/messages", h.SubmitMessage)

	return r
}

// GetSettings returns the public site settings
func (h *PublicHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	var current settings.Settings
	if h.settings != nil {
		current = h.settings.Get()
	}
	respond.JSON(w, r, http.StatusOK, PublicSettings{
		SiteName:           current.SiteName,
		ContactEmail:       current.ContactEmail,
		MaintenanceMode:    current.MaintenanceMode,
		MaintenanceMessage: current.MaintenanceMessage,
	})
}

// ListTenants lists approved, active tenants
func (h *PublicHandler) ListTenants(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	req := platform.ListTenantsRequest{
		Limit:  q.integer("limit"),
		Offset: q.integer("offset"),
	}
	if err := q.err(); err != nil {
		h.formatter.Error(w, r, err)
		return
	}

	tenants, err := h.service.ListTenants(r.Context(), nil, req)
	if err != nil {
		h.formatter.Error(w, r, err)
		return
	}
	writeList(w, r, tenants)
}

// GetTenant returns a publicly visible tenant
func (h *PublicHandler) GetTenant(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.formatter.Error(w, r, err)
		return
	}

	tenant, err := h.service.GetTenant(r.Context(), nil, id)
	if err != nil {
		h.formatter.Error(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, tenant)
}

// ListContent lists public stories, media or events
func (h *PublicHandler) ListContent(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		h.formatter.Error(w, r, err)
		return
	}
	h.list(w, r, &kind)
}

// Search matches public content of every kind against q
func (h *PublicHandler) Search(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("q") == "" {
		h.formatter.Error(w, r, platform.FieldError("q", "is required"))
		return
	}
	h.list(w, r, nil)
}

func (h *PublicHandler) list(w http.ResponseWriter, r *http.Request, kind *platform.Kind) {
	q := newQuery(r)
	req := platform.ListContentRequest{
		Kind:     kind,
		TenantID: q.uuid("tenant_id"),
		Featured: q.boolean("featured"),
		Query:    q.text("q"),
		Limit:    q.integer("limit"),
		Offset:   q.integer("offset"),
	}
	if err := q.err(); err != nil {
		h.formatter.Error(w, r, err)
		return
	}

	items, err := h.service.ListContent(r.Context(), nil, req)
	if err != nil {
		h.formatter.Error(w, r, err)
		return
	}
	writeList(w, r, items)
}

// GetContent returns one public story, media item or event
func (h *PublicHandler) GetContent(w http.ResponseWriter, r *http.Request) {
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

	content, err := h.service.GetContent(r.Context(), nil, kind, id)
	if err != nil {
		h.formatter.Error(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, content)
}

// DownloadMedia streams the file of a public media item
func (h *PublicHandler) DownloadMedia(w http.ResponseWriter, r *http.Request) {
	id, err := mediaIDParam(r)
	if err != nil {
		h.formatter.Error(w, r, err)
		return
	}

	downloadMedia(w, r, h.service, nil, id, h.formatter)
}

// SubmitMessage accepts a contact-form message for a tenant
func (h *PublicHandler) SubmitMessage(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.formatter.Error(w, r, err)
		return
	}

	var req platform.SubmitMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		h.formatter.Error(w, r, err)
		return
	}
	req.TenantID = id

	message, err := h.service.SubmitMessage(r.Context(), req)
	if err != nil {
		h.formatter.Error(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusCreated, message)
}

// downloadMedia redirects to the blob store when it serves files directly
// and streams the file otherwise.
func downloadMedia(w http.ResponseWriter, r *http.Request, svc platform.Service, actor *platform.Actor, id uuid.UUID, f *respond.Formatter) {
	url, err := svc.MediaURL(r.Context(), actor, id)
	if err != nil {
		f.Error(w, r, err)
		return
	}
	if url != "" {
		http.Redirect(w, r, url, http.StatusFound)
		return
	}

	content, reader, err := svc.OpenMedia(r.Context(), actor, id)
	if err != nil {
		f.Error(w, r, err)
		return
	}
	serveMedia(w, r, content, reader, f.Log())
}

// serveMedia writes the media bytes with the stored content type.
func serveMedia(w http.ResponseWriter, r *http.Request, content *platform.Content, reader io.ReadCloser, logger *slog.Logger) {
	defer reader.Close()

	contentType := content.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if content.FileName != "" {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": content.FileName}))
	}
	if content.FileSize > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(content.FileSize, 10))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, reader); err != nil {
		logger.WarnContext(r.Context(), "Failed to stream media file", "content_id", content.ID.String(), "err", err)
	}
}

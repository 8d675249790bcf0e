// Package api exposes the platform service over HTTP with chi. Handlers
// translate requests into service calls; every authorization decision is
// made by the service itself.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tendant/simple-platform/pkg/platform"
	"github.com/tendant/simple-platform/pkg/platform/ratelimit"
	"github.com/tendant/simple-platform/pkg/platform/respond"
	"github.com/tendant/simple-platform/pkg/platform/settings"
)

// Config carries everything the router needs
type Config struct {
	Service   platform.Service
	Limiter   *ratelimit.Limiter // nil disables rate limiting
	Settings  *settings.Store
	Formatter *respond.Formatter

	SessionCookie string
	SessionTTL    time.Duration
	SecureCookies bool
}

// NewRouter builds the /api/v1 tree.
func NewRouter(cfg Config) chi.Router {
	f := cfg.Formatter
	if f == nil {
		f = &respond.Formatter{}
	}
	if cfg.Settings == nil {
		cfg.Settings = settings.NewStore(settings.Settings{})
	}

	r := chi.NewRouter()

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		f.Error(w, r, platform.NotFoundError("resource"))
	})

	auth := NewAuthHandler(cfg.Service, cfg.Limiter, f, CookieConfig{
		Name:   cfg.SessionCookie,
		TTL:    cfg.SessionTTL,
		Secure: cfg.SecureCookies,
	})
	public := NewPublicHandler(cfg.Service, cfg.Limiter, cfg.Settings, f)

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/auth", auth.Routes())
		r.With(MaintenanceMiddleware(cfg.Settings, f)).Mount("/public", public.Routes())
		r.Mount("/admin", adminRoutes(cfg, f))
	})

	return r
}

// adminRoutes mounts the authenticated administration API. Every request
// is counted before its session is looked up.
func adminRoutes(cfg Config, f *respond.Formatter) chi.Router {
	r := chi.NewRouter()
	r.Use(RateLimit(cfg.Limiter, ratelimit.CategoryAdmin, f))
	r.Use(IdentityMiddleware(cfg.Service, cfg.SessionCookie, f))
	r.Use(MaintenanceMiddleware(cfg.Settings, f))
	r.Use(RequireRoles(f, platform.RoleTenantAdmin))

	r.Mount("/tenants", NewTenantHandler(cfg.Service, f).Routes())
	r.Mount("/messages", NewMessageHandler(cfg.Service, cfg.Limiter, f).Routes())
	r.Mount("/accounts", NewAccountHandler(cfg.Service, f).Routes())
	r.Mount("/settings", NewSettingsHandler(cfg.Settings, f).Routes())
	r.Mount("/{kind}", NewContentHandler(cfg.Service, f).Routes())

	return r
}

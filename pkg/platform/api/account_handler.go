package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tendant/simple-platform/pkg/platform"
	"github.com/tendant/simple-platform/pkg/platform/respond"
	"github.com/tendant/simple-platform/pkg/platform/settings"
)

// AccountHandler handles administrator accounts. Platform admins only.
type AccountHandler struct {
	service   platform.Service
	formatter *respond.Formatter
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(service platform.Service, formatter *respond.Formatter) *AccountHandler {
	return &AccountHandler{service: service, formatter: formatter}
}

// Routes returns the routes for accounts
func (h *AccountHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(RequireRoles(h.formatter, platform.RolePlatformAdmin))
	r.Get("/", h.ListAccounts)
	r.Post("/", h.CreateAccount)

	return r
}

// ListAccounts lists accounts, optionally for one tenant
func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	q := newQuery(r)
	tenantID := q.uuid("tenant_id")
	if err := q.err(); err != nil {
		h.formatter.Error(w, r, err)
		return
	}

	accounts, err := h.service.ListAccounts(r.Context(), platform.ActorFromContext(r.Context()), tenantID)
	if err != nil {
		h.formatter.Error(w, r, err)
		return
	}
	writeList(w, r, accounts)
}

// CreateAccount creates a tenant or platform administrator
func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req platform.CreateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		h.formatter.Error(w, r, err)
		return
	}

	account, err := h.service.CreateAccount(r.Context(), platform.ActorFromContext(r.Context()), req)
	if err != nil {
		h.formatter.Error(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusCreated, account)
}

// SettingsHandler reads and changes the site settings. Platform admins only.
type SettingsHandler struct {
	store     *settings.Store
	formatter *respond.Formatter
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(store *settings.Store, formatter *respond.Formatter) *SettingsHandler {
	return &SettingsHandler{store: store, formatter: formatter}
}

// Routes returns the routes for settings
func (h *SettingsHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(RequireRoles(h.formatter, platform.RolePlatformAdmin))
	r.Get("/", h.GetSettings)
	r.Put("/", h.UpdateSettings)

	return r
}

// GetSettings returns the current settings
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, r, http.StatusOK, h.store.Get())
}

// UpdateSettings applies a partial settings change
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var update settings.Update
	if err := decodeJSON(r, &update); err != nil {
		h.formatter.Error(w, r, err)
		return
	}

	current, err := h.store.Apply(platform.ActorFromContext(r.Context()), update)
	if err != nil {
		h.formatter.Error(w, r, err)
		return
	}

	h.formatter.Log().InfoContext(r.Context(), "Settings updated",
		"maintenance_mode", current.MaintenanceMode,
		"actor_id", platform.ActorFromContext(r.Context()).ID.String())
	respond.JSON(w, r, http.StatusOK, current)
}

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tendant/simple-platform/pkg/platform"
	"github.com/tendant/simple-platform/pkg/platform/ratelimit"
	"github.com/tendant/simple-platform/pkg/platform/respond"
)

// LoginResponse is the response body for a successful login
type LoginResponse struct {
	Token string          `json:"token"`
	Actor *platform.Actor `json:"actor"`
}

// AuthHandler handles login, logout and the current identity
type AuthHandler struct {
	service   platform.Service
	limiter   *ratelimit.Limiter
	formatter *respond.Formatter
	cookie    CookieConfig
}

// CookieConfig describes the session cookie set on login
type CookieConfig struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(service platform.Service, limiter *ratelimit.Limiter, formatter *respond.Formatter, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{
		service:   service,
		limiter:   limiter,
		formatter: formatter,
		cookie:    cookie,
	}
}

// Routes returns the routes for authentication
func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.With(RateLimit(h.limiter, ratelimit.CategoryAuth, h.formatter)).Post("/login", h.Login)

	r.Group(func(r chi.Router) {
		r.Use(RateLimit(h.limiter, ratelimit.CategoryGeneral, h.formatter))
		r.Use(IdentityMiddleware(h.service, h.cookie.Name, h.formatter))
		r.Post("/logout", h.Logout)
		r.Get("/me", h.Me)
	})

	return r
}

// Login verifies credentials and starts a session
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req platform.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.formatter.Error(w, r, err)
		return
	}

	token, actor, err := h.service.Login(r.Context(), req)
	if err != nil {
		h.formatter.Error(w, r, err)
		return
	}

	if h.cookie.Name != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     h.cookie.Name,
			Value:    token,
			Path:     "/",
			MaxAge:   int(h.cookie.TTL.Seconds()),
			HttpOnly: true,
			Secure:   h.cookie.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}

	respond.JSON(w, r, http.StatusOK, LoginResponse{Token: token, Actor: actor})
}

// Logout ends the current session and clears the cookie
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), sessionToken(r, h.cookie.Name)); err != nil {
		h.formatter.Error(w, r, err)
		return
	}

	if h.cookie.Name != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     h.cookie.Name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.cookie.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}

	respond.NoContent(w, r)
}

// Me returns the authenticated actor
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor := platform.ActorFromContext(r.Context())
	if err := platform.RequireAuthenticated(actor); err != nil {
		h.formatter.Error(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, actor)
}

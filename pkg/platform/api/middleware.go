package api

import (
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth"
	"github.com/tendant/simple-platform/pkg/platform"
	"github.com/tendant/simple-platform/pkg/platform/ratelimit"
	"github.com/tendant/simple-platform/pkg/platform/respond"
	"github.com/tendant/simple-platform/pkg/platform/settings"
)

// IdentityMiddleware resolves the session token carried by the request and
// stores the actor in the request context. Requests without a token, or
// with an expired one, continue anonymously.
func IdentityMiddleware(svc platform.Service, cookieName string, f *respond.Formatter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := sessionToken(r, cookieName)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			actor, err := svc.ResolveSession(r.Context(), token)
			if err != nil {
				f.Error(w, r, err)
				return
			}
			if actor != nil {
				r = r.WithContext(platform.WithActor(r.Context(), actor))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// sessionToken reads the session cookie, falling back to a bearer token.
func sessionToken(r *http.Request, cookieName string) string {
	if cookieName != "" {
		if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
			return cookie.Value
		}
	}
	return jwtauth.TokenFromHeader(r)
}

// RequireRoles rejects requests whose actor holds none of roles. A platform
// admin passes any check that admits tenant admins.
func RequireRoles(f *respond.Formatter, roles ...platform.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := platform.RequireRole(platform.ActorFromContext(r.Context()), roles...); err != nil {
				f.Error(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit counts each request against category for the calling client.
// Rejected requests get a 429 with Retry-After. When the category only
// counts failures, responses below 400 give their slot back. A nil limiter
// disables the check.
func RateLimit(limiter *ratelimit.Limiter, category ratelimit.Category, f *respond.Formatter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientAddr(r)

			decision, err := limiter.Allow(r.Context(), client, category)
			if err != nil {
				if platform.IsKind(err, platform.KindRateLimited) {
					setRateHeaders(w, decision)
					f.Error(w, r, err)
					return
				}
				// Fail open when the counter store is unreachable.
				f.Log().ErrorContext(r.Context(), "Rate limit check failed",
					"category", category,
					"request_id", middleware.GetReqID(r.Context()),
					"err", err)
				next.ServeHTTP(w, r)
				return
			}
			setRateHeaders(w, decision)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if status < http.StatusBadRequest {
				if err := limiter.Refund(r.Context(), client, category); err != nil {
					f.Log().WarnContext(r.Context(), "Rate limit refund failed", "category", category, "err", err)
				}
			}
		})
	}
}

func setRateHeaders(w http.ResponseWriter, d ratelimit.Decision) {
	if d.Limit == 0 {
		return
	}
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
}

// clientAddr identifies the caller by the IP in RemoteAddr. Proxy headers
// only count when the server mounted middleware.RealIP in front.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// MaintenanceMiddleware rejects writes with 503 while maintenance mode is
// on. Reads and platform admins are let through.
func MaintenanceMiddleware(store *settings.Store, f *respond.Formatter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			on, message := store.Maintenance()
			if on && !platform.ActorFromContext(r.Context()).IsPlatformAdmin() {
				f.Error(w, r, platform.UnavailableError(message))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

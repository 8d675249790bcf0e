// Package respond writes success payloads and the canonical error shape.
package respond

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/tendant/simple-platform/pkg/platform"
)

// maxMessageLength is the longest message shown verbatim in production.
const maxMessageLength = 200

// ErrorResponse is the body of every failed call.
type ErrorResponse struct {
	Success    bool                `json:"success"`
	Error      string              `json:"error"`
	Code       platform.ErrorKind  `json:"code,omitempty"`
	Errors     map[string][]string `json:"errors,omitempty"`
	RetryAfter int                 `json:"retryAfter,omitempty"`
	Timestamp  string              `json:"timestamp"`
	Stack      string              `json:"stack,omitempty"`
}

// Formatter turns errors into ErrorResponse values. In production it hides
// messages that could leak internals; otherwise it keeps them with stacks.
type Formatter struct {
	Production     bool
	SessionCookies []string
	Logger         *slog.Logger
	Now            func() time.Time
}

var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(postgres(ql)?|pgx|pgconn|sqlstate|mongo(db)?|redis|mysql|sqlite|sql)\b`),
	regexp.MustCompile(`(?i)(dial tcp|dial udp|connection refused|connection reset|i/o timeout|no such host|broken pipe|econnrefused|econnreset|etimedout)`),
	regexp.MustCompile(`(^|[\s:"'(=])(~|\.{1,2})?/[\w.-]+`),
	regexp.MustCompile(`(?i)\b[a-z]:\\`),
	regexp.MustCompile(`\b\d{1,3}(\.\d{1,3}){3}\b`),
}

// containsAddr reports whether any word of message parses as an IP
// address, with or without a port.
func containsAddr(message string) bool {
	words := strings.FieldsFunc(message, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(`"'(),;=<>{}`, r)
	})
	for _, word := range words {
		word = strings.TrimRight(word, ".,:;!?")
		if word == "" {
			continue
		}
		if _, err := netip.ParseAddr(word); err == nil {
			return true
		}
		if _, err := netip.ParseAddrPort(word); err == nil {
			return true
		}
		if _, err := netip.ParseAddr(strings.Trim(word, "[]")); err == nil {
			return true
		}
	}
	return false
}

// passThrough lists the kinds whose messages are written for end users.
var passThrough = map[platform.ErrorKind]bool{
	platform.KindValidation:    true,
	platform.KindNotFound:      true,
	platform.KindConflict:      true,
	platform.KindAuthorization: true,
}

// GenericMessage is the text shown for a kind when the original is withheld.
func GenericMessage(kind platform.ErrorKind) string {
	switch kind {
	case platform.KindValidation:
		return "validation failed"
	case platform.KindAuthentication:
		return "authentication required"
	case platform.KindAuthorization:
		return "insufficient permissions"
	case platform.KindNotFound:
		return "resource not found"
	case platform.KindConflict:
		return "resource already exists"
	case platform.KindRateLimited:
		return "too many requests, please try again later"
	case platform.KindUnavailable:
		return "service temporarily unavailable"
	}
	return "internal server error"
}

// IsSensitive reports whether message may expose internal details.
func (f *Formatter) IsSensitive(message string) bool {
	if len(message) > maxMessageLength {
		return true
	}
	for _, p := range sensitivePatterns {
		if p.MatchString(message) {
			return true
		}
	}
	if containsAddr(message) {
		return true
	}
	lower := strings.ToLower(message)
	for _, name := range f.SessionCookies {
		if name != "" && strings.Contains(lower, strings.ToLower(name)) {
			return true
		}
	}
	return false
}

// Sanitize returns the message safe to show for e.
func (f *Formatter) Sanitize(e *platform.Error) string {
	if !f.Production {
		return e.Error()
	}
	if passThrough[e.Kind] && !f.IsSensitive(e.Message) {
		return e.Message
	}
	return GenericMessage(e.Kind)
}

// Build converts err into its status code and response body.
func (f *Formatter) Build(err error) (int, ErrorResponse) {
	e := platform.AsError(err)
	if e == nil {
		e = platform.InternalError("request", nil)
	}

	now := time.Now
	if f.Now != nil {
		now = f.Now
	}

	resp := ErrorResponse{
		Success:    false,
		Error:      f.Sanitize(e),
		Code:       e.Kind,
		RetryAfter: e.RetryAfter,
		Timestamp:  now().UTC().Format(time.RFC3339),
	}
	if len(e.FieldErrors) > 0 {
		resp.Errors = e.FieldErrors
		if f.Production {
			resp.Errors = f.sanitizeFields(e.FieldErrors)
		}
	}
	if !f.Production && e.Err != nil && e.Kind == platform.KindInternal {
		resp.Stack = fmt.Sprintf("%+v", e.Err)
	}
	return e.HTTPStatus(), resp
}

func (f *Formatter) sanitizeFields(fields map[string][]string) map[string][]string {
	out := make(map[string][]string, len(fields))
	for field, problems := range fields {
		for _, p := range problems {
			if f.IsSensitive(p) {
				p = "is invalid"
			}
			out[field] = append(out[field], p)
		}
	}
	return out
}

// Error writes err in the canonical error shape.
func (f *Formatter) Error(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := f.Build(err)

	if status >= http.StatusInternalServerError {
		f.Log().ErrorContext(r.Context(), "Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"err", err)
	}
	if resp.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(resp.RetryAfter))
	}

	render.Status(r, status)
	render.JSON(w, r, resp)
}

// Log returns the configured logger or slog.Default.
func (f *Formatter) Log() *slog.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return slog.Default()
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

// NoContent writes an empty 204 response.
func NoContent(w http.ResponseWriter, r *http.Request) {
	render.NoContent(w, r)
}

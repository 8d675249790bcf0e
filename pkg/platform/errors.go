package platform

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// ErrorKind is the machine-readable classification of a failure.
type ErrorKind string

const (
	KindValidation     ErrorKind = "validation"
	KindAuthentication ErrorKind = "authentication"
	KindAuthorization  ErrorKind = "authorization"
	KindNotFound       ErrorKind = "not_found"
	KindConflict       ErrorKind = "conflict"
	KindRateLimited    ErrorKind = "rate_limited"
	KindUnavailable    ErrorKind = "unavailable"
	KindInternal       ErrorKind = "internal"
)

// HTTPStatus maps the kind onto its HTTP-style status code.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// IsBusiness reports whether the kind is an expected rejection rather than
// an infrastructure failure.
func (k ErrorKind) IsBusiness() bool {
	return k != KindInternal && k != ""
}

// Repository sentinel errors. Stores return these (optionally wrapped) so the
// service can classify failures without inspecting driver errors.
var (
	// ErrNotFound indicates a record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrConflict indicates a unique constraint was violated
	ErrConflict = errors.New("record already exists")
)

// Error is the canonical error carried through the core.
type Error struct {
	Kind        ErrorKind
	Message     string
	FieldErrors map[string][]string
	// RetryAfter is the number of seconds until a throttled caller may retry.
	RetryAfter int
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Kind == KindInternal {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the status code of the error's kind.
func (e *Error) HTTPStatus() int {
	return e.Kind.HTTPStatus()
}

// ValidationError reports invalid input. Field errors are copied.
func ValidationError(message string, fields map[string][]string) *Error {
	if message == "" {
		message = "validation failed"
	}
	var copied map[string][]string
	if len(fields) > 0 {
		copied = make(map[string][]string, len(fields))
		for k, v := range fields {
			copied[k] = append([]string(nil), v...)
		}
	}
	return &Error{Kind: KindValidation, Message: message, FieldErrors: copied}
}

// FieldError is a shortcut for a validation failure on a single field.
func FieldError(field, problem string) *Error {
	return ValidationError("validation failed", map[string][]string{field: {problem}})
}

// AuthenticationError reports a missing or invalid identity.
func AuthenticationError() *Error {
	return &Error{Kind: KindAuthentication, Message: "authentication required"}
}

// InvalidCredentialsError reports a failed login attempt.
func InvalidCredentialsError() *Error {
	return &Error{Kind: KindAuthentication, Message: "invalid email or password"}
}

// AuthorizationError reports an authenticated actor lacking permission.
func AuthorizationError(message string) *Error {
	if message == "" {
		message = "insufficient permissions"
	}
	return &Error{Kind: KindAuthorization, Message: message}
}

// RoleError names the roles that would have been accepted.
func RoleError(allowed []Role) *Error {
	names := make([]string, 0, len(allowed))
	for _, r := range allowed {
		names = append(names, string(r))
	}
	sort.Strings(names)
	return AuthorizationError("insufficient permissions: requires one of " + strings.Join(names, ", "))
}

// NotFoundError reports a missing resource by name.
func NotFoundError(resource string) *Error {
	return &Error{Kind: KindNotFound, Message: resource + " not found", Err: ErrNotFound}
}

// ConflictError reports a duplicate or otherwise conflicting write.
func ConflictError(message string) *Error {
	return &Error{Kind: KindConflict, Message: message, Err: ErrConflict}
}

// RateLimitedError reports a throttled call.
func RateLimitedError(retryAfter int) *Error {
	if retryAfter < 1 {
		retryAfter = 1
	}
	return &Error{
		Kind:       KindRateLimited,
		Message:    "too many requests, please try again later",
		RetryAfter: retryAfter,
	}
}

// UnavailableError reports that writes are temporarily disabled.
func UnavailableError(message string) *Error {
	if message == "" {
		message = "service temporarily unavailable"
	}
	return &Error{Kind: KindUnavailable, Message: message}
}

// InternalError wraps an unexpected failure, capturing a stack trace.
func InternalError(op string, err error) *Error {
	if err == nil {
		err = errors.New(op)
	}
	return &Error{
		Kind:    KindInternal,
		Message: op + " failed",
		Err:     pkgerrors.WithStack(err),
	}
}

// AsError normalizes any error into an *Error. Typed errors pass through;
// anything else becomes an internal error.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	return InternalError("request", err)
}

// KindOf returns the kind of err, or "" for nil.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	return AsError(err).Kind
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// storeError classifies an error returned by a Repository call.
func storeError(resource, op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return NotFoundError(resource)
	case errors.Is(err, ErrConflict):
		return ConflictError(resource + " already exists")
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	return InternalError(op+" "+resource, err)
}

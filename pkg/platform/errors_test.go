package platform_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-platform/pkg/platform"
)

func TestErrorKind_HTTPStatus(t *testing.T) {
	tests := map[platform.ErrorKind]int{
		platform.KindValidation:     http.StatusBadRequest,
		platform.KindAuthentication: http.StatusUnauthorized,
		platform.KindAuthorization:  http.StatusForbidden,
		platform.KindNotFound:       http.StatusNotFound,
		platform.KindConflict:       http.StatusConflict,
		platform.KindRateLimited:    http.StatusTooManyRequests,
		platform.KindUnavailable:    http.StatusServiceUnavailable,
		platform.KindInternal:       http.StatusInternalServerError,
	}
	for kind, status := range tests {
		t.Run(string(kind), func(t *testing.T) {
			assert.Equal(t, status, kind.HTTPStatus())
		})
	}
}

func TestErrorKind_IsBusiness(t *testing.T) {
	assert.True(t, platform.KindValidation.IsBusiness())
	assert.True(t, platform.KindRateLimited.IsBusiness())
	assert.False(t, platform.KindInternal.IsBusiness())
	assert.False(t, platform.ErrorKind("").IsBusiness())
}

func TestAsError(t *testing.T) {
	assert.Nil(t, platform.AsError(nil))

	typed := platform.NotFoundError("story")
	wrapped := fmt.Errorf("handler: %w", typed)
	assert.Same(t, typed, platform.AsError(wrapped))

	raw := errors.New("dial tcp 10.0.0.5:5432: connection refused")
	internal := platform.AsError(raw)
	assert.Equal(t, platform.KindInternal, internal.Kind)
	assert.ErrorIs(t, internal, raw)
}

func TestNotFoundError(t *testing.T) {
	err := platform.NotFoundError("event")
	assert.Equal(t, "event not found", err.Error())
	assert.ErrorIs(t, err, platform.ErrNotFound)
	assert.Equal(t, http.StatusNotFound, err.HTTPStatus())
}

func TestRateLimitedError(t *testing.T) {
	assert.Equal(t, 1, platform.RateLimitedError(0).RetryAfter)
	assert.Equal(t, 42, platform.RateLimitedError(42).RetryAfter)
}

func TestValidationError_CopiesFields(t *testing.T) {
	fields := map[string][]string{"title": {"is required"}}
	err := platform.ValidationError("", fields)
	fields["title"][0] = "changed"

	assert.Equal(t, "validation failed", err.Message)
	assert.Equal(t, []string{"is required"}, err.FieldErrors["title"])
}

func TestInternalError(t *testing.T) {
	cause := errors.New("boom")
	err := platform.InternalError("load tenant", cause)
	require.Error(t, err)
	assert.Equal(t, "load tenant failed: boom", err.Error())
	assert.ErrorIs(t, err, cause)

	assert.Contains(t, fmt.Sprintf("%+v", err.Err), "errors_test.go")
}

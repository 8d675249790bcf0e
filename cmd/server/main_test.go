package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-platform/pkg/platform/config"
)

func newTestServer(t *testing.T, opts ...config.Option) *HTTPServer {
	t.Helper()

	cfg, err := config.Load(append([]config.Option{config.WithEnvironment("testing")}, opts...)...)
	require.NoError(t, err)
	components, err := cfg.BuildService(context.Background())
	require.NoError(t, err)
	t.Cleanup(components.Close)

	return NewHTTPServer(cfg, components)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	rr := httptest.NewRecorder()
	ts.Routes().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"healthy","environment":"testing","database":"memory"}`, rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get("Content-Type"))
}

func TestRoutesMountAPI(t *testing.T) {
	ts := newTestServer(t)
	handler := ts.Routes()

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/public/stories", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"items":[],"count":0}`, rr.Body.String())

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/admin/tenants", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"nobody@example.com","password":"whatever"}`)))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "5", rr.Header().Get("X-RateLimit-Limit"))
}

func badLogin(handler http.Handler, forwardedFor string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"nobody@example.com","password":"whatever"}`))
	req.RemoteAddr = "203.0.113.7:40000"
	req.Header.Set("X-Forwarded-For", forwardedFor)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestLoginLimitIgnoresForwardedFor(t *testing.T) {
	handler := newTestServer(t).Routes()

	for i := 1; i <= 5; i++ {
		rr := badLogin(handler, fmt.Sprintf("198.51.100.%d", i))
		require.Equal(t, http.StatusUnauthorized, rr.Code, "attempt %d", i)
	}

	rr := badLogin(handler, "198.51.100.6")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
}

func TestTrustedProxyKeysOnForwardedFor(t *testing.T) {
	handler := newTestServer(t, config.WithTrustedProxy()).Routes()

	for i := 1; i <= 6; i++ {
		rr := badLogin(handler, fmt.Sprintf("198.51.100.%d", i))
		assert.Equal(t, http.StatusUnauthorized, rr.Code, "attempt %d", i)
		assert.Equal(t, "4", rr.Header().Get("X-RateLimit-Remaining"))
	}
}

package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robertlancer/supershare/internal/google"
	"github.com/robertlancer/supershare/internal/viewer"
)

func newTestServerContext(t *testing.T, keys *google.KeyParts) *ServerContext {
	t.Helper()

	factory := google.NewFactory(keys, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	sc, err := NewServerContext(context.Background(), factory, viewer.Config{
		FolderID: "folder123",
		Account:  "admin@corp.example",
	}, nil)
	require.NoError(t, err)
	return sc
}

func decodeHealth(t *testing.T, rec *httptest.ResponseRecorder) HealthResponse {
	t.Helper()
	var response HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	return response
}

func TestLivenessHandler(t *testing.T) {
	h := NewHealthChecker(nil)

	rec := httptest.NewRecorder()
	h.LivenessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, healthStatusOK, decodeHealth(t, rec).Status)
}

func TestLivenessStaysOKWhenNotReady(t *testing.T) {
	h := NewHealthChecker(nil)
	h.SetReady(false)

	rec := httptest.NewRecorder()
	h.LivenessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadinessHandlerReady(t *testing.T) {
	sc := newTestServerContext(t, &google.KeyParts{Fingerprint: "deadbeef"})
	h := NewHealthChecker(sc)

	rec := httptest.NewRecorder()
	h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	response := decodeHealth(t, rec)
	assert.Equal(t, healthStatusOK, response.Status)
	assert.Equal(t, healthStatusOK, response.Checks["credentials"])
}

func TestReadinessHandlerNotReady(t *testing.T) {
	h := NewHealthChecker(nil)
	h.SetReady(false)

	rec := httptest.NewRecorder()
	h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	response := decodeHealth(t, rec)
	assert.Equal(t, healthStatusNotReady, response.Status)
	assert.Equal(t, healthStatusNotReady, response.Checks["ready"])
}

func TestReadinessHandlerWithoutKey(t *testing.T) {
	sc := newTestServerContext(t, nil)
	h := NewHealthChecker(sc)

	rec := httptest.NewRecorder()
	h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	response := decodeHealth(t, rec)
	assert.Equal(t, healthStatusNotReady, response.Status)
	assert.Equal(t, healthStatusNoKey, response.Checks["credentials"])
}

func TestReadinessHandlerDuringShutdown(t *testing.T) {
	sc := newTestServerContext(t, &google.KeyParts{Fingerprint: "deadbeef"})
	require.NoError(t, sc.Shutdown())
	h := NewHealthChecker(sc)

	rec := httptest.NewRecorder()
	h.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, healthStatusShuttingDown, decodeHealth(t, rec).Checks["shutdown"])
}

func TestDetailedHealthHandler(t *testing.T) {
	h := NewHealthChecker(nil)

	rec := httptest.NewRecorder()
	h.DetailedHealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/detailed", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var response DetailedHealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, healthStatusOK, response.Status)
	assert.NotEmpty(t, response.Uptime)
}

func TestServerContextValidation(t *testing.T) {
	factory := google.NewFactory(nil, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)

	_, err := NewServerContext(context.Background(), nil, viewer.Config{FolderID: "f", Account: "a@b.c"}, nil)
	assert.Error(t, err)

	_, err = NewServerContext(context.Background(), factory, viewer.Config{Account: "a@b.c"}, nil)
	assert.Error(t, err)

	_, err = NewServerContext(context.Background(), factory, viewer.Config{FolderID: "f"}, nil)
	assert.Error(t, err)
}

func TestServerContextShutdownIsIdempotent(t *testing.T) {
	sc := newTestServerContext(t, nil)

	assert.False(t, sc.IsShutdown())
	require.NoError(t, sc.Shutdown())
	assert.True(t, sc.IsShutdown())
	require.NoError(t, sc.Shutdown())

	select {
	case <-sc.Context().Done():
	default:
		t.Error("expected context to be cancelled after shutdown")
	}
}

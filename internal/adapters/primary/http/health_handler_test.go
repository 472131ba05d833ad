package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubCounter int

func (c stubCounter) GetClientCount() int { return int(c) }

func serveHealth(h *HealthHandler, path string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthHandler_Readiness(t *testing.T) {
	rec := serveHealth(NewHealthHandler(stubPinger{}, stubCounter(7), "1.2.3"), "/health/ready")
	require.Equal(t, http.StatusOK, rec.Code)

	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "1.2.3", body.Version)
	require.NotNil(t, body.Connections)
	assert.Equal(t, 7, *body.Connections)
	assert.Equal(t, "healthy", body.Checks["database"].Status)
}

func TestHealthHandler_ReadinessDatabaseDown(t *testing.T) {
	rec := serveHealth(NewHealthHandler(stubPinger{err: errors.New("dial tcp: connection refused")}, stubCounter(0), "dev"), "/health/ready")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unhealthy", body.Status)
	assert.Contains(t, body.Checks["database"].Message, "connection refused")
}

func TestHealthHandler_Liveness(t *testing.T) {
	rec := serveHealth(NewHealthHandler(nil, nil, "dev"), "/health/live")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
}

func TestHealthHandler_DetailedDegraded(t *testing.T) {
	rec := serveHealth(NewHealthHandler(nil, stubCounter(2), "dev"), "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"goroutines"`)
	assert.Contains(t, rec.Body.String(), "Database not configured")
}

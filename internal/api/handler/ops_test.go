package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/powdertracker/powdertracker/internal/api/handler"
	"github.com/powdertracker/powdertracker/internal/api/models"
	"github.com/powdertracker/powdertracker/internal/mountain"
)

var fixedTime = time.Date(2025, 1, 15, 20, 0, 0, 0, time.UTC)

type brokenRegistry struct{}

func (brokenRegistry) List(context.Context) ([]mountain.Mountain, error) {
	return nil, errors.New("connection refused")
}

func (brokenRegistry) Get(context.Context, string) (*mountain.Mountain, error) {
	return nil, errors.New("connection refused")
}

func newOpsHandler(registry mountain.Registry, subsystems ...handler.Subsystem) *handler.OpsHandler {
	return handler.NewOpsHandler(handler.OpsConfig{
		Version:    "1.2.3",
		BuildTime:  "2025-01-01T00:00:00Z",
		Registry:   registry,
		Subsystems: subsystems,
		Logger:     zerolog.Nop(),
		Now:        func() time.Time { return fixedTime },
	})
}

func TestHealthCheck(t *testing.T) {
	h := newOpsHandler(brokenRegistry{})

	w := httptest.NewRecorder()
	h.HealthCheck(w, httptest.NewRequest(http.MethodGet, "/api/ops/health", http.NoBody))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"status": "OK",
		"time": "2025-01-15T20:00:00Z",
		"details": {"version": "1.2.3", "buildTime": "2025-01-01T00:00:00Z"}
	}`, w.Body.String())
}

func TestReadinessCheck_RegistryDown(t *testing.T) {
	h := newOpsHandler(brokenRegistry{})

	w := httptest.NewRecorder()
	h.ReadinessCheck(w, httptest.NewRequest(http.MethodGet, "/api/ops/ready", http.NoBody))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var health models.Health
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, models.HealthStatusFail, health.Status)
	assert.Equal(t, "FAIL", health.Details["registry"])
}

func TestReadinessCheck_SubsystemDown(t *testing.T) {
	registry, err := mountain.NewStaticRegistry(mountain.DefaultCatalog())
	require.NoError(t, err)

	h := newOpsHandler(registry,
		handler.Subsystem{Name: "cache", Check: func(context.Context) error { return nil }},
		handler.Subsystem{Name: "database", Check: func(context.Context) error { return errors.New("timeout") }},
	)

	w := httptest.NewRecorder()
	h.ReadinessCheck(w, httptest.NewRequest(http.MethodGet, "/api/ops/ready", http.NoBody))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var health models.Health
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "OK", health.Details["registry"])
	assert.Equal(t, "OK", health.Details["cache"])
	assert.Equal(t, "FAIL", health.Details["database"])
}

func TestSystemStatus_WithoutProviders(t *testing.T) {
	registry, err := mountain.NewStaticRegistry(mountain.DefaultCatalog())
	require.NoError(t, err)
	h := newOpsHandler(registry)

	w := httptest.NewRecorder()
	h.SystemStatus(w, httptest.NewRequest(http.MethodGet, "/api/ops/status", http.NoBody))

	assert.Equal(t, http.StatusOK, w.Code)

	var status models.SystemStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, models.HealthStatusOK, status.Status)
	assert.Empty(t, status.Providers)
	require.Len(t, status.Subsystems, 1)
	assert.Equal(t, "registry", status.Subsystems[0].Name)
}

func TestSystemStatus_FailingSubsystem(t *testing.T) {
	h := newOpsHandler(brokenRegistry{})

	w := httptest.NewRecorder()
	h.SystemStatus(w, httptest.NewRequest(http.MethodGet, "/api/ops/status", http.NoBody))

	var status models.SystemStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, models.HealthStatusFail, status.Status)
	require.Len(t, status.Subsystems, 1)
	require.NotNil(t, status.Subsystems[0].Detail)
	assert.Equal(t, "connection refused", *status.Subsystems[0].Detail)
}

package models_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/powdertracker/powdertracker/internal/api/models"
)

func TestErrorResponse_Write(t *testing.T) {
	rec := httptest.NewRecorder()

	models.NewInternalError("req_abc", "Failed to fetch batch conditions").Write(rec)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "req_abc", rec.Header().Get("X-Request-Id"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Failed to fetch batch conditions", body["error"])
	assert.Equal(t, "req_abc", body["requestId"])
	assert.Len(t, body, 2)
}

func TestErrorResponse_WithoutRequestID(t *testing.T) {
	rec := httptest.NewRecorder()

	models.NewNotFound("", "mountain not found").Write(rec)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Request-Id"))
	assert.JSONEq(t, `{"error":"mountain not found"}`, rec.Body.String())
}

func TestErrorResponse_Constructors(t *testing.T) {
	tests := []struct {
		name   string
		err    *models.ErrorResponse
		status int
	}{
		{"not found", models.NewNotFound("r", "m"), http.StatusNotFound},
		{"forbidden", models.NewForbidden("r", "m"), http.StatusForbidden},
		{"too many requests", models.NewTooManyRequests("r", "m"), http.StatusTooManyRequests},
		{"internal", models.NewInternalError("r", "m"), http.StatusInternalServerError},
		{"unavailable", models.NewServiceUnavailable("r", "m"), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.Status())
			assert.Equal(t, "m", tt.err.Error)
		})
	}
}

package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/powdertracker/powdertracker/internal/api/handler"
	"github.com/powdertracker/powdertracker/internal/api/models"
	"github.com/powdertracker/powdertracker/internal/conditions"
	"github.com/powdertracker/powdertracker/internal/mountain"
)

type fakeService struct {
	calls int
	err   error
}

func (f *fakeService) GetBatchConditions(context.Context) (*conditions.ConditionsBatch, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &conditions.ConditionsBatch{Data: []conditions.ConditionsRecord{}, CachedAt: fixedTime}, nil
}

func (f *fakeService) GetBatchPowderScores(context.Context) (*conditions.PowderScoreBatch, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &conditions.PowderScoreBatch{Scores: []conditions.PowderScoreRecord{}, CachedAt: fixedTime}, nil
}

func TestBatchConditions_EmptyRegistry(t *testing.T) {
	h := handler.NewMountainHandler(&fakeService{}, brokenRegistry{}, zerolog.Nop())

	w := httptest.NewRecorder()
	h.BatchConditions(w, httptest.NewRequest(http.MethodGet, "/api/mountains/batch/conditions", http.NoBody))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[],"count":0,"cachedAt":"2025-01-15T20:00:00Z"}`, w.Body.String())
}

func TestBatchPowderScores_Error(t *testing.T) {
	service := &fakeService{err: errors.New("redis: connection pool timeout")}
	h := handler.NewMountainHandler(service, brokenRegistry{}, zerolog.Nop())

	w := httptest.NewRecorder()
	h.BatchPowderScores(w, httptest.NewRequest(http.MethodGet, "/api/mountains/batch/powder-scores", http.NoBody))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 1, service.calls)
	assert.JSONEq(t, `{"error":"Failed to fetch batch powder scores"}`, w.Body.String())
}

func TestListMountains_RegistryError(t *testing.T) {
	h := handler.NewMountainHandler(&fakeService{}, brokenRegistry{}, zerolog.Nop())

	w := httptest.NewRecorder()
	h.ListMountains(w, httptest.NewRequest(http.MethodGet, "/api/mountains", http.NoBody))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetMountain(t *testing.T) {
	registry, err := mountain.NewStaticRegistry(mountain.DefaultCatalog())
	require.NoError(t, err)
	h := handler.NewMountainHandler(&fakeService{}, registry, zerolog.Nop())

	r := chi.NewRouter()
	r.Get("/api/mountains/{mountainId}", h.GetMountain)

	first := mountain.DefaultCatalog()[0]

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/mountains/"+first.ID, http.NoBody))

	assert.Equal(t, http.StatusOK, w.Code)

	var m models.Mountain
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	assert.Equal(t, first.ID, m.ID)
	assert.Equal(t, first.Name, m.Name)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/mountains/unknown", http.NoBody))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

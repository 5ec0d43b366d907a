// Package handler provides HTTP handlers for the powdertracker API.
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/powdertracker/powdertracker/internal/api/middleware"
	"github.com/powdertracker/powdertracker/internal/api/models"
	"github.com/powdertracker/powdertracker/internal/api/response"
	"github.com/powdertracker/powdertracker/internal/conditions"
	"github.com/powdertracker/powdertracker/internal/mountain"
)

// BatchService serves the cached batch aggregates.
type BatchService interface {
	GetBatchConditions(ctx context.Context) (*conditions.ConditionsBatch, error)
	GetBatchPowderScores(ctx context.Context) (*conditions.PowderScoreBatch, error)
}

var _ BatchService = (*conditions.Service)(nil)

// MountainHandler handles mountain and batch conditions endpoints.
type MountainHandler struct {
	service  BatchService
	registry mountain.Registry
	logger   zerolog.Logger
}

// NewMountainHandler creates a new MountainHandler.
func NewMountainHandler(service BatchService, registry mountain.Registry, logger zerolog.Logger) *MountainHandler {
	return &MountainHandler{
		service:  service,
		registry: registry,
		logger:   logger,
	}
}

// BatchConditions handles GET /api/mountains/batch/conditions.
func (h *MountainHandler) BatchConditions(w http.ResponseWriter, r *http.Request) {
	batch, err := h.service.GetBatchConditions(r.Context())
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Msg("batch conditions failed")
		response.InternalError(w, r, "Failed to fetch batch conditions")
		return
	}
	response.JSON(w, r, http.StatusOK, batch)
}

// BatchPowderScores handles GET /api/mountains/batch/powder-scores.
func (h *MountainHandler) BatchPowderScores(w http.ResponseWriter, r *http.Request) {
	batch, err := h.service.GetBatchPowderScores(r.Context())
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Msg("batch powder scores failed")
		response.InternalError(w, r, "Failed to fetch batch powder scores")
		return
	}
	response.JSON(w, r, http.StatusOK, batch)
}

// ListMountains handles GET /api/mountains.
func (h *MountainHandler) ListMountains(w http.ResponseWriter, r *http.Request) {
	mountains, err := h.registry.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("listing mountains failed")
		response.InternalError(w, r, "Failed to list mountains")
		return
	}

	list := models.MountainList{
		Mountains: make([]models.Mountain, 0, len(mountains)),
		Count:     len(mountains),
	}
	for i := range mountains {
		list.Mountains = append(list.Mountains, toMountainModel(&mountains[i]))
	}
	response.JSON(w, r, http.StatusOK, list)
}

// GetMountain handles GET /api/mountains/{mountainId}.
func (h *MountainHandler) GetMountain(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "mountainId")

	m, err := h.registry.Get(r.Context(), id)
	if errors.Is(err, mountain.ErrMountainNotFound) {
		response.NotFound(w, r, "Mountain not found")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("mountain_id", id).Msg("loading mountain failed")
		response.InternalError(w, r, "Failed to load mountain")
		return
	}
	response.JSON(w, r, http.StatusOK, toMountainModel(m))
}

func toMountainModel(m *mountain.Mountain) models.Mountain {
	out := models.Mountain{
		ID:        m.ID,
		Name:      m.Name,
		ShortName: m.ShortName,
		Region:    m.Region,
		Location:  models.Coordinates{Lat: m.Lat, Lng: m.Lng},
		Timezone:  m.Location().String(),
	}
	if m.HasSNOTEL() {
		out.Sources.SNOTELStationID = m.SNOTEL.StationID
	}
	if m.HasNOAA() {
		out.Sources.NOAAGrid = m.NOAA.String()
	}
	return out
}

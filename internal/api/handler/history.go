package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/powdertracker/powdertracker/internal/api/models"
	"github.com/powdertracker/powdertracker/internal/api/response"
	"github.com/powdertracker/powdertracker/internal/mountain"
	"github.com/powdertracker/powdertracker/internal/snapshot"
)

// History window bounds, in hours.
const (
	DefaultHistoryHours = 72
	MaxHistoryHours     = 30 * 24
)

// HistoryHandler serves stored powder-score snapshots.
type HistoryHandler struct {
	snapshots snapshot.Repository
	registry  mountain.Registry
	logger    zerolog.Logger
	now       func() time.Time
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(snapshots snapshot.Repository, registry mountain.Registry, logger zerolog.Logger) *HistoryHandler {
	return &HistoryHandler{
		snapshots: snapshots,
		registry:  registry,
		logger:    logger,
		now:       time.Now,
	}
}

// PowderHistory handles GET /api/mountains/{mountainId}/powder-history?hours=N.
func (h *HistoryHandler) PowderHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "mountainId")

	hours := DefaultHistoryHours
	if raw := r.URL.Query().Get("hours"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxHistoryHours {
			response.BadRequest(w, r, "hours must be between 1 and 720")
			return
		}
		hours = n
	}

	if _, err := h.registry.Get(r.Context(), id); err != nil {
		if errors.Is(err, mountain.ErrMountainNotFound) {
			response.NotFound(w, r, "Mountain not found")
			return
		}
		h.logger.Error().Err(err).Str("mountain_id", id).Msg("loading mountain failed")
		response.InternalError(w, r, "Failed to load mountain")
		return
	}

	since := h.now().Add(-time.Duration(hours) * time.Hour)

	points, err := h.snapshots.History(r.Context(), id, since, 0)
	if err != nil {
		h.logger.Error().Err(err).Str("mountain_id", id).Msg("loading powder history failed")
		response.InternalError(w, r, "Failed to load powder history")
		return
	}

	response.JSON(w, r, http.StatusOK, models.PowderHistory{
		MountainID: id,
		Since:      models.Timestamp(since),
		Points:     points,
		Count:      len(points),
	})
}

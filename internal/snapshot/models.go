// Package snapshot keeps a history of powder-score batches so scores can be
// compared across days.
package snapshot

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/powdertracker/powdertracker/internal/conditions"
)

// ErrSnapshotNotFound is returned when no snapshot has been stored yet.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot is a stored powder-score batch.
type Snapshot struct {
	ID      string
	TakenAt time.Time
	Scores  []conditions.PowderScoreRecord
}

// ScorePoint is one mountain's score within a snapshot.
type ScorePoint struct {
	SnapshotID string                     `json:"snapshotId"`
	MountainID string                     `json:"mountainId"`
	Score      float64                    `json:"score"`
	Conditions conditions.ScoreConditions `json:"conditions"`
	Error      bool                       `json:"error,omitempty"`
	TakenAt    time.Time                  `json:"takenAt"`
}

// FromBatch creates a snapshot of a powder-score batch, stamped with the
// batch's cachedAt time.
func FromBatch(batch *conditions.PowderScoreBatch) *Snapshot {
	scores := make([]conditions.PowderScoreRecord, len(batch.Scores))
	copy(scores, batch.Scores)

	return &Snapshot{
		ID:      "snp_" + uuid.New().String()[:22],
		TakenAt: batch.CachedAt.UTC(),
		Scores:  scores,
	}
}

// Points flattens the snapshot into per-mountain score points.
func (s *Snapshot) Points() []ScorePoint {
	points := make([]ScorePoint, 0, len(s.Scores))
	for _, r := range s.Scores {
		points = append(points, ScorePoint{
			SnapshotID: s.ID,
			MountainID: r.MountainID,
			Score:      r.Score,
			Conditions: r.Conditions,
			Error:      r.Error,
			TakenAt:    s.TakenAt,
		})
	}
	return points
}

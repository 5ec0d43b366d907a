package snapshot

import (
	"context"
	"time"
)

// DefaultHistoryLimit caps History when the caller passes no limit.
const DefaultHistoryLimit = 96

// Repository persists powder-score snapshots.
type Repository interface {
	// Save stores a snapshot.
	Save(ctx context.Context, s *Snapshot) error

	// Latest returns the most recent snapshot.
	// Returns ErrSnapshotNotFound if none has been stored.
	Latest(ctx context.Context) (*Snapshot, error)

	// History returns a mountain's score points taken at or after since,
	// newest first.
	History(ctx context.Context, mountainID string, since time.Time, limit int) ([]ScorePoint, error)

	// Prune deletes snapshots taken before cutoff and reports how many were removed.
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

package snapshot

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/powdertracker/powdertracker/internal/conditions"
)

// InMemoryRepository is an in-memory implementation of Repository.
// It backs local development and tests.
type InMemoryRepository struct {
	mu        sync.RWMutex
	snapshots []*Snapshot // ordered by TakenAt
}

// NewInMemoryRepository creates a new in-memory snapshot repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{}
}

// Save stores a copy of the snapshot.
func (r *InMemoryRepository) Save(_ context.Context, s *Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.snapshots = append(r.snapshots, cloneSnapshot(s))
	sort.SliceStable(r.snapshots, func(i, j int) bool {
		return r.snapshots[i].TakenAt.Before(r.snapshots[j].TakenAt)
	})
	return nil
}

// Latest returns the most recent snapshot.
func (r *InMemoryRepository) Latest(_ context.Context) (*Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.snapshots) == 0 {
		return nil, ErrSnapshotNotFound
	}
	return cloneSnapshot(r.snapshots[len(r.snapshots)-1]), nil
}

// History returns a mountain's score points, newest first.
func (r *InMemoryRepository) History(_ context.Context, mountainID string, since time.Time, limit int) ([]ScorePoint, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	points := []ScorePoint{}
	for i := len(r.snapshots) - 1; i >= 0 && len(points) < limit; i-- {
		s := r.snapshots[i]
		if s.TakenAt.Before(since) {
			break
		}
		for _, p := range s.Points() {
			if p.MountainID == mountainID {
				points = append(points, p)
				break
			}
		}
	}
	return points, nil
}

// Prune deletes snapshots taken before cutoff.
func (r *InMemoryRepository) Prune(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.snapshots[:0]
	var removed int64
	for _, s := range r.snapshots {
		if s.TakenAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, s)
	}
	r.snapshots = kept
	return removed, nil
}

func cloneSnapshot(s *Snapshot) *Snapshot {
	cpy := *s
	cpy.Scores = make([]conditions.PowderScoreRecord, len(s.Scores))
	copy(cpy.Scores, s.Scores)
	return &cpy
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)

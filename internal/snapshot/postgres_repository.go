package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/powdertracker/powdertracker/internal/conditions"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
// Snapshots live in powder_snapshots with one powder_snapshot_scores row per
// mountain, ordered by position.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL snapshot repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

var scoreColumns = []string{
	"snapshot_id", "position", "mountain_id", "score",
	"snowfall_24h", "snowfall_48h", "temperature", "wind_speed",
	"error", "taken_at",
}

// Save stores the snapshot and its scores in one transaction.
func (r *PostgresRepository) Save(ctx context.Context, s *Snapshot) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO powder_snapshots (id, taken_at, mountain_count) VALUES ($1, $2, $3)`,
			s.ID, s.TakenAt, len(s.Scores),
		)
		if err != nil {
			return fmt.Errorf("insert snapshot: %w", err)
		}

		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"powder_snapshot_scores"},
			scoreColumns,
			pgx.CopyFromSlice(len(s.Scores), func(i int) ([]any, error) {
				sc := s.Scores[i]
				return []any{
					s.ID, i, sc.MountainID, sc.Score,
					sc.Conditions.Snowfall24h, sc.Conditions.Snowfall48h,
					sc.Conditions.Temperature, sc.Conditions.WindSpeed,
					sc.Error, s.TakenAt,
				}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("copy snapshot scores: %w", err)
		}
		return nil
	})
}

// Latest returns the most recent snapshot.
func (r *PostgresRepository) Latest(ctx context.Context) (*Snapshot, error) {
	var s Snapshot
	err := r.pool.QueryRow(ctx, `
		SELECT id, taken_at
		FROM powder_snapshots
		ORDER BY taken_at DESC
		LIMIT 1
	`).Scan(&s.ID, &s.TakenAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("query latest snapshot: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT mountain_id, score, snowfall_24h, snowfall_48h, temperature, wind_speed, error
		FROM powder_snapshot_scores
		WHERE snapshot_id = $1
		ORDER BY position
	`, s.ID)
	if err != nil {
		return nil, fmt.Errorf("query snapshot scores: %w", err)
	}
	defer rows.Close()

	s.Scores = []conditions.PowderScoreRecord{}
	for rows.Next() {
		var rec conditions.PowderScoreRecord
		if err := rows.Scan(
			&rec.MountainID,
			&rec.Score,
			&rec.Conditions.Snowfall24h,
			&rec.Conditions.Snowfall48h,
			&rec.Conditions.Temperature,
			&rec.Conditions.WindSpeed,
			&rec.Error,
		); err != nil {
			return nil, fmt.Errorf("scan snapshot score: %w", err)
		}
		s.Scores = append(s.Scores, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot scores: %w", err)
	}

	return &s, nil
}

// History returns a mountain's score points, newest first.
func (r *PostgresRepository) History(ctx context.Context, mountainID string, since time.Time, limit int) ([]ScorePoint, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := r.pool.Query(ctx, `
		SELECT snapshot_id, mountain_id, score,
		       snowfall_24h, snowfall_48h, temperature, wind_speed,
		       error, taken_at
		FROM powder_snapshot_scores
		WHERE mountain_id = $1 AND taken_at >= $2
		ORDER BY taken_at DESC
		LIMIT $3
	`, mountainID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("query score history: %w", err)
	}
	defer rows.Close()

	points, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ScorePoint, error) {
		var p ScorePoint
		err := row.Scan(
			&p.SnapshotID,
			&p.MountainID,
			&p.Score,
			&p.Conditions.Snowfall24h,
			&p.Conditions.Snowfall48h,
			&p.Conditions.Temperature,
			&p.Conditions.WindSpeed,
			&p.Error,
			&p.TakenAt,
		)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("collect score history: %w", err)
	}
	return points, nil
}

// Prune deletes snapshots taken before cutoff. Score rows cascade.
func (r *PostgresRepository) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM powder_snapshots WHERE taken_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)

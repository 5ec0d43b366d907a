package conditions

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/powdertracker/powdertracker/internal/cache"
)

// Batch cache keys.
const (
	CacheKeyBatchConditions   = "mountains:batch:conditions"
	CacheKeyBatchPowderScores = "mountains:batch:powder-scores"
)

// DefaultBatchTTL is how long a batch payload is served from cache.
const DefaultBatchTTL = 300 * time.Second

// ServiceConfig holds configuration for the batch service.
type ServiceConfig struct {
	// Aggregator builds the batches (required).
	Aggregator *Aggregator

	// Cache memoizes whole batches (required).
	Cache *cache.Cache

	// TTL is the batch cache lifetime (default: 300s).
	TTL time.Duration

	// Now stamps cachedAt (default: time.Now).
	Now func() time.Time

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service serves cached conditions and powder-score batches.
type Service struct {
	aggregator *Aggregator
	cache      *cache.Cache
	ttl        time.Duration
	now        func() time.Time
	logger     zerolog.Logger
}

// NewService creates a new batch service.
func NewService(cfg ServiceConfig) *Service {
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultBatchTTL
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		aggregator: cfg.Aggregator,
		cache:      cfg.Cache,
		ttl:        ttl,
		now:        now,
		logger:     cfg.Logger,
	}
}

// GetBatchConditions returns conditions for every mountain, served from
// cache while the last batch is younger than the TTL.
func (s *Service) GetBatchConditions(ctx context.Context) (*ConditionsBatch, error) {
	return cache.WithCache(ctx, s.cache, CacheKeyBatchConditions, s.ttl, s.BuildConditionsBatch)
}

// GetBatchPowderScores returns powder scores for every mountain, served from
// cache while the last batch is younger than the TTL.
func (s *Service) GetBatchPowderScores(ctx context.Context) (*PowderScoreBatch, error) {
	return cache.WithCache(ctx, s.cache, CacheKeyBatchPowderScores, s.ttl, s.BuildPowderScoreBatch)
}

// RefreshConditions builds a fresh conditions batch and replaces the cached one.
func (s *Service) RefreshConditions(ctx context.Context) (*ConditionsBatch, error) {
	batch, err := s.BuildConditionsBatch(ctx)
	if err != nil {
		return nil, err
	}
	if err := cache.Put(ctx, s.cache, CacheKeyBatchConditions, s.ttl, batch); err != nil {
		return nil, err
	}
	return batch, nil
}

// RefreshPowderScores builds a fresh powder-score batch and replaces the cached one.
func (s *Service) RefreshPowderScores(ctx context.Context) (*PowderScoreBatch, error) {
	batch, err := s.BuildPowderScoreBatch(ctx)
	if err != nil {
		return nil, err
	}
	if err := cache.Put(ctx, s.cache, CacheKeyBatchPowderScores, s.ttl, batch); err != nil {
		return nil, err
	}
	return batch, nil
}

// BuildConditionsBatch aggregates a fresh conditions batch, bypassing the cache.
func (s *Service) BuildConditionsBatch(ctx context.Context) (*ConditionsBatch, error) {
	start := s.now()

	records, err := s.aggregator.BuildConditions(ctx)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int("count", len(records)).
		Int("errors", countConditionErrors(records)).
		Dur("duration", s.now().Sub(start)).
		Msg("built conditions batch")

	return &ConditionsBatch{
		Data:     records,
		Count:    len(records),
		CachedAt: s.now().UTC(),
	}, nil
}

// BuildPowderScoreBatch aggregates a fresh powder-score batch, bypassing the cache.
func (s *Service) BuildPowderScoreBatch(ctx context.Context) (*PowderScoreBatch, error) {
	start := s.now()

	scores, err := s.aggregator.BuildPowderScores(ctx)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int("count", len(scores)).
		Int("errors", countScoreErrors(scores)).
		Dur("duration", s.now().Sub(start)).
		Msg("built powder score batch")

	return &PowderScoreBatch{
		Scores:   scores,
		Count:    len(scores),
		CachedAt: s.now().UTC(),
	}, nil
}

func countConditionErrors(records []ConditionsRecord) int {
	n := 0
	for _, r := range records {
		if r.Error {
			n++
		}
	}
	return n
}

func countScoreErrors(scores []PowderScoreRecord) int {
	n := 0
	for _, s := range scores {
		if s.Error {
			n++
		}
	}
	return n
}

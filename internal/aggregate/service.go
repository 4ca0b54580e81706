package aggregate

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rentscope/backend/internal/contracts"
	"github.com/rentscope/backend/pkg/redis"
)

// Service answers aggregate queries: it resolves the geography to its
// ZIP set, pins the newest persisted version for the fiscal year and
// rolls the version-consistent records up, caching the result.
type Service struct {
	geo        contracts.GeoRepository
	scores     contracts.ScoreRepository
	aggregator *Aggregator
	cache      *redis.Cache
	ttl        time.Duration
	log        zerolog.Logger
}

func NewService(geo contracts.GeoRepository, scores contracts.ScoreRepository, aggregator *Aggregator, cache *redis.Cache, ttl time.Duration, log zerolog.Logger) *Service {
	if ttl <= 0 {
		ttl = redis.TTLLong
	}
	return &Service{
		geo:        geo,
		scores:     scores,
		aggregator: aggregator,
		cache:      cache,
		ttl:        ttl,
		log:        log.With().Str("component", "aggregate.service").Logger(),
	}
}

// GetAggregate returns the rollup for one geography, bedroom count and
// fiscal year at the newest persisted version.
func (s *Service) GetAggregate(ctx context.Context, geoType contracts.GeoType, geoKey, state string, fiscalYear, bedrooms int) (*contracts.AggregateResult, error) {
	version, err := s.scores.GetLatestVersion(ctx, fiscalYear)
	if err != nil {
		return nil, fmt.Errorf("get latest version: %w", err)
	}
	if version == nil {
		return nil, fmt.Errorf("%w: no scores for fiscal year %d", ErrNoRecords, fiscalYear)
	}

	// The version is part of the cache key, so a recompute moves reads
	// to fresh keys and stale rollups simply age out.
	cacheKey := redis.AggregateKey(string(geoType), fmt.Sprintf("%s-%s-%d-%s", geoKey, state, bedrooms, version.Key()), fiscalYear)

	var result contracts.AggregateResult
	err = s.cache.GetOrSet(ctx, cacheKey, &result, s.ttl, func() (interface{}, error) {
		return s.computeAggregate(ctx, geoType, geoKey, state, bedrooms, *version)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *Service) computeAggregate(ctx context.Context, geoType contracts.GeoType, geoKey, state string, bedrooms int, version contracts.DataVersion) (*contracts.AggregateResult, error) {
	units, err := s.listUnits(ctx, geoType, geoKey, state)
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return nil, fmt.Errorf("%w: no zips for %s %s", ErrNoRecords, geoType, geoKey)
	}

	zips := make([]string, len(units))
	for i, u := range units {
		zips[i] = u.ZIP
	}

	records, err := s.scores.ListByVersion(ctx, zips, bedrooms, version)
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}

	result, err := s.aggregator.Aggregate(geoType, geoKey, records, version)
	if err != nil {
		return nil, err
	}
	result.State = state

	s.log.Info().
		Str("geo_type", string(geoType)).
		Str("geo_key", geoKey).
		Int("bedrooms", bedrooms).
		Int("zip_count", result.ZIPCount).
		Str("version", version.Key()).
		Msg("aggregate computed")

	return result, nil
}

func (s *Service) listUnits(ctx context.Context, geoType contracts.GeoType, geoKey, state string) ([]*contracts.GeoUnit, error) {
	switch geoType {
	case contracts.GeoCounty:
		return s.geo.ListByCounty(ctx, geoKey, state)
	case contracts.GeoCity:
		return s.geo.ListByCity(ctx, geoKey, state)
	case contracts.GeoState:
		return s.geo.ListByState(ctx, state)
	default:
		return nil, fmt.Errorf("unknown geo type %q", geoType)
	}
}

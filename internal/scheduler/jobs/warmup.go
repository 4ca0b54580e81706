package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/rentscope/backend/internal/aggregate"
	"github.com/rentscope/backend/internal/contracts"
	"github.com/rentscope/backend/pkg/logger"
)

// AggregateReader is the slice of the aggregate service the warmup job
// needs.
type AggregateReader interface {
	GetAggregate(ctx context.Context, geoType contracts.GeoType, geoKey, state string, fiscalYear, bedrooms int) (*contracts.AggregateResult, error)
}

// WarmupJob precomputes the state-level rollups after the nightly
// recompute so the first morning readers hit cache. Aggregate cache
// keys carry the score version, meaning the fresh batch starts cold.
type WarmupJob struct {
	aggregates AggregateReader
	states     []string
	bedrooms   []int
	fiscalYear int
	logger     *logger.Logger
}

// NewWarmupJob creates the aggregate cache warmup job.
func NewWarmupJob(aggregates AggregateReader, states []string, bedrooms []int, fiscalYear int, log *logger.Logger) *WarmupJob {
	return &WarmupJob{
		aggregates: aggregates,
		states:     states,
		bedrooms:   bedrooms,
		fiscalYear: fiscalYear,
		logger:     log,
	}
}

// Name returns the job name
func (j *WarmupJob) Name() string {
	return "aggregate_warmup"
}

// Schedule returns the cron schedule (3:30 AM daily, after recompute)
func (j *WarmupJob) Schedule() string {
	return "0 30 3 * * *"
}

// Run computes the state rollup for every configured state and bedroom
// count. States without scores are skipped, not failed.
func (j *WarmupJob) Run(ctx context.Context) error {
	var warmed, failed int

	for _, state := range j.states {
		for _, bedrooms := range j.bedrooms {
			_, err := j.aggregates.GetAggregate(ctx, contracts.GeoState, state, state, j.fiscalYear, bedrooms)
			if errors.Is(err, aggregate.ErrNoRecords) {
				j.logger.WithFields(map[string]interface{}{
					"state":    state,
					"bedrooms": bedrooms,
				}).Warn("No records to warm for state")
				continue
			}
			if err != nil {
				failed++
				j.logger.WithError(err).WithField("state", state).Error("Aggregate warmup failed for state")
				continue
			}
			warmed++
		}
	}

	j.logger.WithFields(map[string]interface{}{
		"warmed": warmed,
		"failed": failed,
	}).Info("Aggregate warmup completed")

	if failed > 0 {
		return fmt.Errorf("warmup failed for %d rollups", failed)
	}
	return nil
}

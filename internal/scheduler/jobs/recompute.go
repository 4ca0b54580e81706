package jobs

import (
	"context"
	"fmt"

	"github.com/rentscope/backend/internal/contracts"
	"github.com/rentscope/backend/internal/scoreconfig"
	"github.com/rentscope/backend/pkg/logger"
)

// RecomputeJob rescores every configured state each night, one batch
// per state. Source loaders land the monthly home-value and demand
// tables before 2 AM, so the 2:30 run always sees the freshest data.
type RecomputeJob struct {
	engine     contracts.ScoreEngine
	yields     contracts.YieldRepository
	scoring    *scoreconfig.Config
	states     []string
	fiscalYear int
	logger     *logger.Logger
}

// NewRecomputeJob creates the nightly recompute job.
func NewRecomputeJob(engine contracts.ScoreEngine, yields contracts.YieldRepository, scoring *scoreconfig.Config, states []string, fiscalYear int, log *logger.Logger) *RecomputeJob {
	return &RecomputeJob{
		engine:     engine,
		yields:     yields,
		scoring:    scoring,
		states:     states,
		fiscalYear: fiscalYear,
		logger:     log,
	}
}

// Name returns the job name
func (j *RecomputeJob) Name() string {
	return "nightly_recompute"
}

// Schedule returns the cron schedule (2:30 AM daily)
func (j *RecomputeJob) Schedule() string {
	return "0 30 2 * * *"
}

// Run scores each configured state against the stored median yield.
// A failing state does not stop the others; the job reports failure
// if any state failed.
func (j *RecomputeJob) Run(ctx context.Context) error {
	if len(j.states) == 0 {
		j.logger.Warn("No states configured for nightly recompute")
		return nil
	}

	medianYield, err := j.yields.GetMedianYield(ctx, j.fiscalYear)
	if err != nil {
		return fmt.Errorf("get median yield: %w", err)
	}
	if medianYield == nil {
		return fmt.Errorf("no median yield loaded for fiscal year %d", j.fiscalYear)
	}

	taxFallback := j.scoring.Scoring.DefaultTaxRate

	var failed int
	var lastErr error
	for _, state := range j.states {
		result, err := j.engine.ScoreBatch(ctx, contracts.BatchRequest{
			State:       state,
			FiscalYear:  j.fiscalYear,
			MedianYield: *medianYield,
			TaxFallback: &taxFallback,
		})
		if err != nil {
			failed++
			lastErr = err
			j.logger.WithError(err).WithField("state", state).Error("Recompute failed for state")
			continue
		}

		j.logger.WithFields(map[string]interface{}{
			"state":        state,
			"batch_id":     result.BatchID.String(),
			"zip_count":    result.ZIPCount,
			"scored":       result.Scored,
			"insufficient": result.Insufficient,
			"failed":       result.Failed,
		}).Info("Recompute finished for state")
	}

	if failed > 0 {
		return fmt.Errorf("recompute failed for %d of %d states: %w", failed, len(j.states), lastErr)
	}
	return nil
}

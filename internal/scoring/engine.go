package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rentscope/backend/internal/contracts"
	"github.com/rentscope/backend/internal/metrics"
	"github.com/rentscope/backend/internal/scoreconfig"
	"github.com/rentscope/backend/pkg/logger"
)

// ErrNoEligibleZIPs means no ZIP in the batch had both a rent ceiling and
// a home-value observation, so no version could be selected.
var ErrNoEligibleZIPs = errors.New("scoring: no eligible zips in batch")

// Deps are the data dependencies the engine draws on.
type Deps struct {
	Geo     contracts.GeoRepository
	Rent    contracts.RentResolver
	Values  contracts.HomeValueRepository
	Taxes   contracts.TaxRateRepository
	Demand  contracts.DemandResolver
	Scores  contracts.ScoreRepository
	Batches contracts.BatchRepository
}

// Engine runs the resolve, select, compute, persist pipeline for one
// scoring batch. Candidate collection and record computation fan out to a
// worker pool; version selection runs serially between them so every
// record in the batch is computed against the same version.
type Engine struct {
	deps     Deps
	cfg      *scoreconfig.Config
	snapshot *scoreconfig.Snapshot
	adjuster *Adjuster
	workers  int
	logger   *logger.Logger
}

// NewEngine wires the engine. The snapshot may be nil, in which case
// batch rows carry no config provenance.
func NewEngine(deps Deps, cfg *scoreconfig.Config, snapshot *scoreconfig.Snapshot, workers int, log *logger.Logger) *Engine {
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		deps:     deps,
		cfg:      cfg,
		snapshot: snapshot,
		adjuster: NewAdjuster(cfg),
		workers:  workers,
		logger:   log.WithField("module", "scoring"),
	}
}

type candidateJob struct {
	unit     *contracts.GeoUnit
	bedrooms int
}

type candidateResult struct {
	candidate Candidate
	err       error
}

type recordResult struct {
	record *contracts.InvestmentScoreRecord
	zip    string
	err    error
}

// ScoreBatch scores every ZIP in the requested state for the requested
// fiscal year and bedroom counts, then persists the records under the
// batch's selected version.
func (e *Engine) ScoreBatch(ctx context.Context, req contracts.BatchRequest) (*contracts.BatchResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	bedrooms := req.Bedrooms
	if len(bedrooms) == 0 {
		bedrooms = e.cfg.Scoring.Bedrooms
	}

	units, err := e.deps.Geo.ListByState(ctx, req.State)
	if err != nil {
		return nil, fmt.Errorf("list zips for state %s: %w", req.State, err)
	}
	if len(units) == 0 {
		return nil, fmt.Errorf("%w: state %s has no zips", ErrInvalidInput, req.State)
	}

	batch := &contracts.ScoreBatch{
		ID:         uuid.New(),
		State:      req.State,
		FiscalYear: req.FiscalYear,
		ZIPCount:   len(units),
		Status:     contracts.BatchRunning,
		StartedAt:  time.Now(),
	}
	if e.snapshot != nil {
		batch.ConfigID = e.snapshot.ConfigID
		batch.ConfigHash = e.snapshot.ConfigHash
	}
	if err := e.deps.Batches.Create(ctx, batch); err != nil {
		return nil, fmt.Errorf("create batch record: %w", err)
	}

	e.logger.WithFields(map[string]interface{}{
		"batch_id":    batch.ID.String(),
		"state":       req.State,
		"fiscal_year": req.FiscalYear,
		"zips":        len(units),
		"bedrooms":    bedrooms,
		"workers":     e.workers,
	}).Info("Starting scoring batch")

	candidates, candidateFailures := e.collectCandidates(ctx, units, bedrooms, req.FiscalYear)

	version, ok := SelectVersion(req.FiscalYear, candidates)
	if !ok {
		e.failBatch(ctx, batch, ErrNoEligibleZIPs)
		return nil, ErrNoEligibleZIPs
	}

	e.logger.WithFields(map[string]interface{}{
		"batch_id":         batch.ID.String(),
		"home_value_month": version.HomeValueMonth.Format("2006-01"),
		"tax_vintage":      version.TaxVintage,
	}).Info("Selected batch version")

	records, computeFailures := e.computeRecords(ctx, candidates, version, req)

	if err := e.deps.Scores.UpsertBatch(ctx, records); err != nil {
		e.failBatch(ctx, batch, err)
		return nil, fmt.Errorf("persist scores: %w", err)
	}

	result := &contracts.BatchResult{
		BatchID:  batch.ID,
		Version:  version,
		ZIPCount: len(units),
		Failed:   candidateFailures + computeFailures,
	}
	for _, rec := range records {
		if rec.AdjustedScore != nil {
			result.Scored++
		}
		if !rec.DataSufficient {
			result.Insufficient++
		}
	}

	e.finishBatch(ctx, batch, version, result)

	e.logger.WithFields(map[string]interface{}{
		"batch_id":     batch.ID.String(),
		"scored":       result.Scored,
		"insufficient": result.Insufficient,
		"failed":       result.Failed,
	}).Info("Scoring batch completed")

	return result, nil
}

// collectCandidates resolves rent, latest home-value month and latest tax
// vintage for every ZIP and bedroom pair. Failures are logged and counted
// but do not stop the batch.
func (e *Engine) collectCandidates(ctx context.Context, units []*contracts.GeoUnit, bedrooms []int, fiscalYear int) ([]Candidate, int) {
	total := len(units) * len(bedrooms)
	jobsCh := make(chan candidateJob, total)
	resultCh := make(chan candidateResult, total)

	var wg sync.WaitGroup
	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobsCh {
				select {
				case <-ctx.Done():
					resultCh <- candidateResult{candidate: Candidate{ZIP: job.unit.ZIP, Bedrooms: job.bedrooms}, err: ctx.Err()}
					return
				default:
				}
				c, err := e.buildCandidate(ctx, job.unit.ZIP, job.bedrooms, fiscalYear)
				resultCh <- candidateResult{candidate: c, err: err}
			}
		}()
	}

	for _, unit := range units {
		for _, bd := range bedrooms {
			jobsCh <- candidateJob{unit: unit, bedrooms: bd}
		}
	}
	close(jobsCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	candidates := make([]Candidate, 0, total)
	failures := 0
	for result := range resultCh {
		if result.err != nil {
			failures++
			e.logger.WithFields(map[string]interface{}{
				"zip":      result.candidate.ZIP,
				"bedrooms": result.candidate.Bedrooms,
			}).WithError(result.err).Error("Candidate collection failed")
			continue
		}
		candidates = append(candidates, result.candidate)
	}
	return candidates, failures
}

func (e *Engine) buildCandidate(ctx context.Context, zip string, bedrooms, fiscalYear int) (Candidate, error) {
	c := Candidate{ZIP: zip, Bedrooms: bedrooms}

	rent, err := e.deps.Rent.Resolve(ctx, zip, fiscalYear, bedrooms)
	if err != nil {
		return c, fmt.Errorf("resolve rent: %w", err)
	}
	c.Rent = rent

	month, err := e.deps.Values.GetLatestMonth(ctx, zip, bedrooms)
	if err != nil {
		return c, fmt.Errorf("latest home-value month: %w", err)
	}
	c.LatestMonth = month

	vintage, err := e.deps.Taxes.GetLatestVintage(ctx, zip)
	if err != nil {
		return c, fmt.Errorf("latest tax vintage: %w", err)
	}
	c.LatestVintage = vintage

	return c, nil
}

// computeRecords scores every candidate against the batch version.
func (e *Engine) computeRecords(ctx context.Context, candidates []Candidate, version contracts.DataVersion, req contracts.BatchRequest) ([]*contracts.InvestmentScoreRecord, int) {
	jobsCh := make(chan Candidate, len(candidates))
	resultCh := make(chan recordResult, len(candidates))

	var wg sync.WaitGroup
	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range jobsCh {
				select {
				case <-ctx.Done():
					resultCh <- recordResult{zip: c.ZIP, err: ctx.Err()}
					return
				default:
				}
				rec, err := e.computeRecord(ctx, c, version, req)
				resultCh <- recordResult{record: rec, zip: c.ZIP, err: err}
			}
		}()
	}

	for _, c := range candidates {
		jobsCh <- c
	}
	close(jobsCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	records := make([]*contracts.InvestmentScoreRecord, 0, len(candidates))
	failures := 0
	for result := range resultCh {
		if result.err != nil {
			failures++
			e.logger.WithFields(map[string]interface{}{
				"zip": result.zip,
			}).WithError(result.err).Error("Record computation failed")
			continue
		}
		records = append(records, result.record)
	}
	return records, failures
}

// computeRecord builds one investment score record at the batch version.
// Records missing rent or a home value at the version month are kept with
// data_sufficient=false and a null score, never dropped.
func (e *Engine) computeRecord(ctx context.Context, c Candidate, version contracts.DataVersion, req contracts.BatchRequest) (*contracts.InvestmentScoreRecord, error) {
	record := &contracts.InvestmentScoreRecord{
		ZIP:              c.ZIP,
		Bedrooms:         c.Bedrooms,
		Version:          version,
		DemandMultiplier: 1.0,
		ComputedAt:       time.Now(),
	}

	value, err := e.deps.Values.GetValue(ctx, c.ZIP, c.Bedrooms, version.HomeValueMonth)
	if err != nil {
		return nil, fmt.Errorf("home value at %s: %w", version.HomeValueMonth.Format("2006-01"), err)
	}
	record.PropertyValue = value

	if c.Rent != nil {
		annualRent := *c.Rent * 12
		record.AnnualRent = &annualRent
	}

	if c.Rent == nil || value == nil {
		return record, nil
	}

	taxRate, err := e.deps.Taxes.GetRate(ctx, c.ZIP, version.TaxVintage)
	if err != nil {
		return nil, fmt.Errorf("tax rate vintage %d: %w", version.TaxVintage, err)
	}
	if taxRate == nil {
		taxRate = req.TaxFallback
	}

	record.DataSufficient = true

	if taxRate == nil {
		// Rent and value are present but no tax rate is known and the
		// request carries no fallback, so the score stays null.
		return record, nil
	}
	record.TaxRate = taxRate

	yield, err := Calculate(*c.Rent, *value, *taxRate, req.MedianYield)
	if err != nil {
		return nil, err
	}
	if yield == nil {
		record.DataSufficient = false
		return record, nil
	}

	record.AnnualRent = &yield.AnnualRent
	record.AnnualTaxes = &yield.AnnualTaxes
	record.NetYield = &yield.NetYield
	record.RentToPriceRatio = &yield.RentToPriceRatio
	record.BaseScore = &yield.BaseScore

	demandScore, err := e.deps.Demand.Resolve(ctx, c.ZIP, version.HomeValueMonth)
	if err != nil {
		return nil, fmt.Errorf("resolve demand: %w", err)
	}
	record.DemandScore = demandScore

	adjusted, multiplier, err := e.adjuster.Adjust(yield.BaseScore, demandScore)
	if err != nil {
		return nil, err
	}
	record.DemandMultiplier = multiplier
	record.AdjustedScore = &adjusted

	return record, nil
}

func (e *Engine) finishBatch(ctx context.Context, batch *contracts.ScoreBatch, version contracts.DataVersion, result *contracts.BatchResult) {
	now := time.Now()
	batch.HomeValueMonth = &version.HomeValueMonth
	batch.TaxVintage = &version.TaxVintage
	batch.ScoredCount = result.Scored
	batch.InsufficientCount = result.Insufficient
	batch.Status = contracts.BatchCompleted
	batch.FinishedAt = &now

	if err := e.deps.Batches.Update(ctx, batch); err != nil {
		e.logger.WithField("batch_id", batch.ID.String()).WithError(err).Error("Failed to update batch record")
	}

	metrics.RecordBatch(batch.State, now.Sub(batch.StartedAt), result.Scored, result.Insufficient, result.Failed, true)
}

func (e *Engine) failBatch(ctx context.Context, batch *contracts.ScoreBatch, cause error) {
	now := time.Now()
	batch.Status = contracts.BatchFailed
	batch.Error = cause.Error()
	batch.FinishedAt = &now

	if err := e.deps.Batches.Update(ctx, batch); err != nil {
		e.logger.WithField("batch_id", batch.ID.String()).WithError(err).Error("Failed to update batch record")
	}

	metrics.RecordBatch(batch.State, now.Sub(batch.StartedAt), 0, 0, 0, false)
}

func validateRequest(req contracts.BatchRequest) error {
	if req.State == "" {
		return fmt.Errorf("%w: state is required", ErrInvalidInput)
	}
	if req.FiscalYear < 2000 || req.FiscalYear > 2100 {
		return fmt.Errorf("%w: fiscal year %d out of range", ErrInvalidInput, req.FiscalYear)
	}
	if req.MedianYield <= 0 || math.IsNaN(req.MedianYield) || math.IsInf(req.MedianYield, 0) {
		return fmt.Errorf("%w: median yield must be positive, got %v", ErrInvalidInput, req.MedianYield)
	}
	for _, bd := range req.Bedrooms {
		if bd < 0 || bd > 5 {
			return fmt.Errorf("%w: bedrooms %d out of range", ErrInvalidInput, bd)
		}
	}
	if req.TaxFallback != nil && (*req.TaxFallback <= 0 || *req.TaxFallback >= 1) {
		return fmt.Errorf("%w: tax fallback %v out of range", ErrInvalidInput, *req.TaxFallback)
	}
	return nil
}

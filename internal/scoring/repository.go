package scoring

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rentscope/backend/internal/contracts"
)

// ScoreRepository implements contracts.ScoreRepository
type ScoreRepository struct {
	pool *pgxpool.Pool
}

func NewScoreRepository(pool *pgxpool.Pool) *ScoreRepository {
	return &ScoreRepository{pool: pool}
}

const scoreColumns = `
	zip, bedrooms, fiscal_year, home_value_month, tax_vintage,
	property_value, tax_rate, annual_rent, annual_taxes, net_yield,
	rent_to_price_ratio, base_score, demand_score, demand_multiplier,
	adjusted_score, data_sufficient, computed_at
`

// UpsertBatch saves score records, replacing rows that share the same
// natural key
func (r *ScoreRepository) UpsertBatch(ctx context.Context, records []*contracts.InvestmentScoreRecord) error {
	if len(records) == 0 {
		return nil
	}

	query := `
		INSERT INTO scores.investment_scores (` + scoreColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (zip, bedrooms, fiscal_year, home_value_month, tax_vintage) DO UPDATE SET
			property_value = EXCLUDED.property_value,
			tax_rate = EXCLUDED.tax_rate,
			annual_rent = EXCLUDED.annual_rent,
			annual_taxes = EXCLUDED.annual_taxes,
			net_yield = EXCLUDED.net_yield,
			rent_to_price_ratio = EXCLUDED.rent_to_price_ratio,
			base_score = EXCLUDED.base_score,
			demand_score = EXCLUDED.demand_score,
			demand_multiplier = EXCLUDED.demand_multiplier,
			adjusted_score = EXCLUDED.adjusted_score,
			data_sufficient = EXCLUDED.data_sufficient,
			computed_at = EXCLUDED.computed_at
	`

	for _, rec := range records {
		_, err := r.pool.Exec(ctx, query,
			rec.ZIP, rec.Bedrooms, rec.Version.FiscalYear, rec.Version.HomeValueMonth, rec.Version.TaxVintage,
			rec.PropertyValue, rec.TaxRate, rec.AnnualRent, rec.AnnualTaxes, rec.NetYield,
			rec.RentToPriceRatio, rec.BaseScore, rec.DemandScore, rec.DemandMultiplier,
			rec.AdjustedScore, rec.DataSufficient, rec.ComputedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert score %s/%d: %w", rec.ZIP, rec.Bedrooms, err)
		}
	}
	return nil
}

// GetByKey retrieves one score record by its natural key
func (r *ScoreRepository) GetByKey(ctx context.Context, zip string, bedrooms int, version contracts.DataVersion) (*contracts.InvestmentScoreRecord, error) {
	query := `
		SELECT ` + scoreColumns + `
		FROM scores.investment_scores
		WHERE zip = $1 AND bedrooms = $2 AND fiscal_year = $3
			AND home_value_month = $4 AND tax_vintage = $5
	`

	rec, err := scanScore(r.pool.QueryRow(ctx, query, zip, bedrooms, version.FiscalYear, version.HomeValueMonth, version.TaxVintage))
	if err == pgx.ErrNoRows {
		return nil, nil // Not found, not an error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get score %s/%d: %w", zip, bedrooms, err)
	}
	return rec, nil
}

// ListByZIP retrieves every score record for a ZIP in a fiscal year,
// newest version first
func (r *ScoreRepository) ListByZIP(ctx context.Context, zip string, fiscalYear int) ([]*contracts.InvestmentScoreRecord, error) {
	query := `
		SELECT ` + scoreColumns + `
		FROM scores.investment_scores
		WHERE zip = $1 AND fiscal_year = $2
		ORDER BY home_value_month DESC, tax_vintage DESC, bedrooms ASC
	`

	rows, err := r.pool.Query(ctx, query, zip, fiscalYear)
	if err != nil {
		return nil, fmt.Errorf("failed to list scores for %s: %w", zip, err)
	}
	defer rows.Close()

	return scanScores(rows)
}

// ListByVersion retrieves score records for a set of ZIPs at one version
func (r *ScoreRepository) ListByVersion(ctx context.Context, zips []string, bedrooms int, version contracts.DataVersion) ([]*contracts.InvestmentScoreRecord, error) {
	if len(zips) == 0 {
		return nil, nil
	}

	query := `
		SELECT ` + scoreColumns + `
		FROM scores.investment_scores
		WHERE zip = ANY($1) AND bedrooms = $2 AND fiscal_year = $3
			AND home_value_month = $4 AND tax_vintage = $5
		ORDER BY zip ASC
	`

	rows, err := r.pool.Query(ctx, query, zips, bedrooms, version.FiscalYear, version.HomeValueMonth, version.TaxVintage)
	if err != nil {
		return nil, fmt.Errorf("failed to list scores by version: %w", err)
	}
	defer rows.Close()

	return scanScores(rows)
}

// GetLatestVersion retrieves the newest persisted version for a fiscal
// year, by home-value month then tax vintage
func (r *ScoreRepository) GetLatestVersion(ctx context.Context, fiscalYear int) (*contracts.DataVersion, error) {
	query := `
		SELECT fiscal_year, home_value_month, tax_vintage
		FROM scores.investment_scores
		WHERE fiscal_year = $1
		ORDER BY home_value_month DESC, tax_vintage DESC
		LIMIT 1
	`

	var v contracts.DataVersion
	err := r.pool.QueryRow(ctx, query, fiscalYear).Scan(&v.FiscalYear, &v.HomeValueMonth, &v.TaxVintage)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest version for %d: %w", fiscalYear, err)
	}
	return &v, nil
}

type scoreRow interface {
	Scan(dest ...any) error
}

func scanScore(row scoreRow) (*contracts.InvestmentScoreRecord, error) {
	var rec contracts.InvestmentScoreRecord
	err := row.Scan(
		&rec.ZIP, &rec.Bedrooms, &rec.Version.FiscalYear, &rec.Version.HomeValueMonth, &rec.Version.TaxVintage,
		&rec.PropertyValue, &rec.TaxRate, &rec.AnnualRent, &rec.AnnualTaxes, &rec.NetYield,
		&rec.RentToPriceRatio, &rec.BaseScore, &rec.DemandScore, &rec.DemandMultiplier,
		&rec.AdjustedScore, &rec.DataSufficient, &rec.ComputedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func scanScores(rows pgx.Rows) ([]*contracts.InvestmentScoreRecord, error) {
	var records []*contracts.InvestmentScoreRecord
	for rows.Next() {
		rec, err := scanScore(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// BatchRepository implements contracts.BatchRepository
type BatchRepository struct {
	pool *pgxpool.Pool
}

func NewBatchRepository(pool *pgxpool.Pool) *BatchRepository {
	return &BatchRepository{pool: pool}
}

// Create inserts a new batch row
func (r *BatchRepository) Create(ctx context.Context, batch *contracts.ScoreBatch) error {
	query := `
		INSERT INTO scores.score_batches
			(id, state, fiscal_year, home_value_month, tax_vintage, config_id, config_hash,
			 zip_count, scored_count, insufficient_count, status, started_at, finished_at, error)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''),
			$8, $9, $10, $11, $12, $13, NULLIF($14, ''))
	`

	_, err := r.pool.Exec(ctx, query,
		batch.ID, batch.State, batch.FiscalYear, batch.HomeValueMonth, batch.TaxVintage,
		batch.ConfigID, batch.ConfigHash,
		batch.ZIPCount, batch.ScoredCount, batch.InsufficientCount, batch.Status,
		batch.StartedAt, batch.FinishedAt, batch.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to create batch %s: %w", batch.ID, err)
	}
	return nil
}

// Update replaces the mutable fields of a batch row
func (r *BatchRepository) Update(ctx context.Context, batch *contracts.ScoreBatch) error {
	query := `
		UPDATE scores.score_batches SET
			home_value_month = $2,
			tax_vintage = $3,
			zip_count = $4,
			scored_count = $5,
			insufficient_count = $6,
			status = $7,
			finished_at = $8,
			error = NULLIF($9, '')
		WHERE id = $1
	`

	_, err := r.pool.Exec(ctx, query,
		batch.ID, batch.HomeValueMonth, batch.TaxVintage, batch.ZIPCount,
		batch.ScoredCount, batch.InsufficientCount, batch.Status, batch.FinishedAt, batch.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to update batch %s: %w", batch.ID, err)
	}
	return nil
}

// GetByID retrieves one batch row
func (r *BatchRepository) GetByID(ctx context.Context, id uuid.UUID) (*contracts.ScoreBatch, error) {
	query := `
		SELECT id, COALESCE(state, ''), fiscal_year, home_value_month, tax_vintage,
			COALESCE(config_id, ''), COALESCE(config_hash, ''),
			zip_count, scored_count, insufficient_count, status,
			started_at, finished_at, COALESCE(error, '')
		FROM scores.score_batches
		WHERE id = $1
	`

	var b contracts.ScoreBatch
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&b.ID, &b.State, &b.FiscalYear, &b.HomeValueMonth, &b.TaxVintage,
		&b.ConfigID, &b.ConfigHash,
		&b.ZIPCount, &b.ScoredCount, &b.InsufficientCount, &b.Status,
		&b.StartedAt, &b.FinishedAt, &b.Error,
	)
	if err == pgx.ErrNoRows {
		return nil, nil // Not found, not an error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get batch %s: %w", id, err)
	}
	return &b, nil
}

// ListRecent retrieves the most recently started batches
func (r *BatchRepository) ListRecent(ctx context.Context, limit int) ([]*contracts.ScoreBatch, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, COALESCE(state, ''), fiscal_year, home_value_month, tax_vintage,
			COALESCE(config_id, ''), COALESCE(config_hash, ''),
			zip_count, scored_count, insufficient_count, status,
			started_at, finished_at, COALESCE(error, '')
		FROM scores.score_batches
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer rows.Close()

	var batches []*contracts.ScoreBatch
	for rows.Next() {
		var b contracts.ScoreBatch
		if err := rows.Scan(
			&b.ID, &b.State, &b.FiscalYear, &b.HomeValueMonth, &b.TaxVintage,
			&b.ConfigID, &b.ConfigHash,
			&b.ZIPCount, &b.ScoredCount, &b.InsufficientCount, &b.Status,
			&b.StartedAt, &b.FinishedAt, &b.Error,
		); err != nil {
			return nil, err
		}
		batches = append(batches, &b)
	}
	return batches, rows.Err()
}

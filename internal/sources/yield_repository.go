package sources

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// YieldRepository implements contracts.YieldRepository
type YieldRepository struct {
	pool *pgxpool.Pool
}

func NewYieldRepository(pool *pgxpool.Pool) *YieldRepository {
	return &YieldRepository{pool: pool}
}

// GetMedianYield retrieves the population median yield for a fiscal year
func (r *YieldRepository) GetMedianYield(ctx context.Context, fiscalYear int) (*float64, error) {
	query := `
		SELECT median_yield
		FROM data.population_yields
		WHERE fiscal_year = $1
	`

	var medianYield float64
	err := r.pool.QueryRow(ctx, query, fiscalYear).Scan(&medianYield)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get median yield for %d: %w", fiscalYear, err)
	}
	return &medianYield, nil
}

// Save stores the population median yield for a fiscal year
func (r *YieldRepository) Save(ctx context.Context, fiscalYear int, medianYield float64) error {
	query := `
		INSERT INTO data.population_yields (fiscal_year, median_yield)
		VALUES ($1, $2)
		ON CONFLICT (fiscal_year) DO UPDATE SET
			median_yield = EXCLUDED.median_yield
	`

	_, err := r.pool.Exec(ctx, query, fiscalYear, medianYield)
	if err != nil {
		return fmt.Errorf("failed to save median yield for %d: %w", fiscalYear, err)
	}
	return nil
}

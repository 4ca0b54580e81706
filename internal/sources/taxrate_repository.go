package sources

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rentscope/backend/internal/contracts"
)

// TaxRateRepository implements contracts.TaxRateRepository
type TaxRateRepository struct {
	pool *pgxpool.Pool
}

func NewTaxRateRepository(pool *pgxpool.Pool) *TaxRateRepository {
	return &TaxRateRepository{pool: pool}
}

// GetRate retrieves the effective tax rate for a ZIP at an exact vintage
func (r *TaxRateRepository) GetRate(ctx context.Context, zip string, vintage int) (*float64, error) {
	query := `
		SELECT rate
		FROM data.tax_rates
		WHERE zip = $1 AND vintage = $2
	`

	var rate float64
	err := r.pool.QueryRow(ctx, query, zip, vintage).Scan(&rate)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tax rate %s/%d: %w", zip, vintage, err)
	}
	return &rate, nil
}

// GetLatestVintage retrieves the newest vintage with a rate for a ZIP
func (r *TaxRateRepository) GetLatestVintage(ctx context.Context, zip string) (*int, error) {
	query := `
		SELECT vintage
		FROM data.tax_rates
		WHERE zip = $1
		ORDER BY vintage DESC
		LIMIT 1
	`

	var vintage int
	err := r.pool.QueryRow(ctx, query, zip).Scan(&vintage)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest vintage %s: %w", zip, err)
	}
	return &vintage, nil
}

// SaveBatch saves tax rate observations
func (r *TaxRateRepository) SaveBatch(ctx context.Context, observations []*contracts.TaxRateObservation) error {
	if len(observations) == 0 {
		return nil
	}

	query := `
		INSERT INTO data.tax_rates (zip, vintage, rate)
		VALUES ($1, $2, $3)
		ON CONFLICT (zip, vintage) DO UPDATE SET
			rate = EXCLUDED.rate
	`

	for _, o := range observations {
		if _, err := r.pool.Exec(ctx, query, o.ZIP, o.Vintage, o.Rate); err != nil {
			return fmt.Errorf("failed to save tax rate %s/%d: %w", o.ZIP, o.Vintage, err)
		}
	}
	return nil
}

package sources

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rentscope/backend/internal/contracts"
)

// RentRepository implements contracts.RentRepository
type RentRepository struct {
	pool *pgxpool.Pool
}

func NewRentRepository(pool *pgxpool.Pool) *RentRepository {
	return &RentRepository{pool: pool}
}

// GetCountyCeiling retrieves the county rent ceiling for a fiscal year
// and bedroom count. A missing row and a null amount both come back nil.
func (r *RentRepository) GetCountyCeiling(ctx context.Context, countyFIPS, state string, fiscalYear, bedrooms int) (*float64, error) {
	query := `
		SELECT amount
		FROM data.county_rent_ceilings
		WHERE county_fips = $1 AND state = $2 AND fiscal_year = $3 AND bedrooms = $4
	`

	var amount *float64
	err := r.pool.QueryRow(ctx, query, countyFIPS, state, fiscalYear, bedrooms).Scan(&amount)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get county ceiling %s/%d: %w", countyFIPS, bedrooms, err)
	}
	return amount, nil
}

// GetZIPCeiling retrieves the ZIP-level rent ceiling
func (r *RentRepository) GetZIPCeiling(ctx context.Context, zip string, fiscalYear, bedrooms int) (*float64, error) {
	query := `
		SELECT amount
		FROM data.zip_rent_ceilings
		WHERE zip = $1 AND fiscal_year = $2 AND bedrooms = $3
	`

	var amount *float64
	err := r.pool.QueryRow(ctx, query, zip, fiscalYear, bedrooms).Scan(&amount)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get zip ceiling %s/%d: %w", zip, bedrooms, err)
	}
	return amount, nil
}

// IsZIPRentRequired reports whether a ZIP is in the fiscal year's
// small-area set
func (r *RentRepository) IsZIPRentRequired(ctx context.Context, zip string, fiscalYear int) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM data.zip_rent_required
			WHERE zip = $1 AND fiscal_year = $2
		)
	`

	var required bool
	if err := r.pool.QueryRow(ctx, query, zip, fiscalYear).Scan(&required); err != nil {
		return false, fmt.Errorf("failed to check small-area set for %s: %w", zip, err)
	}
	return required, nil
}

// SaveCountyBatch saves county rent ceiling rows
func (r *RentRepository) SaveCountyBatch(ctx context.Context, ceilings []*contracts.CountyRentCeiling) error {
	if len(ceilings) == 0 {
		return nil
	}

	query := `
		INSERT INTO data.county_rent_ceilings (county_fips, state, fiscal_year, bedrooms, amount)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (county_fips, state, fiscal_year, bedrooms) DO UPDATE SET
			amount = EXCLUDED.amount
	`

	for _, c := range ceilings {
		if _, err := r.pool.Exec(ctx, query, c.CountyFIPS, c.State, c.FiscalYear, c.Bedrooms, c.Amount); err != nil {
			return fmt.Errorf("failed to save county ceiling %s: %w", c.CountyFIPS, err)
		}
	}
	return nil
}

// SaveZIPBatch saves ZIP rent ceiling rows
func (r *RentRepository) SaveZIPBatch(ctx context.Context, ceilings []*contracts.ZIPRentCeiling) error {
	if len(ceilings) == 0 {
		return nil
	}

	query := `
		INSERT INTO data.zip_rent_ceilings (zip, fiscal_year, bedrooms, amount)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (zip, fiscal_year, bedrooms) DO UPDATE SET
			amount = EXCLUDED.amount
	`

	for _, c := range ceilings {
		if _, err := r.pool.Exec(ctx, query, c.ZIP, c.FiscalYear, c.Bedrooms, c.Amount); err != nil {
			return fmt.Errorf("failed to save zip ceiling %s: %w", c.ZIP, err)
		}
	}
	return nil
}

// SaveZIPRequired adds a ZIP to the fiscal year's small-area set
func (r *RentRepository) SaveZIPRequired(ctx context.Context, zip string, fiscalYear int) error {
	query := `
		INSERT INTO data.zip_rent_required (zip, fiscal_year)
		VALUES ($1, $2)
		ON CONFLICT (zip, fiscal_year) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query, zip, fiscalYear)
	if err != nil {
		return fmt.Errorf("failed to save small-area zip %s: %w", zip, err)
	}
	return nil
}

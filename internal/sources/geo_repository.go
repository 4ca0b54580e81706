// Package sources implements the repositories over the externally
// loaded source tables in the data schema.
package sources

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rentscope/backend/internal/contracts"
)

// GeoRepository implements contracts.GeoRepository
type GeoRepository struct {
	pool *pgxpool.Pool
}

func NewGeoRepository(pool *pgxpool.Pool) *GeoRepository {
	return &GeoRepository{pool: pool}
}

// GetZIP retrieves reference geography for one ZIP
func (r *GeoRepository) GetZIP(ctx context.Context, zip string) (*contracts.GeoUnit, error) {
	query := `
		SELECT zip, county_fips, county_name, state
		FROM data.zip_codes
		WHERE zip = $1
	`

	var u contracts.GeoUnit
	err := r.pool.QueryRow(ctx, query, zip).Scan(&u.ZIP, &u.CountyFIPS, &u.CountyName, &u.State)
	if err == pgx.ErrNoRows {
		return nil, nil // Not found, not an error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get zip %s: %w", zip, err)
	}
	return &u, nil
}

// ListByState retrieves every ZIP in a state
func (r *GeoRepository) ListByState(ctx context.Context, state string) ([]*contracts.GeoUnit, error) {
	query := `
		SELECT zip, county_fips, county_name, state
		FROM data.zip_codes
		WHERE state = $1
		ORDER BY zip ASC
	`

	rows, err := r.pool.Query(ctx, query, state)
	if err != nil {
		return nil, fmt.Errorf("failed to list zips for state %s: %w", state, err)
	}
	defer rows.Close()

	return scanGeoUnits(rows)
}

// ListByCounty retrieves every ZIP in a county
func (r *GeoRepository) ListByCounty(ctx context.Context, countyFIPS, state string) ([]*contracts.GeoUnit, error) {
	query := `
		SELECT zip, county_fips, county_name, state
		FROM data.zip_codes
		WHERE county_fips = $1 AND state = $2
		ORDER BY zip ASC
	`

	rows, err := r.pool.Query(ctx, query, countyFIPS, state)
	if err != nil {
		return nil, fmt.Errorf("failed to list zips for county %s: %w", countyFIPS, err)
	}
	defer rows.Close()

	return scanGeoUnits(rows)
}

// ListByCity retrieves every ZIP mapped to a city. A ZIP can belong to
// more than one city aggregate.
func (r *GeoRepository) ListByCity(ctx context.Context, city, state string) ([]*contracts.GeoUnit, error) {
	query := `
		SELECT z.zip, z.county_fips, z.county_name, z.state
		FROM data.zip_codes z
		JOIN data.zip_cities c ON c.zip = z.zip
		WHERE LOWER(c.city) = LOWER($1) AND c.state = $2
		ORDER BY z.zip ASC
	`

	rows, err := r.pool.Query(ctx, query, city, state)
	if err != nil {
		return nil, fmt.Errorf("failed to list zips for city %s: %w", city, err)
	}
	defer rows.Close()

	return scanGeoUnits(rows)
}

// SaveBatch saves ZIP reference rows
func (r *GeoRepository) SaveBatch(ctx context.Context, units []*contracts.GeoUnit) error {
	if len(units) == 0 {
		return nil
	}

	query := `
		INSERT INTO data.zip_codes (zip, county_fips, county_name, state)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (zip) DO UPDATE SET
			county_fips = EXCLUDED.county_fips,
			county_name = EXCLUDED.county_name,
			state = EXCLUDED.state
	`

	for _, u := range units {
		if _, err := r.pool.Exec(ctx, query, u.ZIP, u.CountyFIPS, u.CountyName, u.State); err != nil {
			return fmt.Errorf("failed to save zip %s: %w", u.ZIP, err)
		}
	}
	return nil
}

// SaveCityMapping records one ZIP-to-city membership row
func (r *GeoRepository) SaveCityMapping(ctx context.Context, zip, city, state string) error {
	query := `
		INSERT INTO data.zip_cities (zip, city, state)
		VALUES ($1, $2, $3)
		ON CONFLICT (zip, city, state) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query, zip, city, state)
	if err != nil {
		return fmt.Errorf("failed to save city mapping %s/%s: %w", zip, city, err)
	}
	return nil
}

func scanGeoUnits(rows pgx.Rows) ([]*contracts.GeoUnit, error) {
	var units []*contracts.GeoUnit
	for rows.Next() {
		var u contracts.GeoUnit
		if err := rows.Scan(&u.ZIP, &u.CountyFIPS, &u.CountyName, &u.State); err != nil {
			return nil, err
		}
		units = append(units, &u)
	}
	return units, rows.Err()
}

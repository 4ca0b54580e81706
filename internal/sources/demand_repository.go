package sources

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rentscope/backend/internal/contracts"
)

// DemandRepository implements contracts.DemandRepository
type DemandRepository struct {
	pool *pgxpool.Pool
}

func NewDemandRepository(pool *pgxpool.Pool) *DemandRepository {
	return &DemandRepository{pool: pool}
}

// GetRentIndex retrieves the rent-index row for a ZIP at an exact month
func (r *DemandRepository) GetRentIndex(ctx context.Context, zip string, month time.Time) (*contracts.RentIndexObservation, error) {
	query := `
		SELECT zip, month, value, metro
		FROM data.rent_index
		WHERE zip = $1 AND month = $2
	`

	var o contracts.RentIndexObservation
	err := r.pool.QueryRow(ctx, query, zip, month).Scan(&o.ZIP, &o.Month, &o.Value, &o.Metro)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rent index %s: %w", zip, err)
	}
	return &o, nil
}

// ListDemandIndexByMonth retrieves every metro demand reading for a month
func (r *DemandRepository) ListDemandIndexByMonth(ctx context.Context, month time.Time) ([]*contracts.DemandIndexObservation, error) {
	query := `
		SELECT metro, month, value
		FROM data.demand_index
		WHERE month = $1
		ORDER BY metro ASC
	`

	rows, err := r.pool.Query(ctx, query, month)
	if err != nil {
		return nil, fmt.Errorf("failed to list demand index for %s: %w", month.Format("2006-01"), err)
	}
	defer rows.Close()

	var observations []*contracts.DemandIndexObservation
	for rows.Next() {
		var o contracts.DemandIndexObservation
		if err := rows.Scan(&o.Metro, &o.Month, &o.Value); err != nil {
			return nil, err
		}
		observations = append(observations, &o)
	}
	return observations, rows.Err()
}

// SaveRentIndexBatch saves rent-index observations
func (r *DemandRepository) SaveRentIndexBatch(ctx context.Context, observations []*contracts.RentIndexObservation) error {
	if len(observations) == 0 {
		return nil
	}

	query := `
		INSERT INTO data.rent_index (zip, month, value, metro)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (zip, month) DO UPDATE SET
			value = EXCLUDED.value,
			metro = EXCLUDED.metro
	`

	for _, o := range observations {
		if _, err := r.pool.Exec(ctx, query, o.ZIP, o.Month, o.Value, o.Metro); err != nil {
			return fmt.Errorf("failed to save rent index %s: %w", o.ZIP, err)
		}
	}
	return nil
}

// SaveDemandIndexBatch saves metro demand readings
func (r *DemandRepository) SaveDemandIndexBatch(ctx context.Context, observations []*contracts.DemandIndexObservation) error {
	if len(observations) == 0 {
		return nil
	}

	query := `
		INSERT INTO data.demand_index (metro, month, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (metro, month) DO UPDATE SET
			value = EXCLUDED.value
	`

	for _, o := range observations {
		if _, err := r.pool.Exec(ctx, query, o.Metro, o.Month, o.Value); err != nil {
			return fmt.Errorf("failed to save demand index %s: %w", o.Metro, err)
		}
	}
	return nil
}

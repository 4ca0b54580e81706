package sources

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rentscope/backend/internal/contracts"
)

// HomeValueRepository implements contracts.HomeValueRepository
type HomeValueRepository struct {
	pool *pgxpool.Pool
}

func NewHomeValueRepository(pool *pgxpool.Pool) *HomeValueRepository {
	return &HomeValueRepository{pool: pool}
}

// GetValue retrieves the home value for a ZIP and bedroom count at an
// exact month
func (r *HomeValueRepository) GetValue(ctx context.Context, zip string, bedrooms int, month time.Time) (*float64, error) {
	query := `
		SELECT value
		FROM data.home_values
		WHERE zip = $1 AND bedrooms = $2 AND month = $3
	`

	var value float64
	err := r.pool.QueryRow(ctx, query, zip, bedrooms, month).Scan(&value)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get home value %s/%d: %w", zip, bedrooms, err)
	}
	return &value, nil
}

// GetLatestMonth retrieves the newest observed month in the series
func (r *HomeValueRepository) GetLatestMonth(ctx context.Context, zip string, bedrooms int) (*time.Time, error) {
	query := `
		SELECT month
		FROM data.home_values
		WHERE zip = $1 AND bedrooms = $2
		ORDER BY month DESC
		LIMIT 1
	`

	var month time.Time
	err := r.pool.QueryRow(ctx, query, zip, bedrooms).Scan(&month)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest month %s/%d: %w", zip, bedrooms, err)
	}
	return &month, nil
}

// SaveBatch saves home-value observations
func (r *HomeValueRepository) SaveBatch(ctx context.Context, observations []*contracts.HomeValueObservation) error {
	if len(observations) == 0 {
		return nil
	}

	query := `
		INSERT INTO data.home_values (zip, bedrooms, month, value)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (zip, bedrooms, month) DO UPDATE SET
			value = EXCLUDED.value
	`

	for _, o := range observations {
		if _, err := r.pool.Exec(ctx, query, o.ZIP, o.Bedrooms, o.Month, o.Value); err != nil {
			return fmt.Errorf("failed to save home value %s/%d: %w", o.ZIP, o.Bedrooms, err)
		}
	}
	return nil
}

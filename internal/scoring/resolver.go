package scoring

import (
	"context"
	"fmt"

	"github.com/rentscope/backend/internal/contracts"
	"github.com/rentscope/backend/pkg/logger"
)

// RentResolver picks the statutory rent ceiling for a ZIP. ZIPs in the
// fiscal year's small-area set use the ZIP-level value and strictly
// override the county value; the two sources are never blended.
type RentResolver struct {
	geo    contracts.GeoRepository
	rent   contracts.RentRepository
	logger *logger.Logger
}

func NewRentResolver(geo contracts.GeoRepository, rent contracts.RentRepository, log *logger.Logger) *RentResolver {
	return &RentResolver{
		geo:    geo,
		rent:   rent,
		logger: log.WithField("component", "rent_resolver"),
	}
}

// Resolve returns the monthly rent ceiling for a ZIP, fiscal year and
// bedroom count, or nil when neither source has a value.
func (r *RentResolver) Resolve(ctx context.Context, zip string, fiscalYear, bedrooms int) (*float64, error) {
	required, err := r.rent.IsZIPRentRequired(ctx, zip, fiscalYear)
	if err != nil {
		return nil, fmt.Errorf("check small-area set: %w", err)
	}

	if required {
		amount, err := r.rent.GetZIPCeiling(ctx, zip, fiscalYear, bedrooms)
		if err != nil {
			return nil, fmt.Errorf("get zip ceiling: %w", err)
		}
		if amount != nil {
			return amount, nil
		}
		// The ZIP is in the small-area set but has no value for this
		// bedroom count, so the county value applies.
		r.logger.WithFields(map[string]interface{}{
			"zip":      zip,
			"bedrooms": bedrooms,
		}).Debug("ZIP ceiling missing, falling back to county")
	}

	unit, err := r.geo.GetZIP(ctx, zip)
	if err != nil {
		return nil, fmt.Errorf("get zip geography: %w", err)
	}
	if unit == nil {
		return nil, nil
	}

	amount, err := r.rent.GetCountyCeiling(ctx, unit.CountyFIPS, unit.State, fiscalYear, bedrooms)
	if err != nil {
		return nil, fmt.Errorf("get county ceiling: %w", err)
	}
	return amount, nil
}

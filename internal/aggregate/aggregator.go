// Package aggregate rolls ZIP-level investment scores up to city,
// county and state geographies.
package aggregate

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/rentscope/backend/internal/contracts"
)

// ErrNoRecords means no record survived the participation filter for
// the requested geography.
var ErrNoRecords = errors.New("aggregate: no scorable records")

// Aggregator computes rollups over version-consistent score records.
type Aggregator struct {
	minZIPCount int
	log         zerolog.Logger
}

func NewAggregator(log zerolog.Logger) *Aggregator {
	return &Aggregator{
		minZIPCount: 1,
		log:         log.With().Str("component", "aggregate.aggregator").Logger(),
	}
}

// NewAggregatorWithMinZIPs requires a minimum number of participating
// ZIPs before a rollup is published.
func NewAggregatorWithMinZIPs(minZIPCount int, log zerolog.Logger) *Aggregator {
	if minZIPCount < 1 {
		minZIPCount = 1
	}
	return &Aggregator{
		minZIPCount: minZIPCount,
		log:         log.With().Str("component", "aggregate.aggregator").Logger(),
	}
}

// Aggregate computes the rollup for one geography. Only scorable records
// carrying exactly the requested version participate; records at any
// other version are excluded and logged, since mixing versions would
// blend observations from different months.
func (a *Aggregator) Aggregate(geoType contracts.GeoType, geoKey string, records []*contracts.InvestmentScoreRecord, version contracts.DataVersion) (*contracts.AggregateResult, error) {
	var (
		scores     []float64
		yields     []float64
		values     []float64
		taxes      []float64
		mismatched int
	)

	for _, rec := range records {
		if !rec.Version.Equal(version) {
			mismatched++
			continue
		}
		if !rec.Scorable() {
			continue
		}
		scores = append(scores, *rec.AdjustedScore)
		if rec.NetYield != nil {
			yields = append(yields, *rec.NetYield)
		}
		if rec.PropertyValue != nil {
			values = append(values, *rec.PropertyValue)
		}
		if rec.TaxRate != nil {
			taxes = append(taxes, *rec.TaxRate)
		}
	}

	if mismatched > 0 {
		a.log.Warn().
			Str("geo_type", string(geoType)).
			Str("geo_key", geoKey).
			Str("version", version.Key()).
			Int("mismatched", mismatched).
			Msg("excluded records with a different version")
	}

	if len(scores) == 0 {
		return nil, fmt.Errorf("%w: %s %s", ErrNoRecords, geoType, geoKey)
	}
	if len(scores) < a.minZIPCount {
		return nil, fmt.Errorf("%w: %s %s has %d zips, need %d", ErrNoRecords, geoType, geoKey, len(scores), a.minZIPCount)
	}

	sorted := make([]float64, len(scores))
	copy(sorted, scores)
	sort.Float64s(sorted)

	result := &contracts.AggregateResult{
		GeoType:              geoType,
		GeoKey:               geoKey,
		FiscalYear:           version.FiscalYear,
		Version:              version,
		ZIPCount:             len(scores),
		MedianScore:          median(sorted),
		AverageScore:         stat.Mean(scores, nil),
		AverageYield:         mean(yields),
		AveragePropertyValue: mean(values),
		AverageTaxRate:       mean(taxes),
	}

	a.log.Debug().
		Str("geo_type", string(geoType)).
		Str("geo_key", geoKey).
		Int("zip_count", result.ZIPCount).
		Float64("median_score", result.MedianScore).
		Float64("average_score", result.AverageScore).
		Msg("aggregate calculated")

	return result, nil
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

// median of an already sorted slice, averaging the middle pair for even
// counts.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

package aggregate

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentscope/backend/internal/contracts"
)

func ptr(v float64) *float64 { return &v }

func testVersion() contracts.DataVersion {
	return contracts.DataVersion{
		FiscalYear:     2026,
		HomeValueMonth: time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC),
		TaxVintage:     2024,
	}
}

func scorableRecord(zip string, version contracts.DataVersion, score, yield, value, taxRate float64) *contracts.InvestmentScoreRecord {
	return &contracts.InvestmentScoreRecord{
		ZIP:              zip,
		Bedrooms:         3,
		Version:          version,
		PropertyValue:    ptr(value),
		TaxRate:          ptr(taxRate),
		NetYield:         ptr(yield),
		BaseScore:        ptr(score),
		DemandMultiplier: 1.0,
		AdjustedScore:    ptr(score),
		DataSufficient:   true,
		ComputedAt:       time.Now(),
	}
}

func TestAggregate(t *testing.T) {
	version := testVersion()
	records := []*contracts.InvestmentScoreRecord{
		scorableRecord("77001", version, 100, 0.050, 200000, 0.010),
		scorableRecord("77002", version, 150, 0.060, 250000, 0.012),
		scorableRecord("77003", version, 200, 0.070, 300000, 0.014),
		scorableRecord("77004", version, 250, 0.080, 350000, 0.016),
		scorableRecord("77005", version, 300, 0.090, 400000, 0.018),
	}

	a := NewAggregator(zerolog.Nop())
	result, err := a.Aggregate(contracts.GeoCounty, "48201", records, version)
	require.NoError(t, err)

	assert.Equal(t, contracts.GeoCounty, result.GeoType)
	assert.Equal(t, "48201", result.GeoKey)
	assert.Equal(t, 2026, result.FiscalYear)
	assert.Equal(t, 5, result.ZIPCount)
	assert.InDelta(t, 200.0, result.MedianScore, 1e-9)
	assert.InDelta(t, 200.0, result.AverageScore, 1e-9)
	assert.InDelta(t, 0.070, result.AverageYield, 1e-9)
	assert.InDelta(t, 300000.0, result.AveragePropertyValue, 1e-9)
	assert.InDelta(t, 0.014, result.AverageTaxRate, 1e-9)
}

func TestAggregateEvenCountMedian(t *testing.T) {
	version := testVersion()
	records := []*contracts.InvestmentScoreRecord{
		scorableRecord("77001", version, 100, 0.05, 200000, 0.01),
		scorableRecord("77002", version, 200, 0.06, 250000, 0.01),
		scorableRecord("77003", version, 300, 0.07, 300000, 0.01),
		scorableRecord("77004", version, 400, 0.08, 350000, 0.01),
	}

	a := NewAggregator(zerolog.Nop())
	result, err := a.Aggregate(contracts.GeoCity, "houston", records, version)
	require.NoError(t, err)
	assert.InDelta(t, 250.0, result.MedianScore, 1e-9)
}

func TestAggregateExcludesOtherVersions(t *testing.T) {
	version := testVersion()
	stale := version
	stale.HomeValueMonth = time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

	records := []*contracts.InvestmentScoreRecord{
		scorableRecord("77001", version, 100, 0.05, 200000, 0.01),
		scorableRecord("77002", version, 300, 0.07, 300000, 0.01),
		// Stale version with an extreme score. It must not move the
		// rollup.
		scorableRecord("77003", stale, 10000, 0.50, 900000, 0.05),
	}

	a := NewAggregator(zerolog.Nop())
	result, err := a.Aggregate(contracts.GeoCounty, "48201", records, version)
	require.NoError(t, err)

	assert.Equal(t, 2, result.ZIPCount)
	assert.InDelta(t, 200.0, result.MedianScore, 1e-9)
	assert.InDelta(t, 200.0, result.AverageScore, 1e-9)
}

func TestAggregateExcludesUnscorableRecords(t *testing.T) {
	version := testVersion()
	insufficient := &contracts.InvestmentScoreRecord{
		ZIP:              "77002",
		Bedrooms:         3,
		Version:          version,
		DemandMultiplier: 1.0,
		DataSufficient:   false,
	}
	nullScore := &contracts.InvestmentScoreRecord{
		ZIP:              "77003",
		Bedrooms:         3,
		Version:          version,
		PropertyValue:    ptr(250000),
		AnnualRent:       ptr(14400),
		DemandMultiplier: 1.0,
		DataSufficient:   true,
	}
	records := []*contracts.InvestmentScoreRecord{
		scorableRecord("77001", version, 150, 0.06, 250000, 0.012),
		insufficient,
		nullScore,
	}

	a := NewAggregator(zerolog.Nop())
	result, err := a.Aggregate(contracts.GeoCounty, "48201", records, version)
	require.NoError(t, err)

	assert.Equal(t, 1, result.ZIPCount)
	assert.InDelta(t, 150.0, result.MedianScore, 1e-9)
}

func TestAggregateNoScorableRecords(t *testing.T) {
	version := testVersion()
	a := NewAggregator(zerolog.Nop())

	_, err := a.Aggregate(contracts.GeoCounty, "48201", nil, version)
	assert.ErrorIs(t, err, ErrNoRecords)

	stale := version
	stale.TaxVintage = 2023
	_, err = a.Aggregate(contracts.GeoCounty, "48201", []*contracts.InvestmentScoreRecord{
		scorableRecord("77001", stale, 150, 0.06, 250000, 0.012),
	}, version)
	assert.ErrorIs(t, err, ErrNoRecords)
}

func TestAggregateMinZIPCount(t *testing.T) {
	version := testVersion()
	records := []*contracts.InvestmentScoreRecord{
		scorableRecord("77001", version, 150, 0.06, 250000, 0.012),
		scorableRecord("77002", version, 250, 0.07, 300000, 0.013),
	}

	a := NewAggregatorWithMinZIPs(3, zerolog.Nop())
	_, err := a.Aggregate(contracts.GeoCounty, "48201", records, version)
	assert.ErrorIs(t, err, ErrNoRecords)

	a = NewAggregatorWithMinZIPs(2, zerolog.Nop())
	result, err := a.Aggregate(contracts.GeoCounty, "48201", records, version)
	require.NoError(t, err)
	assert.Equal(t, 2, result.ZIPCount)
}

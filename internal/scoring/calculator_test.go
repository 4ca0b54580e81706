package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculate(t *testing.T) {
	// 1200/mo rent against a 100k home at a 1.2% tax rate with a 5%
	// population median yield.
	result, err := Calculate(1200, 100000, 0.012, 0.05)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.InDelta(t, 14400.0, result.AnnualRent, 1e-9)
	assert.InDelta(t, 1200.0, result.AnnualTaxes, 1e-9)
	assert.InDelta(t, 0.132, result.NetYield, 1e-9)
	assert.InDelta(t, 0.144, result.RentToPriceRatio, 1e-9)
	assert.InDelta(t, 264.0, result.BaseScore, 1e-9)
}

func TestCalculateNegativeYield(t *testing.T) {
	// Taxes can exceed rent; the score goes negative rather than clamping.
	result, err := Calculate(100, 500000, 0.03, 0.05)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Less(t, result.NetYield, 0.0)
	assert.Less(t, result.BaseScore, 0.0)
}

func TestCalculateNonPositiveInputs(t *testing.T) {
	cases := []struct {
		name  string
		rent  float64
		value float64
	}{
		{"zero rent", 0, 100000},
		{"negative rent", -50, 100000},
		{"zero value", 1200, 0},
		{"negative value", 1200, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := Calculate(tc.rent, tc.value, 0.012, 0.05)
			require.NoError(t, err)
			assert.Nil(t, result)
		})
	}
}

func TestCalculateInvalidInputs(t *testing.T) {
	cases := []struct {
		name        string
		rent        float64
		value       float64
		taxRate     float64
		medianYield float64
	}{
		{"nan rent", math.NaN(), 100000, 0.012, 0.05},
		{"inf value", 1200, math.Inf(1), 0.012, 0.05},
		{"negative tax rate", 1200, 100000, -0.01, 0.05},
		{"zero median yield", 1200, 100000, 0.012, 0},
		{"negative median yield", 1200, 100000, 0.012, -0.05},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := Calculate(tc.rent, tc.value, tc.taxRate, tc.medianYield)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Nil(t, result)
		})
	}
}

package scoring

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput marks a record whose numeric inputs are malformed.
// The failure is local to the record and never aborts a batch.
var ErrInvalidInput = errors.New("scoring: invalid input")

// YieldResult carries the computed metrics for one ZIP and bedroom count.
type YieldResult struct {
	AnnualRent       float64
	AnnualTaxes      float64
	NetYield         float64
	RentToPriceRatio float64
	BaseScore        float64
}

// Calculate derives net yield and the normalized investment score from a
// monthly rent ceiling, a property value, an annual property tax rate and
// the population median yield.
//
// A nil result with a nil error means the inputs are present but not
// positive, so the record should be kept with a null score rather than
// treated as a failure. NaN or infinite inputs, a negative tax rate or a
// non-positive median yield return ErrInvalidInput.
func Calculate(monthlyRent, propertyValue, annualTaxRate, medianYield float64) (*YieldResult, error) {
	for _, v := range []float64{monthlyRent, propertyValue, annualTaxRate, medianYield} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: non-finite value %v", ErrInvalidInput, v)
		}
	}
	if annualTaxRate < 0 {
		return nil, fmt.Errorf("%w: negative tax rate %v", ErrInvalidInput, annualTaxRate)
	}
	if medianYield <= 0 {
		return nil, fmt.Errorf("%w: median yield must be positive, got %v", ErrInvalidInput, medianYield)
	}

	if monthlyRent <= 0 || propertyValue <= 0 {
		return nil, nil
	}

	annualRent := monthlyRent * 12
	annualTaxes := propertyValue * annualTaxRate
	netYield := (annualRent - annualTaxes) / propertyValue

	return &YieldResult{
		AnnualRent:       annualRent,
		AnnualTaxes:      annualTaxes,
		NetYield:         netYield,
		RentToPriceRatio: annualRent / propertyValue,
		BaseScore:        netYield / medianYield * 100,
	}, nil
}

// Package finance implements the closed-form mortgage and cash-flow
// algebra behind the investment analysis endpoints. Every operation is
// a pure function of caller-supplied numbers; nothing here touches the
// data sources.
package finance

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidInput marks malformed numeric input: NaN, infinity, or
	// a negative value where positivity is required.
	ErrInvalidInput = errors.New("finance: invalid input")

	// ErrInfeasible marks a solve with no solution. Distinct from a
	// zero or negative price, which is never returned.
	ErrInfeasible = errors.New("finance: no feasible solution")
)

// LoanTerms describe the amortizing loan shared by the solver
// operations. Exactly one down-payment mode must be set: percent when
// DownPaymentPct is non-nil, fixed amount when DownPaymentAmount is.
type LoanTerms struct {
	TermYears         int
	AnnualRate        float64
	DownPaymentPct    *float64
	DownPaymentAmount *float64
}

func (lt LoanTerms) months() int {
	return lt.TermYears * 12
}

func (lt LoanTerms) monthlyRate() float64 {
	return lt.AnnualRate / 12
}

func (lt LoanTerms) validate() error {
	if lt.TermYears <= 0 {
		return fmt.Errorf("%w: loan term must be at least one year", ErrInvalidInput)
	}
	if !isFinite(lt.AnnualRate) || lt.AnnualRate < 0 {
		return fmt.Errorf("%w: annual rate must be finite and non-negative", ErrInvalidInput)
	}

	switch {
	case lt.DownPaymentPct != nil && lt.DownPaymentAmount != nil:
		return fmt.Errorf("%w: set either a down-payment percent or amount, not both", ErrInvalidInput)
	case lt.DownPaymentPct != nil:
		d := *lt.DownPaymentPct
		if !isFinite(d) || d < 0 || d >= 1 {
			return fmt.Errorf("%w: down-payment percent must be in [0, 1)", ErrInvalidInput)
		}
	case lt.DownPaymentAmount != nil:
		a := *lt.DownPaymentAmount
		if !isFinite(a) || a < 0 {
			return fmt.Errorf("%w: down-payment amount must be finite and non-negative", ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: a down-payment percent or amount is required", ErrInvalidInput)
	}
	return nil
}

// PropertyFinancials are the caller-supplied operating numbers shared
// by the price and cash-flow operations. AnnualTaxRate is a fraction
// of property value per year, e.g. 0.012 for 1.2%.
type PropertyFinancials struct {
	MonthlyRent      float64
	MonthlyInsurance float64
	MonthlyHOA       float64
	AnnualTaxRate    float64
}

func (pf PropertyFinancials) validate() error {
	if !isFinite(pf.MonthlyRent) || pf.MonthlyRent <= 0 {
		return fmt.Errorf("%w: monthly rent must be positive", ErrInvalidInput)
	}
	if !isFinite(pf.MonthlyInsurance) || pf.MonthlyInsurance < 0 {
		return fmt.Errorf("%w: insurance must be finite and non-negative", ErrInvalidInput)
	}
	if !isFinite(pf.MonthlyHOA) || pf.MonthlyHOA < 0 {
		return fmt.Errorf("%w: HOA must be finite and non-negative", ErrInvalidInput)
	}
	if !isFinite(pf.AnnualTaxRate) || pf.AnnualTaxRate < 0 {
		return fmt.Errorf("%w: tax rate must be finite and non-negative", ErrInvalidInput)
	}
	return nil
}

// netBeforeTaxes is monthly rent minus operating costs, before
// property taxes and debt service.
func (pf PropertyFinancials) netBeforeTaxes() float64 {
	return pf.MonthlyRent - pf.MonthlyInsurance - pf.MonthlyHOA
}

// monthlyTaxRate converts the annual rate to a per-month fraction of
// property value.
func (pf PropertyFinancials) monthlyTaxRate() float64 {
	return pf.AnnualTaxRate / 12
}

// CashFlowResult is the full breakdown of one solved scenario.
type CashFlowResult struct {
	Price           float64 `json:"price"`
	DownPayment     float64 `json:"down_payment"`
	LoanAmount      float64 `json:"loan_amount"`
	MonthlyPayment  float64 `json:"monthly_payment"`
	MonthlyTaxes    float64 `json:"monthly_taxes"`
	MonthlyCashFlow float64 `json:"monthly_cash_flow"`
}

// PaymentFactor returns the monthly payment per dollar of loan for a
// fully amortizing loan: f(r, n) = r(1+r)^n / ((1+r)^n - 1) for
// monthly rate r > 0, or 1/n when r = 0.
func PaymentFactor(monthlyRate float64, months int) (float64, error) {
	if months <= 0 {
		return 0, fmt.Errorf("%w: months must be positive", ErrInvalidInput)
	}
	if !isFinite(monthlyRate) || monthlyRate < 0 {
		return 0, fmt.Errorf("%w: monthly rate must be finite and non-negative", ErrInvalidInput)
	}

	if monthlyRate == 0 {
		return 1 / float64(months), nil
	}

	pow := math.Pow(1+monthlyRate, float64(months))
	return monthlyRate * pow / (pow - 1), nil
}

// CashFlowFromPrice computes the monthly cash flow at a given purchase
// price: rent minus insurance, HOA, property taxes and the mortgage
// payment.
func CashFlowFromPrice(price float64, fin PropertyFinancials, terms LoanTerms) (*CashFlowResult, error) {
	if !isFinite(price) || price <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalidInput)
	}
	if err := fin.validate(); err != nil {
		return nil, err
	}
	if err := terms.validate(); err != nil {
		return nil, err
	}

	factor, err := PaymentFactor(terms.monthlyRate(), terms.months())
	if err != nil {
		return nil, err
	}

	var down float64
	if terms.DownPaymentPct != nil {
		down = *terms.DownPaymentPct * price
	} else {
		down = *terms.DownPaymentAmount
	}

	loan := price - down
	if loan <= 0 {
		return nil, fmt.Errorf("%w: loan amount %.2f is not positive", ErrInfeasible, loan)
	}

	payment := factor * loan
	taxes := fin.monthlyTaxRate() * price
	cashFlow := fin.netBeforeTaxes() - taxes - payment

	return &CashFlowResult{
		Price:           price,
		DownPayment:     down,
		LoanAmount:      loan,
		MonthlyPayment:  payment,
		MonthlyTaxes:    taxes,
		MonthlyCashFlow: cashFlow,
	}, nil
}

// PriceFromMargin solves for the purchase price at which monthly cash
// flow equals the given fraction of net income before debt service.
// With net = rent - insurance - HOA, k = 1 - margin, monthly tax rate
// t and payment factor f, substituting payment = k(net - t*price)
// yields price = k*net / (f(1-d) + k*t) in percent-down mode and
// price = (k*net + f*D) / (f + k*t) in amount-down mode.
func PriceFromMargin(margin float64, fin PropertyFinancials, terms LoanTerms) (*CashFlowResult, error) {
	if !isFinite(margin) || margin < 0 || margin >= 1 {
		return nil, fmt.Errorf("%w: margin must be in [0, 1)", ErrInvalidInput)
	}
	if err := fin.validate(); err != nil {
		return nil, err
	}
	if err := terms.validate(); err != nil {
		return nil, err
	}

	factor, err := PaymentFactor(terms.monthlyRate(), terms.months())
	if err != nil {
		return nil, err
	}

	k := 1 - margin
	t := fin.monthlyTaxRate()
	net := fin.netBeforeTaxes()

	var numerator, denominator float64
	if terms.DownPaymentPct != nil {
		numerator = k * net
		denominator = factor*(1-*terms.DownPaymentPct) + k*t
	} else {
		numerator = k*net + factor**terms.DownPaymentAmount
		denominator = factor + k*t
	}

	if denominator <= 0 {
		return nil, fmt.Errorf("%w: denominator %.6f is not positive", ErrInfeasible, denominator)
	}
	if numerator <= 0 {
		return nil, fmt.Errorf("%w: numerator %.6f is not positive", ErrInfeasible, numerator)
	}

	return CashFlowFromPrice(numerator/denominator, fin, terms)
}

// PriceFromCashFlow solves for the purchase price that produces the
// desired absolute monthly cash flow. The cash-flow identity is linear
// in price: with net = rent - insurance - HOA, desired = net - t*price
// - f*loan(price), giving price = (net - desired) / (t + f(1-d)) in
// percent-down mode and price = (net - desired + f*D) / (t + f) in
// amount-down mode.
func PriceFromCashFlow(desired float64, fin PropertyFinancials, terms LoanTerms) (*CashFlowResult, error) {
	if !isFinite(desired) {
		return nil, fmt.Errorf("%w: desired cash flow must be finite", ErrInvalidInput)
	}
	if err := fin.validate(); err != nil {
		return nil, err
	}
	if err := terms.validate(); err != nil {
		return nil, err
	}

	factor, err := PaymentFactor(terms.monthlyRate(), terms.months())
	if err != nil {
		return nil, err
	}

	t := fin.monthlyTaxRate()
	net := fin.netBeforeTaxes()

	var numerator, denominator float64
	if terms.DownPaymentPct != nil {
		numerator = net - desired
		denominator = t + factor*(1-*terms.DownPaymentPct)
	} else {
		numerator = net - desired + factor**terms.DownPaymentAmount
		denominator = t + factor
	}

	if denominator <= 0 {
		return nil, fmt.Errorf("%w: denominator %.6f is not positive", ErrInfeasible, denominator)
	}
	if numerator <= 0 {
		return nil, fmt.Errorf("%w: numerator %.6f is not positive", ErrInfeasible, numerator)
	}

	return CashFlowFromPrice(numerator/denominator, fin, terms)
}

// PriceFromScore inverts the score formula: the price at which a
// property renting for annualRent scores targetScore against the
// population median yield. targetNetYield = (targetScore/100) *
// medianYield and price = annualRent / (targetNetYield + taxRate).
func PriceFromScore(annualRent, targetScore, medianYield, annualTaxRate float64) (float64, error) {
	if !isFinite(annualRent) || annualRent <= 0 {
		return 0, fmt.Errorf("%w: annual rent must be positive", ErrInvalidInput)
	}
	if !isFinite(targetScore) {
		return 0, fmt.Errorf("%w: target score must be finite", ErrInvalidInput)
	}
	if !isFinite(medianYield) || medianYield <= 0 {
		return 0, fmt.Errorf("%w: median yield must be positive", ErrInvalidInput)
	}
	if !isFinite(annualTaxRate) || annualTaxRate < 0 {
		return 0, fmt.Errorf("%w: tax rate must be finite and non-negative", ErrInvalidInput)
	}

	targetNetYield := (targetScore / 100) * medianYield
	denominator := targetNetYield + annualTaxRate
	if denominator <= 0 {
		return 0, fmt.Errorf("%w: denominator %.6f is not positive", ErrInfeasible, denominator)
	}

	return annualRent / denominator, nil
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

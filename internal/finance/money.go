package finance

import "github.com/shopspring/decimal"

// RoundCents rounds a dollar amount to the nearest cent. Solver math
// stays in float64; rounding happens only at the presentation edge.
func RoundCents(amount float64) float64 {
	rounded, _ := decimal.NewFromFloat(amount).Round(2).Float64()
	return rounded
}

// Rounded returns a copy of the result with every dollar field rounded
// to cents for presentation.
func (r *CashFlowResult) Rounded() *CashFlowResult {
	return &CashFlowResult{
		Price:           RoundCents(r.Price),
		DownPayment:     RoundCents(r.DownPayment),
		LoanAmount:      RoundCents(r.LoanAmount),
		MonthlyPayment:  RoundCents(r.MonthlyPayment),
		MonthlyTaxes:    RoundCents(r.MonthlyTaxes),
		MonthlyCashFlow: RoundCents(r.MonthlyCashFlow),
	}
}

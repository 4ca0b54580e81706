package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentscope/backend/internal/finance"
	"github.com/rentscope/backend/internal/scoreconfig"
)

func newSolverHandler(t *testing.T, yields *fakeYieldRepo) *SolverHandler {
	t.Helper()
	return NewSolverHandler(yields, scoreconfig.Default(), 2026, testLogger())
}

type solveResponse struct {
	Success bool                   `json:"success"`
	Data    finance.CashFlowResult `json:"data"`
}

func postSolve(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/solver", strings.NewReader(body))
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func TestCashFlowEndpoint(t *testing.T) {
	h := newSolverHandler(t, newFakeYieldRepo())

	rr := postSolve(t, h.CashFlowFromPrice, `{
		"price": 200000,
		"monthly_rent": 1500,
		"monthly_insurance": 100,
		"monthly_hoa": 0,
		"annual_tax_rate": 0.012,
		"term_years": 30,
		"annual_rate": 0.065,
		"down_payment_pct": 0.20
	}`)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp solveResponse
	require.NoError(t, decodeBody(rr, &resp))
	assert.True(t, resp.Success)

	pct := 0.20
	want, err := finance.CashFlowFromPrice(200000,
		finance.PropertyFinancials{MonthlyRent: 1500, MonthlyInsurance: 100, AnnualTaxRate: 0.012},
		finance.LoanTerms{TermYears: 30, AnnualRate: 0.065, DownPaymentPct: &pct})
	require.NoError(t, err)

	assert.InDelta(t, 200000, resp.Data.Price, 1e-9)
	assert.InDelta(t, 40000, resp.Data.DownPayment, 1e-9)
	assert.InDelta(t, 160000, resp.Data.LoanAmount, 1e-9)
	assert.InDelta(t, want.MonthlyPayment, resp.Data.MonthlyPayment, 0.01)
	assert.InDelta(t, want.MonthlyTaxes, resp.Data.MonthlyTaxes, 0.01)
	assert.InDelta(t, want.MonthlyCashFlow, resp.Data.MonthlyCashFlow, 0.01)
}

func TestCashFlowEndpointDefaults(t *testing.T) {
	h := newSolverHandler(t, newFakeYieldRepo())

	rr := postSolve(t, h.CashFlowFromPrice, `{"price": 200000, "monthly_rent": 1500}`)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp solveResponse
	require.NoError(t, decodeBody(rr, &resp))

	// Configured defaults: 20% down, 30y at 6.5%, $100 insurance, 1.1% tax.
	pct := 0.20
	want, err := finance.CashFlowFromPrice(200000,
		finance.PropertyFinancials{MonthlyRent: 1500, MonthlyInsurance: 100, AnnualTaxRate: 0.011},
		finance.LoanTerms{TermYears: 30, AnnualRate: 0.065, DownPaymentPct: &pct})
	require.NoError(t, err)

	assert.InDelta(t, 40000, resp.Data.DownPayment, 1e-9)
	assert.InDelta(t, want.MonthlyCashFlow, resp.Data.MonthlyCashFlow, 0.01)
}

func TestCashFlowEndpointBadInput(t *testing.T) {
	h := newSolverHandler(t, newFakeYieldRepo())

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"price":`},
		{"negative price", `{"price": -1, "monthly_rent": 1500}`},
		{"zero rent", `{"price": 200000}`},
		{"both down modes", `{"price": 200000, "monthly_rent": 1500, "down_payment_pct": 0.2, "down_payment_amount": 50000}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := postSolve(t, h.CashFlowFromPrice, tt.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

func TestPriceFromCashFlowRoundTrip(t *testing.T) {
	h := newSolverHandler(t, newFakeYieldRepo())

	rr := postSolve(t, h.PriceFromCashFlow, `{
		"monthly_cash_flow": 300,
		"monthly_rent": 1500,
		"monthly_insurance": 100,
		"monthly_hoa": 0,
		"annual_tax_rate": 0.01,
		"term_years": 30,
		"annual_rate": 0.065,
		"down_payment_pct": 0.20
	}`)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp solveResponse
	require.NoError(t, decodeBody(rr, &resp))
	assert.InDelta(t, 300, resp.Data.MonthlyCashFlow, 0.01)
	assert.Positive(t, resp.Data.Price)

	// Feeding the solved price back through the forward direction must
	// reproduce the requested cash flow.
	pct := 0.20
	forward, err := finance.CashFlowFromPrice(resp.Data.Price,
		finance.PropertyFinancials{MonthlyRent: 1500, MonthlyInsurance: 100, AnnualTaxRate: 0.01},
		finance.LoanTerms{TermYears: 30, AnnualRate: 0.065, DownPaymentPct: &pct})
	require.NoError(t, err)
	assert.InDelta(t, 300, forward.MonthlyCashFlow, 0.01)
}

func TestPriceFromCashFlowInfeasible(t *testing.T) {
	h := newSolverHandler(t, newFakeYieldRepo())

	// Rent nets $1400 before taxes and debt; $5000 is out of reach at
	// any positive price.
	rr := postSolve(t, h.PriceFromCashFlow, `{
		"monthly_cash_flow": 5000,
		"monthly_rent": 1500,
		"monthly_insurance": 100,
		"monthly_hoa": 0
	}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestPriceFromMarginEndpoint(t *testing.T) {
	h := newSolverHandler(t, newFakeYieldRepo())

	rr := postSolve(t, h.PriceFromMargin, `{
		"margin": 0.3,
		"monthly_rent": 1500,
		"monthly_insurance": 100,
		"monthly_hoa": 0,
		"annual_tax_rate": 0.01,
		"term_years": 30,
		"annual_rate": 0.065,
		"down_payment_pct": 0.20
	}`)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp solveResponse
	require.NoError(t, decodeBody(rr, &resp))

	// Cash flow must come out at 30% of net income before debt service.
	netBeforeDebt := 1500 - 100 - resp.Data.MonthlyTaxes
	assert.InDelta(t, 0.3*netBeforeDebt, resp.Data.MonthlyCashFlow, 0.02)
}

func TestPriceFromMarginRejectsBadMargin(t *testing.T) {
	h := newSolverHandler(t, newFakeYieldRepo())

	rr := postSolve(t, h.PriceFromMargin, `{"margin": 1.5, "monthly_rent": 1500}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPriceFromScoreEndpoint(t *testing.T) {
	h := newSolverHandler(t, newFakeYieldRepo())

	rr := postSolve(t, h.PriceFromScore, `{
		"monthly_rent": 1200,
		"target_score": 264,
		"median_yield": 0.05,
		"annual_tax_rate": 0.012
	}`)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Price         float64 `json:"price"`
			AnnualRent    float64 `json:"annual_rent"`
			TargetScore   float64 `json:"target_score"`
			MedianYield   float64 `json:"median_yield"`
			AnnualTaxRate float64 `json:"annual_tax_rate"`
			FiscalYear    int     `json:"fiscal_year"`
		} `json:"data"`
	}
	require.NoError(t, decodeBody(rr, &resp))

	// 14400 / (2.64*0.05 + 0.012) = 100000.
	assert.InDelta(t, 100000, resp.Data.Price, 0.01)
	assert.InDelta(t, 14400, resp.Data.AnnualRent, 1e-9)
	assert.Equal(t, 2026, resp.Data.FiscalYear)
}

func TestPriceFromScoreResolvesStoredYield(t *testing.T) {
	yields := newFakeYieldRepo()
	yields.yields[2026] = 0.05

	h := newSolverHandler(t, yields)

	rr := postSolve(t, h.PriceFromScore, `{
		"monthly_rent": 1200,
		"target_score": 264,
		"annual_tax_rate": 0.012
	}`)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Price       float64 `json:"price"`
			MedianYield float64 `json:"median_yield"`
		} `json:"data"`
	}
	require.NoError(t, decodeBody(rr, &resp))

	assert.InDelta(t, 0.05, resp.Data.MedianYield, 1e-9)
	assert.InDelta(t, 100000, resp.Data.Price, 0.01)
}

func TestPriceFromScoreNoStoredYield(t *testing.T) {
	h := newSolverHandler(t, newFakeYieldRepo())

	rr := postSolve(t, h.PriceFromScore, `{"monthly_rent": 1200, "target_score": 264}`)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestPriceFromScoreInfeasible(t *testing.T) {
	h := newSolverHandler(t, newFakeYieldRepo())

	// A deeply negative target pushes the implied yield below zero.
	rr := postSolve(t, h.PriceFromScore, `{
		"monthly_rent": 1200,
		"target_score": -300,
		"median_yield": 0.05,
		"annual_tax_rate": 0.012
	}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestPriceFromScoreRejectsZeroRent(t *testing.T) {
	h := newSolverHandler(t, newFakeYieldRepo())

	rr := postSolve(t, h.PriceFromScore, `{"target_score": 264, "median_yield": 0.05}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rentscope/backend/internal/contracts"
	"github.com/rentscope/backend/internal/finance"
	"github.com/rentscope/backend/internal/metrics"
	"github.com/rentscope/backend/internal/scoreconfig"
	"github.com/rentscope/backend/pkg/logger"
)

// SolverHandler handles the closed-form investment calculator endpoints
type SolverHandler struct {
	yields     contracts.YieldRepository
	scoring    *scoreconfig.Config
	fiscalYear int
	logger     *logger.Logger
}

// NewSolverHandler creates a new solver handler
func NewSolverHandler(yields contracts.YieldRepository, scoring *scoreconfig.Config, fiscalYear int, log *logger.Logger) *SolverHandler {
	return &SolverHandler{
		yields:     yields,
		scoring:    scoring,
		fiscalYear: fiscalYear,
		logger:     log,
	}
}

// SolveInputs are the loan and property fields shared by the solver
// endpoints. Omitted pointer fields fall back to the configured solver
// defaults; zero is a valid explicit value for all of them.
type SolveInputs struct {
	MonthlyRent       float64  `json:"monthly_rent"`
	MonthlyInsurance  *float64 `json:"monthly_insurance"`
	MonthlyHOA        *float64 `json:"monthly_hoa"`
	AnnualTaxRate     *float64 `json:"annual_tax_rate"`
	TermYears         int      `json:"term_years"`
	AnnualRate        *float64 `json:"annual_rate"`
	DownPaymentPct    *float64 `json:"down_payment_pct"`
	DownPaymentAmount *float64 `json:"down_payment_amount"`
}

func (h *SolverHandler) financials(in SolveInputs) finance.PropertyFinancials {
	defaults := h.scoring.Solver

	fin := finance.PropertyFinancials{
		MonthlyRent:      in.MonthlyRent,
		MonthlyInsurance: defaults.InsuranceMonthly,
		MonthlyHOA:       defaults.HOAMonthly,
		AnnualTaxRate:    h.scoring.Scoring.DefaultTaxRate,
	}
	if in.MonthlyInsurance != nil {
		fin.MonthlyInsurance = *in.MonthlyInsurance
	}
	if in.MonthlyHOA != nil {
		fin.MonthlyHOA = *in.MonthlyHOA
	}
	if in.AnnualTaxRate != nil {
		fin.AnnualTaxRate = *in.AnnualTaxRate
	}
	return fin
}

func (h *SolverHandler) terms(in SolveInputs) finance.LoanTerms {
	defaults := h.scoring.Solver

	terms := finance.LoanTerms{
		TermYears:         in.TermYears,
		AnnualRate:        defaults.AnnualInterestRate,
		DownPaymentPct:    in.DownPaymentPct,
		DownPaymentAmount: in.DownPaymentAmount,
	}
	if terms.TermYears == 0 {
		terms.TermYears = defaults.LoanTermYears
	}
	if in.AnnualRate != nil {
		terms.AnnualRate = *in.AnnualRate
	}
	if terms.DownPaymentPct == nil && terms.DownPaymentAmount == nil {
		pct := defaults.DownPaymentPct
		terms.DownPaymentPct = &pct
	}
	return terms
}

// CashFlowRequest solves monthly cash flow at a known purchase price
type CashFlowRequest struct {
	Price float64 `json:"price"`
	SolveInputs
}

// CashFlowFromPrice returns the monthly cash-flow breakdown at a price
// POST /api/solver/cashflow
func (h *SolverHandler) CashFlowFromPrice(w http.ResponseWriter, r *http.Request) {
	var req CashFlowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := finance.CashFlowFromPrice(req.Price, h.financials(req.SolveInputs), h.terms(req.SolveInputs))
	metrics.RecordSolve("cashflow_from_price", err)
	if err != nil {
		h.respondSolveError(w, "cashflow_from_price", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    result.Rounded(),
	})
}

// MarginRequest solves for the price hitting a cash-flow margin
type MarginRequest struct {
	Margin float64 `json:"margin"`
	SolveInputs
}

// PriceFromMargin returns the price at which cash flow equals the given
// fraction of net income before debt service
// POST /api/solver/price-from-margin
func (h *SolverHandler) PriceFromMargin(w http.ResponseWriter, r *http.Request) {
	var req MarginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := finance.PriceFromMargin(req.Margin, h.financials(req.SolveInputs), h.terms(req.SolveInputs))
	metrics.RecordSolve("price_from_margin", err)
	if err != nil {
		h.respondSolveError(w, "price_from_margin", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    result.Rounded(),
	})
}

// CashFlowTargetRequest solves for the price hitting an absolute
// monthly cash flow
type CashFlowTargetRequest struct {
	MonthlyCashFlow float64 `json:"monthly_cash_flow"`
	SolveInputs
}

// PriceFromCashFlow returns the price producing the desired monthly
// cash flow
// POST /api/solver/price-from-cashflow
func (h *SolverHandler) PriceFromCashFlow(w http.ResponseWriter, r *http.Request) {
	var req CashFlowTargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := finance.PriceFromCashFlow(req.MonthlyCashFlow, h.financials(req.SolveInputs), h.terms(req.SolveInputs))
	metrics.RecordSolve("price_from_cashflow", err)
	if err != nil {
		h.respondSolveError(w, "price_from_cashflow", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    result.Rounded(),
	})
}

// ScoreTargetRequest solves for the price hitting a target score.
// MedianYield may be omitted; it is then resolved from the stored
// population median for the fiscal year.
type ScoreTargetRequest struct {
	MonthlyRent   float64  `json:"monthly_rent"`
	TargetScore   float64  `json:"target_score"`
	MedianYield   *float64 `json:"median_yield"`
	AnnualTaxRate *float64 `json:"annual_tax_rate"`
	FiscalYear    int      `json:"fiscal_year"`
}

// PriceFromScore returns the price at which the property would score
// the target value
// POST /api/solver/price-from-score
func (h *SolverHandler) PriceFromScore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ScoreTargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	fiscalYear := req.FiscalYear
	if fiscalYear == 0 {
		fiscalYear = h.fiscalYear
	}

	var medianYield float64
	if req.MedianYield != nil {
		medianYield = *req.MedianYield
	} else {
		stored, err := h.yields.GetMedianYield(ctx, fiscalYear)
		if err != nil {
			h.logger.WithError(err).Error("Failed to get median yield")
			respondError(w, http.StatusInternalServerError, "Failed to resolve median yield")
			return
		}
		if stored == nil {
			respondError(w, http.StatusConflict, "No median yield loaded for this fiscal year")
			return
		}
		medianYield = *stored
	}

	taxRate := h.scoring.Scoring.DefaultTaxRate
	if req.AnnualTaxRate != nil {
		taxRate = *req.AnnualTaxRate
	}

	annualRent := req.MonthlyRent * 12
	price, err := finance.PriceFromScore(annualRent, req.TargetScore, medianYield, taxRate)
	metrics.RecordSolve("price_from_score", err)
	if err != nil {
		h.respondSolveError(w, "price_from_score", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"price":           finance.RoundCents(price),
			"annual_rent":     annualRent,
			"target_score":    req.TargetScore,
			"median_yield":    medianYield,
			"annual_tax_rate": taxRate,
			"fiscal_year":     fiscalYear,
		},
	})
}

func (h *SolverHandler) respondSolveError(w http.ResponseWriter, operation string, err error) {
	switch {
	case errors.Is(err, finance.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, finance.ErrInfeasible):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.WithError(err).WithField("operation", operation).Error("Solve failed")
		respondError(w, http.StatusInternalServerError, "Solve failed")
	}
}

package scoreconfig

import "fmt"

// ValidationError aborts startup
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning flags a questionable but workable setting
type Warning struct {
	Code    string
	Message string
}

// Validate checks all required constraints
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.ConfigID == "" {
		return ValidationError{"meta.config_id", "required"}
	}

	// === Scoring ===
	if len(cfg.Scoring.Bedrooms) == 0 {
		return ValidationError{"scoring.bedrooms", "required"}
	}
	for i, b := range cfg.Scoring.Bedrooms {
		if b < 0 || b > 5 {
			return ValidationError{fmt.Sprintf("scoring.bedrooms[%d]", i), "must be in range [0, 5]"}
		}
	}
	if cfg.Scoring.DefaultTaxRate <= 0 || cfg.Scoring.DefaultTaxRate > 0.1 {
		return ValidationError{"scoring.default_tax_rate", "must be in (0, 0.1]"}
	}

	// === Demand ===
	if cfg.Demand.BonusMax < 0 || cfg.Demand.BonusMax >= 0.10 {
		return ValidationError{"demand.bonus_max", "must be in [0, 0.10)"}
	}
	if cfg.Demand.PenaltyMax <= 0 || cfg.Demand.PenaltyMax >= 1 {
		return ValidationError{"demand.penalty_max", "must be in (0, 1)"}
	}

	// === Solver ===
	if cfg.Solver.LoanTermYears < 1 {
		return ValidationError{"solver.loan_term_years", "must be >= 1"}
	}
	if cfg.Solver.AnnualInterestRate < 0 || cfg.Solver.AnnualInterestRate >= 1 {
		return ValidationError{"solver.annual_interest_rate", "must be in [0, 1)"}
	}
	if cfg.Solver.DownPaymentPct < 0 || cfg.Solver.DownPaymentPct >= 1 {
		return ValidationError{"solver.down_payment_pct", "must be in [0, 1)"}
	}
	if cfg.Solver.InsuranceMonthly < 0 {
		return ValidationError{"solver.insurance_monthly", "must be >= 0"}
	}
	if cfg.Solver.HOAMonthly < 0 {
		return ValidationError{"solver.hoa_monthly", "must be >= 0"}
	}

	// === Aggregation ===
	if cfg.Aggregation.MinZIPCount < 1 {
		return ValidationError{"aggregation.min_zip_count", "must be >= 1"}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	if cfg.Demand.BonusMax >= cfg.Demand.PenaltyMax {
		warnings = append(warnings, Warning{
			Code:    "SYMMETRIC_DEMAND",
			Message: "bonus_max >= penalty_max: the demand penalty is supposed to be steeper than the bonus",
		})
	}

	if cfg.Scoring.DefaultTaxRate > 0.03 {
		warnings = append(warnings, Warning{
			Code:    "HIGH_TAX_FALLBACK",
			Message: "default_tax_rate > 3%: fallback will depress scores for ZIPs without tax data",
		})
	}

	if cfg.Solver.AnnualInterestRate == 0 {
		warnings = append(warnings, Warning{
			Code:    "ZERO_RATE",
			Message: "annual_interest_rate = 0: payment factor degenerates to 1/n",
		})
	}

	return warnings
}

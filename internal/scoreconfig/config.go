package scoreconfig

import "time"

// Config holds every tunable scoring parameter. Loaded from YAML once
// at startup and passed read-only to the engine components.
type Config struct {
	Meta        Meta        `yaml:"meta" json:"meta"`
	Scoring     Scoring     `yaml:"scoring" json:"scoring"`
	Demand      Demand      `yaml:"demand" json:"demand"`
	Solver      Solver      `yaml:"solver" json:"solver"`
	Aggregation Aggregation `yaml:"aggregation" json:"aggregation"`
}

// Meta identifies the config revision
type Meta struct {
	ConfigID string `yaml:"config_id" json:"config_id"`
	Version  string `yaml:"version" json:"version"`
}

// Scoring controls which records get computed and the tax fallback
// passed to the calculator when a ZIP has no tax data.
type Scoring struct {
	Bedrooms       []int   `yaml:"bedrooms" json:"bedrooms"`
	DefaultTaxRate float64 `yaml:"default_tax_rate" json:"default_tax_rate"`
}

// Demand shapes the regime-gated multiplier curve. The curve itself is
// fixed (linear, anchored at demand 50); only the bonus cap and the
// maximum penalty depth are tunable.
type Demand struct {
	BonusMax   float64 `yaml:"bonus_max" json:"bonus_max"`
	PenaltyMax float64 `yaml:"penalty_max" json:"penalty_max"`
}

// Solver holds defaults applied to solve requests that omit loan terms
type Solver struct {
	LoanTermYears      int     `yaml:"loan_term_years" json:"loan_term_years"`
	AnnualInterestRate float64 `yaml:"annual_interest_rate" json:"annual_interest_rate"`
	DownPaymentPct     float64 `yaml:"down_payment_pct" json:"down_payment_pct"`
	InsuranceMonthly   float64 `yaml:"insurance_monthly" json:"insurance_monthly"`
	HOAMonthly         float64 `yaml:"hoa_monthly" json:"hoa_monthly"`
}

// Aggregation bounds rollup queries
type Aggregation struct {
	MinZIPCount int `yaml:"min_zip_count" json:"min_zip_count"`
}

// Snapshot pins the exact config a batch ran with, for reproducibility
type Snapshot struct {
	ConfigHash string    `json:"config_hash"`
	ConfigYAML string    `json:"config_yaml"`
	ConfigID   string    `json:"config_id"`
	CreatedAt  time.Time `json:"created_at"`
}

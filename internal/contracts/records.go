package contracts

import (
	"time"

	"github.com/google/uuid"
)

// GeoType selects the rollup level for aggregates.
type GeoType string

const (
	GeoCity   GeoType = "city"
	GeoCounty GeoType = "county"
	GeoState  GeoType = "state"
)

// InvestmentScoreRecord is one computed score for a ZIP, bedroom count
// and data version. Recomputes replace the whole record by natural key,
// never individual fields.
type InvestmentScoreRecord struct {
	ZIP              string      `json:"zip"`
	Bedrooms         int         `json:"bedrooms"`
	Version          DataVersion `json:"version"`
	PropertyValue    *float64    `json:"property_value"`
	TaxRate          *float64    `json:"tax_rate"`
	AnnualRent       *float64    `json:"annual_rent"`
	AnnualTaxes      *float64    `json:"annual_taxes"`
	NetYield         *float64    `json:"net_yield"`
	RentToPriceRatio *float64    `json:"rent_to_price_ratio"`
	BaseScore        *float64    `json:"base_score"`
	DemandScore      *float64    `json:"demand_score"`
	DemandMultiplier float64     `json:"demand_multiplier"`
	AdjustedScore    *float64    `json:"adjusted_score"`
	DataSufficient   bool        `json:"data_sufficient"`
	ComputedAt       time.Time   `json:"computed_at"`
}

// Scorable reports whether the record can participate in aggregates.
func (r *InvestmentScoreRecord) Scorable() bool {
	return r.DataSufficient && r.AdjustedScore != nil
}

// AggregateResult is one city, county or state rollup over a
// version-consistent set of ZIP records.
type AggregateResult struct {
	GeoType              GeoType     `json:"geo_type"`
	GeoKey               string      `json:"geo_key"`
	State                string      `json:"state"`
	FiscalYear           int         `json:"fiscal_year"`
	Version              DataVersion `json:"version"`
	ZIPCount             int         `json:"zip_count"`
	MedianScore          float64     `json:"median_score"`
	AverageScore         float64     `json:"average_score"`
	AverageYield         float64     `json:"average_yield"`
	AveragePropertyValue float64     `json:"average_property_value"`
	AverageTaxRate       float64     `json:"average_tax_rate"`
}

// Batch run statuses.
const (
	BatchRunning   = "running"
	BatchCompleted = "completed"
	BatchFailed    = "failed"
)

// ScoreBatch records one recompute run. ConfigID and ConfigHash pin the
// scoring parameters the run used.
type ScoreBatch struct {
	ID                uuid.UUID  `json:"id"`
	State             string     `json:"state,omitempty"`
	FiscalYear        int        `json:"fiscal_year"`
	HomeValueMonth    *time.Time `json:"home_value_month,omitempty"`
	TaxVintage        *int       `json:"tax_vintage,omitempty"`
	ConfigID          string     `json:"config_id,omitempty"`
	ConfigHash        string     `json:"config_hash,omitempty"`
	ZIPCount          int        `json:"zip_count"`
	ScoredCount       int        `json:"scored_count"`
	InsufficientCount int        `json:"insufficient_count"`
	Status            string     `json:"status"`
	StartedAt         time.Time  `json:"started_at"`
	FinishedAt        *time.Time `json:"finished_at,omitempty"`
	Error             string     `json:"error,omitempty"`
}

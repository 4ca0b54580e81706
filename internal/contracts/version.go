package contracts

import (
	"fmt"
	"time"
)

// DataVersion is the comparability unit for scored records. Every
// record in a batch is computed against one triple, and aggregates may
// only combine records sharing the same triple.
type DataVersion struct {
	FiscalYear     int       `json:"fiscal_year"`
	HomeValueMonth time.Time `json:"home_value_month"`
	TaxVintage     int       `json:"tax_vintage"`
}

// Equal reports whether two versions are the same triple.
func (v DataVersion) Equal(other DataVersion) bool {
	return v.FiscalYear == other.FiscalYear &&
		v.HomeValueMonth.Equal(other.HomeValueMonth) &&
		v.TaxVintage == other.TaxVintage
}

// Key returns a stable string form used for cache keys and logging.
func (v DataVersion) Key() string {
	return fmt.Sprintf("%d:%s:%d", v.FiscalYear, v.HomeValueMonth.Format("2006-01"), v.TaxVintage)
}

// IsZero reports whether the version has not been selected yet.
func (v DataVersion) IsZero() bool {
	return v.FiscalYear == 0 && v.HomeValueMonth.IsZero() && v.TaxVintage == 0
}

// Month normalizes t to the first day of its month in UTC. Home-value
// and index months are stored and compared in this form.
func Month(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

package scoring

import (
	"time"

	"github.com/rentscope/backend/internal/contracts"
)

// Candidate is the per-ZIP pre-pass result used to pick the batch version
// before any record is computed.
type Candidate struct {
	ZIP           string
	Bedrooms      int
	Rent          *float64
	LatestMonth   *time.Time
	LatestVintage *int
}

// Eligible reports whether the candidate can anchor version selection: it
// needs a positive rent ceiling and at least one home-value observation.
func (c Candidate) Eligible() bool {
	return c.Rent != nil && *c.Rent > 0 && c.LatestMonth != nil
}

// SelectVersion reduces a batch's candidates to a single version: the
// maximum home-value month and maximum tax vintage seen across eligible
// candidates. The reduction runs once per batch after all candidates are
// collected and is never carried over from a previous run. It returns
// false when no candidate is eligible, in which case the batch has no
// version to compute against.
func SelectVersion(fiscalYear int, candidates []Candidate) (contracts.DataVersion, bool) {
	var (
		month    time.Time
		vintage  int
		eligible bool
	)
	for _, c := range candidates {
		if !c.Eligible() {
			continue
		}
		eligible = true
		if c.LatestMonth.After(month) {
			month = *c.LatestMonth
		}
		if c.LatestVintage != nil && *c.LatestVintage > vintage {
			vintage = *c.LatestVintage
		}
	}
	if !eligible {
		return contracts.DataVersion{}, false
	}
	return contracts.DataVersion{
		FiscalYear:     fiscalYear,
		HomeValueMonth: month,
		TaxVintage:     vintage,
	}, true
}

package scoring

import (
	"fmt"
	"math"

	"github.com/rentscope/backend/internal/scoreconfig"
)

// Demand curve anchors. A demand score at the midpoint leaves the
// investment score untouched in both regimes, and only base scores at or
// above par earn a bonus from strong demand.
const (
	demandMidpoint = 50.0
	parScore       = 100.0
)

// Adjuster applies the regime-gated demand multiplier to base scores.
type Adjuster struct {
	bonusMax   float64
	penaltyMax float64
}

func NewAdjuster(cfg *scoreconfig.Config) *Adjuster {
	return &Adjuster{
		bonusMax:   cfg.Demand.BonusMax,
		penaltyMax: cfg.Demand.PenaltyMax,
	}
}

// Multiplier returns the demand multiplier for a base score. A nil demand
// score is a metro match failure and yields the neutral multiplier 1.0.
// Demand scores outside [0, 100] return ErrInvalidInput.
func (a *Adjuster) Multiplier(baseScore float64, demandScore *float64) (float64, error) {
	if demandScore == nil {
		return 1.0, nil
	}
	d := *demandScore
	if math.IsNaN(d) || d < 0 || d > 100 {
		return 0, fmt.Errorf("%w: demand score %v outside [0, 100]", ErrInvalidInput, d)
	}

	if d <= demandMidpoint {
		// Weak demand penalizes every record on the same linear curve,
		// from 1.0 at the midpoint down to 1-penaltyMax at zero.
		return 1.0 - (demandMidpoint-d)/demandMidpoint*a.penaltyMax, nil
	}

	if baseScore < parScore {
		// Below par, strong demand earns no reward.
		return 1.0, nil
	}

	// At or above par, a linear bonus from 1.0 at the midpoint up to
	// 1+bonusMax at 100.
	return 1.0 + (d-demandMidpoint)/(100.0-demandMidpoint)*a.bonusMax, nil
}

// Adjust applies the demand multiplier and returns the adjusted score
// alongside the multiplier used.
func (a *Adjuster) Adjust(baseScore float64, demandScore *float64) (adjusted, multiplier float64, err error) {
	multiplier, err = a.Multiplier(baseScore, demandScore)
	if err != nil {
		return 0, 0, err
	}
	return baseScore * multiplier, multiplier, nil
}

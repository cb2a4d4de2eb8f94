package goals

import (
	"fmt"
	"time"

	"matchcast/engine/internal/models"
)

// HistoricalMatch is one past result from a team's perspective
type HistoricalMatch struct {
	PlayedAt     time.Time
	GoalsFor     int
	GoalsAgainst int
}

// Rates are recency-weighted goals per match
type Rates struct {
	Attack  float64
	Defense float64
	// Sum of the applied weights; a rough effective sample size
	Weight float64
}

// WeightedRates estimates attack and defense rates from dated results.
// Matches after asOf are ignored and older ones decay by TimeWeight.
func (m *DixonColes) WeightedRates(history []HistoricalMatch, asOf time.Time) (Rates, error) {
	var wsum, gf, ga float64
	for _, hm := range history {
		if hm.PlayedAt.After(asOf) {
			continue
		}
		if hm.GoalsFor < 0 || hm.GoalsAgainst < 0 {
			return Rates{}, &models.InvalidInputError{Field: "goals", Value: float64(min(hm.GoalsFor, hm.GoalsAgainst)), Reason: "must be non-negative"}
		}
		days := asOf.Sub(hm.PlayedAt).Hours() / 24
		w := m.TimeWeight(days)
		wsum += w
		gf += w * float64(hm.GoalsFor)
		ga += w * float64(hm.GoalsAgainst)
	}

	if wsum == 0 {
		return Rates{}, fmt.Errorf("no matches before %s: %w", asOf.Format(time.DateOnly), models.ErrInsufficientData)
	}

	return Rates{Attack: gf / wsum, Defense: ga / wsum, Weight: wsum}, nil
}

package goals

import (
	"fmt"
	"math"

	"matchcast/engine/internal/models"
)

// DixonColesParams configures the low-score corrected model
type DixonColesParams struct {
	Params `yaml:",inline"`

	// Correlation between home and away goal counts on low scores
	Rho float64 `yaml:"rho"`
	// Recency decay per day used by TimeWeight
	Xi float64 `yaml:"xi"`
	// Share of the expected goals pulled toward the league baseline
	Smoothing float64 `yaml:"smoothing"`
	TauMin    float64 `yaml:"tau_min"`
	TauMax    float64 `yaml:"tau_max"`
}

// DefaultDixonColesParams returns the standard Dixon-Coles configuration
func DefaultDixonColesParams() DixonColesParams {
	p := DefaultParams()
	p.MaxLambda = 4.0
	return DixonColesParams{
		Params:    p,
		Rho:       -0.065,
		Xi:        0.0065,
		Smoothing: 0.1,
		TauMin:    0.5,
		TauMax:    1.5,
	}
}

// Validate checks the configuration is usable
func (p DixonColesParams) Validate() error {
	if err := p.Params.Validate(); err != nil {
		return err
	}
	if p.Rho < -0.5 || p.Rho > 0.5 {
		return fmt.Errorf("rho must be within [-0.5, 0.5], got %v", p.Rho)
	}
	if p.Xi < 0 {
		return fmt.Errorf("xi must be non-negative, got %v", p.Xi)
	}
	if p.Smoothing < 0 || p.Smoothing > 1 {
		return fmt.Errorf("smoothing must be within [0, 1], got %v", p.Smoothing)
	}
	if p.TauMin <= 0 || p.TauMax < p.TauMin {
		return fmt.Errorf("tau clamp [%v, %v] is invalid", p.TauMin, p.TauMax)
	}
	return nil
}

// DixonColes is the Poisson model with a dependence correction on 0-0, 0-1, 1-0 and 1-1
type DixonColes struct {
	params DixonColesParams
}

// NewDixonColes creates a Dixon-Coles model
func NewDixonColes(params DixonColesParams) *DixonColes {
	return &DixonColes{params: params}
}

// Params returns the model configuration
func (m *DixonColes) Params() DixonColesParams {
	return m.params
}

// WithLeagueAverage returns a copy using a different league scoring rate.
// Non-positive values keep the current rate.
func (m *DixonColes) WithLeagueAverage(avg float64) *DixonColes {
	if avg <= 0 {
		return m
	}
	p := m.params
	p.LeagueAverageGoals = avg
	return &DixonColes{params: p}
}

// TimeWeight returns exp(-xi*days) for a match played daysSince days ago
func (m *DixonColes) TimeWeight(daysSince float64) float64 {
	if daysSince <= 0 {
		return 1.0
	}
	return math.Exp(-m.params.Xi * daysSince)
}

// ExpectedGoals returns the smoothed expected goals pair. timeWeight in [0, 1]
// expresses how much the rates are trusted; 0 falls back to the league baseline.
func (m *DixonColes) ExpectedGoals(homeAttack, homeDefense, awayAttack, awayDefense, timeWeight float64) (float64, float64) {
	p := m.params
	tw := clamp(timeWeight, 0, 1)
	lh, la := rawLambdas(p.Params, homeAttack, homeDefense, awayAttack, awayDefense)

	baseHome := p.LeagueAverageGoals / 2 * p.HomeAdvantage
	baseAway := p.LeagueAverageGoals / 2

	lh = tw*lh + (1-tw)*baseHome
	la = tw*la + (1-tw)*baseAway

	lh = (1-p.Smoothing)*lh + p.Smoothing*baseHome
	la = (1-p.Smoothing)*la + p.Smoothing*baseAway

	return clamp(lh, p.MinLambda, p.MaxLambda), clamp(la, p.MinLambda, p.MaxLambda)
}

// Tau returns the bounded correction for one cell
func (m *DixonColes) Tau(homeGoals, awayGoals int, lambdaHome, lambdaAway float64) float64 {
	rho := m.params.Rho
	t := 1.0
	switch {
	case homeGoals == 0 && awayGoals == 0:
		t = 1 - lambdaHome*lambdaAway*rho
	case homeGoals == 0 && awayGoals == 1:
		t = 1 + lambdaHome*rho
	case homeGoals == 1 && awayGoals == 0:
		t = 1 + lambdaAway*rho
	case homeGoals == 1 && awayGoals == 1:
		t = 1 - rho
	default:
		return 1.0
	}
	return clamp(t, m.params.TauMin, m.params.TauMax)
}

// Predict builds the corrected score distribution with full time weight
func (m *DixonColes) Predict(homeAttack, homeDefense, awayAttack, awayDefense float64) (*models.ScoreDistribution, error) {
	return m.PredictWeighted(homeAttack, homeDefense, awayAttack, awayDefense, 1.0)
}

// PredictWeighted builds the corrected score distribution
func (m *DixonColes) PredictWeighted(homeAttack, homeDefense, awayAttack, awayDefense, timeWeight float64) (*models.ScoreDistribution, error) {
	if err := validateRates(homeAttack, homeDefense, awayAttack, awayDefense); err != nil {
		return nil, err
	}
	lh, la := m.ExpectedGoals(homeAttack, homeDefense, awayAttack, awayDefense, timeWeight)
	return m.Distribution(lh, la), nil
}

// Distribution builds the corrected table for a known expected goals pair
func (m *DixonColes) Distribution(lambdaHome, lambdaAway float64) *models.ScoreDistribution {
	return NewDistribution(lambdaHome, lambdaAway, func(h, a int) float64 {
		return m.Tau(h, a, lambdaHome, lambdaAway)
	})
}

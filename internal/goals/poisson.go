// Package goals models football scorelines as a pair of Poisson goal counts.
package goals

import (
	"fmt"
	"math"

	"matchcast/engine/internal/models"
)

// Params configures the independent Poisson model
type Params struct {
	// Goals per match across the league; each side is scaled by half of it
	LeagueAverageGoals float64 `yaml:"league_average_goals"`
	// Multiplier applied to the home expected goals
	HomeAdvantage float64 `yaml:"home_advantage"`
	MinLambda     float64 `yaml:"min_lambda"`
	MaxLambda     float64 `yaml:"max_lambda"`
}

// DefaultParams returns the standard Poisson configuration
func DefaultParams() Params {
	return Params{
		LeagueAverageGoals: 2.75,
		HomeAdvantage:      1.15,
		MinLambda:          0.3,
		MaxLambda:          5.0,
	}
}

// Validate checks the configuration is usable
func (p Params) Validate() error {
	if p.LeagueAverageGoals <= 0 {
		return fmt.Errorf("league_average_goals must be positive, got %v", p.LeagueAverageGoals)
	}
	if p.HomeAdvantage <= 0 {
		return fmt.Errorf("home_advantage must be positive, got %v", p.HomeAdvantage)
	}
	if p.MinLambda <= 0 || p.MaxLambda <= p.MinLambda {
		return fmt.Errorf("lambda clamp [%v, %v] is invalid", p.MinLambda, p.MaxLambda)
	}
	return nil
}

// Poisson treats home and away goals as independent Poisson counts
type Poisson struct {
	params Params
}

// NewPoisson creates a Poisson model
func NewPoisson(params Params) *Poisson {
	return &Poisson{params: params}
}

// Params returns the model configuration
func (m *Poisson) Params() Params {
	return m.params
}

// WithLeagueAverage returns a copy using a different league scoring rate.
// Non-positive values keep the current rate.
func (m *Poisson) WithLeagueAverage(avg float64) *Poisson {
	if avg <= 0 {
		return m
	}
	p := m.params
	p.LeagueAverageGoals = avg
	return &Poisson{params: p}
}

// ExpectedGoals converts attack and defense rates into the expected goals pair.
// Defense is goals conceded per match, so higher means weaker.
func (m *Poisson) ExpectedGoals(homeAttack, homeDefense, awayAttack, awayDefense float64) (float64, float64) {
	lh, la := rawLambdas(m.params, homeAttack, homeDefense, awayAttack, awayDefense)
	return clamp(lh, m.params.MinLambda, m.params.MaxLambda), clamp(la, m.params.MinLambda, m.params.MaxLambda)
}

// Predict builds the normalized score distribution
func (m *Poisson) Predict(homeAttack, homeDefense, awayAttack, awayDefense float64) (*models.ScoreDistribution, error) {
	if err := validateRates(homeAttack, homeDefense, awayAttack, awayDefense); err != nil {
		return nil, err
	}
	lh, la := m.ExpectedGoals(homeAttack, homeDefense, awayAttack, awayDefense)
	return NewDistribution(lh, la, nil), nil
}

func rawLambdas(p Params, homeAttack, homeDefense, awayAttack, awayDefense float64) (float64, float64) {
	perTeam := p.LeagueAverageGoals / 2
	lh := homeAttack * awayDefense / perTeam * p.HomeAdvantage
	la := awayAttack * homeDefense / perTeam
	return lh, la
}

// TauFunc is a multiplicative correction applied to a single cell
type TauFunc func(homeGoals, awayGoals int) float64

// NewDistribution enumerates every scoreline up to models.MaxGoals, applies
// the optional correction and normalizes the table.
func NewDistribution(lambdaHome, lambdaAway float64, tau TauFunc) *models.ScoreDistribution {
	d := &models.ScoreDistribution{
		ExpectedHomeGoals: lambdaHome,
		ExpectedAwayGoals: lambdaAway,
	}

	var home, away [models.MaxGoals + 1]float64
	for k := 0; k <= models.MaxGoals; k++ {
		home[k] = PoissonPMF(lambdaHome, k)
		away[k] = PoissonPMF(lambdaAway, k)
	}

	for h := 0; h <= models.MaxGoals; h++ {
		for a := 0; a <= models.MaxGoals; a++ {
			p := home[h] * away[a]
			if tau != nil {
				p *= tau(h, a)
			}
			d.Cells[h][a] = p
		}
	}

	d.Normalize()
	return d
}

// PoissonPMF calculates P(X = k) where X ~ Poisson(lambda)
func PoissonPMF(lambda float64, k int) float64 {
	if k < 0 {
		return 0
	}
	if lambda <= 0 {
		if k == 0 {
			return 1.0
		}
		return 0
	}

	// Use log space for numerical stability
	logProb := float64(k)*math.Log(lambda) - lambda - logFactorial(k)
	return math.Exp(logProb)
}

// PoissonCDF calculates P(X <= k)
func PoissonCDF(lambda float64, k int) float64 {
	if k < 0 {
		return 0
	}
	total := 0.0
	for i := 0; i <= k; i++ {
		total += PoissonPMF(lambda, i)
	}
	return math.Min(total, 1.0)
}

func logFactorial(n int) float64 {
	if n <= 1 {
		return 0
	}
	r, _ := math.Lgamma(float64(n + 1))
	return r
}

// OverUnderProbability returns P(total > line) and P(total < line) from the
// summed rate. An integer line's push is discarded and the rest renormalized.
func OverUnderProbability(lambdaHome, lambdaAway, line float64) (over, under float64) {
	total := lambdaHome + lambdaAway
	upper := int(math.Ceil(line)) - 1
	under = PoissonCDF(total, upper)

	push := 0.0
	if line == math.Trunc(line) {
		push = PoissonPMF(total, int(line))
	}
	over = math.Max(0, 1-under-push)

	if sum := over + under; sum > 0 {
		over /= sum
		under /= sum
	}
	return over, under
}

// BTTSProbability returns the probability that both sides score and its complement
func BTTSProbability(lambdaHome, lambdaAway float64) (yes, no float64) {
	yes = (1 - math.Exp(-lambdaHome)) * (1 - math.Exp(-lambdaAway))
	return yes, 1 - yes
}

func validateRates(homeAttack, homeDefense, awayAttack, awayDefense float64) error {
	in := models.FootballInputs{
		HomeAttack:  homeAttack,
		HomeDefense: homeDefense,
		AwayAttack:  awayAttack,
		AwayDefense: awayDefense,
		HomeElo:     models.DefaultRating,
		AwayElo:     models.DefaultRating,
	}
	return in.Validate()
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

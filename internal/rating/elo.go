// Package rating implements ELO-style strength ratings and their outcome probabilities.
package rating

import (
	"fmt"
	"math"
)

// Params configures the standard ELO model
type Params struct {
	K             float64 `yaml:"k"`
	HomeAdvantage float64 `yaml:"home_advantage"`
	Scale         float64 `yaml:"scale"`

	// Draw probability starts at BaseDraw and shrinks by DrawSlope per rating
	// point of effective gap, never below DrawFloor.
	BaseDraw  float64 `yaml:"base_draw"`
	DrawFloor float64 `yaml:"draw_floor"`
	DrawSlope float64 `yaml:"draw_slope"`

	// Expected goals are split around GoalsPerMatch by the expected score
	GoalsPerMatch   float64 `yaml:"goals_per_match"`
	SupremacyFactor float64 `yaml:"supremacy_factor"`
}

// DefaultParams returns the standard ELO configuration
func DefaultParams() Params {
	return Params{
		K:               20,
		HomeAdvantage:   100,
		Scale:           400,
		BaseDraw:        0.25,
		DrawFloor:       0.09,
		DrawSlope:       0.0004,
		GoalsPerMatch:   2.75,
		SupremacyFactor: 3.0,
	}
}

// Validate checks the configuration is usable
func (p Params) Validate() error {
	if p.K <= 0 {
		return fmt.Errorf("k must be positive, got %v", p.K)
	}
	if p.Scale <= 0 {
		return fmt.Errorf("scale must be positive, got %v", p.Scale)
	}
	if p.DrawFloor < 0 || p.BaseDraw < p.DrawFloor || p.BaseDraw >= 1 {
		return fmt.Errorf("draw curve base=%v floor=%v is invalid", p.BaseDraw, p.DrawFloor)
	}
	if p.DrawSlope < 0 {
		return fmt.Errorf("draw_slope must be non-negative, got %v", p.DrawSlope)
	}
	if p.GoalsPerMatch <= 0 {
		return fmt.Errorf("goals_per_match must be positive, got %v", p.GoalsPerMatch)
	}
	return nil
}

// Elo is the standard logistic rating model with a fixed home advantage
type Elo struct {
	params Params
}

// NewElo creates an ELO model
func NewElo(params Params) *Elo {
	return &Elo{params: params}
}

// Params returns the model configuration
func (e *Elo) Params() Params {
	return e.params
}

// ExpectedScore returns the expected score of A against B in (0, 1)
func (e *Elo) ExpectedScore(ratingA, ratingB float64, isHomeA bool) float64 {
	diff := ratingB - ratingA
	if isHomeA {
		diff -= e.params.HomeAdvantage
	}
	return 1.0 / (1.0 + math.Pow(10, diff/e.params.Scale))
}

// DrawProbability returns the draw share for an effective rating gap
func (e *Elo) DrawProbability(gap float64) float64 {
	d := e.params.BaseDraw - e.params.DrawSlope*math.Abs(gap)
	return math.Max(e.params.DrawFloor, d)
}

// OutcomeProbabilities returns home win, draw and away win probabilities
func (e *Elo) OutcomeProbabilities(ratingHome, ratingAway float64) (home, draw, away float64) {
	expected := e.ExpectedScore(ratingHome, ratingAway, true)
	draw = e.DrawProbability(ratingHome + e.params.HomeAdvantage - ratingAway)

	home = (1 - draw) * expected
	away = (1 - draw) * (1 - expected)

	total := home + draw + away
	return home / total, draw / total, away / total
}

// ExpectedGoals splits the league scoring rate by the expected score
func (e *Elo) ExpectedGoals(ratingHome, ratingAway float64) (float64, float64) {
	expected := e.ExpectedScore(ratingHome, ratingAway, true)
	supremacy := (expected - 0.5) * e.params.SupremacyFactor
	half := e.params.GoalsPerMatch / 2
	return clamp(half+supremacy/2, 0.3, 5.0), clamp(half-supremacy/2, 0.3, 5.0)
}

// UpdateRatings returns the post-match ratings. The exchange is zero-sum.
func (e *Elo) UpdateRatings(ratingHome, ratingAway float64, goalsHome, goalsAway int) (float64, float64) {
	expected := e.ExpectedScore(ratingHome, ratingAway, true)
	delta := e.params.K * GoalDiffMultiplier(goalsHome-goalsAway) * (actualScore(goalsHome, goalsAway) - expected)
	return ratingHome + delta, ratingAway - delta
}

// GoalDiffMultiplier scales rating changes by margin of victory
func GoalDiffMultiplier(goalDiff int) float64 {
	gd := goalDiff
	if gd < 0 {
		gd = -gd
	}
	switch {
	case gd <= 1:
		return 1.0
	case gd == 2:
		return 1.5
	case gd == 3:
		return 1.75
	default:
		return 1.75 + float64(gd-3)/8.0
	}
}

func actualScore(goalsFor, goalsAgainst int) float64 {
	switch {
	case goalsFor > goalsAgainst:
		return 1.0
	case goalsFor == goalsAgainst:
		return 0.5
	}
	return 0.0
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

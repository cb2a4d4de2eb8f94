package ensemble

import (
	"fmt"
	"math"

	"matchcast/engine/internal/models"
	"matchcast/engine/internal/rating"
)

// TennisParams configures the tennis predictor
type TennisParams struct {
	Surface rating.SurfaceParams `yaml:"surface"`

	// Bonus for a top-tier player facing one ranked outside the low tier
	RankingBonus float64 `yaml:"ranking_bonus"`
	TopTierRank  int     `yaml:"top_tier_rank"`
	LowTierRank  int     `yaml:"low_tier_rank"`

	// Bonus when only one player's surface rating clears the threshold
	SpecialistBonus     float64 `yaml:"specialist_bonus"`
	SpecialistThreshold float64 `yaml:"specialist_threshold"`
	WinRateWeight       float64 `yaml:"win_rate_weight"`
}

// DefaultTennisParams returns the standard tennis configuration
func DefaultTennisParams() TennisParams {
	return TennisParams{
		Surface:             rating.DefaultSurfaceParams(),
		RankingBonus:        0.05,
		TopTierRank:         10,
		LowTierRank:         50,
		SpecialistBonus:     0.03,
		SpecialistThreshold: 1600,
		WinRateWeight:       0.1,
	}
}

// Validate checks the configuration is usable
func (p TennisParams) Validate() error {
	if err := p.Surface.Validate(); err != nil {
		return err
	}
	if p.TopTierRank < 1 || p.LowTierRank <= p.TopTierRank {
		return fmt.Errorf("ranking tiers top=%d low=%d are invalid", p.TopTierRank, p.LowTierRank)
	}
	if p.RankingBonus < 0 || p.SpecialistBonus < 0 || p.WinRateWeight < 0 {
		return fmt.Errorf("tennis bonuses must be non-negative")
	}
	return nil
}

// Tennis is a single surface-ELO model with additive bonuses
type Tennis struct {
	params  TennisParams
	shared  Params
	surface *rating.SurfaceElo
}

// NewTennis creates the tennis predictor
func NewTennis(params TennisParams, shared Params) *Tennis {
	return &Tennis{params: params, shared: shared, surface: rating.NewSurfaceElo(params.Surface)}
}

// Predict returns player win probabilities
func (t *Tennis) Predict(in *models.TennisInputs) (*models.TennisPrediction, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	p := t.params

	r1, r2 := in.SurfaceRatings()
	p1 := t.surface.WinProbability(r1, r2)

	switch {
	case in.Player1Ranking <= p.TopTierRank && in.Player2Ranking > p.LowTierRank:
		p1 += p.RankingBonus
	case in.Player2Ranking <= p.TopTierRank && in.Player1Ranking > p.LowTierRank:
		p1 -= p.RankingBonus
	}

	switch {
	case r1 > p.SpecialistThreshold && r2 <= p.SpecialistThreshold:
		p1 += p.SpecialistBonus
	case r2 > p.SpecialistThreshold && r1 <= p.SpecialistThreshold:
		p1 -= p.SpecialistBonus
	}

	if in.Player1WinRate != nil && in.Player2WinRate != nil {
		p1 += p.WinRateWeight * (*in.Player1WinRate - *in.Player2WinRate)
	}

	p1 = clampFinite(p1, t.shared.ProbFloor, t.shared.ProbCeil)
	p2 := 1 - p1

	winner := 1
	if p2 > p1 {
		winner = 2
	}

	pred := &models.TennisPrediction{
		Player1Prob:     p1,
		Player2Prob:     p2,
		PredictedWinner: winner,
		Confidence:      clampFinite(math.Abs(p1-0.5)*2, t.shared.ConfidenceMin, t.shared.ConfidenceMax),
		Surface:         in.Surface,
	}

	if in.Odds.HasBothSides() {
		prob, odds := p1, *in.Odds.Home
		if winner == 2 {
			prob, odds = p2, *in.Odds.Away
		}
		v := math.Abs(prob-models.ImpliedProbability(odds)) * pred.Confidence
		pred.ValueScore = &v
	}
	return pred, nil
}

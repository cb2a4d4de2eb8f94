package ensemble

import (
	"fmt"
	"math"

	"matchcast/engine/internal/models"
	"matchcast/engine/internal/rating"
)

// BasketballWeights are the sub-model weights of the basketball ensemble
type BasketballWeights struct {
	Elo           float64 `yaml:"elo"`
	NetRating     float64 `yaml:"net_rating"`
	ExpectedScore float64 `yaml:"expected_score"`
	Form          float64 `yaml:"form"`
}

// BasketballParams configures the basketball combiner
type BasketballParams struct {
	Weights BasketballWeights `yaml:"weights"`
	Elo     rating.Params     `yaml:"elo"`

	// Logistic slope per point of net-rating difference
	NetRatingScale float64 `yaml:"net_rating_scale"`
	// Home court edge in points per game
	HomeCourtPoints float64 `yaml:"home_court_points"`
	// Multiplier on the Poisson-style margin deviation sqrt(home+away)
	MarginDispersion float64 `yaml:"margin_dispersion"`

	SeasonWeight   float64 `yaml:"season_weight"`
	MomentumWeight float64 `yaml:"momentum_weight"`

	BackToBackShift       float64 `yaml:"back_to_back_shift"`
	BackToBackScoreFactor float64 `yaml:"back_to_back_score_factor"`
}

// DefaultBasketballParams returns the standard basketball configuration
func DefaultBasketballParams() BasketballParams {
	elo := rating.DefaultParams()
	elo.HomeAdvantage = 100
	return BasketballParams{
		Weights: BasketballWeights{
			Elo:           0.25,
			NetRating:     0.30,
			ExpectedScore: 0.25,
			Form:          0.20,
		},
		Elo:                   elo,
		NetRatingScale:        0.12,
		HomeCourtPoints:       3.0,
		MarginDispersion:      1.0,
		SeasonWeight:          0.6,
		MomentumWeight:        0.4,
		BackToBackShift:       0.03,
		BackToBackScoreFactor: 0.97,
	}
}

// Validate checks the configuration is usable
func (p BasketballParams) Validate() error {
	w := p.Weights
	if err := checkWeights("basketball", w.Elo, w.NetRating, w.ExpectedScore, w.Form); err != nil {
		return err
	}
	if err := p.Elo.Validate(); err != nil {
		return fmt.Errorf("basketball elo: %w", err)
	}
	if p.NetRatingScale <= 0 || p.MarginDispersion <= 0 {
		return fmt.Errorf("net_rating_scale and margin_dispersion must be positive")
	}
	if err := checkWeights("basketball form", p.SeasonWeight, p.MomentumWeight); err != nil {
		return err
	}
	if p.BackToBackScoreFactor <= 0 || p.BackToBackScoreFactor > 1 {
		return fmt.Errorf("back_to_back_score_factor must be within (0, 1], got %v", p.BackToBackScoreFactor)
	}
	return nil
}

// Basketball combines four two-way sub-models
type Basketball struct {
	params BasketballParams
	shared Params
	elo    *rating.Elo
}

// NewBasketball creates the basketball combiner
func NewBasketball(params BasketballParams, shared Params) *Basketball {
	return &Basketball{params: params, shared: shared, elo: rating.NewElo(params.Elo)}
}

// Elo returns the rating model behind the ELO sub-model, so results are
// settled with the same parameters the predictions use
func (b *Basketball) Elo() *rating.Elo {
	return b.elo
}

// Predict runs the sub-models and combines them
func (b *Basketball) Predict(in *models.BasketballInputs, adj *models.Adjustment) (*models.EnsemblePrediction, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := adj.Validate(); err != nil {
		return nil, err
	}
	p := b.params
	w := p.Weights

	eloHome := b.elo.ExpectedScore(in.HomeElo, in.AwayElo, true)

	netDiff := (in.HomeOffRating - in.HomeDefRating) - (in.AwayOffRating - in.AwayDefRating) + p.HomeCourtPoints
	netHome := sigmoid(p.NetRatingScale * netDiff)

	expHome, expAway := b.ExpectedScores(in)
	sd := p.MarginDispersion * math.Sqrt(expHome+expAway)
	scoreHome := normalCDF((expHome - expAway) / sd)

	formHome := p.SeasonWeight*in.HomeWinRate + p.MomentumWeight*in.HomeMomentum
	formAway := p.SeasonWeight*in.AwayWinRate + p.MomentumWeight*in.AwayMomentum
	formProb := clampFinite(0.5+0.5*(formHome-formAway), b.shared.ProbFloor, b.shared.ProbCeil)

	contributions := []models.ModelContribution{
		binary("elo", eloHome, w.Elo),
		binary("net_rating", netHome, w.NetRating),
		binary("expected_score", scoreHome, w.ExpectedScore),
		binary("form", formProb, w.Form),
	}

	shift := adj.HomeShift(b.shared.AdjustmentScale)
	if in.IsBackToBackHome {
		shift -= p.BackToBackShift
	}
	if in.IsBackToBackAway {
		shift += p.BackToBackShift
	}

	pred := combine(models.SportBasketball, contributions, false, shift, b.shared)
	pred.ExpectedHomeGoals = expHome
	pred.ExpectedAwayGoals = expAway
	if in.Odds != nil {
		pred.ValueScore = ValueScore(pred, in.Odds.Home, nil, in.Odds.Away)
	}
	return pred, nil
}

// ExpectedScores returns expected points from pace and ratings, including
// the home court edge and back-to-back fatigue.
func (b *Basketball) ExpectedScores(in *models.BasketballInputs) (float64, float64) {
	p := b.params
	possessions := (in.HomePace + in.AwayPace) / 2

	home := possessions/100*(in.HomeOffRating+in.AwayDefRating)/2 + p.HomeCourtPoints/2
	away := possessions/100*(in.AwayOffRating+in.HomeDefRating)/2 - p.HomeCourtPoints/2

	if in.IsBackToBackHome {
		home *= p.BackToBackScoreFactor
	}
	if in.IsBackToBackAway {
		away *= p.BackToBackScoreFactor
	}
	return math.Max(home, 1), math.Max(away, 1)
}

func binary(name string, home, weight float64) models.ModelContribution {
	return models.ModelContribution{
		Name:       name,
		HomeProb:   home,
		AwayProb:   1 - home,
		Weight:     weight,
		Confidence: math.Abs(home-0.5) * 2,
	}
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

func normalCDF(z float64) float64 {
	return 0.5 * (1 + math.Erf(z/math.Sqrt2))
}

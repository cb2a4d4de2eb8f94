package ensemble

import (
	"fmt"

	"matchcast/engine/internal/goals"
	"matchcast/engine/internal/learned"
	"matchcast/engine/internal/models"
	"matchcast/engine/internal/rating"

	"golang.org/x/sync/errgroup"
)

// Goal model names for FootballParams.GoalModel
const (
	GoalModelPoisson    = "poisson"
	GoalModelDixonColes = "dixon_coles"
)

// FootballWeights are the sub-model weights of the football ensemble
type FootballWeights struct {
	Poisson          float64 `yaml:"poisson"`
	Elo              float64 `yaml:"elo"`
	GradientBoosting float64 `yaml:"gradient_boosting"`
	RandomForest     float64 `yaml:"random_forest"`
}

// FootballParams configures the football combiner
type FootballParams struct {
	Weights FootballWeights `yaml:"weights"`
	// Share of expected-goals data mixed into attack/defense rates when present
	XGBlend float64 `yaml:"xg_blend"`
	// Which goal model feeds the ensemble and the market table
	GoalModel string `yaml:"goal_model"`
}

// DefaultFootballParams returns the standard football configuration
func DefaultFootballParams() FootballParams {
	return FootballParams{
		Weights: FootballWeights{
			Poisson:          0.25,
			Elo:              0.25,
			GradientBoosting: 0.30,
			RandomForest:     0.20,
		},
		XGBlend:   0.4,
		GoalModel: GoalModelPoisson,
	}
}

// Validate checks the configuration is usable
func (p FootballParams) Validate() error {
	w := p.Weights
	if err := checkWeights("football", w.Poisson, w.Elo, w.GradientBoosting, w.RandomForest); err != nil {
		return err
	}
	if p.XGBlend < 0 || p.XGBlend > 1 {
		return fmt.Errorf("xg_blend must be within [0, 1], got %v", p.XGBlend)
	}
	if p.GoalModel != GoalModelPoisson && p.GoalModel != GoalModelDixonColes {
		return fmt.Errorf("unknown goal_model %q", p.GoalModel)
	}
	return nil
}

// FootballResult is the football ensemble output with the artifacts the
// market and explanation layers reuse
type FootballResult struct {
	Prediction   *models.EnsemblePrediction
	Distribution *models.ScoreDistribution
	Features     learned.FeatureVector
}

// Football combines a goal model, advanced ELO and two learned models
type Football struct {
	params     FootballParams
	shared     Params
	poisson    *goals.Poisson
	dixonColes *goals.DixonColes
	elo        *rating.AdvancedElo
	gbt        *learned.Model
	rf         *learned.Model
}

// NewFootball wires the football combiner. The learned models are shared
// handles; they may be retrained concurrently with predictions.
func NewFootball(params FootballParams, shared Params, poisson *goals.Poisson, dixonColes *goals.DixonColes, elo *rating.AdvancedElo, gbt, rf *learned.Model) *Football {
	return &Football{
		params:     params,
		shared:     shared,
		poisson:    poisson,
		dixonColes: dixonColes,
		elo:        elo,
		gbt:        gbt,
		rf:         rf,
	}
}

// Predict runs every sub-model in parallel and combines them
func (f *Football) Predict(in *models.FootballInputs, adj *models.Adjustment) (*FootballResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := adj.Validate(); err != nil {
		return nil, err
	}

	hA, hD, aA, aD := f.blendedRates(in)
	features := learned.FootballFeatures(in)
	w := f.params.Weights

	var (
		g           errgroup.Group
		dist        *models.ScoreDistribution
		goalC, eloC models.ModelContribution
		gbtC, rfC   models.ModelContribution
	)

	g.Go(func() error {
		var err error
		if f.params.GoalModel == GoalModelDixonColes {
			dist, err = f.dixonColes.WithLeagueAverage(in.LeagueAverageGoals).Predict(hA, hD, aA, aD)
		} else {
			dist, err = f.poisson.WithLeagueAverage(in.LeagueAverageGoals).Predict(hA, hD, aA, aD)
		}
		if err != nil {
			return fmt.Errorf("goal model: %w", err)
		}
		s := dist.Summarize()
		goalC = models.ModelContribution{
			Name:       f.params.GoalModel,
			HomeProb:   s.HomeWinProb,
			DrawProb:   s.DrawProb,
			AwayProb:   s.AwayWinProb,
			Weight:     w.Poisson,
			Confidence: maxOf(s.HomeWinProb, s.DrawProb, s.AwayWinProb),
		}
		return nil
	})

	g.Go(func() error {
		p := f.elo.Predict(in.HomeElo, in.AwayElo, in.RecentResultsHome, in.RecentResultsAway)
		eloC = models.ModelContribution{
			Name:       "elo",
			HomeProb:   p.HomeProb,
			DrawProb:   p.DrawProb,
			AwayProb:   p.AwayProb,
			Weight:     w.Elo,
			Confidence: p.Confidence,
		}
		return nil
	})

	g.Go(func() error {
		gbtC = learnedContribution(f.gbt, features, w.GradientBoosting)
		return nil
	})

	g.Go(func() error {
		rfC = learnedContribution(f.rf, features, w.RandomForest)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	contributions := []models.ModelContribution{goalC, eloC, gbtC, rfC}
	pred := combine(models.SportFootball, contributions, true, adj.HomeShift(f.shared.AdjustmentScale), f.shared)
	pred.ExpectedHomeGoals = dist.ExpectedHomeGoals
	pred.ExpectedAwayGoals = dist.ExpectedAwayGoals
	if in.Odds != nil {
		pred.ValueScore = ValueScore(pred, in.Odds.Home, in.Odds.Draw, in.Odds.Away)
	}

	return &FootballResult{Prediction: pred, Distribution: dist, Features: features}, nil
}

// blendedRates mixes expected-goals data into the attack/defense rates
func (f *Football) blendedRates(in *models.FootballInputs) (hA, hD, aA, aD float64) {
	b := f.params.XGBlend
	mix := func(rate float64, xg *float64) float64 {
		if xg == nil {
			return rate
		}
		return (1-b)*rate + b*(*xg)
	}
	return mix(in.HomeAttack, in.HomeXGFor),
		mix(in.HomeDefense, in.HomeXGAgainst),
		mix(in.AwayAttack, in.AwayXGFor),
		mix(in.AwayDefense, in.AwayXGAgainst)
}

func learnedContribution(m *learned.Model, x learned.FeatureVector, weight float64) models.ModelContribution {
	p := m.Predict(x)
	return models.ModelContribution{
		Name:       m.Name(),
		HomeProb:   p.Probs[0],
		DrawProb:   p.Probs[1],
		AwayProb:   p.Probs[2],
		Weight:     weight,
		Confidence: p.Confidence,
	}
}

func maxOf(vs ...float64) float64 {
	best := vs[0]
	for _, v := range vs[1:] {
		if v > best {
			best = v
		}
	}
	return best
}

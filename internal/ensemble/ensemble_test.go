package ensemble

import (
	"encoding/json"
	"math"
	"testing"

	"matchcast/engine/internal/goals"
	"matchcast/engine/internal/learned"
	"matchcast/engine/internal/models"
	"matchcast/engine/internal/rating"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

func newFootball(params FootballParams) *Football {
	return NewFootball(
		params,
		DefaultParams(),
		goals.NewPoisson(goals.DefaultParams()),
		goals.NewDixonColes(goals.DefaultDixonColesParams()),
		rating.NewAdvancedElo(rating.DefaultAdvancedParams()),
		learned.NewModel(learned.GBTTrainer{Params: learned.DefaultGBTParams()}),
		learned.NewModel(learned.RFTrainer{Params: learned.DefaultRFParams()}),
	)
}

func footballInputs() *models.FootballInputs {
	return &models.FootballInputs{
		HomeAttack:  2.1,
		HomeDefense: 1.3,
		AwayAttack:  1.8,
		AwayDefense: 1.5,
		HomeElo:     1620,
		AwayElo:     1540,
	}
}

func assertValidTriple(t *testing.T, p *models.EnsemblePrediction) {
	t.Helper()
	assert.InDelta(t, 1.0, p.HomeProb+p.DrawProb+p.AwayProb, 1e-6)
	for _, v := range p.Probabilities() {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
	assert.GreaterOrEqual(t, p.Confidence, 0.1)
	assert.LessOrEqual(t, p.Confidence, 0.95)
	assert.GreaterOrEqual(t, p.ModelAgreement, 0.0)
	assert.LessOrEqual(t, p.ModelAgreement, 1.0)
	assert.GreaterOrEqual(t, p.Uncertainty, 0.0)
	assert.LessOrEqual(t, p.Uncertainty, 1.0)
}

func TestFootball_Predict(t *testing.T) {
	f := newFootball(DefaultFootballParams())
	res, err := f.Predict(footballInputs(), nil)
	require.NoError(t, err)

	p := res.Prediction
	assertValidTriple(t, p)
	assert.Equal(t, models.SportFootball, p.Sport)
	assert.Equal(t, models.OutcomeHome, p.RecommendedOutcome)
	assert.Greater(t, p.ExpectedHomeGoals, p.ExpectedAwayGoals)
	assert.Nil(t, p.ValueScore)
	assert.Equal(t, "none", p.CalibrationMethod)

	require.Len(t, p.Contributions, 4)
	names := []string{}
	wsum := 0.0
	for _, c := range p.Contributions {
		names = append(names, c.Name)
		wsum += c.Weight
	}
	assert.Equal(t, []string{"poisson", "elo", "gradient_boosting", "random_forest"}, names)
	assert.InDelta(t, 1.0, wsum, 1e-12)

	assert.InDelta(t, 1.0, res.Distribution.Total(), 1e-9)
	assert.Equal(t, learned.FootballFeatures(footballInputs()), res.Features)
}

func TestFootball_AdjustmentShiftsHome(t *testing.T) {
	f := newFootball(DefaultFootballParams())
	base, err := f.Predict(footballInputs(), nil)
	require.NoError(t, err)

	adj := &models.Adjustment{SentimentHome: 0.1, InjuryImpactAway: 0.05}
	shifted, err := f.Predict(footballInputs(), adj)
	require.NoError(t, err)
	assert.Greater(t, shifted.Prediction.HomeProb, base.Prediction.HomeProb)
	assertValidTriple(t, shifted.Prediction)

	_, err = f.Predict(footballInputs(), &models.Adjustment{SentimentHome: 3})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestFootball_XGBlend(t *testing.T) {
	f := newFootball(DefaultFootballParams())
	in := footballInputs()
	base, err := f.Predict(in, nil)
	require.NoError(t, err)

	in.HomeXGFor = f64(3.0)
	blended, err := f.Predict(in, nil)
	require.NoError(t, err)
	assert.Greater(t, blended.Prediction.ExpectedHomeGoals, base.Prediction.ExpectedHomeGoals)
}

func TestFootball_RejectsInvalidInputs(t *testing.T) {
	f := newFootball(DefaultFootballParams())
	in := footballInputs()
	in.AwayAttack = -1
	_, err := f.Predict(in, nil)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestFootball_ValueScore(t *testing.T) {
	f := newFootball(DefaultFootballParams())
	in := footballInputs()
	in.Odds = &models.FootballOdds{Home: f64(2.4), Draw: f64(3.4), Away: f64(3.1)}

	res, err := f.Predict(in, nil)
	require.NoError(t, err)
	require.NotNil(t, res.Prediction.ValueScore)

	p := res.Prediction
	expected := (p.HomeProb - 1/2.4)
	if expected < 0 {
		expected = -expected
	}
	assert.InDelta(t, expected*p.Confidence, *p.ValueScore, 1e-12)

	in.Odds = &models.FootballOdds{Home: f64(2.4)}
	res, err = f.Predict(in, nil)
	require.NoError(t, err)
	assert.Nil(t, res.Prediction.ValueScore)
}

func TestFootball_DixonColesGoalModel(t *testing.T) {
	params := DefaultFootballParams()
	params.GoalModel = GoalModelDixonColes
	require.NoError(t, params.Validate())

	res, err := newFootball(params).Predict(footballInputs(), nil)
	require.NoError(t, err)
	assert.Equal(t, "dixon_coles", res.Prediction.Contributions[0].Name)
	assert.LessOrEqual(t, res.Prediction.ExpectedHomeGoals, 4.0)
	assertValidTriple(t, res.Prediction)
}

func TestCombine_AgreementAndConfidence(t *testing.T) {
	spreads := [][]float64{
		{0.7, 0.7, 0.7, 0.7},
		{0.65, 0.75, 0.65, 0.75},
		{0.6, 0.8, 0.6, 0.8},
		{0.55, 0.85, 0.55, 0.85},
	}

	prev := 2.0
	for _, homes := range spreads {
		var cs []models.ModelContribution
		for _, h := range homes {
			cs = append(cs, binary("m", h, 0.25))
		}
		p := combine(models.SportBasketball, cs, false, 0, DefaultParams())
		assert.Equal(t, 1.0, p.ModelAgreement)
		assert.InDelta(t, 0.7, p.HomeProb, 1e-12)
		assert.Less(t, p.Confidence, prev)
		prev = p.Confidence
	}
}

func TestCombine_PartialAgreement(t *testing.T) {
	cs := []models.ModelContribution{
		binary("a", 0.8, 0.25),
		binary("b", 0.7, 0.25),
		binary("c", 0.6, 0.25),
		binary("d", 0.3, 0.25),
	}
	p := combine(models.SportBasketball, cs, false, 0, DefaultParams())
	assert.Equal(t, 0.75, p.ModelAgreement)
	assert.Equal(t, models.OutcomeHome, p.RecommendedOutcome)
	assert.Equal(t, 0.0, p.DrawProb)
}

func TestFootball_ExtremeRates(t *testing.T) {
	f := newFootball(DefaultFootballParams())

	in := footballInputs()
	in.HomeAttack = 1e303
	in.AwayDefense = 0
	_, err := f.Predict(in, nil)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	in.HomeAttack = models.MaxGoalRate
	in.AwayAttack = models.MaxGoalRate
	in.HomeDefense = 0
	res, err := f.Predict(in, nil)
	require.NoError(t, err)

	p := res.Prediction
	assertValidTriple(t, p)
	for _, c := range p.Contributions {
		for _, v := range []float64{c.HomeProb, c.DrawProb, c.AwayProb} {
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), c.Name)
		}
	}
	_, err = json.Marshal(p)
	assert.NoError(t, err)
}

func TestCombine_NonFiniteContributions(t *testing.T) {
	cs := []models.ModelContribution{
		{Name: "a", HomeProb: 0.6, DrawProb: 0.2, AwayProb: 0.2, Weight: 0.5},
		{Name: "b", HomeProb: math.NaN(), DrawProb: math.NaN(), AwayProb: math.Inf(1), Weight: 0.5},
	}
	p := combine(models.SportFootball, cs, true, 0, DefaultParams())
	assertValidTriple(t, p)
	assert.False(t, math.IsNaN(p.Uncertainty))
	assert.False(t, math.IsNaN(p.Confidence))
}

func TestCombine_ClampsExtremes(t *testing.T) {
	cs := []models.ModelContribution{{Name: "x", HomeProb: 1, DrawProb: 0, AwayProb: 0, Weight: 1}}
	p := combine(models.SportFootball, cs, true, 0.5, DefaultParams())
	assert.InDelta(t, 1.0, p.HomeProb+p.DrawProb+p.AwayProb, 1e-12)
	assert.InDelta(t, 0.95/1.05, p.HomeProb, 1e-12)
	assert.InDelta(t, 0.05/1.05, p.DrawProb, 1e-12)
}

func basketballInputs() *models.BasketballInputs {
	return &models.BasketballInputs{
		HomeElo: 1550, AwayElo: 1550,
		HomeOffRating: 112, HomeDefRating: 110,
		AwayOffRating: 112, AwayDefRating: 110,
		HomePace: 99, AwayPace: 99,
		HomeWinRate: 0.55, AwayWinRate: 0.55,
		HomeMomentum: 0.6, AwayMomentum: 0.6,
	}
}

func TestBasketball_Predict(t *testing.T) {
	b := NewBasketball(DefaultBasketballParams(), DefaultParams())
	p, err := b.Predict(basketballInputs(), nil)
	require.NoError(t, err)

	assertValidTriple(t, p)
	assert.Equal(t, 0.0, p.DrawProb)
	assert.Greater(t, p.HomeProb, 0.5, "home court edge with identical teams")
	assert.Len(t, p.Contributions, 4)
	assert.Greater(t, p.ExpectedHomeGoals, p.ExpectedAwayGoals)
}

func TestBasketball_BackToBack(t *testing.T) {
	b := NewBasketball(DefaultBasketballParams(), DefaultParams())

	rested, err := b.Predict(basketballInputs(), nil)
	require.NoError(t, err)

	in := basketballInputs()
	in.IsBackToBackHome = true
	tired, err := b.Predict(in, nil)
	require.NoError(t, err)
	assert.Less(t, tired.HomeProb, rested.HomeProb)
	assert.InDelta(t, rested.ExpectedHomeGoals*0.97, tired.ExpectedHomeGoals, 1e-9)

	in = basketballInputs()
	in.IsBackToBackAway = true
	awayTired, err := b.Predict(in, nil)
	require.NoError(t, err)
	assert.Greater(t, awayTired.HomeProb, rested.HomeProb)
}

func TestBasketball_ValueScore(t *testing.T) {
	b := NewBasketball(DefaultBasketballParams(), DefaultParams())
	in := basketballInputs()
	in.Odds = &models.BinaryOdds{Home: f64(1.8), Away: f64(2.1)}
	p, err := b.Predict(in, nil)
	require.NoError(t, err)
	require.NotNil(t, p.ValueScore)
	assert.GreaterOrEqual(t, *p.ValueScore, 0.0)
}

func TestTennis_Scenario(t *testing.T) {
	tn := NewTennis(DefaultTennisParams(), DefaultParams())
	p, err := tn.Predict(&models.TennisInputs{
		Player1Elo: 1700, Player2Elo: 1500,
		Player1Ranking: 5, Player2Ranking: 80,
		Surface: models.SurfaceHard,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, p.PredictedWinner)
	assert.Greater(t, p.Player1Prob, 0.6)
	assert.InDelta(t, 1.0, p.Player1Prob+p.Player2Prob, 1e-12)
	assert.Nil(t, p.ValueScore)

	swapped, err := tn.Predict(&models.TennisInputs{
		Player1Elo: 1500, Player2Elo: 1700,
		Player1Ranking: 80, Player2Ranking: 5,
		Surface: models.SurfaceHard,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, swapped.PredictedWinner)
	assert.InDelta(t, p.Player1Prob, swapped.Player2Prob, 1e-12)
}

func TestTennis_Bonuses(t *testing.T) {
	tn := NewTennis(DefaultTennisParams(), DefaultParams())
	base := models.TennisInputs{Player1Elo: 1550, Player2Elo: 1550, Player1Ranking: 20, Player2Ranking: 25, Surface: models.SurfaceClay}

	even, err := tn.Predict(&base)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, even.Player1Prob, 1e-12)

	specialist := base
	specialist.Player1SurfaceElo = f64(1650)
	specialist.Player2SurfaceElo = f64(1550)
	sp, err := tn.Predict(&specialist)
	require.NoError(t, err)
	plain := 1 / (1 + math.Pow(10, -100.0/400))
	assert.InDelta(t, plain+0.03, sp.Player1Prob, 1e-12)

	form := base
	form.Player1WinRate = f64(0.8)
	form.Player2WinRate = f64(0.4)
	fp, err := tn.Predict(&form)
	require.NoError(t, err)
	assert.InDelta(t, 0.54, fp.Player1Prob, 1e-12)

	priced := base
	priced.Odds = &models.BinaryOdds{Home: f64(1.9), Away: f64(1.9)}
	pp, err := tn.Predict(&priced)
	require.NoError(t, err)
	require.NotNil(t, pp.ValueScore)

	bad := base
	bad.Surface = "sand"
	_, err = tn.Predict(&bad)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestParamsValidate(t *testing.T) {
	require.NoError(t, DefaultParams().Validate())
	require.NoError(t, DefaultFootballParams().Validate())
	require.NoError(t, DefaultBasketballParams().Validate())
	require.NoError(t, DefaultTennisParams().Validate())

	fp := DefaultFootballParams()
	fp.Weights.Elo = 0.3
	assert.Error(t, fp.Validate())

	fp = DefaultFootballParams()
	fp.GoalModel = "negbin"
	assert.Error(t, fp.Validate())

	bp := DefaultBasketballParams()
	bp.Weights.Form = 0
	assert.Error(t, bp.Validate())
}

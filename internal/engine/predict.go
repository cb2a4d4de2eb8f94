package engine

import (
	"math"
	"time"

	"matchcast/engine/internal/ensemble"
	"matchcast/engine/internal/explain"
	"matchcast/engine/internal/learned"
	"matchcast/engine/internal/markets"
	"matchcast/engine/internal/metrics"
	"matchcast/engine/internal/models"

	"github.com/rs/zerolog/log"
)

// FootballRequest asks for a football prediction
type FootballRequest struct {
	MatchID    string                `json:"match_id,omitempty"`
	Inputs     models.FootballInputs `json:"inputs"`
	Adjustment *models.Adjustment    `json:"adjustment,omitempty"`
	Explain    bool                  `json:"explain,omitempty"`
}

// FootballResponse is a football prediction with its derived markets
type FootballResponse struct {
	Prediction   *models.EnsemblePrediction     `json:"prediction"`
	Markets      *models.MultiMarketsPrediction `json:"markets"`
	Explanations []explain.Explanation          `json:"explanations,omitempty"`

	// Learned-model input, persisted as training data
	Features learned.FeatureVector `json:"-"`
}

// BasketballRequest asks for a basketball prediction. Empty line lists
// price a single half-point line nearest the expected total and margin.
type BasketballRequest struct {
	MatchID     string                  `json:"match_id,omitempty"`
	Inputs      models.BasketballInputs `json:"inputs"`
	Adjustment  *models.Adjustment      `json:"adjustment,omitempty"`
	TotalLines  []float64               `json:"total_lines,omitempty"`
	SpreadLines []float64               `json:"spread_lines,omitempty"`
}

// BasketballResponse is a basketball prediction with totals and spreads
type BasketballResponse struct {
	Prediction *models.EnsemblePrediction     `json:"prediction"`
	Markets    *models.MultiMarketsPrediction `json:"markets"`
}

// TennisRequest asks for a tennis prediction
type TennisRequest struct {
	MatchID string              `json:"match_id,omitempty"`
	Inputs  models.TennisInputs `json:"inputs"`
}

// PredictFootball runs the football ensemble, calibrates the triple and
// derives the goal markets from the goal model's score distribution
func (e *Engine) PredictFootball(req *FootballRequest) (*FootballResponse, error) {
	start := time.Now()
	sport := string(models.SportFootball)

	res, err := e.football.Predict(&req.Inputs, req.Adjustment)
	if err != nil {
		metrics.RecordPrediction(sport, "invalid", time.Since(start).Seconds(), 0)
		return nil, err
	}
	e.recordFallbacks()

	pred := res.Prediction
	e.calibrate(pred)
	if req.Inputs.Odds != nil {
		pred.ValueScore = ensemble.ValueScore(pred, req.Inputs.Odds.Home, req.Inputs.Odds.Draw, req.Inputs.Odds.Away)
	}

	mk, err := markets.Derive(res.Distribution, pred.HomeProb, pred.DrawProb, pred.AwayProb, req.Inputs.Odds, e.tuning.Markets)
	if err != nil {
		metrics.RecordPrediction(sport, "error", time.Since(start).Seconds(), 0)
		return nil, err
	}

	resp := &FootballResponse{Prediction: pred, Markets: mk, Features: res.Features}
	if req.Explain {
		resp.Explanations = e.explain(res.Features)
	}

	metrics.RecordPrediction(sport, "success", time.Since(start).Seconds(), pred.Confidence)
	log.Debug().
		Str("match_id", req.MatchID).
		Float64("home", pred.HomeProb).
		Float64("draw", pred.DrawProb).
		Float64("away", pred.AwayProb).
		Str("calibration", pred.CalibrationMethod).
		Msg("Football prediction")

	return resp, nil
}

// PredictBasketball runs the basketball ensemble and prices totals and spreads
func (e *Engine) PredictBasketball(req *BasketballRequest) (*BasketballResponse, error) {
	start := time.Now()
	sport := string(models.SportBasketball)

	pred, err := e.basketball.Predict(&req.Inputs, req.Adjustment)
	if err != nil {
		metrics.RecordPrediction(sport, "invalid", time.Since(start).Seconds(), 0)
		return nil, err
	}

	e.calibrate(pred)
	if req.Inputs.Odds != nil {
		pred.ValueScore = ensemble.ValueScore(pred, req.Inputs.Odds.Home, nil, req.Inputs.Odds.Away)
	}

	expHome, expAway := pred.ExpectedHomeGoals, pred.ExpectedAwayGoals
	totals, spreads := req.TotalLines, req.SpreadLines
	if len(totals) == 0 {
		totals = []float64{halfPointLine(expHome + expAway)}
	}
	if len(spreads) == 0 {
		spreads = []float64{-halfPointLine(expHome - expAway)}
	}

	mk, err := markets.DeriveBasketball(expHome, expAway, totals, spreads, req.Inputs.Odds, e.tuning.Markets)
	if err != nil {
		metrics.RecordPrediction(sport, "error", time.Since(start).Seconds(), 0)
		return nil, err
	}

	metrics.RecordPrediction(sport, "success", time.Since(start).Seconds(), pred.Confidence)
	log.Debug().
		Str("match_id", req.MatchID).
		Float64("home", pred.HomeProb).
		Float64("away", pred.AwayProb).
		Msg("Basketball prediction")

	return &BasketballResponse{Prediction: pred, Markets: mk}, nil
}

// PredictTennis runs the tennis predictor. Tennis probabilities are not
// calibrated.
func (e *Engine) PredictTennis(req *TennisRequest) (*models.TennisPrediction, error) {
	start := time.Now()
	sport := string(models.SportTennis)

	pred, err := e.tennis.Predict(&req.Inputs)
	if err != nil {
		metrics.RecordPrediction(sport, "invalid", time.Since(start).Seconds(), 0)
		return nil, err
	}

	metrics.RecordPrediction(sport, "success", time.Since(start).Seconds(), pred.Confidence)
	log.Debug().
		Str("match_id", req.MatchID).
		Float64("player1", pred.Player1Prob).
		Str("surface", string(pred.Surface)).
		Msg("Tennis prediction")

	return pred, nil
}

// Explain attributes both learned models' predictions for a football match
func (e *Engine) Explain(in *models.FootballInputs) ([]explain.Explanation, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return e.explain(learned.FootballFeatures(in)), nil
}

func (e *Engine) explain(x learned.FeatureVector) []explain.Explanation {
	return []explain.Explanation{
		explain.Explain(e.gbt, x),
		explain.Explain(e.rf, x),
	}
}

// halfPointLine returns the half-point line just above x
func halfPointLine(x float64) float64 {
	return math.Floor(x) + 0.5
}

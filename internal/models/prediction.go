package models

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Sport identifies which combiner produced a prediction
type Sport string

const (
	SportFootball   Sport = "football"
	SportBasketball Sport = "basketball"
	SportTennis     Sport = "tennis"
)

// ModelContribution is one sub-model's output feeding an ensemble
type ModelContribution struct {
	Name       string  `json:"name"`
	HomeProb   float64 `json:"home_prob"`
	DrawProb   float64 `json:"draw_prob,omitempty"`
	AwayProb   float64 `json:"away_prob"`
	Weight     float64 `json:"weight"`
	Confidence float64 `json:"confidence"`
}

// Argmax returns the side this contribution favors
func (c ModelContribution) Argmax() Outcome {
	return Argmax(c.HomeProb, c.DrawProb, c.AwayProb)
}

// Argmax returns the outcome with the highest probability.
// Ties resolve in home, draw, away order.
func Argmax(home, draw, away float64) Outcome {
	best := OutcomeHome
	bestP := home
	if draw > bestP {
		best, bestP = OutcomeDraw, draw
	}
	if away > bestP {
		best = OutcomeAway
	}
	return best
}

// EnsemblePrediction is the combined output of a sport combiner
type EnsemblePrediction struct {
	Sport Sport `json:"sport"`

	HomeProb float64 `json:"home_prob"`
	DrawProb float64 `json:"draw_prob,omitempty"`
	AwayProb float64 `json:"away_prob"`

	RecommendedOutcome Outcome `json:"recommended_outcome"`
	Confidence         float64 `json:"confidence"`
	ModelAgreement     float64 `json:"model_agreement"`
	Uncertainty        float64 `json:"uncertainty"`

	ExpectedHomeGoals float64 `json:"expected_home_goals"`
	ExpectedAwayGoals float64 `json:"expected_away_goals"`

	Contributions []ModelContribution `json:"contributions"`

	ValueScore *float64 `json:"value_score,omitempty"`

	// "none" until a fitted calibration has been applied
	CalibrationMethod string `json:"calibration_method"`
	// Ensemble output before calibration, set when a calibration was applied
	RawProbabilities *[3]float64 `json:"raw_probabilities,omitempty"`
}

// Probabilities returns the triple in outcome order
func (p *EnsemblePrediction) Probabilities() [3]float64 {
	return [3]float64{p.HomeProb, p.DrawProb, p.AwayProb}
}

// Raw returns the pre-calibration triple
func (p *EnsemblePrediction) Raw() [3]float64 {
	if p.RawProbabilities != nil {
		return *p.RawProbabilities
	}
	return p.Probabilities()
}

// TennisPrediction is the output of the tennis predictor. PredictedWinner is 1 or 2.
type TennisPrediction struct {
	Player1Prob     float64  `json:"player1_prob"`
	Player2Prob     float64  `json:"player2_prob"`
	PredictedWinner int      `json:"predicted_winner"`
	Confidence      float64  `json:"confidence"`
	Surface         Surface  `json:"surface"`
	ValueScore      *float64 `json:"value_score,omitempty"`
}

// PredictionRecord is the persisted shape of an EnsemblePrediction
type PredictionRecord struct {
	ID           uuid.UUID      `db:"id"`
	MatchID      string         `db:"match_id"`
	Sport        Sport          `db:"sport"`
	ModelVersion sql.NullString `db:"model_version"`

	HomeProb float64         `db:"home_prob"`
	DrawProb sql.NullFloat64 `db:"draw_prob"`
	AwayProb float64         `db:"away_prob"`

	// Pre-calibration triple, the input of the next calibration fit
	RawHomeProb float64 `db:"raw_home_prob"`
	RawDrawProb float64 `db:"raw_draw_prob"`
	RawAwayProb float64 `db:"raw_away_prob"`

	RecommendedOutcome string  `db:"recommended_outcome"`
	Confidence         float64 `db:"confidence"`
	ModelAgreement     float64 `db:"model_agreement"`
	Uncertainty        float64 `db:"uncertainty"`

	ExpectedHomeGoals sql.NullFloat64 `db:"expected_home_goals"`
	ExpectedAwayGoals sql.NullFloat64 `db:"expected_away_goals"`
	ValueScore        sql.NullFloat64 `db:"value_score"`

	CalibrationMethod string `db:"calibration_method"`

	// JSONB
	Contributions json.RawMessage `db:"contributions"`
	Explanation   json.RawMessage `db:"explanation"`
	Features      json.RawMessage `db:"features"`

	PredictedAt time.Time `db:"predicted_at"`
	CreatedAt   time.Time `db:"created_at"`
}

// NewPredictionRecord converts a prediction into its persisted shape
func NewPredictionRecord(matchID, modelVersion string, pred *EnsemblePrediction) *PredictionRecord {
	raw := pred.Raw()
	rec := &PredictionRecord{
		ID:                 uuid.New(),
		MatchID:            matchID,
		Sport:              pred.Sport,
		HomeProb:           pred.HomeProb,
		AwayProb:           pred.AwayProb,
		RawHomeProb:        raw[0],
		RawDrawProb:        raw[1],
		RawAwayProb:        raw[2],
		RecommendedOutcome: pred.RecommendedOutcome.String(),
		Confidence:         pred.Confidence,
		ModelAgreement:     pred.ModelAgreement,
		Uncertainty:        pred.Uncertainty,
		CalibrationMethod:  pred.CalibrationMethod,
		PredictedAt:        time.Now().UTC(),
	}

	if modelVersion != "" {
		rec.ModelVersion = sql.NullString{String: modelVersion, Valid: true}
	}
	if pred.Sport == SportFootball {
		rec.DrawProb = sql.NullFloat64{Float64: pred.DrawProb, Valid: true}
	}
	if pred.ExpectedHomeGoals > 0 || pred.ExpectedAwayGoals > 0 {
		rec.ExpectedHomeGoals = sql.NullFloat64{Float64: pred.ExpectedHomeGoals, Valid: true}
		rec.ExpectedAwayGoals = sql.NullFloat64{Float64: pred.ExpectedAwayGoals, Valid: true}
	}
	if pred.ValueScore != nil {
		rec.ValueScore = sql.NullFloat64{Float64: *pred.ValueScore, Valid: true}
	}

	if jsonData, err := json.Marshal(pred.Contributions); err == nil {
		rec.Contributions = jsonData
	}

	return rec
}

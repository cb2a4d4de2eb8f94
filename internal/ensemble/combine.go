// Package ensemble combines sport-specific sub-models into one prediction.
package ensemble

import (
	"fmt"
	"math"

	"matchcast/engine/internal/models"
)

// Params are the clamps shared by every combiner
type Params struct {
	ProbFloor     float64 `yaml:"prob_floor"`
	ProbCeil      float64 `yaml:"prob_ceil"`
	ConfidenceMin float64 `yaml:"confidence_min"`
	ConfidenceMax float64 `yaml:"confidence_max"`
	// Multiplier on the sentiment/injury shift applied to the home probability
	AdjustmentScale float64 `yaml:"adjustment_scale"`
}

// DefaultParams returns the standard clamps
func DefaultParams() Params {
	return Params{
		ProbFloor:       0.05,
		ProbCeil:        0.95,
		ConfidenceMin:   0.1,
		ConfidenceMax:   0.95,
		AdjustmentScale: 1.0,
	}
}

// Validate checks the configuration is usable
func (p Params) Validate() error {
	if p.ProbFloor <= 0 || p.ProbCeil >= 1 || p.ProbFloor >= p.ProbCeil {
		return fmt.Errorf("probability clamp [%v, %v] is invalid", p.ProbFloor, p.ProbCeil)
	}
	if p.ConfidenceMin < 0 || p.ConfidenceMax > 1 || p.ConfidenceMin >= p.ConfidenceMax {
		return fmt.Errorf("confidence clamp [%v, %v] is invalid", p.ConfidenceMin, p.ConfidenceMax)
	}
	if p.AdjustmentScale < 0 {
		return fmt.Errorf("adjustment_scale must be non-negative, got %v", p.AdjustmentScale)
	}
	return nil
}

// combine folds sub-model outputs into an ensemble prediction. homeShift is
// added to the weighted home probability before clamping and the final
// renormalization. Two-way sports pass threeWay=false and carry no draw.
func combine(sport models.Sport, contributions []models.ModelContribution, threeWay bool, homeShift float64, p Params) *models.EnsemblePrediction {
	var home, draw, away, wsum float64
	for _, c := range contributions {
		home += c.Weight * clampFinite(c.HomeProb, 0, 1)
		draw += c.Weight * clampFinite(c.DrawProb, 0, 1)
		away += c.Weight * clampFinite(c.AwayProb, 0, 1)
		wsum += c.Weight
	}
	if wsum > 0 {
		home, draw, away = home/wsum, draw/wsum, away/wsum
	}
	home += homeShift

	home = clampFinite(home, p.ProbFloor, p.ProbCeil)
	away = clampFinite(away, p.ProbFloor, p.ProbCeil)
	if threeWay {
		draw = clampFinite(draw, p.ProbFloor, p.ProbCeil)
	} else {
		draw = 0
	}
	total := home + draw + away
	home, draw, away = home/total, draw/total, away/total

	outcome := models.Argmax(home, draw, away)

	agree := 0
	homeProbs := make([]float64, 0, len(contributions))
	for _, c := range contributions {
		if c.Argmax() == outcome {
			agree++
		}
		homeProbs = append(homeProbs, clampFinite(c.HomeProb, 0, 1))
	}
	agreement := 0.0
	if len(contributions) > 0 {
		agreement = float64(agree) / float64(len(contributions))
	}
	uncertainty := clampFinite(4*variance(homeProbs), 0, 1)
	confidence := clampFinite(math.Abs(home-0.5)*2*agreement*(1-0.5*uncertainty), p.ConfidenceMin, p.ConfidenceMax)

	return &models.EnsemblePrediction{
		Sport:              sport,
		HomeProb:           home,
		DrawProb:           draw,
		AwayProb:           away,
		RecommendedOutcome: outcome,
		Confidence:         confidence,
		ModelAgreement:     agreement,
		Uncertainty:        uncertainty,
		Contributions:      contributions,
		CalibrationMethod:  "none",
	}
}

// ValueScore is |p - 1/odds| * confidence for the favored side, or nil
// unless both home and away prices are known.
func ValueScore(pred *models.EnsemblePrediction, home, draw, away *float64) *float64 {
	if home == nil || away == nil {
		return nil
	}
	var prob, odds float64
	switch pred.RecommendedOutcome {
	case models.OutcomeHome:
		prob, odds = pred.HomeProb, *home
	case models.OutcomeAway:
		prob, odds = pred.AwayProb, *away
	case models.OutcomeDraw:
		if draw == nil {
			return nil
		}
		prob, odds = pred.DrawProb, *draw
	}
	v := math.Abs(prob-models.ImpliedProbability(odds)) * pred.Confidence
	return &v
}

func variance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	v := 0.0
	for _, x := range xs {
		v += (x - mean) * (x - mean)
	}
	return v / float64(len(xs))
}

func clampFinite(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// checkWeights requires non-negative weights summing to 1
func checkWeights(name string, ws ...float64) error {
	total := 0.0
	for _, w := range ws {
		if w < 0 || math.IsNaN(w) {
			return fmt.Errorf("%s weights must be non-negative", name)
		}
		total += w
	}
	if math.Abs(total-1) > 1e-9 {
		return fmt.Errorf("%s weights must sum to 1, got %v", name, total)
	}
	return nil
}

// Package learned holds the tree-ensemble outcome classifiers and the
// deterministic heuristic used whenever no trained model is available.
package learned

import "matchcast/engine/internal/models"

// NumFeatures is the width of the engineered feature vector
const NumFeatures = 7

// NumClasses is the number of outcome classes (home, draw, away)
const NumClasses = 3

// FeatureVector is the engineered input of every learned model
type FeatureVector [NumFeatures]float64

// FeatureNames maps vector positions to names
var FeatureNames = [NumFeatures]string{
	"home_attack",
	"home_defense",
	"away_attack",
	"away_defense",
	"recent_form_home",
	"recent_form_away",
	"head_to_head_home",
}

// Feature indices
const (
	FeatureHomeAttack = iota
	FeatureHomeDefense
	FeatureAwayAttack
	FeatureAwayDefense
	FeatureFormHome
	FeatureFormAway
	FeatureHeadToHead
)

// FootballFeatures builds the feature vector from match inputs
func FootballFeatures(in *models.FootballInputs) FeatureVector {
	return FeatureVector{
		in.HomeAttack,
		in.HomeDefense,
		in.AwayAttack,
		in.AwayDefense,
		in.FormHome(),
		in.FormAway(),
		in.HeadToHeadHome,
	}
}

// Prediction is a learned model's class distribution
type Prediction struct {
	Probs      [NumClasses]float64 `json:"probs"`
	Confidence float64             `json:"confidence"`
}

// newPrediction normalizes the distribution and sets confidence to its max
func newPrediction(p [NumClasses]float64) Prediction {
	sum := 0.0
	for _, v := range p {
		sum += v
	}
	if sum <= 0 {
		p = [NumClasses]float64{1.0 / 3, 1.0 / 3, 1.0 / 3}
		sum = 1
	}
	best := 0.0
	for k := range p {
		p[k] /= sum
		if p[k] > best {
			best = p[k]
		}
	}
	return Prediction{Probs: p, Confidence: best}
}

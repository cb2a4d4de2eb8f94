package learned

// Backend is a prediction strategy resolved once and injected into a Model
type Backend interface {
	Name() string
	Predict(x FeatureVector) Prediction
	// FeatureImportance sums to 1 across FeatureNames
	FeatureImportance() map[string]float64
	// Contributions returns per-feature signed attribution toward class
	Contributions(x FeatureVector, class int) [NumFeatures]float64
}

const (
	heuristicEpsilon    = 1e-6
	heuristicConfidence = 0.55
)

// HeuristicBackend is the untrained fallback. Its output depends only on the
// four rate features and must stay bit-for-bit stable.
type HeuristicBackend struct{}

// Name implements Backend
func (HeuristicBackend) Name() string { return "heuristic" }

// Predict implements Backend
func (HeuristicBackend) Predict(x FeatureVector) Prediction {
	home := x[FeatureHomeAttack] / (x[FeatureAwayDefense] + heuristicEpsilon)
	away := x[FeatureAwayAttack] / (x[FeatureHomeDefense] + heuristicEpsilon)
	draw := 1.0
	sum := home + draw + away

	return Prediction{
		Probs:      [NumClasses]float64{home / sum, draw / sum, away / sum},
		Confidence: heuristicConfidence,
	}
}

// FeatureImportance implements Backend with a uniform split
func (HeuristicBackend) FeatureImportance() map[string]float64 {
	return importanceMap([NumFeatures]float64{})
}

// Contributions implements Backend; the heuristic attributes nothing
func (HeuristicBackend) Contributions(FeatureVector, int) [NumFeatures]float64 {
	return [NumFeatures]float64{}
}

// importanceMap normalizes raw gains, falling back to uniform when empty
func importanceMap(gain [NumFeatures]float64) map[string]float64 {
	total := 0.0
	for _, g := range gain {
		total += g
	}
	out := make(map[string]float64, NumFeatures)
	for i, name := range FeatureNames {
		if total <= 0 {
			out[name] = 1.0 / NumFeatures
			continue
		}
		out[name] = gain[i] / total
	}
	return out
}

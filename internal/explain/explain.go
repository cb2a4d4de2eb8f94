// Package explain ranks feature attributions of a learned model for one match.
package explain

import (
	"math"
	"sort"

	"matchcast/engine/internal/learned"
	"matchcast/engine/internal/models"
)

// FeatureContribution is one ranked attribution
type FeatureContribution struct {
	Feature      string  `json:"feature"`
	Value        float64 `json:"value"`
	Contribution float64 `json:"contribution"`
	Rank         int     `json:"rank"`
}

// Explanation is the ranked attribution toward the predicted class
type Explanation struct {
	Model          string                `json:"model"`
	PredictedClass models.Outcome        `json:"predicted_class"`
	Probability    float64               `json:"probability"`
	Fallback       bool                  `json:"fallback"`
	Contributions  []FeatureContribution `json:"contributions"`
}

// Explain attributes the model's prediction for x to its features.
// Untrained models yield zero contributions ranked by feature order.
func Explain(model *learned.Model, x learned.FeatureVector) Explanation {
	backend, state := model.Snapshot()
	pred := backend.Predict(x)
	class := models.Argmax(pred.Probs[0], pred.Probs[1], pred.Probs[2])

	var raw [learned.NumFeatures]float64
	fallback := state != learned.Trained
	if !fallback {
		raw = backend.Contributions(x, int(class))
	}

	out := make([]FeatureContribution, learned.NumFeatures)
	for i, name := range learned.FeatureNames {
		c := raw[i]
		if math.IsNaN(c) || math.IsInf(c, 0) {
			c = 0
		}
		out[i] = FeatureContribution{Feature: name, Value: x[i], Contribution: c}
	}

	// stable: ties keep feature order
	sort.SliceStable(out, func(a, b int) bool {
		return math.Abs(out[a].Contribution) > math.Abs(out[b].Contribution)
	})
	for i := range out {
		out[i].Rank = i + 1
	}

	return Explanation{
		Model:          model.Name(),
		PredictedClass: class,
		Probability:    pred.Probs[class],
		Fallback:       fallback,
		Contributions:  out,
	}
}

// Top returns the n highest ranked contributions
func (e Explanation) Top(n int) []FeatureContribution {
	if n < 0 {
		n = 0
	}
	if n > len(e.Contributions) {
		n = len(e.Contributions)
	}
	return e.Contributions[:n]
}

package learned

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"

	"matchcast/engine/internal/models"
)

// GBTParams configures gradient boosting
type GBTParams struct {
	Rounds         int     `yaml:"rounds"`
	LearningRate   float64 `yaml:"learning_rate"`
	MaxDepth       int     `yaml:"max_depth"`
	MinSamplesLeaf int     `yaml:"min_samples_leaf"`
	Subsample      float64 `yaml:"subsample"`
	MinSamples     int     `yaml:"min_samples"`
	Seed           int64   `yaml:"seed"`
}

// DefaultGBTParams returns the standard boosting configuration
func DefaultGBTParams() GBTParams {
	return GBTParams{
		Rounds:         80,
		LearningRate:   0.1,
		MaxDepth:       3,
		MinSamplesLeaf: 5,
		Subsample:      0.8,
		MinSamples:     30,
		Seed:           42,
	}
}

// Validate checks the configuration is usable
func (p GBTParams) Validate() error {
	if p.Rounds < 1 {
		return fmt.Errorf("rounds must be positive, got %d", p.Rounds)
	}
	if p.LearningRate <= 0 || p.LearningRate > 1 {
		return fmt.Errorf("learning_rate must be within (0, 1], got %v", p.LearningRate)
	}
	if p.MaxDepth < 1 || p.MinSamplesLeaf < 1 {
		return fmt.Errorf("max_depth and min_samples_leaf must be positive")
	}
	if p.Subsample <= 0 || p.Subsample > 1 {
		return fmt.Errorf("subsample must be within (0, 1], got %v", p.Subsample)
	}
	return nil
}

// maxLeafStep bounds a single Newton step in log-odds space
const maxLeafStep = 4.0

// GradientBoosting is a softmax multi-class boosted ensemble of regression trees
type GradientBoosting struct {
	Prior        [NumClasses]float64  `json:"prior"`
	LearningRate float64              `json:"learning_rate"`
	Rounds       [][NumClasses]Tree   `json:"rounds"`
	Gain         [NumFeatures]float64 `json:"gain"`
}

// GBTTrainer fits GradientBoosting backends
type GBTTrainer struct {
	Params GBTParams
}

// Name implements Trainer
func (GBTTrainer) Name() string { return "gradient_boosting" }

// Fit implements Trainer
func (t GBTTrainer) Fit(X []FeatureVector, y []int) (Backend, error) {
	if err := checkTrainingSet(X, y, t.Params.MinSamples); err != nil {
		return nil, err
	}
	p := t.Params
	rng := rand.New(rand.NewSource(p.Seed))
	n := len(X)

	m := &GradientBoosting{LearningRate: p.LearningRate}
	m.Prior = classPrior(y)

	scores := make([][NumClasses]float64, n)
	for i := range scores {
		scores[i] = m.Prior
	}

	targets := make([][]float64, n)
	for i := range targets {
		targets[i] = make([]float64, 1)
	}
	leafValue := func(idx []int) []float64 {
		var num, den float64
		for _, i := range idx {
			r := targets[i][0]
			num += r
			den += math.Abs(r) * (1 - math.Abs(r))
		}
		if den < 1e-12 {
			return []float64{0}
		}
		v := float64(NumClasses-1) / NumClasses * num / den
		return []float64{math.Max(-maxLeafStep, math.Min(maxLeafStep, v))}
	}

	builder := &treeBuilder{
		X:         X,
		targets:   targets,
		params:    treeParams{MaxDepth: p.MaxDepth, MinSamplesLeaf: p.MinSamplesLeaf},
		leafValue: leafValue,
		gain:      &m.Gain,
	}

	for round := 0; round < p.Rounds; round++ {
		idx := subsample(rng, n, p.Subsample)
		probs := make([][NumClasses]float64, n)
		for i := range scores {
			probs[i] = softmax(scores[i])
		}

		var trees [NumClasses]Tree
		for k := 0; k < NumClasses; k++ {
			for i := range targets {
				targets[i][0] = indicator(y[i] == k) - probs[i][k]
			}
			tree := builder.grow(idx)
			for i := range scores {
				scores[i][k] += p.LearningRate * tree.leaf(X[i])[0]
			}
			trees[k] = *tree
		}
		m.Rounds = append(m.Rounds, trees)
	}

	return m, nil
}

// Decode implements Trainer
func (GBTTrainer) Decode(data []byte) (Backend, error) {
	m := &GradientBoosting{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to decode gradient boosting model: %w", err)
	}
	return m, nil
}

// Name implements Backend
func (m *GradientBoosting) Name() string { return "gradient_boosting" }

func (m *GradientBoosting) scores(x FeatureVector) [NumClasses]float64 {
	s := m.Prior
	for r := range m.Rounds {
		for k := 0; k < NumClasses; k++ {
			s[k] += m.LearningRate * m.Rounds[r][k].leaf(x)[0]
		}
	}
	return s
}

// Predict implements Backend
func (m *GradientBoosting) Predict(x FeatureVector) Prediction {
	return newPrediction(softmax(m.scores(x)))
}

// FeatureImportance implements Backend
func (m *GradientBoosting) FeatureImportance() map[string]float64 {
	return importanceMap(m.Gain)
}

// Contributions implements Backend. Attributions are to the class score
// relative to the mean class score, which is what the softmax sees.
func (m *GradientBoosting) Contributions(x FeatureVector, class int) [NumFeatures]float64 {
	var perClass [NumClasses][NumFeatures]float64
	for r := range m.Rounds {
		for k := 0; k < NumClasses; k++ {
			m.Rounds[r][k].attribute(x, 0, m.LearningRate, &perClass[k])
		}
	}

	var out [NumFeatures]float64
	for f := 0; f < NumFeatures; f++ {
		mean := 0.0
		for k := 0; k < NumClasses; k++ {
			mean += perClass[k][f]
		}
		mean /= NumClasses
		out[f] = perClass[class][f] - mean
	}
	return out
}

func classPrior(y []int) [NumClasses]float64 {
	var counts [NumClasses]float64
	for _, label := range y {
		counts[label]++
	}
	var prior [NumClasses]float64
	n := float64(len(y)) + NumClasses
	for k := range prior {
		prior[k] = math.Log((counts[k] + 1) / n)
	}
	return prior
}

func softmax(s [NumClasses]float64) [NumClasses]float64 {
	maxS := s[0]
	for _, v := range s[1:] {
		maxS = math.Max(maxS, v)
	}
	var out [NumClasses]float64
	sum := 0.0
	for k, v := range s {
		out[k] = math.Exp(v - maxS)
		sum += out[k]
	}
	for k := range out {
		out[k] /= sum
	}
	return out
}

func subsample(rng *rand.Rand, n int, rate float64) []int {
	idx := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if rate >= 1 || rng.Float64() < rate {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		idx = append(idx, rng.Intn(n))
	}
	return idx
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func checkTrainingSet(X []FeatureVector, y []int, minSamples int) error {
	if len(X) != len(y) {
		return fmt.Errorf("feature rows (%d) and labels (%d) differ: %w", len(X), len(y), models.ErrInvalidInput)
	}
	if len(X) < minSamples || len(X) == 0 {
		return fmt.Errorf("%d samples (need %d): %w", len(X), minSamples, models.ErrInsufficientData)
	}
	for i, label := range y {
		if label < 0 || label >= NumClasses {
			return fmt.Errorf("label %d at row %d: %w", label, i, models.ErrInvalidInput)
		}
	}
	for i, x := range X {
		for f, v := range x {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("feature %s at row %d is not finite: %w", FeatureNames[f], i, models.ErrInvalidInput)
			}
		}
	}
	return nil
}

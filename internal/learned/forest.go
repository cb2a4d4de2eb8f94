package learned

import (
	"encoding/json"
	"fmt"
	"math/rand"
)

// RFParams configures the random forest
type RFParams struct {
	Trees          int   `yaml:"trees"`
	MaxDepth       int   `yaml:"max_depth"`
	MinSamplesLeaf int   `yaml:"min_samples_leaf"`
	MaxFeatures    int   `yaml:"max_features"`
	MinSamples     int   `yaml:"min_samples"`
	Seed           int64 `yaml:"seed"`
}

// DefaultRFParams returns the standard forest configuration
func DefaultRFParams() RFParams {
	return RFParams{
		Trees:          60,
		MaxDepth:       6,
		MinSamplesLeaf: 3,
		MaxFeatures:    3,
		MinSamples:     30,
		Seed:           7,
	}
}

// Validate checks the configuration is usable
func (p RFParams) Validate() error {
	if p.Trees < 1 {
		return fmt.Errorf("trees must be positive, got %d", p.Trees)
	}
	if p.MaxDepth < 1 || p.MinSamplesLeaf < 1 {
		return fmt.Errorf("max_depth and min_samples_leaf must be positive")
	}
	if p.MaxFeatures < 0 || p.MaxFeatures > NumFeatures {
		return fmt.Errorf("max_features must be within [0, %d], got %d", NumFeatures, p.MaxFeatures)
	}
	return nil
}

// RandomForest averages the leaf class distributions of bootstrapped trees
type RandomForest struct {
	Trees []Tree               `json:"trees"`
	Gain  [NumFeatures]float64 `json:"gain"`
}

// RFTrainer fits RandomForest backends
type RFTrainer struct {
	Params RFParams
}

// Name implements Trainer
func (RFTrainer) Name() string { return "random_forest" }

// Fit implements Trainer
func (t RFTrainer) Fit(X []FeatureVector, y []int) (Backend, error) {
	if err := checkTrainingSet(X, y, t.Params.MinSamples); err != nil {
		return nil, err
	}
	p := t.Params
	rng := rand.New(rand.NewSource(p.Seed))
	n := len(X)

	targets := make([][]float64, n)
	for i, label := range y {
		targets[i] = make([]float64, NumClasses)
		targets[i][label] = 1
	}

	m := &RandomForest{}
	builder := &treeBuilder{
		X:       X,
		targets: targets,
		params: treeParams{
			MaxDepth:       p.MaxDepth,
			MinSamplesLeaf: p.MinSamplesLeaf,
			MaxFeatures:    p.MaxFeatures,
		},
		leafValue: func(idx []int) []float64 {
			dist := make([]float64, NumClasses)
			for _, i := range idx {
				dist[y[i]]++
			}
			for k := range dist {
				dist[k] /= float64(len(idx))
			}
			return dist
		},
		rng:  rng,
		gain: &m.Gain,
	}

	for i := 0; i < p.Trees; i++ {
		bootstrap := make([]int, n)
		for j := range bootstrap {
			bootstrap[j] = rng.Intn(n)
		}
		m.Trees = append(m.Trees, *builder.grow(bootstrap))
	}

	return m, nil
}

// Decode implements Trainer
func (RFTrainer) Decode(data []byte) (Backend, error) {
	m := &RandomForest{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to decode random forest model: %w", err)
	}
	return m, nil
}

// Name implements Backend
func (m *RandomForest) Name() string { return "random_forest" }

// Predict implements Backend
func (m *RandomForest) Predict(x FeatureVector) Prediction {
	var p [NumClasses]float64
	for i := range m.Trees {
		leaf := m.Trees[i].leaf(x)
		for k := range p {
			p[k] += leaf[k]
		}
	}
	return newPrediction(p)
}

// FeatureImportance implements Backend
func (m *RandomForest) FeatureImportance() map[string]float64 {
	return importanceMap(m.Gain)
}

// Contributions implements Backend. The forest probability of class equals
// the mean root distribution plus the sum of these contributions.
func (m *RandomForest) Contributions(x FeatureVector, class int) [NumFeatures]float64 {
	var out [NumFeatures]float64
	if len(m.Trees) == 0 {
		return out
	}
	scale := 1.0 / float64(len(m.Trees))
	for i := range m.Trees {
		m.Trees[i].attribute(x, class, scale, &out)
	}
	return out
}

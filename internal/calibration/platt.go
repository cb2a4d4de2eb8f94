package calibration

import (
	"fmt"
	"math"
)

// PlattParams controls the gradient descent of the per-class logistic fit
type PlattParams struct {
	Iterations   int     `yaml:"iterations"`
	LearningRate float64 `yaml:"learning_rate"`
}

// DefaultPlattParams returns the standard optimizer settings
func DefaultPlattParams() PlattParams {
	return PlattParams{Iterations: 2000, LearningRate: 0.5}
}

// Validate checks the configuration is usable
func (p PlattParams) Validate() error {
	if p.Iterations < 1 {
		return fmt.Errorf("platt iterations must be positive, got %d", p.Iterations)
	}
	if p.LearningRate <= 0 || p.LearningRate > 4 {
		return fmt.Errorf("platt learning_rate must be within (0, 4], got %v", p.LearningRate)
	}
	return nil
}

const logitEps = 1e-6

// plattCurve is sigmoid(A*logit(p) + B). An inactive curve passes p through.
type plattCurve struct {
	A      float64 `json:"a"`
	B      float64 `json:"b"`
	Active bool    `json:"active"`
}

func (c plattCurve) Map(p float64) float64 {
	if !c.Active {
		return p
	}
	return sigmoid(c.A*logit(p) + c.B)
}

// fitPlatt minimizes log loss of y against sigmoid(A*logit(x) + B),
// starting from the identity A=1, B=0
func fitPlatt(x, y []float64, params PlattParams) plattCurve {
	if len(x) == 0 {
		return plattCurve{}
	}
	z := make([]float64, len(x))
	for i, v := range x {
		z[i] = logit(v)
	}

	a, b := 1.0, 0.0
	n := float64(len(z))
	for it := 0; it < params.Iterations; it++ {
		var ga, gb float64
		for i := range z {
			r := sigmoid(a*z[i]+b) - y[i]
			ga += r * z[i]
			gb += r
		}
		a -= params.LearningRate * ga / n
		b -= params.LearningRate * gb / n
	}
	return plattCurve{A: a, B: b, Active: true}
}

func logit(p float64) float64 {
	p = math.Max(logitEps, math.Min(1-logitEps, p))
	return math.Log(p / (1 - p))
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

// Package calibration maps raw outcome probabilities onto observed
// frequencies and measures how well they agree.
package calibration

import (
	"fmt"
	"math"

	"matchcast/engine/internal/models"
)

// DefaultBins is the number of equal-width reliability bins
const DefaultBins = 10

// Metrics summarizes the calibration quality of a set of predictions
type Metrics struct {
	Brier float64 `json:"brier_score"`
	ECE   float64 `json:"expected_calibration_error"`
	MCE   float64 `json:"max_calibration_error"`
	N     int     `json:"samples"`
}

// Evaluate computes all metrics over the same bins
func Evaluate(preds [][3]float64, labels []models.Outcome, bins int) (Metrics, error) {
	if err := checkSamples(preds, labels); err != nil {
		return Metrics{}, err
	}
	ece, mce := calibrationErrors(preds, labels, bins)
	return Metrics{
		Brier: brier(preds, labels),
		ECE:   ece,
		MCE:   mce,
		N:     len(preds),
	}, nil
}

// Brier is the mean over samples of the squared distance between the
// predicted triple and the one-hot outcome
func Brier(preds [][3]float64, labels []models.Outcome) (float64, error) {
	if err := checkSamples(preds, labels); err != nil {
		return 0, err
	}
	return brier(preds, labels), nil
}

// ExpectedCalibrationError pools every (sample, class) probability into
// equal-width bins and averages |mean predicted - observed frequency|
// weighted by bin count
func ExpectedCalibrationError(preds [][3]float64, labels []models.Outcome, bins int) (float64, error) {
	if err := checkSamples(preds, labels); err != nil {
		return 0, err
	}
	ece, _ := calibrationErrors(preds, labels, bins)
	return ece, nil
}

// MaxCalibrationError is the largest per-bin gap over the same pooled bins
func MaxCalibrationError(preds [][3]float64, labels []models.Outcome, bins int) (float64, error) {
	if err := checkSamples(preds, labels); err != nil {
		return 0, err
	}
	_, mce := calibrationErrors(preds, labels, bins)
	return mce, nil
}

func brier(preds [][3]float64, labels []models.Outcome) float64 {
	total := 0.0
	for i, p := range preds {
		for k := 0; k < 3; k++ {
			d := p[k] - indicator(int(labels[i]) == k)
			total += d * d
		}
	}
	return total / float64(len(preds))
}

func calibrationErrors(preds [][3]float64, labels []models.Outcome, bins int) (ece, mce float64) {
	if bins <= 0 {
		bins = DefaultBins
	}
	sumP := make([]float64, bins)
	sumY := make([]float64, bins)
	count := make([]int, bins)

	for i, p := range preds {
		for k := 0; k < 3; k++ {
			b := binIndex(p[k], bins)
			sumP[b] += p[k]
			sumY[b] += indicator(int(labels[i]) == k)
			count[b]++
		}
	}

	n := float64(3 * len(preds))
	for b := 0; b < bins; b++ {
		if count[b] == 0 {
			continue
		}
		c := float64(count[b])
		gap := math.Abs(sumP[b]/c - sumY[b]/c)
		ece += c / n * gap
		mce = math.Max(mce, gap)
	}
	return ece, mce
}

func binIndex(p float64, bins int) int {
	b := int(p * float64(bins))
	if b >= bins {
		b = bins - 1
	}
	if b < 0 {
		b = 0
	}
	return b
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func checkSamples(preds [][3]float64, labels []models.Outcome) error {
	if len(preds) == 0 {
		return fmt.Errorf("no samples: %w", models.ErrInsufficientData)
	}
	if len(preds) != len(labels) {
		return &models.InvalidInputError{Field: "labels", Value: float64(len(labels)), Reason: fmt.Sprintf("expected %d labels", len(preds))}
	}
	for i, p := range preds {
		for _, v := range p {
			if math.IsNaN(v) || v < 0 || v > 1 {
				return &models.InvalidInputError{Field: fmt.Sprintf("preds[%d]", i), Value: v, Reason: "must be within [0, 1]"}
			}
		}
		if labels[i] < models.OutcomeHome || labels[i] > models.OutcomeAway {
			return &models.InvalidInputError{Field: fmt.Sprintf("labels[%d]", i), Value: float64(labels[i]), Reason: "unknown outcome"}
		}
	}
	return nil
}

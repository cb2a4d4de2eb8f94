package markets

import (
	"fmt"
	"math"

	"matchcast/engine/internal/models"
)

// DeriveBasketball prices totals and point-spread lines from the expected
// score pair. Total and margin are treated as normal with a spread that
// grows with sqrt(expected total). Whole-number lines get a half-point
// continuity correction and the push mass is discarded.
func DeriveBasketball(expHome, expAway float64, totals, handicaps []float64, odds *models.BinaryOdds, opts Options) (*models.MultiMarketsPrediction, error) {
	if math.IsNaN(expHome) || math.IsNaN(expAway) || expHome <= 0 || expAway <= 0 {
		return nil, &models.InvalidInputError{Field: "expected_score", Value: math.Min(expHome, expAway), Reason: "must be positive"}
	}
	var book bookLookup
	if odds != nil {
		book = odds.Market
	}

	sum := expHome + expAway
	totalSD := opts.TotalDispersion * math.Sqrt(sum)
	marginSD := opts.MarginDispersion * math.Sqrt(sum)

	out := &models.MultiMarketsPrediction{ExpectedHome: expHome, ExpectedAway: expAway}

	for _, line := range totals {
		if line <= 0 {
			return nil, fmt.Errorf("total line must be positive, got %v", line)
		}
		over, under := normalSplit(sum, totalSD, line)
		out.OverUnder = append(out.OverUnder, models.OverUnderMarket{
			Line:  line,
			Over:  opts.Price(over, book, OverKey(line)),
			Under: opts.Price(under, book, UnderKey(line)),
		})
	}

	for _, line := range handicaps {
		// home covers when margin > -line
		home, away := normalSplit(expHome-expAway, marginSD, -line)
		out.Handicaps = append(out.Handicaps, models.HandicapMarket{
			Line: line,
			Home: opts.Price(home, book, HandicapHomeKey(line)),
			Away: opts.Price(away, book, HandicapAwayKey(line)),
		})
	}

	return out, nil
}

// normalSplit returns P(X > threshold) and P(X < threshold) for
// X ~ N(mean, sd), renormalized after removing the push band on whole numbers
func normalSplit(mean, sd, threshold float64) (above, below float64) {
	if threshold == math.Trunc(threshold) {
		above = 1 - normalCDF((threshold+0.5-mean)/sd)
		below = normalCDF((threshold - 0.5 - mean) / sd)
	} else {
		above = 1 - normalCDF((threshold-mean)/sd)
		below = normalCDF((threshold - mean) / sd)
	}
	return renormalize(above, below)
}

func normalCDF(z float64) float64 {
	return 0.5 * (1 + math.Erf(z/math.Sqrt2))
}

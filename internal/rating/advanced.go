package rating

import (
	"fmt"
	"math"
)

// KTier assigns K to ratings below a threshold
type KTier struct {
	Below float64 `yaml:"below"`
	K     float64 `yaml:"k"`
}

// AdvancedParams configures the tiered-K, form-aware ELO model
type AdvancedParams struct {
	Elo Params `yaml:"elo"`

	// Tiers are checked in order; ratings above every threshold use EliteK
	KTiers []KTier `yaml:"k_tiers"`
	EliteK float64 `yaml:"elite_k"`

	MajorMatchMultiplier float64 `yaml:"major_match_multiplier"`

	FormDecay  float64 `yaml:"form_decay"`
	FormWindow int     `yaml:"form_window"`
	// Rating points added for perfect form (subtracted for none)
	FormRatingSpan float64 `yaml:"form_rating_span"`

	ConfidenceMin float64 `yaml:"confidence_min"`
	ConfidenceMax float64 `yaml:"confidence_max"`
}

// DefaultAdvancedParams returns the standard advanced configuration
func DefaultAdvancedParams() AdvancedParams {
	return AdvancedParams{
		Elo: DefaultParams(),
		KTiers: []KTier{
			{Below: 1400, K: 32},
			{Below: 1600, K: 24},
			{Below: 1800, K: 20},
		},
		EliteK:               16,
		MajorMatchMultiplier: 1.25,
		FormDecay:            0.15,
		FormWindow:           10,
		FormRatingSpan:       50,
		ConfidenceMin:        0.5,
		ConfidenceMax:        0.95,
	}
}

// Validate checks the configuration is usable
func (p AdvancedParams) Validate() error {
	if err := p.Elo.Validate(); err != nil {
		return err
	}
	prev := math.Inf(-1)
	for _, t := range p.KTiers {
		if t.Below <= prev {
			return fmt.Errorf("k_tiers must be ordered by ascending threshold")
		}
		if t.K <= 0 {
			return fmt.Errorf("k_tiers k must be positive, got %v", t.K)
		}
		prev = t.Below
	}
	if p.EliteK <= 0 {
		return fmt.Errorf("elite_k must be positive, got %v", p.EliteK)
	}
	if p.MajorMatchMultiplier < 1 {
		return fmt.Errorf("major_match_multiplier must be at least 1, got %v", p.MajorMatchMultiplier)
	}
	if p.FormWindow < 1 {
		return fmt.Errorf("form_window must be positive, got %d", p.FormWindow)
	}
	if p.ConfidenceMin < 0 || p.ConfidenceMax > 1 || p.ConfidenceMin > p.ConfidenceMax {
		return fmt.Errorf("confidence clamp [%v, %v] is invalid", p.ConfidenceMin, p.ConfidenceMax)
	}
	return nil
}

// AdvancedElo folds recent form into the ratings and uses a tiered K
type AdvancedElo struct {
	*Elo
	params AdvancedParams
}

// NewAdvancedElo creates an advanced ELO model
func NewAdvancedElo(params AdvancedParams) *AdvancedElo {
	return &AdvancedElo{Elo: NewElo(params.Elo), params: params}
}

// Prediction is the output of AdvancedElo.Predict
type Prediction struct {
	HomeProb          float64 `json:"home_prob"`
	DrawProb          float64 `json:"draw_prob"`
	AwayProb          float64 `json:"away_prob"`
	ExpectedHomeGoals float64 `json:"expected_home_goals"`
	ExpectedAwayGoals float64 `json:"expected_away_goals"`
	AdjustedHome      float64 `json:"adjusted_home"`
	AdjustedAway      float64 `json:"adjusted_away"`
	Confidence        float64 `json:"confidence"`
}

// KFactor returns the K for a rating, boosted for major matches
func (e *AdvancedElo) KFactor(rating float64, major bool) float64 {
	k := e.params.EliteK
	for _, t := range e.params.KTiers {
		if rating < t.Below {
			k = t.K
			break
		}
	}
	if major {
		k *= e.params.MajorMatchMultiplier
	}
	return k
}

// FormScore returns a recency-weighted average of results in [0, 1].
// Results are most recent first (1 win, 0.5 draw, 0 loss); empty history is 0.5.
func (e *AdvancedElo) FormScore(results []float64) float64 {
	n := len(results)
	if n > e.params.FormWindow {
		n = e.params.FormWindow
	}
	if n == 0 {
		return 0.5
	}

	var num, den float64
	for i := 0; i < n; i++ {
		w := math.Exp(-e.params.FormDecay * float64(i))
		num += w * results[i]
		den += w
	}
	return num / den
}

// AdjustedRating shifts a rating by its form
func (e *AdvancedElo) AdjustedRating(rating, form float64) float64 {
	return rating + (form-0.5)*2*e.params.FormRatingSpan
}

// Predict computes outcome probabilities from form-adjusted ratings
func (e *AdvancedElo) Predict(ratingHome, ratingAway float64, formHome, formAway []float64) Prediction {
	adjHome := e.AdjustedRating(ratingHome, e.FormScore(formHome))
	adjAway := e.AdjustedRating(ratingAway, e.FormScore(formAway))

	home, draw, away := e.OutcomeProbabilities(adjHome, adjAway)
	xgHome, xgAway := e.ExpectedGoals(adjHome, adjAway)

	margin := math.Abs(home - away)
	gap := math.Min(math.Abs(adjHome+e.params.Elo.HomeAdvantage-adjAway)/e.params.Elo.Scale, 1)
	confidence := e.params.ConfidenceMin + (1-e.params.ConfidenceMin)*(0.6*margin+0.4*gap)

	return Prediction{
		HomeProb:          home,
		DrawProb:          draw,
		AwayProb:          away,
		ExpectedHomeGoals: xgHome,
		ExpectedAwayGoals: xgAway,
		AdjustedHome:      adjHome,
		AdjustedAway:      adjAway,
		Confidence:        clamp(confidence, e.params.ConfidenceMin, e.params.ConfidenceMax),
	}
}

// UpdateRatings returns post-match ratings with each side's tiered K.
// The exchange is zero-sum whenever both sides share a tier.
func (e *AdvancedElo) UpdateRatings(ratingHome, ratingAway float64, goalsHome, goalsAway int, major bool) (float64, float64) {
	expected := e.ExpectedScore(ratingHome, ratingAway, true)
	surprise := GoalDiffMultiplier(goalsHome-goalsAway) * (actualScore(goalsHome, goalsAway) - expected)

	newHome := ratingHome + e.KFactor(ratingHome, major)*surprise
	newAway := ratingAway - e.KFactor(ratingAway, major)*surprise
	return newHome, newAway
}

// Package markets derives secondary betting markets from a score
// distribution and prices them against bookmaker odds.
package markets

import (
	"fmt"
	"math"
	"sort"

	"matchcast/engine/internal/models"

	"github.com/shopspring/decimal"
)

// Options controls which markets are derived and how they are priced
type Options struct {
	// Over/under goal lines
	Lines []float64 `yaml:"lines"`
	// Football handicap lines from the home side's view
	Handicaps []float64 `yaml:"handicaps"`
	// Number of correct-score entries returned
	CorrectScores int `yaml:"correct_scores"`
	// Bookmaker margin assumed when quoting fair odds
	Margin float64 `yaml:"margin"`
	// Multipliers on sqrt(expected total) for the basketball normal approximation
	TotalDispersion  float64 `yaml:"total_dispersion"`
	MarginDispersion float64 `yaml:"margin_dispersion"`
}

// DefaultOptions returns the standard market set
func DefaultOptions() Options {
	return Options{
		Lines:            []float64{1.5, 2.5, 3.5},
		CorrectScores:    5,
		Margin:           0.05,
		TotalDispersion:  1.2,
		MarginDispersion: 0.85,
	}
}

// Validate checks the configuration is usable
func (o Options) Validate() error {
	for _, l := range o.Lines {
		if math.IsNaN(l) || l <= 0 {
			return fmt.Errorf("over/under line must be positive, got %v", l)
		}
	}
	for _, l := range o.Handicaps {
		if math.IsNaN(l) || math.IsInf(l, 0) {
			return fmt.Errorf("handicap line must be finite, got %v", l)
		}
	}
	if o.CorrectScores < 0 {
		return fmt.Errorf("correct_scores must be non-negative, got %d", o.CorrectScores)
	}
	if o.Margin < 0 || o.Margin >= 1 {
		return fmt.Errorf("margin must be within [0, 1), got %v", o.Margin)
	}
	if o.TotalDispersion <= 0 || o.MarginDispersion <= 0 {
		return fmt.Errorf("dispersions must be positive")
	}
	return nil
}

// OverKey is the bookmaker market name for an over line
func OverKey(line float64) string { return fmt.Sprintf("over_%g", line) }

// UnderKey is the bookmaker market name for an under line
func UnderKey(line float64) string { return fmt.Sprintf("under_%g", line) }

// HandicapHomeKey is the bookmaker market name for the home side of a handicap
func HandicapHomeKey(line float64) string { return fmt.Sprintf("handicap_home_%g", line) }

// HandicapAwayKey is the bookmaker market name for the away side of a handicap
func HandicapAwayKey(line float64) string { return fmt.Sprintf("handicap_away_%g", line) }

// CorrectScoreKey is the bookmaker market name for a scoreline, e.g. "cs_2-1"
func CorrectScoreKey(s models.Score) string { return fmt.Sprintf("cs_%d-%d", s.Home, s.Away) }

// Fixed bookmaker market names
const (
	KeyBTTSYes    = "btts_yes"
	KeyBTTSNo     = "btts_no"
	KeyHomeOrDraw = "1X"
	KeyDrawOrAway = "X2"
	KeyHomeOrAway = "12"
)

type bookLookup func(name string) (float64, bool)

// Price quotes one side of a market. With a bookmaker price the value
// p*odds-1 is reported, otherwise fair odds (1-margin)/p rounded to 2 dp.
func (o Options) Price(p float64, book bookLookup, key string) models.MarketPrice {
	mp := models.MarketPrice{Probability: p}
	if book != nil {
		if odds, ok := book(key); ok {
			v := p*odds - 1
			mp.BookOdds = &odds
			mp.Value = &v
			return mp
		}
	}
	if p > 0 {
		fair := decimal.NewFromFloat((1 - o.Margin) / p).Round(2)
		mp.FairOdds = decimal.NullDecimal{Decimal: fair, Valid: true}
	}
	return mp
}

// Derive builds the football markets from a score distribution and the
// ensemble 1X2 probabilities. odds may be nil.
func Derive(dist *models.ScoreDistribution, pHome, pDraw, pAway float64, odds *models.FootballOdds, opts Options) (*models.MultiMarketsPrediction, error) {
	if dist == nil {
		return nil, fmt.Errorf("score distribution is required")
	}
	if err := checkTriple(pHome, pDraw, pAway); err != nil {
		return nil, err
	}
	var book bookLookup
	if odds != nil {
		book = odds.Market
	}

	out := &models.MultiMarketsPrediction{
		ExpectedHome: dist.ExpectedHomeGoals,
		ExpectedAway: dist.ExpectedAwayGoals,
	}

	for _, line := range opts.Lines {
		over, under := overUnder(dist, line)
		out.OverUnder = append(out.OverUnder, models.OverUnderMarket{
			Line:  line,
			Over:  opts.Price(over, book, OverKey(line)),
			Under: opts.Price(under, book, UnderKey(line)),
		})
	}

	yes := btts(dist)
	out.BTTS = &models.BTTSMarket{
		Yes: opts.Price(yes, book, KeyBTTSYes),
		No:  opts.Price(1-yes, book, KeyBTTSNo),
	}

	out.DoubleChance = &models.DoubleChanceMarket{
		HomeOrDraw: opts.Price(pHome+pDraw, book, KeyHomeOrDraw),
		DrawOrAway: opts.Price(pDraw+pAway, book, KeyDrawOrAway),
		HomeOrAway: opts.Price(pHome+pAway, book, KeyHomeOrAway),
	}

	for _, cs := range TopScores(dist, opts.CorrectScores) {
		out.CorrectScores = append(out.CorrectScores, models.CorrectScorePrice{
			Score: cs.Score,
			Price: opts.Price(cs.Probability, book, CorrectScoreKey(cs.Score)),
		})
	}

	for _, line := range opts.Handicaps {
		home, away := handicap(dist, line)
		out.Handicaps = append(out.Handicaps, models.HandicapMarket{
			Line: line,
			Home: opts.Price(home, book, HandicapHomeKey(line)),
			Away: opts.Price(away, book, HandicapAwayKey(line)),
		})
	}

	return out, nil
}

// overUnder splits the table around a goal line. Cells landing exactly on
// the line are a push; the remaining mass is renormalized.
func overUnder(dist *models.ScoreDistribution, line float64) (over, under float64) {
	for h := 0; h <= models.MaxGoals; h++ {
		for a := 0; a <= models.MaxGoals; a++ {
			total := float64(h + a)
			switch {
			case total > line:
				over += dist.Cells[h][a]
			case total < line:
				under += dist.Cells[h][a]
			}
		}
	}
	return renormalize(over, under)
}

func btts(dist *models.ScoreDistribution) float64 {
	yes := 0.0
	for h := 1; h <= models.MaxGoals; h++ {
		for a := 1; a <= models.MaxGoals; a++ {
			yes += dist.Cells[h][a]
		}
	}
	return math.Min(1, yes/math.Max(dist.Total(), 1e-12))
}

// handicap returns the cover probabilities of a home handicap line,
// pushes excluded
func handicap(dist *models.ScoreDistribution, line float64) (home, away float64) {
	for h := 0; h <= models.MaxGoals; h++ {
		for a := 0; a <= models.MaxGoals; a++ {
			adjusted := float64(h-a) + line
			switch {
			case adjusted > 0:
				home += dist.Cells[h][a]
			case adjusted < 0:
				away += dist.Cells[h][a]
			}
		}
	}
	return renormalize(home, away)
}

// ScoreProbability is one scoreline with its probability
type ScoreProbability struct {
	Score       models.Score `json:"score"`
	Probability float64      `json:"probability"`
}

// TopScores returns the n most likely scorelines, descending by
// probability with ties in natural score order
func TopScores(dist *models.ScoreDistribution, n int) []ScoreProbability {
	if n <= 0 {
		return nil
	}
	all := make([]ScoreProbability, 0, (models.MaxGoals+1)*(models.MaxGoals+1))
	for h := 0; h <= models.MaxGoals; h++ {
		for a := 0; a <= models.MaxGoals; a++ {
			all = append(all, ScoreProbability{Score: models.Score{Home: h, Away: a}, Probability: dist.Cells[h][a]})
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Probability != all[j].Probability {
			return all[i].Probability > all[j].Probability
		}
		return all[i].Score.Less(all[j].Score)
	})
	if n > len(all) {
		n = len(all)
	}
	return all[:n]
}

func renormalize(a, b float64) (float64, float64) {
	total := a + b
	if total <= 0 {
		return 0.5, 0.5
	}
	return a / total, b / total
}

func checkTriple(home, draw, away float64) error {
	for _, p := range []float64{home, draw, away} {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return &models.InvalidInputError{Field: "outcome_probability", Value: p, Reason: "must be within [0, 1]"}
		}
	}
	if sum := home + draw + away; math.Abs(sum-1) > 1e-6 {
		return &models.InvalidInputError{Field: "outcome_probability", Value: sum, Reason: "must sum to 1"}
	}
	return nil
}

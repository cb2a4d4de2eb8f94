package models

import "github.com/shopspring/decimal"

// MarketPrice is one side of a market. FairOdds is set when no bookmaker
// price was supplied; Value is set when one was.
type MarketPrice struct {
	Probability float64             `json:"probability"`
	FairOdds    decimal.NullDecimal `json:"fair_odds"`
	BookOdds    *float64            `json:"book_odds,omitempty"`
	Value       *float64            `json:"value,omitempty"`
}

// OverUnderMarket is a totals market at a half-goal line
type OverUnderMarket struct {
	Line  float64     `json:"line"`
	Over  MarketPrice `json:"over"`
	Under MarketPrice `json:"under"`
}

// BTTSMarket is both-teams-to-score
type BTTSMarket struct {
	Yes MarketPrice `json:"yes"`
	No  MarketPrice `json:"no"`
}

// DoubleChanceMarket covers 1X, X2 and 12
type DoubleChanceMarket struct {
	HomeOrDraw MarketPrice `json:"1X"`
	DrawOrAway MarketPrice `json:"X2"`
	HomeOrAway MarketPrice `json:"12"`
}

// CorrectScorePrice is one entry of the correct-score table
type CorrectScorePrice struct {
	Score Score       `json:"score"`
	Price MarketPrice `json:"price"`
}

// HandicapMarket is a point-spread market from the home side's view.
// Home covers when margin + Line > 0.
type HandicapMarket struct {
	Line float64     `json:"line"`
	Home MarketPrice `json:"home"`
	Away MarketPrice `json:"away"`
}

// MultiMarketsPrediction holds the secondary markets derived from one distribution
type MultiMarketsPrediction struct {
	ExpectedHome float64 `json:"expected_home"`
	ExpectedAway float64 `json:"expected_away"`

	OverUnder     []OverUnderMarket   `json:"over_under"`
	BTTS          *BTTSMarket         `json:"btts,omitempty"`
	DoubleChance  *DoubleChanceMarket `json:"double_chance,omitempty"`
	CorrectScores []CorrectScorePrice `json:"correct_scores,omitempty"`
	Handicaps     []HandicapMarket    `json:"handicaps,omitempty"`
}

// OverUnderAt returns the market at the given line
func (m *MultiMarketsPrediction) OverUnderAt(line float64) (OverUnderMarket, bool) {
	for _, ou := range m.OverUnder {
		if ou.Line == line {
			return ou, true
		}
	}
	return OverUnderMarket{}, false
}

package models

import (
	"fmt"
	"math"
)

// FootballOdds are decimal 1X2 bookmaker odds plus optional secondary market prices
type FootballOdds struct {
	Home *float64 `json:"odds_home,omitempty"`
	Draw *float64 `json:"odds_draw,omitempty"`
	Away *float64 `json:"odds_away,omitempty"`

	// Secondary markets keyed by market name, e.g. "over_2.5", "btts_yes", "1X"
	Markets map[string]float64 `json:"markets,omitempty"`
}

// Validate rejects decimal odds at or below 1.0
func (o *FootballOdds) Validate() error {
	for name, v := range map[string]*float64{"odds_home": o.Home, "odds_draw": o.Draw, "odds_away": o.Away} {
		if v == nil {
			continue
		}
		if err := checkDecimalOdds(name, *v); err != nil {
			return err
		}
	}
	for name, v := range o.Markets {
		if err := checkDecimalOdds(name, v); err != nil {
			return err
		}
	}
	return nil
}

// HasBothSides reports whether home and away prices are present
func (o *FootballOdds) HasBothSides() bool {
	return o != nil && o.Home != nil && o.Away != nil
}

// Market returns the bookmaker price for a secondary market
func (o *FootballOdds) Market(name string) (float64, bool) {
	if o == nil || o.Markets == nil {
		return 0, false
	}
	v, ok := o.Markets[name]
	return v, ok
}

// BinaryOdds are decimal odds for a two-way market
type BinaryOdds struct {
	Home *float64 `json:"odds_home,omitempty"`
	Away *float64 `json:"odds_away,omitempty"`

	Markets map[string]float64 `json:"markets,omitempty"`
}

// Validate rejects decimal odds at or below 1.0
func (o *BinaryOdds) Validate() error {
	for name, v := range map[string]*float64{"odds_home": o.Home, "odds_away": o.Away} {
		if v == nil {
			continue
		}
		if err := checkDecimalOdds(name, *v); err != nil {
			return err
		}
	}
	for name, v := range o.Markets {
		if err := checkDecimalOdds(name, v); err != nil {
			return err
		}
	}
	return nil
}

// HasBothSides reports whether both prices are present
func (o *BinaryOdds) HasBothSides() bool {
	return o != nil && o.Home != nil && o.Away != nil
}

// Market returns the bookmaker price for a secondary market
func (o *BinaryOdds) Market(name string) (float64, bool) {
	if o == nil || o.Markets == nil {
		return 0, false
	}
	v, ok := o.Markets[name]
	return v, ok
}

func checkDecimalOdds(field string, v float64) error {
	if err := checkFinite(field, v); err != nil {
		return err
	}
	if v <= 1.0 {
		return invalid(field, v, "decimal odds must be greater than 1.0")
	}
	return nil
}

// ImpliedProbability converts decimal odds to the bookmaker implied probability
// Decimal 2.00 → 0.50
func ImpliedProbability(decimalOdds float64) float64 {
	if decimalOdds <= 0 {
		return 0
	}
	return 1.0 / decimalOdds
}

// AmericanToDecimal converts American odds to decimal odds
// American +150 → Decimal 2.50
// American -150 → Decimal 1.67
func AmericanToDecimal(american int) (float64, error) {
	if american == 0 {
		return 0, fmt.Errorf("invalid American odds: cannot be 0")
	}
	if american > 0 {
		return float64(american)/100.0 + 1.0, nil
	}
	return 100.0/float64(-american) + 1.0, nil
}

// Overround returns the summed implied probability of a complete market minus one
func Overround(decimalOdds ...float64) float64 {
	total := 0.0
	for _, o := range decimalOdds {
		total += ImpliedProbability(o)
	}
	return math.Max(0, total-1.0)
}

// MoneylineQuote is an American-odds moneyline as delivered by US odds feeds
type MoneylineQuote struct {
	HomeMoneyline *int `json:"home_moneyline,omitempty"`
	DrawMoneyline *int `json:"draw_moneyline,omitempty"`
	AwayMoneyline *int `json:"away_moneyline,omitempty"`
}

// ToFootballOdds converts the quote to decimal 1X2 odds
func (q *MoneylineQuote) ToFootballOdds() (*FootballOdds, error) {
	odds := &FootballOdds{}
	convert := func(ml *int) (*float64, error) {
		if ml == nil {
			return nil, nil
		}
		d, err := AmericanToDecimal(*ml)
		if err != nil {
			return nil, err
		}
		return &d, nil
	}

	var err error
	if odds.Home, err = convert(q.HomeMoneyline); err != nil {
		return nil, fmt.Errorf("home moneyline: %w", err)
	}
	if odds.Draw, err = convert(q.DrawMoneyline); err != nil {
		return nil, fmt.Errorf("draw moneyline: %w", err)
	}
	if odds.Away, err = convert(q.AwayMoneyline); err != nil {
		return nil, fmt.Errorf("away moneyline: %w", err)
	}
	return odds, nil
}

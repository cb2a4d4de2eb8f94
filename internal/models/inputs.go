package models

import (
	"errors"
	"math"
)

// Surface is a tennis court surface
type Surface string

const (
	SurfaceHard  Surface = "hard"
	SurfaceClay  Surface = "clay"
	SurfaceGrass Surface = "grass"
)

// Valid reports whether the surface is known
func (s Surface) Valid() bool {
	switch s {
	case SurfaceHard, SurfaceClay, SurfaceGrass:
		return true
	}
	return false
}

// MaxGoalRate bounds goals-per-match rates and expected goals
const MaxGoalRate = 20.0

type namedValue struct {
	name string
	v    float64
}

// FootballInputs holds the strength indicators for a football match.
// Attack and defense values are goals-per-match rates.
type FootballInputs struct {
	HomeAttack  float64 `json:"home_attack"`
	HomeDefense float64 `json:"home_defense"`
	AwayAttack  float64 `json:"away_attack"`
	AwayDefense float64 `json:"away_defense"`

	HomeElo float64 `json:"home_elo"`
	AwayElo float64 `json:"away_elo"`

	// Expected goals (optional)
	HomeXGFor     *float64 `json:"home_xg_for,omitempty"`
	HomeXGAgainst *float64 `json:"home_xg_against,omitempty"`
	AwayXGFor     *float64 `json:"away_xg_for,omitempty"`
	AwayXGAgainst *float64 `json:"away_xg_against,omitempty"`

	// Form on a 0-100 scale (optional, 50 when absent)
	RecentFormHome *float64 `json:"recent_form_home,omitempty"`
	RecentFormAway *float64 `json:"recent_form_away,omitempty"`

	// Recent results, most recent first: 1 win, 0.5 draw, 0 loss
	RecentResultsHome []float64 `json:"recent_results_home,omitempty"`
	RecentResultsAway []float64 `json:"recent_results_away,omitempty"`

	HeadToHeadHome float64 `json:"head_to_head_home"`

	// League goals per match used to scale rates (0 means default)
	LeagueAverageGoals float64 `json:"league_average_goals,omitempty"`

	MajorMatch bool `json:"major_match,omitempty"`

	Odds *FootballOdds `json:"odds,omitempty"`
}

// FormHome returns the home form or the neutral 50
func (in *FootballInputs) FormHome() float64 {
	if in.RecentFormHome == nil {
		return 50
	}
	return *in.RecentFormHome
}

// FormAway returns the away form or the neutral 50
func (in *FootballInputs) FormAway() float64 {
	if in.RecentFormAway == nil {
		return 50
	}
	return *in.RecentFormAway
}

// Validate rejects structurally wrong inputs
func (in *FootballInputs) Validate() error {
	rates := []namedValue{
		{"home_attack", in.HomeAttack},
		{"home_defense", in.HomeDefense},
		{"away_attack", in.AwayAttack},
		{"away_defense", in.AwayDefense},
		{"league_average_goals", in.LeagueAverageGoals},
	}
	for _, r := range rates {
		if err := checkRange(r.name, r.v, 0, MaxGoalRate); err != nil {
			return err
		}
	}
	if err := checkRange("home_elo", in.HomeElo, 1, 4000); err != nil {
		return err
	}
	if err := checkRange("away_elo", in.AwayElo, 1, 4000); err != nil {
		return err
	}

	xg := []struct {
		name string
		v    *float64
	}{
		{"home_xg_for", in.HomeXGFor},
		{"home_xg_against", in.HomeXGAgainst},
		{"away_xg_for", in.AwayXGFor},
		{"away_xg_against", in.AwayXGAgainst},
	}
	for _, x := range xg {
		if err := checkOptionalRange(x.name, x.v, 0, MaxGoalRate); err != nil {
			return err
		}
	}

	if err := checkOptionalRange("recent_form_home", in.RecentFormHome, 0, 100); err != nil {
		return err
	}
	if err := checkOptionalRange("recent_form_away", in.RecentFormAway, 0, 100); err != nil {
		return err
	}
	if err := checkRange("head_to_head_home", in.HeadToHeadHome, -1, 1); err != nil {
		return err
	}
	if err := validateResults("recent_results_home", in.RecentResultsHome); err != nil {
		return err
	}
	if err := validateResults("recent_results_away", in.RecentResultsAway); err != nil {
		return err
	}

	if in.Odds != nil {
		return in.Odds.Validate()
	}
	return nil
}

func validateResults(field string, results []float64) error {
	for _, r := range results {
		if err := checkRange(field, r, 0, 1); err != nil {
			return err
		}
	}
	return nil
}

// BasketballInputs holds the strength indicators for a basketball game.
// Ratings are points per 100 possessions; pace is possessions per game.
type BasketballInputs struct {
	HomeElo float64 `json:"home_elo"`
	AwayElo float64 `json:"away_elo"`

	HomeOffRating float64 `json:"home_off_rating"`
	HomeDefRating float64 `json:"home_def_rating"`
	AwayOffRating float64 `json:"away_off_rating"`
	AwayDefRating float64 `json:"away_def_rating"`

	HomePace float64 `json:"home_pace"`
	AwayPace float64 `json:"away_pace"`

	// Season win rates (0..1) and last-10 win rates (0..1)
	HomeWinRate  float64 `json:"home_win_rate"`
	AwayWinRate  float64 `json:"away_win_rate"`
	HomeMomentum float64 `json:"home_momentum"`
	AwayMomentum float64 `json:"away_momentum"`

	IsBackToBackHome bool `json:"is_back_to_back_home"`
	IsBackToBackAway bool `json:"is_back_to_back_away"`

	Odds *BinaryOdds `json:"odds,omitempty"`
}

// Validate rejects structurally wrong inputs
func (in *BasketballInputs) Validate() error {
	if err := checkRange("home_elo", in.HomeElo, 1, 4000); err != nil {
		return err
	}
	if err := checkRange("away_elo", in.AwayElo, 1, 4000); err != nil {
		return err
	}
	ratings := []namedValue{
		{"home_off_rating", in.HomeOffRating},
		{"home_def_rating", in.HomeDefRating},
		{"away_off_rating", in.AwayOffRating},
		{"away_def_rating", in.AwayDefRating},
	}
	for _, r := range ratings {
		if err := checkRange(r.name, r.v, 1, 200); err != nil {
			return err
		}
	}
	if err := checkRange("home_pace", in.HomePace, 1, 150); err != nil {
		return err
	}
	if err := checkRange("away_pace", in.AwayPace, 1, 150); err != nil {
		return err
	}
	rates := []namedValue{
		{"home_win_rate", in.HomeWinRate},
		{"away_win_rate", in.AwayWinRate},
		{"home_momentum", in.HomeMomentum},
		{"away_momentum", in.AwayMomentum},
	}
	for _, r := range rates {
		if err := checkRange(r.name, r.v, 0, 1); err != nil {
			return err
		}
	}
	if in.Odds != nil {
		return in.Odds.Validate()
	}
	return nil
}

// TennisInputs holds the strength indicators for a tennis match
type TennisInputs struct {
	Player1Elo float64 `json:"player1_elo"`
	Player2Elo float64 `json:"player2_elo"`

	// Surface-specific ratings (optional, overall rating used when absent)
	Player1SurfaceElo *float64 `json:"player1_surface_elo,omitempty"`
	Player2SurfaceElo *float64 `json:"player2_surface_elo,omitempty"`

	Player1Ranking int `json:"player1_ranking"`
	Player2Ranking int `json:"player2_ranking"`

	// Win rates on the surface (0..1, optional)
	Player1WinRate *float64 `json:"player1_win_rate,omitempty"`
	Player2WinRate *float64 `json:"player2_win_rate,omitempty"`

	Surface Surface `json:"surface"`

	Odds *BinaryOdds `json:"odds,omitempty"`
}

// SurfaceRatings returns the ratings used for the surface model
func (in *TennisInputs) SurfaceRatings() (float64, float64) {
	r1, r2 := in.Player1Elo, in.Player2Elo
	if in.Player1SurfaceElo != nil {
		r1 = *in.Player1SurfaceElo
	}
	if in.Player2SurfaceElo != nil {
		r2 = *in.Player2SurfaceElo
	}
	return r1, r2
}

// Validate rejects structurally wrong inputs
func (in *TennisInputs) Validate() error {
	if err := checkRange("player1_elo", in.Player1Elo, 1, 4000); err != nil {
		return err
	}
	if err := checkRange("player2_elo", in.Player2Elo, 1, 4000); err != nil {
		return err
	}
	if in.Player1SurfaceElo != nil {
		if err := checkRange("player1_surface_elo", *in.Player1SurfaceElo, 1, 4000); err != nil {
			return err
		}
	}
	if in.Player2SurfaceElo != nil {
		if err := checkRange("player2_surface_elo", *in.Player2SurfaceElo, 1, 4000); err != nil {
			return err
		}
	}
	if in.Player1Ranking < 1 {
		return invalid("player1_ranking", float64(in.Player1Ranking), "must be positive")
	}
	if in.Player2Ranking < 1 {
		return invalid("player2_ranking", float64(in.Player2Ranking), "must be positive")
	}
	if err := checkOptionalRange("player1_win_rate", in.Player1WinRate, 0, 1); err != nil {
		return err
	}
	if err := checkOptionalRange("player2_win_rate", in.Player2WinRate, 0, 1); err != nil {
		return err
	}
	if !in.Surface.Valid() {
		return &InvalidInputError{Field: "surface", Value: math.NaN(), Reason: "unknown surface " + string(in.Surface)}
	}
	if in.Odds != nil {
		return in.Odds.Validate()
	}
	return nil
}

// Adjustment is the numeric output of the text/sentiment enrichment pipeline.
// Each component is roughly within [-0.3, 0.3].
type Adjustment struct {
	InjuryImpactHome float64 `json:"injury_impact_home"`
	InjuryImpactAway float64 `json:"injury_impact_away"`
	SentimentHome    float64 `json:"sentiment_home"`
	SentimentAway    float64 `json:"sentiment_away"`
}

// Validate rejects adjustments outside [-1, 1]
func (a *Adjustment) Validate() error {
	if a == nil {
		return nil
	}
	fields := []namedValue{
		{"injury_impact_home", a.InjuryImpactHome},
		{"injury_impact_away", a.InjuryImpactAway},
		{"sentiment_home", a.SentimentHome},
		{"sentiment_away", a.SentimentAway},
	}
	var errs []error
	for _, f := range fields {
		if err := checkRange(f.name, f.v, -1, 1); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// HomeShift is the signed correction applied to the home-win probability.
// Injuries are a positive impact on the injured side.
func (a *Adjustment) HomeShift(scale float64) float64 {
	if a == nil {
		return 0
	}
	return scale * ((a.SentimentHome - a.SentimentAway) + (a.InjuryImpactAway - a.InjuryImpactHome))
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultRating is the baseline for a new team or player
const DefaultRating = 1500.0

// RatingState is a competitor's current strength rating.
// Tennis players carry per-surface ratings alongside the overall one.
type RatingState struct {
	CompetitorID   string              `db:"competitor_id" json:"competitor_id"`
	Sport          Sport               `db:"sport" json:"sport"`
	Rating         float64             `db:"rating" json:"rating"`
	SurfaceRatings map[Surface]float64 `db:"surface_ratings" json:"surface_ratings,omitempty"`
	MatchesPlayed  int                 `db:"matches_played" json:"matches_played"`
	UpdatedAt      time.Time           `db:"updated_at" json:"updated_at"`
}

// NewRatingState returns a baseline rating
func NewRatingState(competitorID string, sport Sport) *RatingState {
	return &RatingState{
		CompetitorID: competitorID,
		Sport:        sport,
		Rating:       DefaultRating,
	}
}

// SurfaceRating returns the rating on a surface, falling back to the overall rating
func (r *RatingState) SurfaceRating(s Surface) float64 {
	if v, ok := r.SurfaceRatings[s]; ok {
		return v
	}
	return r.Rating
}

// MatchResult is a completed match awaiting rating settlement
type MatchResult struct {
	MatchID    string    `db:"match_id" json:"match_id"`
	Sport      Sport     `db:"sport" json:"sport"`
	HomeID     string    `db:"home_id" json:"home_id"`
	AwayID     string    `db:"away_id" json:"away_id"`
	HomeScore  int       `db:"home_score" json:"home_score"`
	AwayScore  int       `db:"away_score" json:"away_score"`
	Surface    Surface   `db:"surface" json:"surface,omitempty"`
	MajorMatch bool      `db:"major_match" json:"major_match"`
	PlayedAt   time.Time `db:"played_at" json:"played_at"`
	Settled    bool      `db:"settled" json:"settled"`
}

// Outcome returns the result from the home side's view
func (m *MatchResult) Outcome() Outcome {
	return OutcomeFromScore(m.HomeScore, m.AwayScore)
}

// SettledPrediction pairs a raw prediction with the observed outcome.
// It is the unit of calibration training data.
type SettledPrediction struct {
	PredictionID uuid.UUID `db:"prediction_id" json:"prediction_id"`
	Sport        Sport     `db:"sport" json:"sport"`
	HomeProb     float64   `db:"home_prob" json:"home_prob"`
	DrawProb     float64   `db:"draw_prob" json:"draw_prob"`
	AwayProb     float64   `db:"away_prob" json:"away_prob"`
	Actual       Outcome   `db:"actual" json:"actual"`
	SettledAt    time.Time `db:"settled_at" json:"settled_at"`
}

// Triple returns the raw probabilities in outcome order
func (s *SettledPrediction) Triple() [3]float64 {
	return [3]float64{s.HomeProb, s.DrawProb, s.AwayProb}
}

// TrainingSample is one settled football match as learned-model input
type TrainingSample struct {
	MatchID  string    `db:"match_id" json:"match_id"`
	Features []float64 `db:"features" json:"features"`
	Outcome  Outcome   `db:"outcome" json:"outcome"`
}

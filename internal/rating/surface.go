package rating

import (
	"fmt"
	"math"
	"time"

	"matchcast/engine/internal/models"
)

// SurfaceParams configures tennis ratings
type SurfaceParams struct {
	K        float64 `yaml:"k"`
	SurfaceK float64 `yaml:"surface_k"`
	Scale    float64 `yaml:"scale"`
}

// DefaultSurfaceParams returns the standard tennis configuration
func DefaultSurfaceParams() SurfaceParams {
	return SurfaceParams{K: 32, SurfaceK: 32, Scale: 400}
}

// Validate checks the configuration is usable
func (p SurfaceParams) Validate() error {
	if p.K <= 0 || p.SurfaceK <= 0 || p.Scale <= 0 {
		return fmt.Errorf("surface elo k=%v surface_k=%v scale=%v must be positive", p.K, p.SurfaceK, p.Scale)
	}
	return nil
}

// SurfaceElo rates tennis players overall and per surface. There is no home side.
type SurfaceElo struct {
	params SurfaceParams
}

// NewSurfaceElo creates a surface rating model
func NewSurfaceElo(params SurfaceParams) *SurfaceElo {
	return &SurfaceElo{params: params}
}

// WinProbability returns the probability that the first player wins
func (s *SurfaceElo) WinProbability(rating1, rating2 float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (rating2-rating1)/s.params.Scale))
}

// UpdateSurface returns new rating states for both players after a match.
// The inputs are not modified.
func (s *SurfaceElo) UpdateSurface(winner, loser *models.RatingState, surface models.Surface) (*models.RatingState, *models.RatingState, error) {
	if !surface.Valid() {
		return nil, nil, &models.InvalidInputError{Field: "surface", Value: math.NaN(), Reason: "unknown surface " + string(surface)}
	}

	w, l := cloneState(winner), cloneState(loser)

	expected := s.WinProbability(winner.Rating, loser.Rating)
	delta := s.params.K * (1 - expected)
	w.Rating += delta
	l.Rating -= delta

	ws, ls := winner.SurfaceRating(surface), loser.SurfaceRating(surface)
	surfaceDelta := s.params.SurfaceK * (1 - s.WinProbability(ws, ls))
	w.SurfaceRatings[surface] = ws + surfaceDelta
	l.SurfaceRatings[surface] = ls - surfaceDelta

	now := time.Now().UTC()
	w.MatchesPlayed++
	l.MatchesPlayed++
	w.UpdatedAt, l.UpdatedAt = now, now

	return w, l, nil
}

func cloneState(r *models.RatingState) *models.RatingState {
	c := *r
	c.SurfaceRatings = make(map[models.Surface]float64, len(r.SurfaceRatings)+1)
	for k, v := range r.SurfaceRatings {
		c.SurfaceRatings[k] = v
	}
	return &c
}

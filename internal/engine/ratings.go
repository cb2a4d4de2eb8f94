package engine

import (
	"fmt"
	"time"

	"matchcast/engine/internal/metrics"
	"matchcast/engine/internal/models"
)

// UpdateFootballRatings returns both teams' ratings after a result. The
// inputs are not modified.
func (e *Engine) UpdateFootballRatings(home, away *models.RatingState, goalsHome, goalsAway int, major bool) (*models.RatingState, *models.RatingState) {
	rh, ra := e.elo.UpdateRatings(home.Rating, away.Rating, goalsHome, goalsAway, major)
	return advance(home, rh), advance(away, ra)
}

// UpdateBasketballRatings returns both teams' ratings after a result. Only
// the winner counts; the goal-difference multiplier is not meant for
// basketball margins. The basketball ELO parameters apply, not football's.
func (e *Engine) UpdateBasketballRatings(home, away *models.RatingState, pointsHome, pointsAway int) (*models.RatingState, *models.RatingState) {
	wh, wa := 0, 0
	switch {
	case pointsHome > pointsAway:
		wh = 1
	case pointsAway > pointsHome:
		wa = 1
	}
	rh, ra := e.basketball.Elo().UpdateRatings(home.Rating, away.Rating, wh, wa)
	return advance(home, rh), advance(away, ra)
}

// UpdateTennisRatings returns both players' overall and surface ratings
// after a match
func (e *Engine) UpdateTennisRatings(winner, loser *models.RatingState, surface models.Surface) (*models.RatingState, *models.RatingState, error) {
	return e.surface.UpdateSurface(winner, loser, surface)
}

// Settle applies a completed match to the two competitors' ratings and
// returns the new states in home, away order
func (e *Engine) Settle(m *models.MatchResult, home, away *models.RatingState) ([]*models.RatingState, error) {
	if home.CompetitorID != m.HomeID || away.CompetitorID != m.AwayID {
		return nil, fmt.Errorf("ratings %s/%s do not belong to match %s", home.CompetitorID, away.CompetitorID, m.MatchID)
	}

	var nh, na *models.RatingState
	switch m.Sport {
	case models.SportFootball:
		nh, na = e.UpdateFootballRatings(home, away, m.HomeScore, m.AwayScore, m.MajorMatch)
	case models.SportBasketball:
		nh, na = e.UpdateBasketballRatings(home, away, m.HomeScore, m.AwayScore)
	case models.SportTennis:
		if m.HomeScore == m.AwayScore {
			return nil, &models.InvalidInputError{Field: "score", Value: float64(m.HomeScore), Reason: "tennis matches cannot be drawn"}
		}
		var err error
		if m.HomeScore > m.AwayScore {
			nh, na, err = e.UpdateTennisRatings(home, away, m.Surface)
		} else {
			na, nh, err = e.UpdateTennisRatings(away, home, m.Surface)
		}
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown sport %q", m.Sport)
	}

	metrics.RecordRatingUpdate(string(m.Sport))
	return []*models.RatingState{nh, na}, nil
}

func advance(prev *models.RatingState, rating float64) *models.RatingState {
	next := *prev
	next.Rating = rating
	next.MatchesPlayed++
	next.UpdatedAt = time.Now().UTC()
	return &next
}

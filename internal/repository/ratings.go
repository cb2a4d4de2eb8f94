package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"matchcast/engine/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// RatingRepository handles competitor rating storage
type RatingRepository struct {
	db *Database
}

// Get returns a competitor's rating, or a baseline rating when none is stored
func (r *RatingRepository) Get(ctx context.Context, competitorID string, sport models.Sport) (*models.RatingState, error) {
	query := `
		SELECT competitor_id, sport, rating, surface_ratings, matches_played, updated_at
		FROM ratings
		WHERE competitor_id = $1 AND sport = $2
	`

	start := time.Now()
	state, err := scanRating(r.db.Pool.QueryRow(ctx, query, competitorID, string(sport)))
	if errors.Is(err, pgx.ErrNoRows) {
		observe("select", "ratings", start, nil)
		return models.NewRatingState(competitorID, sport), nil
	}
	observe("select", "ratings", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to get rating: %w", err)
	}
	return state, nil
}

// Upsert inserts or replaces a rating
func (r *RatingRepository) Upsert(ctx context.Context, state *models.RatingState) error {
	start := time.Now()
	err := upsertRating(ctx, r.db.Pool, state)
	observe("upsert", "ratings", start, err)
	if err != nil {
		return err
	}

	log.Debug().
		Str("competitor_id", state.CompetitorID).
		Str("sport", string(state.Sport)).
		Float64("rating", state.Rating).
		Msg("Rating upserted")
	return nil
}

// List returns every rating of a sport, highest first
func (r *RatingRepository) List(ctx context.Context, sport models.Sport) ([]*models.RatingState, error) {
	query := `
		SELECT competitor_id, sport, rating, surface_ratings, matches_played, updated_at
		FROM ratings
		WHERE sport = $1
		ORDER BY rating DESC
	`

	start := time.Now()
	rows, err := r.db.Pool.Query(ctx, query, string(sport))
	observe("select", "ratings", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list ratings: %w", err)
	}
	defer rows.Close()

	var states []*models.RatingState
	for rows.Next() {
		state, err := scanRating(rows)
		if err != nil {
			log.Error().Err(err).Msg("Failed to scan rating row")
			continue
		}
		states = append(states, state)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rating rows: %w", err)
	}
	return states, nil
}

// queryRower is satisfied by both the pool and a transaction
type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func upsertRating(ctx context.Context, q queryRower, state *models.RatingState) error {
	if state.CompetitorID == "" {
		return fmt.Errorf("competitor_id is required")
	}
	surfaces, err := json.Marshal(state.SurfaceRatings)
	if err != nil {
		return fmt.Errorf("failed to encode surface ratings: %w", err)
	}
	if state.SurfaceRatings == nil {
		surfaces = []byte("{}")
	}

	query := `
		INSERT INTO ratings (competitor_id, sport, rating, surface_ratings, matches_played, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (competitor_id, sport) DO UPDATE SET
			rating = EXCLUDED.rating,
			surface_ratings = EXCLUDED.surface_ratings,
			matches_played = EXCLUDED.matches_played,
			updated_at = NOW()
		RETURNING updated_at
	`
	err = q.QueryRow(ctx, query,
		state.CompetitorID, string(state.Sport), state.Rating, surfaces, state.MatchesPlayed,
	).Scan(&state.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert rating: %w", err)
	}
	return nil
}

func scanRating(row pgx.Row) (*models.RatingState, error) {
	var (
		state    models.RatingState
		sport    string
		surfaces []byte
	)
	if err := row.Scan(&state.CompetitorID, &sport, &state.Rating, &surfaces, &state.MatchesPlayed, &state.UpdatedAt); err != nil {
		return nil, err
	}
	state.Sport = models.Sport(sport)
	if len(surfaces) > 0 {
		if err := json.Unmarshal(surfaces, &state.SurfaceRatings); err != nil {
			return nil, fmt.Errorf("failed to decode surface ratings: %w", err)
		}
		if len(state.SurfaceRatings) == 0 {
			state.SurfaceRatings = nil
		}
	}
	return &state, nil
}

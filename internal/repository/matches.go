package repository

import (
	"context"
	"fmt"
	"time"

	"matchcast/engine/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// MatchRepository handles completed match results
type MatchRepository struct {
	db *Database
}

// Upsert inserts or updates a match result. The settled flag is never
// cleared by an update.
func (r *MatchRepository) Upsert(ctx context.Context, m *models.MatchResult) error {
	if m.MatchID == "" || m.HomeID == "" || m.AwayID == "" {
		return fmt.Errorf("match_id, home_id and away_id are required")
	}
	if m.HomeScore < 0 || m.AwayScore < 0 {
		return fmt.Errorf("scores must be non-negative")
	}

	query := `
		INSERT INTO match_results (
			match_id, sport, home_id, away_id, home_score, away_score,
			surface, major_match, played_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (match_id) DO UPDATE SET
			home_score = EXCLUDED.home_score,
			away_score = EXCLUDED.away_score,
			surface = EXCLUDED.surface,
			major_match = EXCLUDED.major_match,
			played_at = EXCLUDED.played_at
		RETURNING settled
	`

	start := time.Now()
	err := r.db.Pool.QueryRow(ctx, query,
		m.MatchID, string(m.Sport), m.HomeID, m.AwayID, m.HomeScore, m.AwayScore,
		string(m.Surface), m.MajorMatch, m.PlayedAt,
	).Scan(&m.Settled)
	observe("upsert", "match_results", start, err)
	if err != nil {
		return fmt.Errorf("failed to upsert match result: %w", err)
	}

	log.Debug().
		Str("match_id", m.MatchID).
		Str("sport", string(m.Sport)).
		Int("home_score", m.HomeScore).
		Int("away_score", m.AwayScore).
		Msg("Match result upserted")
	return nil
}

// ListUnsettled returns completed matches whose ratings have not been
// updated yet, oldest first so updates apply in play order
func (r *MatchRepository) ListUnsettled(ctx context.Context, limit int) ([]*models.MatchResult, error) {
	query := `
		SELECT match_id, sport, home_id, away_id, home_score, away_score,
		       surface, major_match, played_at, settled
		FROM match_results
		WHERE NOT settled
		ORDER BY played_at ASC
		LIMIT $1
	`

	start := time.Now()
	rows, err := r.db.Pool.Query(ctx, query, limit)
	observe("select", "match_results", start, err)
	if err != nil {
		log.Error().Err(err).Msg("Failed to query unsettled matches")
		return nil, fmt.Errorf("failed to list unsettled matches: %w", err)
	}
	defer rows.Close()

	var matches []*models.MatchResult
	for rows.Next() {
		var (
			m       models.MatchResult
			sport   string
			surface string
		)
		if err := rows.Scan(
			&m.MatchID, &sport, &m.HomeID, &m.AwayID, &m.HomeScore, &m.AwayScore,
			&surface, &m.MajorMatch, &m.PlayedAt, &m.Settled,
		); err != nil {
			log.Error().Err(err).Msg("Failed to scan match row")
			continue
		}
		m.Sport = models.Sport(sport)
		m.Surface = models.Surface(surface)
		matches = append(matches, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating match rows: %w", err)
	}
	return matches, nil
}

// Settle stores the updated ratings and marks the match settled in one
// transaction. A match that is already settled is left untouched.
func (r *MatchRepository) Settle(ctx context.Context, matchID string, states ...*models.RatingState) error {
	start := time.Now()
	err := pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE match_results SET settled = TRUE WHERE match_id = $1 AND NOT settled`, matchID)
		if err != nil {
			return fmt.Errorf("failed to mark match settled: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return errAlreadySettled
		}
		for _, s := range states {
			if err := upsertRating(ctx, tx, s); err != nil {
				return err
			}
		}
		return nil
	})
	if err == errAlreadySettled {
		observe("settle", "match_results", start, nil)
		log.Warn().Str("match_id", matchID).Msg("Match already settled, skipping")
		return nil
	}
	observe("settle", "match_results", start, err)
	if err != nil {
		return fmt.Errorf("failed to settle match %s: %w", matchID, err)
	}

	log.Info().Str("match_id", matchID).Int("ratings", len(states)).Msg("Match settled")
	return nil
}

var errAlreadySettled = fmt.Errorf("match already settled")

package repository

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS ratings (
		competitor_id   TEXT NOT NULL,
		sport           TEXT NOT NULL,
		rating          DOUBLE PRECISION NOT NULL,
		surface_ratings JSONB NOT NULL DEFAULT '{}',
		matches_played  INTEGER NOT NULL DEFAULT 0,
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (competitor_id, sport)
	)`,
	`CREATE TABLE IF NOT EXISTS match_results (
		match_id    TEXT PRIMARY KEY,
		sport       TEXT NOT NULL,
		home_id     TEXT NOT NULL,
		away_id     TEXT NOT NULL,
		home_score  INTEGER NOT NULL,
		away_score  INTEGER NOT NULL,
		surface     TEXT NOT NULL DEFAULT '',
		major_match BOOLEAN NOT NULL DEFAULT FALSE,
		played_at   TIMESTAMPTZ NOT NULL,
		settled     BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_match_results_unsettled ON match_results (played_at) WHERE NOT settled`,
	`CREATE TABLE IF NOT EXISTS predictions (
		id                  UUID PRIMARY KEY,
		match_id            TEXT NOT NULL,
		sport               TEXT NOT NULL,
		model_version       TEXT,
		home_prob           DOUBLE PRECISION NOT NULL,
		draw_prob           DOUBLE PRECISION,
		away_prob           DOUBLE PRECISION NOT NULL,
		raw_home_prob       DOUBLE PRECISION NOT NULL,
		raw_draw_prob       DOUBLE PRECISION NOT NULL,
		raw_away_prob       DOUBLE PRECISION NOT NULL,
		recommended_outcome TEXT NOT NULL,
		confidence          DOUBLE PRECISION NOT NULL,
		model_agreement     DOUBLE PRECISION NOT NULL,
		uncertainty         DOUBLE PRECISION NOT NULL,
		expected_home_goals DOUBLE PRECISION,
		expected_away_goals DOUBLE PRECISION,
		value_score         DOUBLE PRECISION,
		calibration_method  TEXT NOT NULL,
		contributions       JSONB,
		explanation         JSONB,
		features            JSONB,
		predicted_at        TIMESTAMPTZ NOT NULL,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_predictions_match ON predictions (match_id, predicted_at DESC)`,
	`CREATE TABLE IF NOT EXISTS model_blobs (
		id         BIGSERIAL PRIMARY KEY,
		name       TEXT NOT NULL,
		version    TEXT NOT NULL,
		data       BYTEA NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_model_blobs_name ON model_blobs (name, created_at DESC)`,
}

// Migrate creates any missing tables and indexes
func (db *Database) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	log.Info().Int("statements", len(schema)).Msg("Database schema is up to date")
	return nil
}

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

// PredictionRepository handles prediction-related database operations
type PredictionRepository struct {
	db *Database
}

// Create inserts a prediction record with validation
func (r *PredictionRepository) Create(ctx context.Context, rec *models.PredictionRecord) error {
	if rec == nil {
		return fmt.Errorf("prediction cannot be nil")
	}
	if err := validatePredictionRecord(rec); err != nil {
		return fmt.Errorf("prediction validation failed: %w", err)
	}

	query := `
		INSERT INTO predictions (
			id, match_id, sport, model_version,
			home_prob, draw_prob, away_prob,
			raw_home_prob, raw_draw_prob, raw_away_prob,
			recommended_outcome, confidence, model_agreement, uncertainty,
			expected_home_goals, expected_away_goals, value_score,
			calibration_method, contributions, explanation, features,
			predicted_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7,
			$8, $9, $10,
			$11, $12, $13, $14,
			$15, $16, $17,
			$18, $19, $20, $21,
			$22
		)
		RETURNING created_at
	`

	start := time.Now()
	err := r.db.Pool.QueryRow(ctx, query,
		rec.ID, rec.MatchID, string(rec.Sport), rec.ModelVersion,
		rec.HomeProb, rec.DrawProb, rec.AwayProb,
		rec.RawHomeProb, rec.RawDrawProb, rec.RawAwayProb,
		rec.RecommendedOutcome, rec.Confidence, rec.ModelAgreement, rec.Uncertainty,
		rec.ExpectedHomeGoals, rec.ExpectedAwayGoals, rec.ValueScore,
		rec.CalibrationMethod, jsonb(rec.Contributions), jsonb(rec.Explanation), jsonb(rec.Features),
		rec.PredictedAt,
	).Scan(&rec.CreatedAt)
	observe("insert", "predictions", start, err)
	if err != nil {
		log.Error().Err(err).Str("match_id", rec.MatchID).Msg("Failed to insert prediction")
		return fmt.Errorf("failed to create prediction: %w", err)
	}

	log.Info().
		Str("id", rec.ID.String()).
		Str("match_id", rec.MatchID).
		Str("sport", string(rec.Sport)).
		Msg("Prediction created successfully")
	return nil
}

// GetLatestByMatchID retrieves the most recent prediction for a match.
// It returns nil without error when the match has none.
func (r *PredictionRepository) GetLatestByMatchID(ctx context.Context, matchID string) (*models.PredictionRecord, error) {
	query := `
		SELECT id, match_id, sport, model_version,
		       home_prob, draw_prob, away_prob,
		       raw_home_prob, raw_draw_prob, raw_away_prob,
		       recommended_outcome, confidence, model_agreement, uncertainty,
		       expected_home_goals, expected_away_goals, value_score,
		       calibration_method, contributions, explanation, features,
		       predicted_at, created_at
		FROM predictions
		WHERE match_id = $1
		ORDER BY predicted_at DESC
		LIMIT 1
	`

	var (
		rec                                      models.PredictionRecord
		sport                                    string
		contributions, explanation, featuresJSON []byte
	)
	start := time.Now()
	err := r.db.Pool.QueryRow(ctx, query, matchID).Scan(
		&rec.ID, &rec.MatchID, &sport, &rec.ModelVersion,
		&rec.HomeProb, &rec.DrawProb, &rec.AwayProb,
		&rec.RawHomeProb, &rec.RawDrawProb, &rec.RawAwayProb,
		&rec.RecommendedOutcome, &rec.Confidence, &rec.ModelAgreement, &rec.Uncertainty,
		&rec.ExpectedHomeGoals, &rec.ExpectedAwayGoals, &rec.ValueScore,
		&rec.CalibrationMethod, &contributions, &explanation, &featuresJSON,
		&rec.PredictedAt, &rec.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		observe("select", "predictions", start, nil)
		return nil, nil
	}
	observe("select", "predictions", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}

	rec.Sport = models.Sport(sport)
	rec.Contributions = contributions
	rec.Explanation = explanation
	rec.Features = featuresJSON
	return &rec, nil
}

// SettledSamples returns, for every settled match of a sport played since
// the given time, the raw probabilities of its latest pre-match prediction
// together with the observed outcome
func (r *PredictionRepository) SettledSamples(ctx context.Context, sport models.Sport, since time.Time) ([]*models.SettledPrediction, error) {
	query := `
		SELECT DISTINCT ON (p.match_id)
		       p.id, p.sport, p.raw_home_prob, p.raw_draw_prob, p.raw_away_prob,
		       m.home_score, m.away_score, m.played_at
		FROM predictions p
		JOIN match_results m ON m.match_id = p.match_id
		WHERE m.settled
		  AND p.sport = $1
		  AND m.played_at >= $2
		  AND p.predicted_at <= m.played_at
		ORDER BY p.match_id, p.predicted_at DESC
	`

	start := time.Now()
	rows, err := r.db.Pool.Query(ctx, query, string(sport), since)
	observe("select", "predictions", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query settled predictions: %w", err)
	}
	defer rows.Close()

	var samples []*models.SettledPrediction
	for rows.Next() {
		var (
			s                    models.SettledPrediction
			sp                   string
			homeScore, awayScore int
		)
		if err := rows.Scan(
			&s.PredictionID, &sp, &s.HomeProb, &s.DrawProb, &s.AwayProb,
			&homeScore, &awayScore, &s.SettledAt,
		); err != nil {
			log.Error().Err(err).Msg("Failed to scan settled prediction row")
			continue
		}
		s.Sport = models.Sport(sp)
		s.Actual = models.OutcomeFromScore(homeScore, awayScore)
		samples = append(samples, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating settled prediction rows: %w", err)
	}
	return samples, nil
}

// TrainingSamples returns the stored feature vectors of settled football
// matches played since the given time, one per match
func (r *PredictionRepository) TrainingSamples(ctx context.Context, since time.Time) ([]*models.TrainingSample, error) {
	query := `
		SELECT DISTINCT ON (p.match_id)
		       p.match_id, p.features, m.home_score, m.away_score
		FROM predictions p
		JOIN match_results m ON m.match_id = p.match_id
		WHERE m.settled
		  AND p.sport = 'football'
		  AND p.features IS NOT NULL
		  AND m.played_at >= $1
		  AND p.predicted_at <= m.played_at
		ORDER BY p.match_id, p.predicted_at DESC
	`

	start := time.Now()
	rows, err := r.db.Pool.Query(ctx, query, since)
	observe("select", "predictions", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query training samples: %w", err)
	}
	defer rows.Close()

	var samples []*models.TrainingSample
	for rows.Next() {
		var (
			s                    models.TrainingSample
			raw                  []byte
			homeScore, awayScore int
		)
		if err := rows.Scan(&s.MatchID, &raw, &homeScore, &awayScore); err != nil {
			log.Error().Err(err).Msg("Failed to scan training sample row")
			continue
		}
		if err := json.Unmarshal(raw, &s.Features); err != nil {
			log.Warn().Err(err).Str("match_id", s.MatchID).Msg("Skipping unreadable feature vector")
			continue
		}
		s.Outcome = models.OutcomeFromScore(homeScore, awayScore)
		samples = append(samples, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating training sample rows: %w", err)
	}
	return samples, nil
}

// jsonb maps an empty document to SQL NULL
func jsonb(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return nil
	}
	return raw
}

// validatePredictionRecord ensures record data is valid before insertion
func validatePredictionRecord(rec *models.PredictionRecord) error {
	if rec.MatchID == "" {
		return fmt.Errorf("match_id is required")
	}
	if rec.Sport == "" {
		return fmt.Errorf("sport is required")
	}
	for name, p := range map[string]float64{
		"home_prob": rec.HomeProb,
		"away_prob": rec.AwayProb,
		"draw_prob": rec.DrawProb.Float64,
	} {
		if p < 0 || p > 1 {
			return fmt.Errorf("%s must be between 0 and 1", name)
		}
	}
	if rec.Confidence < 0 || rec.Confidence > 1 {
		return fmt.Errorf("confidence must be between 0 and 1")
	}
	if rec.PredictedAt.IsZero() {
		return fmt.Errorf("predicted_at is required")
	}
	return nil
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"matchcast/engine/internal/models"

	"github.com/rs/zerolog/log"
)

// resultUpserter stores completed match results
type resultUpserter interface {
	Upsert(ctx context.Context, m *models.MatchResult) error
}

// importResults loads a JSON array of completed results from path and
// upserts those with both competitors and a play time. It returns the
// number stored.
func importResults(ctx context.Context, path string, store resultUpserter) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read results file: %w", err)
	}

	var results []*models.MatchResult
	if err := json.Unmarshal(data, &results); err != nil {
		return 0, fmt.Errorf("failed to decode results file: %w", err)
	}
	log.Info().Int("count", len(results)).Str("path", path).Msg("Historical results read")

	imported := 0
	for _, m := range results {
		if m == nil {
			continue
		}
		if m.MatchID == "" || m.HomeID == "" || m.AwayID == "" || m.PlayedAt.IsZero() {
			log.Warn().Str("match_id", m.MatchID).Msg("Skipping incomplete result")
			continue
		}
		if err := store.Upsert(ctx, m); err != nil {
			log.Error().Err(err).Str("match_id", m.MatchID).Msg("Failed to store result")
			continue
		}

		imported++
		if imported%50 == 0 {
			log.Info().Int("imported", imported).Msg("Importing results...")
		}
	}

	log.Info().Int("count", imported).Msg("Historical results imported")
	return imported, nil
}

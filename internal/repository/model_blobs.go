package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// ModelBlobRepository stores serialized models and calibration curves.
// Every save appends a row so earlier versions stay available.
type ModelBlobRepository struct {
	db *Database
}

// Save appends a blob under name
func (r *ModelBlobRepository) Save(ctx context.Context, name, version string, data []byte) error {
	if name == "" {
		return fmt.Errorf("blob name is required")
	}
	if len(data) == 0 {
		return fmt.Errorf("blob %s is empty", name)
	}

	start := time.Now()
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO model_blobs (name, version, data) VALUES ($1, $2, $3)`,
		name, version, data,
	)
	observe("insert", "model_blobs", start, err)
	if err != nil {
		return fmt.Errorf("failed to save blob %s: %w", name, err)
	}

	log.Info().Str("name", name).Str("version", version).Int("bytes", len(data)).Msg("Model blob saved")
	return nil
}

// Latest returns the most recently saved blob under name and its version.
// A nil slice means nothing has been saved yet.
func (r *ModelBlobRepository) Latest(ctx context.Context, name string) ([]byte, string, error) {
	var (
		data    []byte
		version string
	)
	start := time.Now()
	err := r.db.Pool.QueryRow(ctx,
		`SELECT data, version FROM model_blobs WHERE name = $1 ORDER BY created_at DESC, id DESC LIMIT 1`,
		name,
	).Scan(&data, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		observe("select", "model_blobs", start, nil)
		return nil, "", nil
	}
	observe("select", "model_blobs", start, err)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load blob %s: %w", name, err)
	}
	return data, version, nil
}

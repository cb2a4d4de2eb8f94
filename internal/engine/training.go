package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"matchcast/engine/internal/calibration"
	"matchcast/engine/internal/learned"
	"matchcast/engine/internal/metrics"
	"matchcast/engine/internal/models"

	"github.com/rs/zerolog/log"
)

// BlobStore persists opaque model blobs by name
type BlobStore interface {
	Save(ctx context.Context, name, version string, data []byte) error
	Latest(ctx context.Context, name string) ([]byte, string, error)
}

// FitCalibration fits a sport's calibrator on settled raw predictions and
// publishes it. Predictions in flight keep the previous calibration.
func (e *Engine) FitCalibration(sport models.Sport, samples []*models.SettledPrediction, method calibration.Method) (calibration.FitReport, error) {
	cal, err := e.calibrator(sport)
	if err != nil {
		return calibration.FitReport{}, err
	}

	raw := make([][3]float64, len(samples))
	labels := make([]models.Outcome, len(samples))
	for i, s := range samples {
		raw[i] = s.Triple()
		labels[i] = s.Actual
	}

	report, err := cal.Fit(raw, labels, method)
	if err != nil {
		metrics.RecordCalibrationFit(string(method), "error", 0, 0)
		return report, fmt.Errorf("failed to fit %s calibration: %w", sport, err)
	}
	e.generation.Add(1)

	metrics.RecordCalibrationFit(string(method), "success", report.After.Brier, report.After.ECE)
	return report, nil
}

// TrainModels trains both learned football models on settled samples.
// A model that fails to train keeps its previous snapshot; the errors of
// both models are joined.
func (e *Engine) TrainModels(samples []*models.TrainingSample) error {
	X := make([]learned.FeatureVector, 0, len(samples))
	y := make([]int, 0, len(samples))
	for _, s := range samples {
		if len(s.Features) != learned.NumFeatures {
			log.Warn().Str("match_id", s.MatchID).Int("features", len(s.Features)).
				Msg("Skipping training sample with wrong feature count")
			continue
		}
		var x learned.FeatureVector
		copy(x[:], s.Features)
		X = append(X, x)
		y = append(y, int(s.Outcome))
	}

	var errs []error
	for _, m := range []*learned.Model{e.gbt, e.rf} {
		start := time.Now()
		if err := m.Train(X, y); err != nil {
			metrics.RecordTraining(m.Name(), "error", time.Since(start).Seconds())
			errs = append(errs, err)
			continue
		}
		metrics.RecordTraining(m.Name(), "success", time.Since(start).Seconds())
		e.generation.Add(1)
		log.Info().Str("model", m.Name()).Int("samples", len(X)).Dur("duration", time.Since(start)).Msg("Model trained")
	}
	return errors.Join(errs...)
}

// Blob names used by SaveState and LoadState
const (
	blobGradientBoosting      = "model/gradient_boosting"
	blobRandomForest          = "model/random_forest"
	blobCalibrationFootball   = "calibration/football"
	blobCalibrationBasketball = "calibration/basketball"
)

type persistable interface {
	Save() ([]byte, error)
	Load(data []byte) error
}

func (e *Engine) persistables() map[string]persistable {
	return map[string]persistable{
		blobGradientBoosting:      e.gbt,
		blobRandomForest:          e.rf,
		blobCalibrationFootball:   e.calibrators[models.SportFootball],
		blobCalibrationBasketball: e.calibrators[models.SportBasketball],
	}
}

// SaveState stores every learned model and calibration under the engine version
func (e *Engine) SaveState(ctx context.Context, store BlobStore) error {
	for name, p := range e.persistables() {
		data, err := p.Save()
		if err != nil {
			return fmt.Errorf("failed to serialize %s: %w", name, err)
		}
		if err := store.Save(ctx, name, e.version, data); err != nil {
			return err
		}
	}
	return nil
}

// LoadState restores the latest stored models and calibrations. Missing
// blobs leave the corresponding component untrained or unfitted.
func (e *Engine) LoadState(ctx context.Context, store BlobStore) error {
	loaded := 0
	for name, p := range e.persistables() {
		data, version, err := store.Latest(ctx, name)
		if err != nil {
			return err
		}
		if data == nil {
			log.Info().Str("blob", name).Msg("No stored blob, starting fresh")
			continue
		}
		if err := p.Load(data); err != nil {
			return fmt.Errorf("failed to restore %s: %w", name, err)
		}
		loaded++
		log.Info().Str("blob", name).Str("version", version).Msg("Restored blob")
	}
	if loaded > 0 {
		e.generation.Add(1)
	}
	return nil
}

// Package engine wires the sport combiners, the learned models and the
// calibrators behind one handle. The handle is owned by the caller; nothing
// here is package-level state.
package engine

import (
	"fmt"
	"sync/atomic"

	"matchcast/engine/internal/calibration"
	"matchcast/engine/internal/config"
	"matchcast/engine/internal/ensemble"
	"matchcast/engine/internal/goals"
	"matchcast/engine/internal/learned"
	"matchcast/engine/internal/metrics"
	"matchcast/engine/internal/models"
	"matchcast/engine/internal/rating"

	"github.com/rs/zerolog/log"
)

// Engine serves predictions for every sport. Predictions may run
// concurrently with each other and with training or calibration fits.
type Engine struct {
	tuning  *config.Tuning
	version string

	football   *ensemble.Football
	basketball *ensemble.Basketball
	tennis     *ensemble.Tennis

	elo     *rating.AdvancedElo
	surface *rating.SurfaceElo

	gbt *learned.Model
	rf  *learned.Model

	calibrators map[models.Sport]*calibration.Calibrator

	// bumped whenever a model or calibration is replaced
	generation atomic.Uint64
}

// New builds an engine from validated tuning. The learned models start
// untrained and the calibrators unfitted.
func New(tuning *config.Tuning, version string) (*Engine, error) {
	if tuning == nil {
		tuning = config.DefaultTuning()
	}
	if err := tuning.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tuning: %w", err)
	}

	e := &Engine{
		tuning:  tuning,
		version: version,
		elo:     rating.NewAdvancedElo(tuning.Elo),
		surface: rating.NewSurfaceElo(tuning.SurfaceElo),
		gbt:     learned.NewModel(learned.GBTTrainer{Params: tuning.GradientBoosting}),
		rf:      learned.NewModel(learned.RFTrainer{Params: tuning.RandomForest}),
		calibrators: map[models.Sport]*calibration.Calibrator{
			models.SportFootball:   calibration.NewCalibrator(tuning.Calibration),
			models.SportBasketball: calibration.NewCalibrator(tuning.Calibration),
		},
	}

	e.football = ensemble.NewFootball(
		tuning.Football,
		tuning.Ensemble,
		goals.NewPoisson(tuning.Poisson),
		goals.NewDixonColes(tuning.DixonColes),
		e.elo,
		e.gbt,
		e.rf,
	)
	e.basketball = ensemble.NewBasketball(tuning.Basketball, tuning.Ensemble)
	e.tennis = ensemble.NewTennis(tuning.Tennis, tuning.Ensemble)

	log.Info().
		Str("version", version).
		Str("goal_model", tuning.Football.GoalModel).
		Msg("Forecasting engine initialized")

	return e, nil
}

// Version returns the model version stamped on persisted predictions
func (e *Engine) Version() string {
	return e.version
}

// Generation changes whenever a learned model or a calibration is replaced.
// Cached predictions from an older generation are stale.
func (e *Engine) Generation() uint64 {
	return e.generation.Load()
}

// Models describes the published learned-model snapshots
func (e *Engine) Models() []learned.Info {
	return []learned.Info{e.gbt.Info(), e.rf.Info()}
}

// Calibration returns the last fit report for a sport
func (e *Engine) Calibration(sport models.Sport) (calibration.FitReport, bool) {
	cal, ok := e.calibrators[sport]
	if !ok {
		return calibration.FitReport{}, false
	}
	return cal.Report()
}

func (e *Engine) calibrator(sport models.Sport) (*calibration.Calibrator, error) {
	cal, ok := e.calibrators[sport]
	if !ok {
		return nil, fmt.Errorf("sport %q has no calibrator", sport)
	}
	return cal, nil
}

// calibrate replaces the ensemble triple with its calibrated version and
// keeps the raw triple on the prediction. Confidence, agreement and
// uncertainty describe the ensemble and are left as computed.
func (e *Engine) calibrate(pred *models.EnsemblePrediction) {
	cal, ok := e.calibrators[pred.Sport]
	if !ok {
		return
	}
	probs, method := cal.Calibrate(pred.HomeProb, pred.DrawProb, pred.AwayProb)
	pred.CalibrationMethod = string(method)
	if method == calibration.MethodNone {
		metrics.RecordCalibrationPassthrough()
		return
	}

	raw := pred.Probabilities()
	pred.RawProbabilities = &raw
	pred.HomeProb, pred.DrawProb, pred.AwayProb = probs[0], probs[1], probs[2]
	pred.RecommendedOutcome = models.Argmax(probs[0], probs[1], probs[2])
}

// recordFallbacks counts learned models still predicting with the heuristic
func (e *Engine) recordFallbacks() {
	for _, m := range []*learned.Model{e.gbt, e.rf} {
		if m.State() != learned.Trained {
			metrics.RecordModelFallback(m.Name())
		}
	}
}

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"matchcast/engine/internal/calibration"
	"matchcast/engine/internal/config"
	"matchcast/engine/internal/engine"
	"matchcast/engine/internal/metrics"
	"matchcast/engine/internal/models"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// settleBatch bounds the matches settled by one run
const settleBatch = 500

// MatchStore stores, lists and settles completed matches
type MatchStore interface {
	Upsert(ctx context.Context, m *models.MatchResult) error
	ListUnsettled(ctx context.Context, limit int) ([]*models.MatchResult, error)
	Settle(ctx context.Context, matchID string, states ...*models.RatingState) error
}

// RatingStore reads competitor ratings
type RatingStore interface {
	Get(ctx context.Context, competitorID string, sport models.Sport) (*models.RatingState, error)
}

// SampleStore reads settled predictions and training samples
type SampleStore interface {
	SettledSamples(ctx context.Context, sport models.Sport, since time.Time) ([]*models.SettledPrediction, error)
	TrainingSamples(ctx context.Context, since time.Time) ([]*models.TrainingSample, error)
}

// ResultFeed supplies completed matches from upstream
type ResultFeed interface {
	FetchResults(ctx context.Context, since time.Time) ([]*models.MatchResult, error)
}

// Stores groups the persistence the jobs need. Feed may be nil to disable
// ingestion.
type Stores struct {
	Matches MatchStore
	Ratings RatingStore
	Samples SampleStore
	Blobs   engine.BlobStore
	Feed    ResultFeed
}

type job struct {
	name     string
	schedule string
	run      func(context.Context) error
}

// Scheduler runs the background jobs that keep the engine current:
// - ingest completed matches from the results feed
// - settle completed matches into ratings
// - refit probability calibration on settled predictions
// - retrain the learned models on stored features
//
// Jobs never overlap; a run that fires while another is active waits.
type Scheduler struct {
	cfg    *config.Config
	engine *engine.Engine
	stores Stores
	cron   *cron.Cron
	mu     sync.Mutex
	now    func() time.Time
}

// NewScheduler creates a new scheduler instance
func NewScheduler(cfg *config.Config, eng *engine.Engine, stores Stores) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		engine: eng,
		stores: stores,
		cron:   cron.New(),
		now:    time.Now,
	}
}

// Start schedules the jobs and starts the cron runner
func (s *Scheduler) Start(ctx context.Context) error {
	log.Info().Msg("Scheduler starting...")

	jobs := []job{
		{"settlement", s.cfg.SettlementCron, s.settle},
		{"calibration", s.cfg.CalibrationCron, s.RefitCalibration},
		{"retrain", s.cfg.RetrainCron, s.Retrain},
	}
	if s.stores.Feed != nil {
		jobs = append(jobs, job{"ingest", s.cfg.IngestCron, s.ingest})
	}

	for _, j := range jobs {
		j := j
		if _, err := s.cron.AddFunc(j.schedule, func() {
			if err := s.run(ctx, j.name, j.run); err != nil {
				log.Error().Err(err).Str("job", j.name).Msg("Scheduled job failed")
			}
		}); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", j.name, err)
		}
		log.Info().
			Str("job", j.name).
			Str("schedule", j.schedule).
			Msg("Job scheduled")
	}

	s.cron.Start()
	return nil
}

// Stop stops the cron runner and waits for a running job to finish
func (s *Scheduler) Stop() {
	log.Info().Msg("Stopping scheduler...")
	<-s.cron.Stop().Done()
	log.Info().Msg("Scheduler stopped")
}

// RunInitial ingests recent results when a feed is configured and settles
// any backlog of completed matches once on startup
func (s *Scheduler) RunInitial(ctx context.Context) error {
	if s.stores.Feed != nil {
		if err := s.run(ctx, "ingest", s.ingest); err != nil {
			log.Error().Err(err).Msg("Initial ingest failed, settling stored results")
		}
	}
	return s.run(ctx, "settlement", s.settle)
}

func (s *Scheduler) ingest(ctx context.Context) error {
	_, err := s.IngestResults(ctx)
	return err
}

func (s *Scheduler) settle(ctx context.Context) error {
	_, err := s.SettleMatches(ctx)
	return err
}

func (s *Scheduler) run(ctx context.Context, name string, fn func(context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	err := fn(ctx)
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordJob(name, status, time.Since(start).Seconds())

	log.Info().
		Str("job", name).
		Str("status", status).
		Dur("duration", time.Since(start)).
		Msg("Job complete")
	return err
}

// IngestResults stores the feed's results for the ingest lookback window
// and returns the number stored. Results already stored are updated; a
// settled result keeps its settled flag.
func (s *Scheduler) IngestResults(ctx context.Context) (int, error) {
	if s.stores.Feed == nil {
		return 0, nil
	}
	results, err := s.stores.Feed.FetchResults(ctx, s.now().Add(-s.cfg.IngestLookback))
	if err != nil {
		return 0, err
	}

	stored := 0
	for _, m := range results {
		if m == nil {
			continue
		}
		if m.MatchID == "" || m.HomeID == "" || m.AwayID == "" {
			log.Warn().Str("match_id", m.MatchID).Msg("Skipping incomplete feed result")
			continue
		}
		if m.PlayedAt.IsZero() {
			m.PlayedAt = s.now()
		}
		if err := s.stores.Matches.Upsert(ctx, m); err != nil {
			log.Error().Err(err).Str("match_id", m.MatchID).Msg("Failed to store feed result")
			continue
		}
		stored++
	}

	log.Info().
		Int("fetched", len(results)).
		Int("stored", stored).
		Msg("Feed results ingested")
	return stored, nil
}

// SettleMatches applies unsettled results to ratings in the order they
// were played and returns the number settled. A result that cannot be
// rated is marked settled without touching ratings.
func (s *Scheduler) SettleMatches(ctx context.Context) (int, error) {
	pending, err := s.stores.Matches.ListUnsettled(ctx, settleBatch)
	if err != nil {
		return 0, fmt.Errorf("failed to list unsettled matches: %w", err)
	}
	if len(pending) == 0 {
		log.Debug().Msg("No matches to settle")
		return 0, nil
	}

	settled := 0
	for _, m := range pending {
		if err := ctx.Err(); err != nil {
			return settled, err
		}

		states, err := s.settleOne(ctx, m)
		if errors.Is(err, models.ErrInvalidInput) {
			log.Warn().Err(err).Str("match_id", m.MatchID).Msg("Result cannot be rated, settling without ratings")
			states = nil
		} else if err != nil {
			// later matches may involve the same competitors
			return settled, err
		}

		if err := s.stores.Matches.Settle(ctx, m.MatchID, states...); err != nil {
			return settled, err
		}
		settled++
	}

	log.Info().
		Int("pending", len(pending)).
		Int("settled", settled).
		Msg("Matches settled")
	return settled, nil
}

func (s *Scheduler) settleOne(ctx context.Context, m *models.MatchResult) ([]*models.RatingState, error) {
	home, err := s.stores.Ratings.Get(ctx, m.HomeID, m.Sport)
	if err != nil {
		return nil, err
	}
	away, err := s.stores.Ratings.Get(ctx, m.AwayID, m.Sport)
	if err != nil {
		return nil, err
	}
	return s.engine.Settle(m, home, away)
}

// RefitCalibration refits the football and basketball calibrators on the
// settled predictions of the calibration window and stores the result.
// A sport without enough samples keeps its current calibration.
func (s *Scheduler) RefitCalibration(ctx context.Context) error {
	method, err := calibration.ParseMethod(s.cfg.CalibrationMethod)
	if err != nil {
		return err
	}
	since := s.now().Add(-s.cfg.CalibrationWindow)
	before := s.engine.Generation()

	var errs []error
	for _, sport := range []models.Sport{models.SportFootball, models.SportBasketball} {
		samples, err := s.stores.Samples.SettledSamples(ctx, sport, since)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		report, err := s.engine.FitCalibration(sport, samples, method)
		if errors.Is(err, models.ErrInsufficientData) {
			log.Info().Str("sport", string(sport)).Int("samples", len(samples)).Msg("Not enough settled predictions to calibrate")
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}

		log.Info().
			Str("sport", string(sport)).
			Str("method", string(method)).
			Int("samples", len(samples)).
			Float64("brier_before", report.Before.Brier).
			Float64("brier_after", report.After.Brier).
			Float64("ece_after", report.After.ECE).
			Msg("Calibration refit")
	}

	if err := s.persist(ctx, before); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Retrain retrains the learned football models on the features stored
// with settled predictions of the training window
func (s *Scheduler) Retrain(ctx context.Context) error {
	samples, err := s.stores.Samples.TrainingSamples(ctx, s.now().Add(-s.cfg.TrainingWindow))
	if err != nil {
		return err
	}
	before := s.engine.Generation()

	err = s.engine.TrainModels(samples)
	if errors.Is(err, models.ErrInsufficientData) {
		log.Info().Int("samples", len(samples)).Msg("Not enough training samples, keeping current models")
		err = nil
	}

	if perr := s.persist(ctx, before); perr != nil {
		return errors.Join(err, perr)
	}
	return err
}

// persist stores the engine state when anything changed since before
func (s *Scheduler) persist(ctx context.Context, before uint64) error {
	if s.engine.Generation() == before || s.stores.Blobs == nil {
		return nil
	}
	if err := s.engine.SaveState(ctx, s.stores.Blobs); err != nil {
		return fmt.Errorf("failed to save engine state: %w", err)
	}
	log.Info().Uint64("generation", s.engine.Generation()).Msg("Engine state saved")
	return nil
}

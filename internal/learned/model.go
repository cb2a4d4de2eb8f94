package learned

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// Trainer fits and decodes one kind of Backend
type Trainer interface {
	Name() string
	Fit(X []FeatureVector, y []int) (Backend, error)
	Decode(data []byte) (Backend, error)
}

// State is the lifecycle of a Model
type State int

const (
	Untrained State = iota
	Trained
)

func (s State) String() string {
	if s == Trained {
		return "trained"
	}
	return "untrained"
}

type snapshot struct {
	backend   Backend
	state     State
	trainedAt time.Time
	samples   int
}

// Info describes the published snapshot
type Info struct {
	Name      string    `json:"name"`
	Backend   string    `json:"backend"`
	State     string    `json:"state"`
	TrainedAt time.Time `json:"trained_at,omitempty"`
	Samples   int       `json:"samples"`
}

// Model is a handle on a learned classifier. Readers use the published
// snapshot without locking; Train and Load are serialized and swap the
// snapshot in one step.
type Model struct {
	trainer Trainer

	mu   sync.Mutex
	snap atomic.Pointer[snapshot]
}

// NewModel returns an untrained model that predicts with the heuristic
func NewModel(trainer Trainer) *Model {
	m := &Model{trainer: trainer}
	m.snap.Store(&snapshot{backend: HeuristicBackend{}, state: Untrained})
	return m
}

// Name returns the trainer name
func (m *Model) Name() string {
	return m.trainer.Name()
}

// State returns the current lifecycle state
func (m *Model) State() State {
	return m.snap.Load().state
}

// Backend returns the published backend, the heuristic when untrained
func (m *Model) Backend() Backend {
	return m.snap.Load().backend
}

// Snapshot returns the published backend and its state from one load, so
// the pair always belongs together
func (m *Model) Snapshot() (Backend, State) {
	s := m.snap.Load()
	return s.backend, s.state
}

// Info returns a description of the published snapshot
func (m *Model) Info() Info {
	s := m.snap.Load()
	return Info{
		Name:      m.Name(),
		Backend:   s.backend.Name(),
		State:     s.state.String(),
		TrainedAt: s.trainedAt,
		Samples:   s.samples,
	}
}

// Predict returns the class distribution from the published backend
func (m *Model) Predict(x FeatureVector) Prediction {
	return m.snap.Load().backend.Predict(x)
}

// FeatureImportance returns the published backend's importances
func (m *Model) FeatureImportance() map[string]float64 {
	return m.snap.Load().backend.FeatureImportance()
}

// Train fits a new backend and publishes it. On failure the previous
// snapshot stays in place and the error is returned.
func (m *Model) Train(X []FeatureVector, y []int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now()
	backend, err := m.trainer.Fit(X, y)
	if err != nil {
		log.Warn().Err(err).Str("model", m.Name()).Str("state", m.State().String()).
			Msg("Training failed, keeping previous snapshot")
		return fmt.Errorf("failed to train %s: %w", m.Name(), err)
	}

	m.snap.Store(&snapshot{
		backend:   backend,
		state:     Trained,
		trainedAt: time.Now().UTC(),
		samples:   len(X),
	})

	log.Debug().Str("model", m.Name()).Int("samples", len(X)).
		Dur("duration", time.Since(start)).Msg("Model trained")
	return nil
}

type blob struct {
	Trainer   string          `json:"trainer"`
	State     string          `json:"state"`
	TrainedAt time.Time       `json:"trained_at"`
	Samples   int             `json:"samples"`
	Model     json.RawMessage `json:"model,omitempty"`
}

// Save serializes the published snapshot
func (m *Model) Save() ([]byte, error) {
	s := m.snap.Load()
	b := blob{
		Trainer:   m.Name(),
		State:     s.state.String(),
		TrainedAt: s.trainedAt,
		Samples:   s.samples,
	}
	if s.state == Trained {
		raw, err := json.Marshal(s.backend)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", m.Name(), err)
		}
		b.Model = raw
	}
	return json.Marshal(b)
}

// Load replaces the snapshot with a previously saved one
func (m *Model) Load(data []byte) error {
	var b blob
	if err := json.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("failed to decode model blob: %w", err)
	}
	if b.Trainer != m.Name() {
		return fmt.Errorf("model blob is for %q, not %q", b.Trainer, m.Name())
	}

	next := &snapshot{backend: HeuristicBackend{}, state: Untrained}
	if b.State == Trained.String() {
		backend, err := m.trainer.Decode(b.Model)
		if err != nil {
			return err
		}
		next = &snapshot{backend: backend, state: Trained, trainedAt: b.TrainedAt, samples: b.Samples}
	}

	m.mu.Lock()
	m.snap.Store(next)
	m.mu.Unlock()
	return nil
}

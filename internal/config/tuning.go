package config

import (
	"fmt"
	"os"

	"matchcast/engine/internal/calibration"
	"matchcast/engine/internal/ensemble"
	"matchcast/engine/internal/goals"
	"matchcast/engine/internal/learned"
	"matchcast/engine/internal/markets"
	"matchcast/engine/internal/rating"

	"gopkg.in/yaml.v3"
)

// Tuning gathers every named model constant. The ensemble weights and the
// ELO draw curve are heuristics and are expected to be refit against
// settled results.
type Tuning struct {
	Poisson          goals.Params              `yaml:"poisson"`
	DixonColes       goals.DixonColesParams    `yaml:"dixon_coles"`
	Elo              rating.AdvancedParams     `yaml:"elo"`
	SurfaceElo       rating.SurfaceParams      `yaml:"surface_elo"`
	GradientBoosting learned.GBTParams         `yaml:"gradient_boosting"`
	RandomForest     learned.RFParams          `yaml:"random_forest"`
	Ensemble         ensemble.Params           `yaml:"ensemble"`
	Football         ensemble.FootballParams   `yaml:"football"`
	Basketball       ensemble.BasketballParams `yaml:"basketball"`
	Tennis           ensemble.TennisParams     `yaml:"tennis"`
	Markets          markets.Options           `yaml:"markets"`
	Calibration      calibration.Params        `yaml:"calibration"`
}

// DefaultTuning returns the built-in constants
func DefaultTuning() *Tuning {
	return &Tuning{
		Poisson:          goals.DefaultParams(),
		DixonColes:       goals.DefaultDixonColesParams(),
		Elo:              rating.DefaultAdvancedParams(),
		SurfaceElo:       rating.DefaultSurfaceParams(),
		GradientBoosting: learned.DefaultGBTParams(),
		RandomForest:     learned.DefaultRFParams(),
		Ensemble:         ensemble.DefaultParams(),
		Football:         ensemble.DefaultFootballParams(),
		Basketball:       ensemble.DefaultBasketballParams(),
		Tennis:           ensemble.DefaultTennisParams(),
		Markets:          markets.DefaultOptions(),
		Calibration:      calibration.DefaultParams(),
	}
}

// LoadTuning reads a YAML tuning file over the defaults. Keys missing from
// the file keep their default values. An empty path returns the defaults.
func LoadTuning(path string) (*Tuning, error) {
	t := DefaultTuning()
	if path == "" {
		return t, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tuning file: %w", err)
	}
	if err := yaml.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("failed to parse tuning file %s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tuning file %s: %w", path, err)
	}
	return t, nil
}

// Validate checks every section
func (t *Tuning) Validate() error {
	sections := []struct {
		name     string
		validate func() error
	}{
		{"poisson", t.Poisson.Validate},
		{"dixon_coles", t.DixonColes.Validate},
		{"elo", t.Elo.Validate},
		{"surface_elo", t.SurfaceElo.Validate},
		{"gradient_boosting", t.GradientBoosting.Validate},
		{"random_forest", t.RandomForest.Validate},
		{"ensemble", t.Ensemble.Validate},
		{"football", t.Football.Validate},
		{"basketball", t.Basketball.Validate},
		{"tennis", t.Tennis.Validate},
		{"markets", t.Markets.Validate},
		{"calibration", t.Calibration.Validate},
	}
	for _, s := range sections {
		if err := s.validate(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}

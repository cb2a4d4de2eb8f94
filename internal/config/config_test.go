package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("DATABASE_PASSWORD", "secret")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("CALIBRATION_METHOD", "platt")
	t.Setenv("APP_ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost:6380", cfg.RedisAddr())
	assert.Equal(t, "platt", cfg.CalibrationMethod)
	assert.Equal(t, 90*24*time.Hour, cfg.CalibrationWindow)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL())
	assert.True(t, cfg.IsDevelopment())
	assert.Contains(t, cfg.DatabaseDSN(), "dbname=matchcast")
}

func TestLoad_RequiresPassword(t *testing.T) {
	t.Setenv("DATABASE_PASSWORD", "")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Config{
		DatabasePassword:  "secret",
		CalibrationMethod: "isotonic",
		WorkerPort:        9090,
		CalibrationWindow: time.Hour,
		TrainingWindow:    time.Hour,
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown calibration", func(c *Config) { c.CalibrationMethod = "beta" }},
		{"port out of range", func(c *Config) { c.WorkerPort = 70000 }},
		{"zero window", func(c *Config) { c.TrainingWindow = 0 }},
		{"feed without lookback", func(c *Config) { c.ResultsFeedURL = "http://feed" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestDefaultTuning(t *testing.T) {
	require.NoError(t, DefaultTuning().Validate())

	tn, err := LoadTuning("")
	require.NoError(t, err)
	assert.Equal(t, DefaultTuning(), tn)
}

func TestLoadTuning_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	data := `
football:
  weights:
    poisson: 0.4
    elo: 0.2
    gradient_boosting: 0.2
    random_forest: 0.2
  goal_model: dixon_coles
elo:
  elo:
    draw_floor: 0.1
markets:
  lines: [2.5]
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	tn, err := LoadTuning(path)
	require.NoError(t, err)
	assert.Equal(t, 0.4, tn.Football.Weights.Poisson)
	assert.Equal(t, "dixon_coles", tn.Football.GoalModel)
	assert.Equal(t, 0.4, tn.Football.XGBlend, "unset keys keep defaults")
	assert.Equal(t, 0.1, tn.Elo.Elo.DrawFloor)
	assert.Equal(t, 20.0, tn.Elo.Elo.K)
	assert.Equal(t, []float64{2.5}, tn.Markets.Lines)
}

func TestLoadTuning_Rejects(t *testing.T) {
	dir := t.TempDir()

	badWeights := filepath.Join(dir, "weights.yaml")
	require.NoError(t, os.WriteFile(badWeights, []byte("football:\n  weights:\n    poisson: 0.9\n"), 0o600))
	_, err := LoadTuning(badWeights)
	assert.ErrorContains(t, err, "football")

	badYAML := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(badYAML, []byte("football: [\n"), 0o600))
	_, err = LoadTuning(badYAML)
	assert.Error(t, err)

	_, err = LoadTuning(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

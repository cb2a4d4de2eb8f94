package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	// Database
	DatabaseHost     string `envconfig:"DATABASE_HOST" default:"localhost"`
	DatabasePort     int    `envconfig:"DATABASE_PORT" default:"5432"`
	DatabaseName     string `envconfig:"DATABASE_NAME" default:"matchcast"`
	DatabaseUser     string `envconfig:"DATABASE_USER" default:"matchcast"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD" required:"true"`
	DatabaseSSLMode  string `envconfig:"DATABASE_SSL_MODE" default:"disable"`
	DatabaseMaxConns int32  `envconfig:"DATABASE_MAX_CONNS" default:"25"`
	DatabaseMinConns int32  `envconfig:"DATABASE_MIN_CONNS" default:"2"`

	// Redis
	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Application
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Worker HTTP (health and metrics)
	WorkerPort      int           `envconfig:"WORKER_PORT" default:"9090"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`

	// Model tuning file (YAML); defaults are used when empty
	TuningPath   string `envconfig:"TUNING_PATH" default:""`
	ModelVersion string `envconfig:"MODEL_VERSION" default:"v1"`

	// Results feed; ingestion is disabled when the URL is empty
	ResultsFeedURL     string        `envconfig:"RESULTS_FEED_URL" default:""`
	ResultsFeedAPIKey  string        `envconfig:"RESULTS_FEED_API_KEY" default:""`
	ResultsFeedTimeout time.Duration `envconfig:"RESULTS_FEED_TIMEOUT" default:"30s"`
	IngestLookback     time.Duration `envconfig:"INGEST_LOOKBACK" default:"72h"`

	// Scheduler
	EnableScheduler    bool   `envconfig:"ENABLE_SCHEDULER" default:"true"`
	IngestCron         string `envconfig:"INGEST_CRON" default:"*/10 * * * *"`
	SettlementCron     string `envconfig:"SETTLEMENT_CRON" default:"*/15 * * * *"`
	CalibrationCron    string `envconfig:"CALIBRATION_CRON" default:"0 3 * * *"`
	RetrainCron        string `envconfig:"RETRAIN_CRON" default:"0 4 * * 0"`
	InitialLoadEnabled bool   `envconfig:"INITIAL_LOAD_ENABLED" default:"true"`

	// Historical results (JSON array) imported by the initial load
	ResultsSeedPath string `envconfig:"RESULTS_SEED_PATH" default:""`

	// Calibration
	CalibrationMethod string        `envconfig:"CALIBRATION_METHOD" default:"isotonic"`
	CalibrationWindow time.Duration `envconfig:"CALIBRATION_WINDOW" default:"2160h"` // 90 days

	// Training
	TrainingWindow time.Duration `envconfig:"TRAINING_WINDOW" default:"8760h"` // 1 year

	// Caching TTL (in seconds)
	EnableCache         bool `envconfig:"ENABLE_CACHE" default:"true"`
	CacheTTLPredictions int  `envconfig:"CACHE_TTL_PREDICTIONS" default:"600"` // 10 minutes
}

// Load loads configuration from environment variables
// It first attempts to load from .env file if in development mode
func Load() (*Config, error) {
	// Try to load .env file (ignore error if doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.DatabasePassword == "" {
		return fmt.Errorf("DATABASE_PASSWORD is required")
	}

	switch c.CalibrationMethod {
	case "none", "platt", "isotonic":
	default:
		return fmt.Errorf("CALIBRATION_METHOD must be none, platt or isotonic, got %q", c.CalibrationMethod)
	}

	if c.WorkerPort <= 0 || c.WorkerPort > 65535 {
		return fmt.Errorf("WORKER_PORT %d is out of range", c.WorkerPort)
	}

	if c.CalibrationWindow <= 0 || c.TrainingWindow <= 0 {
		return fmt.Errorf("CALIBRATION_WINDOW and TRAINING_WINDOW must be positive")
	}

	if c.ResultsFeedURL != "" && c.IngestLookback <= 0 {
		return fmt.Errorf("INGEST_LOOKBACK must be positive when RESULTS_FEED_URL is set")
	}

	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DatabaseHost,
		c.DatabasePort,
		c.DatabaseUser,
		c.DatabasePassword,
		c.DatabaseName,
		c.DatabaseSSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// CacheTTL returns the prediction cache lifetime
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLPredictions) * time.Second
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// MustLoad loads configuration or panics on error
// Use this in main() where we want to fail fast
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

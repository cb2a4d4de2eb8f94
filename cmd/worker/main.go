package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"matchcast/engine/internal/api"
	"matchcast/engine/internal/cache"
	"matchcast/engine/internal/client"
	"matchcast/engine/internal/config"
	"matchcast/engine/internal/engine"
	"matchcast/engine/internal/metrics"
	"matchcast/engine/internal/repository"
	"matchcast/engine/internal/scheduler"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Setup logger
	setupLogger()

	log.Info().Msg("Starting matchcast forecasting worker")

	// Load configuration
	cfg := config.MustLoad()
	log.Info().
		Str("env", cfg.AppEnv).
		Str("log_level", cfg.LogLevel).
		Str("model_version", cfg.ModelVersion).
		Msg("Configuration loaded")

	// Create context that listens for cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Received shutdown signal, gracefully shutting down...")
		cancel()
	}()

	tuning, err := config.LoadTuning(cfg.TuningPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load model tuning")
	}

	// Initialize database connection
	dbConfig := repository.Config{
		Host:     cfg.DatabaseHost,
		Port:     strconv.Itoa(cfg.DatabasePort),
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		Database: cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
		MaxConns: cfg.DatabaseMaxConns,
		MinConns: cfg.DatabaseMinConns,
	}

	db, err := repository.NewDatabase(ctx, dbConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("Database connection established")

	if err := db.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	// Restore the latest trained models and calibrations
	eng, err := engine.New(tuning, cfg.ModelVersion)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create engine")
	}
	if err := eng.LoadState(ctx, db.Models); err != nil {
		log.Error().Err(err).Msg("Failed to restore engine state, starting untrained")
	}

	// Initialize Redis client
	var predictionCache api.Cache
	var redisCache *cache.RedisCache
	if cfg.EnableCache {
		redisCache, err = cache.NewRedisCache(cache.Config{
			Host:     cfg.RedisHost,
			Port:     strconv.Itoa(cfg.RedisPort),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to connect to Redis - continuing without cache")
			redisCache = nil
		} else {
			defer redisCache.Close()
			predictionCache = redisCache
			log.Info().Msg("Redis cache connected")
		}
	}

	handler := api.NewHandler(eng, db.Predictions, db.Matches, predictionCache, cfg.CacheTTL())
	handler.AddHealthCheck("database", db.Health)
	if redisCache != nil {
		handler.AddHealthCheck("redis", redisCache.Health)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WorkerPort),
		Handler:           api.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Int("port", cfg.WorkerPort).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server failed")
			cancel()
		}
	}()

	// Update system uptime and pool metrics
	startTime := time.Now()
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.SystemUptime.Set(time.Since(startTime).Seconds())
				stat := db.Pool.Stat()
				metrics.UpdateDBConnectionStats(stat.AcquiredConns(), stat.IdleConns())
			case <-ctx.Done():
				return
			}
		}
	}()

	// Create and start scheduler
	stores := scheduler.Stores{
		Matches: db.Matches,
		Ratings: db.Ratings,
		Samples: db.Predictions,
		Blobs:   db.Models,
	}
	if cfg.ResultsFeedURL != "" {
		stores.Feed = client.NewClient(cfg.ResultsFeedURL, cfg.ResultsFeedAPIKey, cfg.ResultsFeedTimeout)
		log.Info().Str("url", cfg.ResultsFeedURL).Msg("Results feed client initialized")
	}
	sched := scheduler.NewScheduler(cfg, eng, stores)

	if cfg.EnableScheduler {
		log.Info().Msg("Starting scheduler...")
		if err := sched.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to start scheduler")
		}
	}

	// Import historical results and settle the backlog
	if cfg.InitialLoadEnabled {
		log.Info().Msg("Running initial load...")
		if cfg.ResultsSeedPath != "" {
			if _, err := importResults(ctx, cfg.ResultsSeedPath, db.Matches); err != nil {
				log.Error().Err(err).Msg("Historical import failed, continuing anyway...")
			}
		}
		if err := sched.RunInitial(ctx); err != nil {
			log.Error().Err(err).Msg("Initial settlement failed, continuing anyway...")
		} else {
			log.Info().Msg("Initial load completed successfully")
		}
	}

	// Keep running until context is cancelled
	<-ctx.Done()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	log.Info().Msg("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	if cfg.EnableScheduler {
		log.Info().Msg("Shutting down scheduler...")
		sched.Stop()
	}

	log.Info().Msg("Worker shutdown complete")
}

// setupLogger configures the zerolog logger
func setupLogger() {
	// Pretty console logging in development
	if os.Getenv("APP_ENV") == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	// Set log level
	level := zerolog.InfoLevel
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		parsedLevel, err := zerolog.ParseLevel(lvl)
		if err == nil {
			level = parsedLevel
		}
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("level", level.String()).
		Msg("Logger initialized")
}

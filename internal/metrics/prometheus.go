package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the forecasting engine

var (
	// Prediction metrics
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchcast_predictions_total",
			Help: "Total number of predictions served",
		},
		[]string{"sport", "status"},
	)

	PredictionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "matchcast_prediction_duration_seconds",
			Help:    "Duration of a prediction in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		},
		[]string{"sport"},
	)

	PredictionConfidence = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "matchcast_prediction_confidence",
			Help:    "Confidence of served predictions",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 9),
		},
		[]string{"sport"},
	)

	// Fallback metrics
	ModelFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchcast_model_fallbacks_total",
			Help: "Predictions served by the heuristic because a learned model was untrained",
		},
		[]string{"model"},
	)

	CalibrationPassthroughTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matchcast_calibration_passthrough_total",
			Help: "Predictions returned uncalibrated because no calibration was fitted",
		},
	)

	// Training and fitting metrics
	TrainingRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchcast_training_runs_total",
			Help: "Total number of learned model training runs",
		},
		[]string{"model", "status"},
	)

	TrainingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "matchcast_training_duration_seconds",
			Help:    "Duration of model training in seconds",
			Buckets: []float64{.1, .5, 1, 5, 10, 30, 60, 300},
		},
		[]string{"model"},
	)

	CalibrationFitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchcast_calibration_fits_total",
			Help: "Total number of calibration fits",
		},
		[]string{"method", "status"},
	)

	CalibrationBrier = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "matchcast_calibration_brier_score",
			Help: "Brier score of the published calibration on its fitting data",
		},
	)

	CalibrationECE = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "matchcast_calibration_ece",
			Help: "Expected calibration error of the published calibration",
		},
	)

	// Rating metrics
	RatingUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchcast_rating_updates_total",
			Help: "Total number of settled matches applied to ratings",
		},
		[]string{"sport"},
	)

	// Database metrics
	DBQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchcast_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "table", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "matchcast_db_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "matchcast_db_connections_active",
			Help: "Number of active database connections",
		},
	)

	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "matchcast_db_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	// Cache metrics
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matchcast_cache_hits_total",
			Help: "Total number of prediction cache hits",
		},
	)

	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matchcast_cache_misses_total",
			Help: "Total number of prediction cache misses",
		},
	)

	CacheOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "matchcast_cache_operation_duration_seconds",
			Help:    "Duration of cache operations in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	// Results feed metrics
	FeedRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchcast_feed_requests_total",
			Help: "Total number of results feed requests",
		},
		[]string{"status"},
	)

	FeedRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matchcast_feed_request_duration_seconds",
			Help:    "Duration of results feed requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Job metrics
	JobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchcast_job_runs_total",
			Help: "Total number of scheduled job runs",
		},
		[]string{"job", "status"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "matchcast_job_duration_seconds",
			Help:    "Duration of scheduled jobs in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"job"},
	)

	LastSuccessfulJob = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "matchcast_last_successful_job_timestamp",
			Help: "Timestamp of the last successful run of each job",
		},
		[]string{"job"},
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matchcast_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// System metrics
	SystemUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "matchcast_system_uptime_seconds",
			Help: "Worker uptime in seconds",
		},
	)
)

// RecordPrediction records a served prediction
func RecordPrediction(sport, status string, duration, confidence float64) {
	PredictionsTotal.WithLabelValues(sport, status).Inc()
	PredictionDuration.WithLabelValues(sport).Observe(duration)
	if status == "success" {
		PredictionConfidence.WithLabelValues(sport).Observe(confidence)
	}
}

// RecordModelFallback records a heuristic fallback
func RecordModelFallback(model string) {
	ModelFallbacksTotal.WithLabelValues(model).Inc()
}

// RecordCalibrationPassthrough records an uncalibrated prediction
func RecordCalibrationPassthrough() {
	CalibrationPassthroughTotal.Inc()
}

// RecordTraining records a training run
func RecordTraining(model, status string, duration float64) {
	TrainingRunsTotal.WithLabelValues(model, status).Inc()
	TrainingDuration.WithLabelValues(model).Observe(duration)
}

// RecordCalibrationFit records a calibration fit and its quality
func RecordCalibrationFit(method, status string, brier, ece float64) {
	CalibrationFitsTotal.WithLabelValues(method, status).Inc()
	if status == "success" {
		CalibrationBrier.Set(brier)
		CalibrationECE.Set(ece)
	}
}

// RecordRatingUpdate records a settled match
func RecordRatingUpdate(sport string) {
	RatingUpdatesTotal.WithLabelValues(sport).Inc()
}

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table, status string, duration float64) {
	DBQueriesTotal.WithLabelValues(operation, table, status).Inc()
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration)
}

// RecordCacheHit records a cache hit
func RecordCacheHit() {
	CacheHitsTotal.Inc()
}

// RecordCacheMiss records a cache miss
func RecordCacheMiss() {
	CacheMissesTotal.Inc()
}

// RecordCacheOperation records a cache operation duration
func RecordCacheOperation(operation string, duration float64) {
	CacheOperationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordFeedRequest records a results feed request attempt
func RecordFeedRequest(status string, duration float64) {
	FeedRequestsTotal.WithLabelValues(status).Inc()
	FeedRequestDuration.Observe(duration)
}

// RecordJob records a scheduled job run
func RecordJob(job, status string, duration float64) {
	JobRunsTotal.WithLabelValues(job, status).Inc()
	JobDuration.WithLabelValues(job).Observe(duration)

	if status == "success" {
		LastSuccessfulJob.WithLabelValues(job).SetToCurrentTime()
	}
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// UpdateDBConnectionStats updates database connection pool statistics
func UpdateDBConnectionStats(active, idle int32) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}

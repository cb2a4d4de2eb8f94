// Package api exposes the engine over HTTP for the worker.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"matchcast/engine/internal/cache"
	"matchcast/engine/internal/engine"
	"matchcast/engine/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// PredictionStore persists served predictions
type PredictionStore interface {
	Create(ctx context.Context, rec *models.PredictionRecord) error
	GetLatestByMatchID(ctx context.Context, matchID string) (*models.PredictionRecord, error)
}

// ResultStore records completed matches for settlement
type ResultStore interface {
	Upsert(ctx context.Context, m *models.MatchResult) error
}

// Cache stores JSON responses by key
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// Handler contains dependencies for HTTP handlers
type Handler struct {
	engine      *engine.Engine
	predictions PredictionStore
	results     ResultStore
	cache       Cache
	cacheTTL    time.Duration
	checks      map[string]func(context.Context) error
}

// NewHandler creates a handler. c may be nil to disable caching.
func NewHandler(eng *engine.Engine, predictions PredictionStore, results ResultStore, c Cache, cacheTTL time.Duration) *Handler {
	return &Handler{
		engine:      eng,
		predictions: predictions,
		results:     results,
		cache:       c,
		cacheTTL:    cacheTTL,
		checks:      map[string]func(context.Context) error{},
	}
}

// AddHealthCheck registers a dependency checked by /healthz
func (h *Handler) AddHealthCheck(name string, check func(context.Context) error) {
	h.checks[name] = check
}

// HealthCheck reports the status of every registered dependency
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "unhealthy"
	}
	respondJSON(w, status, map[string]interface{}{
		"status":       state,
		"dependencies": deps,
		"timestamp":    time.Now().UTC(),
	})
}

// PredictFootball serves a football prediction with markets
func (h *Handler) PredictFootball(w http.ResponseWriter, r *http.Request) {
	var req engine.FootballRequest
	if !decode(w, r, &req) {
		return
	}
	key, hit := h.cached(r.Context(), models.SportFootball, &req, &engine.FootballResponse{})
	if hit != nil {
		respondJSON(w, http.StatusOK, hit)
		return
	}

	resp, err := h.engine.PredictFootball(&req)
	if err != nil {
		respondPredictionError(w, err)
		return
	}

	if req.MatchID != "" {
		rec := models.NewPredictionRecord(req.MatchID, h.engine.Version(), resp.Prediction)
		rec.Features = mustJSON(resp.Features[:])
		if len(resp.Explanations) > 0 {
			rec.Explanation = mustJSON(resp.Explanations)
		}
		if err := h.predictions.Create(r.Context(), rec); err != nil {
			respondError(w, http.StatusInternalServerError, "failed to store prediction", err)
			return
		}
	}

	h.store(r.Context(), key, resp)
	respondJSON(w, http.StatusOK, resp)
}

// PredictBasketball serves a basketball prediction with totals and spreads
func (h *Handler) PredictBasketball(w http.ResponseWriter, r *http.Request) {
	var req engine.BasketballRequest
	if !decode(w, r, &req) {
		return
	}
	key, hit := h.cached(r.Context(), models.SportBasketball, &req, &engine.BasketballResponse{})
	if hit != nil {
		respondJSON(w, http.StatusOK, hit)
		return
	}

	resp, err := h.engine.PredictBasketball(&req)
	if err != nil {
		respondPredictionError(w, err)
		return
	}

	if req.MatchID != "" {
		rec := models.NewPredictionRecord(req.MatchID, h.engine.Version(), resp.Prediction)
		if err := h.predictions.Create(r.Context(), rec); err != nil {
			respondError(w, http.StatusInternalServerError, "failed to store prediction", err)
			return
		}
	}

	h.store(r.Context(), key, resp)
	respondJSON(w, http.StatusOK, resp)
}

// PredictTennis serves a tennis prediction. Tennis predictions are not stored.
func (h *Handler) PredictTennis(w http.ResponseWriter, r *http.Request) {
	var req engine.TennisRequest
	if !decode(w, r, &req) {
		return
	}
	key, hit := h.cached(r.Context(), models.SportTennis, &req, &models.TennisPrediction{})
	if hit != nil {
		respondJSON(w, http.StatusOK, hit)
		return
	}

	resp, err := h.engine.PredictTennis(&req)
	if err != nil {
		respondPredictionError(w, err)
		return
	}

	h.store(r.Context(), key, resp)
	respondJSON(w, http.StatusOK, resp)
}

// GetPrediction returns the latest stored prediction of a match
func (h *Handler) GetPrediction(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")
	if matchID == "" {
		respondError(w, http.StatusBadRequest, "match_id is required", nil)
		return
	}

	rec, err := h.predictions.GetLatestByMatchID(r.Context(), matchID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to retrieve prediction", err)
		return
	}
	if rec == nil {
		respondError(w, http.StatusNotFound, "prediction not found", nil)
		return
	}

	respondJSON(w, http.StatusOK, newPredictionView(rec))
}

// RecordResult stores a completed match for the settlement job
func (h *Handler) RecordResult(w http.ResponseWriter, r *http.Request) {
	var m models.MatchResult
	if !decode(w, r, &m) {
		return
	}
	switch m.Sport {
	case models.SportFootball, models.SportBasketball:
	case models.SportTennis:
		if !m.Surface.Valid() {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown surface %q", m.Surface), nil)
			return
		}
	default:
		respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown sport %q", m.Sport), nil)
		return
	}
	if m.PlayedAt.IsZero() {
		m.PlayedAt = time.Now().UTC()
	}

	if err := h.results.Upsert(r.Context(), &m); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to store result", err)
		return
	}
	respondJSON(w, http.StatusAccepted, m)
}

// GetModels describes the learned models and calibrations in use
func (h *Handler) GetModels(w http.ResponseWriter, r *http.Request) {
	calibrations := map[models.Sport]interface{}{}
	for _, sport := range []models.Sport{models.SportFootball, models.SportBasketball} {
		if report, ok := h.engine.Calibration(sport); ok {
			calibrations[sport] = report
		}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"version":      h.engine.Version(),
		"generation":   h.engine.Generation(),
		"models":       h.engine.Models(),
		"calibrations": calibrations,
	})
}

// cached looks the request up and returns its key and, on a hit, the
// decoded response
func (h *Handler) cached(ctx context.Context, sport models.Sport, req, dest any) (string, any) {
	if h.cache == nil {
		return "", nil
	}
	key, err := cache.PredictionKey(sport, h.engine.Generation(), req)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to derive cache key")
		return "", nil
	}
	found, err := h.cache.Get(ctx, key, dest)
	if err != nil {
		log.Warn().Err(err).Msg("Cache read failed, computing prediction")
		return key, nil
	}
	if !found {
		return key, nil
	}
	return key, dest
}

func (h *Handler) store(ctx context.Context, key string, value any) {
	if h.cache == nil || key == "" {
		return
	}
	if err := h.cache.Set(ctx, key, value, h.cacheTTL); err != nil {
		log.Warn().Err(err).Msg("Cache write failed")
	}
}

// predictionView is the stored prediction as returned to clients
type predictionView struct {
	ID                 string          `json:"id"`
	MatchID            string          `json:"match_id"`
	Sport              models.Sport    `json:"sport"`
	ModelVersion       string          `json:"model_version,omitempty"`
	HomeProb           float64         `json:"home_prob"`
	DrawProb           *float64        `json:"draw_prob,omitempty"`
	AwayProb           float64         `json:"away_prob"`
	RecommendedOutcome string          `json:"recommended_outcome"`
	Confidence         float64         `json:"confidence"`
	CalibrationMethod  string          `json:"calibration_method"`
	Contributions      json.RawMessage `json:"contributions,omitempty"`
	Explanation        json.RawMessage `json:"explanation,omitempty"`
	PredictedAt        time.Time       `json:"predicted_at"`
}

func newPredictionView(rec *models.PredictionRecord) predictionView {
	v := predictionView{
		ID:                 rec.ID.String(),
		MatchID:            rec.MatchID,
		Sport:              rec.Sport,
		ModelVersion:       rec.ModelVersion.String,
		HomeProb:           rec.HomeProb,
		AwayProb:           rec.AwayProb,
		RecommendedOutcome: rec.RecommendedOutcome,
		Confidence:         rec.Confidence,
		CalibrationMethod:  rec.CalibrationMethod,
		Contributions:      rec.Contributions,
		Explanation:        rec.Explanation,
		PredictedAt:        rec.PredictedAt,
	}
	if rec.DrawProb.Valid {
		d := rec.DrawProb.Float64
		v.DrawProb = &d
	}
	return v
}

func decode(w http.ResponseWriter, r *http.Request, dest any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return false
	}
	return true
}

func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode stored document")
		return nil
	}
	return data
}

func respondPredictionError(w http.ResponseWriter, err error) {
	var inv *models.InvalidInputError
	switch {
	case errors.As(err, &inv):
		respondError(w, http.StatusBadRequest, inv.Error(), nil)
	case errors.Is(err, models.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, err.Error(), nil)
	default:
		respondError(w, http.StatusInternalServerError, "prediction failed", err)
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Error encoding response")
	}
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	if err != nil {
		log.Error().Err(err).Int("status", status).Msg(message)
	}
	respondJSON(w, status, errorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"matchcast/engine/internal/engine"
	"matchcast/engine/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	eng, err := engine.New(nil, "cli")
	require.NoError(t, err)
	return eng
}

func TestRun_Football(t *testing.T) {
	in := strings.NewReader(`{"sport": "football", "request": {"inputs": {
		"home_attack": 1.9, "home_defense": 1.1, "away_attack": 1.3, "away_defense": 1.5,
		"home_elo": 1620, "away_elo": 1540}}}`)
	var out bytes.Buffer

	require.NoError(t, run(newEngine(t), in, &out, true))

	var resp engine.FootballResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, models.OutcomeHome, resp.Prediction.RecommendedOutcome)
	assert.Len(t, resp.Explanations, 2, "-explain applies to the request")
}

func TestRun_Tennis(t *testing.T) {
	in := strings.NewReader(`{"sport": "tennis", "request": {"inputs": {
		"player1_elo": 1700, "player2_elo": 1900, "player1_ranking": 40, "player2_ranking": 3, "surface": "clay"}}}`)
	var out bytes.Buffer

	require.NoError(t, run(newEngine(t), in, &out, false))

	var resp models.TennisPrediction
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, 2, resp.PredictedWinner)
}

func TestRun_Errors(t *testing.T) {
	eng := newEngine(t)
	cases := map[string]string{
		"not json":      `{`,
		"no request":    `{"sport": "football"}`,
		"unknown sport": `{"sport": "cricket", "request": {}}`,
		"unknown field": `{"sport": "basketball", "request": {"inputs": {}, "spread": 3}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, run(eng, strings.NewReader(body), &bytes.Buffer{}, false))
		})
	}

	bad := `{"sport": "football", "request": {"inputs": {"home_attack": -1, "home_defense": 1, "away_attack": 1, "away_defense": 1, "home_elo": 1500, "away_elo": 1500}}}`
	err := run(eng, strings.NewReader(bad), &bytes.Buffer{}, false)
	assert.True(t, errors.Is(err, models.ErrInvalidInput))
}

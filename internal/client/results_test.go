package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"matchcast/engine/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *Client {
	c := NewClient(url, "secret", 2*time.Second)
	c.retryDelay = time.Millisecond
	return c
}

func TestFetchResults(t *testing.T) {
	since := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/results", r.URL.Path)
		assert.Equal(t, "2026-04-01T00:00:00Z", r.URL.Query().Get("since"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Write([]byte(`[
			{"match_id": "m-1", "sport": "football", "home_id": "a", "away_id": "b", "home_score": 3, "away_score": 1, "played_at": "2026-04-02T15:00:00Z"},
			{"match_id": "m-2", "sport": "tennis", "home_id": "p", "away_id": "q", "home_score": 0, "away_score": 2, "surface": "grass", "played_at": "2026-04-03T12:00:00Z"}
		]`))
	}))
	defer srv.Close()

	results, err := newTestClient(srv.URL).FetchResults(context.Background(), since)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, models.OutcomeHome, results[0].Outcome())
	assert.Equal(t, models.SurfaceGrass, results[1].Surface)
}

func TestFetchResults_RetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	results, err := newTestClient(srv.URL).FetchResults(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchResults_GivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchResults(context.Background(), time.Now())
	assert.Error(t, err)
	assert.Equal(t, int32(4), calls.Load(), "one attempt plus three retries")
}

func TestFetchResults_NoRetry(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusNotFound} {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(status)
		}))

		_, err := newTestClient(srv.URL).FetchResults(context.Background(), time.Now())
		assert.Error(t, err)
		assert.Equal(t, int32(1), calls.Load(), "status %d", status)
		srv.Close()
	}
}

func TestFetchResults_BadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not": "a list"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchResults(context.Background(), time.Now())
	assert.Error(t, err)
}

func TestFetchResults_Cancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestClient(srv.URL).FetchResults(ctx, time.Now())
	assert.ErrorIs(t, err, context.Canceled)
}

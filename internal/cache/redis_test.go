package cache

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"matchcast/engine/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredictionKey(t *testing.T) {
	in := models.FootballInputs{HomeAttack: 1.8, HomeDefense: 1.1, AwayAttack: 1.2, AwayDefense: 1.4, HomeElo: 1600, AwayElo: 1500}

	k1, err := PredictionKey(models.SportFootball, 3, in)
	require.NoError(t, err)
	k2, err := PredictionKey(models.SportFootball, 3, in)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
	assert.True(t, strings.HasPrefix(k1, "prediction:football:g3:"))
	assert.Len(t, strings.TrimPrefix(k1, "prediction:football:g3:"), 64)

	next, err := PredictionKey(models.SportFootball, 4, in)
	require.NoError(t, err)
	assert.NotEqual(t, k1, next, "a new generation invalidates the key")

	in.HomeElo++
	changed, err := PredictionKey(models.SportFootball, 3, in)
	require.NoError(t, err)
	assert.NotEqual(t, k1, changed)

	_, err = PredictionKey(models.SportFootball, 3, make(chan int))
	assert.Error(t, err)
}

func setupTestCache(t *testing.T) (*RedisCache, context.Context) {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, client.Ping(ctx).Err())

	c := NewFromClient(client)
	t.Cleanup(func() { c.Close() })
	return c, ctx
}

func TestRedisCache_GetSet(t *testing.T) {
	c, ctx := setupTestCache(t)
	key := "prediction:test:" + uuid.NewString()

	var got models.TennisPrediction
	found, err := c.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.False(t, found)

	want := models.TennisPrediction{Player1Prob: 0.64, Player2Prob: 0.36, PredictedWinner: 1, Confidence: 0.28, Surface: models.SurfaceHard}
	require.NoError(t, c.Set(ctx, key, want, time.Minute))

	found, err = c.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, want, got)
	assert.NoError(t, c.Health(ctx))
}

func TestRedisCache_Expiry(t *testing.T) {
	c, ctx := setupTestCache(t)
	key := "prediction:test:" + uuid.NewString()

	require.NoError(t, c.Set(ctx, key, map[string]int{"a": 1}, 50*time.Millisecond))
	time.Sleep(150 * time.Millisecond)

	var got map[string]int
	found, err := c.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.False(t, found)
}

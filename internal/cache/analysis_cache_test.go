package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/equilens-ai-go/internal/models"
)

// setupTestRedis creates a test Redis instance using miniredis
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	s, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})

	t.Cleanup(func() {
		_ = client.Close()
		s.Close()
	})

	return client, s
}

func TestKeyBuilders(t *testing.T) {
	assert.Equal(t, "analysis:forecast:AAPL", AnalysisKey("aapl", models.AnalysisForecast))
	assert.Equal(t, "analysis:full:MSFT", AnalysisKey("MSFT", models.AnalysisFull))
	assert.Equal(t, "analysis:scenario:AAPL:recession", ScenarioKey("aapl", models.AnalysisScenario, models.ScenarioRecession))
	assert.Equal(t, "signals:NVDA", SignalsKey("nvda"))

	// A full analysis with a scenario attached must not collide with the
	// scenario-type key for the same ticker and scenario.
	assert.NotEqual(t,
		ScenarioKey("AAPL", models.AnalysisScenario, models.ScenarioRecession),
		ScenarioKey("AAPL", models.AnalysisFull, models.ScenarioRecession))

	prefixes := TickerPrefix("aapl")
	assert.Contains(t, prefixes, "analysis:full:AAPL")
	assert.Contains(t, prefixes, "analysis:scenario:AAPL")
	assert.Contains(t, prefixes, "signals:AAPL")
}

func TestRedisAnalysisCache_SetGet(t *testing.T) {
	client, _ := setupTestRedis(t)
	cache := NewRedisAnalysisCache(client)
	ctx := context.Background()

	key := AnalysisKey("AAPL", models.AnalysisFull)
	require.NoError(t, cache.Set(ctx, key, []byte(`{"ticker":"AAPL"}`), time.Minute))

	value, found, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"ticker":"AAPL"}`, string(value))

	stats := cache.GetStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(0), stats.Misses)
	assert.Equal(t, int64(1), stats.Sets)
}

func TestRedisAnalysisCache_Miss(t *testing.T) {
	client, _ := setupTestRedis(t)
	cache := NewRedisAnalysisCache(client)

	value, found, err := cache.Get(context.Background(), "analysis:full:UNKNOWN")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, value)

	stats := cache.GetStats()
	assert.Equal(t, int64(1), stats.Misses)
}

func TestRedisAnalysisCache_TTLExpiry(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewRedisAnalysisCache(client)
	ctx := context.Background()

	key := AnalysisKey("AAPL", models.AnalysisForecast)
	require.NoError(t, cache.Set(ctx, key, []byte(`{}`), 300*time.Second))

	mr.FastForward(301 * time.Second)

	_, found, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisAnalysisCache_DeletePrefix(t *testing.T) {
	client, _ := setupTestRedis(t)
	cache := NewRedisAnalysisCache(client)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, AnalysisKey("AAPL", models.AnalysisFull), []byte(`{}`), time.Minute))
	require.NoError(t, cache.Set(ctx, AnalysisKey("AAPL", models.AnalysisRisk), []byte(`{}`), time.Minute))
	require.NoError(t, cache.Set(ctx, AnalysisKey("MSFT", models.AnalysisFull), []byte(`{}`), time.Minute))

	removed, err := cache.DeletePrefix(ctx, "analysis:full:AAPL")
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, found, err := cache.Get(ctx, AnalysisKey("AAPL", models.AnalysisFull))
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = cache.Get(ctx, AnalysisKey("MSFT", models.AnalysisFull))
	require.NoError(t, err)
	assert.True(t, found)
}

func TestRedisAnalysisCache_Clear(t *testing.T) {
	client, _ := setupTestRedis(t)
	cache := NewRedisAnalysisCache(client)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, AnalysisKey("AAPL", models.AnalysisFull), []byte(`{}`), time.Minute))
	require.NoError(t, cache.Set(ctx, ScenarioKey("AAPL", models.AnalysisScenario, models.ScenarioRecession), []byte(`{}`), time.Minute))

	require.NoError(t, cache.Clear(ctx))

	_, found, err := cache.Get(ctx, AnalysisKey("AAPL", models.AnalysisFull))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisAnalysisCache_RedisDown(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewRedisAnalysisCache(client)
	mr.Close()

	_, _, err := cache.Get(context.Background(), "analysis:full:AAPL")
	assert.Error(t, err)

	err = cache.Set(context.Background(), "analysis:full:AAPL", []byte(`{}`), time.Minute)
	assert.Error(t, err)
}

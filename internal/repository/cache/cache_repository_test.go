package cache_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/permit-map/internal/repository/cache"
)

func getTestRedisClient(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   1, // Use DB 1 for tests
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for integration tests: %v", err)
	}
	return client
}

func TestCacheRepository_SetGetDelete(t *testing.T) {
	client := getTestRedisClient(t)
	defer client.Close()

	repo := cache.NewCacheRepositoryFromClient(client, zap.NewNop())
	ctx := context.Background()
	key := "test:permits:regions"
	defer client.Del(ctx, key)

	val, err := repo.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, val, "miss is not an error")

	require.NoError(t, repo.Set(ctx, key, []byte(`{"type":"FeatureCollection"}`), time.Minute))

	val, err = repo.Get(ctx, key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"FeatureCollection"}`, string(val))

	ok, err := repo.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, repo.Delete(ctx, key))
	ok, err = repo.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheRepository_DeletePrefix(t *testing.T) {
	client := getTestRedisClient(t)
	defer client.Close()

	repo := cache.NewCacheRepositoryFromClient(client, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 450; i++ {
		require.NoError(t, repo.Set(ctx, fmt.Sprintf("test:permits:search:%d", i), []byte("[]"), time.Minute))
	}
	require.NoError(t, repo.Set(ctx, "test:other", []byte("1"), time.Minute))
	defer client.Del(ctx, "test:other")

	n, err := repo.DeletePrefix(ctx, "test:permits:")
	require.NoError(t, err)
	assert.Equal(t, 450, n)

	ok, err := repo.Exists(ctx, "test:other")
	require.NoError(t, err)
	assert.True(t, ok)
}

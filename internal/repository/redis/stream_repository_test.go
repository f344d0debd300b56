package redis_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/permit-map/internal/domain"
	redisRepo "github.com/permit-map/internal/repository/redis"
)

const (
	testImportStream = "test:stream:permit:import"
	testDoneStream   = "test:stream:permit:import:done"
)

// getTestRedisClient creates a Redis client for testing
func getTestRedisClient(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     "localhost:6379",
		Password: "",
		DB:       1, // Use DB 1 for tests
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for integration tests: %v", err)
	}

	client.Del(ctx, testImportStream, testDoneStream)
	return client
}

func TestStreamRepository_CreateConsumerGroup(t *testing.T) {
	client := getTestRedisClient(t)
	defer client.Close()

	repo := redisRepo.NewStreamRepository(client, zap.NewNop())
	ctx := context.Background()
	defer client.Del(ctx, testImportStream)

	require.NoError(t, repo.CreateConsumerGroup(ctx, testImportStream, "test-group"))

	groups, err := client.XInfoGroups(ctx, testImportStream).Result()
	require.NoError(t, err)
	assert.Len(t, groups, 1)
	assert.Equal(t, "test-group", groups[0].Name)

	// Creating again should not error (BUSYGROUP handled)
	assert.NoError(t, repo.CreateConsumerGroup(ctx, testImportStream, "test-group"))
}

func TestStreamRepository_PublishToStream(t *testing.T) {
	client := getTestRedisClient(t)
	defer client.Close()

	repo := redisRepo.NewStreamRepository(client, zap.NewNop())
	ctx := context.Background()
	defer client.Del(ctx, testDoneStream)

	jobID := uuid.New()
	event := &domain.PermitImportDoneEvent{
		JobID:  jobID,
		Result: &domain.ImportResult{Township: "cary", Total: 12, Imported: 9, Touched: 2, Skipped: 1},
	}
	require.NoError(t, repo.PublishToStream(ctx, testDoneStream, event))

	messages, err := client.XRead(ctx, &redis.XReadArgs{
		Streams: []string{testDoneStream, "0"},
		Count:   1,
	}).Result()
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Len(t, messages[0].Messages, 1)

	dataStr, ok := messages[0].Messages[0].Values["data"].(string)
	require.True(t, ok)

	var received domain.PermitImportDoneEvent
	require.NoError(t, json.Unmarshal([]byte(dataStr), &received))
	assert.Equal(t, jobID, received.JobID)
	require.NotNil(t, received.Result)
	assert.Equal(t, 9, received.Result.Imported)
}

func TestStreamRepository_ConsumeBatchAndAck(t *testing.T) {
	client := getTestRedisClient(t)
	defer client.Close()

	repo := redisRepo.NewStreamRepository(client, zap.NewNop())
	ctx := context.Background()
	defer client.Del(ctx, testImportStream)

	require.NoError(t, repo.CreateConsumerGroup(ctx, testImportStream, "test-batch-group"))

	// Empty stream: no error, no messages
	msgs, err := repo.ConsumeBatch(ctx, testImportStream, "test-batch-group", "c1", 10, 50*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	for _, town := range []string{"cary", "apex"} {
		require.NoError(t, repo.PublishToStream(ctx, testImportStream, &domain.PermitImportEvent{
			JobID:    uuid.New(),
			Township: town,
			Path:     "/data/" + town + ".geojson",
		}))
	}
	// Message without data field is acked and dropped
	require.NoError(t, client.XAdd(ctx, &redis.XAddArgs{
		Stream: testImportStream,
		Values: map[string]interface{}{"other": "x"},
	}).Err())

	msgs, err = repo.ConsumeBatch(ctx, testImportStream, "test-batch-group", "c1", 10, time.Second)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	var event domain.PermitImportEvent
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Data), &event))
	assert.Equal(t, "cary", event.Township)

	pending, err := client.XPending(ctx, testImportStream, "test-batch-group").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(2), pending.Count)

	for _, m := range msgs {
		require.NoError(t, repo.AckMessage(ctx, testImportStream, "test-batch-group", m.ID))
	}
	pending, err = client.XPending(ctx, testImportStream, "test-batch-group").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending.Count)
}

// failingAckHook роняет XACK, остальные команды проходят.
type failingAckHook struct{}

func (failingAckHook) DialHook(next redis.DialHook) redis.DialHook { return next }

func (failingAckHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if cmd.Name() == "xack" {
			err := errors.New("xack refused")
			cmd.SetErr(err)
			return err
		}
		return next(ctx, cmd)
	}
}

func (failingAckHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestStreamRepository_ConsumeBatchLogsFailedAckOfMessageWithoutData(t *testing.T) {
	client := getTestRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	defer client.Del(ctx, testImportStream)

	core, logs := observer.New(zapcore.WarnLevel)
	repo := redisRepo.NewStreamRepository(client, zap.New(core))
	require.NoError(t, repo.CreateConsumerGroup(ctx, testImportStream, "test-noack-group"))

	id, err := client.XAdd(ctx, &redis.XAddArgs{
		Stream: testImportStream,
		Values: map[string]interface{}{"other": "x"},
	}).Result()
	require.NoError(t, err)

	client.AddHook(failingAckHook{})

	msgs, err := repo.ConsumeBatch(ctx, testImportStream, "test-noack-group", "c1", 10, time.Second)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	entries := logs.FilterMessage("Failed to ack message without data").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, id, fields["message_id"])
	assert.Contains(t, fields["error"], "xack refused")

	pending, err := client.XPending(ctx, testImportStream, "test-noack-group").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending.Count)
}

func TestStreamRepository_ConsumeStream(t *testing.T) {
	client := getTestRedisClient(t)
	defer client.Close()

	repo := redisRepo.NewStreamRepository(client, zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	defer client.Del(context.Background(), testImportStream)

	require.NoError(t, repo.CreateConsumerGroup(ctx, testImportStream, "test-consumer-group"))

	jobID := uuid.New()
	require.NoError(t, repo.PublishToStream(ctx, testImportStream, &domain.PermitImportEvent{
		JobID:    jobID,
		Township: "morrisville",
		Truncate: true,
	}))

	msgChan, err := repo.ConsumeStream(ctx, testImportStream, "test-consumer-group", "test-consumer")
	require.NoError(t, err)

	select {
	case msg := <-msgChan:
		assert.NotEmpty(t, msg.ID)
		var received domain.PermitImportEvent
		require.NoError(t, json.Unmarshal([]byte(msg.Data), &received))
		assert.Equal(t, jobID, received.JobID)
		assert.True(t, received.Truncate)
	case <-time.After(3 * time.Second):
		t.Fatal("Timeout waiting for message")
	}
}

func TestStreamRepository_ConsumeStream_ContextCancellation(t *testing.T) {
	client := getTestRedisClient(t)
	defer client.Close()

	repo := redisRepo.NewStreamRepository(client, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer client.Del(context.Background(), testImportStream)

	require.NoError(t, repo.CreateConsumerGroup(ctx, testImportStream, "test-cancel-group"))

	msgChan, err := repo.ConsumeStream(ctx, testImportStream, "test-cancel-group", "test-consumer")
	require.NoError(t, err)

	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	select {
	case _, ok := <-msgChan:
		assert.False(t, ok, "Channel should be closed")
	case <-time.After(3 * time.Second):
		t.Fatal("Timeout waiting for channel to close")
	}
}

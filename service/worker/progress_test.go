package worker

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"dataset-ingestion-service/service/models"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopProgressReporter(t *testing.T) {
	assert.NotPanics(t, func() {
		NoopProgressReporter{}.Report(context.Background(), models.ProgressEvent{DatasetID: "ds"})
	})
}

func TestCompositeProgressReporter(t *testing.T) {
	a := &captureReporter{}
	b := &captureReporter{}
	composite := NewCompositeProgressReporter(a, b)

	composite.Report(context.Background(), models.ProgressEvent{DatasetID: "ds", Progress: 42})

	require.Len(t, a.all(), 1)
	require.Len(t, b.all(), 1)
	assert.Equal(t, 42, a.all()[0].Progress)
}

func TestPublisherProgressReporter(t *testing.T) {
	var gotChannel string
	var gotPayload []byte
	reporter := NewPublisherProgressReporter("test", func(_ context.Context, channel string, payload []byte) error {
		gotChannel = channel
		gotPayload = payload
		return nil
	})

	reporter.Report(context.Background(), models.ProgressEvent{
		DatasetID: "ds-1", Status: models.DatasetStatusProcessing, Progress: 50,
	})

	assert.Equal(t, "ws:dataset:ds-1", gotChannel)

	var event models.ProgressEvent
	require.NoError(t, json.Unmarshal(gotPayload, &event))
	assert.Equal(t, "dataset_update", event.Type, "缺省事件类型自动补齐")
	assert.Equal(t, 50, event.Progress)
}

func TestPublisherProgressReporter_PublishError(t *testing.T) {
	reporter := NewPublisherProgressReporter("broken", func(context.Context, string, []byte) error {
		return errors.New("sink down")
	})

	// 发布失败不应panic，尽力而为
	assert.NotPanics(t, func() {
		reporter.Report(context.Background(), models.ProgressEvent{DatasetID: "ds"})
	})
}

func setupProgressRedis(t *testing.T) *RedisProgressReporter {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis不可用，跳过进度上报测试: %v", err)
	}
	client.FlushDB(context.Background())
	t.Cleanup(func() { client.Close() })

	return NewRedisProgressReporter(client)
}

func TestRedisProgressReporter_Snapshot(t *testing.T) {
	reporter := setupProgressRedis(t)
	ctx := context.Background()

	reporter.Report(ctx, models.ProgressEvent{
		DatasetID: "snap-ds", Status: models.DatasetStatusProcessing,
		Progress: 60, Message: "写入记录",
	})

	snapshot, err := reporter.Snapshot(ctx, "snap-ds")
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, 60, snapshot.Progress)
	assert.Equal(t, "写入记录", snapshot.Message)

	missing, err := reporter.Snapshot(ctx, "never-reported")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

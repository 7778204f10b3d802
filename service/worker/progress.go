/*
 * @module service/worker/progress
 * @description 进度上报器，向 ws:dataset:{id} 频道发布数据集处理进度，并缓存进度快照
 * @architecture 事件驱动架构 - 发布订阅模式
 * @documentReference ai_docs/ingestion_requirements.md
 * @stateFlow 工作器各检查点调用 Report -> 发布进度事件 -> 前端通过 websocket/SSE 消费
 * @rules 进度通知尽力而为，发布失败只记日志不影响摄取流程
 * @dependencies github.com/go-redis/redis/v8, encoding/json
 * @refs client/connectors, service/models/transform_models.go
 */

package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"dataset-ingestion-service/service/models"

	"github.com/go-redis/redis/v8"
)

// 进度快照的缓存时长
const progressSnapshotTTL = time.Hour

// ProgressReporter 进度上报接口
// 实现必须是尽力而为的，不允许让上报失败阻断摄取流程
type ProgressReporter interface {
	Report(ctx context.Context, event models.ProgressEvent)
}

// NoopProgressReporter 空实现，测试和禁用通知时使用
type NoopProgressReporter struct{}

// Report 实现 ProgressReporter 接口
func (NoopProgressReporter) Report(context.Context, models.ProgressEvent) {}

// RedisProgressReporter 基于 Redis 发布订阅的进度上报器
// 发布到 ws:dataset:{id} 频道，同时用 SETEX 缓存最新快照供查询接口读取
type RedisProgressReporter struct {
	client *redis.Client
}

// NewRedisProgressReporter 创建 Redis 进度上报器
func NewRedisProgressReporter(client *redis.Client) *RedisProgressReporter {
	return &RedisProgressReporter{client: client}
}

// Report 发布进度事件，失败只记日志
func (r *RedisProgressReporter) Report(ctx context.Context, event models.ProgressEvent) {
	if event.Type == "" {
		event.Type = "dataset_update"
	}

	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("进度事件序列化失败", "dataset_id", event.DatasetID, "error", err)
		return
	}

	channel := progressChannel(event.DatasetID)
	if err := r.client.Publish(ctx, channel, payload).Err(); err != nil {
		slog.Warn("进度事件发布失败", "channel", channel, "error", err)
	}

	snapshotKey := progressSnapshotKey(event.DatasetID)
	if err := r.client.Set(ctx, snapshotKey, payload, progressSnapshotTTL).Err(); err != nil {
		slog.Warn("进度快照缓存失败", "key", snapshotKey, "error", err)
	}
}

// Snapshot 读取最新进度快照，不存在时返回 nil
func (r *RedisProgressReporter) Snapshot(ctx context.Context, datasetID string) (*models.ProgressEvent, error) {
	raw, err := r.client.Get(ctx, progressSnapshotKey(datasetID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取进度快照失败: %w", err)
	}
	var event models.ProgressEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, fmt.Errorf("进度快照反序列化失败: %w", err)
	}
	return &event, nil
}

func progressChannel(datasetID string) string {
	return fmt.Sprintf("ws:dataset:%s", datasetID)
}

func progressSnapshotKey(datasetID string) string {
	return fmt.Sprintf("dataset:progress:%s", datasetID)
}

// PublisherFunc 通用事件发布函数，适配 kafka/mqtt 等其他通道
type PublisherFunc func(ctx context.Context, channel string, payload []byte) error

// PublisherProgressReporter 将进度事件转发到任意发布通道
type PublisherProgressReporter struct {
	name    string
	publish PublisherFunc
}

// NewPublisherProgressReporter 用发布函数构造上报器
func NewPublisherProgressReporter(name string, publish PublisherFunc) *PublisherProgressReporter {
	return &PublisherProgressReporter{name: name, publish: publish}
}

// Report 实现 ProgressReporter 接口
func (p *PublisherProgressReporter) Report(ctx context.Context, event models.ProgressEvent) {
	if event.Type == "" {
		event.Type = "dataset_update"
	}
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("进度事件序列化失败", "sink", p.name, "error", err)
		return
	}
	if err := p.publish(ctx, progressChannel(event.DatasetID), payload); err != nil {
		slog.Warn("进度事件转发失败", "sink", p.name, "error", err)
	}
}

// CompositeProgressReporter 扇出到多个上报器
type CompositeProgressReporter struct {
	reporters []ProgressReporter
}

// NewCompositeProgressReporter 组合多个上报器
func NewCompositeProgressReporter(reporters ...ProgressReporter) *CompositeProgressReporter {
	return &CompositeProgressReporter{reporters: reporters}
}

// Report 依次调用每个上报器
func (c *CompositeProgressReporter) Report(ctx context.Context, event models.ProgressEvent) {
	for _, r := range c.reporters {
		r.Report(ctx, event)
	}
}

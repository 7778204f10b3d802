/*
 * @module KafkaConnector
 * @description Kafka连接器，将数据集生命周期事件发布到Kafka主题
 * @architecture 适配器模式 - 封装第三方Kafka客户端，提供统一的接口
 * @documentReference ai_docs/ingestion_requirements.md
 * @stateFlow 连接建立 -> 事件发布 -> 连接断开
 * @rules 事件键为进度频道名，同一数据集的事件落在同一分区保持有序
 * @dependencies github.com/segmentio/kafka-go
 * @refs service/worker/progress.go, service/models/connector_models.go
 */
package connectors

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"dataset-ingestion-service/service/models"

	"github.com/segmentio/kafka-go"
)

// KafkaConnector Kafka事件发布器
type KafkaConnector struct {
	config *models.KafkaConfig
	writer *kafka.Writer
	mutex  sync.Mutex
	closed bool
}

// NewKafkaConnector 创建Kafka发布器
func NewKafkaConnector(config *models.KafkaConfig) *KafkaConnector {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Topic:        config.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequiredAcks(config.RequiredAcks),
		Async:        config.Async,
	}
	if config.BatchSize > 0 {
		writer.BatchSize = config.BatchSize
	}
	if config.BatchTimeout > 0 {
		writer.BatchTimeout = config.BatchTimeout
	}
	return &KafkaConnector{config: config, writer: writer}
}

// Publish 发布事件，channel 作为消息键保证分区有序
func (kc *KafkaConnector) Publish(ctx context.Context, channel string, payload []byte) error {
	kc.mutex.Lock()
	defer kc.mutex.Unlock()
	if kc.closed {
		return fmt.Errorf("Kafka发布器已关闭")
	}

	err := kc.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(channel),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("Kafka消息发送失败: %w", err)
	}
	return nil
}

// Close 关闭发布器
func (kc *KafkaConnector) Close() error {
	kc.mutex.Lock()
	defer kc.mutex.Unlock()
	if kc.closed {
		return nil
	}
	kc.closed = true
	slog.Info("Kafka发布器关闭", "topic", kc.config.Topic)
	return kc.writer.Close()
}

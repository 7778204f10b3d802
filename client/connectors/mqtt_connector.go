/*
 * @module MQTTConnector
 * @description MQTT连接器，将数据集进度事件发布到MQTT主题，供物联网侧订阅
 * @architecture 适配器模式 - 封装第三方MQTT客户端，提供统一的接口
 * @documentReference ai_docs/ingestion_requirements.md
 * @stateFlow 连接建立 -> 主题发布 -> 连接断开
 * @rules 支持自动重连；发布超时按配置截断
 * @dependencies github.com/eclipse/paho.mqtt.golang
 * @refs service/worker/progress.go, service/models/connector_models.go
 */
package connectors

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"dataset-ingestion-service/service/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTConnector MQTT事件发布器
type MQTTConnector struct {
	config *models.MQTTConfig
	client mqtt.Client
}

// NewMQTTConnector 创建MQTT发布器并建立连接
func NewMQTTConnector(config *models.MQTTConfig) (*MQTTConnector, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	opts.SetAutoReconnect(true)
	if config.Username != "" {
		opts.SetUsername(config.Username)
		opts.SetPassword(config.Password)
	}
	if config.KeepAlive > 0 {
		opts.SetKeepAlive(config.KeepAlive)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("MQTT连接超时: %s", config.Broker)
	}
	if token.Error() != nil {
		return nil, fmt.Errorf("MQTT连接失败: %w", token.Error())
	}

	slog.Info("MQTT连接成功", "broker", config.Broker, "client_id", config.ClientID)
	return &MQTTConnector{config: config, client: client}, nil
}

// Publish 发布事件，频道名中的冒号转为MQTT主题分隔符
func (mc *MQTTConnector) Publish(ctx context.Context, channel string, payload []byte) error {
	topic := strings.ReplaceAll(channel, ":", "/")
	token := mc.client.Publish(topic, mc.config.QoS, mc.config.Retained, payload)

	timeout := mc.config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("MQTT发布超时: %s", topic)
	}
	if token.Error() != nil {
		return fmt.Errorf("MQTT发布失败: %w", token.Error())
	}
	return nil
}

// Close 断开连接
func (mc *MQTTConnector) Close() error {
	mc.client.Disconnect(250)
	return nil
}

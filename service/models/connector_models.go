/*
 * @module service/models/connector_models
 * @description 通知连接器相关模型定义，包含Kafka、MQTT、Redis发布端的配置结构
 * @architecture 分层架构 - 数据模型层
 * @documentReference ai_docs/ingestion_requirements.md
 * @stateFlow 模型定义 -> 连接器配置 -> 事件发布
 * @rules 连接器只承担进度/生命周期事件的发布，消费端在前端网关
 * @dependencies time
 * @refs client/connectors
 */

package models

import (
	"time"
)

// KafkaConfig Kafka发布端配置
type KafkaConfig struct {
	Brokers      []string      `json:"brokers"`       // broker地址列表
	Topic        string        `json:"topic"`         // 事件主题
	BatchSize    int           `json:"batch_size"`    // 批量发送大小
	BatchTimeout time.Duration `json:"batch_timeout"` // 批量发送超时
	RequiredAcks int           `json:"required_acks"` // 确认级别
	Async        bool          `json:"async"`         // 是否异步发送
}

// MQTTConfig MQTT发布端配置
type MQTTConfig struct {
	Broker    string        `json:"broker"`     // broker地址 tcp://host:port
	ClientID  string        `json:"client_id"`  // 客户端标识
	Username  string        `json:"username"`   // 用户名
	Password  string        `json:"password"`   // 密码
	QoS       byte          `json:"qos"`        // 服务质量等级
	Retained  bool          `json:"retained"`   // 是否保留消息
	KeepAlive time.Duration `json:"keep_alive"` // 心跳间隔
	Timeout   time.Duration `json:"timeout"`    // 操作超时
}

// RedisConfig Redis连接配置
type RedisConfig struct {
	Address      string        `json:"address"`        // 地址 host:port
	Password     string        `json:"password"`       // 密码
	Database     int           `json:"database"`       // 数据库编号
	PoolSize     int           `json:"pool_size"`      // 连接池大小
	DialTimeout  time.Duration `json:"dial_timeout"`   // 连接超时
	ReadTimeout  time.Duration `json:"read_timeout"`   // 读取超时
	WriteTimeout time.Duration `json:"write_timeout"`  // 写入超时
	MinIdleConns int           `json:"min_idle_conns"` // 最小空闲连接数
}

/*
 * @module service/models/event
 * @description 事件相关模型，SSE事件与连接记录
 * @architecture 事件驱动架构 - 数据模型层
 * @documentReference ai_docs/ingestion_requirements.md
 * @stateFlow 数据集状态变更 -> pg_notify -> 事件服务分发 -> SSE客户端
 * @rules 事件持久化后分发，连接断开时标记失活
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/event/event_service.go
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SSEEvent SSE事件模型
type SSEEvent struct {
	ID        string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	EventType string     `gorm:"not null" json:"event_type"` // dataset_update, system_notification
	UserName  string     `gorm:"not null;index" json:"user_name"`
	Data      JSONB      `gorm:"type:jsonb;not null" json:"data"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	Sent      bool       `gorm:"not null;default:false" json:"sent"`
	SentAt    *time.Time `json:"sent_at"`
}

// BeforeCreate 创建前钩子
func (s *SSEEvent) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

// SSEConnection SSE连接记录
type SSEConnection struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserName     string    `gorm:"not null;index" json:"user_name"`
	ConnectionID string    `gorm:"not null;uniqueIndex" json:"connection_id"`
	ClientIP     string    `json:"client_ip"`
	ConnectedAt  time.Time `json:"connected_at"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
}

// BeforeCreate 创建前钩子
func (c *SSEConnection) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

/*
 * @module service/models/api_key
 * @description API密钥模型，密钥以 bcrypt 哈希存储
 * @architecture 分层架构 - 数据模型层
 * @documentReference ai_docs/ingestion_requirements.md
 * @stateFlow 签发时生成随机密钥并哈希入库，请求时按前缀查找并比对哈希
 * @rules 明文密钥只在签发时返回一次
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs api/middleware/api_key_auth.go
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ApiKey API密钥
type ApiKey struct {
	ID         string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name       string     `gorm:"not null;size:255" json:"name"`
	Prefix     string     `gorm:"not null;size:12;index" json:"prefix"` // 密钥前缀，用于快速查找
	KeyHash    string     `gorm:"not null;size:100" json:"-"`           // bcrypt 哈希
	IsActive   bool       `gorm:"not null;default:true" json:"is_active"`
	ExpiresAt  *time.Time `json:"expires_at"`
	LastUsedAt *time.Time `json:"last_used_at"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// BeforeCreate 创建前钩子
func (k *ApiKey) BeforeCreate(tx *gorm.DB) error {
	if k.ID == "" {
		k.ID = uuid.New().String()
	}
	return nil
}

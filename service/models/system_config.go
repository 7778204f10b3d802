/*
 * @module service/models/system_config
 * @description 系统配置模型，存储运行期可调的配置项
 * @architecture 分层架构 - 数据模型层
 * @documentReference ai_docs/ingestion_requirements.md
 * @stateFlow 配置服务读写，环境变量可覆盖
 * @rules 配置键唯一
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/config/config_service.go
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 内置配置键
const (
	ConfigKeyBatchSize           = "ingestion.batch_size"            // 批量插入大小
	ConfigKeySampleSize          = "ingestion.sample_size"           // 类型推断采样行数
	ConfigKeyMaxFileSize         = "ingestion.max_file_size"         // 最大文件大小（字节）
	ConfigKeyTempRetentionHours  = "cleanup.temp_retention_hours"    // 临时文件保留时长
	ConfigKeyStaleTimeoutMinutes = "cleanup.stale_timeout_minutes"   // 处理中数据集超时时长
)

// SystemConfig 系统配置项
type SystemConfig struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Key         string    `gorm:"not null;uniqueIndex" json:"key"`
	Value       string    `gorm:"not null" json:"value"`
	Description string    `json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// BeforeCreate 创建前钩子
func (c *SystemConfig) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

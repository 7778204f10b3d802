/*
 * @module service/config/config_service
 * @description 配置服务，提供接入子系统运行期配置的读写和类型化访问
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/ingestion_requirements.md
 * @stateFlow 配置读取 -> 环境变量覆盖 -> 数据库 -> 内置默认值
 * @rules 环境变量优先级最高，数据库次之，内置默认值兜底
 * @dependencies dataset-ingestion-service/service/models, gorm.io/gorm, github.com/spf13/cast
 * @refs service/database/migrate.go, service/worker/ingestion_worker.go
 */

package config

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"dataset-ingestion-service/service/models"

	"github.com/spf13/cast"
	"gorm.io/gorm"
)

// 内置默认值，数据库和环境变量都未配置时生效
var configDefaults = map[string]string{
	models.ConfigKeyBatchSize:           "1000",
	models.ConfigKeySampleSize:          "1000",
	models.ConfigKeyMaxFileSize:         "524288000",
	models.ConfigKeyTempRetentionHours:  "24",
	models.ConfigKeyStaleTimeoutMinutes: "60",
}

// ConfigService 配置服务
type ConfigService struct {
	db    *gorm.DB
	cache map[string]string
	mutex sync.RWMutex
}

// NewConfigService 创建配置服务实例
func NewConfigService(db *gorm.DB) *ConfigService {
	return &ConfigService{
		db:    db,
		cache: make(map[string]string),
	}
}

// GetConfig 获取配置值，优先级：环境变量 > 数据库 > 内置默认值
func (s *ConfigService) GetConfig(key string) (string, error) {
	if value, ok := os.LookupEnv(envNameForKey(key)); ok {
		return value, nil
	}

	s.mutex.RLock()
	if value, ok := s.cache[key]; ok {
		s.mutex.RUnlock()
		return value, nil
	}
	s.mutex.RUnlock()

	var record models.SystemConfig
	err := s.db.Where("key = ?", key).First(&record).Error
	if err == nil {
		s.mutex.Lock()
		s.cache[key] = record.Value
		s.mutex.Unlock()
		return record.Value, nil
	}
	if err != gorm.ErrRecordNotFound {
		return "", fmt.Errorf("查询配置失败: %w", err)
	}

	if value, ok := configDefaults[key]; ok {
		return value, nil
	}
	return "", fmt.Errorf("配置项不存在: %s", key)
}

// SetConfig 设置配置值并刷新缓存
func (s *ConfigService) SetConfig(key, value, description string) error {
	var record models.SystemConfig
	err := s.db.Where("key = ?", key).First(&record).Error
	if err == gorm.ErrRecordNotFound {
		record = models.SystemConfig{Key: key, Value: value, Description: description}
		if err := s.db.Create(&record).Error; err != nil {
			return fmt.Errorf("创建配置失败: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("查询配置失败: %w", err)
	} else {
		record.Value = value
		if description != "" {
			record.Description = description
		}
		if err := s.db.Save(&record).Error; err != nil {
			return fmt.Errorf("更新配置失败: %w", err)
		}
	}

	s.mutex.Lock()
	s.cache[key] = value
	s.mutex.Unlock()
	return nil
}

// ListConfigs 列出所有配置项，数据库未覆盖的键补充内置默认值
func (s *ConfigService) ListConfigs() ([]models.SystemConfig, error) {
	var configs []models.SystemConfig
	if err := s.db.Order("key").Find(&configs).Error; err != nil {
		return nil, fmt.Errorf("查询配置失败: %w", err)
	}

	existing := make(map[string]bool, len(configs))
	for _, c := range configs {
		existing[c.Key] = true
	}
	for key, value := range configDefaults {
		if !existing[key] {
			configs = append(configs, models.SystemConfig{Key: key, Value: value})
		}
	}
	return configs, nil
}

// GetBatchSize 获取批量插入大小
func (s *ConfigService) GetBatchSize() int {
	return s.intConfig(models.ConfigKeyBatchSize, 1000)
}

// GetSampleSize 获取类型推断采样行数
func (s *ConfigService) GetSampleSize() int {
	return s.intConfig(models.ConfigKeySampleSize, 1000)
}

// GetMaxFileSize 获取最大文件大小（字节）
func (s *ConfigService) GetMaxFileSize() int64 {
	value, err := s.GetConfig(models.ConfigKeyMaxFileSize)
	if err != nil {
		return 500 * 1024 * 1024
	}
	parsed := cast.ToInt64(value)
	if parsed <= 0 {
		return 500 * 1024 * 1024
	}
	return parsed
}

// GetTempRetentionHours 获取临时文件保留时长（小时）
func (s *ConfigService) GetTempRetentionHours() int {
	return s.intConfig(models.ConfigKeyTempRetentionHours, 24)
}

// GetStaleTimeoutMinutes 获取处理中数据集超时时长（分钟）
func (s *ConfigService) GetStaleTimeoutMinutes() int {
	return s.intConfig(models.ConfigKeyStaleTimeoutMinutes, 60)
}

func (s *ConfigService) intConfig(key string, fallback int) int {
	value, err := s.GetConfig(key)
	if err != nil {
		return fallback
	}
	parsed := cast.ToInt(value)
	if parsed <= 0 {
		return fallback
	}
	return parsed
}

// envNameForKey 配置键转环境变量名，如 ingestion.batch_size -> INGESTION_BATCH_SIZE
func envNameForKey(key string) string {
	name := strings.ReplaceAll(key, ".", "_")
	return strings.ToUpper(name)
}

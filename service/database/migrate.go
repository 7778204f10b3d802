/*
 * @module service/database/migrate
 * @description 数据库迁移模块，负责创建和更新数据库表结构
 * @architecture 数据访问层 - 迁移管理
 * @documentReference ai_docs/ingestion_requirements.md
 * @stateFlow 应用启动时执行数据库迁移
 * @rules 确保数据库结构与模型定义保持一致
 * @dependencies dataset-ingestion-service/service/models, gorm.io/gorm
 * @refs service/models/dataset.go
 */

package database

import (
	"dataset-ingestion-service/service/models"
	"log"

	"gorm.io/gorm"
)

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate(db *gorm.DB) error {
	log.Println("开始数据库迁移...")

	// 数据集核心表
	err := db.AutoMigrate(
		&models.Dataset{},
		&models.Record{},
	)
	if err != nil {
		return err
	}

	// 事件管理相关表
	err = db.AutoMigrate(
		&models.SSEEvent{},
		&models.SSEConnection{},
	)
	if err != nil {
		return err
	}

	// 系统配置与访问控制
	err = db.AutoMigrate(
		&models.SystemConfig{},
		&models.ApiKey{},
	)
	if err != nil {
		return err
	}

	log.Println("数据库迁移完成")
	return nil
}

// InitializeData 初始化基础数据
func InitializeData(db *gorm.DB) error {
	log.Println("开始初始化基础数据...")

	defaults := map[string]string{
		models.ConfigKeyBatchSize:           "1000",
		models.ConfigKeySampleSize:          "1000",
		models.ConfigKeyMaxFileSize:         "524288000",
		models.ConfigKeyTempRetentionHours:  "24",
		models.ConfigKeyStaleTimeoutMinutes: "60",
	}

	for key, value := range defaults {
		var existing models.SystemConfig
		err := db.Where("key = ?", key).First(&existing).Error
		if err == gorm.ErrRecordNotFound {
			if err := db.Create(&models.SystemConfig{Key: key, Value: value}).Error; err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
	}

	log.Println("基础数据初始化完成")
	return nil
}

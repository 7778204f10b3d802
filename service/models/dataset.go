/*
 * @module service/models/dataset
 * @description 数据集与记录持久化模型，跟踪上传文件的元信息、处理状态和表结构信息
 * @architecture 分层架构 - 数据模型层
 * @documentReference ai_docs/ingestion_requirements.md
 * @stateFlow uploading -> processing -> ready | failed，reprocess 时 ready|failed -> processing
 * @rules 数据集行是状态/错误/结构元数据的唯一变更点，记录行在单次流水线运行内只写一次
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/worker, service/database
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 数据集处理状态
const (
	DatasetStatusUploading  = "uploading"
	DatasetStatusProcessing = "processing"
	DatasetStatusReady      = "ready"
	DatasetStatusFailed     = "failed"
)

// Dataset 数据集模型，对应一次上传的表格文件
type Dataset struct {
	ID          string `json:"id" gorm:"type:varchar(36);primaryKey" example:"550e8400-e29b-41d4-a716-446655440000"`
	Name        string `json:"name" gorm:"not null;size:255;index" example:"销售明细2024"`
	Description string `json:"description" gorm:"type:text"`

	// 文件信息
	FileName string `json:"file_name" gorm:"not null;size:255" example:"sales.csv"`
	FileSize int64  `json:"file_size" gorm:"not null" example:"1048576"`
	FileHash string `json:"file_hash" gorm:"not null;size:64;index"` // SHA-256，用于去重和完整性校验
	FilePath string `json:"file_path" gorm:"not null;size:512"`      // 对象存储键或本地路径

	// 处理状态
	Status          string `json:"status" gorm:"not null;size:20;default:'uploading';index" example:"processing"`
	ProcessingError string `json:"processing_error,omitempty" gorm:"type:text"`

	// 表结构信息
	RowCount    *int  `json:"row_count,omitempty"`
	ColumnCount *int  `json:"column_count,omitempty"`
	SchemaInfo  JSONB `json:"schema_info,omitempty" gorm:"type:jsonb"`

	CreatedBy string    `json:"created_by" gorm:"type:varchar(36);index"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	Records []Record `json:"records,omitempty" gorm:"foreignKey:DatasetID;constraint:OnDelete:CASCADE"`
}

// BeforeCreate 自动生成UUID主键
func (d *Dataset) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return nil
}

// Record 记录模型，对应数据集的一行数据
// 数据以 JSONB 键值对存储，键与规范化后的列名一致
type Record struct {
	ID        string `json:"id" gorm:"type:varchar(36);primaryKey"`
	DatasetID string `json:"dataset_id" gorm:"type:varchar(36);not null;index:idx_records_dataset_row;index:idx_records_valid"`

	// 文件中的原始行号，从1开始，单次流水线运行内稳定
	RowNumber int `json:"row_number" gorm:"not null;index:idx_records_dataset_row"`

	Data             JSONB            `json:"data" gorm:"type:jsonb;not null"`
	IsValid          bool             `json:"is_valid" gorm:"not null;default:true;index:idx_records_valid"`
	ValidationErrors JSONBStringArray `json:"validation_errors,omitempty" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// BeforeCreate 自动生成UUID主键
func (r *Record) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

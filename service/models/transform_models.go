/*
 * @module service/models/transform_models
 * @description 数据变换相关模型，定义清洗报告、规范化参数、字段映射建议和流水线执行结果
 * @architecture 分层架构 - 数据模型层
 * @documentReference ai_docs/ingestion_requirements.md
 * @stateFlow 清洗/规范化操作产出报告 -> 流水线聚合 -> 写入数据集 schema_info
 * @rules 每个变换操作返回独立的 CleaningReport，流水线不合并报告内容
 * @dependencies 无外部依赖
 * @refs service/transformation
 */

package models

import "time"

// CleaningReport 单个清洗/变换操作的执行报告
type CleaningReport struct {
	Operation string                 `json:"operation" example:"remove_duplicates"`
	Summary   string                 `json:"summary"`
	Changes   map[string]interface{} `json:"changes,omitempty"`  // 操作相关的变更明细
	Warnings  []string               `json:"warnings,omitempty"` // 非致命问题
}

// ScaleParams 数值缩放的拟合参数，用于逆变换
type ScaleParams struct {
	Method string  `json:"method"` // minmax, standard, robust, maxabs
	Min    float64 `json:"min,omitempty"`
	Max    float64 `json:"max,omitempty"`
	Mean   float64 `json:"mean,omitempty"`
	Std    float64 `json:"std,omitempty"`
	Median float64 `json:"median,omitempty"`
	IQR    float64 `json:"iqr,omitempty"`
	MaxAbs float64 `json:"max_abs,omitempty"`
}

// EncodingMap 分类编码的映射关系，用于解码
type EncodingMap struct {
	Method  string         `json:"method"` // onehot, label, ordinal
	Column  string         `json:"column"`
	Mapping map[string]int `json:"mapping,omitempty"`     // label/ordinal: 取值 -> 编码
	NewColumns []string    `json:"new_columns,omitempty"` // onehot: 生成的列名
}

// MappingSuggestion 单个源列到目标列的映射建议
type MappingSuggestion struct {
	SourceColumn string  `json:"source_column"`
	TargetColumn string  `json:"target_column"`
	Confidence   float64 `json:"confidence"`
	MatchType    string  `json:"match_type"` // exact, fuzzy, synonym, affix
	AutoAccepted bool    `json:"auto_accepted"`
}

// MappingPlan 字段映射方案
type MappingPlan struct {
	Suggestions []MappingSuggestion `json:"suggestions"`
	Unmapped    []string            `json:"unmapped_source,omitempty"` // 未匹配的源列
	MissingTargets []string         `json:"missing_targets,omitempty"` // 没有来源的目标列
}

// StepResult 流水线单步执行结果
type StepResult struct {
	Name     string          `json:"name"`
	RowsIn   int             `json:"rows_in"`
	RowsOut  int             `json:"rows_out"`
	Duration time.Duration   `json:"duration_ms" swaggertype:"integer"`
	Report   *CleaningReport `json:"report,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// PipelineResult 流水线整体执行结果
type PipelineResult struct {
	Success  bool          `json:"success"`
	Steps    []StepResult  `json:"steps"`
	Duration time.Duration `json:"duration_ms" swaggertype:"integer"`
}

// TransformationReport 一次完整变换的汇总，写入 schema_info
type TransformationReport struct {
	CleaningReports   []CleaningReport  `json:"cleaning_reports"`
	NormalizedColumns map[string]string `json:"normalized_columns"` // 原列名 -> 规范化列名
	FinalRowCount     int               `json:"final_row_count"`
	FinalColumnCount  int               `json:"final_column_count"`
}

// IngestionResult 摄取流程的最终结果
type IngestionResult struct {
	DatasetID       string `json:"dataset_id"`
	Status          string `json:"status"`
	RowCount        int    `json:"row_count"`
	ColumnCount     int    `json:"column_count"`
	RecordsInserted int    `json:"records_inserted"`
	DurationMs      int64  `json:"duration_ms"`
}

// ProgressEvent 进度通知载荷，发布到 ws:dataset:{id} 频道
type ProgressEvent struct {
	Type      string                 `json:"type" example:"dataset_update"`
	DatasetID string                 `json:"dataset_id"`
	Status    string                 `json:"status"`
	Progress  int                    `json:"progress"` // 0-100
	Message   string                 `json:"message"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

/*
 * @module service/models/ingestion_models
 * @description 数据摄取相关模型，定义文件解析结果、列画像、类型推断和校验报告的结构
 * @architecture 分层架构 - 数据模型层
 * @documentReference ai_docs/ingestion_requirements.md
 * @stateFlow 解析 -> 类型推断 -> 校验，各阶段产出对应的结果模型
 * @rules 报告结构一旦写入 schema_info 即视为对外契约，字段名保持稳定
 * @dependencies 无外部依赖
 * @refs service/ingestion/parser.go, service/ingestion/type_inference.go, service/ingestion/validator.go
 */

package models

// ParseResult 文件解析结果
type ParseResult struct {
	Table     *Table `json:"-"`
	Format    string `json:"format" example:"csv"`     // csv, tsv, json, jsonl, xlsx, txt
	Encoding  string `json:"encoding" example:"utf-8"` // 检测到的字符编码
	Delimiter string `json:"delimiter,omitempty" example:","`
	HasHeader bool   `json:"has_header"`
	RowCount  int    `json:"row_count"`
	ColCount  int    `json:"column_count"`
	SheetName string `json:"sheet_name,omitempty"` // Excel 工作表名
	Warnings  []string `json:"warnings,omitempty"`
}

// ColumnStats 列描述性统计
// 按推断类型填充对应分组的字段，未填充的字段序列化时省略
type ColumnStats struct {
	// 数值统计
	Min    *float64 `json:"min,omitempty"`
	Max    *float64 `json:"max,omitempty"`
	Mean   *float64 `json:"mean,omitempty"`
	Median *float64 `json:"median,omitempty"`
	Std    *float64 `json:"std,omitempty"`
	Sum    *float64 `json:"sum,omitempty"`
	P25    *float64 `json:"p25,omitempty"`
	P75    *float64 `json:"p75,omitempty"`
	P90    *float64 `json:"p90,omitempty"`
	P95    *float64 `json:"p95,omitempty"`

	// 字符串统计
	MinLength *int             `json:"min_length,omitempty"`
	MaxLength *int             `json:"max_length,omitempty"`
	AvgLength *float64         `json:"avg_length,omitempty"`
	MostCommon []ValueCount    `json:"most_common,omitempty"` // 出现频率前10的取值
	CardinalityRatio *float64  `json:"cardinality_ratio,omitempty"`

	// 时间统计
	MinTime   string `json:"min_time,omitempty"`
	MaxTime   string `json:"max_time,omitempty"`
	RangeDays *int   `json:"range_days,omitempty"`

	// 布尔统计
	TrueCount  *int `json:"true_count,omitempty"`
	FalseCount *int `json:"false_count,omitempty"`
}

// ValueCount 取值及其出现次数
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// ColumnProfile 列画像，类型推断的输出
type ColumnProfile struct {
	Name         string        `json:"name"`
	InferredType string        `json:"inferred_type" example:"integer"` // boolean, datetime, date, integer, float, email, url, uuid, phone, string, null
	Confidence   float64       `json:"confidence" example:"0.98"`       // 胜出规则的匹配比例
	NullCount    int           `json:"null_count"`
	NullRatio    float64       `json:"null_ratio"`
	UniqueCount  int           `json:"unique_count"`
	SampleValues []interface{} `json:"sample_values"` // 最多5个去重样本值
	SQLType      string        `json:"sql_type" example:"BIGINT"`
	Stats        *ColumnStats  `json:"stats,omitempty"`
}

// ConversionCheck 类型转换可行性检查结果
type ConversionCheck struct {
	Column        string        `json:"column"`
	TargetType    string        `json:"target_type"`
	SuccessRate   float64       `json:"success_rate"`
	Convertible   bool          `json:"convertible"` // 成功率达到阈值(默认0.95)
	FailedSamples []interface{} `json:"failed_samples,omitempty"`
}

// 校验规则严重级别
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// ValidationRule 校验规则定义
type ValidationRule struct {
	Name     string                 `json:"name"`
	Kind     string                 `json:"kind"` // required, unique, range, length, pattern, in_set, type, columns_exist, row_count, custom
	Columns  []string               `json:"columns,omitempty"`
	Severity string                 `json:"severity"` // error, warning, info，默认error
	Params   map[string]interface{} `json:"params,omitempty"`
	Script   string                 `json:"script,omitempty"` // custom 规则的脚本体
}

// RuleResult 单条规则的独立校验结果
type RuleResult struct {
	Rule        string        `json:"rule"`
	Kind        string        `json:"kind"`
	Severity    string        `json:"severity"`
	Passed      bool          `json:"passed"`
	Message     string        `json:"message"`
	FailedCount int           `json:"failed_count"`
	SampleRows  []int         `json:"sample_rows,omitempty"`   // 最多10个违规行号(1-based)
	SampleValues []interface{} `json:"sample_values,omitempty"` // 最多10个违规值
	Details     map[string]interface{} `json:"details,omitempty"` // 规则相关的补充上下文
}

// ValidationReport 校验报告，聚合所有规则结果
// Passed 为真当且仅当没有 error 级别的失败
type ValidationReport struct {
	Passed       bool         `json:"passed"`
	ErrorCount   int          `json:"error_count"`
	WarningCount int          `json:"warning_count"`
	InfoCount    int          `json:"info_count"`
	RuleResults  []RuleResult `json:"rule_results"`
}

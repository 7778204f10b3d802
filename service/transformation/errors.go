/*
 * @module service/transformation/errors
 * @description 变换阶段的错误类别定义
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/ingestion_requirements.md
 * @stateFlow 清洗/规范化/映射失败时包装对应的哨兵错误向上传递
 * @rules 变换错误是确定性的，任务队列不应重试
 * @dependencies errors
 * @refs service/transformation/pipeline.go
 */

package transformation

import "errors"

var (
	// ErrCleaning 清洗操作失败
	ErrCleaning = errors.New("数据清洗失败")

	// ErrNormalization 规范化操作失败
	ErrNormalization = errors.New("数据规范化失败")

	// ErrSchemaMapping 字段映射失败
	ErrSchemaMapping = errors.New("字段映射失败")

	// ErrMappingValidation 映射方案非法
	ErrMappingValidation = errors.New("映射方案校验失败")

	// ErrPipeline 流水线执行失败
	ErrPipeline = errors.New("流水线执行失败")

	// ErrUnknownOperation 未知的变换操作
	ErrUnknownOperation = errors.New("未知的变换操作")
)

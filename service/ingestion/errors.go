/*
 * @module service/ingestion/errors
 * @description 摄取阶段的错误类别定义，供上层区分可重试错误和确定性错误
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/ingestion_requirements.md
 * @stateFlow 解析/推断/校验失败时包装对应的哨兵错误向上传递
 * @rules 解析和校验错误是确定性的，任务队列不应重试；用 errors.Is 判断类别
 * @dependencies errors
 * @refs service/worker/ingestion_worker.go
 */

package ingestion

import "errors"

var (
	// ErrCorruptedFile 文件损坏或无法读取
	ErrCorruptedFile = errors.New("文件损坏或无法解析")

	// ErrEncodingDetection 字符编码无法识别
	ErrEncodingDetection = errors.New("字符编码检测失败")

	// ErrDelimiterDetection 分隔符无法识别
	ErrDelimiterDetection = errors.New("分隔符检测失败")

	// ErrUnsupportedFormat 不支持的文件格式
	ErrUnsupportedFormat = errors.New("不支持的文件格式")

	// ErrSheetNotFound 指定的工作表不存在
	ErrSheetNotFound = errors.New("工作表不存在")

	// ErrFileTooLarge 文件超出大小限制
	ErrFileTooLarge = errors.New("文件超出大小限制")

	// ErrEmptyFile 文件为空或没有数据行
	ErrEmptyFile = errors.New("文件为空")

	// ErrTypeInference 类型推断失败
	ErrTypeInference = errors.New("类型推断失败")

	// ErrMissingColumns 必需列缺失
	ErrMissingColumns = errors.New("必需列缺失")

	// ErrInvalidRule 校验规则定义非法
	ErrInvalidRule = errors.New("校验规则非法")
)

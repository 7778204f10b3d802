/*
 * @module service/worker/ingestion_worker
 * @description 摄取工作器，编排文件抓取、解析、类型推断、校验、清洗、规范化和批量入库的完整流程
 * @architecture 分层架构 - 业务编排层
 * @documentReference ai_docs/ingestion_requirements.md
 * @stateFlow uploading -> processing -> ready|failed；各检查点更新进度并累积 schema_info
 * @rules 只有存储抓取走重试；任何阶段失败都标记数据集失败、发失败事件、清理临时文件并向上抛出；
 *        批次内事务原子提交，行号从1开始；reprocess 先删除旧记录再全量重建
 * @dependencies gorm.io/gorm, github.com/spf13/cast
 * @refs service/ingestion, service/transformation, service/models
 */

package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"dataset-ingestion-service/service/distributed_lock"
	"dataset-ingestion-service/service/ingestion"
	"dataset-ingestion-service/service/models"
	"dataset-ingestion-service/service/transformation"

	"github.com/spf13/cast"
	"gorm.io/gorm"
)

// DefaultBatchSize 批量插入的批次大小
const DefaultBatchSize = 1000

// ingestLockTTL 摄取锁的过期时间，超过后视为持有实例已崩溃
const ingestLockTTL = 30 * time.Minute

// IngestOptions 摄取选项
type IngestOptions struct {
	// 额外校验规则，追加在默认规则之后
	Rules []models.ValidationRule
	// 清洗步骤，为空时使用默认清洗链
	Steps []transformation.StepConfig
	// 列名规范化风格，默认 snake
	NameStyle string
}

// IngestionWorker 摄取工作器
type IngestionWorker struct {
	db        *gorm.DB
	store     FileStore
	reporter  ProgressReporter
	parser    *ingestion.Parser
	inference *ingestion.TypeInferenceEngine
	validator *ingestion.Validator
	retry     RetryPolicy
	lock      distributed_lock.DistributedLock
	batchSize int
}

// NewIngestionWorker 创建摄取工作器
func NewIngestionWorker(db *gorm.DB, store FileStore, reporter ProgressReporter) *IngestionWorker {
	if reporter == nil {
		reporter = NoopProgressReporter{}
	}
	return &IngestionWorker{
		db:        db,
		store:     store,
		reporter:  reporter,
		parser:    ingestion.NewParser(),
		inference: ingestion.NewTypeInferenceEngine(),
		validator: ingestion.NewValidator(),
		retry:     DefaultRetryPolicy(),
		batchSize: DefaultBatchSize,
	}
}

// SetRetryPolicy 覆盖存储抓取的重试策略
func (w *IngestionWorker) SetRetryPolicy(policy RetryPolicy) { w.retry = policy }

// SetLock 启用分布式摄取锁，防止多实例并发处理同一数据集
func (w *IngestionWorker) SetLock(lock distributed_lock.DistributedLock) { w.lock = lock }

// SetBatchSize 覆盖批次大小，测试使用
func (w *IngestionWorker) SetBatchSize(size int) {
	if size > 0 {
		w.batchSize = size
	}
}

// Ingest 执行数据集的完整摄取流程
// 失败时返回错误供任务队列层决定是否重试，数据集状态已标记为 failed
func (w *IngestionWorker) Ingest(ctx context.Context, datasetID string, opts IngestOptions) (*models.IngestionResult, error) {
	start := time.Now()

	var dataset models.Dataset
	if err := w.db.WithContext(ctx).First(&dataset, "id = ?", datasetID).Error; err != nil {
		return nil, fmt.Errorf("数据集不存在: %w", err)
	}

	if w.lock != nil {
		locked, lockErr := w.lock.TryLock(ctx, datasetID, ingestLockTTL)
		if lockErr != nil {
			// 锁服务故障时降级为无锁执行
			slog.Warn("获取摄取锁失败，降级为无锁执行", "dataset_id", datasetID, "error", lockErr)
		} else if !locked {
			return nil, fmt.Errorf("数据集 %s 正在被其他实例处理", datasetID)
		} else {
			defer func() {
				if unlockErr := w.lock.Unlock(ctx, datasetID); unlockErr != nil {
					slog.Error("释放摄取锁失败", "dataset_id", datasetID, "error", unlockErr)
				}
			}()
		}
	}

	result, err := w.ingest(ctx, &dataset, opts)
	duration := time.Since(start)
	ingestionDuration.Observe(duration.Seconds())

	if err != nil {
		datasetsIngestedTotal.WithLabelValues(models.DatasetStatusFailed).Inc()
		w.markFailed(ctx, &dataset, err)
		return nil, err
	}

	datasetsIngestedTotal.WithLabelValues(models.DatasetStatusReady).Inc()
	result.DurationMs = duration.Milliseconds()
	return result, nil
}

// Reprocess 重新处理: 删除所有旧记录后全量重建，行号重新编号
func (w *IngestionWorker) Reprocess(ctx context.Context, datasetID string, opts IngestOptions) (*models.IngestionResult, error) {
	var dataset models.Dataset
	if err := w.db.WithContext(ctx).First(&dataset, "id = ?", datasetID).Error; err != nil {
		return nil, fmt.Errorf("数据集不存在: %w", err)
	}
	if dataset.Status != models.DatasetStatusReady && dataset.Status != models.DatasetStatusFailed {
		return nil, fmt.Errorf("数据集状态 %s 不允许重新处理", dataset.Status)
	}
	return w.Ingest(ctx, datasetID, opts)
}

// ValidateFileTask 摄取前的快速文件校验
func (w *IngestionWorker) ValidateFileTask(ctx context.Context, datasetID string) error {
	var dataset models.Dataset
	if err := w.db.WithContext(ctx).First(&dataset, "id = ?", datasetID).Error; err != nil {
		return fmt.Errorf("数据集不存在: %w", err)
	}

	w.report(ctx, &dataset, models.DatasetStatusProcessing, 0, "开始文件校验")

	var localPath string
	err := w.retry.Do(ctx, "storage_fetch", func() error {
		var fetchErr error
		localPath, fetchErr = w.store.Fetch(ctx, dataset.FilePath)
		return fetchErr
	})
	if err != nil {
		w.report(ctx, &dataset, models.DatasetStatusFailed, 0, fmt.Sprintf("文件校验失败: %v", err))
		return err
	}
	defer w.removeTemp(localPath)

	w.report(ctx, &dataset, models.DatasetStatusProcessing, 50, "检查文件格式")
	if err := w.parser.ValidateFile(localPath); err != nil {
		w.report(ctx, &dataset, models.DatasetStatusFailed, 0, fmt.Sprintf("文件校验失败: %v", err))
		return err
	}

	w.report(ctx, &dataset, models.DatasetStatusProcessing, 100, "文件校验通过")
	return nil
}

// ingest 主流程，所有检查点在此串联
func (w *IngestionWorker) ingest(ctx context.Context, dataset *models.Dataset, opts IngestOptions) (*models.IngestionResult, error) {
	w.report(ctx, dataset, models.DatasetStatusProcessing, 0, "开始处理数据集")

	dataset.Status = models.DatasetStatusProcessing
	dataset.ProcessingError = ""
	if err := w.db.WithContext(ctx).Save(dataset).Error; err != nil {
		return nil, fmt.Errorf("更新数据集状态失败: %w", err)
	}

	// 阶段1: 抓取文件，唯一允许重试的阶段
	var localPath string
	err := w.retry.Do(ctx, "storage_fetch", func() error {
		var fetchErr error
		localPath, fetchErr = w.store.Fetch(ctx, dataset.FilePath)
		return fetchErr
	})
	if err != nil {
		return nil, fmt.Errorf("抓取文件失败: %w", err)
	}
	defer w.removeTemp(localPath)
	w.report(ctx, dataset, models.DatasetStatusProcessing, 5, "文件抓取完成")

	// 阶段2: 解析
	w.report(ctx, dataset, models.DatasetStatusProcessing, 10, fmt.Sprintf("解析文件 %s", dataset.FileName))
	parsed, err := w.parser.ParseFile(localPath)
	if err != nil {
		return nil, err
	}
	table := parsed.Table
	slog.Debug("文件解析完成", "rows", table.RowCount(), "columns", table.ColumnCount(),
		"format", parsed.Format, "encoding", parsed.Encoding)

	schemaInfo := models.JSONB{
		"columns": table.Columns,
		"format":  parsed.Format,
	}

	// 阶段3: 类型推断和列统计
	w.report(ctx, dataset, models.DatasetStatusProcessing, 25, "推断列类型")
	profiles, err := w.inference.InferTable(table)
	if err != nil {
		return nil, err
	}
	typeInfo := make(map[string]interface{}, len(profiles))
	columnStats := make(map[string]interface{}, len(profiles))
	for _, p := range profiles {
		typeInfo[p.Name] = map[string]interface{}{
			"type":          p.InferredType,
			"confidence":    p.Confidence,
			"null_count":    p.NullCount,
			"unique_count":  p.UniqueCount,
			"sample_values": p.SampleValues,
			"sql_type":      p.SQLType,
		}
		if p.Stats != nil {
			columnStats[p.Name] = p.Stats
		}
	}
	schemaInfo["type_info"] = typeInfo
	schemaInfo["column_stats"] = columnStats

	// 阶段4: 持久化结构元数据
	w.report(ctx, dataset, models.DatasetStatusProcessing, 30, "更新结构元数据")
	if err := w.saveSchemaInfo(ctx, dataset, schemaInfo, table); err != nil {
		return nil, err
	}

	// 阶段5: 校验
	w.report(ctx, dataset, models.DatasetStatusProcessing, 40, "校验数据")
	rules := append(defaultValidationRules(), opts.Rules...)
	validation, err := w.validator.Validate(table, rules)
	if err != nil {
		return nil, err
	}
	schemaInfo["validation_results"] = validation
	// 行级校验问题只记录不阻断，结构性错误(如必需列缺失)由 Validate 返回 error
	if !validation.Passed {
		slog.Warn("数据校验未通过，继续摄取", "dataset_id", dataset.ID,
			"errors", validation.ErrorCount, "warnings", validation.WarningCount)
	}

	// 阶段6: 清洗
	w.report(ctx, dataset, models.DatasetStatusProcessing, 50, "清洗数据")
	steps := opts.Steps
	if len(steps) == 0 {
		steps = defaultCleaningSteps()
	}
	cleanPipeline, err := transformation.BuildPipeline(steps, true)
	if err != nil {
		return nil, err
	}
	table, cleanResult, err := cleanPipeline.Run(ctx, table)
	if err != nil {
		return nil, err
	}
	var cleaningReports []models.CleaningReport
	for _, step := range cleanResult.Steps {
		if step.Report != nil {
			cleaningReports = append(cleaningReports, *step.Report)
		}
	}
	schemaInfo["cleaning_reports"] = cleaningReports

	// 阶段7: 规范化列名
	w.report(ctx, dataset, models.DatasetStatusProcessing, 60, "规范化数据")
	style := opts.NameStyle
	if style == "" {
		style = transformation.NameStyleSnake
	}
	normalizer := transformation.NewNormalizer()
	table, normReport, err := normalizer.NormalizeColumnNames(table, style)
	if err != nil {
		return nil, err
	}
	normalizedColumns := map[string]interface{}{}
	if renames, ok := normReport.Changes["renames"].(map[string]interface{}); ok {
		normalizedColumns = renames
	}
	schemaInfo["normalized_columns"] = normalizedColumns
	schemaInfo["columns"] = table.Columns

	if err := w.saveSchemaInfo(ctx, dataset, schemaInfo, table); err != nil {
		return nil, err
	}

	// 阶段8: 批量入库 60% - 90%
	w.report(ctx, dataset, models.DatasetStatusProcessing, 60, "写入记录")
	inserted, err := w.bulkInsertRecords(ctx, dataset, table)
	if err != nil {
		return nil, fmt.Errorf("批量入库失败: %w", err)
	}

	// 阶段9: 收尾
	w.report(ctx, dataset, models.DatasetStatusProcessing, 95, "完成数据集")
	schemaInfo["final_row_count"] = table.RowCount()
	schemaInfo["final_column_count"] = table.ColumnCount()
	schemaInfo["records_inserted"] = inserted

	rowCount := table.RowCount()
	colCount := table.ColumnCount()
	dataset.RowCount = &rowCount
	dataset.ColumnCount = &colCount
	dataset.SchemaInfo = schemaInfo
	dataset.Status = models.DatasetStatusReady
	if err := w.db.WithContext(ctx).Save(dataset).Error; err != nil {
		return nil, fmt.Errorf("保存数据集失败: %w", err)
	}
	w.notifyDatasetEvent(ctx, dataset)

	w.report(ctx, dataset, models.DatasetStatusReady, 100, "数据集处理完成")
	slog.Info("数据集摄取完成", "dataset_id", dataset.ID,
		"rows", rowCount, "columns", colCount, "records_inserted", inserted)

	return &models.IngestionResult{
		DatasetID:       dataset.ID,
		Status:          models.DatasetStatusReady,
		RowCount:        rowCount,
		ColumnCount:     colCount,
		RecordsInserted: inserted,
	}, nil
}

// bulkInsertRecords 分批事务写入记录，行号从1开始
// 进度按 60 + 已入库比例*30 上报，旧记录先删除保证幂等
func (w *IngestionWorker) bulkInsertRecords(ctx context.Context, dataset *models.Dataset, table *models.Table) (int, error) {
	if err := w.db.WithContext(ctx).
		Where("dataset_id = ?", dataset.ID).
		Delete(&models.Record{}).Error; err != nil {
		return 0, fmt.Errorf("清理旧记录失败: %w", err)
	}

	total := table.RowCount()
	inserted := 0
	batch := make([]models.Record, 0, w.batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		batchStart := time.Now()
		err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return tx.Create(&batch).Error
		})
		batchInsertDuration.Observe(time.Since(batchStart).Seconds())
		if err != nil {
			return err
		}
		inserted += len(batch)
		recordsInsertedTotal.Add(float64(len(batch)))

		progress := 60
		if total > 0 {
			progress = 60 + int(float64(inserted)/float64(total)*30)
		}
		w.report(ctx, dataset, models.DatasetStatusProcessing,
			progress, fmt.Sprintf("写入记录: %d/%d", inserted, total))
		batch = batch[:0]
		return nil
	}

	for i := 0; i < total; i++ {
		select {
		case <-ctx.Done():
			return inserted, fmt.Errorf("已取消: %w", ctx.Err())
		default:
		}

		batch = append(batch, models.Record{
			DatasetID: dataset.ID,
			RowNumber: i + 1,
			Data:      models.JSONB(table.RowMap(i)),
			IsValid:   true,
		})
		if len(batch) >= w.batchSize {
			if err := flush(); err != nil {
				return inserted, err
			}
		}
	}
	if err := flush(); err != nil {
		return inserted, err
	}
	return inserted, nil
}

// saveSchemaInfo 事务更新数据集的结构元数据
func (w *IngestionWorker) saveSchemaInfo(ctx context.Context, dataset *models.Dataset, schemaInfo models.JSONB, table *models.Table) error {
	rowCount := table.RowCount()
	colCount := table.ColumnCount()
	dataset.SchemaInfo = schemaInfo
	dataset.RowCount = &rowCount
	dataset.ColumnCount = &colCount
	if err := w.db.WithContext(ctx).Save(dataset).Error; err != nil {
		return fmt.Errorf("保存结构元数据失败: %w", err)
	}
	return nil
}

// markFailed 标记失败、发失败事件并通知事件服务
func (w *IngestionWorker) markFailed(ctx context.Context, dataset *models.Dataset, cause error) {
	dataset.Status = models.DatasetStatusFailed
	dataset.ProcessingError = cause.Error()
	if err := w.db.WithContext(ctx).Save(dataset).Error; err != nil {
		slog.Error("标记数据集失败状态时出错", "dataset_id", dataset.ID, "error", err)
	}
	w.notifyDatasetEvent(ctx, dataset)
	w.report(ctx, dataset, models.DatasetStatusFailed, 0, fmt.Sprintf("处理失败: %v", cause))
	slog.Error("数据集摄取失败", "dataset_id", dataset.ID, "error", cause,
		"deterministic", isDeterministicError(cause))
}

// isDeterministicError 解析/校验/清洗错误给同一文件重跑也会失败，任务队列不应重试
func isDeterministicError(err error) bool {
	deterministic := []error{
		ingestion.ErrCorruptedFile, ingestion.ErrEncodingDetection, ingestion.ErrDelimiterDetection,
		ingestion.ErrUnsupportedFormat, ingestion.ErrFileTooLarge, ingestion.ErrEmptyFile,
		ingestion.ErrTypeInference, ingestion.ErrMissingColumns, ingestion.ErrInvalidRule,
		transformation.ErrCleaning, transformation.ErrNormalization,
		transformation.ErrSchemaMapping, transformation.ErrPipeline,
	}
	for _, sentinel := range deterministic {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// report 发送进度事件，尽力而为
func (w *IngestionWorker) report(ctx context.Context, dataset *models.Dataset, status string, progress int, message string) {
	w.reporter.Report(ctx, models.ProgressEvent{
		Type:      "dataset_update",
		DatasetID: dataset.ID,
		Status:    status,
		Progress:  progress,
		Message:   message,
	})
}

// notifyDatasetEvent 通过 pg_notify 通知事件服务数据集状态变化
// sqlite 等不支持的数据库上静默跳过
func (w *IngestionWorker) notifyDatasetEvent(ctx context.Context, dataset *models.Dataset) {
	if w.db.Dialector.Name() != "postgres" {
		return
	}
	payload := fmt.Sprintf(`{"dataset_id":%q,"status":%q,"row_count":%s}`,
		dataset.ID, dataset.Status, cast.ToString(intOrZero(dataset.RowCount)))
	if err := w.db.WithContext(ctx).Exec("SELECT pg_notify('dataset_events', ?)", payload).Error; err != nil {
		slog.Warn("数据集事件通知失败", "dataset_id", dataset.ID, "error", err)
	}
}

func intOrZero(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

// removeTemp 删除临时文件，失败只记日志
func (w *IngestionWorker) removeTemp(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("临时文件清理失败", "path", path, "error", err)
	}
}

// defaultValidationRules 默认校验规则: 表非空
func defaultValidationRules() []models.ValidationRule {
	return []models.ValidationRule{
		{
			Name:     "non_empty",
			Kind:     "row_count",
			Severity: models.SeverityError,
			Params:   map[string]interface{}{"min": 1},
		},
	}
}

// defaultCleaningSteps 默认清洗链: 去重 -> 修剪空白 -> 删除全空行
func defaultCleaningSteps() []transformation.StepConfig {
	return []transformation.StepConfig{
		{Name: "remove_duplicates", Operation: "remove_duplicates"},
		{Name: "trim_whitespace", Operation: "trim_whitespace"},
		{Name: "drop_empty_rows", Operation: "handle_missing",
			Params: map[string]interface{}{"strategy": transformation.MissingDropAll}},
	}
}

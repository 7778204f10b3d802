/*
 * @module service/transformation/pipeline
 * @description 变换流水线，在构造期将声明式步骤配置解析为类型化操作，按序执行并记录每步报告
 * @architecture 分层架构 - 业务服务层，命令模式
 * @documentReference ai_docs/ingestion_requirements.md
 * @stateFlow 步骤构建 -> 方案校验 -> 逐步执行 -> 聚合结果
 * @rules 未知操作在构建期报错而非运行期；stop_on_error 默认开启；步骤之间检查上下文取消
 * @dependencies github.com/spf13/cast, context, time
 * @refs service/transformation/cleaner.go, service/transformation/normalizer.go
 */

package transformation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"dataset-ingestion-service/service/models"

	"github.com/spf13/cast"
)

// Operation 单个变换操作，执行时不修改输入表
type Operation interface {
	Execute(ctx context.Context, table *models.Table) (*models.Table, *models.CleaningReport, error)
}

// OperationFunc 函数适配器
type OperationFunc func(ctx context.Context, table *models.Table) (*models.Table, *models.CleaningReport, error)

// Execute 实现 Operation 接口
func (f OperationFunc) Execute(ctx context.Context, table *models.Table) (*models.Table, *models.CleaningReport, error) {
	return f(ctx, table)
}

// Step 流水线步骤，操作在构造期已解析
type Step struct {
	Name      string
	Operation Operation
}

// StepConfig 声明式步骤配置
type StepConfig struct {
	Name      string                 `json:"name"`
	Operation string                 `json:"operation"`
	Params    map[string]interface{} `json:"params,omitempty"`
}

// Pipeline 变换流水线
type Pipeline struct {
	steps       []Step
	stopOnError bool
}

// NewPipeline 创建流水线，stopOnError 控制失败后是否继续执行后续步骤
func NewPipeline(steps []Step, stopOnError bool) *Pipeline {
	return &Pipeline{steps: steps, stopOnError: stopOnError}
}

// BuildPipeline 从声明式配置构建流水线
// 未知操作名或参数非法在此处直接失败
func BuildPipeline(configs []StepConfig, stopOnError bool) (*Pipeline, error) {
	cleaner := NewCleaner()
	normalizer := NewNormalizer()
	mapper := NewSchemaMapper()

	steps := make([]Step, 0, len(configs))
	for _, cfg := range configs {
		op, err := resolveOperation(cfg, cleaner, normalizer, mapper)
		if err != nil {
			return nil, err
		}
		name := cfg.Name
		if name == "" {
			name = cfg.Operation
		}
		steps = append(steps, Step{Name: name, Operation: op})
	}

	pipeline := NewPipeline(steps, stopOnError)
	if err := pipeline.Validate(); err != nil {
		return nil, err
	}
	return pipeline, nil
}

// resolveOperation 操作名和参数解析为类型化操作
func resolveOperation(cfg StepConfig, cleaner *Cleaner, normalizer *Normalizer, mapper *SchemaMapper) (Operation, error) {
	params := cfg.Params
	columns := cast.ToStringSlice(params["columns"])

	switch cfg.Operation {
	case "remove_duplicates":
		keep := cast.ToString(params["keep"])
		return OperationFunc(func(_ context.Context, t *models.Table) (*models.Table, *models.CleaningReport, error) {
			return cleaner.RemoveDuplicates(t, columns, keep)
		}), nil

	case "trim_whitespace":
		return OperationFunc(func(_ context.Context, t *models.Table) (*models.Table, *models.CleaningReport, error) {
			return cleaner.TrimWhitespace(t, columns)
		}), nil

	case "handle_missing":
		strategy := cast.ToString(params["strategy"])
		if strategy == "" {
			strategy = MissingDropAll
		}
		fillValue := params["fill_value"]
		return OperationFunc(func(_ context.Context, t *models.Table) (*models.Table, *models.CleaningReport, error) {
			return cleaner.HandleMissing(t, strategy, columns, fillValue)
		}), nil

	case "remove_outliers":
		method := cast.ToString(params["method"])
		if method == "" {
			method = OutlierIQR
		}
		factor := cast.ToFloat64(params["factor"])
		return OperationFunc(func(_ context.Context, t *models.Table) (*models.Table, *models.CleaningReport, error) {
			return cleaner.RemoveOutliers(t, method, columns, factor)
		}), nil

	case "clean_numeric":
		stripChars := cast.ToStringSlice(params["strip_chars"])
		return OperationFunc(func(_ context.Context, t *models.Table) (*models.Table, *models.CleaningReport, error) {
			return cleaner.CleanNumeric(t, columns, stripChars)
		}), nil

	case "normalize_dates":
		layout := cast.ToString(params["layout"])
		return OperationFunc(func(_ context.Context, t *models.Table) (*models.Table, *models.CleaningReport, error) {
			return cleaner.NormalizeDates(t, columns, layout)
		}), nil

	case "standardize_case":
		mode := cast.ToString(params["mode"])
		if mode == "" {
			mode = "lower"
		}
		return OperationFunc(func(_ context.Context, t *models.Table) (*models.Table, *models.CleaningReport, error) {
			return cleaner.StandardizeCase(t, columns, mode)
		}), nil

	case "replace_values":
		column := cast.ToString(params["column"])
		mapping := cast.ToStringMap(params["mapping"])
		if column == "" {
			return nil, fmt.Errorf("%w: replace_values 缺少 column 参数", ErrUnknownOperation)
		}
		return OperationFunc(func(_ context.Context, t *models.Table) (*models.Table, *models.CleaningReport, error) {
			return cleaner.ReplaceValues(t, column, mapping)
		}), nil

	case "rename_columns":
		mapping := cast.ToStringMapString(params["mapping"])
		if len(mapping) == 0 {
			return nil, fmt.Errorf("%w: rename_columns 缺少 mapping 参数", ErrUnknownOperation)
		}
		return OperationFunc(func(_ context.Context, t *models.Table) (*models.Table, *models.CleaningReport, error) {
			return cleaner.RenameColumns(t, mapping)
		}), nil

	case "drop_columns":
		if len(columns) == 0 {
			return nil, fmt.Errorf("%w: drop_columns 缺少 columns 参数", ErrUnknownOperation)
		}
		return OperationFunc(func(_ context.Context, t *models.Table) (*models.Table, *models.CleaningReport, error) {
			return cleaner.DropColumns(t, columns)
		}), nil

	case "mask_sensitive":
		maskTypes := cast.ToStringMapString(params["mask_types"])
		if len(columns) == 0 {
			return nil, fmt.Errorf("%w: mask_sensitive 缺少 columns 参数", ErrUnknownOperation)
		}
		return OperationFunc(func(_ context.Context, t *models.Table) (*models.Table, *models.CleaningReport, error) {
			return cleaner.MaskSensitive(t, columns, maskTypes)
		}), nil

	case "normalize_column_names":
		style := cast.ToString(params["style"])
		return OperationFunc(func(_ context.Context, t *models.Table) (*models.Table, *models.CleaningReport, error) {
			return normalizer.NormalizeColumnNames(t, style)
		}), nil

	case "scale_columns":
		method := cast.ToString(params["method"])
		if method == "" {
			method = ScaleMinMax
		}
		return OperationFunc(func(_ context.Context, t *models.Table) (*models.Table, *models.CleaningReport, error) {
			result, report, _, err := normalizer.ScaleColumns(t, columns, method)
			return result, report, err
		}), nil

	case "convert_types":
		types := cast.ToStringMapString(params["types"])
		policy := cast.ToString(params["policy"])
		if len(types) == 0 {
			return nil, fmt.Errorf("%w: convert_types 缺少 types 参数", ErrUnknownOperation)
		}
		return OperationFunc(func(_ context.Context, t *models.Table) (*models.Table, *models.CleaningReport, error) {
			return normalizer.ConvertTypes(t, types, policy)
		}), nil

	case "encode_categorical":
		column := cast.ToString(params["column"])
		method := cast.ToString(params["method"])
		order := cast.ToStringSlice(params["order"])
		if column == "" {
			return nil, fmt.Errorf("%w: encode_categorical 缺少 column 参数", ErrUnknownOperation)
		}
		if method == "" {
			method = EncodeLabel
		}
		return OperationFunc(func(_ context.Context, t *models.Table) (*models.Table, *models.CleaningReport, error) {
			result, report, _, err := normalizer.EncodeCategorical(t, column, method, order)
			return result, report, err
		}), nil

	case "apply_mapping":
		mapping := cast.ToStringMapString(params["mapping"])
		targetColumns := cast.ToStringSlice(params["target_columns"])
		opts := MappingOptions{
			FillMissingWithNull: cast.ToBool(params["fill_missing"]),
			TargetTypes:         cast.ToStringMapString(params["target_types"]),
			ForceConversion:     cast.ToBool(params["force_conversion"]),
		}
		if len(mapping) == 0 || len(targetColumns) == 0 {
			return nil, fmt.Errorf("%w: apply_mapping 缺少 mapping 或 target_columns 参数", ErrUnknownOperation)
		}
		return OperationFunc(func(_ context.Context, t *models.Table) (*models.Table, *models.CleaningReport, error) {
			return mapper.ApplyMapping(t, mapping, targetColumns, opts)
		}), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, cfg.Operation)
	}
}

// Validate 校验流水线: 非空且步骤名唯一
func (p *Pipeline) Validate() error {
	if len(p.steps) == 0 {
		return fmt.Errorf("%w: 流水线为空", ErrPipeline)
	}
	seen := make(map[string]bool, len(p.steps))
	for _, step := range p.steps {
		if step.Name == "" {
			return fmt.Errorf("%w: 步骤名不能为空", ErrPipeline)
		}
		if seen[step.Name] {
			return fmt.Errorf("%w: 步骤名重复: %s", ErrPipeline, step.Name)
		}
		seen[step.Name] = true
		if step.Operation == nil {
			return fmt.Errorf("%w: 步骤 %s 没有操作", ErrPipeline, step.Name)
		}
	}
	return nil
}

// Run 按序执行所有步骤
// stopOnError 开启时首个失败立即返回；否则记录失败并以失败前的表继续
func (p *Pipeline) Run(ctx context.Context, table *models.Table) (*models.Table, *models.PipelineResult, error) {
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}

	result := &models.PipelineResult{Success: true}
	current := table
	start := time.Now()

	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			return nil, nil, fmt.Errorf("%w: 已取消: %v", ErrPipeline, ctx.Err())
		default:
		}

		stepStart := time.Now()
		next, report, err := step.Operation.Execute(ctx, current)
		stepResult := models.StepResult{
			Name:     step.Name,
			RowsIn:   current.RowCount(),
			Duration: time.Since(stepStart),
			Report:   report,
		}

		if err != nil {
			stepResult.Error = err.Error()
			stepResult.RowsOut = current.RowCount()
			result.Steps = append(result.Steps, stepResult)
			result.Success = false
			if p.stopOnError {
				result.Duration = time.Since(start)
				return nil, result, fmt.Errorf("%w: 步骤 %s: %v", ErrPipeline, step.Name, err)
			}
			slog.Warn("流水线步骤失败，继续执行", "step", step.Name, "error", err)
			continue
		}

		stepResult.RowsOut = next.RowCount()
		result.Steps = append(result.Steps, stepResult)
		current = next
	}

	result.Duration = time.Since(start)
	slog.Debug("流水线执行完成", "steps", len(result.Steps),
		"rows", current.RowCount(), "duration_ms", result.Duration.Milliseconds())
	return current, result, nil
}

/*
 * @module service/ingestion/validator
 * @description 规则式数据校验器，每条规则独立产出结果，支持脚本自定义规则
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/ingestion_requirements.md
 * @stateFlow 规则解析 -> 逐条执行 -> 聚合报告，error 级失败决定整体是否通过
 * @rules 规则之间互不影响；违规样本最多保留10条；custom 规则脚本在注册时解释一次
 * @dependencies github.com/traefik/yaegi, github.com/spf13/cast, regexp
 * @refs service/models/ingestion_models.go, service/worker/ingestion_worker.go
 */

package ingestion

import (
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"

	"dataset-ingestion-service/service/models"

	"github.com/spf13/cast"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// 单条规则的违规样本上限
const maxInvalidSamples = 10

// Validator 数据校验器
type Validator struct {
	customRules map[string]func(interface{}) bool // 规则名 -> 编译后的脚本函数
}

// NewValidator 创建校验器
func NewValidator() *Validator {
	return &Validator{
		customRules: make(map[string]func(interface{}) bool),
	}
}

// RegisterCustomRule 注册脚本自定义规则
// 脚本必须是一个求值为 func(interface{}) bool 的 Go 表达式
func (v *Validator) RegisterCustomRule(name, script string) error {
	interpreter := interp.New(interp.Options{})
	if err := interpreter.Use(stdlib.Symbols); err != nil {
		return fmt.Errorf("%w: 脚本环境初始化失败: %v", ErrInvalidRule, err)
	}

	result, err := interpreter.Eval(script)
	if err != nil {
		return fmt.Errorf("%w: 脚本解析失败: %v", ErrInvalidRule, err)
	}

	fn, ok := result.Interface().(func(interface{}) bool)
	if !ok {
		return fmt.Errorf("%w: 脚本必须求值为 func(interface{}) bool", ErrInvalidRule)
	}

	v.customRules[name] = fn
	slog.Info("注册自定义校验规则", "rule", name)
	return nil
}

// Validate 按规则列表校验表数据，返回聚合报告
// 整体通过当且仅当没有 error 级别的失败
func (v *Validator) Validate(table *models.Table, rules []models.ValidationRule) (*models.ValidationReport, error) {
	if table == nil {
		return nil, fmt.Errorf("校验失败: 表为空")
	}

	report := &models.ValidationReport{Passed: true}
	for _, rule := range rules {
		result, err := v.applyRule(table, rule)
		if err != nil {
			return nil, err
		}
		report.RuleResults = append(report.RuleResults, result)
		if result.Passed {
			continue
		}
		switch result.Severity {
		case models.SeverityError:
			report.ErrorCount++
			report.Passed = false
		case models.SeverityWarning:
			report.WarningCount++
		default:
			report.InfoCount++
		}
	}

	slog.Debug("数据校验完成", "rules", len(rules),
		"errors", report.ErrorCount, "warnings", report.WarningCount, "passed", report.Passed)
	return report, nil
}

// applyRule 执行单条规则
func (v *Validator) applyRule(table *models.Table, rule models.ValidationRule) (models.RuleResult, error) {
	severity := rule.Severity
	if severity == "" {
		severity = models.SeverityError
	}
	result := models.RuleResult{
		Rule:     rule.Name,
		Kind:     rule.Kind,
		Severity: severity,
		Passed:   true,
	}

	switch rule.Kind {
	case "required", "not_null":
		v.checkNotNull(table, rule, &result)
	case "unique":
		v.checkUnique(table, rule, &result)
	case "range":
		v.checkRange(table, rule, &result)
	case "length":
		v.checkLength(table, rule, &result)
	case "pattern":
		if err := v.checkPattern(table, rule, &result); err != nil {
			return result, err
		}
	case "in_set":
		v.checkInSet(table, rule, &result)
	case "type":
		v.checkType(table, rule, &result)
	case "columns_exist":
		if err := v.checkColumnsExist(table, rule, &result); err != nil {
			return result, err
		}
	case "row_count":
		v.checkRowCount(table, rule, &result)
	case "custom":
		if err := v.checkCustom(table, rule, &result); err != nil {
			return result, err
		}
	default:
		return result, fmt.Errorf("%w: 未知规则类型 %s", ErrInvalidRule, rule.Kind)
	}

	if result.Passed && result.Message == "" {
		result.Message = "通过"
	}
	return result, nil
}

// recordFailure 记录一次违规，样本数量封顶
func recordFailure(result *models.RuleResult, rowIndex int, value interface{}) {
	result.FailedCount++
	result.Passed = false
	if len(result.SampleRows) < maxInvalidSamples {
		result.SampleRows = append(result.SampleRows, rowIndex+1)
		result.SampleValues = append(result.SampleValues, value)
	}
}

// forEachColumn 遍历规则涉及的每一列，列不存在时记为失败
func (v *Validator) forEachColumn(table *models.Table, rule models.ValidationRule, result *models.RuleResult,
	fn func(colIdx int)) {
	for _, col := range rule.Columns {
		idx := table.ColumnIndex(col)
		if idx < 0 {
			result.Passed = false
			result.FailedCount++
			result.Message = fmt.Sprintf("列不存在: %s", col)
			continue
		}
		fn(idx)
	}
}

func (v *Validator) checkNotNull(table *models.Table, rule models.ValidationRule, result *models.RuleResult) {
	v.forEachColumn(table, rule, result, func(colIdx int) {
		for i, row := range table.Rows {
			if row[colIdx].IsNull() {
				recordFailure(result, i, nil)
			}
		}
	})
	if !result.Passed && result.Message == "" {
		result.Message = fmt.Sprintf("发现 %d 个空值", result.FailedCount)
	}
}

func (v *Validator) checkUnique(table *models.Table, rule models.ValidationRule, result *models.RuleResult) {
	groups := make(map[string][]int)
	v.forEachColumn(table, rule, result, func(colIdx int) {
		seen := make(map[string]int, len(table.Rows))
		for i, row := range table.Rows {
			if row[colIdx].IsNull() {
				continue
			}
			key := row[colIdx].String()
			if first, dup := seen[key]; dup {
				if len(groups[key]) == 0 {
					groups[key] = append(groups[key], first+1)
				}
				groups[key] = append(groups[key], i+1)
				recordFailure(result, i, row[colIdx].Go())
			} else {
				seen[key] = i
			}
		}
	})
	if len(groups) > 0 {
		// 重复组: 取值 -> 出现的行号，最多保留10组
		detail := make(map[string]interface{}, len(groups))
		for key, rows := range groups {
			if len(detail) >= maxInvalidSamples {
				break
			}
			detail[key] = rows
		}
		result.Details = map[string]interface{}{"duplicate_groups": detail}
	}
	if !result.Passed && result.Message == "" {
		result.Message = fmt.Sprintf("发现 %d 个重复值, %d 个重复组", result.FailedCount, len(groups))
	}
}

func (v *Validator) checkRange(table *models.Table, rule models.ValidationRule, result *models.RuleResult) {
	var minV, maxV *float64
	if raw, ok := rule.Params["min"]; ok {
		val := cast.ToFloat64(raw)
		minV = &val
	}
	if raw, ok := rule.Params["max"]; ok {
		val := cast.ToFloat64(raw)
		maxV = &val
	}

	observedMin := math.Inf(1)
	observedMax := math.Inf(-1)
	v.forEachColumn(table, rule, result, func(colIdx int) {
		for i, row := range table.Rows {
			cell := row[colIdx]
			if cell.IsNull() {
				continue
			}
			f, ok := cellFloat(cell)
			if !ok {
				recordFailure(result, i, cell.Go())
				continue
			}
			if f < observedMin {
				observedMin = f
			}
			if f > observedMax {
				observedMax = f
			}
			if (minV != nil && f < *minV) || (maxV != nil && f > *maxV) {
				recordFailure(result, i, cell.Go())
			}
		}
	})
	if observedMin <= observedMax {
		result.Details = map[string]interface{}{
			"observed_min": observedMin,
			"observed_max": observedMax,
		}
	}
	if !result.Passed && result.Message == "" {
		result.Message = fmt.Sprintf("%d 个值超出取值范围", result.FailedCount)
	}
}

func (v *Validator) checkLength(table *models.Table, rule models.ValidationRule, result *models.RuleResult) {
	minLen := cast.ToInt(rule.Params["min"])
	maxLen := cast.ToInt(rule.Params["max"])

	v.forEachColumn(table, rule, result, func(colIdx int) {
		for i, row := range table.Rows {
			cell := row[colIdx]
			if cell.IsNull() {
				continue
			}
			l := len([]rune(cell.String()))
			if (minLen > 0 && l < minLen) || (maxLen > 0 && l > maxLen) {
				recordFailure(result, i, cell.Go())
			}
		}
	})
	if !result.Passed && result.Message == "" {
		result.Message = fmt.Sprintf("%d 个值长度不合法", result.FailedCount)
	}
}

func (v *Validator) checkPattern(table *models.Table, rule models.ValidationRule, result *models.RuleResult) error {
	pattern := cast.ToString(rule.Params["pattern"])
	if pattern == "" {
		return fmt.Errorf("%w: pattern 规则缺少 pattern 参数", ErrInvalidRule)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("%w: 正则表达式非法: %v", ErrInvalidRule, err)
	}

	v.forEachColumn(table, rule, result, func(colIdx int) {
		for i, row := range table.Rows {
			cell := row[colIdx]
			if cell.IsNull() {
				continue
			}
			if !re.MatchString(cell.String()) {
				recordFailure(result, i, cell.Go())
			}
		}
	})
	if !result.Passed && result.Message == "" {
		result.Message = fmt.Sprintf("%d 个值不匹配模式 %s", result.FailedCount, pattern)
	}
	return nil
}

func (v *Validator) checkInSet(table *models.Table, rule models.ValidationRule, result *models.RuleResult) {
	allowed := make(map[string]bool)
	for _, item := range cast.ToSlice(rule.Params["values"]) {
		allowed[cast.ToString(item)] = true
	}

	v.forEachColumn(table, rule, result, func(colIdx int) {
		for i, row := range table.Rows {
			cell := row[colIdx]
			if cell.IsNull() {
				continue
			}
			if !allowed[cell.String()] {
				recordFailure(result, i, cell.Go())
			}
		}
	})
	if !result.Passed && result.Message == "" {
		result.Message = fmt.Sprintf("%d 个值不在允许集合内", result.FailedCount)
	}
}

func (v *Validator) checkType(table *models.Table, rule models.ValidationRule, result *models.RuleResult) {
	expected := cast.ToString(rule.Params["type"])

	checked := 0
	v.forEachColumn(table, rule, result, func(colIdx int) {
		for i, row := range table.Rows {
			cell := row[colIdx]
			if cell.IsNull() {
				continue
			}
			checked++
			if !convertible(cell, expected) {
				recordFailure(result, i, cell.Go())
			}
		}
	})
	if !result.Passed && result.Message == "" && checked > 0 {
		ratio := float64(result.FailedCount) / float64(checked)
		result.Details = map[string]interface{}{"failed_ratio": ratio}
		result.Message = fmt.Sprintf("%d 个值(%.1f%%)无法转换为 %s",
			result.FailedCount, ratio*100, expected)
	}
}

// checkColumnsExist 检查必需列，error 级失败且 abort 参数为真时直接中止校验
func (v *Validator) checkColumnsExist(table *models.Table, rule models.ValidationRule, result *models.RuleResult) error {
	var missing []string
	for _, col := range rule.Columns {
		if !table.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	result.Passed = false
	result.FailedCount = len(missing)
	result.Message = fmt.Sprintf("缺失必需列: %s", strings.Join(missing, ", "))
	for _, col := range missing {
		if len(result.SampleValues) < maxInvalidSamples {
			result.SampleValues = append(result.SampleValues, col)
		}
	}

	abort := true
	if raw, ok := rule.Params["abort"]; ok {
		abort = cast.ToBool(raw)
	}
	if abort && (rule.Severity == "" || rule.Severity == models.SeverityError) {
		return fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return nil
}

func (v *Validator) checkRowCount(table *models.Table, rule models.ValidationRule, result *models.RuleResult) {
	rows := table.RowCount()
	minRows := cast.ToInt(rule.Params["min"])
	maxRows := cast.ToInt(rule.Params["max"])

	if minRows > 0 && rows < minRows {
		result.Passed = false
		result.FailedCount = 1
		result.Message = fmt.Sprintf("行数 %d 低于下限 %d", rows, minRows)
		return
	}
	if maxRows > 0 && rows > maxRows {
		result.Passed = false
		result.FailedCount = 1
		result.Message = fmt.Sprintf("行数 %d 超过上限 %d", rows, maxRows)
	}
}

// checkCustom 执行脚本自定义规则，脚本未注册时尝试用规则自带脚本注册
func (v *Validator) checkCustom(table *models.Table, rule models.ValidationRule, result *models.RuleResult) error {
	fn, ok := v.customRules[rule.Name]
	if !ok {
		if rule.Script == "" {
			return fmt.Errorf("%w: custom 规则 %s 未注册且没有脚本", ErrInvalidRule, rule.Name)
		}
		if err := v.RegisterCustomRule(rule.Name, rule.Script); err != nil {
			return err
		}
		fn = v.customRules[rule.Name]
	}

	v.forEachColumn(table, rule, result, func(colIdx int) {
		for i, row := range table.Rows {
			cell := row[colIdx]
			if cell.IsNull() {
				continue
			}
			if !fn(cell.Go()) {
				recordFailure(result, i, cell.Go())
			}
		}
	})
	if !result.Passed && result.Message == "" {
		result.Message = fmt.Sprintf("%d 个值未通过自定义规则", result.FailedCount)
	}
	return nil
}

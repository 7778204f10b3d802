/*
 * @module service/transformation/schema_mapper
 * @description 字段映射器，将源表列名匹配到目标模式，支持精确/模糊/同义词/词缀匹配
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/ingestion_requirements.md
 * @stateFlow 建议生成 -> 方案校验 -> 映射应用（重命名/选择/类型转换）
 * @rules 一个目标列只接受一个来源；置信度超过0.9自动采纳；类型转换成功率低于0.95视为不可转换
 * @dependencies github.com/spf13/cast, strings
 * @refs service/ingestion/type_inference.go, service/models/transform_models.go
 */

package transformation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"dataset-ingestion-service/service/ingestion"
	"dataset-ingestion-service/service/models"
)

const (
	// DefaultMappingThreshold 建议纳入的最低置信度
	DefaultMappingThreshold = 0.6

	// autoAcceptThreshold 自动采纳阈值
	autoAcceptThreshold = 0.9

	synonymBoost = 0.2
	affixBoost   = 0.15
)

// 常见缩写同义词组
var synonymGroups = [][]string{
	{"qty", "quantity"},
	{"amt", "amount"},
	{"num", "no", "number"},
	{"desc", "description"},
	{"addr", "address"},
	{"dob", "date_of_birth", "birth_date"},
	{"id", "identifier"},
	{"tel", "phone", "telephone"},
	{"fname", "first_name"},
	{"lname", "last_name"},
	{"avg", "average"},
	{"pct", "percent", "percentage"},
	{"dt", "date"},
	{"ts", "timestamp"},
}

// 匹配时可剥离的常见词缀
var strippableAffixes = []string{"_id", "_name", "_code", "_date", "_at", "src_", "dst_", "tgt_", "raw_"}

// SchemaMapper 字段映射器
type SchemaMapper struct {
	inference *ingestion.TypeInferenceEngine
	threshold float64
}

// NewSchemaMapper 创建字段映射器
func NewSchemaMapper() *SchemaMapper {
	return &SchemaMapper{
		inference: ingestion.NewTypeInferenceEngine(),
		threshold: DefaultMappingThreshold,
	}
}

// SetThreshold 调整建议纳入的最低置信度
func (m *SchemaMapper) SetThreshold(threshold float64) {
	if threshold > 0 && threshold <= 1 {
		m.threshold = threshold
	}
}

// SuggestMapping 为源列生成到目标列的映射建议
// 精确匹配优先，其余按模糊相似度加同义词/词缀加成贪心分配
func (m *SchemaMapper) SuggestMapping(sourceColumns, targetColumns []string) *models.MappingPlan {
	plan := &models.MappingPlan{}
	usedTargets := make(map[string]bool, len(targetColumns))
	mappedSources := make(map[string]bool, len(sourceColumns))

	// 第一轮: 规范化后的精确匹配
	for _, src := range sourceColumns {
		for _, tgt := range targetColumns {
			if usedTargets[tgt] {
				continue
			}
			if canonical(src) == canonical(tgt) {
				plan.Suggestions = append(plan.Suggestions, models.MappingSuggestion{
					SourceColumn: src,
					TargetColumn: tgt,
					Confidence:   1.0,
					MatchType:    "exact",
					AutoAccepted: true,
				})
				usedTargets[tgt] = true
				mappedSources[src] = true
				break
			}
		}
	}

	// 第二轮: 模糊匹配候选打分后按分数贪心分配
	type candidate struct {
		src, tgt  string
		score     float64
		matchType string
	}
	var candidates []candidate
	for _, src := range sourceColumns {
		if mappedSources[src] {
			continue
		}
		for _, tgt := range targetColumns {
			if usedTargets[tgt] {
				continue
			}
			score, matchType := m.score(src, tgt)
			if score >= m.threshold {
				candidates = append(candidates, candidate{src: src, tgt: tgt, score: score, matchType: matchType})
			}
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		if candidates[i].src != candidates[j].src {
			return candidates[i].src < candidates[j].src
		}
		return candidates[i].tgt < candidates[j].tgt
	})
	for _, c := range candidates {
		if mappedSources[c.src] || usedTargets[c.tgt] {
			continue
		}
		plan.Suggestions = append(plan.Suggestions, models.MappingSuggestion{
			SourceColumn: c.src,
			TargetColumn: c.tgt,
			Confidence:   round2(c.score),
			MatchType:    c.matchType,
			AutoAccepted: c.score > autoAcceptThreshold,
		})
		mappedSources[c.src] = true
		usedTargets[c.tgt] = true
	}

	for _, src := range sourceColumns {
		if !mappedSources[src] {
			plan.Unmapped = append(plan.Unmapped, src)
		}
	}
	for _, tgt := range targetColumns {
		if !usedTargets[tgt] {
			plan.MissingTargets = append(plan.MissingTargets, tgt)
		}
	}
	return plan
}

// score 计算一对列名的匹配分数和匹配方式
func (m *SchemaMapper) score(src, tgt string) (float64, string) {
	a, b := canonical(src), canonical(tgt)
	base := similarity(a, b)
	matchType := "fuzzy"

	if isSynonymPair(a, b) {
		base += synonymBoost
		matchType = "synonym"
	} else if affixStripped(a) == affixStripped(b) && affixStripped(a) != "" {
		base += affixBoost
		matchType = "affix"
	}

	if base > 1.0 {
		base = 1.0
	}
	return base, matchType
}

// canonical 列名规范化: 小写 + 分隔符统一为下划线
func canonical(name string) string {
	return strings.Join(splitWords(name), "_")
}

// affixStripped 剥离常见词缀
func affixStripped(name string) string {
	for _, affix := range strippableAffixes {
		if strings.HasPrefix(affix, "_") && strings.HasSuffix(name, affix) {
			return strings.TrimSuffix(name, affix)
		}
		if strings.HasSuffix(affix, "_") && strings.HasPrefix(name, affix) {
			return strings.TrimPrefix(name, affix)
		}
	}
	return name
}

// isSynonymPair 两个名称是否属于同一同义词组
func isSynonymPair(a, b string) bool {
	for _, group := range synonymGroups {
		inA, inB := false, false
		for _, word := range group {
			if a == word {
				inA = true
			}
			if b == word {
				inB = true
			}
		}
		if inA && inB && a != b {
			return true
		}
	}
	return false
}

// similarity Ratcliff/Obershelp 相似度: 2*匹配字符数 / 总长度
func similarity(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	matches := matchingBlocks([]rune(a), []rune(b))
	return 2.0 * float64(matches) / float64(len([]rune(a))+len([]rune(b)))
}

// matchingBlocks 递归找最长公共子串并统计两侧剩余部分的匹配
func matchingBlocks(a, b []rune) int {
	ai, bi, size := longestCommonSubstring(a, b)
	if size == 0 {
		return 0
	}
	total := size
	total += matchingBlocks(a[:ai], b[:bi])
	total += matchingBlocks(a[ai+size:], b[bi+size:])
	return total
}

func longestCommonSubstring(a, b []rune) (int, int, int) {
	bestA, bestB, bestLen := 0, 0, 0
	// 动态规划滚动数组
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
				if curr[j] > bestLen {
					bestLen = curr[j]
					bestA = i - bestLen
					bestB = j - bestLen
				}
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
	}
	return bestA, bestB, bestLen
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}

// MappingOptions 映射应用选项
type MappingOptions struct {
	// 目标列缺少来源时是否补空列，false 时报错
	FillMissingWithNull bool
	// 目标列类型，列名 -> 类型名；为空时不做类型转换
	TargetTypes map[string]string
	// 转换可行性不足时是否仍然尽力转换
	ForceConversion bool
}

// ValidateMapping 校验映射方案的合法性
func (m *SchemaMapper) ValidateMapping(table *models.Table, mapping map[string]string) error {
	usedTargets := make(map[string]string, len(mapping))
	for src, tgt := range mapping {
		if !table.HasColumn(src) {
			return fmt.Errorf("%w: 源列不存在: %s", ErrMappingValidation, src)
		}
		if tgt == "" {
			return fmt.Errorf("%w: 源列 %s 的目标列为空", ErrMappingValidation, src)
		}
		if prev, dup := usedTargets[tgt]; dup {
			return fmt.Errorf("%w: 目标列 %s 被 %s 和 %s 重复映射", ErrMappingValidation, tgt, prev, src)
		}
		usedTargets[tgt] = src
	}
	return nil
}

// ApplyMapping 按映射方案和目标模式重排表
// targetColumns 定义输出列及顺序；mapping 为 源列 -> 目标列
func (m *SchemaMapper) ApplyMapping(table *models.Table, mapping map[string]string, targetColumns []string, opts MappingOptions) (*models.Table, *models.CleaningReport, error) {
	if err := m.ValidateMapping(table, mapping); err != nil {
		return nil, nil, err
	}

	// 目标列 -> 源列
	reverse := make(map[string]string, len(mapping))
	for src, tgt := range mapping {
		reverse[tgt] = src
	}

	report := &models.CleaningReport{
		Operation: "apply_mapping",
		Changes:   map[string]interface{}{"mapped_columns": len(mapping)},
	}

	var nullFilled []string
	result := models.NewTable(targetColumns)
	for i := 0; i < table.RowCount(); i++ {
		row := make([]models.CellValue, len(targetColumns))
		for j, tgt := range targetColumns {
			src, ok := reverse[tgt]
			if !ok {
				row[j] = models.NullCell()
				continue
			}
			row[j] = table.Rows[i][table.ColumnIndex(src)]
		}
		result.AppendRow(row)
	}

	for _, tgt := range targetColumns {
		if _, ok := reverse[tgt]; !ok {
			if !opts.FillMissingWithNull {
				return nil, nil, fmt.Errorf("%w: 目标列 %s 没有来源", ErrSchemaMapping, tgt)
			}
			nullFilled = append(nullFilled, tgt)
		}
	}
	if len(nullFilled) > 0 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("目标列无来源，已补空值: %s", strings.Join(nullFilled, ", ")))
		report.Changes["null_filled"] = nullFilled
	}

	// 类型转换
	converted := 0
	for tgt, targetType := range opts.TargetTypes {
		idx := result.ColumnIndex(tgt)
		if idx < 0 {
			continue
		}
		values, _ := result.Column(tgt)
		check := m.inference.CheckConversion(values, tgt, targetType)
		if !check.Convertible && !opts.ForceConversion {
			return nil, nil, fmt.Errorf("%w: 列 %s 转换为 %s 的成功率 %.2f 低于阈值",
				ErrSchemaMapping, tgt, targetType, check.SuccessRate)
		}
		failures := 0
		for _, row := range result.Rows {
			cell, ok := convertCell(row[idx], targetType)
			if !ok {
				failures++
				row[idx] = models.NullCell()
				continue
			}
			row[idx] = cell
			converted++
		}
		if failures > 0 {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("列 %s 有 %d 个值无法转换为 %s，置为空", tgt, failures, targetType))
		}
	}
	if len(opts.TargetTypes) > 0 {
		report.Changes["cells_converted"] = converted
	}

	report.Summary = fmt.Sprintf("映射 %d 列到目标模式", len(mapping))
	return result, report, nil
}

// convertCell 单元格转换到目标类型
func convertCell(c models.CellValue, targetType string) (models.CellValue, bool) {
	if c.IsNull() {
		return c, true
	}
	switch targetType {
	case "integer":
		f, ok := numericCell(c)
		if !ok || f != float64(int64(f)) {
			return c, false
		}
		return models.IntCell(int64(f)), true
	case "float":
		f, ok := numericCell(c)
		if !ok {
			return c, false
		}
		return models.FloatCell(f), true
	case "boolean":
		switch strings.ToLower(strings.TrimSpace(c.String())) {
		case "true", "t", "yes", "y", "1":
			return models.BoolCell(true), true
		case "false", "f", "no", "n", "0":
			return models.BoolCell(false), true
		}
		return c, false
	case "date", "datetime":
		if c.Kind() == models.CellTime {
			return c, true
		}
		if t, ok := parseAnyTime(c.String()); ok {
			return models.TimeCell(t), true
		}
		return c, false
	case "string":
		return models.StringCell(c.String()), true
	default:
		return c, false
	}
}

// parseAnyTime 宽松时间解析
func parseAnyTime(s string) (time.Time, bool) {
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
		"2006/01/02",
		"01/02/2006",
		"02/01/2006",
	}
	trimmed := strings.TrimSpace(s)
	for _, layout := range layouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

/*
 * @module service/transformation/cleaner
 * @description 数据清洗器，提供去重、空白修剪、缺失值处理、离群值剔除、数值清洗等操作
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/ingestion_requirements.md
 * @stateFlow 每个操作接收内存表，返回新表和独立的清洗报告
 * @rules 操作不修改输入表；零方差列的离群值剔除降级为告警不动数据
 * @dependencies github.com/spf13/cast, math, sort, strings
 * @refs service/models/table.go, service/transformation/pipeline.go
 */

package transformation

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"dataset-ingestion-service/service/models"
	"dataset-ingestion-service/service/utils"

	"github.com/spf13/cast"
)

// 缺失值处理策略
const (
	MissingDrop     = "drop"     // 删除指定列中有空值的行
	MissingDropAll  = "drop_all" // 删除所有列都为空的行
	MissingFillMean = "fill_mean"
	MissingFillMedian = "fill_median"
	MissingFillMode   = "fill_mode"
	MissingFillForward  = "fill_forward"
	MissingFillBackward = "fill_backward"
	MissingFillValue    = "fill_value"
	MissingInterpolate  = "interpolate"
)

// 离群值检测方法
const (
	OutlierIQR    = "iqr"
	OutlierZScore = "zscore"

	defaultIQRFactor    = 1.5
	defaultZScoreCutoff = 3.0
)

// 数值清洗默认剔除的字符: 千分位、货币符号、空格、百分号
var defaultStripChars = []string{",", "€", "£", "¥", "₹", "$", " ", "%"}

// Cleaner 数据清洗器
type Cleaner struct{}

// NewCleaner 创建清洗器
func NewCleaner() *Cleaner {
	return &Cleaner{}
}

// 去重保留策略
const (
	KeepFirst = "first"
	KeepLast  = "last"
)

// RemoveDuplicates 去除重复行
// subset 非空时只按指定列判断重复；keep 为空时保留第一次出现的行
func (c *Cleaner) RemoveDuplicates(table *models.Table, subset []string, keep string) (*models.Table, *models.CleaningReport, error) {
	indexes, err := resolveColumns(table, subset)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCleaning, err)
	}
	if keep == "" {
		keep = KeepFirst
	}
	if keep != KeepFirst && keep != KeepLast {
		return nil, nil, fmt.Errorf("%w: 未知去重保留策略 %s", ErrCleaning, keep)
	}

	rowKey := func(row []models.CellValue) string {
		var keyParts []string
		for _, idx := range indexes {
			keyParts = append(keyParts, row[idx].String())
		}
		return strings.Join(keyParts, "\x1f")
	}

	result := models.NewTable(table.Columns)
	removed := 0
	if keep == KeepFirst {
		seen := make(map[string]bool, len(table.Rows))
		for _, row := range table.Rows {
			key := rowKey(row)
			if seen[key] {
				removed++
				continue
			}
			seen[key] = true
			result.AppendRow(row)
		}
	} else {
		lastIdx := make(map[string]int, len(table.Rows))
		for i, row := range table.Rows {
			lastIdx[rowKey(row)] = i
		}
		for i, row := range table.Rows {
			if lastIdx[rowKey(row)] != i {
				removed++
				continue
			}
			result.AppendRow(row)
		}
	}

	report := &models.CleaningReport{
		Operation: "remove_duplicates",
		Summary:   fmt.Sprintf("去除 %d 个重复行", removed),
		Changes: map[string]interface{}{
			"rows_removed": removed,
			"rows_before":  table.RowCount(),
			"rows_after":   result.RowCount(),
			"keep":         keep,
		},
	}
	return result, report, nil
}

// TrimWhitespace 修剪字符串单元格的首尾空白
// columns 为空时处理所有列
func (c *Cleaner) TrimWhitespace(table *models.Table, columns []string) (*models.Table, *models.CleaningReport, error) {
	indexes, err := resolveColumns(table, columns)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCleaning, err)
	}

	result := table.Clone()
	changed := 0
	for _, row := range result.Rows {
		for _, idx := range indexes {
			cell := row[idx]
			if cell.Kind() != models.CellString {
				continue
			}
			trimmed := strings.TrimSpace(cell.Str())
			if trimmed != cell.Str() {
				row[idx] = models.StringCell(trimmed)
				changed++
			}
		}
	}

	report := &models.CleaningReport{
		Operation: "trim_whitespace",
		Summary:   fmt.Sprintf("修剪 %d 个单元格的空白", changed),
		Changes:   map[string]interface{}{"cells_trimmed": changed},
	}
	return result, report, nil
}

// HandleMissing 按策略处理缺失值
func (c *Cleaner) HandleMissing(table *models.Table, strategy string, columns []string, fillValue interface{}) (*models.Table, *models.CleaningReport, error) {
	indexes, err := resolveColumns(table, columns)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCleaning, err)
	}

	report := &models.CleaningReport{
		Operation: "handle_missing",
		Changes:   map[string]interface{}{"strategy": strategy},
	}

	switch strategy {
	case MissingDrop:
		result := models.NewTable(table.Columns)
		dropped := 0
		for _, row := range table.Rows {
			hasNull := false
			for _, idx := range indexes {
				if row[idx].IsNull() {
					hasNull = true
					break
				}
			}
			if hasNull {
				dropped++
				continue
			}
			result.AppendRow(row)
		}
		report.Summary = fmt.Sprintf("删除 %d 个含空值的行", dropped)
		report.Changes["rows_dropped"] = dropped
		return result, report, nil

	case MissingDropAll:
		result := models.NewTable(table.Columns)
		dropped := 0
		for _, row := range table.Rows {
			allNull := true
			for _, idx := range indexes {
				if !row[idx].IsNull() {
					allNull = false
					break
				}
			}
			if allNull {
				dropped++
				continue
			}
			result.AppendRow(row)
		}
		report.Summary = fmt.Sprintf("删除 %d 个全空行", dropped)
		report.Changes["rows_dropped"] = dropped
		return result, report, nil

	case MissingFillMean, MissingFillMedian:
		result := table.Clone()
		filled := 0
		for _, idx := range indexes {
			nums := numericColumn(result, idx)
			if len(nums) == 0 {
				report.Warnings = append(report.Warnings,
					fmt.Sprintf("列 %s 没有数值可计算填充值", result.Columns[idx]))
				continue
			}
			var fill float64
			if strategy == MissingFillMean {
				sum := 0.0
				for _, n := range nums {
					sum += n
				}
				fill = sum / float64(len(nums))
			} else {
				sorted := append([]float64(nil), nums...)
				sort.Float64s(sorted)
				fill = medianOfSorted(sorted)
			}
			for _, row := range result.Rows {
				if row[idx].IsNull() {
					row[idx] = models.FloatCell(fill)
					filled++
				}
			}
		}
		report.Summary = fmt.Sprintf("填充 %d 个缺失值", filled)
		report.Changes["cells_filled"] = filled
		return result, report, nil

	case MissingFillMode:
		result := table.Clone()
		filled := 0
		for _, idx := range indexes {
			counts := make(map[string]int)
			var modeCell models.CellValue
			modeCount := 0
			for _, row := range result.Rows {
				if row[idx].IsNull() {
					continue
				}
				key := row[idx].String()
				counts[key]++
				if counts[key] > modeCount {
					modeCount = counts[key]
					modeCell = row[idx]
				}
			}
			if modeCount == 0 {
				report.Warnings = append(report.Warnings,
					fmt.Sprintf("列 %s 全为空，无法计算众数", result.Columns[idx]))
				continue
			}
			for _, row := range result.Rows {
				if row[idx].IsNull() {
					row[idx] = modeCell
					filled++
				}
			}
		}
		report.Summary = fmt.Sprintf("众数填充 %d 个缺失值", filled)
		report.Changes["cells_filled"] = filled
		return result, report, nil

	case MissingFillForward, MissingFillBackward:
		result := table.Clone()
		filled := 0
		for _, idx := range indexes {
			if strategy == MissingFillForward {
				var last models.CellValue
				hasLast := false
				for _, row := range result.Rows {
					if row[idx].IsNull() {
						if hasLast {
							row[idx] = last
							filled++
						}
					} else {
						last = row[idx]
						hasLast = true
					}
				}
			} else {
				var next models.CellValue
				hasNext := false
				for i := len(result.Rows) - 1; i >= 0; i-- {
					row := result.Rows[i]
					if row[idx].IsNull() {
						if hasNext {
							row[idx] = next
							filled++
						}
					} else {
						next = row[idx]
						hasNext = true
					}
				}
			}
		}
		report.Summary = fmt.Sprintf("方向填充 %d 个缺失值", filled)
		report.Changes["cells_filled"] = filled
		return result, report, nil

	case MissingFillValue:
		if fillValue == nil {
			return nil, nil, fmt.Errorf("%w: fill_value 策略需要填充值", ErrCleaning)
		}
		result := table.Clone()
		fill := cellFromAny(fillValue)
		filled := 0
		for _, row := range result.Rows {
			for _, idx := range indexes {
				if row[idx].IsNull() {
					row[idx] = fill
					filled++
				}
			}
		}
		report.Summary = fmt.Sprintf("固定值填充 %d 个缺失值", filled)
		report.Changes["cells_filled"] = filled
		report.Changes["fill_value"] = fillValue
		return result, report, nil

	case MissingInterpolate:
		result := table.Clone()
		filled := 0
		for _, idx := range indexes {
			filled += interpolateColumn(result, idx)
		}
		report.Summary = fmt.Sprintf("线性插值填充 %d 个缺失值", filled)
		report.Changes["cells_filled"] = filled
		return result, report, nil

	default:
		return nil, nil, fmt.Errorf("%w: 未知缺失值策略 %s", ErrCleaning, strategy)
	}
}

// interpolateColumn 对单列做线性插值，只填充两个已知数值之间的空洞
func interpolateColumn(table *models.Table, idx int) int {
	filled := 0
	n := len(table.Rows)
	i := 0
	for i < n {
		if !table.Rows[i][idx].IsNull() {
			i++
			continue
		}
		// 空洞区间 [start, end)
		start := i
		for i < n && table.Rows[i][idx].IsNull() {
			i++
		}
		end := i
		if start == 0 || end >= n {
			continue
		}
		prev, okPrev := numericCell(table.Rows[start-1][idx])
		next, okNext := numericCell(table.Rows[end][idx])
		if !okPrev || !okNext {
			continue
		}
		span := float64(end - start + 1)
		for j := start; j < end; j++ {
			frac := float64(j-start+1) / span
			table.Rows[j][idx] = models.FloatCell(prev + (next-prev)*frac)
			filled++
		}
	}
	return filled
}

// RemoveOutliers 按 IQR 或 Z 分数剔除离群行
// 零方差列无法判断离群值，降级为告警
func (c *Cleaner) RemoveOutliers(table *models.Table, method string, columns []string, factor float64) (*models.Table, *models.CleaningReport, error) {
	indexes, err := resolveColumns(table, columns)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCleaning, err)
	}

	report := &models.CleaningReport{
		Operation: "remove_outliers",
		Changes:   map[string]interface{}{"method": method},
	}

	type bound struct {
		idx      int
		lo, hi   float64
		disabled bool
	}
	var bounds []bound

	for _, idx := range indexes {
		nums := numericColumn(table, idx)
		if len(nums) < 2 {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("列 %s 数值样本不足，跳过离群检测", table.Columns[idx]))
			bounds = append(bounds, bound{idx: idx, disabled: true})
			continue
		}

		switch method {
		case OutlierIQR:
			if factor <= 0 {
				factor = defaultIQRFactor
			}
			sorted := append([]float64(nil), nums...)
			sort.Float64s(sorted)
			q1 := percentileOfSorted(sorted, 25)
			q3 := percentileOfSorted(sorted, 75)
			iqr := q3 - q1
			if iqr == 0 {
				report.Warnings = append(report.Warnings,
					fmt.Sprintf("列 %s 四分位距为零，跳过离群检测", table.Columns[idx]))
				bounds = append(bounds, bound{idx: idx, disabled: true})
				continue
			}
			bounds = append(bounds, bound{idx: idx, lo: q1 - factor*iqr, hi: q3 + factor*iqr})

		case OutlierZScore:
			if factor <= 0 {
				factor = defaultZScoreCutoff
			}
			mean, std := meanStd(nums)
			if std == 0 {
				report.Warnings = append(report.Warnings,
					fmt.Sprintf("列 %s 方差为零，跳过离群检测", table.Columns[idx]))
				bounds = append(bounds, bound{idx: idx, disabled: true})
				continue
			}
			bounds = append(bounds, bound{idx: idx, lo: mean - factor*std, hi: mean + factor*std})

		default:
			return nil, nil, fmt.Errorf("%w: 未知离群检测方法 %s", ErrCleaning, method)
		}
	}

	result := models.NewTable(table.Columns)
	removed := 0
	for _, row := range table.Rows {
		outlier := false
		for _, b := range bounds {
			if b.disabled {
				continue
			}
			f, ok := numericCell(row[b.idx])
			if !ok {
				continue
			}
			if f < b.lo || f > b.hi {
				outlier = true
				break
			}
		}
		if outlier {
			removed++
			continue
		}
		result.AppendRow(row)
	}

	report.Summary = fmt.Sprintf("剔除 %d 个离群行", removed)
	report.Changes["rows_removed"] = removed
	report.Changes["rows_after"] = result.RowCount()
	return result, report, nil
}

// CleanNumeric 剥离货币符号、千分位等噪声字符后解析为数值
// stripChars 为空时使用默认字符集
func (c *Cleaner) CleanNumeric(table *models.Table, columns []string, stripChars []string) (*models.Table, *models.CleaningReport, error) {
	indexes, err := resolveColumns(table, columns)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCleaning, err)
	}
	if len(stripChars) == 0 {
		stripChars = defaultStripChars
	}

	result := table.Clone()
	converted, failed := 0, 0
	for _, row := range result.Rows {
		for _, idx := range indexes {
			cell := row[idx]
			if cell.Kind() != models.CellString {
				continue
			}
			cleaned := cell.Str()
			for _, ch := range stripChars {
				cleaned = strings.ReplaceAll(cleaned, ch, "")
			}
			cleaned = strings.TrimSpace(cleaned)
			if cleaned == "" {
				row[idx] = models.NullCell()
				continue
			}
			f, err := strconv.ParseFloat(cleaned, 64)
			if err != nil {
				failed++
				continue
			}
			if f == math.Trunc(f) && math.Abs(f) < 1e15 {
				row[idx] = models.IntCell(int64(f))
			} else {
				row[idx] = models.FloatCell(f)
			}
			converted++
		}
	}

	report := &models.CleaningReport{
		Operation: "clean_numeric",
		Summary:   fmt.Sprintf("转换 %d 个数值, %d 个无法解析", converted, failed),
		Changes: map[string]interface{}{
			"cells_converted": converted,
			"cells_failed":    failed,
		},
	}
	if failed > 0 {
		report.Warnings = append(report.Warnings, fmt.Sprintf("%d 个值清洗后仍无法解析为数值", failed))
	}
	return result, report, nil
}

// NormalizeDates 将日期列统一为目标格式的字符串表示
// layout 为空时使用 ISO 日期格式；无法解析的值保持原样并计数
func (c *Cleaner) NormalizeDates(table *models.Table, columns []string, layout string) (*models.Table, *models.CleaningReport, error) {
	indexes, err := resolveColumns(table, columns)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCleaning, err)
	}
	if layout == "" {
		layout = "2006-01-02"
	}

	result := table.Clone()
	converted, failed := 0, 0
	for _, row := range result.Rows {
		for _, idx := range indexes {
			cell := row[idx]
			switch cell.Kind() {
			case models.CellTime:
				row[idx] = models.StringCell(cell.Time().Format(layout))
				converted++
			case models.CellString:
				parsed, ok := parseAnyTime(cell.Str())
				if !ok {
					failed++
					continue
				}
				row[idx] = models.StringCell(parsed.Format(layout))
				converted++
			}
		}
	}

	report := &models.CleaningReport{
		Operation: "normalize_dates",
		Summary:   fmt.Sprintf("统一 %d 个日期, %d 个无法解析", converted, failed),
		Changes: map[string]interface{}{
			"cells_converted": converted,
			"cells_failed":    failed,
			"layout":          layout,
		},
	}
	if failed > 0 {
		report.Warnings = append(report.Warnings, fmt.Sprintf("%d 个值无法按已知格式解析为日期", failed))
	}
	return result, report, nil
}

// StandardizeCase 统一字符串大小写: lower, upper, title, capitalize
func (c *Cleaner) StandardizeCase(table *models.Table, columns []string, mode string) (*models.Table, *models.CleaningReport, error) {
	indexes, err := resolveColumns(table, columns)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCleaning, err)
	}

	var convert func(string) string
	switch mode {
	case "lower":
		convert = strings.ToLower
	case "upper":
		convert = strings.ToUpper
	case "title":
		convert = titleCase
	case "capitalize":
		convert = capitalizeCase
	default:
		return nil, nil, fmt.Errorf("%w: 未知大小写模式 %s", ErrCleaning, mode)
	}

	result := table.Clone()
	changed := 0
	for _, row := range result.Rows {
		for _, idx := range indexes {
			cell := row[idx]
			if cell.Kind() != models.CellString {
				continue
			}
			converted := convert(cell.Str())
			if converted != cell.Str() {
				row[idx] = models.StringCell(converted)
				changed++
			}
		}
	}

	report := &models.CleaningReport{
		Operation: "standardize_case",
		Summary:   fmt.Sprintf("统一 %d 个单元格的大小写", changed),
		Changes:   map[string]interface{}{"cells_changed": changed, "mode": mode},
	}
	return result, report, nil
}

// ReplaceValues 按映射表替换单元格取值
func (c *Cleaner) ReplaceValues(table *models.Table, column string, mapping map[string]interface{}) (*models.Table, *models.CleaningReport, error) {
	idx := table.ColumnIndex(column)
	if idx < 0 {
		return nil, nil, fmt.Errorf("%w: 列不存在: %s", ErrCleaning, column)
	}

	result := table.Clone()
	replaced := 0
	for _, row := range result.Rows {
		if row[idx].IsNull() {
			continue
		}
		if newVal, ok := mapping[row[idx].String()]; ok {
			row[idx] = cellFromAny(newVal)
			replaced++
		}
	}

	report := &models.CleaningReport{
		Operation: "replace_values",
		Summary:   fmt.Sprintf("替换 %d 个取值", replaced),
		Changes:   map[string]interface{}{"cells_replaced": replaced, "column": column},
	}
	return result, report, nil
}

// MaskSensitive 对指定列做敏感数据脱敏
// maskTypes 按列名指定脱敏类型(email/phone/idcard/bankcard/name)，未指定的列自动检测
func (c *Cleaner) MaskSensitive(table *models.Table, columns []string, maskTypes map[string]string) (*models.Table, *models.CleaningReport, error) {
	if len(columns) == 0 {
		return nil, nil, fmt.Errorf("%w: mask_sensitive 需要指定列", ErrCleaning)
	}
	indexes, err := resolveColumns(table, columns)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCleaning, err)
	}

	crypto := utils.NewCryptoUtils()
	result := table.Clone()
	masked := 0
	for _, row := range result.Rows {
		for i, idx := range indexes {
			cell := row[idx]
			if cell.IsNull() || cell.Kind() != models.CellString {
				continue
			}
			maskType := maskTypes[columns[i]]
			out := crypto.MaskValue(cell.Str(), maskType)
			if out != cell.Str() {
				row[idx] = models.StringCell(out)
				masked++
			}
		}
	}

	report := &models.CleaningReport{
		Operation: "mask_sensitive",
		Summary:   fmt.Sprintf("脱敏 %d 个单元格", masked),
		Changes: map[string]interface{}{
			"cells_masked": masked,
			"columns":      columns,
		},
	}
	return result, report, nil
}

// RenameColumns 按映射表重命名列，未出现在映射中的列保持不变
func (c *Cleaner) RenameColumns(table *models.Table, mapping map[string]string) (*models.Table, *models.CleaningReport, error) {
	if len(mapping) == 0 {
		return nil, nil, fmt.Errorf("%w: rename_columns 需要重命名映射", ErrCleaning)
	}

	result := table.Clone()
	renamed := map[string]interface{}{}
	for old, updated := range mapping {
		if updated == "" {
			return nil, nil, fmt.Errorf("%w: 列 %s 的新名称不能为空", ErrCleaning, old)
		}
		if other := result.ColumnIndex(updated); other >= 0 && result.Columns[other] != old {
			return nil, nil, fmt.Errorf("%w: 新列名已存在: %s", ErrCleaning, updated)
		}
		if err := result.RenameColumn(old, updated); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrCleaning, err)
		}
		renamed[old] = updated
	}

	report := &models.CleaningReport{
		Operation: "rename_columns",
		Summary:   fmt.Sprintf("重命名 %d 列", len(renamed)),
		Changes:   map[string]interface{}{"renames": renamed},
	}
	return result, report, nil
}

// DropColumns 删除指定列
func (c *Cleaner) DropColumns(table *models.Table, columns []string) (*models.Table, *models.CleaningReport, error) {
	result := table.Clone()
	var dropped []string
	for _, col := range columns {
		if err := result.DropColumn(col); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrCleaning, err)
		}
		dropped = append(dropped, col)
	}

	report := &models.CleaningReport{
		Operation: "drop_columns",
		Summary:   fmt.Sprintf("删除 %d 列", len(dropped)),
		Changes:   map[string]interface{}{"columns_dropped": dropped},
	}
	return result, report, nil
}

// ---------- 内部工具 ----------

// resolveColumns 列名解析为下标，空列表表示全部列
func resolveColumns(table *models.Table, columns []string) ([]int, error) {
	if len(columns) == 0 {
		indexes := make([]int, len(table.Columns))
		for i := range table.Columns {
			indexes[i] = i
		}
		return indexes, nil
	}
	indexes := make([]int, 0, len(columns))
	for _, col := range columns {
		idx := table.ColumnIndex(col)
		if idx < 0 {
			return nil, fmt.Errorf("列不存在: %s", col)
		}
		indexes = append(indexes, idx)
	}
	return indexes, nil
}

func numericCell(c models.CellValue) (float64, bool) {
	switch c.Kind() {
	case models.CellInt:
		return float64(c.Int()), true
	case models.CellFloat:
		f := c.Float()
		if math.IsNaN(f) {
			return 0, false
		}
		return f, true
	case models.CellString:
		f, err := strconv.ParseFloat(strings.TrimSpace(c.Str()), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func numericColumn(table *models.Table, idx int) []float64 {
	nums := make([]float64, 0, len(table.Rows))
	for _, row := range table.Rows {
		if f, ok := numericCell(row[idx]); ok {
			nums = append(nums, f)
		}
	}
	return nums
}

func meanStd(nums []float64) (float64, float64) {
	sum := 0.0
	for _, n := range nums {
		sum += n
	}
	mean := sum / float64(len(nums))
	variance := 0.0
	for _, n := range nums {
		variance += (n - mean) * (n - mean)
	}
	if len(nums) > 1 {
		return mean, math.Sqrt(variance / float64(len(nums)-1))
	}
	return mean, 0
}

func medianOfSorted(sorted []float64) float64 {
	return percentileOfSorted(sorted, 50)
}

// percentileOfSorted 线性插值分位数
func percentileOfSorted(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	frac := rank - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

// cellFromAny 宽松地将任意标量转为单元格
func cellFromAny(v interface{}) models.CellValue {
	switch val := v.(type) {
	case nil:
		return models.NullCell()
	case bool:
		return models.BoolCell(val)
	case int:
		return models.IntCell(int64(val))
	case int64:
		return models.IntCell(val)
	case float64:
		return models.FloatCell(val)
	case string:
		return models.StringCell(val)
	default:
		return models.StringCell(cast.ToString(v))
	}
}

// capitalizeCase 首字母大写，其余小写
func capitalizeCase(s string) string {
	r := []rune(strings.ToLower(s))
	if len(r) == 0 {
		return s
	}
	return strings.ToUpper(string(r[0])) + string(r[1:])
}

// titleCase 每个单词首字母大写
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		if len(r) > 0 {
			words[i] = strings.ToUpper(string(r[0])) + string(r[1:])
		}
	}
	return strings.Join(words, " ")
}

/*
 * @module service/transformation/normalizer
 * @description 数据规范化器，负责列名规范化、数值缩放和分类编码
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/ingestion_requirements.md
 * @stateFlow 规范化操作接收内存表，返回新表、报告和可逆变换所需的拟合参数
 * @rules 列名冲突自动追加 _N 后缀；常量列缩放降级为告警；未见过的序数取值编码为 -1
 * @dependencies strings, unicode, sort, math
 * @refs service/models/table.go, service/transformation/pipeline.go
 */

package transformation

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"dataset-ingestion-service/service/models"
)

// 列名规范化风格
const (
	NameStyleSnake  = "snake"
	NameStyleCamel  = "camel"
	NameStylePascal = "pascal"
	NameStyleLower  = "lower"
	NameStyleUpper  = "upper"
)

// 数值缩放方法
const (
	ScaleMinMax   = "minmax"
	ScaleStandard = "standard"
	ScaleRobust   = "robust"
	ScaleMaxAbs   = "maxabs"
)

// 分类编码方法
const (
	EncodeOneHot  = "onehot"
	EncodeLabel   = "label"
	EncodeOrdinal = "ordinal"
)

// Normalizer 数据规范化器
type Normalizer struct{}

// NewNormalizer 创建规范化器
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// NormalizeColumnNames 按指定风格规范化所有列名
// 返回的报告 Changes 中带有 原列名 -> 新列名 的完整映射
func (n *Normalizer) NormalizeColumnNames(table *models.Table, style string) (*models.Table, *models.CleaningReport, error) {
	switch style {
	case NameStyleSnake, NameStyleCamel, NameStylePascal, NameStyleLower, NameStyleUpper:
	case "":
		style = NameStyleSnake
	default:
		return nil, nil, fmt.Errorf("%w: 未知列名风格 %s", ErrNormalization, style)
	}

	result := table.Clone()
	mapping := make(map[string]string, len(result.Columns))
	used := make(map[string]bool, len(result.Columns))
	renamed := 0

	for i, col := range result.Columns {
		name := normalizeName(col, style)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		// 冲突时追加 _N 后缀
		if used[name] {
			for suffix := 2; ; suffix++ {
				candidate := fmt.Sprintf("%s_%d", name, suffix)
				if !used[candidate] {
					name = candidate
					break
				}
			}
		}
		used[name] = true
		mapping[col] = name
		if name != col {
			renamed++
		}
		result.Columns[i] = name
	}

	changes := make(map[string]interface{}, len(mapping)+1)
	renames := make(map[string]interface{}, len(mapping))
	for old, updated := range mapping {
		renames[old] = updated
	}
	changes["renames"] = renames
	changes["style"] = style

	report := &models.CleaningReport{
		Operation: "normalize_column_names",
		Summary:   fmt.Sprintf("规范化 %d 个列名", renamed),
		Changes:   changes,
	}
	return result, report, nil
}

// normalizeName 单个列名按风格转换
func normalizeName(name, style string) string {
	words := splitWords(name)
	if len(words) == 0 {
		return ""
	}

	switch style {
	case NameStyleSnake:
		return strings.Join(words, "_")
	case NameStyleCamel:
		var b strings.Builder
		for i, w := range words {
			if i == 0 {
				b.WriteString(w)
			} else {
				b.WriteString(capitalize(w))
			}
		}
		return b.String()
	case NameStylePascal:
		var b strings.Builder
		for _, w := range words {
			b.WriteString(capitalize(w))
		}
		return b.String()
	case NameStyleLower:
		return strings.ToLower(strings.Join(words, "_"))
	case NameStyleUpper:
		return strings.ToUpper(strings.Join(words, "_"))
	default:
		return strings.Join(words, "_")
	}
}

// splitWords 拆分列名为小写单词序列
// 非字母数字字符作为分隔，驼峰边界也切分
func splitWords(name string) []string {
	var words []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			words = append(words, strings.ToLower(current.String()))
			current.Reset()
		}
	}

	runes := []rune(name)
	for i, r := range runes {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			// 驼峰边界: 小写/数字后跟大写
			if unicode.IsUpper(r) && i > 0 &&
				(unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])) {
				flush()
			}
			current.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return words
}

func capitalize(w string) string {
	r := []rune(w)
	if len(r) == 0 {
		return w
	}
	return strings.ToUpper(string(r[0])) + string(r[1:])
}

// ScaleColumns 对数值列做缩放，返回每列的拟合参数用于逆变换
func (n *Normalizer) ScaleColumns(table *models.Table, columns []string, method string) (*models.Table, *models.CleaningReport, map[string]models.ScaleParams, error) {
	indexes, err := resolveColumns(table, columns)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", ErrNormalization, err)
	}

	result := table.Clone()
	params := make(map[string]models.ScaleParams, len(indexes))
	report := &models.CleaningReport{
		Operation: "scale_columns",
		Changes:   map[string]interface{}{"method": method},
	}
	scaled := 0

	for _, idx := range indexes {
		colName := result.Columns[idx]
		nums := numericColumn(result, idx)
		if len(nums) == 0 {
			report.Warnings = append(report.Warnings, fmt.Sprintf("列 %s 没有数值，跳过缩放", colName))
			continue
		}

		var apply func(float64) float64
		p := models.ScaleParams{Method: method}

		switch method {
		case ScaleMinMax:
			minV, maxV := nums[0], nums[0]
			for _, v := range nums {
				if v < minV {
					minV = v
				}
				if v > maxV {
					maxV = v
				}
			}
			p.Min, p.Max = minV, maxV
			if maxV == minV {
				report.Warnings = append(report.Warnings, fmt.Sprintf("列 %s 为常量，缩放结果置零", colName))
				apply = func(float64) float64 { return 0 }
			} else {
				apply = func(v float64) float64 { return (v - minV) / (maxV - minV) }
			}

		case ScaleStandard:
			mean, std := meanStd(nums)
			p.Mean, p.Std = mean, std
			if std == 0 {
				report.Warnings = append(report.Warnings, fmt.Sprintf("列 %s 方差为零，缩放结果置零", colName))
				apply = func(float64) float64 { return 0 }
			} else {
				apply = func(v float64) float64 { return (v - mean) / std }
			}

		case ScaleRobust:
			sorted := append([]float64(nil), nums...)
			sort.Float64s(sorted)
			median := medianOfSorted(sorted)
			iqr := percentileOfSorted(sorted, 75) - percentileOfSorted(sorted, 25)
			p.Median, p.IQR = median, iqr
			if iqr == 0 {
				report.Warnings = append(report.Warnings, fmt.Sprintf("列 %s 四分位距为零，缩放结果置零", colName))
				apply = func(float64) float64 { return 0 }
			} else {
				apply = func(v float64) float64 { return (v - median) / iqr }
			}

		case ScaleMaxAbs:
			maxAbs := 0.0
			for _, v := range nums {
				if math.Abs(v) > maxAbs {
					maxAbs = math.Abs(v)
				}
			}
			p.MaxAbs = maxAbs
			if maxAbs == 0 {
				report.Warnings = append(report.Warnings, fmt.Sprintf("列 %s 全为零，跳过缩放", colName))
				apply = func(v float64) float64 { return v }
			} else {
				apply = func(v float64) float64 { return v / maxAbs }
			}

		default:
			return nil, nil, nil, fmt.Errorf("%w: 未知缩放方法 %s", ErrNormalization, method)
		}

		for _, row := range result.Rows {
			if f, ok := numericCell(row[idx]); ok {
				row[idx] = models.FloatCell(apply(f))
				scaled++
			}
		}
		params[colName] = p
	}

	report.Summary = fmt.Sprintf("缩放 %d 个数值单元格", scaled)
	report.Changes["cells_scaled"] = scaled
	return result, report, params, nil
}

// InverseScale 按拟合参数还原缩放后的列
func (n *Normalizer) InverseScale(table *models.Table, column string, p models.ScaleParams) (*models.Table, error) {
	idx := table.ColumnIndex(column)
	if idx < 0 {
		return nil, fmt.Errorf("%w: 列不存在: %s", ErrNormalization, column)
	}

	var invert func(float64) float64
	switch p.Method {
	case ScaleMinMax:
		invert = func(v float64) float64 { return v*(p.Max-p.Min) + p.Min }
	case ScaleStandard:
		invert = func(v float64) float64 { return v*p.Std + p.Mean }
	case ScaleRobust:
		invert = func(v float64) float64 { return v*p.IQR + p.Median }
	case ScaleMaxAbs:
		invert = func(v float64) float64 { return v * p.MaxAbs }
	default:
		return nil, fmt.Errorf("%w: 未知缩放方法 %s", ErrNormalization, p.Method)
	}

	result := table.Clone()
	for _, row := range result.Rows {
		if f, ok := numericCell(row[idx]); ok {
			row[idx] = models.FloatCell(invert(f))
		}
	}
	return result, nil
}

// EncodeCategorical 分类列编码
// onehot 生成 列名_取值 的新列并删除原列；label 按取值排序映射为整数；
// ordinal 按调用方给定顺序映射，未见过的取值编码为 -1 并告警
func (n *Normalizer) EncodeCategorical(table *models.Table, column, method string, order []string) (*models.Table, *models.CleaningReport, *models.EncodingMap, error) {
	idx := table.ColumnIndex(column)
	if idx < 0 {
		return nil, nil, nil, fmt.Errorf("%w: 列不存在: %s", ErrNormalization, column)
	}

	report := &models.CleaningReport{
		Operation: "encode_categorical",
		Changes:   map[string]interface{}{"column": column, "method": method},
	}
	encoding := &models.EncodingMap{Method: method, Column: column}

	switch method {
	case EncodeOneHot:
		// 收集去重取值，保持字典序
		valueSet := make(map[string]bool)
		for _, row := range table.Rows {
			if !row[idx].IsNull() {
				valueSet[row[idx].String()] = true
			}
		}
		values := make([]string, 0, len(valueSet))
		for v := range valueSet {
			values = append(values, v)
		}
		sort.Strings(values)

		result := table.Clone()
		for _, val := range values {
			newCol := fmt.Sprintf("%s_%s", column, val)
			cells := make([]models.CellValue, len(result.Rows))
			for i, row := range result.Rows {
				if !row[idx].IsNull() && row[idx].String() == val {
					cells[i] = models.IntCell(1)
				} else {
					cells[i] = models.IntCell(0)
				}
			}
			result.AppendColumn(newCol, cells)
			encoding.NewColumns = append(encoding.NewColumns, newCol)
		}
		if err := result.DropColumn(column); err != nil {
			return nil, nil, nil, fmt.Errorf("%w: %v", ErrNormalization, err)
		}
		report.Summary = fmt.Sprintf("独热编码生成 %d 个新列", len(values))
		report.Changes["new_columns"] = encoding.NewColumns
		return result, report, encoding, nil

	case EncodeLabel:
		valueSet := make(map[string]bool)
		for _, row := range table.Rows {
			if !row[idx].IsNull() {
				valueSet[row[idx].String()] = true
			}
		}
		values := make([]string, 0, len(valueSet))
		for v := range valueSet {
			values = append(values, v)
		}
		sort.Strings(values)

		mapping := make(map[string]int, len(values))
		for i, v := range values {
			mapping[v] = i
		}
		encoding.Mapping = mapping

		result := table.Clone()
		encoded := 0
		for _, row := range result.Rows {
			if row[idx].IsNull() {
				continue
			}
			row[idx] = models.IntCell(int64(mapping[row[idx].String()]))
			encoded++
		}
		report.Summary = fmt.Sprintf("标签编码 %d 个取值, %d 个类别", encoded, len(values))
		report.Changes["categories"] = len(values)
		return result, report, encoding, nil

	case EncodeOrdinal:
		if len(order) == 0 {
			return nil, nil, nil, fmt.Errorf("%w: ordinal 编码需要显式顺序", ErrNormalization)
		}
		mapping := make(map[string]int, len(order))
		for i, v := range order {
			mapping[v] = i
		}
		encoding.Mapping = mapping

		result := table.Clone()
		unseen := 0
		for _, row := range result.Rows {
			if row[idx].IsNull() {
				continue
			}
			code, ok := mapping[row[idx].String()]
			if !ok {
				code = -1
				unseen++
			}
			row[idx] = models.IntCell(int64(code))
		}
		if unseen > 0 {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("%d 个取值不在给定顺序中，编码为 -1", unseen))
		}
		report.Summary = fmt.Sprintf("序数编码完成, %d 个类别", len(order))
		report.Changes["categories"] = len(order)
		return result, report, encoding, nil

	default:
		return nil, nil, nil, fmt.Errorf("%w: 未知编码方法 %s", ErrNormalization, method)
	}
}

// 类型转换失败处理策略
const (
	ConvertRaise  = "raise"  // 首个失败直接报错
	ConvertCoerce = "coerce" // 失败置空
	ConvertIgnore = "ignore" // 失败保留原值
)

// ConvertTypes 按列转换单元格类型，types 为 列名 -> 目标类型(integer/float/boolean/date/string)
func (n *Normalizer) ConvertTypes(table *models.Table, types map[string]string, policy string) (*models.Table, *models.CleaningReport, error) {
	if len(types) == 0 {
		return nil, nil, fmt.Errorf("%w: convert_types 需要类型映射", ErrNormalization)
	}
	switch policy {
	case "":
		policy = ConvertCoerce
	case ConvertRaise, ConvertCoerce, ConvertIgnore:
	default:
		return nil, nil, fmt.Errorf("%w: 未知转换策略 %s", ErrNormalization, policy)
	}

	result := table.Clone()
	converted, failed := 0, 0
	for col, target := range types {
		idx := result.ColumnIndex(col)
		if idx < 0 {
			return nil, nil, fmt.Errorf("%w: 列不存在: %s", ErrNormalization, col)
		}
		for rowNum, row := range result.Rows {
			if row[idx].IsNull() {
				continue
			}
			cell, ok := convertCell(row[idx], target)
			if !ok {
				failed++
				switch policy {
				case ConvertRaise:
					return nil, nil, fmt.Errorf("%w: 列 %s 第 %d 行的值 %s 无法转换为 %s",
						ErrNormalization, col, rowNum+1, row[idx].String(), target)
				case ConvertCoerce:
					row[idx] = models.NullCell()
				}
				continue
			}
			row[idx] = cell
			converted++
		}
	}

	report := &models.CleaningReport{
		Operation: "convert_types",
		Summary:   fmt.Sprintf("转换 %d 个单元格, %d 个失败", converted, failed),
		Changes: map[string]interface{}{
			"cells_converted": converted,
			"cells_failed":    failed,
			"policy":          policy,
		},
	}
	if failed > 0 {
		report.Warnings = append(report.Warnings, fmt.Sprintf("%d 个值转换失败", failed))
	}
	return result, report, nil
}

// FlattenMap 深度优先展开嵌套对象，键名按分隔符拼接
// 非对象取值原样保留，sep 为空时使用 "."
func FlattenMap(data map[string]interface{}, sep string) map[string]interface{} {
	if sep == "" {
		sep = "."
	}
	flat := make(map[string]interface{}, len(data))
	flattenInto(flat, "", data, sep)
	return flat
}

func flattenInto(flat map[string]interface{}, prefix string, data map[string]interface{}, sep string) {
	for key, value := range data {
		full := key
		if prefix != "" {
			full = prefix + sep + key
		}
		if nested, ok := value.(map[string]interface{}); ok {
			flattenInto(flat, full, nested, sep)
			continue
		}
		flat[full] = value
	}
}

// Pivot 长表转宽表: keyColumn 的取值成为新列，valueColumn 提供单元格值
// 同一 (index, key) 组合出现多次时保留最后一个并告警
func (n *Normalizer) Pivot(table *models.Table, indexColumn, keyColumn, valueColumn string) (*models.Table, *models.CleaningReport, error) {
	idxIdx := table.ColumnIndex(indexColumn)
	keyIdx := table.ColumnIndex(keyColumn)
	valIdx := table.ColumnIndex(valueColumn)
	if idxIdx < 0 || keyIdx < 0 || valIdx < 0 {
		return nil, nil, fmt.Errorf("%w: pivot 引用了不存在的列", ErrNormalization)
	}

	var indexOrder []string
	var keyOrder []string
	indexSeen := make(map[string]bool)
	keySeen := make(map[string]bool)
	cells := make(map[string]map[string]models.CellValue)
	duplicates := 0

	for _, row := range table.Rows {
		indexVal := row[idxIdx].String()
		keyVal := row[keyIdx].String()
		if !indexSeen[indexVal] {
			indexSeen[indexVal] = true
			indexOrder = append(indexOrder, indexVal)
			cells[indexVal] = make(map[string]models.CellValue)
		}
		if !keySeen[keyVal] {
			keySeen[keyVal] = true
			keyOrder = append(keyOrder, keyVal)
		}
		if _, exists := cells[indexVal][keyVal]; exists {
			duplicates++
		}
		cells[indexVal][keyVal] = row[valIdx]
	}

	columns := append([]string{indexColumn}, keyOrder...)
	result := models.NewTable(columns)
	for _, indexVal := range indexOrder {
		row := make([]models.CellValue, len(columns))
		row[0] = models.StringCell(indexVal)
		for i, keyVal := range keyOrder {
			if cell, ok := cells[indexVal][keyVal]; ok {
				row[i+1] = cell
			} else {
				row[i+1] = models.NullCell()
			}
		}
		result.AppendRow(row)
	}

	report := &models.CleaningReport{
		Operation: "pivot",
		Summary:   fmt.Sprintf("透视为 %d 行 %d 列", result.RowCount(), result.ColumnCount()),
		Changes: map[string]interface{}{
			"rows_before": table.RowCount(),
			"rows_after":  result.RowCount(),
			"new_columns": keyOrder,
		},
	}
	if duplicates > 0 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("%d 个重复的组合被后出现的值覆盖", duplicates))
	}
	return result, report, nil
}

// Unpivot 宽表转长表: idColumns 之外的列折叠为 变量名/取值 两列
func (n *Normalizer) Unpivot(table *models.Table, idColumns []string, varName, valueName string) (*models.Table, *models.CleaningReport, error) {
	if varName == "" {
		varName = "variable"
	}
	if valueName == "" {
		valueName = "value"
	}

	idIdx := make([]int, 0, len(idColumns))
	idSet := make(map[string]bool, len(idColumns))
	for _, col := range idColumns {
		idx := table.ColumnIndex(col)
		if idx < 0 {
			return nil, nil, fmt.Errorf("%w: 列不存在: %s", ErrNormalization, col)
		}
		idIdx = append(idIdx, idx)
		idSet[col] = true
	}

	var meltIdx []int
	var meltCols []string
	for i, col := range table.Columns {
		if !idSet[col] {
			meltIdx = append(meltIdx, i)
			meltCols = append(meltCols, col)
		}
	}
	if len(meltIdx) == 0 {
		return nil, nil, fmt.Errorf("%w: 没有可折叠的列", ErrNormalization)
	}

	columns := append(append([]string{}, idColumns...), varName, valueName)
	result := models.NewTable(columns)
	for _, row := range table.Rows {
		for j, idx := range meltIdx {
			newRow := make([]models.CellValue, 0, len(columns))
			for _, id := range idIdx {
				newRow = append(newRow, row[id])
			}
			newRow = append(newRow, models.StringCell(meltCols[j]), row[idx])
			result.AppendRow(newRow)
		}
	}

	report := &models.CleaningReport{
		Operation: "unpivot",
		Summary:   fmt.Sprintf("逆透视为 %d 行", result.RowCount()),
		Changes: map[string]interface{}{
			"rows_before":    table.RowCount(),
			"rows_after":     result.RowCount(),
			"melted_columns": meltCols,
		},
	}
	return result, report, nil
}

/*
 * @module service/ingestion/type_inference
 * @description 列类型推断引擎，按固定优先级对采样值分类并输出置信度、列统计和存储类型建议
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/ingestion_requirements.md
 * @stateFlow 采样 -> 布尔/时间/数值/语义字符串逐级匹配 -> 统计计算 -> SQL类型建议
 * @rules 空值在分类前剔除；全空列类型为 null 置信度 1.0；置信度为胜出规则的匹配比例
 * @dependencies github.com/spf13/cast, regexp, time
 * @refs service/models/ingestion_models.go, service/transformation
 */

package ingestion

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"dataset-ingestion-service/service/models"

	"github.com/spf13/cast"
)

const (
	// DefaultSampleSize 每列采样上限
	DefaultSampleSize = 1000

	// 主类型匹配阈值
	primaryMatchThreshold = 0.9

	// 语义字符串类型匹配阈值
	semanticMatchThreshold = 0.8

	// DefaultConversionThreshold 类型转换可行性阈值
	DefaultConversionThreshold = 0.95

	// 样本值数量上限
	maxSampleValues = 5
)

// 布尔字面量
var booleanTokens = map[string]bool{
	"true": true, "false": false, "t": true, "f": false,
	"yes": true, "no": false, "y": true, "n": false,
	"1": true, "0": false,
}

// 时间解析布局，按常见程度排序
var dateTimeLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"02/01/2006",
	"01-02-2006",
	"2006-01-02 15:04",
	"01/02/2006 15:04:05",
	"02/01/2006 15:04:05",
	"Jan 2, 2006",
	"2 Jan 2006",
	"January 2, 2006",
	"20060102",
}

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	urlRegex   = regexp.MustCompile(`^https?://[^\s/$.?#].[^\s]*$`)
	uuidRegex  = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	phoneRegex = regexp.MustCompile(`^\+?[0-9][0-9\-\s()]{6,18}[0-9]$`)
)

// TypeInferenceEngine 类型推断引擎
type TypeInferenceEngine struct {
	sampleSize int
}

// NewTypeInferenceEngine 创建类型推断引擎
func NewTypeInferenceEngine() *TypeInferenceEngine {
	return &TypeInferenceEngine{sampleSize: DefaultSampleSize}
}

// InferTable 推断整个表所有列的画像
func (e *TypeInferenceEngine) InferTable(table *models.Table) ([]models.ColumnProfile, error) {
	if table == nil || len(table.Columns) == 0 {
		return nil, fmt.Errorf("%w: 表为空", ErrTypeInference)
	}

	profiles := make([]models.ColumnProfile, 0, len(table.Columns))
	for _, col := range table.Columns {
		values, err := table.Column(col)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTypeInference, err)
		}
		profiles = append(profiles, e.InferColumn(col, values))
	}
	return profiles, nil
}

// InferColumn 推断单列的类型画像
func (e *TypeInferenceEngine) InferColumn(name string, values []models.CellValue) models.ColumnProfile {
	profile := models.ColumnProfile{Name: name}

	nonNull := make([]models.CellValue, 0, len(values))
	for _, v := range values {
		if !v.IsNull() {
			nonNull = append(nonNull, v)
		}
	}
	profile.NullCount = len(values) - len(nonNull)
	if len(values) > 0 {
		profile.NullRatio = float64(profile.NullCount) / float64(len(values))
	}

	// 全空列
	if len(nonNull) == 0 {
		profile.InferredType = "null"
		profile.Confidence = 1.0
		profile.SQLType = "TEXT"
		profile.SampleValues = []interface{}{}
		return profile
	}

	sample := nonNull
	if len(sample) > e.sampleSize {
		sample = sample[:e.sampleSize]
	}

	inferredType, confidence := classify(sample)
	profile.InferredType = inferredType
	profile.Confidence = confidence
	profile.UniqueCount = countUnique(nonNull)
	profile.SampleValues = pickSampleValues(nonNull)
	profile.Stats = computeStats(inferredType, nonNull)
	profile.SQLType = suggestSQLType(inferredType, nonNull, profile.Stats)
	return profile
}

// classify 按固定优先级分类: 布尔 -> 时间 -> 数值 -> 语义字符串 -> 字符串
func classify(sample []models.CellValue) (string, float64) {
	// 原生类型占优时直接采用
	if kind, ratio := nativeKindRatio(sample); ratio >= primaryMatchThreshold {
		switch kind {
		case models.CellBool:
			return "boolean", ratio
		case models.CellInt:
			return "integer", ratio
		case models.CellFloat:
			if allIntegralFloats(sample) {
				return "integer", ratio
			}
			return "float", ratio
		case models.CellTime:
			return "datetime", ratio
		}
	}

	if ratio := matchRatio(sample, isBooleanToken); ratio >= primaryMatchThreshold {
		return "boolean", ratio
	}

	if ratio := matchRatio(sample, isDateTimeToken); ratio >= primaryMatchThreshold {
		if isDateOnly(sample) {
			return "date", ratio
		}
		return "datetime", ratio
	}

	if ratio := matchRatio(sample, isNumericCell); ratio >= primaryMatchThreshold {
		if allIntegral(sample) {
			return "integer", ratio
		}
		return "float", ratio
	}

	semanticChecks := []struct {
		name string
		fn   func(models.CellValue) bool
	}{
		{"email", func(c models.CellValue) bool { return emailRegex.MatchString(c.String()) }},
		{"url", func(c models.CellValue) bool { return urlRegex.MatchString(c.String()) }},
		{"uuid", func(c models.CellValue) bool { return uuidRegex.MatchString(c.String()) }},
		{"phone", func(c models.CellValue) bool { return phoneRegex.MatchString(strings.TrimSpace(c.String())) }},
	}
	for _, check := range semanticChecks {
		if ratio := matchRatio(sample, check.fn); ratio >= semanticMatchThreshold {
			return check.name, ratio
		}
	}

	return "string", 1.0
}

// nativeKindRatio 返回出现最多的非字符串原生类型及其占比
func nativeKindRatio(sample []models.CellValue) (models.CellKind, float64) {
	counts := make(map[models.CellKind]int)
	for _, v := range sample {
		counts[v.Kind()]++
	}
	// Int 和 Float 混合时按 Float 统计
	if counts[models.CellInt] > 0 && counts[models.CellFloat] > 0 {
		counts[models.CellFloat] += counts[models.CellInt]
		counts[models.CellInt] = 0
	}
	bestKind := models.CellString
	bestCount := 0
	for kind, count := range counts {
		if kind == models.CellString || kind == models.CellNull {
			continue
		}
		if count > bestCount {
			bestKind, bestCount = kind, count
		}
	}
	if bestCount == 0 {
		return models.CellString, 0
	}
	return bestKind, float64(bestCount) / float64(len(sample))
}

func matchRatio(sample []models.CellValue, fn func(models.CellValue) bool) float64 {
	matched := 0
	for _, v := range sample {
		if fn(v) {
			matched++
		}
	}
	return float64(matched) / float64(len(sample))
}

func isBooleanToken(c models.CellValue) bool {
	if c.Kind() == models.CellBool {
		return true
	}
	_, ok := booleanTokens[strings.ToLower(strings.TrimSpace(c.String()))]
	return ok
}

func isDateTimeToken(c models.CellValue) bool {
	if c.Kind() == models.CellTime {
		return true
	}
	if c.Kind() != models.CellString {
		return false
	}
	_, ok := parseDateTime(c.Str())
	return ok
}

// parseDateTime 尝试按已知布局解析时间字符串
func parseDateTime(s string) (time.Time, bool) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return time.Time{}, false
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// isDateOnly 前100个样本都没有非零时刻时判定为纯日期
func isDateOnly(sample []models.CellValue) bool {
	checked := 0
	for _, v := range sample {
		if checked >= 100 {
			break
		}
		var t time.Time
		switch v.Kind() {
		case models.CellTime:
			t = v.Time()
		case models.CellString:
			parsed, ok := parseDateTime(v.Str())
			if !ok {
				continue
			}
			t = parsed
		default:
			continue
		}
		checked++
		if t.Hour() != 0 || t.Minute() != 0 || t.Second() != 0 {
			return false
		}
	}
	return checked > 0
}

func isNumericCell(c models.CellValue) bool {
	switch c.Kind() {
	case models.CellInt, models.CellFloat:
		return true
	case models.CellString:
		_, err := strconv.ParseFloat(strings.TrimSpace(c.Str()), 64)
		return err == nil
	default:
		return false
	}
}

// allIntegral 所有可数值化的样本都是整数值
func allIntegral(sample []models.CellValue) bool {
	for _, v := range sample {
		f, ok := cellFloat(v)
		if !ok {
			continue
		}
		if f != math.Trunc(f) {
			return false
		}
	}
	return true
}

// allIntegralFloats 原生浮点样本全部为整数值，可提升为整数类型
func allIntegralFloats(sample []models.CellValue) bool {
	for _, v := range sample {
		if v.Kind() != models.CellFloat && v.Kind() != models.CellInt {
			continue
		}
		f := v.Float()
		if math.IsNaN(f) || f != math.Trunc(f) {
			return false
		}
	}
	return true
}

func cellFloat(c models.CellValue) (float64, bool) {
	switch c.Kind() {
	case models.CellInt:
		return float64(c.Int()), true
	case models.CellFloat:
		return c.Float(), true
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

func countUnique(values []models.CellValue) int {
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		seen[v.String()] = true
	}
	return len(seen)
}

// pickSampleValues 取最多5个去重样本值
func pickSampleValues(values []models.CellValue) []interface{} {
	seen := make(map[string]bool)
	samples := make([]interface{}, 0, maxSampleValues)
	for _, v := range values {
		key := v.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		samples = append(samples, v.Go())
		if len(samples) >= maxSampleValues {
			break
		}
	}
	return samples
}

// computeStats 按推断类型计算描述性统计
func computeStats(inferredType string, values []models.CellValue) *models.ColumnStats {
	stats := &models.ColumnStats{}

	switch inferredType {
	case "integer", "float":
		nums := make([]float64, 0, len(values))
		for _, v := range values {
			if f, ok := cellFloat(v); ok && !math.IsNaN(f) {
				nums = append(nums, f)
			}
		}
		if len(nums) == 0 {
			return nil
		}
		sort.Float64s(nums)
		stats.Min = floatPtr(nums[0])
		stats.Max = floatPtr(nums[len(nums)-1])
		sum := 0.0
		for _, n := range nums {
			sum += n
		}
		mean := sum / float64(len(nums))
		stats.Sum = floatPtr(sum)
		stats.Mean = floatPtr(mean)
		stats.Median = floatPtr(percentile(nums, 50))
		stats.P25 = floatPtr(percentile(nums, 25))
		stats.P75 = floatPtr(percentile(nums, 75))
		stats.P90 = floatPtr(percentile(nums, 90))
		stats.P95 = floatPtr(percentile(nums, 95))
		variance := 0.0
		for _, n := range nums {
			variance += (n - mean) * (n - mean)
		}
		if len(nums) > 1 {
			stats.Std = floatPtr(math.Sqrt(variance / float64(len(nums)-1)))
		} else {
			stats.Std = floatPtr(0)
		}

	case "date", "datetime":
		var minT, maxT time.Time
		found := false
		for _, v := range values {
			var t time.Time
			switch v.Kind() {
			case models.CellTime:
				t = v.Time()
			case models.CellString:
				parsed, ok := parseDateTime(v.Str())
				if !ok {
					continue
				}
				t = parsed
			default:
				continue
			}
			if !found {
				minT, maxT = t, t
				found = true
				continue
			}
			if t.Before(minT) {
				minT = t
			}
			if t.After(maxT) {
				maxT = t
			}
		}
		if !found {
			return nil
		}
		stats.MinTime = minT.Format(time.RFC3339)
		stats.MaxTime = maxT.Format(time.RFC3339)
		days := int(maxT.Sub(minT).Hours() / 24)
		stats.RangeDays = intPtr(days)

	case "boolean":
		trueCount, falseCount := 0, 0
		for _, v := range values {
			var b bool
			var ok bool
			if v.Kind() == models.CellBool {
				b, ok = v.Bool(), true
			} else {
				b, ok = booleanTokens[strings.ToLower(strings.TrimSpace(v.String()))]
			}
			if !ok {
				continue
			}
			if b {
				trueCount++
			} else {
				falseCount++
			}
		}
		stats.TrueCount = intPtr(trueCount)
		stats.FalseCount = intPtr(falseCount)

	default:
		// 字符串族: 长度统计 + 高频取值 + 基数比
		minLen, maxLen := math.MaxInt32, 0
		totalLen := 0
		counts := make(map[string]int)
		for _, v := range values {
			s := v.String()
			l := len([]rune(s))
			if l < minLen {
				minLen = l
			}
			if l > maxLen {
				maxLen = l
			}
			totalLen += l
			counts[s]++
		}
		stats.MinLength = intPtr(minLen)
		stats.MaxLength = intPtr(maxLen)
		stats.AvgLength = floatPtr(float64(totalLen) / float64(len(values)))
		stats.MostCommon = topValueCounts(counts, 10)
		stats.CardinalityRatio = floatPtr(float64(len(counts)) / float64(len(values)))
	}

	return stats
}

// topValueCounts 出现频率前 n 的取值，频率相同按字典序保证稳定
func topValueCounts(counts map[string]int, n int) []models.ValueCount {
	items := make([]models.ValueCount, 0, len(counts))
	for value, count := range counts {
		items = append(items, models.ValueCount{Value: value, Count: count})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count != items[j].Count {
			return items[i].Count > items[j].Count
		}
		return items[i].Value < items[j].Value
	})
	if len(items) > n {
		items = items[:n]
	}
	return items
}

// percentile 线性插值分位数，nums 必须已排序
func percentile(nums []float64, p float64) float64 {
	if len(nums) == 0 {
		return 0
	}
	if len(nums) == 1 {
		return nums[0]
	}
	rank := p / 100 * float64(len(nums)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return nums[lower]
	}
	frac := rank - float64(lower)
	return nums[lower]*(1-frac) + nums[upper]*frac
}

// suggestSQLType 根据推断类型和观测值建议存储类型
func suggestSQLType(inferredType string, values []models.CellValue, stats *models.ColumnStats) string {
	switch inferredType {
	case "boolean":
		return "BOOLEAN"
	case "date":
		return "DATE"
	case "datetime":
		return "TIMESTAMP"
	case "uuid":
		return "UUID"
	case "url", "email", "phone":
		return varcharForLength(maxStringLength(values))
	case "integer":
		return integerSQLType(values)
	case "float":
		return floatSQLType(values)
	case "null":
		return "TEXT"
	default:
		return varcharForLength(maxStringLength(values))
	}
}

// varcharForLength 按观测最大长度留出余量: max(len*1.2, len+50, 50)，超过1000用TEXT
func varcharForLength(maxLen int) string {
	if maxLen > 1000 {
		return "TEXT"
	}
	size := int(math.Max(float64(maxLen)*1.2, math.Max(float64(maxLen+50), 50)))
	if size > 1000 {
		return "TEXT"
	}
	return fmt.Sprintf("VARCHAR(%d)", size)
}

func maxStringLength(values []models.CellValue) int {
	maxLen := 0
	for _, v := range values {
		if l := len([]rune(v.String())); l > maxLen {
			maxLen = l
		}
	}
	return maxLen
}

// integerSQLType 按观测位宽映射整数类型
func integerSQLType(values []models.CellValue) string {
	var minV, maxV float64
	first := true
	for _, v := range values {
		f, ok := cellFloat(v)
		if !ok {
			continue
		}
		if first {
			minV, maxV = f, f
			first = false
			continue
		}
		if f < minV {
			minV = f
		}
		if f > maxV {
			maxV = f
		}
	}
	if first {
		return "BIGINT"
	}
	if minV >= math.MinInt16 && maxV <= math.MaxInt16 {
		return "SMALLINT"
	}
	if minV >= math.MinInt32 && maxV <= math.MaxInt32 {
		return "INTEGER"
	}
	return "BIGINT"
}

// floatSQLType 按精度需求映射浮点类型
func floatSQLType(values []models.CellValue) string {
	for _, v := range values {
		f, ok := cellFloat(v)
		if !ok {
			continue
		}
		if f != 0 && (math.Abs(f) > math.MaxFloat32 || math.Abs(f) < 1e-37) {
			return "DOUBLE PRECISION"
		}
	}
	return "DOUBLE PRECISION"
}

// CheckConversion 检查列值转换到目标类型的可行性
// 成功率低于阈值时 Convertible 为假，并附带失败样本
func (e *TypeInferenceEngine) CheckConversion(values []models.CellValue, column, targetType string) models.ConversionCheck {
	check := models.ConversionCheck{Column: column, TargetType: targetType}

	nonNull := make([]models.CellValue, 0, len(values))
	for _, v := range values {
		if !v.IsNull() {
			nonNull = append(nonNull, v)
		}
	}
	if len(nonNull) == 0 {
		check.SuccessRate = 1.0
		check.Convertible = true
		return check
	}

	sample := nonNull
	if len(sample) > e.sampleSize {
		sample = sample[:e.sampleSize]
	}

	succeeded := 0
	for _, v := range sample {
		if convertible(v, targetType) {
			succeeded++
		} else if len(check.FailedSamples) < maxSampleValues {
			check.FailedSamples = append(check.FailedSamples, v.Go())
		}
	}
	check.SuccessRate = float64(succeeded) / float64(len(sample))
	check.Convertible = check.SuccessRate >= DefaultConversionThreshold
	return check
}

// convertible 判断单个值能否转换到目标类型
func convertible(v models.CellValue, targetType string) bool {
	switch targetType {
	case "integer":
		f, ok := cellFloat(v)
		return ok && f == math.Trunc(f)
	case "float":
		_, ok := cellFloat(v)
		return ok
	case "boolean":
		return isBooleanToken(v)
	case "date", "datetime":
		return isDateTimeToken(v)
	case "string":
		return true
	default:
		// 未知目标类型走宽松转换
		_, err := cast.ToStringE(v.Go())
		return err == nil
	}
}

func floatPtr(f float64) *float64 { return &f }

func intPtr(i int) *int { return &i }

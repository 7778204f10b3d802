/*
 * @module service/models/table
 * @description 内存表模型，定义解析后表格数据的统一承载结构和单元格值的封闭类型系统
 * @architecture 分层架构 - 数据模型层
 * @documentReference ai_docs/ingestion_requirements.md
 * @stateFlow 文件解析 -> 内存表 -> 清洗/规范化变换 -> 批量入库
 * @rules 单元格值只能是 Null/Bool/Int/Float/String/Time 六种类型之一，类型在构造时确定
 * @dependencies encoding/json, time
 * @refs service/ingestion, service/transformation
 */

package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// CellKind 单元格值类型标签
type CellKind int8

const (
	CellNull CellKind = iota
	CellBool
	CellInt
	CellFloat
	CellString
	CellTime
)

// String 返回类型标签的可读名称
func (k CellKind) String() string {
	switch k {
	case CellNull:
		return "null"
	case CellBool:
		return "boolean"
	case CellInt:
		return "integer"
	case CellFloat:
		return "float"
	case CellString:
		return "string"
	case CellTime:
		return "datetime"
	default:
		return "unknown"
	}
}

// CellValue 单元格值，封闭的和类型
// 零值即 Null 单元格
type CellValue struct {
	kind CellKind
	b    bool
	i    int64
	f    float64
	s    string
	t    time.Time
}

// NullCell 创建空值单元格
func NullCell() CellValue { return CellValue{kind: CellNull} }

// BoolCell 创建布尔单元格
func BoolCell(v bool) CellValue { return CellValue{kind: CellBool, b: v} }

// IntCell 创建整数单元格
func IntCell(v int64) CellValue { return CellValue{kind: CellInt, i: v} }

// FloatCell 创建浮点单元格
func FloatCell(v float64) CellValue { return CellValue{kind: CellFloat, f: v} }

// StringCell 创建字符串单元格
func StringCell(v string) CellValue { return CellValue{kind: CellString, s: v} }

// TimeCell 创建时间单元格
func TimeCell(v time.Time) CellValue { return CellValue{kind: CellTime, t: v} }

// CellFromGo 从原生 Go 值构造单元格，未知类型按字符串处理
func CellFromGo(v interface{}) CellValue {
	switch val := v.(type) {
	case nil:
		return NullCell()
	case bool:
		return BoolCell(val)
	case int:
		return IntCell(int64(val))
	case int64:
		return IntCell(val)
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1e15 {
			return IntCell(int64(val))
		}
		return FloatCell(val)
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return IntCell(i)
		}
		if f, err := val.Float64(); err == nil {
			return FloatCell(f)
		}
		return StringCell(val.String())
	case time.Time:
		return TimeCell(val)
	case string:
		return StringCell(val)
	default:
		return StringCell(fmt.Sprint(val))
	}
}

// Kind 返回单元格类型
func (c CellValue) Kind() CellKind { return c.kind }

// IsNull 判断是否为空值
func (c CellValue) IsNull() bool { return c.kind == CellNull }

// Bool 返回布尔载荷，仅当 Kind 为 CellBool 时有意义
func (c CellValue) Bool() bool { return c.b }

// Int 返回整数载荷
func (c CellValue) Int() int64 { return c.i }

// Float 返回浮点载荷，CellInt 会被提升为浮点
func (c CellValue) Float() float64 {
	if c.kind == CellInt {
		return float64(c.i)
	}
	return c.f
}

// Str 返回字符串载荷
func (c CellValue) Str() string { return c.s }

// Time 返回时间载荷
func (c CellValue) Time() time.Time { return c.t }

// Go 返回单元格对应的原生 Go 值，Null 返回 nil
// NaN/Inf 浮点值同样返回 nil，避免 JSON 序列化失败
func (c CellValue) Go() interface{} {
	switch c.kind {
	case CellNull:
		return nil
	case CellBool:
		return c.b
	case CellInt:
		return c.i
	case CellFloat:
		if math.IsNaN(c.f) || math.IsInf(c.f, 0) {
			return nil
		}
		return c.f
	case CellString:
		return c.s
	case CellTime:
		return c.t
	default:
		return nil
	}
}

// String 返回单元格的展示文本，空值为空字符串
func (c CellValue) String() string {
	switch c.kind {
	case CellNull:
		return ""
	case CellBool:
		return strconv.FormatBool(c.b)
	case CellInt:
		return strconv.FormatInt(c.i, 10)
	case CellFloat:
		return strconv.FormatFloat(c.f, 'g', -1, 64)
	case CellString:
		return c.s
	case CellTime:
		return c.t.Format(time.RFC3339)
	default:
		return ""
	}
}

// MarshalJSON 序列化为自然标量
func (c CellValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Go())
}

// Table 内存表，解析后表格数据的统一承载结构
// Columns 保持文件中的原始列顺序，每行的单元格数与列数一致
type Table struct {
	Columns []string
	Rows    [][]CellValue
}

// NewTable 创建指定列的空表
func NewTable(columns []string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{Columns: cols, Rows: make([][]CellValue, 0)}
}

// RowCount 返回行数
func (t *Table) RowCount() int { return len(t.Rows) }

// ColumnCount 返回列数
func (t *Table) ColumnCount() int { return len(t.Columns) }

// ColumnIndex 返回列名对应的下标，不存在返回 -1
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumn 判断列是否存在
func (t *Table) HasColumn(name string) bool { return t.ColumnIndex(name) >= 0 }

// Column 返回指定列的所有单元格，列不存在时返回错误
func (t *Table) Column(name string) ([]CellValue, error) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("列不存在: %s", name)
	}
	values := make([]CellValue, len(t.Rows))
	for i, row := range t.Rows {
		values[i] = row[idx]
	}
	return values, nil
}

// AppendRow 追加一行，单元格数量不足时补空值，多余时截断
func (t *Table) AppendRow(row []CellValue) {
	if len(row) < len(t.Columns) {
		padded := make([]CellValue, len(t.Columns))
		copy(padded, row)
		for i := len(row); i < len(t.Columns); i++ {
			padded[i] = NullCell()
		}
		row = padded
	} else if len(row) > len(t.Columns) {
		row = row[:len(t.Columns)]
	}
	t.Rows = append(t.Rows, row)
}

// Clone 深拷贝表结构和数据
func (t *Table) Clone() *Table {
	clone := NewTable(t.Columns)
	clone.Rows = make([][]CellValue, len(t.Rows))
	for i, row := range t.Rows {
		newRow := make([]CellValue, len(row))
		copy(newRow, row)
		clone.Rows[i] = newRow
	}
	return clone
}

// RenameColumn 重命名列
func (t *Table) RenameColumn(oldName, newName string) error {
	idx := t.ColumnIndex(oldName)
	if idx < 0 {
		return fmt.Errorf("列不存在: %s", oldName)
	}
	t.Columns[idx] = newName
	return nil
}

// DropColumn 删除列及其数据
func (t *Table) DropColumn(name string) error {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return fmt.Errorf("列不存在: %s", name)
	}
	t.Columns = append(t.Columns[:idx], t.Columns[idx+1:]...)
	for i, row := range t.Rows {
		t.Rows[i] = append(row[:idx], row[idx+1:]...)
	}
	return nil
}

// AppendColumn 追加新列，values 长度不足时补空值
func (t *Table) AppendColumn(name string, values []CellValue) {
	t.Columns = append(t.Columns, name)
	for i := range t.Rows {
		if i < len(values) {
			t.Rows[i] = append(t.Rows[i], values[i])
		} else {
			t.Rows[i] = append(t.Rows[i], NullCell())
		}
	}
}

// RowMap 将第 i 行转换为列名到原生值的映射
func (t *Table) RowMap(i int) map[string]interface{} {
	m := make(map[string]interface{}, len(t.Columns))
	for j, col := range t.Columns {
		m[col] = t.Rows[i][j].Go()
	}
	return m
}

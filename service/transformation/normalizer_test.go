package transformation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeColumnNames_Snake(t *testing.T) {
	n := NewNormalizer()
	table := tableOf(t, []string{"First Name", "userID", "order-date"},
		[]interface{}{"a", 1, "2024-01-01"},
	)

	result, report, err := n.NormalizeColumnNames(table, NameStyleSnake)
	require.NoError(t, err)
	assert.Equal(t, []string{"first_name", "user_id", "order_date"}, result.Columns)

	renames := report.Changes["renames"].(map[string]interface{})
	assert.Equal(t, "first_name", renames["First Name"])
}

func TestNormalizeColumnNames_Styles(t *testing.T) {
	n := NewNormalizer()
	table := tableOf(t, []string{"first name"}, []interface{}{"a"})

	result, _, err := n.NormalizeColumnNames(table, NameStyleCamel)
	require.NoError(t, err)
	assert.Equal(t, "firstName", result.Columns[0])

	result, _, err = n.NormalizeColumnNames(table, NameStylePascal)
	require.NoError(t, err)
	assert.Equal(t, "FirstName", result.Columns[0])

	result, _, err = n.NormalizeColumnNames(table, NameStyleUpper)
	require.NoError(t, err)
	assert.Equal(t, "FIRST_NAME", result.Columns[0])

	_, _, err = n.NormalizeColumnNames(table, "kebab")
	assert.ErrorIs(t, err, ErrNormalization)
}

func TestNormalizeColumnNames_Conflicts(t *testing.T) {
	n := NewNormalizer()
	table := tableOf(t, []string{"a b", "a_b", ""},
		[]interface{}{1, 2, 3},
	)

	result, _, err := n.NormalizeColumnNames(table, "")
	require.NoError(t, err)
	assert.Equal(t, "a_b", result.Columns[0])
	assert.Equal(t, "a_b_2", result.Columns[1])
	assert.Equal(t, "column_3", result.Columns[2], "空列名用位置名补齐")
}

func TestScaleColumns_MinMax(t *testing.T) {
	n := NewNormalizer()
	table := tableOf(t, []string{"v"},
		[]interface{}{0.0}, []interface{}{5.0}, []interface{}{10.0},
	)

	result, _, params, err := n.ScaleColumns(table, []string{"v"}, ScaleMinMax)
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.Rows[0][0].Float())
	assert.Equal(t, 0.5, result.Rows[1][0].Float())
	assert.Equal(t, 1.0, result.Rows[2][0].Float())

	p := params["v"]
	assert.Equal(t, ScaleMinMax, p.Method)
	assert.Equal(t, 0.0, p.Min)
	assert.Equal(t, 10.0, p.Max)
}

func TestScaleColumns_Standard(t *testing.T) {
	n := NewNormalizer()
	table := tableOf(t, []string{"v"},
		[]interface{}{2.0}, []interface{}{4.0}, []interface{}{6.0},
	)

	result, _, params, err := n.ScaleColumns(table, []string{"v"}, ScaleStandard)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, result.Rows[1][0].Float(), 0.001, "均值应缩放为0")
	assert.Equal(t, 4.0, params["v"].Mean)
}

func TestScaleColumns_Constant(t *testing.T) {
	n := NewNormalizer()
	table := tableOf(t, []string{"v"},
		[]interface{}{7.0}, []interface{}{7.0},
	)

	result, report, _, err := n.ScaleColumns(table, []string{"v"}, ScaleMinMax)
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.Rows[0][0].Float())
	assert.NotEmpty(t, report.Warnings)
}

func TestScaleColumns_UnknownMethod(t *testing.T) {
	n := NewNormalizer()
	table := tableOf(t, []string{"v"}, []interface{}{1.0})

	_, _, _, err := n.ScaleColumns(table, []string{"v"}, "log")
	assert.ErrorIs(t, err, ErrNormalization)
}

func TestInverseScale_RoundTrip(t *testing.T) {
	n := NewNormalizer()
	table := tableOf(t, []string{"v"},
		[]interface{}{10.0}, []interface{}{20.0}, []interface{}{30.0},
	)

	scaled, _, params, err := n.ScaleColumns(table, []string{"v"}, ScaleStandard)
	require.NoError(t, err)

	restored, err := n.InverseScale(scaled, "v", params["v"])
	require.NoError(t, err)
	for i, row := range restored.Rows {
		assert.InDelta(t, table.Rows[i][0].Float(), row[0].Float(), 0.0001)
	}
}

func TestEncodeCategorical_OneHot(t *testing.T) {
	n := NewNormalizer()
	table := tableOf(t, []string{"color", "n"},
		[]interface{}{"red", 1},
		[]interface{}{"blue", 2},
		[]interface{}{"red", 3},
	)

	result, _, encoding, err := n.EncodeCategorical(table, "color", EncodeOneHot, nil)
	require.NoError(t, err)
	assert.False(t, result.HasColumn("color"), "原列应被删除")
	assert.Equal(t, []string{"color_blue", "color_red"}, encoding.NewColumns)

	blueIdx := result.ColumnIndex("color_blue")
	redIdx := result.ColumnIndex("color_red")
	assert.Equal(t, int64(0), result.Rows[0][blueIdx].Int())
	assert.Equal(t, int64(1), result.Rows[0][redIdx].Int())
	assert.Equal(t, int64(1), result.Rows[1][blueIdx].Int())
}

func TestEncodeCategorical_Label(t *testing.T) {
	n := NewNormalizer()
	table := tableOf(t, []string{"size"},
		[]interface{}{"small"}, []interface{}{"large"}, []interface{}{nil},
	)

	result, _, encoding, err := n.EncodeCategorical(table, "size", EncodeLabel, nil)
	require.NoError(t, err)
	// 字典序: large=0, small=1
	assert.Equal(t, int64(1), result.Rows[0][0].Int())
	assert.Equal(t, int64(0), result.Rows[1][0].Int())
	assert.True(t, result.Rows[2][0].IsNull(), "空值不参与编码")
	assert.Equal(t, map[string]int{"large": 0, "small": 1}, encoding.Mapping)
}

func TestEncodeCategorical_Ordinal(t *testing.T) {
	n := NewNormalizer()
	table := tableOf(t, []string{"level"},
		[]interface{}{"low"}, []interface{}{"high"}, []interface{}{"extreme"},
	)

	result, report, _, err := n.EncodeCategorical(table, "level", EncodeOrdinal,
		[]string{"low", "medium", "high"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Rows[0][0].Int())
	assert.Equal(t, int64(2), result.Rows[1][0].Int())
	assert.Equal(t, int64(-1), result.Rows[2][0].Int(), "未见过的取值编码为-1")
	assert.NotEmpty(t, report.Warnings)

	_, _, _, err = n.EncodeCategorical(table, "level", EncodeOrdinal, nil)
	assert.ErrorIs(t, err, ErrNormalization)
}

func TestEncodeCategorical_MissingColumn(t *testing.T) {
	n := NewNormalizer()
	table := tableOf(t, []string{"a"}, []interface{}{"x"})

	_, _, _, err := n.EncodeCategorical(table, "ghost", EncodeLabel, nil)
	assert.ErrorIs(t, err, ErrNormalization)
}

func TestConvertTypes(t *testing.T) {
	n := NewNormalizer()
	table := tableOf(t, []string{"age"},
		[]interface{}{"30"}, []interface{}{"abc"}, []interface{}{nil},
	)

	// coerce: 失败置空
	result, report, err := n.ConvertTypes(table, map[string]string{"age": "integer"}, ConvertCoerce)
	require.NoError(t, err)
	assert.Equal(t, int64(30), result.Rows[0][0].Int())
	assert.True(t, result.Rows[1][0].IsNull())
	assert.Equal(t, 1, report.Changes["cells_converted"])
	assert.Equal(t, 1, report.Changes["cells_failed"])
	assert.Len(t, report.Warnings, 1)

	// ignore: 失败保留原值
	result, _, err = n.ConvertTypes(table, map[string]string{"age": "integer"}, ConvertIgnore)
	require.NoError(t, err)
	assert.Equal(t, "abc", result.Rows[1][0].Str())

	// raise: 首个失败直接报错
	_, _, err = n.ConvertTypes(table, map[string]string{"age": "integer"}, ConvertRaise)
	require.ErrorIs(t, err, ErrNormalization)
	assert.Contains(t, err.Error(), "age")

	_, _, err = n.ConvertTypes(table, map[string]string{"ghost": "integer"}, ConvertCoerce)
	assert.ErrorIs(t, err, ErrNormalization)

	_, _, err = n.ConvertTypes(table, map[string]string{"age": "integer"}, "silently")
	assert.ErrorIs(t, err, ErrNormalization)

	_, _, err = n.ConvertTypes(table, nil, ConvertCoerce)
	assert.ErrorIs(t, err, ErrNormalization)
}

func TestFlattenMap(t *testing.T) {
	flat := FlattenMap(map[string]interface{}{
		"id": 1,
		"user": map[string]interface{}{
			"name": "张三",
			"addr": map[string]interface{}{"city": "北京"},
		},
	}, "")

	assert.Equal(t, 1, flat["id"])
	assert.Equal(t, "张三", flat["user.name"])
	assert.Equal(t, "北京", flat["user.addr.city"])
	assert.Len(t, flat, 3)

	flat = FlattenMap(map[string]interface{}{
		"a": map[string]interface{}{"b": 2},
	}, "_")
	assert.Equal(t, 2, flat["a_b"])
}

func TestPivot(t *testing.T) {
	n := NewNormalizer()
	table := tableOf(t, []string{"month", "metric", "value"},
		[]interface{}{"1月", "sales", 100},
		[]interface{}{"1月", "cost", 60},
		[]interface{}{"2月", "sales", 120},
	)

	result, report, err := n.Pivot(table, "month", "metric", "value")
	require.NoError(t, err)
	assert.Equal(t, []string{"month", "sales", "cost"}, result.Columns)
	require.Equal(t, 2, result.RowCount())
	assert.Equal(t, int64(100), result.Rows[0][1].Int())
	assert.Equal(t, int64(60), result.Rows[0][2].Int())
	assert.True(t, result.Rows[1][2].IsNull(), "缺失的组合补空")
	assert.Empty(t, report.Warnings)

	_, _, err = n.Pivot(table, "ghost", "metric", "value")
	assert.ErrorIs(t, err, ErrNormalization)
}

func TestPivot_DuplicateCombination(t *testing.T) {
	n := NewNormalizer()
	table := tableOf(t, []string{"k", "col", "v"},
		[]interface{}{"a", "x", 1},
		[]interface{}{"a", "x", 2},
	)

	result, report, err := n.Pivot(table, "k", "col", "v")
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Rows[0][1].Int(), "重复组合保留最后一个")
	assert.NotEmpty(t, report.Warnings)
}

func TestUnpivot(t *testing.T) {
	n := NewNormalizer()
	table := tableOf(t, []string{"name", "math", "english"},
		[]interface{}{"张三", 90, 85},
		[]interface{}{"李四", 70, 95},
	)

	result, report, err := n.Unpivot(table, []string{"name"}, "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "variable", "value"}, result.Columns)
	require.Equal(t, 4, result.RowCount())
	assert.Equal(t, "张三", result.Rows[0][0].Str())
	assert.Equal(t, "math", result.Rows[0][1].Str())
	assert.Equal(t, int64(90), result.Rows[0][2].Int())
	assert.Equal(t, "english", result.Rows[1][1].Str())
	assert.Equal(t, 4, report.Changes["rows_after"])

	_, _, err = n.Unpivot(table, []string{"ghost"}, "", "")
	assert.ErrorIs(t, err, ErrNormalization)

	_, _, err = n.Unpivot(table, []string{"name", "math", "english"}, "", "")
	assert.ErrorIs(t, err, ErrNormalization, "没有可折叠的列")
}

package transformation

import (
	"testing"

	"dataset-ingestion-service/service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableOf(t *testing.T, columns []string, rows ...[]interface{}) *models.Table {
	t.Helper()
	table := models.NewTable(columns)
	for _, row := range rows {
		cells := make([]models.CellValue, len(row))
		for i, v := range row {
			cells[i] = cellFromAny(v)
		}
		table.AppendRow(cells)
	}
	return table
}

func TestRemoveDuplicates(t *testing.T) {
	c := NewCleaner()
	table := tableOf(t, []string{"id", "name"},
		[]interface{}{1, "a"},
		[]interface{}{2, "b"},
		[]interface{}{1, "a"},
	)

	result, report, err := c.RemoveDuplicates(table, nil, "")
	require.NoError(t, err)
	assert.Equal(t, 2, result.RowCount())
	assert.Equal(t, 1, report.Changes["rows_removed"])
	// 输入表不变
	assert.Equal(t, 3, table.RowCount())
}

func TestRemoveDuplicates_KeepLast(t *testing.T) {
	c := NewCleaner()
	table := tableOf(t, []string{"id", "name"},
		[]interface{}{1, "旧"},
		[]interface{}{2, "b"},
		[]interface{}{1, "新"},
	)

	result, report, err := c.RemoveDuplicates(table, []string{"id"}, KeepLast)
	require.NoError(t, err)
	require.Equal(t, 2, result.RowCount())
	assert.Equal(t, "b", result.Rows[0][1].Str())
	assert.Equal(t, "新", result.Rows[1][1].Str(), "保留最后一次出现的行")
	assert.Equal(t, KeepLast, report.Changes["keep"])

	_, _, err = c.RemoveDuplicates(table, nil, "middle")
	assert.ErrorIs(t, err, ErrCleaning)
}

func TestRemoveDuplicates_Subset(t *testing.T) {
	c := NewCleaner()
	table := tableOf(t, []string{"id", "name"},
		[]interface{}{1, "a"},
		[]interface{}{1, "b"},
	)

	result, _, err := c.RemoveDuplicates(table, []string{"id"}, KeepFirst)
	require.NoError(t, err)
	assert.Equal(t, 1, result.RowCount())
	assert.Equal(t, "a", result.Rows[0][1].Str())

	_, _, err = c.RemoveDuplicates(table, []string{"ghost"}, "")
	assert.ErrorIs(t, err, ErrCleaning)
}

func TestTrimWhitespace(t *testing.T) {
	c := NewCleaner()
	table := tableOf(t, []string{"name"},
		[]interface{}{"  alice  "},
		[]interface{}{"bob"},
	)

	result, report, err := c.TrimWhitespace(table, nil)
	require.NoError(t, err)
	assert.Equal(t, "alice", result.Rows[0][0].Str())
	assert.Equal(t, 1, report.Changes["cells_trimmed"])
}

func TestHandleMissing_Drop(t *testing.T) {
	c := NewCleaner()
	table := tableOf(t, []string{"a", "b"},
		[]interface{}{1, "x"},
		[]interface{}{nil, "y"},
		[]interface{}{nil, nil},
	)

	result, _, err := c.HandleMissing(table, MissingDrop, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.RowCount())

	result, _, err = c.HandleMissing(table, MissingDropAll, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.RowCount())
}

func TestHandleMissing_FillMean(t *testing.T) {
	c := NewCleaner()
	table := tableOf(t, []string{"v"},
		[]interface{}{10.0},
		[]interface{}{nil},
		[]interface{}{20.0},
	)

	result, report, err := c.HandleMissing(table, MissingFillMean, []string{"v"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 15.0, result.Rows[1][0].Float())
	assert.Equal(t, 1, report.Changes["cells_filled"])
}

func TestHandleMissing_FillMode(t *testing.T) {
	c := NewCleaner()
	table := tableOf(t, []string{"v"},
		[]interface{}{"a"},
		[]interface{}{"a"},
		[]interface{}{"b"},
		[]interface{}{nil},
	)

	result, _, err := c.HandleMissing(table, MissingFillMode, []string{"v"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "a", result.Rows[3][0].Str())
}

func TestHandleMissing_FillDirectional(t *testing.T) {
	c := NewCleaner()
	table := tableOf(t, []string{"v"},
		[]interface{}{nil},
		[]interface{}{"x"},
		[]interface{}{nil},
	)

	result, _, err := c.HandleMissing(table, MissingFillForward, []string{"v"}, nil)
	require.NoError(t, err)
	assert.True(t, result.Rows[0][0].IsNull(), "前向填充没有前值时保持空")
	assert.Equal(t, "x", result.Rows[2][0].Str())

	result, _, err = c.HandleMissing(table, MissingFillBackward, []string{"v"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "x", result.Rows[0][0].Str())
	assert.True(t, result.Rows[2][0].IsNull())
}

func TestHandleMissing_FillValue(t *testing.T) {
	c := NewCleaner()
	table := tableOf(t, []string{"v"}, []interface{}{nil})

	result, _, err := c.HandleMissing(table, MissingFillValue, nil, "unknown")
	require.NoError(t, err)
	assert.Equal(t, "unknown", result.Rows[0][0].Str())

	_, _, err = c.HandleMissing(table, MissingFillValue, nil, nil)
	assert.ErrorIs(t, err, ErrCleaning)
}

func TestHandleMissing_Interpolate(t *testing.T) {
	c := NewCleaner()
	table := tableOf(t, []string{"v"},
		[]interface{}{1.0},
		[]interface{}{nil},
		[]interface{}{nil},
		[]interface{}{4.0},
	)

	result, report, err := c.HandleMissing(table, MissingInterpolate, []string{"v"}, nil)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, result.Rows[1][0].Float(), 0.001)
	assert.InDelta(t, 3.0, result.Rows[2][0].Float(), 0.001)
	assert.Equal(t, 2, report.Changes["cells_filled"])
}

func TestHandleMissing_UnknownStrategy(t *testing.T) {
	c := NewCleaner()
	table := tableOf(t, []string{"v"}, []interface{}{1})

	_, _, err := c.HandleMissing(table, "magic", nil, nil)
	assert.ErrorIs(t, err, ErrCleaning)
}

func TestRemoveOutliers_IQR(t *testing.T) {
	c := NewCleaner()
	table := tableOf(t, []string{"v"},
		[]interface{}{10.0}, []interface{}{12.0}, []interface{}{11.0},
		[]interface{}{13.0}, []interface{}{12.0}, []interface{}{100.0},
	)

	result, report, err := c.RemoveOutliers(table, OutlierIQR, []string{"v"}, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, result.RowCount())
	assert.Equal(t, 1, report.Changes["rows_removed"])
}

func TestRemoveOutliers_ZeroVariance(t *testing.T) {
	c := NewCleaner()
	table := tableOf(t, []string{"v"},
		[]interface{}{5.0}, []interface{}{5.0}, []interface{}{5.0},
	)

	result, report, err := c.RemoveOutliers(table, OutlierZScore, []string{"v"}, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, result.RowCount(), "零方差列不应剔除任何行")
	assert.NotEmpty(t, report.Warnings)
}

func TestCleanNumeric(t *testing.T) {
	c := NewCleaner()
	table := tableOf(t, []string{"amount"},
		[]interface{}{"$1,234"},
		[]interface{}{"45.5%"},
		[]interface{}{"abc"},
	)

	result, report, err := c.CleanNumeric(table, []string{"amount"}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.CellInt, result.Rows[0][0].Kind())
	assert.Equal(t, int64(1234), result.Rows[0][0].Int())
	assert.Equal(t, models.CellFloat, result.Rows[1][0].Kind())
	assert.InDelta(t, 45.5, result.Rows[1][0].Float(), 0.001)
	assert.Equal(t, "abc", result.Rows[2][0].Str(), "无法解析的值保持原样")
	assert.Equal(t, 2, report.Changes["cells_converted"])
	assert.Equal(t, 1, report.Changes["cells_failed"])
}

func TestStandardizeCase(t *testing.T) {
	c := NewCleaner()
	table := tableOf(t, []string{"name"}, []interface{}{"hello WORLD"})

	result, _, err := c.StandardizeCase(table, nil, "lower")
	require.NoError(t, err)
	assert.Equal(t, "hello world", result.Rows[0][0].Str())

	result, _, err = c.StandardizeCase(table, nil, "title")
	require.NoError(t, err)
	assert.Equal(t, "Hello World", result.Rows[0][0].Str())

	result, _, err = c.StandardizeCase(table, nil, "capitalize")
	require.NoError(t, err)
	assert.Equal(t, "Hello world", result.Rows[0][0].Str())

	_, _, err = c.StandardizeCase(table, nil, "mixed")
	assert.ErrorIs(t, err, ErrCleaning)
}

func TestNormalizeDates(t *testing.T) {
	c := NewCleaner()
	table := tableOf(t, []string{"日期"},
		[]interface{}{"2023/01/15"},
		[]interface{}{"2023-01-16 08:30:00"},
		[]interface{}{"不是日期"},
		[]interface{}{nil},
	)

	result, report, err := c.NormalizeDates(table, []string{"日期"}, "")
	require.NoError(t, err)
	assert.Equal(t, "2023-01-15", result.Rows[0][0].Str())
	assert.Equal(t, "2023-01-16", result.Rows[1][0].Str())
	assert.Equal(t, "不是日期", result.Rows[2][0].Str(), "解析失败的值保持原样")
	assert.True(t, result.Rows[3][0].IsNull())
	assert.Equal(t, 2, report.Changes["cells_converted"])
	assert.Equal(t, 1, report.Changes["cells_failed"])
	assert.Len(t, report.Warnings, 1)

	// 自定义格式
	result, _, err = c.NormalizeDates(table, []string{"日期"}, "2006/01/02")
	require.NoError(t, err)
	assert.Equal(t, "2023/01/15", result.Rows[0][0].Str())

	_, _, err = c.NormalizeDates(table, []string{"ghost"}, "")
	assert.ErrorIs(t, err, ErrCleaning)
}

func TestReplaceValues(t *testing.T) {
	c := NewCleaner()
	table := tableOf(t, []string{"status"},
		[]interface{}{"1"}, []interface{}{"0"}, []interface{}{"1"},
	)

	result, report, err := c.ReplaceValues(table, "status", map[string]interface{}{
		"1": "active", "0": "inactive",
	})
	require.NoError(t, err)
	assert.Equal(t, "active", result.Rows[0][0].Str())
	assert.Equal(t, "inactive", result.Rows[1][0].Str())
	assert.Equal(t, 3, report.Changes["cells_replaced"])

	_, _, err = c.ReplaceValues(table, "ghost", nil)
	assert.ErrorIs(t, err, ErrCleaning)
}

func TestMaskSensitive(t *testing.T) {
	c := NewCleaner()
	table := tableOf(t, []string{"phone", "email"},
		[]interface{}{"13812345678", "zhang@example.com"},
		[]interface{}{nil, "li@test.org"},
	)

	result, report, err := c.MaskSensitive(table, []string{"phone", "email"},
		map[string]string{"phone": "phone", "email": "email"})
	require.NoError(t, err)
	assert.Equal(t, "138****5678", result.Rows[0][0].Str())
	assert.Equal(t, "z***g@example.com", result.Rows[0][1].Str())
	assert.True(t, result.Rows[1][0].IsNull())
	assert.Equal(t, 3, report.Changes["cells_masked"])
	// 输入表不变
	assert.Equal(t, "13812345678", table.Rows[0][0].Str())
}

func TestMaskSensitive_AutoDetect(t *testing.T) {
	c := NewCleaner()
	table := tableOf(t, []string{"contact"}, []interface{}{"13812345678"})

	result, _, err := c.MaskSensitive(table, []string{"contact"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "138****5678", result.Rows[0][0].Str())
}

func TestMaskSensitive_RequiresColumns(t *testing.T) {
	c := NewCleaner()
	table := tableOf(t, []string{"a"}, []interface{}{"x"})

	_, _, err := c.MaskSensitive(table, nil, nil)
	assert.ErrorIs(t, err, ErrCleaning)
}

func TestRenameColumns(t *testing.T) {
	c := NewCleaner()
	table := tableOf(t, []string{"姓名", "age"}, []interface{}{"张三", 30})

	result, report, err := c.RenameColumns(table, map[string]string{"姓名": "name"})
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "age"}, result.Columns)
	renames := report.Changes["renames"].(map[string]interface{})
	assert.Equal(t, "name", renames["姓名"])
	// 输入表不变
	assert.Equal(t, []string{"姓名", "age"}, table.Columns)

	_, _, err = c.RenameColumns(table, map[string]string{"ghost": "x"})
	assert.ErrorIs(t, err, ErrCleaning)

	_, _, err = c.RenameColumns(table, map[string]string{"姓名": "age"})
	assert.ErrorIs(t, err, ErrCleaning, "重名冲突应报错")

	_, _, err = c.RenameColumns(table, nil)
	assert.ErrorIs(t, err, ErrCleaning)
}

func TestDropColumns(t *testing.T) {
	c := NewCleaner()
	table := tableOf(t, []string{"a", "b", "c"}, []interface{}{1, 2, 3})

	result, _, err := c.DropColumns(table, []string{"b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, result.Columns)
	assert.Equal(t, 2, len(result.Rows[0]))

	_, _, err = c.DropColumns(table, []string{"ghost"})
	assert.ErrorIs(t, err, ErrCleaning)
}

package transformation

import (
	"testing"

	"dataset-ingestion-service/service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuggestMapping_Exact(t *testing.T) {
	m := NewSchemaMapper()

	plan := m.SuggestMapping([]string{"User Name", "Age"}, []string{"user_name", "age"})
	require.Len(t, plan.Suggestions, 2)
	for _, s := range plan.Suggestions {
		assert.Equal(t, "exact", s.MatchType)
		assert.Equal(t, 1.0, s.Confidence)
		assert.True(t, s.AutoAccepted)
	}
	assert.Empty(t, plan.Unmapped)
	assert.Empty(t, plan.MissingTargets)
}

func TestSuggestMapping_Synonym(t *testing.T) {
	m := NewSchemaMapper()

	plan := m.SuggestMapping([]string{"qty"}, []string{"quantity"})
	require.Len(t, plan.Suggestions, 1)
	assert.Equal(t, "synonym", plan.Suggestions[0].MatchType)
	assert.Greater(t, plan.Suggestions[0].Confidence, 0.6)
}

func TestSuggestMapping_Affix(t *testing.T) {
	m := NewSchemaMapper()

	plan := m.SuggestMapping([]string{"customer_id"}, []string{"customer"})
	require.Len(t, plan.Suggestions, 1)
	assert.Equal(t, "affix", plan.Suggestions[0].MatchType)
	assert.True(t, plan.Suggestions[0].AutoAccepted)
}

func TestSuggestMapping_UnmappedAndMissing(t *testing.T) {
	m := NewSchemaMapper()

	plan := m.SuggestMapping([]string{"zzz_xq"}, []string{"revenue"})
	assert.Empty(t, plan.Suggestions)
	assert.Equal(t, []string{"zzz_xq"}, plan.Unmapped)
	assert.Equal(t, []string{"revenue"}, plan.MissingTargets)
}

func TestSuggestMapping_OneSourcePerTarget(t *testing.T) {
	m := NewSchemaMapper()

	// 两个相近源列争夺同一目标列，只有分数高的胜出
	plan := m.SuggestMapping([]string{"amount", "amounts"}, []string{"amount"})
	require.Len(t, plan.Suggestions, 1)
	assert.Equal(t, "amount", plan.Suggestions[0].SourceColumn)
	assert.Equal(t, []string{"amounts"}, plan.Unmapped)
}

func TestSetThreshold(t *testing.T) {
	m := NewSchemaMapper()
	m.SetThreshold(0.99)

	plan := m.SuggestMapping([]string{"qty"}, []string{"quantity"})
	assert.Empty(t, plan.Suggestions, "高阈值应过滤掉模糊建议")

	// 非法阈值被忽略
	m.SetThreshold(0)
	plan = m.SuggestMapping([]string{"qty"}, []string{"quantity"})
	assert.Empty(t, plan.Suggestions)
}

func TestValidateMapping(t *testing.T) {
	m := NewSchemaMapper()
	table := tableOf(t, []string{"a", "b"}, []interface{}{1, 2})

	assert.NoError(t, m.ValidateMapping(table, map[string]string{"a": "x", "b": "y"}))

	err := m.ValidateMapping(table, map[string]string{"ghost": "x"})
	assert.ErrorIs(t, err, ErrMappingValidation)

	err = m.ValidateMapping(table, map[string]string{"a": ""})
	assert.ErrorIs(t, err, ErrMappingValidation)

	err = m.ValidateMapping(table, map[string]string{"a": "x", "b": "x"})
	assert.ErrorIs(t, err, ErrMappingValidation)
}

func TestApplyMapping_RenameAndReorder(t *testing.T) {
	m := NewSchemaMapper()
	table := tableOf(t, []string{"nm", "ag"},
		[]interface{}{"alice", "30"},
		[]interface{}{"bob", "25"},
	)

	result, _, err := m.ApplyMapping(table,
		map[string]string{"nm": "name", "ag": "age"},
		[]string{"age", "name"}, MappingOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"age", "name"}, result.Columns)
	assert.Equal(t, "30", result.Rows[0][0].Str())
	assert.Equal(t, "alice", result.Rows[0][1].Str())
}

func TestApplyMapping_MissingTarget(t *testing.T) {
	m := NewSchemaMapper()
	table := tableOf(t, []string{"nm"}, []interface{}{"alice"})

	// 默认目标列无来源报错
	_, _, err := m.ApplyMapping(table,
		map[string]string{"nm": "name"},
		[]string{"name", "email"}, MappingOptions{})
	assert.ErrorIs(t, err, ErrSchemaMapping)

	// 开启补空后填充空值并告警
	result, report, err := m.ApplyMapping(table,
		map[string]string{"nm": "name"},
		[]string{"name", "email"}, MappingOptions{FillMissingWithNull: true})
	require.NoError(t, err)
	assert.True(t, result.Rows[0][1].IsNull())
	assert.NotEmpty(t, report.Warnings)
}

func TestApplyMapping_TypeConversion(t *testing.T) {
	m := NewSchemaMapper()
	table := tableOf(t, []string{"ag"},
		[]interface{}{"30"}, []interface{}{"25"},
	)

	result, _, err := m.ApplyMapping(table,
		map[string]string{"ag": "age"}, []string{"age"},
		MappingOptions{TargetTypes: map[string]string{"age": "integer"}})
	require.NoError(t, err)
	assert.Equal(t, models.CellInt, result.Rows[0][0].Kind())
	assert.Equal(t, int64(30), result.Rows[0][0].Int())
}

func TestApplyMapping_ConversionBelowThreshold(t *testing.T) {
	m := NewSchemaMapper()
	table := tableOf(t, []string{"ag"},
		[]interface{}{"30"}, []interface{}{"old"},
	)

	_, _, err := m.ApplyMapping(table,
		map[string]string{"ag": "age"}, []string{"age"},
		MappingOptions{TargetTypes: map[string]string{"age": "integer"}})
	assert.ErrorIs(t, err, ErrSchemaMapping)

	// 强制转换时失败值置空并告警
	result, report, err := m.ApplyMapping(table,
		map[string]string{"ag": "age"}, []string{"age"},
		MappingOptions{
			TargetTypes:     map[string]string{"age": "integer"},
			ForceConversion: true,
		})
	require.NoError(t, err)
	assert.Equal(t, int64(30), result.Rows[0][0].Int())
	assert.True(t, result.Rows[1][0].IsNull())
	assert.NotEmpty(t, report.Warnings)
}

func TestConvertCell(t *testing.T) {
	cell, ok := convertCell(models.StringCell("true"), "boolean")
	assert.True(t, ok)
	assert.True(t, cell.Bool())

	cell, ok = convertCell(models.StringCell("2024-01-15"), "date")
	assert.True(t, ok)
	assert.Equal(t, models.CellTime, cell.Kind())

	_, ok = convertCell(models.StringCell("12.5"), "integer")
	assert.False(t, ok, "带小数不能转整数")

	cell, ok = convertCell(models.NullCell(), "integer")
	assert.True(t, ok)
	assert.True(t, cell.IsNull())
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, similarity("abc", "abc"))
	assert.Equal(t, 0.0, similarity("abc", "xyz"))
	assert.Equal(t, 1.0, similarity("", ""))
	assert.Greater(t, similarity("customer", "customers"), 0.9)
}

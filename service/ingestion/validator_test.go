package ingestion

import (
	"testing"

	"dataset-ingestion-service/service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildUserTable() *models.Table {
	table := models.NewTable([]string{"id", "name", "age", "email"})
	table.AppendRow([]models.CellValue{
		models.IntCell(1), models.StringCell("张三"), models.IntCell(25), models.StringCell("zhang@example.com"),
	})
	table.AppendRow([]models.CellValue{
		models.IntCell(2), models.StringCell("李四"), models.IntCell(200), models.StringCell("li@example.com"),
	})
	table.AppendRow([]models.CellValue{
		models.IntCell(2), models.NullCell(), models.IntCell(30), models.StringCell("bad-email"),
	})
	return table
}

func TestValidate_NotNull(t *testing.T) {
	v := NewValidator()

	report, err := v.Validate(buildUserTable(), []models.ValidationRule{
		{Name: "name_required", Kind: "required", Columns: []string{"name"}},
	})
	require.NoError(t, err)
	assert.False(t, report.Passed)
	assert.Equal(t, 1, report.ErrorCount)

	result := report.RuleResults[0]
	assert.Equal(t, 1, result.FailedCount)
	assert.Equal(t, []int{3}, result.SampleRows)
}

func TestValidate_Unique(t *testing.T) {
	v := NewValidator()

	report, err := v.Validate(buildUserTable(), []models.ValidationRule{
		{Name: "id_unique", Kind: "unique", Columns: []string{"id"}},
	})
	require.NoError(t, err)
	assert.False(t, report.Passed)
	assert.Equal(t, 1, report.RuleResults[0].FailedCount)
	assert.Contains(t, report.RuleResults[0].Message, "重复值")

	// 重复组带出所有出现的行号
	groups := report.RuleResults[0].Details["duplicate_groups"].(map[string]interface{})
	assert.Equal(t, []int{2, 3}, groups["2"])
}

func TestValidate_Range(t *testing.T) {
	v := NewValidator()

	report, err := v.Validate(buildUserTable(), []models.ValidationRule{
		{Name: "age_range", Kind: "range", Columns: []string{"age"},
			Params: map[string]interface{}{"min": 0, "max": 150}},
	})
	require.NoError(t, err)
	assert.False(t, report.Passed)
	assert.Equal(t, 1, report.RuleResults[0].FailedCount)
	assert.Equal(t, []int{2}, report.RuleResults[0].SampleRows)

	// 实际观测范围随结果带出
	assert.Equal(t, 25.0, report.RuleResults[0].Details["observed_min"])
	assert.Equal(t, 200.0, report.RuleResults[0].Details["observed_max"])
}

func TestValidate_Length(t *testing.T) {
	v := NewValidator()

	report, err := v.Validate(buildUserTable(), []models.ValidationRule{
		{Name: "name_length", Kind: "length", Columns: []string{"name"},
			Params: map[string]interface{}{"min": 3}},
	})
	require.NoError(t, err)
	// 张三、李四都是2个字符，空值跳过
	assert.Equal(t, 2, report.RuleResults[0].FailedCount)
}

func TestValidate_Pattern(t *testing.T) {
	v := NewValidator()

	report, err := v.Validate(buildUserTable(), []models.ValidationRule{
		{Name: "email_format", Kind: "pattern", Columns: []string{"email"},
			Severity: models.SeverityWarning,
			Params:   map[string]interface{}{"pattern": `^[^@]+@[^@]+\.[^@]+$`}},
	})
	require.NoError(t, err)
	assert.True(t, report.Passed, "warning级失败不影响整体通过")
	assert.Equal(t, 1, report.WarningCount)
	assert.Equal(t, 1, report.RuleResults[0].FailedCount)

	// 缺少pattern参数
	_, err = v.Validate(buildUserTable(), []models.ValidationRule{
		{Name: "bad", Kind: "pattern", Columns: []string{"email"}},
	})
	assert.ErrorIs(t, err, ErrInvalidRule)
}

func TestValidate_InSet(t *testing.T) {
	v := NewValidator()

	table := models.NewTable([]string{"status"})
	table.AppendRow([]models.CellValue{models.StringCell("active")})
	table.AppendRow([]models.CellValue{models.StringCell("deleted")})

	report, err := v.Validate(table, []models.ValidationRule{
		{Name: "status_enum", Kind: "in_set", Columns: []string{"status"},
			Params: map[string]interface{}{"values": []interface{}{"active", "inactive"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.RuleResults[0].FailedCount)
	assert.Equal(t, "deleted", report.RuleResults[0].SampleValues[0])
}

func TestValidate_Type(t *testing.T) {
	v := NewValidator()

	table := models.NewTable([]string{"amount"})
	table.AppendRow([]models.CellValue{models.StringCell("12.5")})
	table.AppendRow([]models.CellValue{models.StringCell("abc")})

	report, err := v.Validate(table, []models.ValidationRule{
		{Name: "amount_numeric", Kind: "type", Columns: []string{"amount"},
			Params: map[string]interface{}{"type": "float"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.RuleResults[0].FailedCount)

	// 失败占比随消息一起带出
	assert.Contains(t, report.RuleResults[0].Message, "50.0%")
	assert.Equal(t, 0.5, report.RuleResults[0].Details["failed_ratio"])
}

func TestValidate_ColumnsExist_Abort(t *testing.T) {
	v := NewValidator()

	_, err := v.Validate(buildUserTable(), []models.ValidationRule{
		{Name: "schema", Kind: "columns_exist", Columns: []string{"id", "salary"}},
	})
	assert.ErrorIs(t, err, ErrMissingColumns)
}

func TestValidate_ColumnsExist_NoAbort(t *testing.T) {
	v := NewValidator()

	report, err := v.Validate(buildUserTable(), []models.ValidationRule{
		{Name: "schema", Kind: "columns_exist", Columns: []string{"salary"},
			Params: map[string]interface{}{"abort": false}},
	})
	require.NoError(t, err)
	assert.False(t, report.Passed)
	assert.Contains(t, report.RuleResults[0].Message, "salary")
}

func TestValidate_RowCount(t *testing.T) {
	v := NewValidator()

	report, err := v.Validate(buildUserTable(), []models.ValidationRule{
		{Name: "min_rows", Kind: "row_count", Params: map[string]interface{}{"min": 10}},
	})
	require.NoError(t, err)
	assert.False(t, report.Passed)
	assert.Contains(t, report.RuleResults[0].Message, "低于下限")

	report, err = v.Validate(buildUserTable(), []models.ValidationRule{
		{Name: "max_rows", Kind: "row_count", Params: map[string]interface{}{"max": 2}},
	})
	require.NoError(t, err)
	assert.Contains(t, report.RuleResults[0].Message, "超过上限")
}

func TestValidate_CustomRule(t *testing.T) {
	v := NewValidator()
	require.NoError(t, v.RegisterCustomRule("positive_id", `func(v interface{}) bool {
		n, ok := v.(int64)
		return ok && n > 0
	}`))

	table := models.NewTable([]string{"id"})
	table.AppendRow([]models.CellValue{models.IntCell(5)})
	table.AppendRow([]models.CellValue{models.IntCell(-3)})

	report, err := v.Validate(table, []models.ValidationRule{
		{Name: "positive_id", Kind: "custom", Columns: []string{"id"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.RuleResults[0].FailedCount)
}

func TestValidate_CustomRule_InlineScript(t *testing.T) {
	v := NewValidator()

	table := models.NewTable([]string{"name"})
	table.AppendRow([]models.CellValue{models.StringCell("ok")})

	report, err := v.Validate(table, []models.ValidationRule{
		{Name: "non_empty", Kind: "custom", Columns: []string{"name"},
			Script: `func(v interface{}) bool {
				s, ok := v.(string)
				return ok && len(s) > 0
			}`},
	})
	require.NoError(t, err)
	assert.True(t, report.Passed)
}

func TestValidate_CustomRule_Invalid(t *testing.T) {
	v := NewValidator()

	// 未注册且无脚本
	_, err := v.Validate(buildUserTable(), []models.ValidationRule{
		{Name: "ghost", Kind: "custom", Columns: []string{"id"}},
	})
	assert.ErrorIs(t, err, ErrInvalidRule)

	// 脚本求值结果类型不对
	err = v.RegisterCustomRule("bad", `42`)
	assert.ErrorIs(t, err, ErrInvalidRule)
}

func TestValidate_UnknownKind(t *testing.T) {
	v := NewValidator()

	_, err := v.Validate(buildUserTable(), []models.ValidationRule{
		{Name: "x", Kind: "telepathy"},
	})
	assert.ErrorIs(t, err, ErrInvalidRule)
}

func TestValidate_MissingColumnInRule(t *testing.T) {
	v := NewValidator()

	report, err := v.Validate(buildUserTable(), []models.ValidationRule{
		{Name: "nope", Kind: "required", Columns: []string{"not_a_column"}},
	})
	require.NoError(t, err)
	assert.False(t, report.Passed)
	assert.Contains(t, report.RuleResults[0].Message, "列不存在")
}

func TestValidate_SeverityAggregation(t *testing.T) {
	v := NewValidator()

	report, err := v.Validate(buildUserTable(), []models.ValidationRule{
		{Name: "e", Kind: "required", Columns: []string{"name"}},
		{Name: "w", Kind: "range", Columns: []string{"age"}, Severity: models.SeverityWarning,
			Params: map[string]interface{}{"max": 100}},
		{Name: "i", Kind: "row_count", Severity: models.SeverityInfo,
			Params: map[string]interface{}{"min": 100}},
	})
	require.NoError(t, err)
	assert.False(t, report.Passed)
	assert.Equal(t, 1, report.ErrorCount)
	assert.Equal(t, 1, report.WarningCount)
	assert.Equal(t, 1, report.InfoCount)
	assert.Len(t, report.RuleResults, 3)
}

func TestValidate_SampleCap(t *testing.T) {
	v := NewValidator()

	table := models.NewTable([]string{"v"})
	for i := 0; i < 30; i++ {
		table.AppendRow([]models.CellValue{models.NullCell()})
	}

	report, err := v.Validate(table, []models.ValidationRule{
		{Name: "v_required", Kind: "required", Columns: []string{"v"}},
	})
	require.NoError(t, err)
	result := report.RuleResults[0]
	assert.Equal(t, 30, result.FailedCount)
	assert.Len(t, result.SampleRows, 10)
}

func TestValidate_NilTable(t *testing.T) {
	v := NewValidator()

	_, err := v.Validate(nil, nil)
	assert.Error(t, err)
}

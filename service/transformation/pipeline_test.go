package transformation

import (
	"context"
	"testing"

	"dataset-ingestion-service/service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPipeline_UnknownOperation(t *testing.T) {
	_, err := BuildPipeline([]StepConfig{
		{Operation: "teleport"},
	}, true)
	assert.ErrorIs(t, err, ErrUnknownOperation)
}

func TestBuildPipeline_MissingParams(t *testing.T) {
	cases := []StepConfig{
		{Operation: "replace_values"},
		{Operation: "drop_columns"},
		{Operation: "mask_sensitive"},
		{Operation: "rename_columns"},
		{Operation: "convert_types"},
		{Operation: "encode_categorical"},
		{Operation: "apply_mapping"},
	}
	for _, cfg := range cases {
		_, err := BuildPipeline([]StepConfig{cfg}, true)
		assert.ErrorIs(t, err, ErrUnknownOperation, cfg.Operation)
	}
}

func TestBuildPipeline_EmptyAndDuplicateNames(t *testing.T) {
	_, err := BuildPipeline(nil, true)
	assert.ErrorIs(t, err, ErrPipeline)

	_, err = BuildPipeline([]StepConfig{
		{Name: "s", Operation: "trim_whitespace"},
		{Name: "s", Operation: "remove_duplicates"},
	}, true)
	assert.ErrorIs(t, err, ErrPipeline)
}

func TestPipelineRun(t *testing.T) {
	pipeline, err := BuildPipeline([]StepConfig{
		{Name: "trim", Operation: "trim_whitespace"},
		{Name: "dedup", Operation: "remove_duplicates"},
		{Name: "mask", Operation: "mask_sensitive", Params: map[string]interface{}{
			"columns":    []interface{}{"phone"},
			"mask_types": map[string]interface{}{"phone": "phone"},
		}},
	}, true)
	require.NoError(t, err)

	table := tableOf(t, []string{"name", "phone"},
		[]interface{}{"  alice ", "13812345678"},
		[]interface{}{"alice", "13812345678"},
		[]interface{}{"bob", "13987654321"},
	)

	result, pipelineResult, err := pipeline.Run(context.Background(), table)
	require.NoError(t, err)
	assert.True(t, pipelineResult.Success)
	require.Len(t, pipelineResult.Steps, 3)

	// 修剪后两个alice行重复，去重剩2行
	assert.Equal(t, 2, result.RowCount())
	assert.Equal(t, 3, pipelineResult.Steps[0].RowsIn)
	assert.Equal(t, 2, pipelineResult.Steps[1].RowsOut)
	assert.Equal(t, "138****5678", result.Rows[0][1].Str())

	// 输入表不受影响
	assert.Equal(t, 3, table.RowCount())
	assert.Equal(t, "  alice ", table.Rows[0][0].Str())
}

func TestPipelineRun_StopOnError(t *testing.T) {
	pipeline, err := BuildPipeline([]StepConfig{
		{Name: "bad", Operation: "replace_values", Params: map[string]interface{}{
			"column":  "ghost",
			"mapping": map[string]interface{}{"a": "b"},
		}},
		{Name: "trim", Operation: "trim_whitespace"},
	}, true)
	require.NoError(t, err)

	table := tableOf(t, []string{"v"}, []interface{}{"x"})

	_, result, err := pipeline.Run(context.Background(), table)
	assert.ErrorIs(t, err, ErrPipeline)
	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.Len(t, result.Steps, 1, "首个失败后不再执行后续步骤")
	assert.NotEmpty(t, result.Steps[0].Error)
}

func TestPipelineRun_ContinueOnError(t *testing.T) {
	pipeline, err := BuildPipeline([]StepConfig{
		{Name: "bad", Operation: "replace_values", Params: map[string]interface{}{
			"column":  "ghost",
			"mapping": map[string]interface{}{"a": "b"},
		}},
		{Name: "trim", Operation: "trim_whitespace"},
	}, false)
	require.NoError(t, err)

	table := tableOf(t, []string{"v"}, []interface{}{" x "})

	result, pipelineResult, err := pipeline.Run(context.Background(), table)
	require.NoError(t, err)
	assert.False(t, pipelineResult.Success)
	assert.Len(t, pipelineResult.Steps, 2)
	assert.Equal(t, "x", result.Rows[0][0].Str(), "失败步骤跳过，后续步骤照常执行")
}

func TestPipelineRun_Cancelled(t *testing.T) {
	pipeline, err := BuildPipeline([]StepConfig{
		{Name: "trim", Operation: "trim_whitespace"},
	}, true)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	table := tableOf(t, []string{"v"}, []interface{}{"x"})
	_, _, err = pipeline.Run(ctx, table)
	assert.ErrorIs(t, err, ErrPipeline)
}

func TestPipelineStepDefaults(t *testing.T) {
	// 步骤名缺省时使用操作名
	pipeline, err := BuildPipeline([]StepConfig{
		{Operation: "remove_duplicates"},
	}, true)
	require.NoError(t, err)

	table := tableOf(t, []string{"v"}, []interface{}{"a"}, []interface{}{"a"})
	_, result, err := pipeline.Run(context.Background(), table)
	require.NoError(t, err)
	assert.Equal(t, "remove_duplicates", result.Steps[0].Name)
}

func TestOperationFunc(t *testing.T) {
	op := OperationFunc(func(_ context.Context, table *models.Table) (*models.Table, *models.CleaningReport, error) {
		return table, &models.CleaningReport{Operation: "noop"}, nil
	})

	table := tableOf(t, []string{"v"}, []interface{}{1})
	out, report, err := op.Execute(context.Background(), table)
	require.NoError(t, err)
	assert.Equal(t, table, out)
	assert.Equal(t, "noop", report.Operation)
}

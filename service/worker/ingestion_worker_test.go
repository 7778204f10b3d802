package worker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"dataset-ingestion-service/service/ingestion"
	"dataset-ingestion-service/service/models"
	"dataset-ingestion-service/service/transformation"
	"dataset-ingestion-service/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureReporter 收集进度事件供断言
type captureReporter struct {
	mu     sync.Mutex
	events []models.ProgressEvent
}

func (c *captureReporter) Report(_ context.Context, event models.ProgressEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *captureReporter) all() []models.ProgressEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.ProgressEvent(nil), c.events...)
}

func (c *captureReporter) last() models.ProgressEvent {
	events := c.all()
	if len(events) == 0 {
		return models.ProgressEvent{}
	}
	return events[len(events)-1]
}

type workerFixture struct {
	db       *testutil.TestDB
	factory  *testutil.TestDataFactory
	store    *LocalFileStore
	reporter *captureReporter
	worker   *IngestionWorker
}

func newWorkerFixture(t *testing.T) *workerFixture {
	t.Helper()
	tdb := testutil.NewTestDB()
	t.Cleanup(tdb.Close)

	store, err := NewLocalFileStore(t.TempDir(), t.TempDir())
	require.NoError(t, err)

	reporter := &captureReporter{}
	return &workerFixture{
		db:       tdb,
		factory:  testutil.NewTestDataFactory(tdb.DB),
		store:    store,
		reporter: reporter,
		worker:   NewIngestionWorker(tdb.DB, store, reporter),
	}
}

// storeCSV 写入CSV内容并创建指向它的数据集
func (f *workerFixture) storeCSV(t *testing.T, content string, opts ...testutil.DatasetOption) *models.Dataset {
	t.Helper()
	key, _, _, err := f.store.Store(context.Background(), "data.csv", strings.NewReader(content))
	require.NoError(t, err)
	opts = append([]testutil.DatasetOption{testutil.WithDatasetFilePath(key)}, opts...)
	return f.factory.CreateDataset(opts...)
}

func TestIngest_EndToEnd(t *testing.T) {
	f := newWorkerFixture(t)
	dataset := f.storeCSV(t, "Name,Age\n  alice  ,30\nbob,25\nbob,25\n")

	result, err := f.worker.Ingest(context.Background(), dataset.ID, IngestOptions{})
	require.NoError(t, err)

	// 默认清洗链去掉1个重复行
	assert.Equal(t, models.DatasetStatusReady, result.Status)
	assert.Equal(t, 2, result.RowCount)
	assert.Equal(t, 2, result.ColumnCount)
	assert.Equal(t, 2, result.RecordsInserted)
	assert.GreaterOrEqual(t, result.DurationMs, int64(0))

	var reloaded models.Dataset
	require.NoError(t, f.db.DB.First(&reloaded, "id = ?", dataset.ID).Error)
	assert.Equal(t, models.DatasetStatusReady, reloaded.Status)
	assert.Equal(t, 2, *reloaded.RowCount)
	assert.Empty(t, reloaded.ProcessingError)

	// 列名规范化为snake，结构元数据包含各阶段产物
	assert.Equal(t, "csv", reloaded.SchemaInfo["format"])
	for _, key := range []string{"type_info", "column_stats", "validation_results",
		"cleaning_reports", "normalized_columns", "records_inserted"} {
		assert.Contains(t, reloaded.SchemaInfo, key)
	}

	var records []models.Record
	require.NoError(t, f.db.DB.Where("dataset_id = ?", dataset.ID).
		Order("row_number").Find(&records).Error)
	require.Len(t, records, 2)
	assert.Equal(t, 1, records[0].RowNumber)
	assert.Equal(t, 2, records[1].RowNumber)
	assert.Equal(t, "alice", records[0].Data["name"], "清洗修剪空白且列名已规范化")

	// 进度事件从0推进到100
	events := f.reporter.all()
	require.NotEmpty(t, events)
	assert.Equal(t, 0, events[0].Progress)
	last := f.reporter.last()
	assert.Equal(t, 100, last.Progress)
	assert.Equal(t, models.DatasetStatusReady, last.Status)
}

func TestIngest_Batching(t *testing.T) {
	f := newWorkerFixture(t)

	var b strings.Builder
	b.WriteString("id,value\n")
	for i := 1; i <= 250; i++ {
		fmt.Fprintf(&b, "%d,v%d\n", i, i)
	}
	dataset := f.storeCSV(t, b.String())
	f.worker.SetBatchSize(100)

	result, err := f.worker.Ingest(context.Background(), dataset.ID, IngestOptions{})
	require.NoError(t, err)
	assert.Equal(t, 250, result.RecordsInserted)

	var count int64
	require.NoError(t, f.db.DB.Model(&models.Record{}).
		Where("dataset_id = ?", dataset.ID).Count(&count).Error)
	assert.Equal(t, int64(250), count)

	// 批量入库进度落在 60-90 区间
	for _, e := range f.reporter.all() {
		if strings.HasPrefix(e.Message, "写入记录:") {
			assert.GreaterOrEqual(t, e.Progress, 60)
			assert.LessOrEqual(t, e.Progress, 90)
		}
	}
}

func TestIngest_ValidationFailureStillProducesRecords(t *testing.T) {
	f := newWorkerFixture(t)
	dataset := f.storeCSV(t, "name,age\nalice,30\nbob,150\n")

	// 行级校验失败只记录到报告，不阻断摄取
	result, err := f.worker.Ingest(context.Background(), dataset.ID, IngestOptions{
		Rules: []models.ValidationRule{
			{Name: "age_range", Kind: "range", Columns: []string{"age"},
				Params: map[string]interface{}{"max": 120}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.RecordsInserted)

	var reloaded models.Dataset
	require.NoError(t, f.db.DB.First(&reloaded, "id = ?", dataset.ID).Error)
	assert.Equal(t, models.DatasetStatusReady, reloaded.Status)
	assert.Empty(t, reloaded.ProcessingError)

	validation := reloaded.SchemaInfo["validation_results"].(map[string]interface{})
	assert.Equal(t, false, validation["passed"])

	var count int64
	require.NoError(t, f.db.DB.Model(&models.Record{}).
		Where("dataset_id = ?", dataset.ID).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	last := f.reporter.last()
	assert.Equal(t, models.DatasetStatusReady, last.Status)
}

func TestIngest_MissingRequiredColumns(t *testing.T) {
	f := newWorkerFixture(t)
	dataset := f.storeCSV(t, "a,b\n1,2\n")

	_, err := f.worker.Ingest(context.Background(), dataset.ID, IngestOptions{
		Rules: []models.ValidationRule{
			{Name: "schema", Kind: "columns_exist", Columns: []string{"a", "salary"}},
		},
	})
	assert.ErrorIs(t, err, ingestion.ErrMissingColumns)
}

func TestIngest_DatasetNotFound(t *testing.T) {
	f := newWorkerFixture(t)

	_, err := f.worker.Ingest(context.Background(), "no-such-id", IngestOptions{})
	assert.Error(t, err)
}

func TestIngest_FetchFailure(t *testing.T) {
	f := newWorkerFixture(t)
	dataset := f.factory.CreateDataset(testutil.WithDatasetFilePath("missing-key.csv"))
	f.worker.SetRetryPolicy(RetryPolicy{MaxRetries: 1, Delay: time.Millisecond, Backoff: 1})

	_, err := f.worker.Ingest(context.Background(), dataset.ID, IngestOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "抓取文件失败")

	var reloaded models.Dataset
	require.NoError(t, f.db.DB.First(&reloaded, "id = ?", dataset.ID).Error)
	assert.Equal(t, models.DatasetStatusFailed, reloaded.Status)
}

func TestReprocess(t *testing.T) {
	f := newWorkerFixture(t)
	dataset := f.storeCSV(t, "id,name\n1,a\n2,b\n")

	_, err := f.worker.Ingest(context.Background(), dataset.ID, IngestOptions{})
	require.NoError(t, err)

	// 重新处理后记录全量重建，没有残留重复
	result, err := f.worker.Reprocess(context.Background(), dataset.ID, IngestOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.RecordsInserted)

	var count int64
	require.NoError(t, f.db.DB.Model(&models.Record{}).
		Where("dataset_id = ?", dataset.ID).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestReprocess_StatusGating(t *testing.T) {
	f := newWorkerFixture(t)
	dataset := f.factory.CreateDataset(
		testutil.WithDatasetStatus(models.DatasetStatusProcessing))

	_, err := f.worker.Reprocess(context.Background(), dataset.ID, IngestOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "不允许重新处理")
}

func TestValidateFileTask(t *testing.T) {
	f := newWorkerFixture(t)
	dataset := f.storeCSV(t, "a,b\n1,2\n")

	require.NoError(t, f.worker.ValidateFileTask(context.Background(), dataset.ID))
	last := f.reporter.last()
	assert.Equal(t, 100, last.Progress)
}

func TestValidateFileTask_UnsupportedFormat(t *testing.T) {
	f := newWorkerFixture(t)
	key, _, _, err := f.store.Store(context.Background(), "data.parquet", strings.NewReader("xxxx"))
	require.NoError(t, err)
	dataset := f.factory.CreateDataset(testutil.WithDatasetFilePath(key))

	err = f.worker.ValidateFileTask(context.Background(), dataset.ID)
	assert.ErrorIs(t, err, ingestion.ErrUnsupportedFormat)
}

func TestIngest_CustomCleaningSteps(t *testing.T) {
	f := newWorkerFixture(t)
	dataset := f.storeCSV(t, "phone,name\n13812345678,alice\n13987654321,bob\n")

	_, err := f.worker.Ingest(context.Background(), dataset.ID, IngestOptions{
		Steps: []transformation.StepConfig{
			{Name: "mask", Operation: "mask_sensitive", Params: map[string]interface{}{
				"columns":    []interface{}{"phone"},
				"mask_types": map[string]interface{}{"phone": "phone"},
			}},
		},
	})
	require.NoError(t, err)

	var records []models.Record
	require.NoError(t, f.db.DB.Where("dataset_id = ?", dataset.ID).
		Order("row_number").Find(&records).Error)
	require.Len(t, records, 2)
	assert.Equal(t, "138****5678", records[0].Data["phone"])
}

func TestIsDeterministicError(t *testing.T) {
	assert.True(t, isDeterministicError(fmt.Errorf("wrap: %w", ingestion.ErrCorruptedFile)))
	assert.True(t, isDeterministicError(fmt.Errorf("wrap: %w", ingestion.ErrMissingColumns)))
	assert.False(t, isDeterministicError(fmt.Errorf("connection refused")))
}

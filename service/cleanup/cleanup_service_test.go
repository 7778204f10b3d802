package cleanup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"dataset-ingestion-service/service/config"
	"dataset-ingestion-service/service/models"
	"dataset-ingestion-service/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCleanupFixture(t *testing.T) (*CleanupService, *testutil.TestDB, string) {
	t.Helper()
	tdb := testutil.NewTestDB()
	t.Cleanup(tdb.Close)
	tempDir := t.TempDir()
	service := NewCleanupService(tdb.DB, config.NewConfigService(tdb.DB), tempDir)
	return service, tdb, tempDir
}

func TestCleanupTempFiles(t *testing.T) {
	service, _, tempDir := newCleanupFixture(t)

	oldFile := filepath.Join(tempDir, "ingest-old.csv")
	require.NoError(t, os.WriteFile(oldFile, []byte("x"), 0644))
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(oldFile, past, past))

	freshFile := filepath.Join(tempDir, "ingest-fresh.csv")
	require.NoError(t, os.WriteFile(freshFile, []byte("x"), 0644))

	deleted, err := service.CleanupTempFiles(context.Background(), 24)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = os.Stat(oldFile)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(freshFile)
	assert.NoError(t, err, "保留时长内的文件不应被删除")
}

func TestCleanupTempFiles_MissingDir(t *testing.T) {
	tdb := testutil.NewTestDB()
	t.Cleanup(tdb.Close)
	service := NewCleanupService(tdb.DB, config.NewConfigService(tdb.DB), "/no/such/dir")

	deleted, err := service.CleanupTempFiles(context.Background(), 24)
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)
}

func TestCleanupStaleDatasets(t *testing.T) {
	service, tdb, _ := newCleanupFixture(t)
	factory := testutil.NewTestDataFactory(tdb.DB)

	stale := factory.CreateDataset(testutil.WithDatasetStatus(models.DatasetStatusProcessing))
	require.NoError(t, tdb.DB.Model(&models.Dataset{}).Where("id = ?", stale.ID).
		UpdateColumn("updated_at", time.Now().Add(-2*time.Hour)).Error)

	fresh := factory.CreateDataset(testutil.WithDatasetStatus(models.DatasetStatusProcessing))
	ready := factory.CreateDataset(testutil.WithDatasetStatus(models.DatasetStatusReady))

	marked, err := service.CleanupStaleDatasets(context.Background(), 60)
	require.NoError(t, err)
	assert.Equal(t, int64(1), marked)

	var reloaded models.Dataset
	require.NoError(t, tdb.DB.First(&reloaded, "id = ?", stale.ID).Error)
	assert.Equal(t, models.DatasetStatusFailed, reloaded.Status)
	assert.NotEmpty(t, reloaded.ProcessingError)

	require.NoError(t, tdb.DB.First(&reloaded, "id = ?", fresh.ID).Error)
	assert.Equal(t, models.DatasetStatusProcessing, reloaded.Status, "未超时的数据集不受影响")

	require.NoError(t, tdb.DB.First(&reloaded, "id = ?", ready.ID).Error)
	assert.Equal(t, models.DatasetStatusReady, reloaded.Status)
}

func TestRunCleanup(t *testing.T) {
	service, _, _ := newCleanupFixture(t)
	assert.NoError(t, service.RunCleanup(context.Background()))
}

func TestScheduledCleanupLifecycle(t *testing.T) {
	service, _, _ := newCleanupFixture(t)

	require.NoError(t, service.StartScheduledCleanup())
	assert.Error(t, service.StartScheduledCleanup(), "重复启动应报错")

	service.StopScheduledCleanup()
	// 停止后可以安全重复调用
	service.StopScheduledCleanup()
}

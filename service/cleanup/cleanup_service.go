/*
 * @module service/cleanup/cleanup_service
 * @description 清理服务，定期清理过期的临时文件和卡死在处理中状态的数据集
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/ingestion_requirements.md
 * @stateFlow 定时触发 -> 读取配置 -> 执行清理 -> 记录结果
 * @rules 清理不影响正在处理的任务；超时阈值可通过配置调整
 * @dependencies dataset-ingestion-service/service/config, gorm.io/gorm, github.com/robfig/cron/v3
 * @refs service/config, service/worker/storage.go
 */

package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"dataset-ingestion-service/service/config"
	"dataset-ingestion-service/service/distributed_lock"
	"dataset-ingestion-service/service/models"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// CleanupService 清理服务
type CleanupService struct {
	db            *gorm.DB
	configService *config.ConfigService
	tempDir       string
	cron          *cron.Cron
	lockExecutor  *distributed_lock.LockExecutor
	ctx           context.Context
	cancel        context.CancelFunc
	started       bool
}

// NewCleanupService 创建清理服务实例
func NewCleanupService(db *gorm.DB, configService *config.ConfigService, tempDir string) *CleanupService {
	ctx, cancel := context.WithCancel(context.Background())

	return &CleanupService{
		db:            db,
		configService: configService,
		tempDir:       tempDir,
		cron:          cron.New(cron.WithSeconds()),
		ctx:           ctx,
		cancel:        cancel,
		started:       false,
	}
}

// SetLockExecutor 启用分布式锁，多实例部署时只有一个实例执行定时清理
func (s *CleanupService) SetLockExecutor(executor *distributed_lock.LockExecutor) {
	s.lockExecutor = executor
}

// runExclusive 有锁执行器时在锁保护下执行，锁被其他实例持有时跳过本轮
func (s *CleanupService) runExclusive(ctx context.Context) error {
	if s.lockExecutor == nil {
		return s.RunCleanup(ctx)
	}
	return s.lockExecutor.ExecuteWithLock(ctx, "scheduled_cleanup", 10*time.Minute, func() error {
		return s.RunCleanup(ctx)
	})
}

// RunCleanup 执行一轮完整清理
func (s *CleanupService) RunCleanup(ctx context.Context) error {
	slog.Info("开始清理任务")
	startTime := time.Now()

	tempDeleted, err := s.CleanupTempFiles(ctx, s.configService.GetTempRetentionHours())
	if err != nil {
		slog.Error("清理临时文件失败", "error", err)
	} else {
		slog.Info("清理临时文件完成", "deleted_count", tempDeleted)
	}

	staleMarked, err := s.CleanupStaleDatasets(ctx, s.configService.GetStaleTimeoutMinutes())
	if err != nil {
		slog.Error("清理超时数据集失败", "error", err)
	} else {
		slog.Info("清理超时数据集完成", "marked_count", staleMarked)
	}

	duration := time.Since(startTime)
	slog.Info("清理任务完成",
		"temp_deleted", tempDeleted,
		"stale_marked", staleMarked,
		"duration_ms", duration.Milliseconds())

	return nil
}

// CleanupTempFiles 删除超过保留时长的临时文件
func (s *CleanupService) CleanupTempFiles(ctx context.Context, retentionHours int) (int64, error) {
	cutoff := time.Now().Add(-time.Duration(retentionHours) * time.Hour)

	entries, err := os.ReadDir(s.tempDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("读取临时目录失败: %w", err)
	}

	var deleted int64
	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return deleted, ctx.Err()
		default:
		}
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.tempDir, entry.Name())
		if err := os.Remove(path); err != nil {
			slog.Warn("删除临时文件失败", "path", path, "error", err)
			continue
		}
		deleted++
	}

	return deleted, nil
}

// CleanupStaleDatasets 将长时间停留在处理中状态的数据集标记为失败
func (s *CleanupService) CleanupStaleDatasets(ctx context.Context, timeoutMinutes int) (int64, error) {
	cutoff := time.Now().Add(-time.Duration(timeoutMinutes) * time.Minute)

	result := s.db.WithContext(ctx).Model(&models.Dataset{}).
		Where("status = ? AND updated_at < ?", models.DatasetStatusProcessing, cutoff).
		Updates(map[string]interface{}{
			"status":           models.DatasetStatusFailed,
			"processing_error": "处理超时，已被清理任务标记为失败",
		})

	if result.Error != nil {
		return 0, fmt.Errorf("标记超时数据集失败: %w", result.Error)
	}

	return result.RowsAffected, nil
}

// StartScheduledCleanup 启动定时清理任务
func (s *CleanupService) StartScheduledCleanup() error {
	if s.started {
		return fmt.Errorf("清理调度器已经启动")
	}

	slog.Info("启动清理调度器")

	// Cron表达式：秒 分 时 日 月 周
	// 0 0 * * * * 表示每小时整点执行
	_, err := s.cron.AddFunc("0 0 * * * *", func() {
		if err := s.runExclusive(s.ctx); err != nil {
			slog.Error("定时清理任务失败", "error", err)
		}
	})

	if err != nil {
		return fmt.Errorf("添加定时任务失败: %w", err)
	}

	s.cron.Start()
	s.started = true

	slog.Info("清理调度器启动成功，每小时整点执行")

	go func() {
		if err := s.runExclusive(s.ctx); err != nil {
			slog.Error("首次清理失败", "error", err)
		}
	}()

	return nil
}

// StopScheduledCleanup 停止定时清理任务
func (s *CleanupService) StopScheduledCleanup() {
	if !s.started {
		return
	}

	slog.Info("停止清理调度器")

	s.cancel()

	if s.cron != nil {
		s.cron.Stop()
	}

	s.started = false
}

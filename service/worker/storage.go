/*
 * @module service/worker/storage
 * @description 文件存储抽象，按内容寻址键存取上传文件，摄取时抓取到本地临时文件
 * @architecture 适配器模式 - 屏蔽对象存储实现
 * @documentReference ai_docs/ingestion_requirements.md
 * @stateFlow 上传写入存储 -> 摄取抓取到临时目录 -> 处理完成后清理临时文件
 * @rules 临时文件在成功和失败路径上都必须清理；抓取是唯一允许重试的阶段
 * @dependencies crypto/sha256, io, os, path/filepath
 * @refs service/worker/ingestion_worker.go
 */

package worker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileStore 文件存储抽象
type FileStore interface {
	// Store 写入文件内容，返回内容寻址键
	Store(ctx context.Context, fileName string, r io.Reader) (key string, size int64, hash string, err error)
	// Fetch 抓取文件到本地临时文件，调用方负责删除返回的路径
	Fetch(ctx context.Context, key string) (localPath string, err error)
	// Delete 删除存储中的文件
	Delete(ctx context.Context, key string) error
}

// LocalFileStore 本地磁盘实现
type LocalFileStore struct {
	baseDir string
	tempDir string
}

// NewLocalFileStore 创建本地文件存储，目录不存在时自动创建
func NewLocalFileStore(baseDir, tempDir string) (*LocalFileStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("创建存储目录失败: %w", err)
	}
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("创建临时目录失败: %w", err)
	}
	return &LocalFileStore{baseDir: baseDir, tempDir: tempDir}, nil
}

// Store 写入文件，键为 SHA-256 哈希加原始扩展名
func (s *LocalFileStore) Store(ctx context.Context, fileName string, r io.Reader) (string, int64, string, error) {
	tmp, err := os.CreateTemp(s.tempDir, "upload-*")
	if err != nil {
		return "", 0, "", fmt.Errorf("创建临时文件失败: %w", err)
	}
	defer os.Remove(tmp.Name())

	hasher := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, hasher), r)
	closeErr := tmp.Close()
	if err != nil {
		return "", 0, "", fmt.Errorf("写入文件失败: %w", err)
	}
	if closeErr != nil {
		return "", 0, "", fmt.Errorf("关闭临时文件失败: %w", closeErr)
	}

	hash := hex.EncodeToString(hasher.Sum(nil))
	key := hash + strings.ToLower(filepath.Ext(fileName))
	target := filepath.Join(s.baseDir, key)
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", 0, "", fmt.Errorf("落盘失败: %w", err)
	}
	return key, size, hash, nil
}

// Fetch 复制存储中的文件到临时目录
func (s *LocalFileStore) Fetch(ctx context.Context, key string) (string, error) {
	source := filepath.Join(s.baseDir, filepath.Base(key))
	src, err := os.Open(source)
	if err != nil {
		return "", fmt.Errorf("打开存储文件失败: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(s.tempDir, "ingest-*"+filepath.Ext(key))
	if err != nil {
		return "", fmt.Errorf("创建临时文件失败: %w", err)
	}
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("抓取文件失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("关闭临时文件失败: %w", err)
	}
	return tmp.Name(), nil
}

// Delete 删除存储中的文件
func (s *LocalFileStore) Delete(ctx context.Context, key string) error {
	target := filepath.Join(s.baseDir, filepath.Base(key))
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("删除存储文件失败: %w", err)
	}
	return nil
}

// TempDir 返回临时目录路径，清理任务使用
func (s *LocalFileStore) TempDir() string { return s.tempDir }

/*
 * @module RedisConnector
 * @description Redis连接器，提供进度通知发布和快照缓存所用的客户端封装
 * @architecture 适配器模式 - 封装第三方Redis客户端，提供统一的接口
 * @documentReference ai_docs/ingestion_requirements.md
 * @stateFlow 连接建立 -> 发布/缓存操作 -> 连接断开
 * @rules 连接失败不阻断服务启动，进度通知是尽力而为的
 * @dependencies github.com/go-redis/redis/v8
 * @refs service/worker/progress.go, service/models/connector_models.go
 */
package connectors

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"dataset-ingestion-service/service/models"

	"github.com/go-redis/redis/v8"
)

// NewRedisClient 按配置创建Redis客户端并探测连通性
func NewRedisClient(config *models.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Address,
		Password:     config.Password,
		DB:           config.Database,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis连接失败: %w", err)
	}

	slog.Info("Redis连接成功", "address", config.Address, "database", config.Database)
	return client, nil
}

// RedisConfigFromEnv 从环境变量构建Redis配置
func RedisConfigFromEnv() *models.RedisConfig {
	database := 0
	if val := os.Getenv("REDIS_DB"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			database = parsed
		}
	}
	address := os.Getenv("REDIS_ADDR")
	if address == "" {
		address = "localhost:6379"
	}
	return &models.RedisConfig{
		Address:      address,
		Password:     os.Getenv("REDIS_PASSWORD"),
		Database:     database,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

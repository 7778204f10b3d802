/*
 * @module service/worker/retry
 * @description 显式重试策略，只包裹存储抓取等瞬态可重试操作
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/ingestion_requirements.md
 * @stateFlow 执行 -> 失败等待退避 -> 重试直到成功或次数耗尽
 * @rules 解析/校验/清洗错误是确定性的，不走重试；退避间隔按因子递增
 * @dependencies context, time
 * @refs service/worker/ingestion_worker.go, service/worker/storage.go
 */

package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RetryPolicy 重试策略
type RetryPolicy struct {
	MaxRetries int           // 最大重试次数，不含首次执行
	Delay      time.Duration // 首次重试前的等待
	Backoff    float64       // 退避因子，每次重试等待乘以该因子
}

// DefaultRetryPolicy 默认策略: 3次重试，1秒起步，2倍退避
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, Delay: time.Second, Backoff: 2.0}
}

// Do 按策略执行操作，上下文取消时立即放弃
func (p RetryPolicy) Do(ctx context.Context, name string, fn func() error) error {
	delay := p.Delay
	var lastErr error

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			slog.Warn("操作重试", "operation", name, "attempt", attempt, "delay_ms", delay.Milliseconds(), "error", lastErr)
			select {
			case <-ctx.Done():
				return fmt.Errorf("重试已取消: %w", ctx.Err())
			case <-time.After(delay):
			}
			if p.Backoff > 1 {
				delay = time.Duration(float64(delay) * p.Backoff)
			}
		}

		if err := fn(); err != nil {
			lastErr = err
			continue
		}
		return nil
	}

	return fmt.Errorf("操作 %s 重试 %d 次后仍失败: %w", name, p.MaxRetries, lastErr)
}

/*
 * @module service/worker/metrics
 * @description 摄取工作器的 Prometheus 指标
 * @architecture 监控体系 - 指标采集
 * @documentReference ai_docs/ingestion_requirements.md
 * @stateFlow 工作器各阶段打点 -> promhttp /metrics 暴露
 * @rules 指标注册一次，按数据集状态分标签计数
 * @dependencies github.com/prometheus/client_golang/prometheus
 * @refs main.go, service/worker/ingestion_worker.go
 */

package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	datasetsIngestedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingestion_datasets_total",
		Help: "按最终状态统计的数据集摄取次数",
	}, []string{"status"})

	recordsInsertedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingestion_records_inserted_total",
		Help: "累计入库的记录行数",
	})

	ingestionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ingestion_duration_seconds",
		Help:    "单个数据集摄取耗时",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	batchInsertDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ingestion_batch_insert_duration_seconds",
		Help:    "单个插入批次耗时",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
	})
)

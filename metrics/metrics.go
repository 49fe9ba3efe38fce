// Package metrics 暴露排序链路的原始观测计数给外部观测系统消费。
// 导出格式/抓取端口由外部协作方负责，这里只维护 collector 本身。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 聚合链路全部观测点。所有方法对 nil 接收者安全（不打点）。
type Metrics struct {
	requestLatency *prometheus.HistogramVec
	filterRemovals *prometheus.CounterVec
	cacheLookups   *prometheus.CounterVec
	batchSize      prometheus.Histogram
	batchWait      prometheus.Histogram
}

// New 创建并向 reg 注册全部 collector。
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "feedkit",
			Name:      "request_duration_seconds",
			Help:      "End-to-end pipeline execution latency.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"status"}),
		filterRemovals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feedkit",
			Name:      "filter_removed_total",
			Help:      "Candidates removed, by filter name.",
		}, []string{"filter"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "feedkit",
			Name:      "score_cache_lookups_total",
			Help:      "Score cache lookups, by cache and outcome.",
		}, []string{"cache", "outcome"}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "feedkit",
			Name:      "scoring_batch_size",
			Help:      "Requests coalesced per scoring batch flush.",
			Buckets:   prometheus.LinearBuckets(1, 8, 16),
		}),
		batchWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "feedkit",
			Name:      "scoring_batch_wait_seconds",
			Help:      "Accumulation window wait per scoring batch flush.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 10),
		}),
	}
	reg.MustRegister(m.requestLatency, m.filterRemovals, m.cacheLookups, m.batchSize, m.batchWait)
	return m
}

// ObserveRequest 记录一次请求的端到端耗时。
func (m *Metrics) ObserveRequest(d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.requestLatency.WithLabelValues(status).Observe(d.Seconds())
}

// CountFilterRemovals 记录某个 Filter 移除的候选数量。
func (m *Metrics) CountFilterRemovals(filter string, n int) {
	if m == nil {
		return
	}
	m.filterRemovals.WithLabelValues(filter).Add(float64(n))
}

// CountCacheHits / CountCacheMisses 记录缓存命中情况。
func (m *Metrics) CountCacheHits(cache string, n int) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(cache, "hit").Add(float64(n))
}

func (m *Metrics) CountCacheMisses(cache string, n int) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(cache, "miss").Add(float64(n))
}

// ObserveBatch 记录一次微批 flush 的规模与等待时间。
func (m *Metrics) ObserveBatch(size int, wait time.Duration) {
	if m == nil {
		return
	}
	m.batchSize.Observe(float64(size))
	m.batchWait.Observe(wait.Seconds())
}

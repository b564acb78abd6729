// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// 耗时分桶：HTTP 请求覆盖完整的重试修复链路，单次 LLM 调用更短
var (
	httpDurationBuckets = []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}
	llmDurationBuckets  = []float64{0.5, 1, 2, 5, 10, 20, 30, 60}
	sizeBuckets         = prometheus.ExponentialBuckets(100, 10, 6)
)

// Collector owns every ClarityCast metric. It satisfies
// structured.MetricsRecorder and cache.StatsRecorder.
type Collector struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRequestSize     *prometheus.HistogramVec
	httpResponseSize    *prometheus.HistogramVec
	rateLimited         *prometheus.CounterVec

	generationAttempts *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec
	cachePruned prometheus.Counter

	logger *zap.Logger
}

// NewCollector 在默认 registry 注册全部指标；同一 namespace 只能创建一次
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return promauto.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, labels)
	}
	histogram := func(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
		return promauto.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: name, Help: help, Buckets: buckets}, labels)
	}

	c := &Collector{
		httpRequestsTotal:   counter("http_requests_total", "HTTP requests by route and status class", "method", "path", "status"),
		httpRequestDuration: histogram("http_request_duration_seconds", "HTTP request duration in seconds", httpDurationBuckets, "method", "path"),
		httpRequestSize:     histogram("http_request_size_bytes", "HTTP request body size in bytes", sizeBuckets, "method", "path"),
		httpResponseSize:    histogram("http_response_size_bytes", "HTTP response body size in bytes", sizeBuckets, "method", "path"),
		rateLimited:         counter("http_rate_limited_total", "Requests rejected by the per-client rate limiter", "path"),

		generationAttempts: counter("generation_attempts_total", "LLM calls made by the structured generation pipeline", "label", "outcome"),
		generationDuration: histogram("generation_attempt_duration_seconds", "Duration of a single LLM call", llmDurationBuckets, "label"),

		cacheHits:   counter("cache_hits_total", "Fingerprint cache hits", "cache_type"),
		cacheMisses: counter("cache_misses_total", "Fingerprint cache misses", "cache_type"),
		cachePruned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_pruned_entries_total",
			Help:      "Expired or unreadable cache entries removed",
		}),

		logger: logger.With(zap.String("component", "metrics")),
	}
	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))
	return c
}

// =============================================================================
// 🎯 HTTP
// =============================================================================

// RecordHTTPRequest 记录 HTTP 请求；path 应为路由模板
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration, requestSize, responseSize int64) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusClass(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	c.httpRequestSize.WithLabelValues(method, path).Observe(float64(requestSize))
	c.httpResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// RecordRateLimited 记录被限流的请求
func (c *Collector) RecordRateLimited(path string) {
	c.rateLimited.WithLabelValues(path).Inc()
}

// =============================================================================
// 🤖 结构化生成
// =============================================================================

// RecordGenerationAttempt 记录一次 LLM 调用，outcome 为 success / invalid / error
func (c *Collector) RecordGenerationAttempt(label, outcome string, duration time.Duration) {
	c.generationAttempts.WithLabelValues(label, outcome).Inc()
	c.generationDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// =============================================================================
// 💾 缓存
// =============================================================================

func (c *Collector) RecordCacheHit(cacheType string) {
	c.cacheHits.WithLabelValues(cacheType).Inc()
}

func (c *Collector) RecordCacheMiss(cacheType string) {
	c.cacheMisses.WithLabelValues(cacheType).Inc()
}

// RecordCachePruned 记录启动清理删除的条目数
func (c *Collector) RecordCachePruned(n int) {
	if n > 0 {
		c.cachePruned.Add(float64(n))
	}
}

// statusClass 按状态码段聚合，控制标签基数
func statusClass(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "unknown"
	}
}

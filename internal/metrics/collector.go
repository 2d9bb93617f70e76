// Package metrics 收集合成与运行指标，以 Prometheus 文本格式导出。
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 合成请求结果标签
const (
	StatusOK      = "ok"
	StatusRetry   = "retry"
	StatusFatal   = "fatal"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Collector 指标收集器。nil 接收者上的方法都是空操作。
type Collector struct {
	gatherer prometheus.Gatherer

	// 合成指标
	synthRequestsTotal   *prometheus.CounterVec
	synthRequestDuration *prometheus.HistogramVec
	synthRetriesTotal    *prometheus.CounterVec
	fillersTotal         prometheus.Counter
	cacheHitsTotal       prometheus.Counter

	// 片头指标
	introTierTotal *prometheus.CounterVec

	// 运行指标
	runsTotal       *prometheus.CounterVec
	runDuration     prometheus.Histogram
	audioSecondsOut prometheus.Counter
}

// NewCollector 创建指标收集器并注册到 reg；reg 为 nil 时使用独立的注册表。
func NewCollector(namespace string, reg *prometheus.Registry) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	c := &Collector{gatherer: reg}

	c.synthRequestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synth_requests_total",
			Help:      "Total number of speech synthesis attempts",
		},
		[]string{"provider", "status"},
	)

	c.synthRequestDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "synth_request_duration_seconds",
			Help:      "Speech synthesis request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"provider"},
	)

	c.synthRetriesTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synth_retries_total",
			Help:      "Total number of synthesis retries by reason",
		},
		[]string{"reason"},
	)

	c.fillersTotal = f.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synth_fillers_total",
			Help:      "Total number of segments replaced by a filler phrase",
		},
	)

	c.cacheHitsTotal = f.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synth_cache_hits_total",
			Help:      "Total number of synthesis requests served from the local cache",
		},
	)

	c.introTierTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intro_compositions_total",
			Help:      "Total number of intro compositions by tier",
		},
		[]string{"tier"},
	)

	c.runsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of pipeline runs",
		},
		[]string{"status"},
	)

	c.runDuration = f.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Pipeline run duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	c.audioSecondsOut = f.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_output_seconds_total",
			Help:      "Total seconds of audio exported",
		},
	)

	return c
}

// RecordSynthesis 记录一次合成尝试。
func (c *Collector) RecordSynthesis(provider, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.synthRequestsTotal.WithLabelValues(provider, status).Inc()
	c.synthRequestDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// RecordRetry 记录一次重试及其原因。
func (c *Collector) RecordRetry(reason string) {
	if c == nil {
		return
	}
	c.synthRetriesTotal.WithLabelValues(reason).Inc()
}

// RecordFiller 记录一次占位短句替换。
func (c *Collector) RecordFiller() {
	if c == nil {
		return
	}
	c.fillersTotal.Inc()
}

// RecordCacheHit 记录一次缓存命中。
func (c *Collector) RecordCacheHit() {
	if c == nil {
		return
	}
	c.cacheHitsTotal.Inc()
}

// RecordIntroTier 记录片头最终采用的层级。
func (c *Collector) RecordIntroTier(tier string) {
	if c == nil {
		return
	}
	c.introTierTotal.WithLabelValues(tier).Inc()
}

// RecordRun 记录一次运行的结果、耗时与输出音频时长。
func (c *Collector) RecordRun(status string, d, audio time.Duration) {
	if c == nil {
		return
	}
	c.runsTotal.WithLabelValues(status).Inc()
	c.runDuration.Observe(d.Seconds())
	if audio > 0 {
		c.audioSecondsOut.Add(audio.Seconds())
	}
}

// WriteTextfile 把当前指标写成 node_exporter textfile 格式。
func (c *Collector) WriteTextfile(path string) error {
	if c == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, c.gatherer); err != nil {
		return fmt.Errorf("[metrics] 写入指标文件失败: %w", err)
	}
	return nil
}

// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// パイプラインのサービス層から利用する。
type MetricsCollector interface {
	RecordRender()
	RecordCacheHit()
	RecordCacheMiss()
	RecordFetchSuccess()
	RecordFetchFailure(reason string)
	RecordRemoteStatus(statusCode int)
	RecordFetchLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	renders      prometheus.Counter
	cacheHit     prometheus.Counter
	cacheMiss    prometheus.Counter
	fetchSuccess prometheus.Counter
	fetchFail    *prometheus.CounterVec
	remoteStatus *prometheus.CounterVec
	fetchLatency prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		renders: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "postremote_render_total",
			Help: "レンダリング要求の合計数",
		}),
		cacheHit: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "postremote_cache_hit_total",
			Help: "キャッシュヒットの合計数",
		}),
		cacheMiss: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "postremote_cache_miss_total",
			Help: "キャッシュミスの合計数",
		}),
		fetchSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "postremote_fetch_success_total",
			Help: "リモートフェッチ成功の合計数",
		}),
		fetchFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "postremote_fetch_fail_total",
			Help: "リモートフェッチ失敗の理由別合計数",
		}, []string{"reason"}),
		remoteStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "postremote_remote_status_total",
			Help: "リモートサイトのHTTPステータスコード別レスポンス数",
		}, []string{"status_code"}),
		fetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "postremote_fetch_duration_seconds",
			Help:    "リモートフェッチの所要時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.renders,
		c.cacheHit,
		c.cacheMiss,
		c.fetchSuccess,
		c.fetchFail,
		c.remoteStatus,
		c.fetchLatency,
	)

	return c
}

// RecordRender はレンダリング要求を記録する。
func (c *Collector) RecordRender() {
	c.renders.Inc()
}

// RecordCacheHit はキャッシュヒットを記録する。
func (c *Collector) RecordCacheHit() {
	c.cacheHit.Inc()
}

// RecordCacheMiss はキャッシュミスを記録する。
func (c *Collector) RecordCacheMiss() {
	c.cacheMiss.Inc()
}

// RecordFetchSuccess はフェッチ成功を記録する。
func (c *Collector) RecordFetchSuccess() {
	c.fetchSuccess.Inc()
}

// RecordFetchFailure はフェッチ失敗を理由付きで記録する。
func (c *Collector) RecordFetchFailure(reason string) {
	c.fetchFail.WithLabelValues(reason).Inc()
}

// RecordRemoteStatus はリモートサイトのHTTPステータスコードを記録する。
func (c *Collector) RecordRemoteStatus(statusCode int) {
	c.remoteStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordFetchLatency はフェッチの所要時間を記録する。
func (c *Collector) RecordFetchLatency(duration time.Duration) {
	c.fetchLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

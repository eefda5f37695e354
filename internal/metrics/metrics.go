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
// Remote Lookup Clientから利用する。
type MetricsCollector interface {
	RecordLookupSuccess()
	RecordLookupFailure(code string)
	RecordHTTPStatus(statusCode int)
	RecordLookupLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	lookupSuccess prometheus.Counter
	lookupFail    *prometheus.CounterVec
	httpStatus    *prometheus.CounterVec
	lookupLatency prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		lookupSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ghlookup_lookup_success_total",
			Help: "ユーザー検索成功の合計数",
		}),
		lookupFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ghlookup_lookup_fail_total",
			Help: "エラーコード別のユーザー検索失敗数",
		}, []string{"code"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ghlookup_http_status_total",
			Help: "GitHub APIのHTTPステータスコード別レスポンス数",
		}, []string{"status_code"}),
		lookupLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ghlookup_lookup_latency_seconds",
			Help:    "ユーザー検索のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.lookupSuccess,
		c.lookupFail,
		c.httpStatus,
		c.lookupLatency,
	)

	return c
}

// RecordLookupSuccess は検索成功を記録する。
func (c *Collector) RecordLookupSuccess() {
	c.lookupSuccess.Inc()
}

// RecordLookupFailure はエラーコード別に検索失敗を記録する。
func (c *Collector) RecordLookupFailure(code string) {
	c.lookupFail.WithLabelValues(code).Inc()
}

// RecordHTTPStatus はGitHub APIのHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordLookupLatency は検索のレイテンシを記録する。
func (c *Collector) RecordLookupLatency(duration time.Duration) {
	c.lookupLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

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
// 認証サービスとHTTPミドルウェアから利用する。
type MetricsCollector interface {
	RecordAuthAttempt(method, outcome string)
	ObserveIdentityVerification(outcome string, d time.Duration)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordContactSubmission()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	authAttempts   *prometheus.CounterVec
	verifyLatency  *prometheus.HistogramVec
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
	contactForms   prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "be4breach_auth_attempts_total",
			Help: "認証試行の合計数（方式・結果別）",
		}, []string{"method", "outcome"}),
		verifyLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "be4breach_identity_verification_seconds",
			Help:    "GoogleのIDアサーション検証のレイテンシ（秒）",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8},
		}, []string{"outcome"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "be4breach_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "be4breach_http_request_duration_seconds",
			Help:    "HTTPリクエスト処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		contactForms: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "be4breach_contact_submissions_total",
			Help: "受け付けた問い合わせフォームの合計数",
		}),
	}

	reg.MustRegister(
		c.authAttempts,
		c.verifyLatency,
		c.httpStatus,
		c.requestLatency,
		c.contactForms,
	)

	return c
}

// RecordAuthAttempt は認証試行を記録する。
func (c *Collector) RecordAuthAttempt(method, outcome string) {
	c.authAttempts.WithLabelValues(method, outcome).Inc()
}

// ObserveIdentityVerification はIDアサーション検証の所要時間を記録する。
func (c *Collector) ObserveIdentityVerification(outcome string, d time.Duration) {
	c.verifyLatency.WithLabelValues(outcome).Observe(d.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエスト処理のレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordContactSubmission は問い合わせの受付を記録する。
func (c *Collector) RecordContactSubmission() {
	c.contactForms.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

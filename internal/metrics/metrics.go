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
// ミドルウェア、サービス層、ワーカーから利用する。
type MetricsCollector interface {
	RecordAuthSuccess()
	RecordAuthFailure(kind string)
	RecordLogin(success bool)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordCleanupDeleted(target string, count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	authSuccess    prometheus.Counter
	authFailure    *prometheus.CounterVec
	loginAttempts  *prometheus.CounterVec
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
	cleanupDeleted *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clinicman_auth_success_total",
			Help: "認証ゲートを通過したリクエストの合計数",
		}),
		authFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clinicman_auth_failure_total",
			Help: "認証ゲートで拒否されたリクエストの種別ごとの合計数",
		}, []string{"kind"}),
		loginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clinicman_login_attempts_total",
			Help: "ログイン試行の結果別の合計数",
		}, []string{"result"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clinicman_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "clinicman_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		cleanupDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clinicman_cleanup_deleted_total",
			Help: "保持期間切れで削除されたレコード数",
		}, []string{"target"}),
	}

	reg.MustRegister(
		c.authSuccess,
		c.authFailure,
		c.loginAttempts,
		c.httpStatus,
		c.requestLatency,
		c.cleanupDeleted,
	)

	return c
}

// RecordAuthSuccess は認証ゲートの通過を記録する。
func (c *Collector) RecordAuthSuccess() {
	c.authSuccess.Inc()
}

// RecordAuthFailure は認証ゲートでの拒否を種別付きで記録する。
func (c *Collector) RecordAuthFailure(kind string) {
	c.authFailure.WithLabelValues(kind).Inc()
}

// RecordLogin はログイン試行の結果を記録する。
func (c *Collector) RecordLogin(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	c.loginAttempts.WithLabelValues(result).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストの処理時間を記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordCleanupDeleted はクリーンアップで削除した件数を記録する。
func (c *Collector) RecordCleanupDeleted(target string, count int64) {
	if count <= 0 {
		return
	}
	c.cleanupDeleted.WithLabelValues(target).Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

// NopCollector は何も記録しないMetricsCollector。テストやメトリクス無効時に使う。
type NopCollector struct{}

func (NopCollector) RecordAuthSuccess()                 {}
func (NopCollector) RecordAuthFailure(string)           {}
func (NopCollector) RecordLogin(bool)                   {}
func (NopCollector) RecordHTTPStatus(int)               {}
func (NopCollector) RecordRequestLatency(time.Duration) {}
func (NopCollector) RecordCleanupDeleted(string, int64) {}

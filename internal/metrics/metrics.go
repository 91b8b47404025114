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
// ワーカーやサービス層から利用する。
type MetricsCollector interface {
	RecordReportSendSuccess(period string)
	RecordReportSendFailure(period string, reason string)
	RecordBatchDuration(period string, duration time.Duration)
	RecordHabitToggle(completed bool)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	reportSendSuccess *prometheus.CounterVec
	reportSendFail    *prometheus.CounterVec
	batchDuration     *prometheus.HistogramVec
	habitToggle       *prometheus.CounterVec
	httpStatus        *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		reportSendSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lifesync_report_send_success_total",
			Help: "レポートメール送信成功の合計数",
		}, []string{"period"}),
		reportSendFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lifesync_report_send_fail_total",
			Help: "レポートメール送信失敗の合計数",
		}, []string{"period", "reason"}),
		batchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lifesync_report_batch_duration_seconds",
			Help:    "レポートバッチ実行時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"period"}),
		habitToggle: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lifesync_habit_toggle_total",
			Help: "習慣完了トグルの合計数",
		}, []string{"state"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lifesync_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.reportSendSuccess,
		c.reportSendFail,
		c.batchDuration,
		c.habitToggle,
		c.httpStatus,
	)

	return c
}

// RecordReportSendSuccess はレポート送信成功を記録する。
func (c *Collector) RecordReportSendSuccess(period string) {
	c.reportSendSuccess.WithLabelValues(period).Inc()
}

// RecordReportSendFailure はレポート送信失敗を記録する。
func (c *Collector) RecordReportSendFailure(period string, reason string) {
	c.reportSendFail.WithLabelValues(period, reason).Inc()
}

// RecordBatchDuration はレポートバッチの実行時間を記録する。
func (c *Collector) RecordBatchDuration(period string, duration time.Duration) {
	c.batchDuration.WithLabelValues(period).Observe(duration.Seconds())
}

// RecordHabitToggle は習慣のトグル操作を記録する。
func (c *Collector) RecordHabitToggle(completed bool) {
	state := "uncompleted"
	if completed {
		state = "completed"
	}
	c.habitToggle.WithLabelValues(state).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

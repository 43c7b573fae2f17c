// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層とクリーンアップジョブから利用する。
type MetricsCollector interface {
	RecordRegistration(role string)
	RecordLogin(success bool)
	RecordMessageSent()
	RecordSearch(role string)
	RecordSessionsSwept(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	registrations *prometheus.CounterVec
	logins        *prometheus.CounterVec
	messagesSent  prometheus.Counter
	searches      *prometheus.CounterVec
	sessionsSwept prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "startupconnect_registrations_total",
			Help: "ロール別の新規登録数",
		}, []string{"role"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "startupconnect_logins_total",
			Help: "結果別のログイン試行数",
		}, []string{"success"}),
		messagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "startupconnect_messages_sent_total",
			Help: "送信されたメッセージの合計数",
		}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "startupconnect_dashboard_searches_total",
			Help: "閲覧者のロール別ダッシュボード検索数",
		}, []string{"role"}),
		sessionsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "startupconnect_sessions_swept_total",
			Help: "クリーンアップジョブで削除された期限切れセッション数",
		}),
	}

	reg.MustRegister(
		c.registrations,
		c.logins,
		c.messagesSent,
		c.searches,
		c.sessionsSwept,
	)

	return c
}

// RecordRegistration は新規登録を記録する。
func (c *Collector) RecordRegistration(role string) {
	c.registrations.WithLabelValues(role).Inc()
}

// RecordLogin はログイン試行を記録する。
func (c *Collector) RecordLogin(success bool) {
	c.logins.WithLabelValues(strconv.FormatBool(success)).Inc()
}

// RecordMessageSent はメッセージ送信を記録する。
func (c *Collector) RecordMessageSent() {
	c.messagesSent.Inc()
}

// RecordSearch は検索語付きのダッシュボード表示を記録する。
func (c *Collector) RecordSearch(role string) {
	c.searches.WithLabelValues(role).Inc()
}

// RecordSessionsSwept は削除された期限切れセッション数を記録する。
func (c *Collector) RecordSessionsSwept(count int64) {
	c.sessionsSwept.Add(float64(count))
}

// Nop は何も記録しないMetricsCollector。テストとメトリクス無効時に使用する。
type Nop struct{}

func (Nop) RecordRegistration(string) {}
func (Nop) RecordLogin(bool) {}
func (Nop) RecordMessageSent() {}
func (Nop) RecordSearch(string) {}
func (Nop) RecordSessionsSwept(int64) {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)

// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はリアルタイムコアのPrometheusメトリクスを収集する実装。
// realtime.Metricsを実装する。
type Collector struct {
	connectionsActive prometheus.Gauge
	messagesPersisted prometheus.Counter
	persistFailures   prometheus.Counter
	eventsDelivered   prometheus.Counter
	eventsDropped     *prometheus.CounterVec
	fanoutLatency     prometheus.Histogram
	rssPostsImported  prometheus.Counter
	rssImportFailures prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		connectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sisichat_connections_active",
			Help: "現在アクティブなWebSocket接続数",
		}),
		messagesPersisted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sisichat_messages_persisted_total",
			Help: "永続化されたチャットメッセージの合計数",
		}),
		persistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sisichat_persist_failures_total",
			Help: "チャットメッセージ永続化失敗の合計数",
		}),
		eventsDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sisichat_events_delivered_total",
			Help: "オンライン受信者へ配信されたイベントの合計数",
		}),
		eventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sisichat_events_dropped_total",
			Help: "ドロップされたイベントの理由別合計数",
		}, []string{"reason"}),
		fanoutLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sisichat_fanout_latency_seconds",
			Help:    "会話参加者へのファンアウトのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		rssPostsImported: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sisichat_rss_posts_imported_total",
			Help: "RSSからインポートされたニュース投稿の合計数",
		}),
		rssImportFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sisichat_rss_import_failures_total",
			Help: "RSSフィード取得・パース失敗の合計数",
		}),
	}

	reg.MustRegister(
		c.connectionsActive,
		c.messagesPersisted,
		c.persistFailures,
		c.eventsDelivered,
		c.eventsDropped,
		c.fanoutLatency,
		c.rssPostsImported,
		c.rssImportFailures,
	)

	return c
}

// ConnectionOpened はWebSocket接続の確立を記録する。
func (c *Collector) ConnectionOpened() {
	c.connectionsActive.Inc()
}

// ConnectionClosed はWebSocket接続の終了を記録する。
func (c *Collector) ConnectionClosed() {
	c.connectionsActive.Dec()
}

// MessagePersisted はメッセージ永続化の成功を記録する。
func (c *Collector) MessagePersisted() {
	c.messagesPersisted.Inc()
}

// PersistFailed はメッセージ永続化の失敗を記録する。
func (c *Collector) PersistFailed() {
	c.persistFailures.Inc()
}

// EventDelivered はイベント配信の成功を記録する。
func (c *Collector) EventDelivered() {
	c.eventsDelivered.Inc()
}

// EventDropped はイベントのドロップを理由別に記録する。
func (c *Collector) EventDropped(reason string) {
	c.eventsDropped.WithLabelValues(reason).Inc()
}

// FanoutLatency はファンアウトのレイテンシを記録する。
func (c *Collector) FanoutLatency(d time.Duration) {
	c.fanoutLatency.Observe(d.Seconds())
}

// RSSPostsImported はRSSインポートされた投稿数を記録する。
func (c *Collector) RSSPostsImported(count int) {
	c.rssPostsImported.Add(float64(count))
}

// RSSImportFailed はRSSフィードの取得・パース失敗を記録する。
func (c *Collector) RSSImportFailed() {
	c.rssImportFailures.Inc()
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

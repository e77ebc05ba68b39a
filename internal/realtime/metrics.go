package realtime

import "time"

// ドロップ理由のラベル値
const (
	DropReasonOffline      = "offline"      // 受信者がオンラインでない
	DropReasonBackpressure = "backpressure" // 受信者の送信バッファが満杯
	DropReasonClosed       = "closed"       // ハンドルが切断済み
)

// Metrics はリアルタイムコアの計測インターフェース。
// metrics.Collectorが実装する。テストではNopMetricsを使用する。
type Metrics interface {
	ConnectionOpened()
	ConnectionClosed()
	MessagePersisted()
	PersistFailed()
	EventDelivered()
	EventDropped(reason string)
	FanoutLatency(d time.Duration)
}

// NopMetrics は何も記録しないMetrics実装。
type NopMetrics struct{}

func (NopMetrics) ConnectionOpened()             {}
func (NopMetrics) ConnectionClosed()             {}
func (NopMetrics) MessagePersisted()             {}
func (NopMetrics) PersistFailed()                {}
func (NopMetrics) EventDelivered()               {}
func (NopMetrics) EventDropped(reason string)    {}
func (NopMetrics) FanoutLatency(d time.Duration) {}

// compile-time interface check
var _ Metrics = NopMetrics{}

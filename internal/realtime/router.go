package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/sisi/sisichat/internal/presence"
)

// ParticipantResolver は会話IDから参加者集合を解決するインターフェース。
// 純粋なリードアダプタであり、会話が存在しない場合は(nil, nil)を返す。
type ParticipantResolver interface {
	ResolveParticipants(ctx context.Context, conversationID string) ([]string, error)
}

// Router はイベントをオンラインの受信者へ配信する。
// Presence RegistryとConversation Directoryの読み取りのみを行い、
// 永続状態を一切変更しない。
type Router struct {
	registry *presence.Registry
	resolver ParticipantResolver
	logger   *slog.Logger
	metrics  Metrics
}

// NewRouter はRouterを生成する。
func NewRouter(registry *presence.Registry, resolver ParticipantResolver, logger *slog.Logger, metrics Metrics) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Router{
		registry: registry,
		resolver: resolver,
		logger:   logger,
		metrics:  metrics,
	}
}

// DeliverToUser はイベントをシリアライズして指定ユーザーへ送信する。
// 受信者がオフラインの場合は静かにドロップする（キューもリトライもしない。
// 永続エンティティが耐久性のある記録であり、リアルタイム通知はベストエフォート）。
func (r *Router) DeliverToUser(event any, userID string) {
	frame, err := json.Marshal(event)
	if err != nil {
		// イベント型は本パッケージで定義されるためここには通常到達しない
		r.logger.Error("failed to marshal event",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return
	}
	r.deliverFrame(frame, userID)
}

// DeliverToConversation は会話の参加者を解決し、各参加者へイベントを配信する。
// 会話が存在しない場合は配信なしのno-opに縮退する。解決エラーも呼び出し元には
// 伝播させない（1つの不正な参照が呼び出し元のフローを壊さないようにする）。
// 各受信者への送信は独立しており、遅い受信者が他の配信を止めることはない。
func (r *Router) DeliverToConversation(ctx context.Context, event any, conversationID string) {
	participants, err := r.resolver.ResolveParticipants(ctx, conversationID)
	if err != nil {
		r.logger.Error("failed to resolve conversation participants",
			slog.String("conversation_id", conversationID),
			slog.String("error", err.Error()),
		)
		return
	}
	if len(participants) == 0 {
		r.logger.Debug("conversation not found or empty, dropping event",
			slog.String("conversation_id", conversationID),
		)
		return
	}

	frame, err := json.Marshal(event)
	if err != nil {
		r.logger.Error("failed to marshal event",
			slog.String("conversation_id", conversationID),
			slog.String("error", err.Error()),
		)
		return
	}

	start := time.Now()
	for _, userID := range participants {
		r.deliverFrame(frame, userID)
	}
	r.metrics.FanoutLatency(time.Since(start))
}

// deliverFrame はシリアライズ済みフレームを1受信者へ送信する。
// Handle.Sendはノンブロッキングであり、バッファ満杯時はそのフレームのみを捨てる。
func (r *Router) deliverFrame(frame []byte, userID string) {
	handle, ok := r.registry.Lookup(userID)
	if !ok {
		r.metrics.EventDropped(DropReasonOffline)
		return
	}

	if err := handle.Send(frame); err != nil {
		reason := DropReasonClosed
		if errors.Is(err, presence.ErrSendBufferFull) {
			reason = DropReasonBackpressure
		}
		r.metrics.EventDropped(reason)
		r.logger.Warn("dropped realtime event",
			slog.String("user_id", userID),
			slog.String("reason", reason),
		)
		return
	}

	r.metrics.EventDelivered()
}

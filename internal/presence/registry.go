// Package presence はオンラインユーザーとライブ接続ハンドルの対応を管理する。
// Registryはプロセス内で唯一の可変共有状態であり、すべてのアクセスは
// 同期化されたメソッドを経由する。マップへの直接アクセスは許可しない。
package presence

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrSendBufferFull は受信者の送信バッファが満杯で送信できないことを示す。
// 配信はベストエフォートであり、呼び出し側はこのエラーでブロックしてはならない。
var ErrSendBufferFull = errors.New("send buffer full")

// ErrHandleClosed は切断済みハンドルへの送信を示す。
var ErrHandleClosed = errors.New("connection handle closed")

// Handle はライブ接続への不透明な送信ケーパビリティ。
// ちょうど1つのユーザーIDと1つのトランスポートに束縛され、
// 所有するSessionの切断とともに無効化される。
// Sendはノンブロッキングでなければならない。
type Handle interface {
	// Send はシリアライズ済みフレームを接続へ送る。
	// バッファ満杯または切断済みの場合はエラーを返し、決してブロックしない。
	Send(frame []byte) error
}

// StatusRecorder はユーザーのオンライン状態の永続化インターフェース。
// RecordOnlineは接続確立パスで同期的に呼ばれる。
// RecordOfflineは切断パスから呼ばれ、トランスポートの終了を
// ブロックしないよう非同期（detached but tracked）で完了する。
type StatusRecorder interface {
	RecordOnline(ctx context.Context, userID string) error
	RecordOffline(userID string)
}

// Registry はユーザーIDとライブ接続ハンドルの対応表。
// 「このユーザーに今届くか」の唯一の真実源となる。
type Registry struct {
	mu       sync.Mutex
	conns    map[string]Handle
	recorder StatusRecorder
	logger   *slog.Logger
}

// NewRegistry はRegistryを生成する。
func NewRegistry(recorder StatusRecorder, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		conns:    make(map[string]Handle),
		recorder: recorder,
		logger:   logger,
	}
}

// Register はユーザーのハンドルを登録し、永続ステータスをonlineにする。
// 同一ユーザーの既存ハンドルはアトミックに置き換えられる（last-connect-wins）。
// 置き換え時に旧ハンドルを明示的にクローズすることはない。旧Session自身の
// 終了パスが独立して後始末を行う。
// ステータス書き込みの失敗は登録自体を妨げない（ログに記録される）。
func (r *Registry) Register(ctx context.Context, userID string, handle Handle) {
	r.mu.Lock()
	_, replaced := r.conns[userID]
	r.conns[userID] = handle
	r.mu.Unlock()

	if replaced {
		r.logger.Info("presence handle replaced",
			slog.String("user_id", userID),
		)
	}

	if err := r.recorder.RecordOnline(ctx, userID); err != nil {
		r.logger.Error("failed to record online status",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}

// Unregister はユーザーのハンドルを削除し、永続ステータスをofflineにする。
// 冪等: エントリが既に存在しない場合もオフライン書き込みは発行される
// （ソース挙動の保存。重複書き込みは監視付きライターの1件のキュー投入にとどまる）。
func (r *Registry) Unregister(userID string) {
	r.mu.Lock()
	delete(r.conns, userID)
	r.mu.Unlock()

	r.recorder.RecordOffline(userID)
}

// UnregisterHandle はハンドルが現在の登録と一致する場合のみ削除する。
// last-connect-winsで置き換えられた旧Sessionの終了パスが、
// 新しい接続のエントリを誤って消さないために使用する。
// オフライン書き込みは一致の有無にかかわらず発行される。
func (r *Registry) UnregisterHandle(userID string, handle Handle) {
	r.mu.Lock()
	if current, ok := r.conns[userID]; ok && current == handle {
		delete(r.conns, userID)
	}
	r.mu.Unlock()

	r.recorder.RecordOffline(userID)
}

// Lookup は指定ユーザーのライブ接続ハンドルを返す。ノンブロッキング。
func (r *Registry) Lookup(userID string) (Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.conns[userID]
	return h, ok
}

// Count は現在のライブ接続数を返す。メトリクスおよびテスト用。
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// Package status はユーザーのオンライン状態の永続化ワーカーを提供する。
//
// オンライン書き込みは接続確立パスで同期的に行われるが、オフライン書き込みは
// 切断パスをブロックしないよう専用ゴルーチンのキュー経由で行われる。
// キューはプロセスが管理するため、シャットダウン時にDrainで完了を待てる。
package status

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sisi/sisichat/internal/model"
	"github.com/sisi/sisichat/internal/presence"
	"github.com/sisi/sisichat/internal/repository"
)

// 1件のステータス書き込みに許容する時間
const writeTimeout = 5 * time.Second

// Writer はpresence.StatusRecorderを実装するステータス書き込みワーカー。
type Writer struct {
	users  repository.UserRepository
	logger *slog.Logger

	mu     sync.Mutex
	queue  chan string
	closed bool

	wg sync.WaitGroup
}

// NewWriter はWriterを生成し、オフライン書き込みのドレインゴルーチンを起動する。
// queueSizeが0以下の場合はデフォルト値256を使用する。
func NewWriter(users repository.UserRepository, queueSize int, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	w := &Writer{
		users:  users,
		logger: logger,
		queue:  make(chan string, queueSize),
	}

	w.wg.Add(1)
	go w.drainLoop()

	return w
}

// RecordOnline はユーザーのステータスをonlineに更新する。同期実行。
func (w *Writer) RecordOnline(ctx context.Context, userID string) error {
	return w.users.UpdateStatus(ctx, userID, model.UserStatusOnline, time.Now().UTC())
}

// RecordOffline はオフライン書き込みをキューへ投入する。ノンブロッキング。
// キューが満杯、またはシャットダウン後の場合は書き込みを破棄してログに記録する。
func (w *Writer) RecordOffline(userID string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		w.logger.Warn("offline status write discarded after shutdown",
			slog.String("user_id", userID),
		)
		return
	}

	select {
	case w.queue <- userID:
	default:
		w.logger.Warn("offline status queue full, discarding write",
			slog.String("user_id", userID),
		)
	}
}

// Drain はキューの受け付けを停止し、投入済みの書き込みが完了するまで待つ。
// ctxの期限を超えた場合は待機を打ち切ってエラーを返す。
func (w *Writer) Drain(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// drainLoop はキューからオフライン書き込みを逐次実行する。
// 個々の失敗はログに記録し、後続の書き込みを止めない。
func (w *Writer) drainLoop() {
	defer w.wg.Done()

	for userID := range w.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := w.users.UpdateStatus(ctx, userID, model.UserStatusOffline, time.Now().UTC())
		cancel()
		if err != nil {
			w.logger.Error("failed to record offline status",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// compile-time interface check
var _ presence.StatusRecorder = (*Writer)(nil)

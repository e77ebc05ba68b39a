// Package cleanup は通知データの自動削除ジョブを提供する。
// 保持期間（デフォルト90日）を超過した通知を定期バッチで削除する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sisi/sisichat/internal/repository"
)

// CleanupJob は保持期間を超過した通知の自動削除ジョブ。
// 定期実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type CleanupJob struct {
	notifications repository.NotificationRepository
	logger        *slog.Logger
	Retention     time.Duration // 通知の保持期間（デフォルト: 90日）
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(notifications repository.NotificationRepository, logger *slog.Logger) *CleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanupJob{
		notifications: notifications,
		logger:        logger,
		Retention:     90 * 24 * time.Hour,
	}
}

// Run は保持期間を超過した通知を削除する。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()
	cutoff := start.UTC().Add(-j.Retention)

	deleted, err := j.notifications.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		j.logger.Error("notification cleanup failed",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to run notification cleanup: %w", err)
	}

	j.logger.Info("notification cleanup completed",
		slog.Int64("deleted_count", deleted),
		slog.Duration("retention", j.Retention),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

// Start は指定間隔のティッカーでクリーンアップを実行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("notification cleanup started",
		slog.Duration("interval", interval),
	)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("notification cleanup stopped")
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("cleanup cycle failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// Package notification は通知のアプリケーションサービスを提供する。
package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sisi/sisichat/internal/model"
	"github.com/sisi/sisichat/internal/realtime"
	"github.com/sisi/sisichat/internal/repository"
)

// Pusher はオンラインユーザーへのベストエフォート配信インターフェース。
// realtime.Routerが実装する。
type Pusher interface {
	DeliverToUser(event any, userID string)
}

// Service は通知の作成・一覧・既読化と、オンラインユーザーへの
// リアルタイムプッシュを担う。プッシュは常にベストエフォートであり、
// 永続化の成否のみがサービスの結果を決める。
type Service struct {
	notifications repository.NotificationRepository
	pusher        Pusher
	limit         int
	logger        *slog.Logger
}

// NewService はServiceを生成する。limitは一覧・リフレッシュの最大件数。
func NewService(notifications repository.NotificationRepository, pusher Pusher, limit int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		notifications: notifications,
		pusher:        pusher,
		limit:         limit,
		logger:        logger,
	}
}

// ListForUser は指定ユーザーの通知を新しい順で最大limit件返す。
func (s *Service) ListForUser(ctx context.Context, userID string, limit int) ([]*model.Notification, error) {
	if limit <= 0 || limit > s.limit {
		limit = s.limit
	}
	notifications, err := s.notifications.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead は指定通知を既読にする。対象が存在しないか他ユーザーの通知の場合はエラー。
func (s *Service) MarkRead(ctx context.Context, id, userID string) error {
	ok, err := s.notifications.MarkRead(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if !ok {
		return model.NewNotificationNotFoundError(id)
	}
	return nil
}

// Refresh は最新の通知一覧を読み出し、要求元ユーザーへnotifications_update
// フレームをプッシュする。プッシュした件数を返す。
func (s *Service) Refresh(ctx context.Context, userID string) (int, error) {
	notifications, err := s.ListForUser(ctx, userID, s.limit)
	if err != nil {
		return 0, err
	}
	s.pusher.DeliverToUser(realtime.NewNotificationsUpdate(notifications), userID)
	return len(notifications), nil
}

// CreateAndPush は通知を永続化し、受信者がオンラインであれば即時プッシュする。
// プッシュの失敗や受信者のオフラインは永続化の成功に影響しない。
func (s *Service) CreateAndPush(ctx context.Context, userID, notificationType, title, body string, payload map[string]any) (*model.Notification, error) {
	n := &model.Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      notificationType,
		Title:     title,
		Body:      body,
		CreatedAt: time.Now().UTC(),
		Payload:   payload,
	}

	if err := s.notifications.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	s.pusher.DeliverToUser(realtime.NewNotification(n), userID)

	s.logger.Debug("notification created",
		slog.String("notification_id", n.ID),
		slog.String("user_id", userID),
		slog.String("type", notificationType),
	)
	return n, nil
}

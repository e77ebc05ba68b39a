// Package friend は友達リクエストと友達関係のアプリケーションサービスを提供する。
package friend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sisi/sisichat/internal/model"
	"github.com/sisi/sisichat/internal/repository"
)

// Notifier は通知の永続化とリアルタイムプッシュのインターフェース。
// notification.Serviceが実装する。
type Notifier interface {
	CreateAndPush(ctx context.Context, userID, notificationType, title, body string, payload map[string]any) (*model.Notification, error)
}

// 通知種別
const (
	NotificationTypeFriendRequest  = "friend_request"
	NotificationTypeFriendAccepted = "friend_accepted"
)

// Service は友達リクエストの送信・承認・拒否と友達一覧を担う。
type Service struct {
	friends       repository.FriendRepository
	users         repository.UserRepository
	notifications repository.NotificationRepository
	notifier      Notifier
	logger        *slog.Logger
}

// NewService はServiceを生成する。
func NewService(
	friends repository.FriendRepository,
	users repository.UserRepository,
	notifications repository.NotificationRepository,
	notifier Notifier,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		friends:       friends,
		users:         users,
		notifications: notifications,
		notifier:      notifier,
		logger:        logger,
	}
}

// SendRequest はユーザー名で指定した相手へ友達リクエストを送る。
// 相手が見つからない、自分自身、既存の関係がある場合はエラー。
// 成功時は相手宛てのfriend_request通知が作成され、オンラインであれば即時プッシュされる。
func (s *Service) SendRequest(ctx context.Context, fromUserID, toUsername string) (*model.Friend, error) {
	toUser, err := s.users.FindByUsername(ctx, toUsername)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if toUser == nil {
		return nil, model.NewUserNotFoundError()
	}
	if toUser.ID == fromUserID {
		return nil, model.NewSelfFriendRequestError()
	}

	existing, err := s.friends.FindBetween(ctx, fromUserID, toUser.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing relation: %w", err)
	}
	if existing != nil {
		return nil, model.NewDuplicateFriendError()
	}

	fromUser, err := s.users.FindByID(ctx, fromUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find sender: %w", err)
	}
	fromName := fromUserID
	if fromUser != nil {
		fromName = fromUser.DisplayName
	}

	f := &model.Friend{
		ID:        uuid.New().String(),
		UserID:    fromUserID,
		FriendID:  toUser.ID,
		Status:    model.FriendStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.friends.Create(ctx, f); err != nil {
		return nil, fmt.Errorf("failed to create friend request: %w", err)
	}

	if _, err := s.notifier.CreateAndPush(ctx, toUser.ID,
		NotificationTypeFriendRequest,
		"友達リクエスト",
		fmt.Sprintf("%sさんから友達リクエストが届きました。", fromName),
		map[string]any{"from_user_id": fromUserID, "from_username": fromName},
	); err != nil {
		// リクエスト自体は作成済み。通知の失敗で巻き戻さない
		s.logger.Error("failed to create friend request notification",
			slog.String("from_user_id", fromUserID),
			slog.String("to_user_id", toUser.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("friend request sent",
		slog.String("from_user_id", fromUserID),
		slog.String("to_user_id", toUser.ID),
	)
	return f, nil
}

// Accept はfromUserIDからの保留中リクエストを承認する。
// 対応するfriend_request通知は削除され、リクエスト送信者へ承認通知がプッシュされる。
func (s *Service) Accept(ctx context.Context, userID, fromUserID string) error {
	pending, err := s.friends.FindPending(ctx, fromUserID, userID)
	if err != nil {
		return fmt.Errorf("failed to find pending request: %w", err)
	}
	if pending == nil {
		return model.NewFriendRequestNotFoundError()
	}

	if err := s.friends.Accept(ctx, pending.ID); err != nil {
		return fmt.Errorf("failed to accept friend request: %w", err)
	}

	if err := s.notifications.DeleteFriendRequests(ctx, userID, fromUserID); err != nil {
		s.logger.Error("failed to delete friend request notifications",
			slog.String("user_id", userID),
			slog.String("from_user_id", fromUserID),
			slog.String("error", err.Error()),
		)
	}

	accepter, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to find accepter: %w", err)
	}
	accepterName := userID
	if accepter != nil {
		accepterName = accepter.DisplayName
	}

	if _, err := s.notifier.CreateAndPush(ctx, fromUserID,
		NotificationTypeFriendAccepted,
		"友達リクエスト承認",
		fmt.Sprintf("%sさんが友達リクエストを承認しました。", accepterName),
		map[string]any{"user_id": userID},
	); err != nil {
		s.logger.Error("failed to create friend accepted notification",
			slog.String("from_user_id", fromUserID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("friend request accepted",
		slog.String("user_id", userID),
		slog.String("from_user_id", fromUserID),
	)
	return nil
}

// Decline はfromUserIDからの保留中リクエストを拒否し、リクエスト行と
// 対応するfriend_request通知を削除する。拒否は送信者に通知されない。
func (s *Service) Decline(ctx context.Context, userID, fromUserID string) error {
	pending, err := s.friends.FindPending(ctx, fromUserID, userID)
	if err != nil {
		return fmt.Errorf("failed to find pending request: %w", err)
	}
	if pending == nil {
		return model.NewFriendRequestNotFoundError()
	}

	if err := s.friends.Delete(ctx, pending.ID); err != nil {
		return fmt.Errorf("failed to delete friend request: %w", err)
	}

	if err := s.notifications.DeleteFriendRequests(ctx, userID, fromUserID); err != nil {
		s.logger.Error("failed to delete friend request notifications",
			slog.String("user_id", userID),
			slog.String("from_user_id", fromUserID),
			slog.String("error", err.Error()),
		)
	}

	return nil
}

// ListFriends は承認済みの友達のユーザー情報一覧を返す。
// 相手のユーザーレコードが見つからない場合はその相手をスキップする。
func (s *Service) ListFriends(ctx context.Context, userID string) ([]*model.User, error) {
	ids, err := s.friends.ListAcceptedIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friend ids: %w", err)
	}

	friends := make([]*model.User, 0, len(ids))
	for _, id := range ids {
		u, err := s.users.FindByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to find friend user: %w", err)
		}
		if u == nil {
			continue
		}
		friends = append(friends, u)
	}
	return friends, nil
}

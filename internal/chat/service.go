// Package chat は会話とメッセージのアプリケーションサービスを提供する。
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sisi/sisichat/internal/model"
	"github.com/sisi/sisichat/internal/repository"
)

// Service は会話の作成・一覧・履歴とメッセージ永続化を担う。
type Service struct {
	chats    repository.ChatRepository
	messages repository.MessageRepository
	logger   *slog.Logger
}

// NewService はServiceを生成する。
func NewService(chats repository.ChatRepository, messages repository.MessageRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		chats:    chats,
		messages: messages,
		logger:   logger,
	}
}

// CreateChat は新しい会話を作成する。作成者は参加者に自動的に含められ、
// 参加者集合は重複排除される。参加者が空の場合はエラー。
func (s *Service) CreateChat(ctx context.Context, creatorID, name string, chatType model.ChatType, participants []string) (*model.Chat, error) {
	seen := make(map[string]struct{}, len(participants)+1)
	unique := make([]string, 0, len(participants)+1)
	for _, p := range append([]string{creatorID}, participants...) {
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		unique = append(unique, p)
	}
	if len(unique) == 0 {
		return nil, model.NewEmptyParticipantsError()
	}

	if chatType != model.ChatTypeGroup {
		chatType = model.ChatTypePrivate
	}

	now := time.Now().UTC()
	chat := &model.Chat{
		ID:           uuid.New().String(),
		Name:         name,
		ChatType:     chatType,
		Participants: unique,
		CreatedBy:    creatorID,
		LastActivity: now,
		CreatedAt:    now,
	}

	if err := s.chats.Create(ctx, chat); err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}

	s.logger.Info("chat created",
		slog.String("chat_id", chat.ID),
		slog.String("created_by", creatorID),
		slog.Int("participants", len(unique)),
	)
	return chat, nil
}

// ListChats は指定ユーザーが参加する会話一覧を最終活動の降順で返す。
func (s *Service) ListChats(ctx context.Context, userID string) ([]*model.Chat, error) {
	chats, err := s.chats.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	return chats, nil
}

// History は指定会話のメッセージ履歴を時系列昇順で返す。
// 会話が存在しない場合と、要求者が参加者でない場合はエラー。
func (s *Service) History(ctx context.Context, chatID, userID string, limit int) ([]*model.Message, error) {
	chat, err := s.chats.FindByID(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to find chat: %w", err)
	}
	if chat == nil {
		return nil, model.NewChatNotFoundError(chatID)
	}
	if !containsUser(chat.Participants, userID) {
		return nil, model.NewNotParticipantError(chatID)
	}

	messages, err := s.messages.ListByChat(ctx, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

// SaveMessage はメッセージを永続化し、会話のサマリー（last_message/last_activity）を
// 更新する。サマリー更新の失敗はメッセージ自体の保存を取り消さない（ログのみ）。
func (s *Service) SaveMessage(ctx context.Context, conversationID, senderID, senderName, content, messageType string, metadata map[string]any) (*model.Message, error) {
	msg := &model.Message{
		ID:          uuid.New().String(),
		ChatID:      conversationID,
		SenderID:    senderID,
		SenderName:  senderName,
		Content:     content,
		MessageType: model.MessageType(messageType),
		Timestamp:   time.Now().UTC(),
		Metadata:    metadata,
	}

	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	if err := s.chats.UpdateLastMessage(ctx, conversationID, content, msg.Timestamp); err != nil {
		s.logger.Error("failed to update chat summary",
			slog.String("chat_id", conversationID),
			slog.String("error", err.Error()),
		)
	}

	return msg, nil
}

// ResolveParticipants は会話の参加者集合を返す。会話が存在しない場合は(nil, nil)。
func (s *Service) ResolveParticipants(ctx context.Context, conversationID string) ([]string, error) {
	chat, err := s.chats.FindByID(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve participants: %w", err)
	}
	if chat == nil {
		return nil, nil
	}
	return chat.Participants, nil
}

func containsUser(participants []string, userID string) bool {
	for _, p := range participants {
		if p == userID {
			return true
		}
	}
	return false
}

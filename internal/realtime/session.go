package realtime

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/sisi/sisichat/internal/model"
	"github.com/sisi/sisichat/internal/presence"
)

// Transport はSessionが使用する接続の抽象。PeerConnが実装する。
type Transport interface {
	presence.Handle
	ReadFrame() ([]byte, error)
	Close()
}

// MessageSaver はチャットメッセージの永続化インターフェース。chat.Serviceが実装する。
type MessageSaver interface {
	SaveMessage(ctx context.Context, conversationID, senderID, senderName, content, messageType string, metadata map[string]any) (*model.Message, error)
}

// NotificationReader は通知一覧の読み取りインターフェース。notification.Serviceが実装する。
type NotificationReader interface {
	ListForUser(ctx context.Context, userID string, limit int) ([]*model.Notification, error)
}

// Session は1ユーザー・1接続のライフサイクルを所有する。
// 接続の登録、受信フレームのデコードとディスパッチ、終了時の登録解除を行う。
// ディスパッチは受信ゴルーチン上で逐次実行され、同一接続のフレーム順序を保存する。
type Session struct {
	userID            string
	conn              Transport
	registry          *presence.Registry
	messages          MessageSaver
	notifications     NotificationReader
	router            *Router
	notificationLimit int
	logger            *slog.Logger
	metrics           Metrics
}

// NewSession はSessionを生成する。
func NewSession(
	userID string,
	conn Transport,
	registry *presence.Registry,
	messages MessageSaver,
	notifications NotificationReader,
	router *Router,
	notificationLimit int,
	logger *slog.Logger,
	metrics Metrics,
) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Session{
		userID:            userID,
		conn:              conn,
		registry:          registry,
		messages:          messages,
		notifications:     notifications,
		router:            router,
		notificationLimit: notificationLimit,
		logger:            logger,
		metrics:           metrics,
	}
}

// Run は接続を登録し、切断まで受信フレームを処理する。
// どの経路で終了しても登録解除はちょうど1回実行される。
// ctxのキャンセル（グレースフルシャットダウン）は接続のクローズで読み取りループを解く。
func (s *Session) Run(ctx context.Context) {
	s.registry.Register(ctx, s.userID, s.conn)
	s.metrics.ConnectionOpened()
	s.logger.Info("websocket session started",
		slog.String("user_id", s.userID),
	)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			s.conn.Close()
		case <-stop:
		}
	}()

	defer func() {
		s.registry.UnregisterHandle(s.userID, s.conn)
		s.conn.Close()
		s.metrics.ConnectionClosed()
		s.logger.Info("websocket session ended",
			slog.String("user_id", s.userID),
		)
	}()

	// ctxのキャンセルは読み取りループ（接続クローズ）のみを解く。
	// 受信済みフレームの処理はキャンセルから切り離し、発行済みの
	// 永続化書き込みを完了まで走らせる。
	dispatchCtx := context.WithoutCancel(ctx)

	for {
		data, err := s.conn.ReadFrame()
		if err != nil {
			return
		}

		var frame InboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			// 不正なフレームはそのフレームのみを破棄し、接続は維持する
			s.logger.Warn("discarding malformed frame",
				slog.String("user_id", s.userID),
				slog.String("error", err.Error()),
			)
			continue
		}

		s.dispatch(dispatchCtx, &frame)
	}
}

func (s *Session) dispatch(ctx context.Context, frame *InboundFrame) {
	switch frame.Type {
	case FrameTypeChatMessage:
		s.handleChatMessage(ctx, frame)
	case FrameTypeTyping:
		s.handleTyping(ctx, frame)
	case FrameTypeRefreshNotifications:
		s.handleRefreshNotifications(ctx)
	default:
		s.logger.Warn("discarding frame with unknown type",
			slog.String("user_id", s.userID),
			slog.String("frame_type", frame.Type),
		)
	}
}

// handleChatMessage はメッセージを永続化し、成功した場合のみ参加者へ配信する。
// 永続化の失敗はファンアウトを完全に抑止する。届いたメッセージは必ず保存済みであり、
// その逆は成り立たない、が配信の不変条件。
func (s *Session) handleChatMessage(ctx context.Context, frame *InboundFrame) {
	if frame.ConversationID == "" {
		s.logger.Warn("discarding chat_message without conversation_id",
			slog.String("user_id", s.userID),
		)
		return
	}

	senderName := frame.SenderDisplayName
	if senderName == "" {
		senderName = "Unknown"
	}
	messageType := frame.MessageType
	if messageType == "" {
		messageType = string(model.MessageTypeText)
	}

	msg, err := s.messages.SaveMessage(ctx, frame.ConversationID, s.userID, senderName, frame.Content, messageType, frame.Metadata)
	if err != nil {
		s.metrics.PersistFailed()
		s.logger.Error("failed to persist chat message",
			slog.String("user_id", s.userID),
			slog.String("conversation_id", frame.ConversationID),
			slog.String("error", err.Error()),
		)
		return
	}
	s.metrics.MessagePersisted()

	s.router.DeliverToConversation(ctx, NewMessage(msg), frame.ConversationID)
}

// handleTyping はタイピングシグナルを参加者へ中継する。永続化は一切行わない。
func (s *Session) handleTyping(ctx context.Context, frame *InboundFrame) {
	if frame.ConversationID == "" {
		return
	}
	s.router.DeliverToConversation(ctx, NewTyping(s.userID, frame.ConversationID, frame.IsTyping), frame.ConversationID)
}

// handleRefreshNotifications は要求元自身にのみ最新の通知一覧を返す。
func (s *Session) handleRefreshNotifications(ctx context.Context) {
	notifications, err := s.notifications.ListForUser(ctx, s.userID, s.notificationLimit)
	if err != nil {
		s.logger.Error("failed to load notifications for refresh",
			slog.String("user_id", s.userID),
			slog.String("error", err.Error()),
		)
		return
	}
	s.router.DeliverToUser(NewNotificationsUpdate(notifications), s.userID)
}

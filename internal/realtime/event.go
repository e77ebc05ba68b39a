// Package realtime はライブ接続上のイベント配信コアを提供する。
// 受信フレームのデコードとディスパッチ（Session）、オンライン受信者の解決と
// ファンアウト（Router）、およびワイヤフレームの型定義を含む。
package realtime

import (
	"time"

	"github.com/sisi/sisichat/internal/model"
)

// 受信フレームのイベント種別
const (
	FrameTypeChatMessage          = "chat_message"
	FrameTypeTyping               = "typing"
	FrameTypeRefreshNotifications = "refresh_notifications"
)

// 送信フレームのイベント種別
const (
	FrameTypeNewMessage          = "new_message"
	FrameTypeNotification        = "notification"
	FrameTypeNotificationsUpdate = "notifications_update"
	FrameTypePaymentRequest      = "payment_request"
)

// InboundFrame はクライアントから受信するフレーム。typeで判別する。
// 未知のtypeや必須フィールドの欠落はフレーム単位で破棄され、接続は継続する。
type InboundFrame struct {
	Type              string         `json:"type"`
	ConversationID    string         `json:"conversation_id,omitempty"`
	SenderDisplayName string         `json:"sender_display_name,omitempty"`
	Content           string         `json:"content,omitempty"`
	MessageType       string         `json:"message_type,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
	IsTyping          bool           `json:"is_typing,omitempty"`
}

// MessagePayload はnew_messageフレーム内のメッセージ表現。
type MessagePayload struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversation_id"`
	SenderID       string         `json:"sender_id"`
	SenderName     string         `json:"sender_name"`
	Content        string         `json:"content"`
	MessageType    string         `json:"message_type"`
	Timestamp      time.Time      `json:"timestamp"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// NewMessageEvent は新着メッセージの送信フレーム。
type NewMessageEvent struct {
	Type    string         `json:"type"`
	Message MessagePayload `json:"message"`
}

// NewMessage はmodel.MessageからNewMessageEventを生成する。
func NewMessage(msg *model.Message) NewMessageEvent {
	return NewMessageEvent{
		Type: FrameTypeNewMessage,
		Message: MessagePayload{
			ID:             msg.ID,
			ConversationID: msg.ChatID,
			SenderID:       msg.SenderID,
			SenderName:     msg.SenderName,
			Content:        msg.Content,
			MessageType:    string(msg.MessageType),
			Timestamp:      msg.Timestamp,
			Metadata:       msg.Metadata,
		},
	}
}

// TypingEvent はタイピングインジケーターの送信フレーム。
// 永続化されない純粋なエフェメラルシグナル。
type TypingEvent struct {
	Type           string `json:"type"`
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id"`
	IsTyping       bool   `json:"is_typing"`
}

// NewTyping はTypingEventを生成する。
func NewTyping(userID, conversationID string, isTyping bool) TypingEvent {
	return TypingEvent{
		Type:           FrameTypeTyping,
		UserID:         userID,
		ConversationID: conversationID,
		IsTyping:       isTyping,
	}
}

// NotificationPayload は通知フレーム内の通知表現。
type NotificationPayload struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Read      bool           `json:"read"`
	CreatedAt time.Time      `json:"created_at"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// NotificationEvent は単一通知のプッシュフレーム。
// 友達リクエストフローなどの外部コラボレータが生成した時点で即時配信される。
type NotificationEvent struct {
	Type         string              `json:"type"`
	Notification NotificationPayload `json:"notification"`
}

// NewNotification はNotificationEventを生成する。
func NewNotification(n *model.Notification) NotificationEvent {
	return NotificationEvent{
		Type:         FrameTypeNotification,
		Notification: toNotificationPayload(n),
	}
}

// NotificationsUpdateEvent は通知一覧の送信フレーム。
// refresh_notificationsの要求元Sessionにのみ配信される。
type NotificationsUpdateEvent struct {
	Type          string                `json:"type"`
	Notifications []NotificationPayload `json:"notifications"`
}

// NewNotificationsUpdate はNotificationsUpdateEventを生成する。
// 空一覧の場合も空配列として送信する（nullにしない）。
func NewNotificationsUpdate(notifications []*model.Notification) NotificationsUpdateEvent {
	payloads := make([]NotificationPayload, 0, len(notifications))
	for _, n := range notifications {
		payloads = append(payloads, toNotificationPayload(n))
	}
	return NotificationsUpdateEvent{
		Type:          FrameTypeNotificationsUpdate,
		Notifications: payloads,
	}
}

func toNotificationPayload(n *model.Notification) NotificationPayload {
	return NotificationPayload{
		ID:        n.ID,
		UserID:    n.UserID,
		Type:      n.Type,
		Title:     n.Title,
		Body:      n.Body,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
		Payload:   n.Payload,
	}
}

// PaymentPayload はpayment_requestフレーム内の送金リクエスト表現。
type PaymentPayload struct {
	ID          string    `json:"id"`
	FromUser    string    `json:"from_user"`
	ToUser      string    `json:"to_user"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// PaymentRequestEvent は送金リクエストのプッシュフレーム。
type PaymentRequestEvent struct {
	Type    string         `json:"type"`
	Payment PaymentPayload `json:"payment"`
}

// NewPaymentRequest はPaymentRequestEventを生成する。
func NewPaymentRequest(p *model.PaymentRequest) PaymentRequestEvent {
	return PaymentRequestEvent{
		Type: FrameTypePaymentRequest,
		Payment: PaymentPayload{
			ID:          p.ID,
			FromUser:    p.FromUser,
			ToUser:      p.ToUser,
			Amount:      p.Amount,
			Description: p.Description,
			Status:      string(p.Status),
			CreatedAt:   p.CreatedAt,
		},
	}
}

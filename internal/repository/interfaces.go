// Package repository はデータ永続化のインターフェースを定義する。
// 永続エンティティの読み書きはすべてこの層を経由する。
package repository

import (
	"context"
	"time"

	"github.com/sisi/sisichat/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsername はユーザー名でユーザーを検索する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// UpdateStatus はユーザーのオンライン状態とlast_seenを更新する。
	// 対象ユーザーが存在しない場合もエラーにはならない（冪等）。
	UpdateStatus(ctx context.Context, userID string, status model.UserStatus, lastSeen time.Time) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// FindByID は指定IDのセッションを取得する。期限切れまたは未検出の場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
}

// ChatRepository は会話データの永続化インターフェース。
type ChatRepository interface {
	// FindByID は指定IDのチャットを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Chat, error)

	// Create はチャットを作成する。
	Create(ctx context.Context, chat *model.Chat) error

	// ListByParticipant は指定ユーザーが参加するチャット一覧をlast_activity降順で返す。
	ListByParticipant(ctx context.Context, userID string) ([]*model.Chat, error)

	// UpdateLastMessage はチャットのlast_messageとlast_activityを単一UPDATEで更新する。
	// ドキュメント単位のアトミック更新であり、同一チャットへの並行書き込みは
	// 完了順のlast-writer-winsとなる。
	UpdateLastMessage(ctx context.Context, chatID, lastMessage string, at time.Time) error
}

// MessageRepository はメッセージデータの永続化インターフェース。追記専用。
type MessageRepository interface {
	// Create はメッセージを作成する。
	Create(ctx context.Context, msg *model.Message) error

	// ListByChat は指定チャットのメッセージをtimestamp昇順（同値は挿入順）で返す。
	ListByChat(ctx context.Context, chatID string, limit int) ([]*model.Message, error)
}

// NotificationRepository は通知データの永続化インターフェース。
type NotificationRepository interface {
	// Create は通知を作成する。
	Create(ctx context.Context, n *model.Notification) error

	// ListByUser は指定ユーザーの通知をcreated_at降順で最大limit件返す。
	ListByUser(ctx context.Context, userID string, limit int) ([]*model.Notification, error)

	// MarkRead は指定通知の既読フラグを立てる。
	// 対象が存在しない、または他ユーザーの通知の場合はfalseを返す。
	MarkRead(ctx context.Context, id, userID string) (bool, error)

	// DeleteFriendRequests は指定ユーザー宛てのfriend_request通知のうち、
	// 送信元がfromUserIDのものを削除する。
	DeleteFriendRequests(ctx context.Context, userID, fromUserID string) error

	// DeleteOlderThan はcutoffより古い通知を削除し、削除件数を返す。
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// FriendRepository は友達関係データの永続化インターフェース。
type FriendRepository interface {
	// Create は友達リクエストを作成する。
	Create(ctx context.Context, f *model.Friend) error

	// FindBetween は2ユーザー間の関係（方向問わず）を取得する。見つからない場合はnilを返す。
	FindBetween(ctx context.Context, userA, userB string) (*model.Friend, error)

	// FindPending はfromUserからtoUserへの保留中リクエストを取得する。見つからない場合はnilを返す。
	FindPending(ctx context.Context, fromUser, toUser string) (*model.Friend, error)

	// Accept は指定リクエストをacceptedに更新する。
	Accept(ctx context.Context, id string) error

	// Delete は指定リクエストを削除する。
	Delete(ctx context.Context, id string) error

	// ListAcceptedIDs は指定ユーザーと承認済み関係にある相手のユーザーID一覧を返す。
	ListAcceptedIDs(ctx context.Context, userID string) ([]string, error)
}

// PaymentRepository は送金リクエストデータの永続化インターフェース。
type PaymentRepository interface {
	// Create は送金リクエストを作成する。
	Create(ctx context.Context, p *model.PaymentRequest) error

	// ListByUser は指定ユーザーが送信または受信した送金リクエストを
	// created_at降順で返す。
	ListByUser(ctx context.Context, userID string) ([]*model.PaymentRequest, error)
}

// NewsRepository はニュース投稿データの永続化インターフェース。
type NewsRepository interface {
	// Create はニュース投稿を作成する。
	Create(ctx context.Context, post *model.NewsPost) error

	// CreateImported はRSSインポート由来の投稿を冪等に作成する。
	// 同一source_urlの投稿が既に存在する場合はスキップし、falseを返す。
	CreateImported(ctx context.Context, post *model.NewsPost) (bool, error)

	// List はニュース投稿をcreated_at降順で最大limit件返す。
	List(ctx context.Context, limit int) ([]*model.NewsPost, error)
}

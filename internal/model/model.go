// Package model はドメインモデルを定義する。
package model

import "time"

// UserStatus はユーザーのオンライン状態を表す。
// 遷移は接続確立（online）と切断（offline）のみ。
type UserStatus string

const (
	// UserStatusOnline はライブ接続を保持している状態。
	UserStatusOnline UserStatus = "online"
	// UserStatusOffline はライブ接続が存在しない状態。
	UserStatusOffline UserStatus = "offline"
)

// User はサービス利用ユーザーを表す。
type User struct {
	ID          string
	Username    string
	DisplayName string
	Email       string
	AvatarURL   string
	Status      UserStatus
	LastSeen    time.Time
	CreatedAt   time.Time
}

// Session はユーザーのログインセッションを表す。
// セッションIDは外部コラボレータが発行した不透明な識別子として扱う。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// ChatType はチャットの種別を表す。
type ChatType string

const (
	// ChatTypePrivate は1対1のダイレクトチャット。
	ChatTypePrivate ChatType = "private"
	// ChatTypeGroup はグループチャット。
	ChatTypeGroup ChatType = "group"
)

// Chat は会話を表す。
// Participantsは空でない一意なユーザーIDの集合。
// メッセージ到着によりLastMessage/LastActivityのみが更新される。
// このコアでは削除されない（削除は外部のアカウント管理の責務）。
type Chat struct {
	ID           string
	Name         string
	ChatType     ChatType
	Participants []string
	CreatedBy    string
	LastMessage  string
	LastActivity time.Time
	CreatedAt    time.Time
}

// MessageType はメッセージの種別を表す。
type MessageType string

const (
	MessageTypeText     MessageType = "text"
	MessageTypeImage    MessageType = "image"
	MessageTypeVoice    MessageType = "voice"
	MessageTypePayment  MessageType = "payment"
	MessageTypeLocation MessageType = "location"
)

// Message は会話内のメッセージを表す。
// 作成後はイミュータブル（追記専用）。並び順のキーはTimestamp。
type Message struct {
	ID          string
	ChatID      string
	SenderID    string
	SenderName  string
	Content     string
	MessageType MessageType
	Timestamp   time.Time
	Metadata    map[string]any
}

// Notification はユーザーへの通知を表す。
// Readフラグ以外は作成後に変更されない。
type Notification struct {
	ID        string
	UserID    string
	Type      string
	Title     string
	Body      string
	Read      bool
	CreatedAt time.Time
	Payload   map[string]any
}

// FriendStatus は友達関係の状態を表す。
type FriendStatus string

const (
	FriendStatusPending  FriendStatus = "pending"
	FriendStatusAccepted FriendStatus = "accepted"
)

// Friend はユーザー間の友達関係（リクエスト含む）を表す。
type Friend struct {
	ID        string
	UserID    string // リクエスト送信者
	FriendID  string // リクエスト受信者
	Status    FriendStatus
	CreatedAt time.Time
}

// PaymentStatus は送金リクエストの状態を表す。
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// PaymentRequest はモックの送金リクエストを表す。
// 決済処理自体はスコープ外であり、レコードとリアルタイム通知のみを扱う。
type PaymentRequest struct {
	ID          string
	FromUser    string
	ToUser      string
	Amount      float64
	Description string
	Status      PaymentStatus
	CreatedAt   time.Time
}

// NewsPost はニュース投稿を表す。
// ユーザー投稿とRSSインポートの両方がこの型で保存される。
type NewsPost struct {
	ID         string
	AuthorID   string
	AuthorName string
	Title      string
	Content    string
	ImageURL   string
	Category   string
	SourceURL  string // RSSインポート時の元記事URL（ユーザー投稿では空）
	CreatedAt  time.Time
}

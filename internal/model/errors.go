package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, chat, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized         = "UNAUTHORIZED"
	ErrCodeChatNotFound         = "CHAT_NOT_FOUND"
	ErrCodeNotParticipant       = "NOT_PARTICIPANT"
	ErrCodeUserNotFound         = "USER_NOT_FOUND"
	ErrCodeSelfFriendRequest    = "SELF_FRIEND_REQUEST"
	ErrCodeDuplicateFriend      = "DUPLICATE_FRIEND_REQUEST"
	ErrCodeFriendReqNotFound    = "FRIEND_REQUEST_NOT_FOUND"
	ErrCodeNotificationNotFound = "NOTIFICATION_NOT_FOUND"
	ErrCodeInvalidRequest       = "INVALID_REQUEST"
	ErrCodeEmptyParticipants    = "EMPTY_PARTICIPANTS"
)

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewChatNotFoundError はチャット未検出エラーを生成する。
func NewChatNotFoundError(chatID string) *APIError {
	return &APIError{
		Code:     ErrCodeChatNotFound,
		Message:  fmt.Sprintf("指定されたチャットが見つかりません: %s", chatID),
		Category: "chat",
		Action:   "チャットIDを確認してください。",
	}
}

// NewNotParticipantError は参加者外アクセスエラーを生成する。
func NewNotParticipantError(chatID string) *APIError {
	return &APIError{
		Code:     ErrCodeNotParticipant,
		Message:  fmt.Sprintf("このチャットの参加者ではありません: %s", chatID),
		Category: "auth",
		Action:   "参加しているチャットのみ閲覧できます。",
	}
}

// NewUserNotFoundError はユーザー未検出エラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ユーザー名を確認してください。",
	}
}

// NewSelfFriendRequestError は自分自身への友達リクエストエラーを生成する。
func NewSelfFriendRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeSelfFriendRequest,
		Message:  "自分自身を友達に追加することはできません。",
		Category: "validation",
		Action:   "他のユーザーを指定してください。",
	}
}

// NewDuplicateFriendError は重複した友達リクエストエラーを生成する。
func NewDuplicateFriendError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateFriend,
		Message:  "友達リクエストは既に存在します。",
		Category: "validation",
		Action:   "友達一覧または保留中のリクエストを確認してください。",
	}
}

// NewFriendRequestNotFoundError は友達リクエスト未検出エラーを生成する。
func NewFriendRequestNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeFriendReqNotFound,
		Message:  "友達リクエストが見つかりません。",
		Category: "chat",
		Action:   "リクエストの送信元ユーザーIDを確認してください。",
	}
}

// NewNotificationNotFoundError は通知未検出エラーを生成する。
func NewNotificationNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeNotificationNotFound,
		Message:  fmt.Sprintf("指定された通知が見つかりません: %s", id),
		Category: "chat",
		Action:   "通知IDを確認してください。",
	}
}

// NewInvalidRequestError はリクエスト形式エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "リクエストボディの形式を確認してください。",
	}
}

// NewEmptyParticipantsError は参加者集合が空の場合のエラーを生成する。
func NewEmptyParticipantsError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyParticipants,
		Message:  "チャットの参加者が指定されていません。",
		Category: "validation",
		Action:   "1人以上の参加者を指定してください。",
	}
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sisi/sisichat/internal/middleware"
	"github.com/sisi/sisichat/internal/model"
)

// デフォルトの履歴取得件数上限
const defaultHistoryLimit = 100

// ChatServiceInterface はチャットハンドラーが必要とするサービスインターフェース。
type ChatServiceInterface interface {
	// CreateChat は新しい会話を作成する。
	CreateChat(ctx context.Context, creatorID, name string, chatType model.ChatType, participants []string) (*model.Chat, error)
	// ListChats は指定ユーザーが参加する会話一覧を返す。
	ListChats(ctx context.Context, userID string) ([]*model.Chat, error)
	// History は指定会話のメッセージ履歴を時系列昇順で返す。
	History(ctx context.Context, chatID, userID string, limit int) ([]*model.Message, error)
}

// ChatHandler は会話とメッセージ履歴のHTTPハンドラー。
type ChatHandler struct {
	service ChatServiceInterface
}

// NewChatHandler はChatHandlerを生成する。
func NewChatHandler(service ChatServiceInterface) *ChatHandler {
	return &ChatHandler{service: service}
}

// createChatRequest はチャット作成リクエストのボディ。
type createChatRequest struct {
	Name         string   `json:"name"`
	ChatType     string   `json:"chat_type"`
	Participants []string `json:"participants"`
}

// chatResponse は会話情報のAPIレスポンス。
type chatResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ChatType     string    `json:"chat_type"`
	Participants []string  `json:"participants"`
	CreatedBy    string    `json:"created_by"`
	LastMessage  string    `json:"last_message"`
	LastActivity time.Time `json:"last_activity"`
	CreatedAt    time.Time `json:"created_at"`
}

// messageResponse はメッセージのAPIレスポンス。
type messageResponse struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversation_id"`
	SenderID       string         `json:"sender_id"`
	SenderName     string         `json:"sender_name"`
	Content        string         `json:"content"`
	MessageType    string         `json:"message_type"`
	Timestamp      time.Time      `json:"timestamp"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// CreateChat はチャット作成を処理する。
// POST /api/chats
func (h *ChatHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req createChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}

	chat, err := h.service.CreateChat(r.Context(), userID, req.Name, model.ChatType(req.ChatType), req.Participants)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toChatResponse(chat))
}

// ListChats は認証済みユーザーの会話一覧を返す。
// GET /api/chats
func (h *ChatHandler) ListChats(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	chats, err := h.service.ListChats(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]chatResponse, 0, len(chats))
	for _, c := range chats {
		responses = append(responses, toChatResponse(c))
	}
	writeJSON(w, http.StatusOK, responses)
}

// History は会話のメッセージ履歴を返す。参加者のみ閲覧できる。
// GET /api/chats/{id}/messages
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	chatID := chi.URLParam(r, "id")

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= defaultHistoryLimit {
			limit = parsed
		}
	}

	messages, err := h.service.History(r.Context(), chatID, userID, limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]messageResponse, 0, len(messages))
	for _, m := range messages {
		responses = append(responses, toMessageResponse(m))
	}
	writeJSON(w, http.StatusOK, responses)
}

func toChatResponse(c *model.Chat) chatResponse {
	return chatResponse{
		ID:           c.ID,
		Name:         c.Name,
		ChatType:     string(c.ChatType),
		Participants: c.Participants,
		CreatedBy:    c.CreatedBy,
		LastMessage:  c.LastMessage,
		LastActivity: c.LastActivity,
		CreatedAt:    c.CreatedAt,
	}
}

func toMessageResponse(m *model.Message) messageResponse {
	return messageResponse{
		ID:             m.ID,
		ConversationID: m.ChatID,
		SenderID:       m.SenderID,
		SenderName:     m.SenderName,
		Content:        m.Content,
		MessageType:    string(m.MessageType),
		Timestamp:      m.Timestamp,
		Metadata:       m.Metadata,
	}
}

package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sisi/sisichat/internal/middleware"
	"github.com/sisi/sisichat/internal/model"
)

// NotificationServiceInterface は通知ハンドラーが必要とするサービスインターフェース。
type NotificationServiceInterface interface {
	// ListForUser は指定ユーザーの通知を新しい順で返す。
	ListForUser(ctx context.Context, userID string, limit int) ([]*model.Notification, error)
	// MarkRead は指定通知を既読にする。
	MarkRead(ctx context.Context, id, userID string) error
	// Refresh は最新の通知一覧を要求元のライブ接続へプッシュし、件数を返す。
	Refresh(ctx context.Context, userID string) (int, error)
}

// NotificationHandler は通知のHTTPハンドラー。
type NotificationHandler struct {
	service NotificationServiceInterface
}

// NewNotificationHandler はNotificationHandlerを生成する。
func NewNotificationHandler(service NotificationServiceInterface) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// notificationResponse は通知のAPIレスポンス。
type notificationResponse struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Read      bool           `json:"read"`
	CreatedAt time.Time      `json:"created_at"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// List は認証済みユーザーの通知一覧を返す。
// GET /api/notifications
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	notifications, err := h.service.ListForUser(r.Context(), userID, 0)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]notificationResponse, 0, len(notifications))
	for _, n := range notifications {
		responses = append(responses, toNotificationResponse(n))
	}
	writeJSON(w, http.StatusOK, responses)
}

// MarkRead は通知を既読にする。
// POST /api/notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	id := chi.URLParam(r, "id")

	if err := h.service.MarkRead(r.Context(), id, userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Refresh は最新の通知をWebSocket経由で要求元へプッシュする。
// オフラインの場合プッシュは静かにドロップされるが、件数は返る。
// POST /api/notifications/refresh
func (h *NotificationHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	count, err := h.service.Refresh(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

func toNotificationResponse(n *model.Notification) notificationResponse {
	return notificationResponse{
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

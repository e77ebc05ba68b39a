package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sisi/sisichat/internal/middleware"
	"github.com/sisi/sisichat/internal/model"
)

// FriendServiceInterface は友達ハンドラーが必要とするサービスインターフェース。
type FriendServiceInterface interface {
	// SendRequest はユーザー名で指定した相手へ友達リクエストを送る。
	SendRequest(ctx context.Context, fromUserID, toUsername string) (*model.Friend, error)
	// Accept は保留中リクエストを承認する。
	Accept(ctx context.Context, userID, fromUserID string) error
	// Decline は保留中リクエストを拒否する。
	Decline(ctx context.Context, userID, fromUserID string) error
	// ListFriends は承認済みの友達一覧を返す。
	ListFriends(ctx context.Context, userID string) ([]*model.User, error)
}

// FriendHandler は友達リクエストと友達一覧のHTTPハンドラー。
type FriendHandler struct {
	service FriendServiceInterface
}

// NewFriendHandler はFriendHandlerを生成する。
func NewFriendHandler(service FriendServiceInterface) *FriendHandler {
	return &FriendHandler{service: service}
}

// friendRequestBody は友達リクエスト送信のボディ。
type friendRequestBody struct {
	Username string `json:"username"`
}

// friendRespondBody はリクエスト承認・拒否のボディ。
type friendRespondBody struct {
	FromUserID string `json:"from_user_id"`
}

// friendUserResponse は友達一覧のAPIレスポンス。
type friendUserResponse struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url"`
	Status      string    `json:"status"`
	LastSeen    time.Time `json:"last_seen"`
}

// SendRequest は友達リクエストの送信を処理する。
// POST /api/friends/add
func (h *FriendHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req friendRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}
	if req.Username == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("ユーザー名が空です"))
		return
	}

	if _, err := h.service.SendRequest(r.Context(), userID, req.Username); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

// Accept は友達リクエストの承認を処理する。
// POST /api/friends/accept
func (h *FriendHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.service.Accept)
}

// Decline は友達リクエストの拒否を処理する。
// POST /api/friends/decline
func (h *FriendHandler) Decline(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.service.Decline)
}

func (h *FriendHandler) respond(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, userID, fromUserID string) error) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req friendRespondBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}
	if req.FromUserID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("from_user_idが空です"))
		return
	}

	if err := action(r.Context(), userID, req.FromUserID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// List は承認済みの友達一覧を返す。
// GET /api/friends
func (h *FriendHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	friends, err := h.service.ListFriends(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]friendUserResponse, 0, len(friends))
	for _, u := range friends {
		responses = append(responses, friendUserResponse{
			ID:          u.ID,
			Username:    u.Username,
			DisplayName: u.DisplayName,
			AvatarURL:   u.AvatarURL,
			Status:      string(u.Status),
			LastSeen:    u.LastSeen,
		})
	}
	writeJSON(w, http.StatusOK, responses)
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sisi/sisichat/internal/middleware"
	"github.com/sisi/sisichat/internal/model"
)

// PaymentServiceInterface は送金ハンドラーが必要とするサービスインターフェース。
type PaymentServiceInterface interface {
	// Request は送金リクエストを作成する。
	Request(ctx context.Context, fromUserID, toUserID string, amount float64, description string) (*model.PaymentRequest, error)
	// List は指定ユーザーに関連する送金リクエスト一覧を返す。
	List(ctx context.Context, userID string) ([]*model.PaymentRequest, error)
}

// PaymentHandler はモック送金リクエストのHTTPハンドラー。
type PaymentHandler struct {
	service PaymentServiceInterface
}

// NewPaymentHandler はPaymentHandlerを生成する。
func NewPaymentHandler(service PaymentServiceInterface) *PaymentHandler {
	return &PaymentHandler{service: service}
}

// paymentRequestBody は送金リクエスト作成のボディ。
type paymentRequestBody struct {
	ToUser      string  `json:"to_user"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

// paymentResponse は送金リクエストのAPIレスポンス。
type paymentResponse struct {
	ID          string    `json:"id"`
	FromUser    string    `json:"from_user"`
	ToUser      string    `json:"to_user"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Request は送金リクエストの作成を処理する。
// POST /api/payments/request
func (h *PaymentHandler) Request(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req paymentRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidBody(w)
		return
	}
	if req.ToUser == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("to_userが空です"))
		return
	}

	payment, err := h.service.Request(r.Context(), userID, req.ToUser, req.Amount, req.Description)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toPaymentResponse(payment))
}

// List は認証済みユーザーに関連する送金リクエスト一覧を返す。
// GET /api/payments
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	payments, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]paymentResponse, 0, len(payments))
	for _, p := range payments {
		responses = append(responses, toPaymentResponse(p))
	}
	writeJSON(w, http.StatusOK, responses)
}

func toPaymentResponse(p *model.PaymentRequest) paymentResponse {
	return paymentResponse{
		ID:          p.ID,
		FromUser:    p.FromUser,
		ToUser:      p.ToUser,
		Amount:      p.Amount,
		Description: p.Description,
		Status:      string(p.Status),
		CreatedAt:   p.CreatedAt,
	}
}

// Package payment はモック送金リクエストのアプリケーションサービスを提供する。
// 実際の決済処理は扱わない。レコードの永続化と受信者へのリアルタイム通知のみ。
package payment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sisi/sisichat/internal/model"
	"github.com/sisi/sisichat/internal/realtime"
	"github.com/sisi/sisichat/internal/repository"
)

// Pusher はオンラインユーザーへのベストエフォート配信インターフェース。
type Pusher interface {
	DeliverToUser(event any, userID string)
}

// Service は送金リクエストの作成と一覧を担う。
type Service struct {
	payments repository.PaymentRepository
	users    repository.UserRepository
	pusher   Pusher
	logger   *slog.Logger
}

// NewService はServiceを生成する。
func NewService(payments repository.PaymentRepository, users repository.UserRepository, pusher Pusher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		payments: payments,
		users:    users,
		pusher:   pusher,
		logger:   logger,
	}
}

// Request は送金リクエストを作成し、受信者がオンラインであれば
// payment_requestフレームを即時プッシュする。
func (s *Service) Request(ctx context.Context, fromUserID, toUserID string, amount float64, description string) (*model.PaymentRequest, error) {
	if amount <= 0 {
		return nil, model.NewInvalidRequestError("金額は正の値である必要があります")
	}

	toUser, err := s.users.FindByID(ctx, toUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find recipient: %w", err)
	}
	if toUser == nil {
		return nil, model.NewUserNotFoundError()
	}

	p := &model.PaymentRequest{
		ID:          uuid.New().String(),
		FromUser:    fromUserID,
		ToUser:      toUserID,
		Amount:      amount,
		Description: description,
		Status:      model.PaymentStatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create payment request: %w", err)
	}

	s.pusher.DeliverToUser(realtime.NewPaymentRequest(p), toUserID)

	s.logger.Info("payment request created",
		slog.String("payment_id", p.ID),
		slog.String("from_user", fromUserID),
		slog.String("to_user", toUserID),
	)
	return p, nil
}

// List は指定ユーザーが送信または受信した送金リクエストを新しい順で返す。
func (s *Service) List(ctx context.Context, userID string) ([]*model.PaymentRequest, error) {
	payments, err := s.payments.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment requests: %w", err)
	}
	return payments, nil
}

package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sisi/sisichat/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger

	// サービス
	ChatService         ChatServiceInterface
	NotificationService NotificationServiceInterface
	FriendService       FriendServiceInterface
	PaymentService      PaymentServiceInterface
	NewsService         NewsServiceInterface

	// WebSocket
	WSHandler *WSHandler

	// Prometheusスクレイプ用ハンドラー（nilの場合は/metricsを公開しない）
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → CORS → SessionMiddleware → RateLimit(General)
//
// WebSocketルート（/ws/*）とヘルスチェックはミドルウェアチェーンの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	chatHandler := NewChatHandler(deps.ChatService)
	notificationHandler := NewNotificationHandler(deps.NotificationService)
	friendHandler := NewFriendHandler(deps.FriendService)
	paymentHandler := NewPaymentHandler(deps.PaymentService)
	newsHandler := NewNewsHandler(deps.NewsService)

	// --- 認証不要のルート ---

	// ヘルスチェック
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheusメトリクス
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// WebSocket接続
	r.Get("/ws/{user_id}", deps.WSHandler.Connect)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// チャット管理
		r.Route("/api/chats", func(r chi.Router) {
			r.Post("/", chatHandler.CreateChat)
			r.Get("/", chatHandler.ListChats)

			// GET /api/chats/{id}/messages - 履歴取得（専用レート制限を追加）
			r.With(deps.RateLimiter.HistoryMiddleware()).Get("/{id}/messages", chatHandler.History)
		})

		// 通知管理
		r.Route("/api/notifications", func(r chi.Router) {
			r.Get("/", notificationHandler.List)
			r.Post("/{id}/read", notificationHandler.MarkRead)
			r.Post("/refresh", notificationHandler.Refresh)
		})

		// 友達管理
		r.Route("/api/friends", func(r chi.Router) {
			r.Get("/", friendHandler.List)
			r.Post("/add", friendHandler.SendRequest)
			r.Post("/accept", friendHandler.Accept)
			r.Post("/decline", friendHandler.Decline)
		})

		// 送金リクエスト
		r.Route("/api/payments", func(r chi.Router) {
			r.Get("/", paymentHandler.List)
			r.Post("/request", paymentHandler.Request)
		})

		// ニュースフィード
		r.Route("/api/news", func(r chi.Router) {
			r.Get("/", newsHandler.List)
			r.Post("/", newsHandler.CreatePost)
		})
	})

	return r
}

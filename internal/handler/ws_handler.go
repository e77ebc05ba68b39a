package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/sisi/sisichat/internal/presence"
	"github.com/sisi/sisichat/internal/realtime"
)

// WSHandler はWebSocket接続の確立とセッションの起動を行う。
// 接続は /ws/{user_id} に対して張られ、接続ごとに1つのSessionが生成される。
type WSHandler struct {
	registry      *presence.Registry
	messages      realtime.MessageSaver
	notifications realtime.NotificationReader
	router        *realtime.Router
	connConfig    realtime.ConnConfig

	notificationLimit int
	logger            *slog.Logger
	metrics           realtime.Metrics

	// shutdownCtx のキャンセルで全セッションの接続がクローズされる
	shutdownCtx context.Context

	upgrader websocket.Upgrader
}

// NewWSHandler はWSHandlerを生成する。
func NewWSHandler(
	registry *presence.Registry,
	messages realtime.MessageSaver,
	notifications realtime.NotificationReader,
	router *realtime.Router,
	connConfig realtime.ConnConfig,
	notificationLimit int,
	allowedOrigin string,
	shutdownCtx context.Context,
	logger *slog.Logger,
	metrics realtime.Metrics,
) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = realtime.NopMetrics{}
	}
	return &WSHandler{
		registry:          registry,
		messages:          messages,
		notifications:     notifications,
		router:            router,
		connConfig:        connConfig,
		notificationLimit: notificationLimit,
		logger:            logger,
		metrics:           metrics,
		shutdownCtx:       shutdownCtx,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// Originヘッダーなし（ネイティブクライアント等）は許可
				return origin == "" || origin == allowedOrigin
			},
		},
	}
}

// Connect はWebSocketへのアップグレードとセッションの実行を行う。
// GET /ws/{user_id}
// ハンドラーは切断までブロックする。
func (h *WSHandler) Connect(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	if userID == "" {
		http.Error(w, "user_id required", http.StatusBadRequest)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgradeが失敗した場合、レスポンスは書き込み済み
		h.logger.Warn("websocket upgrade failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return
	}

	conn := realtime.NewPeerConn(ws, h.connConfig, h.logger)
	go conn.WritePump()

	session := realtime.NewSession(
		userID,
		conn,
		h.registry,
		h.messages,
		h.notifications,
		h.router,
		h.notificationLimit,
		h.logger,
		h.metrics,
	)
	session.Run(h.shutdownCtx)
}

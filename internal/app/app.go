// Package app はアプリケーションの初期化と起動モードの切り替えを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/sisi/sisichat/internal/chat"
	"github.com/sisi/sisichat/internal/config"
	"github.com/sisi/sisichat/internal/database"
	"github.com/sisi/sisichat/internal/friend"
	"github.com/sisi/sisichat/internal/handler"
	"github.com/sisi/sisichat/internal/logger"
	"github.com/sisi/sisichat/internal/metrics"
	"github.com/sisi/sisichat/internal/middleware"
	"github.com/sisi/sisichat/internal/news"
	"github.com/sisi/sisichat/internal/notification"
	"github.com/sisi/sisichat/internal/payment"
	"github.com/sisi/sisichat/internal/presence"
	"github.com/sisi/sisichat/internal/realtime"
	"github.com/sisi/sisichat/internal/repository"
	"github.com/sisi/sisichat/internal/security"
	"github.com/sisi/sisichat/internal/worker/cleanup"
	"github.com/sisi/sisichat/internal/worker/newsimport"
	"github.com/sisi/sisichat/internal/worker/status"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 設定読み込み前にログを使えるようにする
	logger.SetupDefault(w)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
// シャットダウンではWebSocketセッションのクローズ後、キュー済みの
// オフラインステータス書き込みの完了を待つ。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	chatRepo := repository.NewPostgresChatRepo(db)
	messageRepo := repository.NewPostgresMessageRepo(db)
	notificationRepo := repository.NewPostgresNotificationRepo(db)
	friendRepo := repository.NewPostgresFriendRepo(db)
	paymentRepo := repository.NewPostgresPaymentRepo(db)
	newsRepo := repository.NewPostgresNewsRepo(db)

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. リアルタイムコアの初期化
	statusWriter := status.NewWriter(userRepo, 256, slog.Default())
	presenceRegistry := presence.NewRegistry(statusWriter, slog.Default())

	chatService := chat.NewService(chatRepo, messageRepo, slog.Default())
	eventRouter := realtime.NewRouter(presenceRegistry, chatService, slog.Default(), collector)

	// 5. ドメインサービスの初期化
	notificationService := notification.NewService(notificationRepo, eventRouter, cfg.NotificationLimit, slog.Default())
	friendService := friend.NewService(friendRepo, userRepo, notificationRepo, notificationService, slog.Default())
	paymentService := payment.NewService(paymentRepo, userRepo, eventRouter, slog.Default())
	newsService := news.NewService(newsRepo, security.NewContentSanitizer(), slog.Default())

	// 6. WebSocketハンドラーの構築
	// shutdownCtxのキャンセルで全セッションが終了パスに入る
	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())
	defer shutdownCancel()

	wsHandler := handler.NewWSHandler(
		presenceRegistry,
		chatService,
		notificationService,
		eventRouter,
		realtime.ConnConfig{
			WriteTimeout:   cfg.WSWriteTimeout,
			PingInterval:   cfg.WSPingInterval,
			PongTimeout:    cfg.WSPongTimeout,
			SendBufferSize: cfg.WSSendBufferSize,
			MaxFrameSize:   cfg.WSMaxFrameSize,
		},
		cfg.NotificationLimit,
		cfg.CORSAllowedOrigin,
		shutdownCtx,
		slog.Default(),
		collector,
	)

	// 7. ルーターの構築
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.HistoryRate = rate.Limit(float64(cfg.RateLimitHistory) / 60.0)
	rateLimiterCfg.HistoryBurst = cfg.RateLimitHistory
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		SessionFinder:     sessionRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Logger:            slog.Default(),

		ChatService:         chatService,
		NotificationService: notificationService,
		FriendService:       friendService,
		PaymentService:      paymentService,
		NewsService:         newsService,

		WSHandler:      wsHandler,
		MetricsHandler: metrics.Handler(registry),
	}

	router := handler.NewRouter(deps)

	// 8. HTTPサーバーの起動
	// WebSocket接続はハイジャックされるためWriteTimeoutは設定しない
	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	// WebSocketセッションを終了させてからHTTPサーバーを閉じる
	shutdownCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	// キュー済みのオフラインステータス書き込みを完了させる
	drainCtx, drainCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer drainCancel()
	if err := statusWriter.Drain(drainCtx); err != nil {
		slog.Error("status writer drain incomplete", slog.String("error", err.Error()))
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// RSSニュースインポーターと通知クリーンアップジョブを実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. リポジトリの初期化
	notificationRepo := repository.NewPostgresNotificationRepo(db)
	newsRepo := repository.NewPostgresNewsRepo(db)

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. インポーターとクリーンアップジョブの初期化
	importer := newsimport.NewImporter(
		newsRepo,
		security.NewFetchGuard(),
		security.NewContentSanitizer(),
		cfg.NewsFeedURLs,
		cfg.NewsFetchTimeout,
		cfg.NewsFetchMaxSize,
		slog.Default(),
		collector,
	)

	cleanupJob := cleanup.NewCleanupJob(notificationRepo, slog.Default())
	cleanupJob.Retention = cfg.NotificationRetention

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("news_import_interval", cfg.NewsImportInterval),
		slog.Int("feed_count", len(cfg.NewsFeedURLs)),
	)

	// Prometheusスクレイプ用のメトリクスサーバー
	metricsServer := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           metrics.SetupMetricsRoute(registry),
		ReadHeaderTimeout: 15 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server listen error", slog.String("error", err.Error()))
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		metricsServer.Shutdown(shutdownCtx)
	}()

	// クリーンアップジョブをバックグラウンドで実行（起動直後に1回、その後は日次）
	go func() {
		if err := cleanupJob.Run(ctx); err != nil {
			slog.Error("cleanup job failed", slog.String("error", err.Error()))
		}
		cleanupJob.Start(ctx, 24*time.Hour)
	}()

	// ニュースインポーターをメインgoroutineで実行（ブロッキング）
	importer.Start(ctx, cfg.NewsImportInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}

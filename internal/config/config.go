// Package config は環境変数ベースのアプリケーション設定を提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string

	// Rate Limit（req/min/user）
	RateLimitGeneral int
	RateLimitHistory int

	// WebSocket
	WSWriteTimeout   time.Duration // 1フレーム送信の書き込みデッドライン
	WSPingInterval   time.Duration // サーバー発pingの間隔
	WSPongTimeout    time.Duration // pong待ちのデッドライン
	WSSendBufferSize int           // 受信者ごとの送信バッファ（フレーム数）
	WSMaxFrameSize   int64         // 受信フレームの最大バイト数

	// Notification
	NotificationLimit     int           // refresh時に返す最大件数
	NotificationRetention time.Duration // クリーンアップジョブの保持期間

	// News import
	NewsFeedURLs       []string      // 取り込み対象のRSS/AtomフィードURL
	NewsImportInterval time.Duration // 取り込みサイクルの間隔
	NewsFetchTimeout   time.Duration
	NewsFetchMaxSize   int64
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitHistory = getEnvInt("RATE_LIMIT_HISTORY", 30)
	cfg.WSWriteTimeout = getEnvDuration("WS_WRITE_TIMEOUT", 5*time.Second)
	cfg.WSPingInterval = getEnvDuration("WS_PING_INTERVAL", 30*time.Second)
	cfg.WSPongTimeout = getEnvDuration("WS_PONG_TIMEOUT", 60*time.Second)
	cfg.WSSendBufferSize = getEnvInt("WS_SEND_BUFFER_SIZE", 64)
	cfg.WSMaxFrameSize = getEnvInt64("WS_MAX_FRAME_SIZE", 65536)
	cfg.NotificationLimit = getEnvInt("NOTIFICATION_LIMIT", 50)
	cfg.NotificationRetention = getEnvDuration("NOTIFICATION_RETENTION", 90*24*time.Hour)
	cfg.NewsFeedURLs = getEnvStringList("NEWS_FEED_URLS")
	cfg.NewsImportInterval = getEnvDuration("NEWS_IMPORT_INTERVAL", 30*time.Minute)
	cfg.NewsFetchTimeout = getEnvDuration("NEWS_FETCH_TIMEOUT", 10*time.Second)
	cfg.NewsFetchMaxSize = getEnvInt64("NEWS_FETCH_MAX_SIZE", 5242880)

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// getEnvStringList はカンマ区切りの環境変数を文字列スライスとして読み込む。
// 未設定の場合はnilを返す。
func getEnvStringList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

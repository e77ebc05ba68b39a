package config

import (
	"testing"
	"time"
)

func TestLoad_MissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is not set")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/sisichat")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want 8080", cfg.ServerPort)
	}
	if cfg.CORSAllowedOrigin != "http://localhost:3000" {
		t.Errorf("CORSAllowedOrigin = %q, want http://localhost:3000", cfg.CORSAllowedOrigin)
	}
	if cfg.RateLimitGeneral != 120 {
		t.Errorf("RateLimitGeneral = %d, want 120", cfg.RateLimitGeneral)
	}
	if cfg.RateLimitHistory != 30 {
		t.Errorf("RateLimitHistory = %d, want 30", cfg.RateLimitHistory)
	}
	if cfg.WSWriteTimeout != 5*time.Second {
		t.Errorf("WSWriteTimeout = %v, want 5s", cfg.WSWriteTimeout)
	}
	if cfg.WSPingInterval != 30*time.Second {
		t.Errorf("WSPingInterval = %v, want 30s", cfg.WSPingInterval)
	}
	if cfg.WSSendBufferSize != 64 {
		t.Errorf("WSSendBufferSize = %d, want 64", cfg.WSSendBufferSize)
	}
	if cfg.WSMaxFrameSize != 65536 {
		t.Errorf("WSMaxFrameSize = %d, want 65536", cfg.WSMaxFrameSize)
	}
	if cfg.NotificationLimit != 50 {
		t.Errorf("NotificationLimit = %d, want 50", cfg.NotificationLimit)
	}
	if cfg.NotificationRetention != 90*24*time.Hour {
		t.Errorf("NotificationRetention = %v, want 2160h", cfg.NotificationRetention)
	}
	if cfg.NewsFeedURLs != nil {
		t.Errorf("NewsFeedURLs = %v, want nil", cfg.NewsFeedURLs)
	}
	if cfg.NewsImportInterval != 30*time.Minute {
		t.Errorf("NewsImportInterval = %v, want 30m", cfg.NewsImportInterval)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/sisichat")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("RATE_LIMIT_GENERAL", "240")
	t.Setenv("WS_PING_INTERVAL", "15s")
	t.Setenv("NEWS_FETCH_MAX_SIZE", "1048576")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.ServerPort != "9090" {
		t.Errorf("ServerPort = %q, want 9090", cfg.ServerPort)
	}
	if cfg.RateLimitGeneral != 240 {
		t.Errorf("RateLimitGeneral = %d, want 240", cfg.RateLimitGeneral)
	}
	if cfg.WSPingInterval != 15*time.Second {
		t.Errorf("WSPingInterval = %v, want 15s", cfg.WSPingInterval)
	}
	if cfg.NewsFetchMaxSize != 1048576 {
		t.Errorf("NewsFetchMaxSize = %d, want 1048576", cfg.NewsFetchMaxSize)
	}
}

// 不正な値はデフォルト値にフォールバックする
func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/sisichat")
	t.Setenv("RATE_LIMIT_GENERAL", "not-a-number")
	t.Setenv("WS_PONG_TIMEOUT", "not-a-duration")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.RateLimitGeneral != 120 {
		t.Errorf("RateLimitGeneral = %d, want 120", cfg.RateLimitGeneral)
	}
	if cfg.WSPongTimeout != 60*time.Second {
		t.Errorf("WSPongTimeout = %v, want 60s", cfg.WSPongTimeout)
	}
}

func TestLoad_FeedURLList(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/sisichat")
	t.Setenv("NEWS_FEED_URLS", "https://a.example.com/rss, https://b.example.com/rss ,,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"https://a.example.com/rss", "https://b.example.com/rss"}
	if len(cfg.NewsFeedURLs) != len(want) {
		t.Fatalf("NewsFeedURLs = %v, want %v", cfg.NewsFeedURLs, want)
	}
	for i, u := range want {
		if cfg.NewsFeedURLs[i] != u {
			t.Errorf("NewsFeedURLs[%d] = %q, want %q", i, cfg.NewsFeedURLs[i], u)
		}
	}
}

// Package newsimport はRSSフィードからニュース投稿を取り込むワーカーを提供する。
// 設定されたフィードURLを定期的にフェッチし、サニタイズ済みの記事を
// ニュースフィードへ冪等に保存する。
package newsimport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html"

	"github.com/sisi/sisichat/internal/model"
	"github.com/sisi/sisichat/internal/repository"
	"github.com/sisi/sisichat/internal/security"
)

// インポート記事の投稿者表示
const (
	importAuthorID   = "rss-importer"
	importAuthorName = "ニュースボット"
	importCategory   = "rss"
)

// 1フィードから1サイクルで取り込む最大記事数
const maxItemsPerFeed = 20

// Metrics はインポート結果の計測インターフェース。metrics.Collectorが実装する。
type Metrics interface {
	RSSPostsImported(count int)
	RSSImportFailed()
}

// NopMetrics は何も記録しないMetrics実装。
type NopMetrics struct{}

func (NopMetrics) RSSPostsImported(count int) {}
func (NopMetrics) RSSImportFailed()           {}

// Importer はRSSフィードのフェッチ・パース・保存を行う。
type Importer struct {
	news      repository.NewsRepository
	guard     security.FetchGuard
	sanitizer security.ContentSanitizer
	logger    *slog.Logger
	metrics   Metrics

	feedURLs     []string
	fetchTimeout time.Duration
	maxBodySize  int64
}

// NewImporter はImporterを生成する。
func NewImporter(
	news repository.NewsRepository,
	guard security.FetchGuard,
	sanitizer security.ContentSanitizer,
	feedURLs []string,
	fetchTimeout time.Duration,
	maxBodySize int64,
	logger *slog.Logger,
	metrics Metrics,
) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Importer{
		news:         news,
		guard:        guard,
		sanitizer:    sanitizer,
		logger:       logger,
		metrics:      metrics,
		feedURLs:     feedURLs,
		fetchTimeout: fetchTimeout,
		maxBodySize:  maxBodySize,
	}
}

// Start は指定間隔のティッカーでインポートサイクルを実行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (i *Importer) Start(ctx context.Context, interval time.Duration) {
	if len(i.feedURLs) == 0 {
		i.logger.Info("no news feeds configured, importer idle")
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	i.logger.Info("news importer started",
		slog.Duration("interval", interval),
		slog.Int("feed_count", len(i.feedURLs)),
	)

	// 起動直後に1回実行
	i.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			i.logger.Info("news importer stopped")
			return
		case <-ticker.C:
			i.RunOnce(ctx)
		}
	}
}

// RunOnce は設定された全フィードを並列にインポートする。
// フィードごとの失敗は記録のうえスキップし、他のフィードの処理を止めない。
func (i *Importer) RunOnce(ctx context.Context) {
	start := time.Now()

	var wg sync.WaitGroup
	for _, feedURL := range i.feedURLs {
		wg.Add(1)
		go func(url string) {
			defer wg.Done()
			if err := i.importFeed(ctx, url); err != nil {
				i.metrics.RSSImportFailed()
				i.logger.Error("failed to import news feed",
					slog.String("feed_url", url),
					slog.String("error", err.Error()),
				)
			}
		}(feedURL)
	}
	wg.Wait()

	i.logger.Info("news import cycle completed",
		slog.Int("feed_count", len(i.feedURLs)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
}

// importFeed は1つのフィードをフェッチして記事を保存する。
func (i *Importer) importFeed(ctx context.Context, feedURL string) error {
	if err := i.guard.ValidateURL(feedURL); err != nil {
		return fmt.Errorf("feed URL rejected: %w", err)
	}

	client := i.guard.NewSafeClient(i.fetchTimeout)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", "SisiChat/1.0 News Importer")
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, */*")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected HTTP status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, i.maxBodySize))
	if err != nil {
		return fmt.Errorf("failed to read body: %w", err)
	}

	parsed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return fmt.Errorf("parse failed: %w", err)
	}

	imported := 0
	for idx, item := range parsed.Items {
		if idx >= maxItemsPerFeed {
			break
		}
		if item == nil || item.Title == "" || item.Link == "" {
			continue
		}

		created, err := i.savePost(ctx, item)
		if err != nil {
			i.logger.Error("failed to save imported post",
				slog.String("feed_url", feedURL),
				slog.String("item_link", item.Link),
				slog.String("error", err.Error()),
			)
			continue
		}
		if created {
			imported++
		}
	}

	if imported > 0 {
		i.metrics.RSSPostsImported(imported)
	}
	i.logger.Info("news feed imported",
		slog.String("feed_url", feedURL),
		slog.Int("items_total", len(parsed.Items)),
		slog.Int("items_imported", imported),
	)
	return nil
}

// savePost は1記事を冪等に保存する。既存のsource_urlはスキップされる。
func (i *Importer) savePost(ctx context.Context, item *gofeed.Item) (bool, error) {
	rawContent := item.Content
	if rawContent == "" {
		rawContent = item.Description
	}

	createdAt := time.Now().UTC()
	if item.PublishedParsed != nil {
		createdAt = item.PublishedParsed.UTC()
	} else if item.UpdatedParsed != nil {
		createdAt = item.UpdatedParsed.UTC()
	}

	post := &model.NewsPost{
		ID:         uuid.New().String(),
		AuthorID:   importAuthorID,
		AuthorName: importAuthorName,
		Title:      item.Title,
		Content:    i.sanitizer.Sanitize(rawContent),
		ImageURL:   firstImageURL(rawContent),
		Category:   importCategory,
		SourceURL:  item.Link,
		CreatedAt:  createdAt,
	}

	return i.news.CreateImported(ctx, post)
}

// firstImageURL はHTML断片から最初のimg要素のhttps URLを抽出する。
// 見つからない場合は空文字列を返す。
func firstImageURL(fragment string) string {
	if fragment == "" {
		return ""
	}

	tokenizer := html.NewTokenizer(strings.NewReader(fragment))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			if token.Data != "img" {
				continue
			}
			for _, attr := range token.Attr {
				if attr.Key == "src" && strings.HasPrefix(attr.Val, "https://") {
					return attr.Val
				}
			}
		}
	}
}

package newsimport

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sisi/sisichat/internal/model"
	"github.com/sisi/sisichat/internal/security"
)

// --- モック定義 ---

type mockNewsRepo struct {
	mu       sync.Mutex
	imported []*model.NewsPost
	existing map[string]bool // source_url -> 既存
	err      error
}

func (m *mockNewsRepo) Create(ctx context.Context, post *model.NewsPost) error { return nil }

func (m *mockNewsRepo) CreateImported(ctx context.Context, post *model.NewsPost) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if m.existing[post.SourceURL] {
		return false, nil
	}
	m.imported = append(m.imported, post)
	return true, nil
}

func (m *mockNewsRepo) List(ctx context.Context, limit int) ([]*model.NewsPost, error) {
	return nil, nil
}

func (m *mockNewsRepo) importedPosts() []*model.NewsPost {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*model.NewsPost(nil), m.imported...)
}

// permissiveGuard はテスト用にhttptestサーバーへのアクセスを許可するガード。
type permissiveGuard struct {
	validateErr error
}

func (g *permissiveGuard) NewSafeClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func (g *permissiveGuard) ValidateURL(rawURL string) error {
	return g.validateErr
}

type countingMetrics struct {
	mu       sync.Mutex
	imported int
	failed   int
}

func (m *countingMetrics) RSSPostsImported(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.imported += count
}

func (m *countingMetrics) RSSImportFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed++
}

const testFeedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>テストフィード</title>
    <link>https://news.example.com/</link>
    <item>
      <title>記事1</title>
      <link>https://news.example.com/articles/1</link>
      <description><![CDATA[<p>本文1</p><img src="https://news.example.com/1.jpg" alt=""><script>alert(1)</script>]]></description>
      <pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate>
    </item>
    <item>
      <title>記事2</title>
      <link>https://news.example.com/articles/2</link>
      <description>本文2</description>
    </item>
    <item>
      <title></title>
      <link>https://news.example.com/articles/3</link>
      <description>タイトルなしはスキップされる</description>
    </item>
  </channel>
</rss>`

func newTestImporter(repo *mockNewsRepo, guard security.FetchGuard, feedURLs []string, m Metrics) *Importer {
	return NewImporter(repo, guard, security.NewContentSanitizer(), feedURLs, 5*time.Second, 1<<20, nil, m)
}

// --- テスト ---

func TestImportFeed_SavesSanitizedPosts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, testFeedXML)
	}))
	defer server.Close()

	repo := &mockNewsRepo{}
	metrics := &countingMetrics{}
	importer := newTestImporter(repo, &permissiveGuard{}, []string{server.URL}, metrics)

	importer.RunOnce(context.Background())

	posts := repo.importedPosts()
	if len(posts) != 2 {
		t.Fatalf("imported = %d, want 2 (empty-title item skipped)", len(posts))
	}

	first := posts[0]
	if first.Title != "記事1" {
		t.Errorf("title = %q, want 記事1", first.Title)
	}
	if first.AuthorID != importAuthorID || first.Category != importCategory {
		t.Errorf("author/category = %q/%q, want %q/%q", first.AuthorID, first.Category, importAuthorID, importCategory)
	}
	if first.SourceURL != "https://news.example.com/articles/1" {
		t.Errorf("source_url = %q", first.SourceURL)
	}
	if first.ImageURL != "https://news.example.com/1.jpg" {
		t.Errorf("image_url = %q, want https://news.example.com/1.jpg", first.ImageURL)
	}
	// scriptタグは除去される
	if strings.Contains(first.Content, "<script>") {
		t.Errorf("content = %q, script must be removed", first.Content)
	}
	if !strings.Contains(first.Content, "<p>本文1</p>") {
		t.Errorf("content = %q, allowed tags should survive", first.Content)
	}
	// 公開日時が保持される
	if first.CreatedAt.Year() != 2006 {
		t.Errorf("created_at = %v, want published date", first.CreatedAt)
	}

	if metrics.imported != 2 {
		t.Errorf("metrics imported = %d, want 2", metrics.imported)
	}
	if metrics.failed != 0 {
		t.Errorf("metrics failed = %d, want 0", metrics.failed)
	}
}

// 既存のsource_urlはスキップされ、メトリクスに計上されない
func TestImportFeed_IdempotentSkip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, testFeedXML)
	}))
	defer server.Close()

	repo := &mockNewsRepo{existing: map[string]bool{
		"https://news.example.com/articles/1": true,
		"https://news.example.com/articles/2": true,
	}}
	metrics := &countingMetrics{}
	importer := newTestImporter(repo, &permissiveGuard{}, []string{server.URL}, metrics)

	importer.RunOnce(context.Background())

	if got := len(repo.importedPosts()); got != 0 {
		t.Errorf("imported = %d, want 0", got)
	}
	if metrics.imported != 0 {
		t.Errorf("metrics imported = %d, want 0", metrics.imported)
	}
}

// URL検証に失敗したフィードは失敗として記録される
func TestImportFeed_RejectedURL(t *testing.T) {
	repo := &mockNewsRepo{}
	metrics := &countingMetrics{}
	guard := &permissiveGuard{validateErr: fmt.Errorf("blocked address")}
	importer := newTestImporter(repo, guard, []string{"http://169.254.169.254/feed"}, metrics)

	importer.RunOnce(context.Background())

	if metrics.failed != 1 {
		t.Errorf("metrics failed = %d, want 1", metrics.failed)
	}
	if got := len(repo.importedPosts()); got != 0 {
		t.Errorf("imported = %d, want 0", got)
	}
}

func TestImportFeed_Non200Status(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	metrics := &countingMetrics{}
	importer := newTestImporter(&mockNewsRepo{}, &permissiveGuard{}, []string{server.URL}, metrics)

	importer.RunOnce(context.Background())

	if metrics.failed != 1 {
		t.Errorf("metrics failed = %d, want 1", metrics.failed)
	}
}

// 1フィードの失敗は他のフィードの取り込みを止めない
func TestRunOnce_FeedFailureIsIsolated(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, testFeedXML)
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	repo := &mockNewsRepo{}
	metrics := &countingMetrics{}
	importer := newTestImporter(repo, &permissiveGuard{}, []string{bad.URL, good.URL}, metrics)

	importer.RunOnce(context.Background())

	if got := len(repo.importedPosts()); got != 2 {
		t.Errorf("imported = %d, want 2", got)
	}
	if metrics.failed != 1 {
		t.Errorf("metrics failed = %d, want 1", metrics.failed)
	}
}

func TestFirstImageURL(t *testing.T) {
	tests := []struct {
		name     string
		fragment string
		want     string
	}{
		{"empty", "", ""},
		{"no image", "<p>text</p>", ""},
		{"https image", `<p><img src="https://example.com/a.jpg"></p>`, "https://example.com/a.jpg"},
		{"http image rejected", `<img src="http://example.com/a.jpg">`, ""},
		{"first of multiple", `<img src="https://example.com/1.jpg"><img src="https://example.com/2.jpg">`, "https://example.com/1.jpg"},
		{"self closing", `<img src="https://example.com/a.jpg" />`, "https://example.com/a.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := firstImageURL(tt.fragment); got != tt.want {
				t.Errorf("firstImageURL(%q) = %q, want %q", tt.fragment, got, tt.want)
			}
		})
	}
}

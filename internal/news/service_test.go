package news

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sisi/sisichat/internal/model"
	"github.com/sisi/sisichat/internal/security"
)

// --- モック定義 ---

type mockNewsRepo struct {
	createFn func(ctx context.Context, post *model.NewsPost) error
	listFn   func(ctx context.Context, limit int) ([]*model.NewsPost, error)
}

func (m *mockNewsRepo) Create(ctx context.Context, post *model.NewsPost) error {
	if m.createFn != nil {
		return m.createFn(ctx, post)
	}
	return nil
}

func (m *mockNewsRepo) CreateImported(ctx context.Context, post *model.NewsPost) (bool, error) {
	return true, nil
}

func (m *mockNewsRepo) List(ctx context.Context, limit int) ([]*model.NewsPost, error) {
	if m.listFn != nil {
		return m.listFn(ctx, limit)
	}
	return nil, nil
}

// --- テスト ---

func TestCreatePost_SanitizesContent(t *testing.T) {
	var created *model.NewsPost
	repo := &mockNewsRepo{
		createFn: func(ctx context.Context, post *model.NewsPost) error {
			created = post
			return nil
		},
	}
	svc := NewService(repo, security.NewContentSanitizer(), nil)

	post, err := svc.CreatePost(context.Background(), "alice", "アリス",
		"今日のニュース",
		`<p>本文</p><script>alert("xss")</script>`,
		"", "general")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if created == nil {
		t.Fatal("expected post to be persisted")
	}
	if strings.Contains(post.Content, "<script>") {
		t.Errorf("content = %q, script tag should be removed", post.Content)
	}
	if !strings.Contains(post.Content, "<p>本文</p>") {
		t.Errorf("content = %q, allowed tags should survive", post.Content)
	}
	if post.ID == "" {
		t.Error("expected generated post ID")
	}
	if post.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}
}

func TestCreatePost_TitleRequired(t *testing.T) {
	svc := NewService(&mockNewsRepo{}, security.NewContentSanitizer(), nil)

	_, err := svc.CreatePost(context.Background(), "alice", "アリス", "", "本文", "", "")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeInvalidRequest {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeInvalidRequest)
	}
}

func TestCreatePost_CreateFailureReturnsError(t *testing.T) {
	repo := &mockNewsRepo{
		createFn: func(ctx context.Context, post *model.NewsPost) error {
			return errors.New("insert failed")
		},
	}
	svc := NewService(repo, security.NewContentSanitizer(), nil)

	if _, err := svc.CreatePost(context.Background(), "alice", "アリス", "タイトル", "本文", "", ""); err == nil {
		t.Fatal("expected error")
	}
}

func TestList_PassesLimit(t *testing.T) {
	var gotLimit int
	repo := &mockNewsRepo{
		listFn: func(ctx context.Context, limit int) ([]*model.NewsPost, error) {
			gotLimit = limit
			return []*model.NewsPost{{ID: "post-1"}}, nil
		},
	}
	svc := NewService(repo, security.NewContentSanitizer(), nil)

	posts, err := svc.List(context.Background(), 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotLimit != 20 {
		t.Errorf("limit = %d, want 20", gotLimit)
	}
	if len(posts) != 1 {
		t.Errorf("posts = %d, want 1", len(posts))
	}
}

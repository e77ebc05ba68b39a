// Package news はニュースフィード投稿のアプリケーションサービスを提供する。
package news

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sisi/sisichat/internal/model"
	"github.com/sisi/sisichat/internal/repository"
	"github.com/sisi/sisichat/internal/security"
)

// Service はユーザー投稿の作成とフィード一覧を担う。
// RSSインポート由来の投稿はworker/newsimportが同じリポジトリへ書き込む。
type Service struct {
	news      repository.NewsRepository
	sanitizer security.ContentSanitizer
	logger    *slog.Logger
}

// NewService はServiceを生成する。
func NewService(news repository.NewsRepository, sanitizer security.ContentSanitizer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		news:      news,
		sanitizer: sanitizer,
		logger:    logger,
	}
}

// CreatePost はユーザー投稿を作成する。本文は保存前にサニタイズされる。
func (s *Service) CreatePost(ctx context.Context, authorID, authorName, title, content, imageURL, category string) (*model.NewsPost, error) {
	if title == "" {
		return nil, model.NewInvalidRequestError("タイトルは必須です")
	}

	post := &model.NewsPost{
		ID:         uuid.New().String(),
		AuthorID:   authorID,
		AuthorName: authorName,
		Title:      title,
		Content:    s.sanitizer.Sanitize(content),
		ImageURL:   imageURL,
		Category:   category,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.news.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to create news post: %w", err)
	}

	s.logger.Info("news post created",
		slog.String("post_id", post.ID),
		slog.String("author_id", authorID),
	)
	return post, nil
}

// List はニュース投稿を新しい順で最大limit件返す。
func (s *Service) List(ctx context.Context, limit int) ([]*model.NewsPost, error) {
	posts, err := s.news.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list news posts: %w", err)
	}
	return posts, nil
}

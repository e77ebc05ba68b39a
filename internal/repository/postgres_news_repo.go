package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sisi/sisichat/internal/model"
)

// PostgresNewsRepo はPostgreSQLを使用したニュース投稿リポジトリ。
type PostgresNewsRepo struct {
	db *sql.DB
}

// NewPostgresNewsRepo はPostgresNewsRepoを生成する。
func NewPostgresNewsRepo(db *sql.DB) *PostgresNewsRepo {
	return &PostgresNewsRepo{db: db}
}

// Create はニュース投稿を作成する。
func (r *PostgresNewsRepo) Create(ctx context.Context, post *model.NewsPost) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO news_posts (id, author_id, author_name, title, content, image_url, category, source_url, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		post.ID, post.AuthorID, post.AuthorName, post.Title, post.Content,
		post.ImageURL, post.Category, post.SourceURL, post.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert news post: %w", err)
	}
	return nil
}

// CreateImported はRSSインポート由来の投稿を冪等に作成する。
// 同一source_urlの投稿が既に存在する場合はスキップし、falseを返す。
func (r *PostgresNewsRepo) CreateImported(ctx context.Context, post *model.NewsPost) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO news_posts (id, author_id, author_name, title, content, image_url, category, source_url, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (source_url) WHERE source_url <> '' DO NOTHING`,
		post.ID, post.AuthorID, post.AuthorName, post.Title, post.Content,
		post.ImageURL, post.Category, post.SourceURL, post.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert imported news post: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// List はニュース投稿をcreated_at降順で最大limit件返す。
func (r *PostgresNewsRepo) List(ctx context.Context, limit int) ([]*model.NewsPost, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, author_id, author_name, title, content, image_url, category, source_url, created_at
		 FROM news_posts
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list news posts: %w", err)
	}
	defer rows.Close()

	var posts []*model.NewsPost
	for rows.Next() {
		post := &model.NewsPost{}
		if err := rows.Scan(&post.ID, &post.AuthorID, &post.AuthorName, &post.Title,
			&post.Content, &post.ImageURL, &post.Category, &post.SourceURL, &post.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan news post row: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate news post rows: %w", err)
	}

	return posts, nil
}

// compile-time interface check
var _ NewsRepository = (*PostgresNewsRepo)(nil)

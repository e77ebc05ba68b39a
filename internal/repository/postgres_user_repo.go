package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sisi/sisichat/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, display_name, email, avatar_url, status, last_seen, created_at
		 FROM users WHERE id = $1`,
		id,
	).Scan(&user.ID, &user.Username, &user.DisplayName, &user.Email,
		&user.AvatarURL, &user.Status, &user.LastSeen, &user.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	return user, nil
}

// FindByUsername はユーザー名でユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	user := &model.User{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, display_name, email, avatar_url, status, last_seen, created_at
		 FROM users WHERE username = $1`,
		username,
	).Scan(&user.ID, &user.Username, &user.DisplayName, &user.Email,
		&user.AvatarURL, &user.Status, &user.LastSeen, &user.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}

	return user, nil
}

// UpdateStatus はユーザーのオンライン状態とlast_seenを更新する。
// 対象行が存在しない場合も成功として扱う（切断時の冪等な書き込みを許容する）。
func (r *PostgresUserRepo) UpdateStatus(ctx context.Context, userID string, status model.UserStatus, lastSeen time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET status = $2, last_seen = $3 WHERE id = $1`,
		userID, status, lastSeen,
	)
	if err != nil {
		return fmt.Errorf("failed to update user status: %w", err)
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)

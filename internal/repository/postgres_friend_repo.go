package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sisi/sisichat/internal/model"
)

// PostgresFriendRepo はPostgreSQLを使用した友達関係リポジトリ。
type PostgresFriendRepo struct {
	db *sql.DB
}

// NewPostgresFriendRepo はPostgresFriendRepoを生成する。
func NewPostgresFriendRepo(db *sql.DB) *PostgresFriendRepo {
	return &PostgresFriendRepo{db: db}
}

// Create は友達リクエストを作成する。
func (r *PostgresFriendRepo) Create(ctx context.Context, f *model.Friend) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO friends (id, user_id, friend_id, status, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		f.ID, f.UserID, f.FriendID, f.Status, f.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert friend request: %w", err)
	}
	return nil
}

// FindBetween は2ユーザー間の関係（方向問わず）を取得する。見つからない場合はnilを返す。
func (r *PostgresFriendRepo) FindBetween(ctx context.Context, userA, userB string) (*model.Friend, error) {
	f := &model.Friend{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, friend_id, status, created_at
		 FROM friends
		 WHERE (user_id = $1 AND friend_id = $2) OR (user_id = $2 AND friend_id = $1)`,
		userA, userB,
	).Scan(&f.ID, &f.UserID, &f.FriendID, &f.Status, &f.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find friendship: %w", err)
	}

	return f, nil
}

// FindPending はfromUserからtoUserへの保留中リクエストを取得する。見つからない場合はnilを返す。
func (r *PostgresFriendRepo) FindPending(ctx context.Context, fromUser, toUser string) (*model.Friend, error) {
	f := &model.Friend{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, friend_id, status, created_at
		 FROM friends
		 WHERE user_id = $1 AND friend_id = $2 AND status = 'pending'`,
		fromUser, toUser,
	).Scan(&f.ID, &f.UserID, &f.FriendID, &f.Status, &f.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find pending friend request: %w", err)
	}

	return f, nil
}

// Accept は指定リクエストをacceptedに更新する。
func (r *PostgresFriendRepo) Accept(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE friends SET status = 'accepted' WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to accept friend request: %w", err)
	}
	return nil
}

// Delete は指定リクエストを削除する。
func (r *PostgresFriendRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM friends WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete friend request: %w", err)
	}
	return nil
}

// ListAcceptedIDs は指定ユーザーと承認済み関係にある相手のユーザーID一覧を返す。
func (r *PostgresFriendRepo) ListAcceptedIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT CASE WHEN user_id = $1 THEN friend_id ELSE user_id END
		 FROM friends
		 WHERE (user_id = $1 OR friend_id = $1) AND status = 'accepted'`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list accepted friends: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan friend ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate friend rows: %w", err)
	}

	return ids, nil
}

// compile-time interface check
var _ FriendRepository = (*PostgresFriendRepo)(nil)

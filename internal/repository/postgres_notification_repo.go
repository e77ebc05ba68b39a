package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sisi/sisichat/internal/model"
)

// PostgresNotificationRepo はPostgreSQLを使用した通知リポジトリ。
type PostgresNotificationRepo struct {
	db *sql.DB
}

// NewPostgresNotificationRepo はPostgresNotificationRepoを生成する。
func NewPostgresNotificationRepo(db *sql.DB) *PostgresNotificationRepo {
	return &PostgresNotificationRepo{db: db}
}

// Create は通知を作成する。payloadはJSONBとして保存する。
func (r *PostgresNotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	payload, err := marshalJSONB(n.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal notification payload: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO notifications (id, user_id, type, title, body, read, created_at, payload)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		n.ID, n.UserID, n.Type, n.Title, n.Body, n.Read, n.CreatedAt, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// ListByUser は指定ユーザーの通知をcreated_at降順で最大limit件返す。
func (r *PostgresNotificationRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*model.Notification, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, type, title, body, read, created_at, payload
		 FROM notifications WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications by user: %w", err)
	}
	defer rows.Close()

	var notifications []*model.Notification
	for rows.Next() {
		n := &model.Notification{}
		var payload []byte
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Body,
			&n.Read, &n.CreatedAt, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan notification row: %w", err)
		}
		if err := unmarshalJSONB(payload, &n.Payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal notification payload: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notification rows: %w", err)
	}

	return notifications, nil
}

// MarkRead は指定通知の既読フラグを立てる。
// 対象が存在しない、または他ユーザーの通知の場合はfalseを返す。
func (r *PostgresNotificationRepo) MarkRead(ctx context.Context, id, userID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark notification read: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// DeleteFriendRequests は指定ユーザー宛てのfriend_request通知のうち、
// 送信元がfromUserIDのものを削除する。payloadのfrom_user_idで照合する。
func (r *PostgresNotificationRepo) DeleteFriendRequests(ctx context.Context, userID, fromUserID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM notifications
		 WHERE user_id = $1 AND type = 'friend_request' AND payload->>'from_user_id' = $2`,
		userID, fromUserID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete friend request notifications: %w", err)
	}
	return nil
}

// DeleteOlderThan はcutoffより古い通知を削除し、削除件数を返す。
func (r *PostgresNotificationRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE created_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old notifications: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

// compile-time interface check
var _ NotificationRepository = (*PostgresNotificationRepo)(nil)

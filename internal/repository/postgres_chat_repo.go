package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/sisi/sisichat/internal/model"
)

// PostgresChatRepo はPostgreSQLを使用したチャットリポジトリ。
// 参加者集合はtext[]カラムとして保持し、pq.Arrayで読み書きする。
type PostgresChatRepo struct {
	db *sql.DB
}

// NewPostgresChatRepo はPostgresChatRepoを生成する。
func NewPostgresChatRepo(db *sql.DB) *PostgresChatRepo {
	return &PostgresChatRepo{db: db}
}

// FindByID は指定IDのチャットを取得する。見つからない場合はnilを返す。
func (r *PostgresChatRepo) FindByID(ctx context.Context, id string) (*model.Chat, error) {
	chat := &model.Chat{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, chat_type, participants, created_by, last_message, last_activity, created_at
		 FROM chats WHERE id = $1`,
		id,
	).Scan(&chat.ID, &chat.Name, &chat.ChatType, pq.Array(&chat.Participants),
		&chat.CreatedBy, &chat.LastMessage, &chat.LastActivity, &chat.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find chat by ID: %w", err)
	}

	return chat, nil
}

// Create はチャットを作成する。
func (r *PostgresChatRepo) Create(ctx context.Context, chat *model.Chat) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO chats (id, name, chat_type, participants, created_by, last_message, last_activity, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		chat.ID, chat.Name, chat.ChatType, pq.Array(chat.Participants),
		chat.CreatedBy, chat.LastMessage, chat.LastActivity, chat.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert chat: %w", err)
	}
	return nil
}

// ListByParticipant は指定ユーザーが参加するチャット一覧をlast_activity降順で返す。
func (r *PostgresChatRepo) ListByParticipant(ctx context.Context, userID string) ([]*model.Chat, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, chat_type, participants, created_by, last_message, last_activity, created_at
		 FROM chats WHERE $1 = ANY(participants)
		 ORDER BY last_activity DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats by participant: %w", err)
	}
	defer rows.Close()

	var chats []*model.Chat
	for rows.Next() {
		chat := &model.Chat{}
		if err := rows.Scan(&chat.ID, &chat.Name, &chat.ChatType, pq.Array(&chat.Participants),
			&chat.CreatedBy, &chat.LastMessage, &chat.LastActivity, &chat.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat row: %w", err)
		}
		chats = append(chats, chat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chat rows: %w", err)
	}

	return chats, nil
}

// UpdateLastMessage はチャットのlast_messageとlast_activityを単一UPDATEで更新する。
func (r *PostgresChatRepo) UpdateLastMessage(ctx context.Context, chatID, lastMessage string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE chats SET last_message = $2, last_activity = $3 WHERE id = $1`,
		chatID, lastMessage, at,
	)
	if err != nil {
		return fmt.Errorf("failed to update chat last message: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ChatRepository = (*PostgresChatRepo)(nil)

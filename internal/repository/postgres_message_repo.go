package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/sisi/sisichat/internal/model"
)

// PostgresMessageRepo はPostgreSQLを使用したメッセージリポジトリ。追記専用。
type PostgresMessageRepo struct {
	db *sql.DB
}

// NewPostgresMessageRepo はPostgresMessageRepoを生成する。
func NewPostgresMessageRepo(db *sql.DB) *PostgresMessageRepo {
	return &PostgresMessageRepo{db: db}
}

// Create はメッセージを作成する。metadataはJSONBとして保存する。
func (r *PostgresMessageRepo) Create(ctx context.Context, msg *model.Message) error {
	metadata, err := marshalJSONB(msg.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal message metadata: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO messages (id, chat_id, sender_id, sender_name, content, message_type, timestamp, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		msg.ID, msg.ChatID, msg.SenderID, msg.SenderName,
		msg.Content, msg.MessageType, msg.Timestamp, metadata,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// ListByChat は指定チャットのメッセージをtimestamp昇順（同値は挿入順）で返す。
func (r *PostgresMessageRepo) ListByChat(ctx context.Context, chatID string, limit int) ([]*model.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, chat_id, sender_id, sender_name, content, message_type, timestamp, metadata
		 FROM messages WHERE chat_id = $1
		 ORDER BY timestamp ASC, seq ASC
		 LIMIT $2`,
		chatID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages by chat: %w", err)
	}
	defer rows.Close()

	var messages []*model.Message
	for rows.Next() {
		msg := &model.Message{}
		var metadata []byte
		if err := rows.Scan(&msg.ID, &msg.ChatID, &msg.SenderID, &msg.SenderName,
			&msg.Content, &msg.MessageType, &msg.Timestamp, &metadata); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		if err := unmarshalJSONB(metadata, &msg.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message metadata: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate message rows: %w", err)
	}

	return messages, nil
}

// marshalJSONB はmapをJSONBカラム用のバイト列に変換する。nilはNULLとして保存する。
func marshalJSONB(m map[string]any) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// unmarshalJSONB はJSONBカラムのバイト列をmapに復元する。NULLはnilのままにする。
func unmarshalJSONB(data []byte, dst *map[string]any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dst)
}

// compile-time interface check
var _ MessageRepository = (*PostgresMessageRepo)(nil)

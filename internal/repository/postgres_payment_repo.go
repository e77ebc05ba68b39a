package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sisi/sisichat/internal/model"
)

// PostgresPaymentRepo はPostgreSQLを使用した送金リクエストリポジトリ。
type PostgresPaymentRepo struct {
	db *sql.DB
}

// NewPostgresPaymentRepo はPostgresPaymentRepoを生成する。
func NewPostgresPaymentRepo(db *sql.DB) *PostgresPaymentRepo {
	return &PostgresPaymentRepo{db: db}
}

// Create は送金リクエストを作成する。
func (r *PostgresPaymentRepo) Create(ctx context.Context, p *model.PaymentRequest) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payments (id, from_user, to_user, amount, description, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.FromUser, p.ToUser, p.Amount, p.Description, p.Status, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment request: %w", err)
	}
	return nil
}

// ListByUser は指定ユーザーが送信または受信した送金リクエストをcreated_at降順で返す。
func (r *PostgresPaymentRepo) ListByUser(ctx context.Context, userID string) ([]*model.PaymentRequest, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, from_user, to_user, amount, description, status, created_at
		 FROM payments
		 WHERE from_user = $1 OR to_user = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments by user: %w", err)
	}
	defer rows.Close()

	var payments []*model.PaymentRequest
	for rows.Next() {
		p := &model.PaymentRequest{}
		if err := rows.Scan(&p.ID, &p.FromUser, &p.ToUser, &p.Amount,
			&p.Description, &p.Status, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment row: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payment rows: %w", err)
	}

	return payments, nil
}

// compile-time interface check
var _ PaymentRepository = (*PostgresPaymentRepo)(nil)

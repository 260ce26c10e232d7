package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/linkup/internal/model"
)

// PostgresConnectionRepo はPostgreSQLを使用したつながりリクエストリポジトリ。
type PostgresConnectionRepo struct {
	db *sql.DB
}

// NewPostgresConnectionRepo はPostgresConnectionRepoを生成する。
func NewPostgresConnectionRepo(db *sql.DB) *PostgresConnectionRepo {
	return &PostgresConnectionRepo{db: db}
}

// Create はリクエストを作成する。(sender_id, recipient_id) の一意制約により
// 同一ペアへの再送は一意制約違反エラーになる。
func (r *PostgresConnectionRepo) Create(ctx context.Context, req *model.ConnectionRequest) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO connection_requests (id, sender_id, recipient_id, accepted, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		req.ID, req.SenderID, req.RecipientID, req.Accepted, req.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("failed to insert connection request: %w", err)
	}
	return nil
}

// FindByID は指定IDのリクエストを取得する。見つからない場合はnilを返す。
func (r *PostgresConnectionRepo) FindByID(ctx context.Context, id string) (*model.ConnectionRequest, error) {
	req := &model.ConnectionRequest{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, sender_id, recipient_id, accepted, created_at
		 FROM connection_requests WHERE id = $1`,
		id,
	).Scan(&req.ID, &req.SenderID, &req.RecipientID, &req.Accepted, &req.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find connection request: %w", err)
	}
	return req, nil
}

// FindByPair は順序付きペアでリクエストを検索する。見つからない場合はnilを返す。
// 逆方向（B→A）のリクエストには一致しない。
func (r *PostgresConnectionRepo) FindByPair(ctx context.Context, senderID, recipientID string) (*model.ConnectionRequest, error) {
	req := &model.ConnectionRequest{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, sender_id, recipient_id, accepted, created_at
		 FROM connection_requests
		 WHERE sender_id = $1 AND recipient_id = $2`,
		senderID, recipientID,
	).Scan(&req.ID, &req.SenderID, &req.RecipientID, &req.Accepted, &req.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find connection request by pair: %w", err)
	}
	return req, nil
}

// ListBySender は指定ユーザーが送信したリクエストを受信者投影付きで返す。
func (r *PostgresConnectionRepo) ListBySender(ctx context.Context, senderID string) ([]model.ConnectionWithUser, error) {
	return r.listJoined(ctx,
		`SELECT cr.id, cr.sender_id, cr.recipient_id, cr.accepted, cr.created_at,
		        u.id, u.name, u.username, u.email, u.profile_picture
		 FROM connection_requests cr
		 JOIN users u ON u.id = cr.recipient_id
		 WHERE cr.sender_id = $1
		 ORDER BY cr.created_at DESC`,
		senderID,
	)
}

// ListByRecipient は指定ユーザーが受信したリクエストを送信者投影付きで返す。
func (r *PostgresConnectionRepo) ListByRecipient(ctx context.Context, recipientID string) ([]model.ConnectionWithUser, error) {
	return r.listJoined(ctx,
		`SELECT cr.id, cr.sender_id, cr.recipient_id, cr.accepted, cr.created_at,
		        u.id, u.name, u.username, u.email, u.profile_picture
		 FROM connection_requests cr
		 JOIN users u ON u.id = cr.sender_id
		 WHERE cr.recipient_id = $1
		 ORDER BY cr.created_at DESC`,
		recipientID,
	)
}

func (r *PostgresConnectionRepo) listJoined(ctx context.Context, query, userID string) ([]model.ConnectionWithUser, error) {
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list connection requests: %w", err)
	}
	defer rows.Close()

	var results []model.ConnectionWithUser
	for rows.Next() {
		var c model.ConnectionWithUser
		if err := rows.Scan(
			&c.ID, &c.SenderID, &c.RecipientID, &c.Accepted, &c.CreatedAt,
			&c.User.ID, &c.User.Name, &c.User.Username, &c.User.Email, &c.User.ProfilePicture,
		); err != nil {
			return nil, fmt.Errorf("failed to scan connection row: %w", err)
		}
		results = append(results, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate connection rows: %w", err)
	}
	return results, nil
}

// UpdateDecision は決定（承認/拒否）を永続化する。
func (r *PostgresConnectionRepo) UpdateDecision(ctx context.Context, id string, accepted bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE connection_requests SET accepted = $2 WHERE id = $1`,
		id, accepted,
	)
	if err != nil {
		return fmt.Errorf("failed to update connection decision: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("connection request not found: %s", id)
	}
	return nil
}

// compile-time interface check
var _ ConnectionRepository = (*PostgresConnectionRepo)(nil)

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/linkup/internal/model"
)

// PostgresPostRepo はPostgreSQLを使用した投稿リポジトリ。
// いいねカウンタ（posts.likes）といいねユーザー集合（post_likes）の
// 同期はToggleLikeの単一トランザクションで保証する。
type PostgresPostRepo struct {
	db *sql.DB
}

// NewPostgresPostRepo はPostgresPostRepoを生成する。
func NewPostgresPostRepo(db *sql.DB) *PostgresPostRepo {
	return &PostgresPostRepo{db: db}
}

// Create は投稿を作成する。
func (r *PostgresPostRepo) Create(ctx context.Context, post *model.Post) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO posts (id, user_id, body, media, file_type, likes, created_at)
		 VALUES ($1, $2, $3, $4, $5, 0, $6)`,
		post.ID, post.UserID, post.Body, post.Media, post.FileType, post.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}
	return nil
}

// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
func (r *PostgresPostRepo) FindByID(ctx context.Context, id string) (*model.Post, error) {
	post := &model.Post{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, body, media, file_type, likes, created_at
		 FROM posts WHERE id = $1`,
		id,
	).Scan(&post.ID, &post.UserID, &post.Body, &post.Media, &post.FileType,
		&post.Likes, &post.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	return post, nil
}

// ListWithOwner は全投稿を作成時刻降順で返す。
// hasLikedは閲覧者のいいね集合への所属として読み取り時に導出する。
// viewerIDが空の場合はNULLを束縛し、EXISTSは常にfalseになる。
func (r *PostgresPostRepo) ListWithOwner(ctx context.Context, viewerID string) ([]model.PostWithOwner, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT p.id, p.user_id, p.body, p.media, p.file_type, p.likes, p.created_at,
		        u.id, u.name, u.username, u.email, u.profile_picture,
		        EXISTS (
		            SELECT 1 FROM post_likes pl
		            WHERE pl.post_id = p.id AND pl.user_id = $1
		        )
		 FROM posts p
		 JOIN users u ON u.id = p.user_id
		 ORDER BY p.created_at DESC, p.id DESC`,
		nullableID(viewerID),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	var results []model.PostWithOwner
	for rows.Next() {
		var p model.PostWithOwner
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.Body, &p.Media, &p.FileType, &p.Likes, &p.CreatedAt,
			&p.Owner.ID, &p.Owner.Name, &p.Owner.Username, &p.Owner.Email, &p.Owner.ProfilePicture,
			&p.HasLiked,
		); err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}
		results = append(results, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate post rows: %w", err)
	}
	return results, nil
}

// Delete は指定IDの投稿を削除する。コメントといいねはCASCADE削除される。
func (r *PostgresPostRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM posts WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("post not found: %s", id)
	}
	return nil
}

// ToggleLike はいいね状態を単一トランザクションで反転する。
// post_likesの主キーが同一閲覧者の並行トグルを直列化し、
// 集合への追加/削除とカウンタの±1が必ず対で起きる。
func (r *PostgresPostRepo) ToggleLike(ctx context.Context, postID, userID string, now time.Time) (*model.LikeStatus, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO post_likes (post_id, user_id, created_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (post_id, user_id) DO NOTHING`,
		postID, userID, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert like: %w", err)
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}

	status := &model.LikeStatus{}

	if inserted == 1 {
		// いいね追加: カウンタを同時に加算する
		status.HasLiked = true
		err = tx.QueryRowContext(ctx,
			`UPDATE posts SET likes = likes + 1 WHERE id = $1 RETURNING likes`,
			postID,
		).Scan(&status.Likes)
	} else {
		// 既存メンバー: いいね解除。削除行数を確認してからカウンタを減算する。
		// 並行する解除に先を越された場合は追加側に倒す。
		var deleted int64
		delResult, delErr := tx.ExecContext(ctx,
			`DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2`,
			postID, userID,
		)
		if delErr != nil {
			return nil, fmt.Errorf("failed to delete like: %w", delErr)
		}
		deleted, err = delResult.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to get rows affected: %w", err)
		}

		if deleted == 1 {
			status.HasLiked = false
			err = tx.QueryRowContext(ctx,
				`UPDATE posts SET likes = likes - 1 WHERE id = $1 RETURNING likes`,
				postID,
			).Scan(&status.Likes)
		} else {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO post_likes (post_id, user_id, created_at) VALUES ($1, $2, $3)`,
				postID, userID, now,
			); err != nil {
				return nil, fmt.Errorf("failed to insert like: %w", err)
			}
			status.HasLiked = true
			err = tx.QueryRowContext(ctx,
				`UPDATE posts SET likes = likes + 1 WHERE id = $1 RETURNING likes`,
				postID,
			).Scan(&status.Likes)
		}
	}
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("post not found: %s", postID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update like counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return status, nil
}

// LikeStatus は閲覧者のいいね状態とカウンタを読み取る。投稿が存在しない場合はnilを返す。
func (r *PostgresPostRepo) LikeStatus(ctx context.Context, postID, viewerID string) (*model.LikeStatus, error) {
	status := &model.LikeStatus{}
	err := r.db.QueryRowContext(ctx,
		`SELECT p.likes,
		        EXISTS (
		            SELECT 1 FROM post_likes pl
		            WHERE pl.post_id = p.id AND pl.user_id = $2
		        )
		 FROM posts p WHERE p.id = $1`,
		postID, nullableID(viewerID),
	).Scan(&status.Likes, &status.HasLiked)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read like status: %w", err)
	}
	return status, nil
}

// nullableID は空文字列IDをNULLとして束縛するためのヘルパー。
func nullableID(id string) any {
	if id == "" {
		return nil
	}
	return id
}

// compile-time interface check
var _ PostRepository = (*PostgresPostRepo)(nil)

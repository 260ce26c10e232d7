package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hitoshi/linkup/internal/model"
)

// PostgresProfileRepo はPostgreSQLを使用したプロフィールリポジトリ。
// past_workはJSONBカラムに保存する。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

// Create はプロフィールを作成する。
func (r *PostgresProfileRepo) Create(ctx context.Context, profile *model.Profile) error {
	pastWork, err := marshalPastWork(profile.PastWork)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO profiles (user_id, bio, current_position, past_work, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		profile.UserID, profile.Bio, profile.CurrentPosition, pastWork,
		profile.CreatedAt, profile.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert profile: %w", err)
	}
	return nil
}

// FindByUserID は指定ユーザーのプロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByUserID(ctx context.Context, userID string) (*model.Profile, error) {
	profile := &model.Profile{}
	var pastWork []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, bio, current_position, past_work, created_at, updated_at
		 FROM profiles WHERE user_id = $1`,
		userID,
	).Scan(&profile.UserID, &profile.Bio, &profile.CurrentPosition, &pastWork,
		&profile.CreatedAt, &profile.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}

	if err := json.Unmarshal(pastWork, &profile.PastWork); err != nil {
		return nil, fmt.Errorf("failed to unmarshal past work: %w", err)
	}
	return profile, nil
}

// FindWithUser はプロフィールをユーザー投影とJOINして取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindWithUser(ctx context.Context, userID string) (*model.UserWithProfile, error) {
	up := &model.UserWithProfile{}
	var pastWork []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT u.id, u.name, u.username, u.email, u.profile_picture,
		        p.user_id, p.bio, p.current_position, p.past_work, p.created_at, p.updated_at
		 FROM profiles p
		 JOIN users u ON u.id = p.user_id
		 WHERE p.user_id = $1`,
		userID,
	).Scan(
		&up.User.ID, &up.User.Name, &up.User.Username, &up.User.Email, &up.User.ProfilePicture,
		&up.Profile.UserID, &up.Profile.Bio, &up.Profile.CurrentPosition, &pastWork,
		&up.Profile.CreatedAt, &up.Profile.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile with user: %w", err)
	}

	if err := json.Unmarshal(pastWork, &up.Profile.PastWork); err != nil {
		return nil, fmt.Errorf("failed to unmarshal past work: %w", err)
	}
	return up, nil
}

// Update は許可リスト方式の部分更新を適用する。nilフィールドは変更しない。
func (r *PostgresProfileRepo) Update(ctx context.Context, userID string, upd model.ProfileUpdate, updatedAt time.Time) error {
	var pastWork any
	if upd.PastWork != nil {
		b, err := marshalPastWork(upd.PastWork)
		if err != nil {
			return err
		}
		pastWork = b
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE profiles
		 SET bio              = COALESCE($2, bio),
		     current_position = COALESCE($3, current_position),
		     past_work        = COALESCE($4, past_work),
		     updated_at       = $5
		 WHERE user_id = $1`,
		userID, upd.Bio, upd.CurrentPosition, pastWork, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("profile not found: %s", userID)
	}
	return nil
}

// ListAllWithUser は全プロフィールをユーザー投影付きで返す。
func (r *PostgresProfileRepo) ListAllWithUser(ctx context.Context) ([]model.UserWithProfile, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT u.id, u.name, u.username, u.email, u.profile_picture,
		        p.user_id, p.bio, p.current_position, p.past_work, p.created_at, p.updated_at
		 FROM profiles p
		 JOIN users u ON u.id = p.user_id
		 ORDER BY p.created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var results []model.UserWithProfile
	for rows.Next() {
		var up model.UserWithProfile
		var pastWork []byte
		if err := rows.Scan(
			&up.User.ID, &up.User.Name, &up.User.Username, &up.User.Email, &up.User.ProfilePicture,
			&up.Profile.UserID, &up.Profile.Bio, &up.Profile.CurrentPosition, &pastWork,
			&up.Profile.CreatedAt, &up.Profile.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan profile row: %w", err)
		}
		if err := json.Unmarshal(pastWork, &up.Profile.PastWork); err != nil {
			return nil, fmt.Errorf("failed to unmarshal past work: %w", err)
		}
		results = append(results, up)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profile rows: %w", err)
	}
	return results, nil
}

// marshalPastWork は職歴スライスをJSONB保存用にシリアライズする。
// nilスライスは空配列として保存する。
func marshalPastWork(work []model.WorkHistory) ([]byte, error) {
	if work == nil {
		work = []model.WorkHistory{}
	}
	b, err := json.Marshal(work)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal past work: %w", err)
	}
	return b, nil
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)

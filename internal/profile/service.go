// Package profile はユーザー属性とプロフィールの照会・更新を提供する。
package profile

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/hitoshi/linkup/internal/model"
	"github.com/hitoshi/linkup/internal/repository"
)

const (
	minNameLength     = 2
	minUsernameLength = 3
)

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// Service はユーザー情報とプロフィールの操作を提供する。
// 更新は許可リスト方式で、パスワードハッシュやセッションには更新経路が無い。
type Service struct {
	userRepo    repository.UserRepository
	profileRepo repository.ProfileRepository
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository, profileRepo repository.ProfileRepository) *Service {
	return &Service{
		userRepo:    userRepo,
		profileRepo: profileRepo,
	}
}

// GetUserAndProfile はユーザーとプロフィールの結合投影を返す。
func (s *Service) GetUserAndProfile(ctx context.Context, userID string) (*model.UserWithProfile, error) {
	result, err := s.profileRepo.FindWithUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user profile: %w", err)
	}
	if result == nil {
		return nil, model.NewUserNotFoundError()
	}
	return result, nil
}

// UpdateUser はユーザー属性の許可リスト更新を適用する。
// 更新後のメールアドレスまたはユーザー名が他ユーザーと重複する場合は
// DUPLICATE_USERを返す。自分自身との一致は重複とみなさない。
func (s *Service) UpdateUser(ctx context.Context, userID string, upd model.UserUpdate) error {
	if err := s.normalizeAndValidate(&upd); err != nil {
		return err
	}
	if upd.Name == nil && upd.Username == nil && upd.Email == nil {
		return model.NewValidationError("更新するフィールドがありません")
	}

	current, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if current == nil {
		return model.NewUserNotFoundError()
	}

	// 重複チェックは更新後の識別子で行う
	email := current.Email
	if upd.Email != nil {
		email = *upd.Email
	}
	username := current.Username
	if upd.Username != nil {
		username = *upd.Username
	}
	conflict, err := s.userRepo.FindByEmailOrUsername(ctx, email, username)
	if err != nil {
		return fmt.Errorf("failed to check duplicate identity: %w", err)
	}
	if conflict != nil && conflict.ID != userID {
		return model.NewDuplicateUserError()
	}

	if err := s.userRepo.Update(ctx, userID, upd, time.Now()); err != nil {
		if repository.IsUniqueViolation(err) {
			return model.NewDuplicateUserError()
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	slog.Info("user updated", slog.String("user_id", userID))
	return nil
}

// UpdateProfile はプロフィールの許可リスト更新を適用する。
func (s *Service) UpdateProfile(ctx context.Context, userID string, upd model.ProfileUpdate) error {
	existing, err := s.profileRepo.FindByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to find profile: %w", err)
	}
	if existing == nil {
		return model.NewUserNotFoundError()
	}

	if err := s.profileRepo.Update(ctx, userID, upd, time.Now()); err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	slog.Info("profile updated", slog.String("user_id", userID))
	return nil
}

// UpdateProfilePicture はプロフィール画像参照を更新する。
// 参照は不透明な文字列として扱い、中身は解釈しない。
func (s *Service) UpdateProfilePicture(ctx context.Context, userID, ref string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return model.NewValidationError("画像参照は必須です")
	}

	if err := s.userRepo.UpdateProfilePicture(ctx, userID, ref, time.Now()); err != nil {
		return fmt.Errorf("failed to update profile picture: %w", err)
	}

	slog.Info("profile picture updated", slog.String("user_id", userID))
	return nil
}

// ListAll は全ユーザーのプロフィール投影を返す。発見ページ用。
func (s *Service) ListAll(ctx context.Context) ([]model.UserWithProfile, error) {
	profiles, err := s.profileRepo.ListAllWithUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	return profiles, nil
}

// normalizeAndValidate は更新対象フィールドを正規化し、登録時と同じ規則で検証する。
func (s *Service) normalizeAndValidate(upd *model.UserUpdate) error {
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if len(name) < minNameLength {
			return model.NewValidationError("名前は2文字以上必要です")
		}
		upd.Name = &name
	}
	if upd.Username != nil {
		username := strings.TrimSpace(*upd.Username)
		if len(username) < minUsernameLength {
			return model.NewValidationError("ユーザー名は3文字以上必要です")
		}
		upd.Username = &username
	}
	if upd.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*upd.Email))
		if !emailPattern.MatchString(email) {
			return model.NewValidationError("メールアドレスの形式が正しくありません")
		}
		upd.Email = &email
	}
	return nil
}

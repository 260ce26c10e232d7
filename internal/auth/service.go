// Package auth はユーザー登録・ログイン・セッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/linkup/internal/model"
	"github.com/hitoshi/linkup/internal/repository"
)

// 入力検証の境界値
const (
	minNameLength     = 2
	minUsernameLength = 3
	minPasswordLength = 6
)

// emailPattern はメールアドレスの形状チェック。
// 厳密なRFC検証ではなく「@とドメインらしきものがある」ことのみを要求する。
var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
	BcryptCost    int // bcryptコストパラメータ。0の場合はデフォルトコスト。
}

// Service は認証に関するビジネスロジックを提供する。
// すべての変更系操作はここを通じてセッショントークンをユーザーに解決してから実行される。
type Service struct {
	userRepo    repository.UserRepository
	profileRepo repository.ProfileRepository
	sessionRepo repository.SessionRepository
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	profileRepo repository.ProfileRepository,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
) *Service {
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		userRepo:    userRepo,
		profileRepo: profileRepo,
		sessionRepo: sessionRepo,
		config:      config,
	}
}

// Register は新規ユーザーを登録し、セッションを発行する。
// 検証: 全フィールド必須、名前2文字以上、ユーザー名3文字以上、
// パスワード6文字以上、メールアドレスの形状チェック。
// メールアドレスまたはユーザー名が既存ユーザーと重複する場合はDUPLICATE_USERを返す。
// 成功時は空のプロフィールを作成し、発行したセッションを返す。
func (s *Service) Register(ctx context.Context, name, username, email, password string) (*model.Session, error) {
	name = strings.TrimSpace(name)
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(strings.ToLower(email))

	if err := validateRegistration(name, username, email, password); err != nil {
		return nil, err
	}

	// 重複チェック（INSERT時の一意制約違反もConflictとして扱い、競合を塞ぐ）
	existing, err := s.userRepo.FindByEmailOrUsername(ctx, email, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check duplicate identity: %w", err)
	}
	if existing != nil {
		return nil, model.NewDuplicateUserError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Name:         name,
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, model.NewDuplicateUserError()
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	// 空のプロフィールを同時に作成する
	profile := &model.Profile{
		UserID:    user.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.profileRepo.Create(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	session, err := s.issueSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	slog.Info("new user registered",
		slog.String("user_id", user.ID),
		slog.String("username", username),
	)
	return session, nil
}

// Login は資格情報を検証し、新しいセッションを発行する。
// 未登録メールアドレスはUSER_NOT_FOUND、パスワード不一致はINVALID_CREDENTIALSを返す。
// パスワード不一致時は既存セッションを一切変更しない。
// 成功時に発行されるトークンは同一ユーザーの旧トークンを無条件に置き換える。
func (s *Service) Login(ctx context.Context, email, password string) (*model.Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	if email == "" || password == "" {
		return nil, model.NewValidationError("メールアドレスとパスワードは必須です。")
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		slog.Warn("login failed: bad credential", slog.String("user_id", user.ID))
		return nil, model.NewInvalidCredentialsError()
	}

	session, err := s.issueSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	slog.Info("user logged in", slog.String("user_id", user.ID))
	return session, nil
}

// ResolveSession はトークンから現在のユーザーを解決する。
// 未登録または期限切れのトークンにはUSER_NOT_FOUNDを返す。
func (s *Service) ResolveSession(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, model.NewUnauthenticatedError()
	}

	session, err := s.sessionRepo.FindByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, model.NewUserNotFoundError()
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	return user, nil
}

// Logout はセッションを破棄する。トークンが無効でもエラーにしない。
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessionRepo.DeleteByToken(ctx, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	slog.Info("user logged out")
	return nil
}

// issueSession は新しいセッショントークンを生成し永続化する。
// 同一ユーザーの既存セッションはリポジトリ層のUPSERTで置き換えられる。
func (s *Service) issueSession(ctx context.Context, userID string) (*model.Session, error) {
	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	session := &model.Session{
		Token:     token,
		UserID:    userID,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Replace(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// validateRegistration は登録入力のフィールド単位検証を行う。
func validateRegistration(name, username, email, password string) error {
	if name == "" || username == "" || email == "" || password == "" {
		return model.NewValidationError("すべてのフィールドは必須です。")
	}
	if len([]rune(name)) < minNameLength {
		return model.NewValidationError("名前は2文字以上で入力してください。")
	}
	if len([]rune(username)) < minUsernameLength {
		return model.NewValidationError("ユーザー名は3文字以上で入力してください。")
	}
	if len(password) < minPasswordLength {
		return model.NewValidationError("パスワードは6文字以上で入力してください。")
	}
	if !emailPattern.MatchString(email) {
		return model.NewValidationError("有効なメールアドレスを入力してください。")
	}
	return nil
}

// generateToken は暗号的に安全なセッショントークンを生成する。
func generateToken() (string, error) {
	b := make([]byte, 64)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

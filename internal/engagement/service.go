// Package engagement は投稿・いいね・コメントのライフサイクルを管理する。
package engagement

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/linkup/internal/model"
	"github.com/hitoshi/linkup/internal/repository"
	"github.com/hitoshi/linkup/internal/security"
)

// Service は投稿と反応（いいね・コメント）の操作を提供する。
// いいねカウンタといいね集合の同期はリポジトリ層のトランザクションに委ねる。
type Service struct {
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	userRepo    repository.UserRepository
	sanitizer   security.BodySanitizerService
}

// NewService はServiceを生成する。
func NewService(
	postRepo repository.PostRepository,
	commentRepo repository.CommentRepository,
	userRepo repository.UserRepository,
	sanitizer security.BodySanitizerService,
) *Service {
	return &Service{
		postRepo:    postRepo,
		commentRepo: commentRepo,
		userRepo:    userRepo,
		sanitizer:   sanitizer,
	}
}

// CreatePost は投稿を作成する。本文は必須で、保存前にサニタイズされる。
// 新規投稿はいいね0件・いいね集合空で開始する。
// 戻り値には投稿者投影が含まれ、フィード先頭への挿入にそのまま使える。
func (s *Service) CreatePost(ctx context.Context, userID, body, media, fileType string) (*model.PostWithOwner, error) {
	body = s.sanitizer.Sanitize(body)
	if body == "" {
		return nil, model.NewValidationError("本文は必須です")
	}

	owner, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find post owner: %w", err)
	}
	if owner == nil {
		return nil, model.NewUserNotFoundError()
	}

	post := &model.Post{
		ID:        uuid.New().String(),
		UserID:    userID,
		Body:      body,
		Media:     media,
		FileType:  fileType,
		Likes:     0,
		CreatedAt: time.Now(),
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	slog.Info("post created",
		slog.String("post_id", post.ID),
		slog.String("user_id", userID),
	)

	return &model.PostWithOwner{
		Post: *post,
		Owner: model.UserSummary{
			ID:             owner.ID,
			Name:           owner.Name,
			Username:       owner.Username,
			Email:          owner.Email,
			ProfilePicture: owner.ProfilePicture,
		},
		HasLiked: false,
	}, nil
}

// ListPosts は全投稿を作成時刻降順で返す。
// viewerIDが空の場合（未認証の閲覧）、HasLikedは全てfalseになる。
func (s *Service) ListPosts(ctx context.Context, viewerID string) ([]model.PostWithOwner, error) {
	posts, err := s.postRepo.ListWithOwner(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

// DeletePost は投稿を削除する。投稿者本人のみが削除できる。
// 投稿に付随するいいねとコメントも同時に削除される。
func (s *Service) DeletePost(ctx context.Context, userID, postID string) error {
	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return fmt.Errorf("failed to find post: %w", err)
	}
	if post == nil {
		return model.NewPostNotFoundError(postID)
	}
	if post.UserID != userID {
		return model.NewNotOwnerError()
	}

	if err := s.postRepo.Delete(ctx, postID); err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	slog.Info("post deleted",
		slog.String("post_id", postID),
		slog.String("user_id", userID),
	)
	return nil
}

// ToggleLike はいいね状態を反転し、反転後のカウンタと状態を返す。
// 2回連続で呼ぶと元の状態に戻る（自己逆元）。
func (s *Service) ToggleLike(ctx context.Context, userID, postID string) (*model.LikeStatus, error) {
	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	if post == nil {
		return nil, model.NewPostNotFoundError(postID)
	}

	status, err := s.postRepo.ToggleLike(ctx, postID, userID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to toggle like: %w", err)
	}
	return status, nil
}

// LikeStatus は閲覧者のいいね状態とカウンタを読み取る。状態を変更しない。
func (s *Service) LikeStatus(ctx context.Context, viewerID, postID string) (*model.LikeStatus, error) {
	status, err := s.postRepo.LikeStatus(ctx, postID, viewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to read like status: %w", err)
	}
	if status == nil {
		return nil, model.NewPostNotFoundError(postID)
	}
	return status, nil
}

// AddComment は投稿にコメントを付ける。本文は必須で、保存前にサニタイズされる。
func (s *Service) AddComment(ctx context.Context, userID, postID, body string) error {
	body = s.sanitizer.Sanitize(body)
	if body == "" {
		return model.NewValidationError("コメント本文は必須です")
	}

	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return fmt.Errorf("failed to find post: %w", err)
	}
	if post == nil {
		return model.NewPostNotFoundError(postID)
	}

	comment := &model.Comment{
		ID:        uuid.New().String(),
		PostID:    postID,
		UserID:    userID,
		Body:      body,
		CreatedAt: time.Now(),
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}

	slog.Info("comment added",
		slog.String("comment_id", comment.ID),
		slog.String("post_id", postID),
		slog.String("user_id", userID),
	)
	return nil
}

// ListComments は投稿のコメントを挿入の逆順（最新が先頭）で返す。
// 認証は不要。投稿が存在しない場合はPOST_NOT_FOUNDを返す。
func (s *Service) ListComments(ctx context.Context, postID string) ([]model.CommentWithAuthor, error) {
	if strings.TrimSpace(postID) == "" {
		return nil, model.NewValidationError("投稿IDは必須です")
	}
	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	if post == nil {
		return nil, model.NewPostNotFoundError(postID)
	}
	comments, err := s.commentRepo.ListByPostWithAuthor(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

// DeleteComment はコメントを削除する。コメント投稿者本人のみが削除できる。
func (s *Service) DeleteComment(ctx context.Context, userID, commentID string) error {
	comment, err := s.commentRepo.FindByID(ctx, commentID)
	if err != nil {
		return fmt.Errorf("failed to find comment: %w", err)
	}
	if comment == nil {
		return model.NewCommentNotFoundError(commentID)
	}
	if comment.UserID != userID {
		return model.NewNotOwnerError()
	}

	if err := s.commentRepo.Delete(ctx, commentID); err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}

	slog.Info("comment deleted",
		slog.String("comment_id", commentID),
		slog.String("user_id", userID),
	)
	return nil
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/linkup/internal/middleware"
	"github.com/hitoshi/linkup/internal/model"
)

// EngagementServiceInterface は投稿・いいね・コメントハンドラーが必要とする
// サービスインターフェース。
type EngagementServiceInterface interface {
	CreatePost(ctx context.Context, userID, body, media, fileType string) (*model.PostWithOwner, error)
	ListPosts(ctx context.Context, viewerID string) ([]model.PostWithOwner, error)
	DeletePost(ctx context.Context, userID, postID string) error
	ToggleLike(ctx context.Context, userID, postID string) (*model.LikeStatus, error)
	LikeStatus(ctx context.Context, viewerID, postID string) (*model.LikeStatus, error)
	AddComment(ctx context.Context, userID, postID, body string) error
	ListComments(ctx context.Context, postID string) ([]model.CommentWithAuthor, error)
	DeleteComment(ctx context.Context, userID, commentID string) error
}

// PostHandler は投稿・いいね・コメントのHTTPハンドラー。
type PostHandler struct {
	service EngagementServiceInterface
}

// NewPostHandler はPostHandlerを生成する。
func NewPostHandler(service EngagementServiceInterface) *PostHandler {
	return &PostHandler{service: service}
}

type postResponse struct {
	ID             string `json:"id"`
	UserID         string `json:"userId"`
	Body           string `json:"body"`
	Media          string `json:"media,omitempty"`
	FileType       string `json:"fileType,omitempty"`
	Likes          int    `json:"likes"`
	HasLiked       bool   `json:"hasLiked"`
	CreatedAt      string `json:"createdAt"`
	OwnerID        string `json:"ownerId"`
	OwnerName      string `json:"ownerName"`
	OwnerUsername  string `json:"ownerUsername"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

type commentResponse struct {
	ID             string `json:"id"`
	PostID         string `json:"postId"`
	Body           string `json:"body"`
	CreatedAt      string `json:"createdAt"`
	AuthorID       string `json:"authorId"`
	AuthorName     string `json:"authorName"`
	AuthorUsername string `json:"authorUsername"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

type likeStatusResponse struct {
	Likes    int  `json:"likes"`
	HasLiked bool `json:"hasLiked"`
}

func toPostResponse(p *model.PostWithOwner) postResponse {
	return postResponse{
		ID:             p.ID,
		UserID:         p.UserID,
		Body:           p.Body,
		Media:          p.Media,
		FileType:       p.FileType,
		Likes:          p.Likes,
		HasLiked:       p.HasLiked,
		CreatedAt:      p.CreatedAt.Format(time.RFC3339),
		OwnerID:        p.Owner.ID,
		OwnerName:      p.Owner.Name,
		OwnerUsername:  p.Owner.Username,
		ProfilePicture: p.Owner.ProfilePicture,
	}
}

func toCommentResponse(c *model.CommentWithAuthor) commentResponse {
	return commentResponse{
		ID:             c.ID,
		PostID:         c.PostID,
		Body:           c.Body,
		CreatedAt:      c.CreatedAt.Format(time.RFC3339),
		AuthorID:       c.Author.ID,
		AuthorName:     c.Author.Name,
		AuthorUsername: c.Author.Username,
		ProfilePicture: c.Author.ProfilePicture,
	}
}

type createPostRequest struct {
	Body     string `json:"body"`
	Media    string `json:"media"`
	FileType string `json:"fileType"`
}

// CreatePost は投稿を作成する。
// POST /createPost
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidBodyError())
		return
	}

	post, err := h.service.CreatePost(r.Context(), userID, req.Body, req.Media, req.FileType)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "投稿を作成しました",
		"post":    toPostResponse(post),
	})
}

// ListPosts は全投稿を新しい順で返す。認証は任意。
// GET /posts
func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	// 未認証の場合は空のviewerIDでhasLikedは全てfalseになる
	viewerID, _ := middleware.UserIDFromContext(r.Context())

	posts, err := h.service.ListPosts(r.Context(), viewerID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	out := make([]postResponse, 0, len(posts))
	for i := range posts {
		out = append(out, toPostResponse(&posts[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": out})
}

type postIDRequest struct {
	PostID string `json:"post_id"`
}

// DeletePost は投稿を削除する。
// DELETE /deletePost
func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	var req postIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidBodyError())
		return
	}

	if err := h.service.DeletePost(r.Context(), userID, req.PostID); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "投稿を削除しました"})
}

// ToggleLike はいいね状態を反転する。
// POST /likePost
func (h *PostHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	var req postIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidBodyError())
		return
	}

	status, err := h.service.ToggleLike(r.Context(), userID, req.PostID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, likeStatusResponse{
		Likes:    status.Likes,
		HasLiked: status.HasLiked,
	})
}

// GetPostLike は閲覧者のいいね状態を返す。状態を変更しない。
// GET /getPostLike/{postId}
func (h *PostHandler) GetPostLike(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	postID := chi.URLParam(r, "postId")

	status, err := h.service.LikeStatus(r.Context(), userID, postID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, likeStatusResponse{
		Likes:    status.Likes,
		HasLiked: status.HasLiked,
	})
}

type commentOnPostRequest struct {
	PostID string `json:"post_id"`
	Body   string `json:"body"`
}

// CommentOnPost は投稿にコメントを付ける。
// POST /commentOnPost
func (h *PostHandler) CommentOnPost(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	var req commentOnPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidBodyError())
		return
	}

	if err := h.service.AddComment(r.Context(), userID, req.PostID, req.Body); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"message": "コメントを追加しました"})
}

// GetCommentsForPost は投稿のコメントを挿入の逆順で返す。認証は不要。
// GET /getCommentsForPost?postId=
func (h *PostHandler) GetCommentsForPost(w http.ResponseWriter, r *http.Request) {
	postID := r.URL.Query().Get("postId")

	comments, err := h.service.ListComments(r.Context(), postID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	out := make([]commentResponse, 0, len(comments))
	for i := range comments {
		out = append(out, toCommentResponse(&comments[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"comments": out})
}

type commentIDRequest struct {
	CommentID string `json:"comment_id"`
}

// DeleteComment はコメントを削除する。
// DELETE /deleteComment
func (h *PostHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	var req commentIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidBodyError())
		return
	}

	if err := h.service.DeleteComment(r.Context(), userID, req.CommentID); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "コメントを削除しました"})
}

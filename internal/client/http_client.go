package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/linkup/internal/model"
)

const (
	defaultMaxAttempts  = 3
	defaultRetryBackoff = 200 * time.Millisecond
)

// HTTPIntentClient はIntentClientのnet/http実装。
// Bearerトークンで認証し、JSONでやり取りする。
// リトライは接続断などのトランスポートエラーに限り、
// サーバーがエラーを返した場合（ドメインエラー）は一切リトライしない。
type HTTPIntentClient struct {
	baseURL      string
	token        string
	httpClient   *http.Client
	maxAttempts  int
	retryBackoff time.Duration
}

var _ IntentClient = (*HTTPIntentClient)(nil)

// NewHTTPIntentClient はHTTPIntentClientを生成する。
func NewHTTPIntentClient(baseURL, token string, httpClient *http.Client) *HTTPIntentClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPIntentClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		token:        token,
		httpClient:   httpClient,
		maxAttempts:  defaultMaxAttempts,
		retryBackoff: defaultRetryBackoff,
	}
}

type postPayload struct {
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

type commentPayload struct {
	ID             string `json:"id"`
	PostID         string `json:"postId"`
	Body           string `json:"body"`
	CreatedAt      string `json:"createdAt"`
	AuthorID       string `json:"authorId"`
	AuthorName     string `json:"authorName"`
	AuthorUsername string `json:"authorUsername"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

func (p postPayload) toModel() model.PostWithOwner {
	createdAt, _ := time.Parse(time.RFC3339, p.CreatedAt)
	return model.PostWithOwner{
		Post: model.Post{
			ID:        p.ID,
			UserID:    p.UserID,
			Body:      p.Body,
			Media:     p.Media,
			FileType:  p.FileType,
			Likes:     p.Likes,
			CreatedAt: createdAt,
		},
		Owner: model.UserSummary{
			ID:             p.OwnerID,
			Name:           p.OwnerName,
			Username:       p.OwnerUsername,
			ProfilePicture: p.ProfilePicture,
		},
		HasLiked: p.HasLiked,
	}
}

func (c commentPayload) toModel() model.CommentWithAuthor {
	createdAt, _ := time.Parse(time.RFC3339, c.CreatedAt)
	return model.CommentWithAuthor{
		Comment: model.Comment{
			ID:        c.ID,
			PostID:    c.PostID,
			UserID:    c.AuthorID,
			Body:      c.Body,
			CreatedAt: createdAt,
		},
		Author: model.UserSummary{
			ID:             c.AuthorID,
			Name:           c.AuthorName,
			Username:       c.AuthorUsername,
			ProfilePicture: c.ProfilePicture,
		},
	}
}

// ListPosts は GET /posts を呼び出す。
func (c *HTTPIntentClient) ListPosts(ctx context.Context) ([]model.PostWithOwner, error) {
	var resp struct {
		Posts []postPayload `json:"posts"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/posts", nil, &resp); err != nil {
		return nil, err
	}
	posts := make([]model.PostWithOwner, 0, len(resp.Posts))
	for _, p := range resp.Posts {
		posts = append(posts, p.toModel())
	}
	return posts, nil
}

// ToggleLike は POST /likePost を呼び出す。
func (c *HTTPIntentClient) ToggleLike(ctx context.Context, postID string) (*model.LikeStatus, error) {
	req := map[string]string{"post_id": postID}
	var resp struct {
		Likes    int  `json:"likes"`
		HasLiked bool `json:"hasLiked"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/likePost", req, &resp); err != nil {
		return nil, err
	}
	return &model.LikeStatus{Likes: resp.Likes, HasLiked: resp.HasLiked}, nil
}

// CreatePost は POST /createPost を呼び出す。
func (c *HTTPIntentClient) CreatePost(ctx context.Context, body, media, fileType string) (*model.PostWithOwner, error) {
	req := map[string]string{"body": body, "media": media, "fileType": fileType}
	var resp struct {
		Post postPayload `json:"post"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/createPost", req, &resp); err != nil {
		return nil, err
	}
	post := resp.Post.toModel()
	return &post, nil
}

// DeletePost は DELETE /deletePost を呼び出す。
func (c *HTTPIntentClient) DeletePost(ctx context.Context, postID string) error {
	req := map[string]string{"post_id": postID}
	return c.doJSON(ctx, http.MethodDelete, "/deletePost", req, nil)
}

// ListComments は GET /getCommentsForPost を呼び出す。
func (c *HTTPIntentClient) ListComments(ctx context.Context, postID string) ([]model.CommentWithAuthor, error) {
	path := "/getCommentsForPost?postId=" + url.QueryEscape(postID)
	var resp struct {
		Comments []commentPayload `json:"comments"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	comments := make([]model.CommentWithAuthor, 0, len(resp.Comments))
	for _, cm := range resp.Comments {
		comments = append(comments, cm.toModel())
	}
	return comments, nil
}

// doJSON はJSONリクエストを送り、レスポンスをoutへデコードする。
// トランスポートエラーはバックオフ付きでリトライする。
// サーバーが非2xxを返した場合は*model.APIErrorを返し、リトライしない。
func (c *HTTPIntentClient) doJSON(ctx context.Context, method, path string, reqBody, out any) error {
	var payload []byte
	if reqBody != nil {
		var err error
		payload, err = json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryBackoff * time.Duration(attempt)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}
		if reqBody != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			continue
		}

		err = decodeResponse(resp, out)
		resp.Body.Close()
		return err
	}
	return fmt.Errorf("request failed after %d attempts: %w", c.maxAttempts, lastErr)
}

// decodeResponse は2xxならoutへデコードし、それ以外は*model.APIErrorへ変換する。
func decodeResponse(resp *http.Response, out any) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	}

	var apiErr model.APIError
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Code == "" {
		return &model.APIError{
			Code:     model.ErrCodeInternal,
			Message:  fmt.Sprintf("サーバーがステータス%dを返しました", resp.StatusCode),
			Category: "system",
			Action:   "しばらく待ってから再度お試しください。",
		}
	}
	return &apiErr
}

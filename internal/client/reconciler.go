// Package client はサーバー状態のローカル投影と楽観的更新の調停を提供する。
//
// Reconcilerは投稿・コメントのローカル投影をミューテックスで保護し、
// 各ミューテーションのライフサイクルを明示的な状態機械
// （idle → optimistic → confirmed | reverted）として記録する。
package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/hitoshi/linkup/internal/model"
)

// IntentClient はサーバーへのミューテーション送出インターフェース。
type IntentClient interface {
	// ListPosts は全投稿の正規リストを取得する。
	ListPosts(ctx context.Context) ([]model.PostWithOwner, error)

	// ToggleLike はいいね反転を送出し、サーバー確定後の状態を返す。
	ToggleLike(ctx context.Context, postID string) (*model.LikeStatus, error)

	// CreatePost は投稿作成を送出し、確定した投稿を返す。
	CreatePost(ctx context.Context, body, media, fileType string) (*model.PostWithOwner, error)

	// DeletePost は投稿削除を送出する。
	DeletePost(ctx context.Context, postID string) error

	// ListComments は投稿のコメント正規リスト（最新が先頭）を取得する。
	ListComments(ctx context.Context, postID string) ([]model.CommentWithAuthor, error)
}

// MutationState はミューテーションのライフサイクル状態。
type MutationState int

const (
	// StateIdle は送出前の初期状態。
	StateIdle MutationState = iota
	// StateOptimistic はローカル投影へ適用済みでサーバー確定待ちの状態。
	StateOptimistic
	// StateConfirmed はサーバーが確定し、正規状態が取り込まれた状態。
	StateConfirmed
	// StateReverted は失敗によりローカル変更が正確に巻き戻された状態。
	StateReverted
)

// String はMutationStateの表示名を返す。
func (s MutationState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOptimistic:
		return "optimistic"
	case StateConfirmed:
		return "confirmed"
	case StateReverted:
		return "reverted"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Mutation は進行中または完了したミューテーションの記録。
type Mutation struct {
	ID     string
	Kind   string // "toggle_like" / "create_post" / "delete_post"
	PostID string
	State  MutationState
}

// Reconciler はサーバー状態のローカル投影を保持し、
// 楽観的更新とサーバー確定値の調停を行う。全メソッドはゴルーチン安全。
type Reconciler struct {
	mu        sync.Mutex
	posts     []model.PostWithOwner
	comments  map[string][]model.CommentWithAuthor
	mutations map[string]*Mutation
	client    IntentClient
}

// NewReconciler はReconcilerを生成する。
func NewReconciler(client IntentClient) *Reconciler {
	return &Reconciler{
		comments:  make(map[string][]model.CommentWithAuthor),
		mutations: make(map[string]*Mutation),
		client:    client,
	}
}

// Posts はローカル投影のコピーを返す。
func (r *Reconciler) Posts() []model.PostWithOwner {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.PostWithOwner, len(r.posts))
	copy(out, r.posts)
	return out
}

// Comments は指定投稿のコメント投影のコピーを返す。
func (r *Reconciler) Comments(postID string) []model.CommentWithAuthor {
	r.mu.Lock()
	defer r.mu.Unlock()
	src := r.comments[postID]
	out := make([]model.CommentWithAuthor, len(src))
	copy(out, src)
	return out
}

// MutationLog は記録済みミューテーションのコピーを返す。
func (r *Reconciler) MutationLog() []Mutation {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Mutation, 0, len(r.mutations))
	for _, m := range r.mutations {
		out = append(out, *m)
	}
	return out
}

// RefreshPosts は投稿投影をサーバーの正規リストで全面的に置き換える。
func (r *Reconciler) RefreshPosts(ctx context.Context) error {
	posts, err := r.client.ListPosts(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh posts: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts = posts
	return nil
}

// ToggleLike はいいね反転を楽観的に適用してから送出する。
// 投影に存在しないIDは何もしない。
// 成功時はサーバー確定値で上書きする（再反転ではない冪等な取り込み）。
// 失敗・キャンセル時は楽観的変更の正確な逆操作で巻き戻す。
func (r *Reconciler) ToggleLike(ctx context.Context, postID string) error {
	r.mu.Lock()
	idx := r.findPost(postID)
	if idx < 0 {
		r.mu.Unlock()
		return nil
	}

	// 巻き戻しのために変更前の値を記録してから楽観的に反転する
	prevLikes := r.posts[idx].Likes
	prevHasLiked := r.posts[idx].HasLiked
	if prevHasLiked {
		r.posts[idx].Likes--
	} else {
		r.posts[idx].Likes++
	}
	r.posts[idx].HasLiked = !prevHasLiked

	mut := r.record("toggle_like", postID)
	mut.State = StateOptimistic
	r.mu.Unlock()

	status, err := r.client.ToggleLike(ctx, postID)
	if err == nil && ctx.Err() != nil {
		// 送出中に放棄された場合も失敗として扱う
		err = ctx.Err()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	idx = r.findPost(postID)
	if err != nil {
		mut.State = StateReverted
		if idx >= 0 {
			r.posts[idx].Likes = prevLikes
			r.posts[idx].HasLiked = prevHasLiked
		}
		return err
	}

	mut.State = StateConfirmed
	if idx >= 0 {
		r.posts[idx].Likes = status.Likes
		r.posts[idx].HasLiked = status.HasLiked
	}
	return nil
}

// CreatePost は投稿作成を送出し、確定後に正規の投稿を投影の先頭へ挿入する。
// 楽観的な仮投稿は行わない。
func (r *Reconciler) CreatePost(ctx context.Context, body, media, fileType string) error {
	r.mu.Lock()
	mut := r.record("create_post", "")
	mut.State = StateOptimistic
	r.mu.Unlock()

	post, err := r.client.CreatePost(ctx, body, media, fileType)

	r.mu.Lock()
	defer r.mu.Unlock()

	if err != nil {
		mut.State = StateReverted
		return err
	}

	mut.State = StateConfirmed
	mut.PostID = post.ID
	r.posts = append([]model.PostWithOwner{*post}, r.posts...)
	return nil
}

// DeletePost は投稿削除を送出し、サーバー確定後にのみ投影から取り除く。
func (r *Reconciler) DeletePost(ctx context.Context, postID string) error {
	r.mu.Lock()
	mut := r.record("delete_post", postID)
	mut.State = StateOptimistic
	r.mu.Unlock()

	err := r.client.DeletePost(ctx, postID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if err != nil {
		mut.State = StateReverted
		return err
	}

	mut.State = StateConfirmed
	if idx := r.findPost(postID); idx >= 0 {
		r.posts = append(r.posts[:idx], r.posts[idx+1:]...)
	}
	delete(r.comments, postID)
	return nil
}

// RefreshComments は指定投稿のコメント投影を正規リストで全面的に置き換える。
func (r *Reconciler) RefreshComments(ctx context.Context, postID string) error {
	comments, err := r.client.ListComments(ctx, postID)
	if err != nil {
		return fmt.Errorf("failed to refresh comments: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.comments[postID] = comments
	return nil
}

// findPost はロック保持中に投稿の添字を返す。見つからない場合は-1。
func (r *Reconciler) findPost(postID string) int {
	for i := range r.posts {
		if r.posts[i].ID == postID {
			return i
		}
	}
	return -1
}

// record はロック保持中に新しいミューテーション記録を登録する。
func (r *Reconciler) record(kind, postID string) *Mutation {
	mut := &Mutation{
		ID:     uuid.New().String(),
		Kind:   kind,
		PostID: postID,
		State:  StateIdle,
	}
	r.mutations[mut.ID] = mut
	return mut
}

// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/linkup/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindByEmailOrUsername はメールアドレスまたはユーザー名が一致するユーザーを検索する。
	// 登録・更新時の重複チェックに使用する。見つからない場合はnilを返す。
	FindByEmailOrUsername(ctx context.Context, email, username string) (*model.User, error)

	// Create はユーザーを作成する。識別子重複時は一意制約違反エラーを返す。
	Create(ctx context.Context, user *model.User) error

	// Update は許可リスト方式の部分更新を適用する。nilフィールドは変更しない。
	Update(ctx context.Context, id string, upd model.UserUpdate, updatedAt time.Time) error

	// UpdateProfilePicture はプロフィール画像参照のみを更新する。
	UpdateProfilePicture(ctx context.Context, id, ref string, updatedAt time.Time) error
}

// SessionRepository はセッションデータの永続化インターフェース。
// トークンをキーとし、ユーザーごとに常に1件のみを保持する。
type SessionRepository interface {
	// Replace はセッションを保存する。同一ユーザーの既存セッションは
	// 新しいトークンで無条件に置き換えられる（旧トークンは即座に無効になる）。
	Replace(ctx context.Context, session *model.Session) error

	// FindByToken は指定トークンのセッションを取得する。
	// 期限切れまたは未登録の場合はnilを返す。
	FindByToken(ctx context.Context, token string) (*model.Session, error)

	// DeleteByToken は指定トークンのセッションを削除する。
	DeleteByToken(ctx context.Context, token string) error
}

// ProfileRepository はプロフィールデータの永続化インターフェース。
type ProfileRepository interface {
	// Create はプロフィールを作成する。登録時に空の内容で呼ばれる。
	Create(ctx context.Context, profile *model.Profile) error

	// FindByUserID は指定ユーザーのプロフィールを取得する。見つからない場合はnilを返す。
	FindByUserID(ctx context.Context, userID string) (*model.Profile, error)

	// FindWithUser はプロフィールをユーザー投影とJOINして取得する。見つからない場合はnilを返す。
	FindWithUser(ctx context.Context, userID string) (*model.UserWithProfile, error)

	// Update は許可リスト方式の部分更新を適用する。nilフィールドは変更しない。
	Update(ctx context.Context, userID string, upd model.ProfileUpdate, updatedAt time.Time) error

	// ListAllWithUser は全プロフィールをユーザー投影付きで返す。
	ListAllWithUser(ctx context.Context) ([]model.UserWithProfile, error)
}

// PostRepository は投稿データの永続化インターフェース。
// いいねカウンタといいねユーザー集合の同期はこの層が保証する。
type PostRepository interface {
	// Create は投稿を作成する。likes=0、いいね集合は空で開始する。
	Create(ctx context.Context, post *model.Post) error

	// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Post, error)

	// ListWithOwner は全投稿を作成時刻降順で、投稿者投影と閲覧者ごとの
	// hasLiked付きで返す。viewerIDが空の場合hasLikedは全てfalse。
	ListWithOwner(ctx context.Context, viewerID string) ([]model.PostWithOwner, error)

	// Delete は指定IDの投稿を削除する。コメントといいねはCASCADE削除される。
	Delete(ctx context.Context, id string) error

	// ToggleLike はいいね状態を単一トランザクションで反転する。
	// 集合への所属とカウンタの増減が常に同時に起きるため、
	// 同一閲覧者の並行トグルが競合してもlikes == |likedBy|は保たれる。
	ToggleLike(ctx context.Context, postID, userID string, now time.Time) (*model.LikeStatus, error)

	// LikeStatus は閲覧者のいいね状態とカウンタを読み取る。
	// 投稿が存在しない場合はnilを返す。
	LikeStatus(ctx context.Context, postID, viewerID string) (*model.LikeStatus, error)
}

// CommentRepository はコメントデータの永続化インターフェース。
type CommentRepository interface {
	// Create はコメントを作成する。挿入順は内部シーケンスで保存される。
	Create(ctx context.Context, comment *model.Comment) error

	// FindByID は指定IDのコメントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Comment, error)

	// ListByPostWithAuthor は投稿のコメントを挿入の逆順（最新が先頭）で、
	// コメント投稿者投影付きで返す。作成時刻が同一でも順序は厳密。
	ListByPostWithAuthor(ctx context.Context, postID string) ([]model.CommentWithAuthor, error)

	// Delete は指定IDのコメントを削除する。
	Delete(ctx context.Context, id string) error
}

// ConnectionRepository はつながりリクエストの永続化インターフェース。
type ConnectionRepository interface {
	// Create はリクエストを作成する。同一の (送信者, 受信者) ペアが
	// 既に存在する場合は一意制約違反エラーを返す。
	Create(ctx context.Context, req *model.ConnectionRequest) error

	// FindByID は指定IDのリクエストを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.ConnectionRequest, error)

	// FindByPair は順序付きペアでリクエストを検索する。見つからない場合はnilを返す。
	FindByPair(ctx context.Context, senderID, recipientID string) (*model.ConnectionRequest, error)

	// ListBySender は指定ユーザーが送信したリクエストを受信者投影付きで返す。
	ListBySender(ctx context.Context, senderID string) ([]model.ConnectionWithUser, error)

	// ListByRecipient は指定ユーザーが受信したリクエストを送信者投影付きで返す。
	ListByRecipient(ctx context.Context, recipientID string) ([]model.ConnectionWithUser, error)

	// UpdateDecision は決定（承認/拒否）を永続化する。
	UpdateDecision(ctx context.Context, id string, accepted bool) error
}

// IsUniqueViolation はPostgreSQLの一意制約違反（23505）かどうかを判定する。
// 重複チェックとINSERTの間の競合をConflictとして扱うために使用する。
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

package model

import "time"

// Post は投稿を表す。
// Likesカウンタといいねユーザー集合は不変条件 likes == |likedBy| を常に満たす。
// 両者はリポジトリ層の同一トランザクション内でのみ更新される。
type Post struct {
	ID        string
	UserID    string
	Body      string
	Media     string // アップロード済みメディアへの参照（空文字列は未添付）
	FileType  string
	Likes     int
	CreatedAt time.Time
}

// PostWithOwner は投稿と投稿者情報、閲覧者のいいね状態の結合投影。
// HasLikedは閲覧者ごとに導出され、永続化されない。
type PostWithOwner struct {
	Post
	Owner    UserSummary
	HasLiked bool
}

// LikeStatus はいいねトグル・照会の結果を表す。
type LikeStatus struct {
	Likes    int
	HasLiked bool
}

// Comment は投稿へのコメントを表す。編集操作は存在しない。
type Comment struct {
	ID        string
	PostID    string
	UserID    string
	Body      string
	CreatedAt time.Time
}

// CommentWithAuthor はコメントとコメント投稿者情報の結合投影。
type CommentWithAuthor struct {
	Comment
	Author UserSummary
}

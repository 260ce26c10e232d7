// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// PasswordHashは不可逆ハッシュのみを保持し、平文パスワードは保存しない。
type User struct {
	ID             string
	Name           string
	Username       string
	Email          string
	PasswordHash   string
	ProfilePicture string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// UserSummary はユーザーの最小投影を表す。
// 投稿・コメント・つながりリクエストのJOIN結果に使用する。
type UserSummary struct {
	ID             string
	Name           string
	Username       string
	Email          string
	ProfilePicture string
}

// Session はユーザーのログインセッションを表す。
// トークンをキーとする独立したセッションテーブルに永続化し、
// ユーザーごとに常に最新の1件のみを有効とする。
type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Profile はユーザーのプロフィールを表す。登録時に空で作成される。
type Profile struct {
	UserID          string
	Bio             string
	CurrentPosition string
	PastWork        []WorkHistory
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// WorkHistory は職歴の1エントリを表す。
type WorkHistory struct {
	Company  string `json:"company"`
	Position string `json:"position"`
	Years    string `json:"years"`
}

// UserUpdate はユーザー属性の部分更新を表す。
// 許可リスト方式: ここに無いフィールド（パスワードハッシュ、セッション等）には
// 更新経路が存在しない。nilフィールドは変更しない。
type UserUpdate struct {
	Name     *string
	Username *string
	Email    *string
}

// ProfileUpdate はプロフィールの部分更新を表す。nilフィールドは変更しない。
type ProfileUpdate struct {
	Bio             *string
	CurrentPosition *string
	PastWork        []WorkHistory
}

// UserWithProfile はユーザーとプロフィールの結合投影。
type UserWithProfile struct {
	User    UserSummary
	Profile Profile
}

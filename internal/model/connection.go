package model

import "time"

// ConnectionRequest はユーザー間の有向つながりリクエストを表す。
// (SenderID, RecipientID) の順序付きペアごとに高々1件のみ存在する。
// A→BとB→Aは独立したリクエストとして扱う。
//
// Acceptedは三値: nil=保留中、true=承認済み、false=拒否済み。
// 保留中→決定済みの遷移は一方向で、決定後に保留中へ戻ることはない。
type ConnectionRequest struct {
	ID          string
	SenderID    string
	RecipientID string
	Accepted    *bool
	CreatedAt   time.Time
}

// Pending はリクエストが未決定かどうかを返す。
func (r *ConnectionRequest) Pending() bool {
	return r.Accepted == nil
}

// ConnectionWithUser はつながりリクエストと相手ユーザー情報の結合投影。
// 送信一覧では受信者、受信一覧では送信者がUserに入る。
type ConnectionWithUser struct {
	ConnectionRequest
	User UserSummary
}

// DecisionAction はつながりリクエストへの決定操作を表す。
type DecisionAction string

const (
	// DecisionAccept はリクエストの承認を示す。
	DecisionAccept DecisionAction = "accept"
	// DecisionReject はリクエストの拒否を示す。
	DecisionReject DecisionAction = "reject"
)

// Valid はサポートされる決定操作かどうかを返す。
func (a DecisionAction) Valid() bool {
	return a == DecisionAccept || a == DecisionReject
}

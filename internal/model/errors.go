package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, engagement, connection, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodePostNotFound       = "POST_NOT_FOUND"
	ErrCodeCommentNotFound    = "COMMENT_NOT_FOUND"
	ErrCodeRequestNotFound    = "REQUEST_NOT_FOUND"
	ErrCodeUnauthenticated    = "UNAUTHENTICATED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeNotOwner           = "NOT_OWNER"
	ErrCodeDuplicateUser      = "DUPLICATE_USER"
	ErrCodeDuplicateRequest   = "DUPLICATE_REQUEST"
	ErrCodeRequestDecided     = "REQUEST_DECIDED"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// NewValidationError は入力検証エラーを生成する。
// フィールド単位の具体的なメッセージを呼び出し側が指定する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  message,
		Category: "validation",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewUserNotFoundError はユーザー（またはセッション）未検出エラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewPostNotFoundError は投稿未検出エラーを生成する。
func NewPostNotFoundError(postID string) *APIError {
	return &APIError{
		Code:     ErrCodePostNotFound,
		Message:  fmt.Sprintf("指定された投稿が見つかりません: %s", postID),
		Category: "engagement",
		Action:   "投稿が削除された可能性があります。一覧を再読み込みしてください。",
	}
}

// NewCommentNotFoundError はコメント未検出エラーを生成する。
func NewCommentNotFoundError(commentID string) *APIError {
	return &APIError{
		Code:     ErrCodeCommentNotFound,
		Message:  fmt.Sprintf("指定されたコメントが見つかりません: %s", commentID),
		Category: "engagement",
		Action:   "コメントが削除された可能性があります。一覧を再読み込みしてください。",
	}
}

// NewRequestNotFoundError はつながりリクエスト未検出エラーを生成する。
func NewRequestNotFoundError(requestID string) *APIError {
	return &APIError{
		Code:     ErrCodeRequestNotFound,
		Message:  fmt.Sprintf("指定されたつながりリクエストが見つかりません: %s", requestID),
		Category: "connection",
		Action:   "リクエスト一覧を再読み込みしてください。",
	}
}

// NewUnauthenticatedError は認証情報欠落エラーを生成する。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewInvalidCredentialsError は認証失敗エラーを生成する。
// 資格情報のどちらが誤っているかは漏らさない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewNotOwnerError は所有権エラーを生成する。
// 認証済みだがリソースの作成者でない場合に使用する。
func NewNotOwnerError() *APIError {
	return &APIError{
		Code:     ErrCodeNotOwner,
		Message:  "このリソースを操作する権限がありません。",
		Category: "auth",
		Action:   "自分が作成したリソースのみ削除できます。",
	}
}

// NewDuplicateUserError は識別子重複エラーを生成する。
func NewDuplicateUserError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateUser,
		Message:  "このメールアドレスまたはユーザー名は既に使用されています。",
		Category: "validation",
		Action:   "別のメールアドレスまたはユーザー名を指定してください。",
	}
}

// NewDuplicateRequestError はつながりリクエスト重複エラーを生成する。
// 同一の (送信者, 受信者) ペアに対する再送はマージせず拒否する。
func NewDuplicateRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateRequest,
		Message:  "このユーザーへのつながりリクエストは既に送信済みです。",
		Category: "connection",
		Action:   "相手の応答をお待ちください。",
	}
}

// NewRequestDecidedError は決定済みリクエストへの再決定エラーを生成する。
func NewRequestDecidedError() *APIError {
	return &APIError{
		Code:     ErrCodeRequestDecided,
		Message:  "このつながりリクエストは既に決定済みです。",
		Category: "connection",
		Action:   "リクエスト一覧を再読み込みしてください。",
	}
}

// NewInternalError は内部エラーを生成する。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

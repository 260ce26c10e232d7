// Package security はアプリケーションのセキュリティ機能を提供する。
//
// BodySanitizerService はユーザー投稿（投稿本文・コメント本文）を
// サニタイズし、XSS攻撃などのセキュリティリスクから閲覧者を保護する。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// 安全なタグのみを通過させる。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// BodySanitizerService はユーザー投稿本文のサニタイズ機能のインターフェースを定義する。
// 投稿・コメントの保存前に使用される。
type BodySanitizerService interface {
	// Sanitize は本文をサニタイズして安全なテキストを返す。
	// 最小限の整形タグ（p, br, strong, em, a）のみを通過させ、
	// script, iframe, img, styleタグおよびon*イベント属性を除去する。
	// 前後の空白は取り除く。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// bodySanitizer はBodySanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type bodySanitizer struct {
	policy *bluemonday.Policy
}

// NewBodySanitizer はBodySanitizerServiceの新しいインスタンスを生成する。
// ポリシーの内容:
//   - 許可タグ: p, br, strong, em
//   - aタグ: href属性のみ許可し、target="_blank" と rel="noopener noreferrer" を強制付与
//   - 上記以外のタグ（script, iframe, img, style等）と全てのon*イベント属性は除去
func NewBodySanitizer() *bodySanitizer {
	p := bluemonday.NewPolicy()

	// 投稿本文は短文テキストが主体のため、許可リストは整形用の最小限に絞る。
	// script, iframe, img等は許可リストに含めないことで自動的に除去される。
	p.AllowElements("p", "br", "strong", "em")

	p.AllowAttrs("href").OnElements("a")
	p.AllowRelativeURLs(false)
	p.AllowStandardURLs()
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	return &bodySanitizer{
		policy: p,
	}
}

// Sanitize は本文をサニタイズして安全なテキストを返す。
func (s *bodySanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(raw))
}

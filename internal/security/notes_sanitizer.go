// Package security はアプリケーションのセキュリティ機能を提供する。
//
// NotesSanitizer は患者メモ・施術メモなどの自由記述テキストをサニタイズし、
// フロントエンドでの表示時にXSSが成立しないようにする。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// 最小限の書式タグのみを通過させる。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// NotesSanitizerService は自由記述テキストのサニタイズ機能のインターフェースを定義する。
// 保存前に各ドメインサービスから呼び出される。
type NotesSanitizerService interface {
	// Sanitize は許可タグ（p, br, ul, ol, li, strong, em）のみを残し、
	// それ以外のタグ・属性を除去して前後の空白を取り除いた文字列を返す。
	// リンク・画像は許可しない。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// notesSanitizer はNotesSanitizerServiceの実装。
// bluemondayのポリシーはスレッドセーフなため共有して使う。
type notesSanitizer struct {
	policy *bluemonday.Policy
}

// NewNotesSanitizer はNotesSanitizerServiceの新しいインスタンスを生成する。
func NewNotesSanitizer() *notesSanitizer {
	p := bluemonday.NewPolicy()

	// script, style, iframe, a, img 等は許可リストに含めないことで除去される。
	// on*イベント属性もbluemondayのデフォルトで除去される。
	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"strong", "em",
	)

	return &notesSanitizer{
		policy: p,
	}
}

// Sanitize は自由記述テキストをサニタイズする。
func (s *notesSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	return strings.TrimSpace(s.policy.Sanitize(raw))
}

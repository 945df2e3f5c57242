// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ProfileSanitizer はユーザーが入力したプロフィール項目（氏名など）から
// HTMLマークアップを除去し、プレーンテキストとして保存できる形に整える。
// bluemondayのStrictPolicyで全タグを除去する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はプレーンテキスト項目のサニタイズ機能のインターフェース。
type TextSanitizer interface {
	// SanitizeText はマークアップを除去したプレーンテキストを返す。
	// 前後の空白は除去する。同一入力に対して常に同一出力を返す（冪等）。
	SanitizeText(s string) string
}

// angleBrackets はエンティティ展開後に残った山括弧を除去する。
var angleBrackets = strings.NewReplacer("<", "", ">", "")

// ProfileSanitizer はTextSanitizerの実装。
// bluemondayのポリシーはスレッドセーフのため、1インスタンスを共有してよい。
type ProfileSanitizer struct {
	policy *bluemonday.Policy
}

// NewProfileSanitizer はProfileSanitizerを生成する。
func NewProfileSanitizer() *ProfileSanitizer {
	return &ProfileSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// SanitizeText はタグを除去し、エスケープされた文字を元に戻したプレーンテキストを返す。
// "O'Brien" のような名前がエンティティ化されたまま保存されないようにする。
func (s *ProfileSanitizer) SanitizeText(in string) string {
	if in == "" {
		return ""
	}
	out := html.UnescapeString(s.policy.Sanitize(in))
	return strings.TrimSpace(angleBrackets.Replace(out))
}

var _ TextSanitizer = (*ProfileSanitizer)(nil)

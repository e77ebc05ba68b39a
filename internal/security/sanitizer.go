// Package security はコンテンツのサニタイズと外部フェッチの保護を提供する。
//
// ニュース投稿の本文（ユーザー投稿とRSSインポートの両方）は保存前に
// 許可リストベースのポリシーでサニタイズされる。
package security

import (
	"net/url"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizer はHTMLコンテンツのサニタイズ機能のインターフェースを定義する。
type ContentSanitizer interface {
	// Sanitize はHTMLコンテンツをサニタイズして安全なHTMLを返す。
	// 許可タグのみを通過させ、script, iframe, styleタグおよび
	// on*イベント属性を除去する。imgのsrcはhttpsスキームのみ許可。
	// 空文字列の入力には空文字列を返し、同一入力に対して常に同一出力を返す。
	Sanitize(rawHTML string) string
}

type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はニュース本文用のサニタイザを生成する。
// ポリシーの内容:
//   - 許可タグ: p, br, a, ul, ol, li, blockquote, pre, code, strong, em, img
//   - aタグ: href許可、target="_blank"とrel="noopener noreferrer"を強制付与
//   - imgタグ: src（httpsのみ）とaltを許可
func NewContentSanitizer() *contentSanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em",
	)

	p.AllowAttrs("href").OnElements("a")
	p.AllowRelativeURLs(false)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	p.AllowAttrs("src").OnElements("img")
	p.AllowAttrs("alt").OnElements("img")
	p.AllowURLSchemeWithCustomPolicy("https", func(u *url.URL) bool {
		return true
	})

	return &contentSanitizer{
		policy: p,
	}
}

// Sanitize はHTMLコンテンツをサニタイズして安全なHTMLを返す。
func (s *contentSanitizer) Sanitize(rawHTML string) string {
	return s.policy.Sanitize(rawHTML)
}

// compile-time interface check
var _ ContentSanitizer = (*contentSanitizer)(nil)

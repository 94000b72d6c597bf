// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContactSanitizer は問い合わせフォームの自由入力からHTMLを取り除き、
// ログや通知にそのまま載せられるプレーンテキストにする。
package security

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はユーザー入力のサニタイズ機能のインターフェースを定義する。
type TextSanitizer interface {
	// Sanitize は入力から全てのHTMLタグを除去したプレーンテキストを返す。
	// 制御文字は空白に置き換え、前後の空白を取り除く。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// ContactSanitizer はTextSanitizerの実装。
// bluemondayのポリシーはスレッドセーフなので共有して使う。
type ContactSanitizer struct {
	policy *bluemonday.Policy
}

// NewContactSanitizer はContactSanitizerを生成する。
// 問い合わせ内容にマークアップは不要なため、StrictPolicyで全タグを除去する。
func NewContactSanitizer() *ContactSanitizer {
	return &ContactSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力から全てのHTMLタグを除去したプレーンテキストを返す。
func (s *ContactSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	// StrictPolicyはテキストをエスケープして返すため、プレーンテキストに戻す
	text := html.UnescapeString(s.policy.Sanitize(raw))
	text = strings.Map(func(r rune) rune {
		if r != '\n' && unicode.IsControl(r) {
			return ' '
		}
		return r
	}, text)
	return strings.TrimSpace(text)
}

// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizerService は求人サイトから抽出した説明文のHTMLを除去し、
// チャット通知に安全に埋め込めるプレーンテキストに変換する。
// bluemondayライブラリのStrictPolicyをベースに、全タグと属性を除去する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService は説明文のサニタイズ機能のインターフェースを定義する。
// 求人の保存前に使用される。
type TextSanitizerService interface {
	// Sanitize はHTML断片からタグを全て除去したプレーンテキストを返す。
	// script, style等の危険なタグはもちろん、整形用タグも通過させない。
	// HTMLエンティティはデコードされ、連続する空白は1つに畳まれる。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(rawHTML string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicy（全タグ除去）を使用する。求人説明は通知テキストとして
// そのまま送信されるため、HTMLを一切残さない。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はHTML断片からタグを除去したプレーンテキストを返す。
func (s *textSanitizer) Sanitize(rawHTML string) string {
	if rawHTML == "" {
		return ""
	}

	stripped := s.policy.Sanitize(rawHTML)

	// bluemondayはエンティティをエスケープしたまま残すためデコードする
	decoded := html.UnescapeString(stripped)

	// 連続する空白・改行を1つのスペースに畳む
	return strings.Join(strings.Fields(decoded), " ")
}

// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ProfileSanitizerService はGitHubユーザーが自由に編集できるプロフィール項目
// （表示名とbio）からHTMLを除去し、XSS攻撃などのセキュリティリスクから
// ユーザーを保護する。bluemondayのStrictPolicyを使用し、
// タグを一切許可しないプレーンテキスト化を行う。
package security

import (
	"github.com/microcosm-cc/bluemonday"
)

// ProfileSanitizerService はプロフィール項目のサニタイズ機能のインターフェースを定義する。
// API応答時およびコンソール表示時に使用される。
type ProfileSanitizerService interface {
	// SanitizeText はプロフィール項目からHTMLタグをすべて除去して返す。
	// script, iframe, styleタグおよびon*イベント属性を含め、
	// いかなるタグも通過させない。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeText(raw string) string
}

// profileSanitizer はProfileSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type profileSanitizer struct {
	policy *bluemonday.Policy
}

// NewProfileSanitizer はProfileSanitizerServiceの新しいインスタンスを生成する。
// プロフィール項目は表示上プレーンテキストとして扱うため、
// 許可リストが空のStrictPolicyを使用する。
func NewProfileSanitizer() *profileSanitizer {
	return &profileSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// SanitizeText はプロフィール項目からHTMLタグをすべて除去して返す。
func (s *profileSanitizer) SanitizeText(raw string) string {
	return s.policy.Sanitize(raw)
}

// Package model はドメインモデルを定義する。
package model

import "fmt"

// LookupError はユーザー検索の統一エラーフォーマットを表す。
// エラー種別は閉じた集合であり、各種別は固定のメッセージを持つ。
// UIに表示する原因カテゴリと対処方法を含む。
type LookupError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, github, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *LookupError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeMalformedRequest   = "MALFORMED_REQUEST"
	ErrCodeEmptyResponse      = "EMPTY_RESPONSE"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeUnexpectedResponse = "UNEXPECTED_RESPONSE"
	ErrCodeDecodeFailed       = "DECODE_FAILED"
)

// NewMalformedRequestError はリクエスト生成失敗エラーを生成する。
// ユーザー名をURLに安全に埋め込めない場合に返される。
func NewMalformedRequestError() *LookupError {
	return &LookupError{
		Code:     ErrCodeMalformedRequest,
		Message:  "リクエストの生成に失敗しました。",
		Category: "validation",
		Action:   "ユーザー名に使用できない文字が含まれていないか確認してください。",
	}
}

// NewEmptyResponseError は空レスポンスエラーを生成する。
// 200レスポンスのボディが0バイトの場合に返される。
func NewEmptyResponseError() *LookupError {
	return &LookupError{
		Code:     ErrCodeEmptyResponse,
		Message:  "GitHub APIから空のレスポンスが返されました。",
		Category: "github",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewUserNotFoundError はユーザー未検出エラーを生成する。
// GitHub APIが404を返した場合に返される。
func NewUserNotFoundError() *LookupError {
	return &LookupError{
		Code:     ErrCodeUserNotFound,
		Message:  "指定されたユーザーが見つかりません。",
		Category: "github",
		Action:   "ユーザー名の綴りを確認してください。",
	}
}

// NewUnexpectedResponseError は予期しないレスポンスエラーを生成する。
// 通信失敗と200/404以外のステータスはどちらもこの種別に分類され、
// より細かい区別は行わない。
func NewUnexpectedResponseError() *LookupError {
	return &LookupError{
		Code:     ErrCodeUnexpectedResponse,
		Message:  "GitHub APIから予期しないレスポンスを受信しました。",
		Category: "github",
		Action:   "ネットワーク接続を確認し、しばらく待ってから再度お試しください。",
	}
}

// NewDecodeFailedError はデコード失敗エラーを生成する。
// 必須フィールドの欠落や型不一致など、スキーマに適合しない場合に返される。
func NewDecodeFailedError() *LookupError {
	return &LookupError{
		Code:     ErrCodeDecodeFailed,
		Message:  "GitHub APIレスポンスの解析に失敗しました。",
		Category: "github",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// 出力フラグメントに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code       string // エラーコード
	Message    string // エラーメッセージ
	Category   string // カテゴリ: validation, remote, system
	Action     string // ユーザー向け対処方法
	StatusCode int    // REMOTE_STATUSの場合のみ: リモートが返したHTTPステータス
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidURL      = "INVALID_URL"
	ErrCodeSSRFBlocked     = "SSRF_BLOCKED"
	ErrCodeFetchFailed     = "FETCH_FAILED"
	ErrCodeRemoteStatus    = "REMOTE_STATUS"
	ErrCodeInvalidResponse = "INVALID_RESPONSE"
	ErrCodeRateLimited     = "RATE_LIMITED"
	ErrCodeInternal        = "INTERNAL_ERROR"
)

// NewInvalidURLError は無効なリモートサイトURLのエラーを生成する。
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("リモートサイトのURLが無効です: %s", reason),
		Category: "validation",
		Action:   "http:// または https:// で始まるリモートサイトのURLを指定してください。",
	}
}

// NewSSRFBlockedError はSSRFブロックエラーを生成する。
func NewSSRFBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeSSRFBlocked,
		Message:  "セキュリティポリシーにより、指定されたURLへのアクセスがブロックされました。",
		Category: "validation",
		Action:   "公開されているWebサイトのURLを指定してください。ローカルネットワークやプライベートIPへのアクセスは許可されていません。",
	}
}

// NewFetchFailedError はトランスポートレベルのフェッチ失敗エラーを生成する。
func NewFetchFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeFetchFailed,
		Message:  fmt.Sprintf("リモートサイトへの接続に失敗しました: %s", reason),
		Category: "remote",
		Action:   "URLが正しいか確認し、しばらく待ってから再度お試しください。",
	}
}

// NewRemoteStatusError はリモートサイトが成功以外のステータスを返した場合のエラーを生成する。
func NewRemoteStatusError(statusCode int) *APIError {
	return &APIError{
		Code:       ErrCodeRemoteStatus,
		Message:    fmt.Sprintf("リモートサイトがステータス %d を返しました。", statusCode),
		Category:   "remote",
		Action:     "リモートサイトでWP REST APIが有効になっているか確認してください。",
		StatusCode: statusCode,
	}
}

// NewInvalidResponseError はレスポンスボディが有効なJSONでない場合のエラーを生成する。
func NewInvalidResponseError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidResponse,
		Message:  fmt.Sprintf("リモートサイトのレスポンスを解析できませんでした: %s", reason),
		Category: "remote",
		Action:   "URLがWordPressサイトを指しているか確認してください。",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "リクエスト数が制限を超えています。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

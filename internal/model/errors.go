// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
// causeは内部ログ用で、レスポンスには含めない。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, system
	Action   string // ユーザー向け対処方法

	cause error
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap は内部原因を返す。
func (e *APIError) Unwrap() error {
	return e.cause
}

// Is はエラーコードが一致する場合にtrueを返す。
// errors.Is(err, model.ErrForbidden) のような判定に使う。
func (e *APIError) Is(target error) bool {
	var t *APIError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithCause は内部原因を付与したコピーを返す。
func (e *APIError) WithCause(cause error) *APIError {
	cp := *e
	cp.cause = cause
	return &cp
}

// 定義済みエラーコード
const (
	ErrCodeConfig              = "CONFIG_ERROR"
	ErrCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	ErrCodeUnauthenticated     = "UNAUTHENTICATED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeAccountExists       = "ACCOUNT_EXISTS"
	ErrCodeRoleConflict        = "ROLE_CONFLICT"
	ErrCodeInvalidAssertion    = "INVALID_ASSERTION"
	ErrCodeAudienceMismatch    = "AUDIENCE_MISMATCH"
	ErrCodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	ErrCodeInvalidToken        = "INVALID_TOKEN"
	ErrCodeInvalidRequest      = "INVALID_REQUEST"
	ErrCodeSSONotConfigured    = "SSO_NOT_CONFIGURED"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

var (
	// ErrConfig はサーバー設定の不備（署名鍵やクライアントIDの未設定）を表す。
	// 呼び出し側の入力には起因しない。
	ErrConfig = &APIError{
		Code:     ErrCodeConfig,
		Message:  "The server is not configured correctly.",
		Category: "system",
		Action:   "Please contact the site operator.",
	}

	// ErrInvalidCredentials はパスワードログインの失敗を表す。
	// どの要素が誤っていたかは明かさない。
	ErrInvalidCredentials = &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "Invalid credentials or role.",
		Category: "auth",
		Action:   "Check your email address and password and try again.",
	}

	// ErrUnauthenticated はBearerトークンの欠落・不正・期限切れを表す。
	ErrUnauthenticated = &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "Invalid or expired authentication token.",
		Category: "auth",
		Action:   "Please sign in again.",
	}

	// ErrForbidden はロール不足、またはSSOでの管理者昇格が許可されていないことを表す。
	ErrForbidden = &APIError{
		Code:     ErrCodeForbidden,
		Message:  "You do not have permission to access this resource.",
		Category: "auth",
		Action:   "Sign in with an account that has the required role.",
	}

	// ErrAccountExists は登録済みメールアドレスでの再登録を表す。
	ErrAccountExists = &APIError{
		Code:     ErrCodeAccountExists,
		Message:  "An account with this email already exists.",
		Category: "validation",
		Action:   "Sign in with the existing account instead.",
	}

	// ErrRoleConflict は既存アカウントと異なるロールでのSSOログインを表す。
	ErrRoleConflict = &APIError{
		Code:     ErrCodeRoleConflict,
		Message:  "Role mismatch for existing user account.",
		Category: "auth",
		Action:   "Sign in with the role assigned to your account.",
	}

	// ErrInvalidAssertion はGoogleのIDアサーションが不正・未検証であることを表す。
	ErrInvalidAssertion = &APIError{
		Code:     ErrCodeInvalidAssertion,
		Message:  "Unable to verify Google identity token.",
		Category: "auth",
		Action:   "Sign in with Google again.",
	}

	// ErrAudienceMismatch はアサーションが別クライアント向けに発行されたことを表す。
	ErrAudienceMismatch = &APIError{
		Code:     ErrCodeAudienceMismatch,
		Message:  "Google token audience mismatch.",
		Category: "auth",
		Action:   "Sign in with Google from this site.",
	}

	// ErrUpstreamUnavailable は外部の検証サービスに到達できないことを表す。
	// 呼び出し側が再試行してよい唯一のエラー。
	ErrUpstreamUnavailable = &APIError{
		Code:     ErrCodeUpstreamUnavailable,
		Message:  "The identity verification service is unavailable.",
		Category: "system",
		Action:   "Please wait a moment and try again.",
	}

	// ErrInvalidToken はトークンのデコード失敗を表す。理由は区別しない。
	ErrInvalidToken = &APIError{
		Code:     ErrCodeInvalidToken,
		Message:  "Invalid token.",
		Category: "auth",
		Action:   "Please sign in again.",
	}

	// ErrSSONotConfigured はGoogle SSOが未設定であることを表す。
	ErrSSONotConfigured = &APIError{
		Code:     ErrCodeSSONotConfigured,
		Message:  "Google SSO is not configured.",
		Category: "system",
		Action:   "Sign in with email and password instead.",
	}
)

// NewConfigError は設定不備エラーを生成する。detailはログにのみ残る。
func NewConfigError(detail string) *APIError {
	return ErrConfig.WithCause(errors.New(detail))
}

// NewInvalidRequestError はリクエスト内容の検証エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("Invalid request payload: %s", reason),
		Category: "validation",
		Action:   "Correct the highlighted fields and try again.",
	}
}

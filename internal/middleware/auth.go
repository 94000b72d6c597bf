// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/hitoshi/be4breach/internal/auth"
	"github.com/hitoshi/be4breach/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// claimsContextKey はリクエストコンテキストに検証済みクレームを格納するためのキー。
var claimsContextKey = contextKey("claims")

// RequestAuthenticator はBearerトークンの検証に必要なインターフェース。
// auth.Serviceの部分集合として定義する。
type RequestAuthenticator interface {
	AuthenticateRequest(ctx context.Context, bearerToken string) (*model.TokenClaims, error)
}

// NewBearerAuthMiddleware はAuthorizationヘッダーからBearerトークンを読み取り、
// 検証済みクレームをリクエストコンテキストに注入するミドルウェアを返す。
// トークンの欠落・不正・期限切れはいずれも同じ401レスポンスになる。
func NewBearerAuthMiddleware(authenticator RequestAuthenticator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := authenticator.AuthenticateRequest(r.Context(), bearerToken(r))
			if err != nil {
				WriteError(w, r, err)
				return
			}

			setLogSubject(r.Context(), claims.Subject)
			next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
		})
	}
}

// NewRequireRoleMiddleware はコンテキストのクレームが指定ロールを持つ場合のみ通過させる。
// NewBearerAuthMiddlewareの内側で使う。
func NewRequireRoleMiddleware(role model.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, _ := ClaimsFromContext(r.Context())
			if err := auth.RequireRole(claims, role); err != nil {
				WriteError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken はAuthorizationヘッダーからトークン部分を取り出す。
// スキーム名は大文字小文字を区別しない。該当しない場合は空文字を返す。
func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// ClaimsFromContext はリクエストコンテキストから検証済みクレームを取得する。
// Bearer認証ミドルウェアを通過したリクエストでのみ有効。
func ClaimsFromContext(ctx context.Context) (*model.TokenClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*model.TokenClaims)
	return claims, ok && claims != nil
}

// ContextWithClaims はコンテキストにクレームを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithClaims(ctx context.Context, claims *model.TokenClaims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

package model

import (
	"strings"
	"time"
)

// Role はアカウントに付与されるロールを表す。
// 閉じた列挙型として扱い、外部表現（大文字小文字の揺れ）はParseRoleで一度だけ正規化する。
type Role string

const (
	// RoleUser は一般ユーザーのロール。
	RoleUser Role = "user"
	// RoleAdmin は管理者のロール。
	RoleAdmin Role = "admin"
)

// ParseRole は外部から受け取ったロール文字列を正規化して返す。
// "User" や " ADMIN " のような表記も受け付ける。未知の値の場合はfalseを返す。
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleUser:
		return RoleUser, true
	case RoleAdmin:
		return RoleAdmin, true
	default:
		return "", false
	}
}

// Valid はロールが既知の値かどうかを返す。
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Provider はアカウントの認証方式を表す。
type Provider string

const (
	// ProviderPassword はメールアドレスとパスワードによる認証。
	ProviderPassword Provider = "password"
	// ProviderGoogle はGoogle SSOによる認証。
	ProviderGoogle Provider = "google"
)

// Account は認証可能な1つのアイデンティティを表す。
// Emailは正規化済み（前後空白除去・小文字化）で、ディレクトリ内で一意。
type Account struct {
	ID           string
	Email        string
	PasswordHash string // SSOアカウントでは空
	Role         Role
	Name         string
	Company      string
	Provider     Provider
	// IsActive は作成時にtrueとなる。無効化する操作は提供しない。
	IsActive     bool
	CreatedAt    time.Time
}

// NormalizeEmail はメールアドレスをディレクトリのキー形式に正規化する。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// TokenClaims は発行済みトークンに署名付きで格納されるクレーム。
// ExpiresAt = IssuedAt + TTL が常に成り立つ。
type TokenClaims struct {
	Subject   string
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// GoogleIdentity はGoogleのIDアサーションを検証した結果を表す。
type GoogleIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Audience      string
	Name          string
}

// Registration はパスワードアカウントの登録内容。
type Registration struct {
	Name     string
	Email    string
	Password string
	Role     Role
	Company  string
}

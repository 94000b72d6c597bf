package handler

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/hitoshi/be4breach/internal/auth"
	"github.com/hitoshi/be4breach/internal/model"
)

// パスワードの長さ制約（バイト数）。上限はbcryptの入力上限に合わせる。
const (
	minPasswordBytes = 8
	maxPasswordBytes = auth.MaxPasswordBytes
)

// fieldErrors はリクエスト検証で見つかった問題を集める。
type fieldErrors []string

func (f *fieldErrors) addf(format string, args ...any) {
	*f = append(*f, fmt.Sprintf(format, args...))
}

// err は問題があればINVALID_REQUESTエラーを返す。
func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return model.NewInvalidRequestError(strings.Join(f, "; "))
}

// checkLength は文字数が[min, max]に収まるかを検証する。minが0なら任意項目。
func (f *fieldErrors) checkLength(field, value string, min, max int) {
	n := utf8.RuneCountInString(value)
	switch {
	case min > 0 && n == 0:
		f.addf("%s is required", field)
	case n < min:
		f.addf("%s must be at least %d characters", field, min)
	case n > max:
		f.addf("%s must be at most %d characters", field, max)
	}
}

// checkEmail はメールアドレスの形式を検証する。表示名付きの形式は受け付けない。
func (f *fieldErrors) checkEmail(value string) {
	if value == "" {
		f.addf("email is required")
		return
	}
	if !validEmail(value) {
		f.addf("email is not a valid address")
	}
}

// checkPassword はパスワードのバイト長を検証する。
func (f *fieldErrors) checkPassword(value string) {
	switch n := len(value); {
	case n == 0:
		f.addf("password is required")
	case n < minPasswordBytes:
		f.addf("password must be at least %d bytes", minPasswordBytes)
	case n > maxPasswordBytes:
		f.addf("password must be at most %d bytes", maxPasswordBytes)
	}
}

// validEmail はaddr-spec形式（local@domain）のメールアドレスかを返す。
func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Name != "" || addr.Address != s {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	return at > 0 && strings.Contains(s[at+1:], ".")
}

// parseRoleParam はロール指定を解釈する。空の場合はuserとして扱う。
func parseRoleParam(s string) (model.Role, error) {
	if strings.TrimSpace(s) == "" {
		return model.RoleUser, nil
	}
	role, ok := model.ParseRole(s)
	if !ok {
		return "", model.NewInvalidRequestError("role must be user or admin")
	}
	return role, nil
}

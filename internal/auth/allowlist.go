package auth

import (
	"strings"

	"github.com/hitoshi/be4breach/internal/model"
)

// AdminAllowlist はGoogle SSOで管理者ロールを要求できるアカウントを判定する。
// メールアドレス単位とドメイン単位の両方で許可できる。
// どちらも空の場合、AllowAnyが明示的に有効でない限り全員を拒否する。
type AdminAllowlist struct {
	emails   map[string]struct{}
	domains  map[string]struct{}
	allowAny bool
}

// NewAdminAllowlist はAdminAllowlistを生成する。
// 各値は正規化され、ドメインの先頭の"@"は取り除かれる。
func NewAdminAllowlist(emails, domains []string, allowAny bool) *AdminAllowlist {
	a := &AdminAllowlist{
		emails:   make(map[string]struct{}, len(emails)),
		domains:  make(map[string]struct{}, len(domains)),
		allowAny: allowAny,
	}
	for _, e := range emails {
		if e = model.NormalizeEmail(e); e != "" {
			a.emails[e] = struct{}{}
		}
	}
	for _, d := range domains {
		d = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(d)), "@")
		if d != "" {
			a.domains[d] = struct{}{}
		}
	}
	return a
}

// Empty は許可リストが1件も設定されていないかを返す。
func (a *AdminAllowlist) Empty() bool {
	return a == nil || (len(a.emails) == 0 && len(a.domains) == 0)
}

// Allows はメールアドレスが管理者として許可されているかを返す。
func (a *AdminAllowlist) Allows(email string) bool {
	if a == nil {
		return false
	}
	if a.Empty() {
		return a.allowAny
	}

	email = model.NormalizeEmail(email)
	if _, ok := a.emails[email]; ok {
		return true
	}

	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return false
	}
	_, ok := a.domains[email[at+1:]]
	return ok
}

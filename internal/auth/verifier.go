package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"

	"github.com/hitoshi/be4breach/internal/model"
)

const (
	// VerifyModeTokenInfo はGoogleのtokeninfoエンドポイントで検証する方式。
	VerifyModeTokenInfo = "tokeninfo"
	// VerifyModeJWKS はGoogleの公開鍵で署名をローカル検証する方式。
	VerifyModeJWKS = "jwks"
)

// IdentityVerifier はGoogleのIDアサーションを検証し、信頼できるアイデンティティを返す。
type IdentityVerifier interface {
	// Verify はアサーションを検証する。
	// expectedAudienceが空でない場合、audが一致しなければmodel.ErrAudienceMismatchを返す。
	// 外部サービスに到達できない場合のみmodel.ErrUpstreamUnavailableを返す。
	Verify(ctx context.Context, assertion, expectedAudience string) (*model.GoogleIdentity, error)
}

// checkIdentity は検証方式に共通するチェックを行う。
// 順序: メールアドレスの存在と検証済みフラグ、次にaudience。
func checkIdentity(id *model.GoogleIdentity, expectedAudience string) (*model.GoogleIdentity, error) {
	if id.Email == "" || !id.EmailVerified {
		return nil, model.ErrInvalidAssertion.WithCause(errors.New("google account email is not verified"))
	}
	if expectedAudience != "" && id.Audience != expectedAudience {
		return nil, model.ErrAudienceMismatch.WithCause(fmt.Errorf("unexpected audience %q", id.Audience))
	}
	id.Email = model.NormalizeEmail(id.Email)
	return id, nil
}

// isTransportError は通信失敗（接続エラー・タイムアウト）かどうかを判定する。
func isTransportError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// isTimeout はエラーがタイムアウトに起因するかを返す。
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

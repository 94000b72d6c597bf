package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/hitoshi/be4breach/internal/model"
)

const (
	// GoogleJWKSURL はGoogleがIDトークンの署名に使う公開鍵の配布URL。
	GoogleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"
	// GoogleIssuer はGoogleのIDトークンの発行者。
	GoogleIssuer = "https://accounts.google.com"
)

// Googleは"https://"なしの発行者を返すこともある
var googleIssuers = map[string]struct{}{
	GoogleIssuer:          {},
	"accounts.google.com": {},
}

// googleIDTokenClaims はIDトークンから取り出すクレーム。
type googleIDTokenClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
}

// OIDCVerifier はGoogleの公開鍵でIDトークンの署名をローカル検証する。
// 公開鍵はgo-oidcのRemoteKeySetがキャッシュし、未知のkidの場合のみ再取得する。
type OIDCVerifier struct {
	keys     oidc.KeySet
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier はGoogleの公開鍵を取得するOIDCVerifierを生成する。
// 公開鍵の取得にはtimeoutを設定したHTTPクライアントを使う。
func NewOIDCVerifier(ctx context.Context, jwksURL string, timeout time.Duration) *OIDCVerifier {
	if jwksURL == "" {
		jwksURL = GoogleJWKSURL
	}
	if timeout <= 0 {
		timeout = DefaultVerifyTimeout
	}
	client := &http.Client{Timeout: timeout}
	keys := oidc.NewRemoteKeySet(oidc.ClientContext(ctx, client), jwksURL)
	return newOIDCVerifier(keys, nil)
}

// newOIDCVerifier は任意のKeySetでOIDCVerifierを生成する。nowがnilの場合は現在時刻を使う。
func newOIDCVerifier(keys oidc.KeySet, now func() time.Time) *OIDCVerifier {
	cfg := &oidc.Config{
		// audienceは呼び出し側の期待値で検証し、不一致をAudienceMismatchとして区別する
		SkipClientIDCheck: true,
		// 2種類の発行者表記を受け付けるため自前で検証する
		SkipIssuerCheck: true,
		Now:             now,
	}
	return &OIDCVerifier{
		keys:     keys,
		verifier: oidc.NewVerifier(GoogleIssuer, keys, cfg),
	}
}

// Verify はIDトークンの署名・有効期限・発行者を検証し、アイデンティティを返す。
// 公開鍵の取得に失敗した場合はmodel.ErrUpstreamUnavailableを返す。
func (v *OIDCVerifier) Verify(ctx context.Context, assertion, expectedAudience string) (*model.GoogleIdentity, error) {
	if assertion == "" {
		return nil, model.ErrInvalidAssertion.WithCause(errors.New("empty assertion"))
	}

	// IDTokenVerifierは鍵取得エラーを文字列化してしまうため、先に署名検証だけを行い失敗原因を判別する
	if _, err := v.keys.VerifySignature(ctx, assertion); err != nil {
		if isKeyFetchError(err) {
			return nil, model.ErrUpstreamUnavailable.WithCause(err)
		}
		return nil, model.ErrInvalidAssertion.WithCause(err)
	}

	idToken, err := v.verifier.Verify(ctx, assertion)
	if err != nil {
		return nil, model.ErrInvalidAssertion.WithCause(err)
	}
	if _, ok := googleIssuers[idToken.Issuer]; !ok {
		return nil, model.ErrInvalidAssertion.WithCause(fmt.Errorf("unexpected issuer %q", idToken.Issuer))
	}

	var claims googleIDTokenClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, model.ErrInvalidAssertion.WithCause(fmt.Errorf("failed to parse claims: %w", err))
	}

	name := claims.Name
	if name == "" {
		name = claims.GivenName
	}

	return checkIdentity(&model.GoogleIdentity{
		Subject:       idToken.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Audience:      pickAudience(idToken.Audience, expectedAudience),
		Name:          name,
	}, expectedAudience)
}

// pickAudience はaudクレーム（複数可）から比較対象の値を選ぶ。
func pickAudience(aud []string, expected string) string {
	for _, a := range aud {
		if a == expected {
			return a
		}
	}
	if len(aud) > 0 {
		return aud[0]
	}
	return ""
}

// keyFetchFailureText はgo-oidc（v3.18.0で確認）が鍵配布エンドポイントの非200応答に付ける文言。
// 文言が変わるとTestRemoteKeySet_NonOKResponse_MessageIsRecognizedが失敗する。
const keyFetchFailureText = "get keys failed"

// isKeyFetchError は公開鍵の取得失敗かどうかを判定する。
// go-oidcは鍵配布エンドポイントの非200応答をラップせずに返すため、メッセージでも判定する。
func isKeyFetchError(err error) bool {
	if isTransportError(err) || errors.Is(err, context.Canceled) {
		return true
	}
	return strings.Contains(err.Error(), keyFetchFailureText)
}

// compile-time interface check
var _ IdentityVerifier = (*OIDCVerifier)(nil)

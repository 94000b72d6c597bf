package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hitoshi/be4breach/internal/model"
)

const (
	// DefaultTokenInfoURL はGoogleのIDトークン検証エンドポイント。
	DefaultTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"
	// DefaultVerifyTimeout は外部検証呼び出しのタイムアウト。
	DefaultVerifyTimeout = 8 * time.Second

	// tokeninfoレスポンスの最大読み取りサイズ
	maxTokenInfoBodySize = 64 * 1024
)

// TokenInfoVerifier はtokeninfoエンドポイントでIDアサーションを検証する。
// 1回のGETのみ行い、リトライはしない。
type TokenInfoVerifier struct {
	endpoint string
	client   *http.Client
}

// NewTokenInfoVerifier はTokenInfoVerifierを生成する。
// endpointが空の場合はDefaultTokenInfoURL、timeoutが0以下の場合はDefaultVerifyTimeoutを使用する。
func NewTokenInfoVerifier(endpoint string, timeout time.Duration) *TokenInfoVerifier {
	if endpoint == "" {
		endpoint = DefaultTokenInfoURL
	}
	if timeout <= 0 {
		timeout = DefaultVerifyTimeout
	}
	return &TokenInfoVerifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// tokenInfoResponse はtokeninfoエンドポイントのレスポンス。
// email_verifiedは文字列（"true"）で返るため両方の表現を受け付ける。
type tokenInfoResponse struct {
	Sub           string   `json:"sub"`
	Email         string   `json:"email"`
	EmailVerified flexBool `json:"email_verified"`
	Aud           string   `json:"aud"`
	Name          string   `json:"name"`
	GivenName     string   `json:"given_name"`
}

// flexBool はJSONの真偽値と文字列の真偽値の両方をデコードする。
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case bool:
		*b = flexBool(t)
	case string:
		parsed, err := strconv.ParseBool(t)
		if err != nil {
			*b = false
			return nil
		}
		*b = flexBool(parsed)
	default:
		*b = false
	}
	return nil
}

// Verify はtokeninfoエンドポイントにアサーションを問い合わせる。
// 通信失敗・タイムアウト・5xxはmodel.ErrUpstreamUnavailable、
// 4xx・デコード不能なレスポンスはmodel.ErrInvalidAssertionを返す。
func (v *TokenInfoVerifier) Verify(ctx context.Context, assertion, expectedAudience string) (*model.GoogleIdentity, error) {
	if assertion == "" {
		return nil, model.ErrInvalidAssertion.WithCause(fmt.Errorf("empty assertion"))
	}

	reqURL := v.endpoint + "?" + url.Values{"id_token": {assertion}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokeninfo request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		// url.Errorにはid_tokenを含むURLが入るため、原因には含めない
		slog.Warn("tokeninfo request failed", slog.Bool("timeout", isTimeout(err)))
		return nil, model.ErrUpstreamUnavailable.WithCause(fmt.Errorf("tokeninfo request failed (timeout=%t)", isTimeout(err)))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, model.ErrUpstreamUnavailable.WithCause(fmt.Errorf("tokeninfo returned status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, model.ErrInvalidAssertion.WithCause(fmt.Errorf("tokeninfo returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenInfoBodySize))
	if err != nil {
		return nil, model.ErrUpstreamUnavailable.WithCause(fmt.Errorf("failed to read tokeninfo response: %w", err))
	}

	var info tokenInfoResponse
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, model.ErrInvalidAssertion.WithCause(fmt.Errorf("failed to parse tokeninfo response: %w", err))
	}

	name := info.Name
	if name == "" {
		name = info.GivenName
	}

	return checkIdentity(&model.GoogleIdentity{
		Subject:       info.Sub,
		Email:         info.Email,
		EmailVerified: bool(info.EmailVerified),
		Audience:      info.Aud,
		Name:          name,
	}, expectedAudience)
}

// compile-time interface check
var _ IdentityVerifier = (*TokenInfoVerifier)(nil)

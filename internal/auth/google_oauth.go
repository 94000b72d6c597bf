package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/hitoshi/be4breach/internal/model"
)

const (
	defaultGoogleAuthURL  = "https://accounts.google.com/o/oauth2/v2/auth"
	defaultGoogleTokenURL = "https://oauth2.googleapis.com/token"

	// stateSeparator はstate値のnonceとロールの区切り文字。
	stateSeparator = "."
)

// GoogleOAuthConfig はGoogle OAuthプロバイダーの設定。
type GoogleOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Timeout      time.Duration

	// テスト用にオーバーライド可能なURL
	AuthURL  string
	TokenURL string
}

// GoogleOAuthProvider はGoogle OAuth 2.0の認可コードフローを提供する。
// コード交換で得たIDトークンの検証はIdentityVerifierに任せる。
type GoogleOAuthProvider struct {
	config *oauth2.Config
	client *http.Client
}

// NewGoogleOAuthProvider はGoogleOAuthProviderを生成する。
func NewGoogleOAuthProvider(cfg GoogleOAuthConfig) *GoogleOAuthProvider {
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultGoogleAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultGoogleTokenURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultVerifyTimeout
	}
	return &GoogleOAuthProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// AuthCodeURL はGoogleの認可URLを生成する。
// 毎回同意画面を表示し、オフラインアクセスを要求する。
func (p *GoogleOAuthProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// CanExchange はコード交換に必要なクライアントシークレットが設定されているかを返す。
func (p *GoogleOAuthProvider) CanExchange() bool {
	return p.config.ClientSecret != "" && p.config.RedirectURL != ""
}

// ExchangeIDToken は認可コードをトークンに交換し、IDトークンを返す。
// 通信失敗・5xxはmodel.ErrUpstreamUnavailable、Googleによる拒否はmodel.ErrInvalidAssertionを返す。
func (p *GoogleOAuthProvider) ExchangeIDToken(ctx context.Context, code string) (string, error) {
	if !p.CanExchange() {
		return "", model.NewConfigError("GOOGLE_CLIENT_SECRET or GOOGLE_REDIRECT_URI is not configured")
	}
	if code == "" {
		return "", model.ErrInvalidAssertion.WithCause(errors.New("missing authorization code"))
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil &&
			retrieveErr.Response.StatusCode < http.StatusInternalServerError {
			return "", model.ErrInvalidAssertion.WithCause(fmt.Errorf("code exchange rejected: %s", retrieveErr.ErrorCode))
		}
		return "", model.ErrUpstreamUnavailable.WithCause(fmt.Errorf("code exchange failed: %w", err))
	}

	idToken, ok := token.Extra("id_token").(string)
	if !ok || idToken == "" {
		return "", model.ErrInvalidAssertion.WithCause(errors.New("missing id_token in token response"))
	}
	return idToken, nil
}

// EncodeOAuthState はCSRF対策のnonceと要求ロールをstate値にまとめる。
func EncodeOAuthState(nonce string, role model.Role) string {
	return nonce + stateSeparator + string(role)
}

// DecodeOAuthState はstate値をnonceとロールに分解する。
func DecodeOAuthState(state string) (nonce string, role model.Role, ok bool) {
	i := strings.LastIndex(state, stateSeparator)
	if i <= 0 {
		return "", "", false
	}
	role, ok = model.ParseRole(state[i+1:])
	if !ok {
		return "", "", false
	}
	return state[:i], role, true
}

// compile-time interface check
var _ OAuthProvider = (*GoogleOAuthProvider)(nil)

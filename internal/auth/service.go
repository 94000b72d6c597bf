// Package auth はパスワード認証、Google SSO、アクセストークンの発行と検証、ロールによる認可を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/be4breach/internal/model"
)

// TokenTypeBearer はレスポンスに含めるトークン種別。
const TokenTypeBearer = "bearer"

// ログイン方式（メトリクスのラベル）
const (
	MethodPassword = "password"
	MethodGoogle   = "google"
	MethodRegister = "register"
)

// 認証結果（メトリクスのラベル）
const (
	OutcomeSuccess = "success"
	OutcomeDenied  = "denied"
	OutcomeError   = "error"
)

// dummyPassword はアカウントが存在しない場合のタイミング均一化に使う照合用パスワード。
const dummyPassword = "be4breach-timing-equalizer"

// AccountDirectory は認証サービスが必要とするアカウントディレクトリのインターフェース。
type AccountDirectory interface {
	// Lookup はメールアドレスでアカウントを検索する。存在しない場合はnilを返す。
	Lookup(ctx context.Context, email string) (*model.Account, error)
	// CreatePasswordAccount はパスワード認証のユーザーアカウントを作成する。
	CreatePasswordAccount(ctx context.Context, reg model.Registration) (*model.Account, error)
	// CreateOrReuseGoogleAccount はSSOアカウントを作成、または既存アカウントを返す。
	CreateOrReuseGoogleAccount(ctx context.Context, email string, role model.Role, name string) (*model.Account, error)
}

// OAuthProvider はGoogleの認可コードフローのインターフェース。
type OAuthProvider interface {
	// AuthCodeURL は認可URLを生成する。
	AuthCodeURL(state string) string
	// CanExchange はコード交換が可能な設定かどうかを返す。
	CanExchange() bool
	// ExchangeIDToken は認可コードをIDトークンに交換する。
	ExchangeIDToken(ctx context.Context, code string) (string, error)
}

// MetricsRecorder は認証イベントを記録する。
type MetricsRecorder interface {
	RecordAuthAttempt(method, outcome string)
	ObserveIdentityVerification(outcome string, d time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) RecordAuthAttempt(string, string)                  {}
func (noopMetrics) ObserveIdentityVerification(string, time.Duration) {}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	GoogleClientID    string
	GoogleRedirectURI string
}

// ServiceDeps はNewServiceに必要な依存関係をまとめた構造体。
type ServiceDeps struct {
	Directory AccountDirectory
	Hasher    PasswordHasher
	Tokens    *TokenCodec
	Verifier  IdentityVerifier
	OAuth     OAuthProvider
	Allowlist *AdminAllowlist
	Metrics   MetricsRecorder
	Config    ServiceConfig
}

// AuthResult はログイン成功時に返す発行済みトークンとアカウント情報。
type AuthResult struct {
	AccessToken string
	TokenType   string
	Claims      *model.TokenClaims
	Account     *model.Account
}

// Service は認証・認可に関するビジネスロジックを提供する。
type Service struct {
	directory AccountDirectory
	hasher    PasswordHasher
	tokens    *TokenCodec
	verifier  IdentityVerifier
	oauth     OAuthProvider
	allowlist *AdminAllowlist
	metrics   MetricsRecorder
	config    ServiceConfig

	dummyHash string
}

// NewService はServiceを生成する。
func NewService(deps ServiceDeps) *Service {
	s := &Service{
		directory: deps.Directory,
		hasher:    deps.Hasher,
		tokens:    deps.Tokens,
		verifier:  deps.Verifier,
		oauth:     deps.OAuth,
		allowlist: deps.Allowlist,
		metrics:   deps.Metrics,
		config:    deps.Config,
	}
	if s.metrics == nil {
		s.metrics = noopMetrics{}
	}
	if s.hasher != nil {
		if h, err := s.hasher.Hash(dummyPassword); err == nil {
			s.dummyHash = h
		} else {
			slog.Warn("failed to prepare dummy password hash", slog.String("error", err.Error()))
		}
	}
	return s
}

// GoogleEnabled はGoogle SSOが設定されているかを返す。
func (s *Service) GoogleEnabled() bool {
	return s.config.GoogleClientID != "" && s.verifier != nil
}

// Register はユーザーロールのパスワードアカウントを作成し、トークンを発行する。
func (s *Service) Register(ctx context.Context, reg model.Registration) (*AuthResult, error) {
	// 公開登録で作成できるのはユーザーロールのみ
	reg.Role = model.RoleUser
	acc, err := s.directory.CreatePasswordAccount(ctx, reg)
	if err != nil {
		s.metrics.RecordAuthAttempt(MethodRegister, outcomeOf(err))
		return nil, err
	}

	result, err := s.issue(acc)
	if err != nil {
		s.metrics.RecordAuthAttempt(MethodRegister, OutcomeError)
		return nil, err
	}

	slog.Info("new user registered", slog.String("email", acc.Email))
	s.metrics.RecordAuthAttempt(MethodRegister, OutcomeSuccess)
	return result, nil
}

// LoginWithPassword はメールアドレスとパスワードで認証し、トークンを発行する。
// アカウントの不在、SSOアカウント、ロール不一致、無効化、パスワード誤りは
// すべて同一のmodel.ErrInvalidCredentialsとして返す。
// 現状アカウントを無効化する経路はなく、IsActiveは作成時のtrueのままとなる。
// 無効化のチェックはリポジトリに直接保存された無効アカウントに対してのみ働く。
func (s *Service) LoginWithPassword(ctx context.Context, identifier, password string, requiredRole model.Role) (*AuthResult, error) {
	acc, err := s.directory.Lookup(ctx, identifier)
	if err != nil {
		s.metrics.RecordAuthAttempt(MethodPassword, OutcomeError)
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}

	var reason string
	switch {
	case acc == nil:
		s.hasher.Verify(password, s.dummyHash)
		reason = "account not found"
	case acc.Provider != model.ProviderPassword || acc.PasswordHash == "":
		s.hasher.Verify(password, s.dummyHash)
		reason = "account does not use password authentication"
	case !s.hasher.Verify(password, acc.PasswordHash):
		reason = "password mismatch"
	case acc.Role != requiredRole:
		reason = "role mismatch"
	case !acc.IsActive:
		reason = "account is inactive"
	}
	if reason != "" {
		slog.Info("password login rejected",
			slog.String("role", string(requiredRole)),
			slog.String("reason", reason),
		)
		s.metrics.RecordAuthAttempt(MethodPassword, OutcomeDenied)
		return nil, model.ErrInvalidCredentials.WithCause(errors.New(reason))
	}

	result, err := s.issue(acc)
	if err != nil {
		s.metrics.RecordAuthAttempt(MethodPassword, OutcomeError)
		return nil, err
	}
	s.metrics.RecordAuthAttempt(MethodPassword, OutcomeSuccess)
	return result, nil
}

// LoginWithGoogle はGoogleのIDアサーションを検証し、トークンを発行する。
// 管理者ロールの要求は許可リストに含まれるメールアドレスのみ受け付ける。
// 既存アカウントのロールと要求ロールが異なる場合はmodel.ErrRoleConflictを返し、ロールは変更しない。
func (s *Service) LoginWithGoogle(ctx context.Context, assertion string, requestedRole model.Role) (*AuthResult, error) {
	result, err := s.loginWithGoogle(ctx, assertion, requestedRole)
	s.metrics.RecordAuthAttempt(MethodGoogle, outcomeOf(err))
	return result, err
}

func (s *Service) loginWithGoogle(ctx context.Context, assertion string, requestedRole model.Role) (*AuthResult, error) {
	if !s.GoogleEnabled() {
		return nil, model.NewConfigError("GOOGLE_CLIENT_ID is not configured")
	}
	if !requestedRole.Valid() {
		return nil, model.NewInvalidRequestError("unknown role")
	}

	start := time.Now()
	identity, err := s.verifier.Verify(ctx, assertion, s.config.GoogleClientID)
	s.metrics.ObserveIdentityVerification(outcomeOf(err), time.Since(start))
	if err != nil {
		slog.Warn("google identity verification failed", slog.String("error", err.Error()))
		return nil, err
	}

	if requestedRole == model.RoleAdmin && !s.allowlist.Allows(identity.Email) {
		slog.Warn("admin sso rejected by allowlist", slog.String("email", identity.Email))
		return nil, model.ErrForbidden.WithCause(errors.New("admin access requires allowlist approval"))
	}

	acc, err := s.directory.CreateOrReuseGoogleAccount(ctx, identity.Email, requestedRole, identity.Name)
	if err != nil {
		return nil, err
	}
	// 無効化経路はないが、無効なアカウントが保存されていればトークンを発行しない
	if !acc.IsActive {
		return nil, model.ErrForbidden.WithCause(errors.New("account is inactive"))
	}

	return s.issue(acc)
}

// GoogleAuthURL は要求ロールを埋め込んだGoogleの認可URLを返す。
// SSOが未設定の場合はmodel.ErrSSONotConfiguredを返す。
func (s *Service) GoogleAuthURL(role model.Role, nonce string) (string, error) {
	if s.oauth == nil || s.config.GoogleClientID == "" || s.config.GoogleRedirectURI == "" {
		return "", model.ErrSSONotConfigured
	}
	if !role.Valid() {
		return "", model.NewInvalidRequestError("unknown role")
	}
	return s.oauth.AuthCodeURL(EncodeOAuthState(nonce, role)), nil
}

// LoginWithGoogleCode は認可コードをIDトークンに交換してからSSOログインを行う。
func (s *Service) LoginWithGoogleCode(ctx context.Context, code string, requestedRole model.Role) (*AuthResult, error) {
	if s.oauth == nil || !s.oauth.CanExchange() {
		return nil, model.ErrSSONotConfigured
	}
	idToken, err := s.oauth.ExchangeIDToken(ctx, code)
	if err != nil {
		s.metrics.RecordAuthAttempt(MethodGoogle, outcomeOf(err))
		return nil, err
	}
	return s.LoginWithGoogle(ctx, idToken, requestedRole)
}

// AuthenticateRequest はBearerトークンを検証してクレームを返す。
// トークンの欠落・不正・期限切れはmodel.ErrUnauthenticated、署名鍵の未設定はmodel.ErrConfigを返す。
func (s *Service) AuthenticateRequest(_ context.Context, bearerToken string) (*model.TokenClaims, error) {
	if bearerToken == "" {
		return nil, model.ErrUnauthenticated.WithCause(errors.New("missing bearer token"))
	}
	claims, err := s.tokens.Decode(bearerToken)
	if err != nil {
		if errors.Is(err, model.ErrConfig) {
			return nil, err
		}
		return nil, model.ErrUnauthenticated.WithCause(err)
	}
	return claims, nil
}

// RequireRole はクレームのロールが要求ロールと一致するかを検証する。
// ロールに階層はなく、adminもuser専用の操作にはアクセスできない。
func (s *Service) RequireRole(claims *model.TokenClaims, role model.Role) error {
	return RequireRole(claims, role)
}

// RequireRole はクレームのロールが要求ロールと完全一致しない場合にmodel.ErrForbiddenを返す。
func RequireRole(claims *model.TokenClaims, role model.Role) error {
	if claims == nil {
		return model.ErrUnauthenticated
	}
	if claims.Role != role {
		return model.ErrForbidden.WithCause(fmt.Errorf("role %q is required", role))
	}
	return nil
}

// Profile はクレームの主体のアカウントを返す。存在しない場合はnilを返す。
func (s *Service) Profile(ctx context.Context, claims *model.TokenClaims) (*model.Account, error) {
	if claims == nil {
		return nil, model.ErrUnauthenticated
	}
	acc, err := s.directory.Lookup(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}
	return acc, nil
}

// issue はアカウントのメールアドレスとロールでトークンを発行する。
func (s *Service) issue(acc *model.Account) (*AuthResult, error) {
	token, claims, err := s.tokens.Issue(acc.Email, acc.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &AuthResult{
		AccessToken: token,
		TokenType:   TokenTypeBearer,
		Claims:      claims,
		Account:     acc,
	}, nil
}

// outcomeOf はエラーをメトリクスの結果ラベルに分類する。
func outcomeOf(err error) string {
	var apiErr *model.APIError
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.As(err, &apiErr) && apiErr.Code != model.ErrCodeConfig &&
		apiErr.Code != model.ErrCodeUpstreamUnavailable && apiErr.Code != model.ErrCodeInternal:
		return OutcomeDenied
	default:
		return OutcomeError
	}
}

// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/be4breach/internal/auth"
	"github.com/hitoshi/be4breach/internal/middleware"
	"github.com/hitoshi/be4breach/internal/model"
)

const oauthStateCookie = "oauth_state"

// minIDTokenLength はIDトークンとして受け付ける最小文字数。
const minIDTokenLength = 10

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, reg model.Registration) (*auth.AuthResult, error)
	LoginWithPassword(ctx context.Context, email, password string, role model.Role) (*auth.AuthResult, error)
	LoginWithGoogle(ctx context.Context, assertion string, role model.Role) (*auth.AuthResult, error)
	GoogleAuthURL(role model.Role, nonce string) (string, error)
	LoginWithGoogleCode(ctx context.Context, code string, role model.Role) (*auth.AuthResult, error)
	Profile(ctx context.Context, claims *model.TokenClaims) (*model.Account, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieSecure bool
}

// AuthHandler はログイン・登録・Google SSO関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Company  string `json:"company"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type googleLoginRequest struct {
	IDToken string `json:"id_token"`
	Role    string `json:"role"`
}

type authUserResponse struct {
	Email string     `json:"email"`
	Name  string     `json:"name,omitempty"`
	Role  model.Role `json:"role"`
}

type authResponse struct {
	AccessToken string           `json:"access_token"`
	TokenType   string           `json:"token_type"`
	Role        model.Role       `json:"role"`
	User        authUserResponse `json:"user"`
}

type meResponse struct {
	Email     string     `json:"email"`
	Name      string     `json:"name,omitempty"`
	Company   string     `json:"company,omitempty"`
	Role      model.Role `json:"role"`
	Provider  string     `json:"provider,omitempty"`
	IssuedAt  time.Time  `json:"issued_at"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// Register はユーザーロールのパスワードアカウントを作成する。
// POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	reg := model.Registration{
		Name:     strings.TrimSpace(req.Name),
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
		Company:  strings.TrimSpace(req.Company),
	}

	var errs fieldErrors
	errs.checkLength("name", reg.Name, 2, 100)
	errs.checkEmail(reg.Email)
	errs.checkPassword(reg.Password)
	errs.checkLength("company", reg.Company, 0, 120)
	if err := errs.err(); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	result, err := h.service.Register(r.Context(), reg)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAuthResponse(result))
}

// Login はユーザーロールでパスワードログインする。
// POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.passwordLogin(w, r, model.RoleUser)
}

// AdminLogin は管理者ロールでパスワードログインする。
// POST /api/v1/auth/admin/login
func (h *AuthHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	h.passwordLogin(w, r, model.RoleAdmin)
}

func (h *AuthHandler) passwordLogin(w http.ResponseWriter, r *http.Request, role model.Role) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	email := strings.TrimSpace(req.Email)
	var errs fieldErrors
	errs.checkEmail(email)
	if req.Password == "" {
		errs.addf("password is required")
	}
	if err := errs.err(); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	result, err := h.service.LoginWithPassword(r.Context(), email, req.Password, role)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuthResponse(result))
}

// GoogleLogin はクライアントが取得したGoogleのIDトークンでログインする。
// POST /api/v1/auth/google
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	var req googleLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	idToken := strings.TrimSpace(req.IDToken)
	if len(idToken) < minIDTokenLength {
		middleware.WriteError(w, r, model.NewInvalidRequestError("id_token is required"))
		return
	}
	role, err := parseRoleParam(req.Role)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	result, err := h.service.LoginWithGoogle(r.Context(), idToken, role)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuthResponse(result))
}

// GoogleURL はGoogleの認可URLを返し、state検証用のnonceをCookieに保存する。
// GET /api/v1/auth/google/url?role=user
func (h *AuthHandler) GoogleURL(w http.ResponseWriter, r *http.Request) {
	role, err := parseRoleParam(r.URL.Query().Get("role"))
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	nonce, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	url, err := h.service.GoogleAuthURL(role, nonce)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	// nonceをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    nonce,
		Path:     "/",
		MaxAge:   600, // 10分
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// GoogleCallback は認可コードをIDトークンに交換してSSOログインする。
// GET /api/v1/auth/google/callback?code=xxx&state=yyy
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	// 1. stateの検証（CSRF対策）
	nonce, role, ok := auth.DecodeOAuthState(query.Get("state"))
	stateCookie, err := r.Cookie(oauthStateCookie)
	if !ok || err != nil || stateCookie.Value != nonce {
		slog.Warn("oauth state mismatch")
		middleware.WriteError(w, r, model.NewInvalidRequestError("invalid state parameter"))
		return
	}

	// stateクッキーを削除
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	if reason := query.Get("error"); reason != "" {
		slog.Info("google authorization was not granted", slog.String("reason", reason))
		middleware.WriteError(w, r, model.NewInvalidRequestError("google authorization was not granted"))
		return
	}

	// 2. 認可コードの取得
	code := query.Get("code")
	if code == "" {
		middleware.WriteError(w, r, model.NewInvalidRequestError("missing authorization code"))
		return
	}

	// 3. 認証処理
	result, err := h.service.LoginWithGoogleCode(r.Context(), code, role)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuthResponse(result))
}

// Me は現在のトークンのクレームとアカウント情報を返す。
// GET /api/v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, r, model.ErrUnauthenticated)
		return
	}

	resp := meResponse{
		Email:     claims.Subject,
		Role:      claims.Role,
		IssuedAt:  claims.IssuedAt.UTC(),
		ExpiresAt: claims.ExpiresAt.UTC(),
	}

	acc, err := h.service.Profile(r.Context(), claims)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	if acc != nil {
		resp.Name = acc.Name
		resp.Company = acc.Company
		resp.Provider = string(acc.Provider)
	}

	writeJSON(w, http.StatusOK, resp)
}

// toAuthResponse は認証結果をレスポンス形式に変換する。
func toAuthResponse(result *auth.AuthResult) authResponse {
	return authResponse{
		AccessToken: result.AccessToken,
		TokenType:   result.TokenType,
		Role:        result.Account.Role,
		User: authUserResponse{
			Email: result.Account.Email,
			Name:  result.Account.Name,
			Role:  result.Account.Role,
		},
	}
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

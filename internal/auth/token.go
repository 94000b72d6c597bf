package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/be4breach/internal/model"
)

// DefaultAlgorithm はJWT_ALGORITHM未指定時の署名アルゴリズム。
const DefaultAlgorithm = "HS256"

// signingMethods は受け付ける対称鍵署名アルゴリズム。
var signingMethods = map[string]*jwt.SigningMethodHMAC{
	"HS256": jwt.SigningMethodHS256,
	"HS384": jwt.SigningMethodHS384,
	"HS512": jwt.SigningMethodHS512,
}

// TokenConfig はTokenCodecの設定。
type TokenConfig struct {
	Secret    string
	Algorithm string
	TTL       time.Duration
	// Now は現在時刻を返す。nilの場合はtime.Nowを使用する（テスト用に差し替え可能）。
	Now func() time.Time
}

// accessTokenClaims はJWTにシリアライズされるクレーム {sub, role, iat, exp}。
type accessTokenClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// TokenCodec は署名付き・期限付きのアクセストークンを発行・検証する。
type TokenCodec struct {
	secret []byte
	method *jwt.SigningMethodHMAC
	ttl    time.Duration
	now    func() time.Time
}

// SupportedAlgorithm はアルゴリズム名がサポート対象かどうかを返す。
func SupportedAlgorithm(alg string) bool {
	_, ok := signingMethods[strings.ToUpper(strings.TrimSpace(alg))]
	return ok
}

// NewTokenCodec はTokenCodecを生成する。
// 署名鍵が未設定、未対応のアルゴリズム、TTLが0以下の場合はmodel.ErrConfigを返す。
// 安全でないデフォルト鍵にフォールバックすることはない。
func NewTokenCodec(cfg TokenConfig) (*TokenCodec, error) {
	if cfg.Secret == "" {
		return nil, model.NewConfigError("JWT secret is not configured")
	}

	alg := strings.ToUpper(strings.TrimSpace(cfg.Algorithm))
	if alg == "" {
		alg = DefaultAlgorithm
	}
	method, ok := signingMethods[alg]
	if !ok {
		return nil, model.NewConfigError(fmt.Sprintf("unsupported JWT algorithm %q", cfg.Algorithm))
	}

	if cfg.TTL <= 0 {
		return nil, model.NewConfigError("token TTL must be positive")
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &TokenCodec{
		secret: []byte(cfg.Secret),
		method: method,
		ttl:    cfg.TTL,
		now:    now,
	}, nil
}

// TTL はトークンの有効期間を返す。
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// Issue はsubjectとroleを持つトークンを発行する。
// iatは秒精度に切り捨て、exp = iat + TTL とする。
func (c *TokenCodec) Issue(subject string, role model.Role) (string, *model.TokenClaims, error) {
	if c == nil || len(c.secret) == 0 {
		return "", nil, model.NewConfigError("JWT secret is not configured")
	}
	if subject == "" {
		return "", nil, fmt.Errorf("token subject is required")
	}
	if !role.Valid() {
		return "", nil, fmt.Errorf("unknown role %q", role)
	}

	issuedAt := c.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(c.ttl)

	claims := accessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Role: string(role),
	}

	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, &model.TokenClaims{
		Subject:   subject,
		Role:      role,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

// Decode はトークンの署名と有効期限を検証し、クレームを返す。
// 署名不正・形式不正・期限切れ・必須クレーム欠落はすべてmodel.ErrInvalidTokenとして返し、
// 呼び出し側に理由を区別させない。時刻の猶予（leeway）は設けない。
func (c *TokenCodec) Decode(tokenString string) (*model.TokenClaims, error) {
	if c == nil || len(c.secret) == 0 {
		return nil, model.NewConfigError("JWT secret is not configured")
	}

	var parsed accessTokenClaims
	_, err := jwt.ParseWithClaims(tokenString, &parsed, func(token *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, model.ErrInvalidToken.WithCause(err)
	}

	if parsed.ExpiresAt == nil {
		return nil, model.ErrInvalidToken.WithCause(errors.New("missing exp claim"))
	}
	if !c.now().Before(parsed.ExpiresAt.Time) {
		return nil, model.ErrInvalidToken.WithCause(errors.New("token expired"))
	}

	role := model.Role(parsed.Role)
	if parsed.Subject == "" || !role.Valid() {
		return nil, model.ErrInvalidToken.WithCause(errors.New("missing required claims"))
	}

	claims := &model.TokenClaims{
		Subject:   parsed.Subject,
		Role:      role,
		ExpiresAt: parsed.ExpiresAt.Time.UTC(),
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	return claims, nil
}

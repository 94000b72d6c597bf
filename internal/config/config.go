// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// JWT
	JWTSecretKey             string `env:"JWT_SECRET_KEY"`
	JWTAlgorithm             string `env:"JWT_ALGORITHM"               envDefault:"HS256"`
	AccessTokenExpireMinutes int    `env:"ACCESS_TOKEN_EXPIRE_MINUTES" envDefault:"60"`
	BcryptCost               int    `env:"BCRYPT_COST"                 envDefault:"10"`

	// Google SSO
	GoogleClientID      string        `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret  string        `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURI   string        `env:"GOOGLE_REDIRECT_URI"`
	GoogleVerifyMode    string        `env:"GOOGLE_VERIFY_MODE"    envDefault:"tokeninfo"`
	GoogleTokenInfoURL  string        `env:"GOOGLE_TOKENINFO_URL"  envDefault:"https://oauth2.googleapis.com/tokeninfo"`
	GoogleJWKSURL       string        `env:"GOOGLE_JWKS_URL"       envDefault:"https://www.googleapis.com/oauth2/v3/certs"`
	GoogleVerifyTimeout time.Duration `env:"GOOGLE_VERIFY_TIMEOUT" envDefault:"8s"`

	// Admin
	AdminAllowedEmails  []string `env:"ADMIN_ALLOWED_EMAILS"  envSeparator:","`
	AdminAllowedDomains []string `env:"ADMIN_ALLOWED_DOMAINS" envSeparator:","`
	AdminSSOAllowAny    bool     `env:"ADMIN_SSO_ALLOW_ANY"   envDefault:"false"`
	AdminEmail          string   `env:"ADMIN_EMAIL"`
	AdminPassword       string   `env:"ADMIN_PASSWORD"`

	// Server
	AppName     string   `env:"APP_NAME"     envDefault:"Be4Breach API"`
	Environment string   `env:"ENVIRONMENT"  envDefault:"development"`
	ServerPort  string   `env:"SERVER_PORT"  envDefault:"8080"`
	LogLevel    string   `env:"LOG_LEVEL"    envDefault:"info"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合、または値が不正な場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	// Required fields
	var missing []string
	if cfg.JWTSecretKey == "" {
		missing = append(missing, "JWT_SECRET_KEY")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	cfg.JWTAlgorithm = strings.ToUpper(strings.TrimSpace(cfg.JWTAlgorithm))
	cfg.GoogleVerifyMode = strings.ToLower(strings.TrimSpace(cfg.GoogleVerifyMode))
	cfg.Environment = strings.ToLower(strings.TrimSpace(cfg.Environment))
	cfg.AdminAllowedEmails = compact(cfg.AdminAllowedEmails)
	cfg.AdminAllowedDomains = compact(cfg.AdminAllowedDomains)
	cfg.CORSOrigins = compact(cfg.CORSOrigins)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate は値の範囲と列挙値を検証する。
func (c *Config) validate() error {
	switch c.JWTAlgorithm {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("JWT_ALGORITHM must be one of HS256, HS384, HS512: got %q", c.JWTAlgorithm)
	}
	if c.AccessTokenExpireMinutes <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES must be positive: got %d", c.AccessTokenExpireMinutes)
	}
	switch c.GoogleVerifyMode {
	case "tokeninfo", "jwks":
	default:
		return fmt.Errorf("GOOGLE_VERIFY_MODE must be tokeninfo or jwks: got %q", c.GoogleVerifyMode)
	}
	if c.GoogleVerifyTimeout <= 0 {
		return fmt.Errorf("GOOGLE_VERIFY_TIMEOUT must be positive: got %s", c.GoogleVerifyTimeout)
	}
	return nil
}

// TokenTTL はアクセストークンの有効期間を返す。
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.AccessTokenExpireMinutes) * time.Minute
}

// IsProduction は本番環境かどうかを返す。
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// GoogleSSOEnabled はGoogle SSOが設定されているかを返す。
func (c *Config) GoogleSSOEnabled() bool {
	return c.GoogleClientID != ""
}

// compact はカンマ区切りの値から前後の空白と空要素を取り除く。
func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

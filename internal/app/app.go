package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/be4breach/internal/account"
	"github.com/hitoshi/be4breach/internal/auth"
	"github.com/hitoshi/be4breach/internal/config"
	"github.com/hitoshi/be4breach/internal/handler"
	"github.com/hitoshi/be4breach/internal/logger"
	"github.com/hitoshi/be4breach/internal/metrics"
	"github.com/hitoshi/be4breach/internal/repository"
	"github.com/hitoshi/be4breach/internal/security"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. 設定読み込み前のエラーも出力できるようにデフォルトレベルで初期化する
	logger.SetupDefault(w, "")

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたレベルで再初期化する
	logger.SetupDefault(w, cfg.LogLevel)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("app", cfg.AppName),
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.Bool("google_sso", cfg.GoogleSSOEnabled()),
	)

	return runServe(cfg)
}

// NewHandler は設定から全依存関係をワイヤリングし、HTTPハンドラーを構築する。
// ctxはJWKS取得などバックグラウンドで行うHTTP通信の寿命に使われる。
func NewHandler(ctx context.Context, cfg *config.Config, reg *prometheus.Registry) (http.Handler, error) {
	// 1. アカウントディレクトリ
	hasher := auth.NewBcryptHasher(cfg.BcryptCost)
	directory := account.NewDirectory(repository.NewMemoryAccountRepo(), hasher)
	if err := directory.BootstrapAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return nil, fmt.Errorf("failed to bootstrap admin account: %w", err)
	}

	// 2. トークン
	tokens, err := auth.NewTokenCodec(auth.TokenConfig{
		Secret:    cfg.JWTSecretKey,
		Algorithm: cfg.JWTAlgorithm,
		TTL:       cfg.TokenTTL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create token codec: %w", err)
	}

	// 3. Google SSO（クライアントIDがある場合のみ）
	var verifier auth.IdentityVerifier
	var oauthProvider auth.OAuthProvider
	if cfg.GoogleSSOEnabled() {
		switch cfg.GoogleVerifyMode {
		case auth.VerifyModeJWKS:
			verifier = auth.NewOIDCVerifier(ctx, cfg.GoogleJWKSURL, cfg.GoogleVerifyTimeout)
		default:
			verifier = auth.NewTokenInfoVerifier(cfg.GoogleTokenInfoURL, cfg.GoogleVerifyTimeout)
		}
		// コード交換はクライアントシークレットがある場合のみ有効（CanExchangeで判定）
		oauthProvider = auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURI,
			Timeout:      cfg.GoogleVerifyTimeout,
		})
	}

	// 4. メトリクス
	collector := metrics.NewCollector(reg)

	// 5. 認証サービス
	authService := auth.NewService(auth.ServiceDeps{
		Directory: directory,
		Hasher:    hasher,
		Tokens:    tokens,
		Verifier:  verifier,
		OAuth:     oauthProvider,
		Allowlist: auth.NewAdminAllowlist(cfg.AdminAllowedEmails, cfg.AdminAllowedDomains, cfg.AdminSSOAllowAny),
		Metrics:   collector,
		Config: auth.ServiceConfig{
			GoogleClientID:    cfg.GoogleClientID,
			GoogleRedirectURI: cfg.GoogleRedirectURI,
		},
	})

	// 6. ルーター
	return handler.NewRouter(&handler.RouterDeps{
		AuthService:   authService,
		Authenticator: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieSecure: cfg.IsProduction(),
		},

		Sanitizer:       security.NewContactSanitizer(),
		ContactRecorder: collector,
		Accounts:        directory,

		Logger:         slog.Default(),
		CORSOrigins:    cfg.CORSOrigins,
		HSTS:           cfg.IsProduction(),
		HTTPMetrics:    collector,
		MetricsHandler: metrics.Handler(reg),
	}), nil
}

// runServe はAPIサーバーモードで起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	router, err := NewHandler(ctx, cfg, reg)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server listen error: %w", err)
	case <-stop:
	}
	slog.Info("shutting down API server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

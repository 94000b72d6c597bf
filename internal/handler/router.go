package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/be4breach/internal/middleware"
	"github.com/hitoshi/be4breach/internal/model"
	"github.com/hitoshi/be4breach/internal/security"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// 認証
	AuthService   AuthServiceInterface
	Authenticator middleware.RequestAuthenticator
	AuthConfig    AuthHandlerConfig

	// コンテンツ
	Sanitizer       security.TextSanitizer
	ContactRecorder ContactRecorder
	Accounts        AccountCounter

	// ミドルウェア依存
	Logger         *slog.Logger
	CORSOrigins    []string
	HSTS           bool
	HTTPMetrics    middleware.HTTPMetricsRecorder // nilの場合は記録しない
	MetricsHandler http.Handler                   // nilの場合は/metricsを公開しない
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → RealIP → Recovery → Logging → Metrics → SecurityHeaders → CORS
//
// 保護ルートには Bearer → RequireRole を追加で適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.HTTPMetrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.HTTPMetrics))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.HSTS))
	r.Use(middleware.NewCORSMiddleware(deps.CORSOrigins))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	contentHandler := NewContentHandler(deps.Sanitizer, deps.ContactRecorder)
	dashboardHandler := NewDashboardHandler(deps.Accounts)

	// --- 認証不要のルート ---
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/info", contentHandler.Info)
		r.Get("/services", contentHandler.Services)
		r.Get("/about", contentHandler.About)
		r.Get("/contact", contentHandler.Contact)

		r.Route("/v1", func(r chi.Router) {
			r.Post("/contact", contentHandler.SubmitContact)

			r.Route("/auth", func(r chi.Router) {
				r.Post("/register", authHandler.Register)
				r.Post("/login", authHandler.Login)
				r.Post("/admin/login", authHandler.AdminLogin)
				r.Get("/google/url", authHandler.GoogleURL)
				r.Get("/google/callback", authHandler.GoogleCallback)
				r.Post("/google", authHandler.GoogleLogin)

				r.With(middleware.NewBearerAuthMiddleware(deps.Authenticator)).Get("/me", authHandler.Me)
			})

			// --- 認証が必要なルート ---
			// ミドルウェアスタック: Bearer → RequireRole
			r.Group(func(r chi.Router) {
				r.Use(middleware.NewBearerAuthMiddleware(deps.Authenticator))

				r.Group(func(r chi.Router) {
					r.Use(middleware.NewRequireRoleMiddleware(model.RoleUser))

					r.Get("/dashboard/user", dashboardHandler.UserDashboard)
					r.Get("/user/dashboard", dashboardHandler.UserDashboard)
					r.Get("/dashboard/user/summary", dashboardHandler.UserSummary)
					r.Get("/user/services", dashboardHandler.UserServices)
				})

				r.Group(func(r chi.Router) {
					r.Use(middleware.NewRequireRoleMiddleware(model.RoleAdmin))

					r.Get("/dashboard/admin", dashboardHandler.AdminDashboard)
					r.Get("/admin/dashboard", dashboardHandler.AdminDashboard)
					r.Get("/dashboard/admin/summary", dashboardHandler.AdminSummary)
					r.Get("/admin/alerts", dashboardHandler.AdminAlerts)
				})
			})
		})
	})

	return r
}

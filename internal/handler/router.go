package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/startupconnect/internal/middleware"
	"github.com/hitoshi/startupconnect/internal/view"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// インフラ
	HealthChecker  HealthChecker
	MetricsHandler http.Handler // nilの場合は/metricsを公開しない
	Logger         *slog.Logger

	// セッション
	SessionFinder middleware.SessionFinder
	Identities    IdentityFinder
	Cookies       CookieConfig

	// 画面
	Renderer *view.Renderer

	// ドメインサービス
	AuthService      AuthServiceInterface
	DashboardService DashboardServiceInterface
	ChatService      ChatServiceInterface
}

// NewRouter は全画面のルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → Session → Logging → CSRF → RequireSession（ログイン必須の画面のみ）
//
// /health と /metrics はセッションとCSRFの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &pages{
		renderer:   deps.Renderer,
		identities: deps.Identities,
		cookies:    deps.Cookies,
	}
	authHandler := NewAuthHandler(p, deps.AuthService)
	dashboardHandler := NewDashboardHandler(p, deps.DashboardService)
	chatHandler := NewChatHandler(p, deps.ChatService)

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.renderer.RenderError(w, r, view.Page{}, http.StatusInternalServerError,
			"Something went wrong.", "Please try again in a moment.")
	})))
	r.Use(middleware.NewSecurityHeadersMiddleware())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		p.renderer.RenderError(w, r, view.Page{}, http.StatusNotFound,
			"Page not found.", "")
	})

	// --- インフラ ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// --- 画面 ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(middleware.NewLoggingMiddleware(logger))
		r.Use(middleware.NewCSRFMiddleware(middleware.CSRFConfig{
			CookieSecure: deps.Cookies.Secure,
			CookieDomain: deps.Cookies.Domain,
		}))

		// ログイン不要
		r.Get("/", authHandler.Root)
		r.Get("/login", authHandler.LoginForm)
		r.Post("/login", authHandler.Login)
		r.Get("/register", authHandler.RegisterForm)
		r.Post("/register", authHandler.Register)
		r.Post("/logout", authHandler.Logout)

		// ログイン必須
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewRequireSessionMiddleware("/login"))

			r.Get("/dashboard", dashboardHandler.Show)
			r.Post("/dashboard/connect/{id}", dashboardHandler.Connect)

			r.Get("/chat/{userId}", chatHandler.Show)
			r.Post("/chat/{userId}", chatHandler.Send)

			r.Get("/messages", chatHandler.Messages)
		})
	})

	return r
}

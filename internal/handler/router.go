package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/careerhub/internal/middleware"
	"github.com/hitoshi/careerhub/internal/model"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	TokenParser       middleware.TokenParser
	AuthRecorder      middleware.AuthRecorder
	StatusRecorder    middleware.HTTPStatusRecorder
	CORSAllowedOrigin string
	EnableHSTS        bool
	RateLimiter       *middleware.RateLimiter

	// 認証
	AuthService AuthServiceInterface
	TokenIssuer TokenIssuer

	// ユーザー
	UserService UserServiceInterface

	// 運用
	HealthChecker  HealthChecker
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → HTTPMetrics → SecurityHeaders → CORS → (保護ルートのみ) Auth → RateLimit → (管理者ルートのみ) RequireRole
//
// 認証ルート（/auth/*, /api/auth/*）は認証ミドルウェアの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.StatusRecorder != nil {
		r.Use(middleware.NewHTTPMetricsMiddleware(deps.StatusRecorder))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.EnableHSTS))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.TokenIssuer)
	userHandler := NewUserHandler(deps.UserService)

	// --- 認証不要のルート ---

	if deps.HealthChecker != nil {
		r.Get("/health", NewHealthHandler(deps.HealthChecker))
	}
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	authRoutes := func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
	}
	r.Route("/auth", authRoutes)
	r.Route("/api/auth", authRoutes)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.TokenParser, deps.AuthRecorder))
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.Middleware())
		}

		r.Get("/api/users/me", middleware.WithPrincipal(userHandler.Me))

		// 管理者専用
		r.Route("/api/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(model.RoleAdmin))
			r.Get("/stats", middleware.WithPrincipal(userHandler.Stats))
		})
	})

	return r
}
